package util

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestJson(t *testing.T) {
	str, err := JsonString(map[string]interface{}{"nsrc": 500})
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"nsrc":500}`, str)

	m := make(map[string]interface{})
	err = ParseJson(str, &m)
	assert.Equal(t, nil, err)
	assert.Equal(t, float64(500), m["nsrc"])
}

func TestIn(t *testing.T) {
	assert.T(t, In("FAILED", "STARTED", "FAILED"))
	assert.T(t, !In("COMPLETED", "STARTED", "FAILED"))
	assert.T(t, !In("COMPLETED"))
}
