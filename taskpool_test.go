package srcbatch

import (
	"context"
	"testing"

	"github.com/bmizerany/assert"
)

func TestFutureImpl_Get(t *testing.T) {
	ctx := context.Background()
	pool, err := newTaskPool(2)
	assert.Equal(t, nil, err)
	fu := pool.Submit(ctx, func() (interface{}, error) {
		return "ok", nil
	})
	val, err := fu.Get()
	assert.Equal(t, "ok", val)
	assert.Equal(t, nil, err)

	fu = pool.Submit(ctx, func() (interface{}, error) {
		var m []string
		return m[0], nil
	})
	val, err = fu.Get()
	assert.Equal(t, nil, val)
	assert.NotEqual(t, nil, err)

	pool.Release()
	fu = pool.Submit(ctx, func() (interface{}, error) {
		return "ok", nil
	})
	val, err = fu.Get()
	assert.Equal(t, nil, val)
	assert.NotEqual(t, nil, err)
}

func TestTaskPool_Running(t *testing.T) {
	pool, err := newTaskPool(2)
	assert.Equal(t, nil, err)
	defer pool.Release()
	assert.Equal(t, 0, pool.Running())

	block := make(chan struct{})
	fu := pool.Submit(context.Background(), func() (interface{}, error) {
		<-block
		return nil, nil
	})
	assert.Equal(t, 1, pool.Running())
	close(block)
	_, err = fu.Get()
	assert.Equal(t, nil, err)
}
