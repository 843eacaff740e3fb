package srcbatch

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
)

const testCatalogXML = `<?xml version="1.0" ?>
<source_library title="source library">
  <source name="3FGL J0534.5+2201" type="PointSource" TS_value="42.0">
    <spectrum type="PowerLaw"><parameter name="Index" value="2.1"/></spectrum>
  </source>
  <source name="3FGL J0835.3-4510" type="PointSource">
    <spectrum type="PowerLaw"><parameter name="Index" value="1.9"/></spectrum>
  </source>
  <source name="3FGL J0534.5+2200" type="PointSource">
    <spectrum type="LogParabola"/>
  </source>
</source_library>
`

// makeCatalog builds a catalog of n synthetic point sources
func makeCatalog(name string, n int) *Catalog {
	entities := make([]*Entity, n)
	for i := range entities {
		entities[i] = &Entity{
			Name:       fmt.Sprintf("%s_src%05d", name, i),
			Type:       "PointSource",
			Definition: fmt.Sprintf("<spectrum type=\"PowerLaw\" index=\"%d\"/>", i),
		}
	}
	c, err := NewCatalog(name, entities)
	if err != nil {
		panic(err)
	}
	return c
}

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog("3FGL", []byte(testCatalogXML))
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"3FGL J0534.5+2201", "3FGL J0835.3-4510", "3FGL J0534.5+2200"}, c.Names())

	e, ok := c.Fetch("3FGL J0835.3-4510")
	assert.T(t, ok)
	assert.Equal(t, "PointSource", e.Type)
	assert.T(t, strings.Contains(e.Definition, `value="1.9"`), e.Definition)
	assert.Equal(t, "3FGL J0835.3-4510", c.EntityName(1))

	_, ok = c.Fetch("absent")
	assert.T(t, !ok)

	first, ok := c.Fetch(c.EntityName(0))
	assert.T(t, ok)
	assert.Equal(t, 1, len(first.Attrs))
	assert.Equal(t, "TS_value", first.Attrs[0].Name.Local)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog("bad", []byte("<source_library><source"))
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
	_, err = ParseCatalog("dup", []byte(`<source_library><source name="a"/><source name="a"/></source_library>`))
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
}

func TestCatalog_Split(t *testing.T) {
	c, _ := ParseCatalog("3FGL", []byte(testCatalogXML))
	bright, err := c.Split("3FGL_bright", []string{"3FGL J0534*"})
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"3FGL J0534.5+2201", "3FGL J0534.5+2200"}, bright.Names())

	_, err = c.Split("bad", []string{"["})
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
}

func TestCatalog_WriteModelFile(t *testing.T) {
	c, _ := ParseCatalog("3FGL", []byte(testCatalogXML))
	path := filepath.Join(t.TempDir(), "srcmdls", "3FGL.xml")
	assert.Equal(t, nil, c.WriteModelFile(path))

	back, err := LoadCatalogFile(path)
	assert.Equal(t, nil, err)
	assert.Equal(t, "3FGL", back.Name)
	assert.Equal(t, c.Names(), back.Names())
	e, _ := back.Fetch("3FGL J0534.5+2201")
	assert.T(t, strings.Contains(e.Definition, `value="2.1"`), e.Definition)
	assert.Equal(t, "TS_value", e.Attrs[0].Name.Local)
}
