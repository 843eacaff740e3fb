package srcbatch

import (
	"encoding/xml"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
)

//Entity one model entity (source) of a catalog
type Entity struct {
	XMLName    xml.Name   `xml:"source"`
	Name       string     `xml:"name,attr"`
	Type       string     `xml:"type,attr"`
	Attrs      []xml.Attr `xml:",any,attr"`
	Definition string     `xml:",innerxml"`
}

type sourceLibrary struct {
	XMLName  xml.Name  `xml:"source_library"`
	Title    string    `xml:"title,attr,omitempty"`
	Entities []*Entity `xml:"source"`
}

//Catalog an ordered, read-only list of entities addressed by index or by name
type Catalog struct {
	Name     string
	entities []*Entity
	index    map[string]int
}

//NewCatalog builds a catalog, entity names must be unique
func NewCatalog(name string, entities []*Entity) (*Catalog, BatchError) {
	index := make(map[string]int, len(entities))
	for i, e := range entities {
		if e.Name == "" {
			return nil, NewBatchError(ErrCodeInvalidArgument, "entity %d of catalog %v has no name", i, name)
		}
		if _, ok := index[e.Name]; ok {
			return nil, NewBatchError(ErrCodeInvalidArgument, "duplicate entity %v in catalog %v", e.Name, name)
		}
		index[e.Name] = i
	}
	return &Catalog{Name: name, entities: entities, index: index}, nil
}

//Len number of entities
func (c *Catalog) Len() int {
	return len(c.entities)
}

//EntityName returns the name of the entity at position i
func (c *Catalog) EntityName(i int) string {
	return c.entities[i].Name
}

//Fetch looks an entity up by name
func (c *Catalog) Fetch(name string) (*Entity, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.entities[i], true
}

//Names entity names in catalog order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entities))
	for i, e := range c.entities {
		names[i] = e.Name
	}
	return names
}

//Split returns the sub-catalog of entities whose name matches any of the glob patterns, in catalog order
func (c *Catalog) Split(name string, patterns []string) (*Catalog, BatchError) {
	selected := make([]*Entity, 0)
	for _, e := range c.entities {
		for _, p := range patterns {
			matched, err := path.Match(p, e.Name)
			if err != nil {
				return nil, NewBatchError(ErrCodeInvalidArgument, "bad split pattern %v", p, err)
			}
			if matched {
				selected = append(selected, e)
				break
			}
		}
	}
	return NewCatalog(name, selected)
}

//ParseCatalog parses an XML source library
func ParseCatalog(name string, data []byte) (*Catalog, BatchError) {
	lib := &sourceLibrary{}
	if err := xml.Unmarshal(data, lib); err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "parse catalog %v err", name, err)
	}
	return NewCatalog(name, lib.Entities)
}

//LoadCatalogFile reads an XML source library file, the catalog is named after the file
func LoadCatalogFile(filePath string) (*Catalog, BatchError) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "read catalog %v err", filePath, err)
	}
	name := filepath.Base(filePath)
	return ParseCatalog(name[:len(name)-len(filepath.Ext(name))], data)
}

//WriteModelFile writes the catalog as an XML source library
func (c *Catalog) WriteModelFile(filePath string) error {
	data, err := xml.MarshalIndent(&sourceLibrary{Title: c.Name, Entities: c.entities}, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal catalog:%v", c.Name)
	}
	if err = os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.Wrapf(err, "create dir for:%v", filePath)
	}
	data = append([]byte(xml.Header), data...)
	if err = os.WriteFile(filePath, append(data, '\n'), 0644); err != nil {
		return errors.Wrapf(err, "write model file:%v", filePath)
	}
	return nil
}
