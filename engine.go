package srcbatch

import (
	"context"
	"encoding/xml"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

//EchoEngineName name of the reference engine
const EchoEngineName = "echo"

//EngineFactory creates an analysis engine
type EngineFactory func() AnalysisEngine

//EngineRegistry engine name -> factory, built at process start
type EngineRegistry struct {
	mu      sync.RWMutex
	engines map[string]EngineFactory
}

//NewEngineRegistry creates an empty registry
func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{engines: make(map[string]EngineFactory)}
}

//DefaultEngineRegistry a registry holding the echo engine
func DefaultEngineRegistry() *EngineRegistry {
	r := NewEngineRegistry()
	r.Register(EchoEngineName, func() AnalysisEngine {
		return &EchoEngine{}
	})
	return r
}

//Register registers an engine factory, names must be unique
func (r *EngineRegistry) Register(name string, factory EngineFactory) error {
	if name == "" || factory == nil {
		return errors.New("engine name and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.engines[name]; ok {
		return errors.Errorf("engine %v is already registered", name)
	}
	r.engines[name] = factory
	return nil
}

//Get creates the engine registered under name
func (r *EngineRegistry) Get(name string) (AnalysisEngine, BatchError) {
	r.mu.RLock()
	factory, ok := r.engines[name]
	r.mu.RUnlock()
	if !ok {
		return nil, NewBatchError(ErrCodeInvalidArgument, "unknown engine:%v", name)
	}
	return factory(), nil
}

//Names registered engine names in ascending order
func (r *EngineRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

//EchoEngine serializes the model definition of each entity as its contribution
type EchoEngine struct {
}

func (e *EchoEngine) OpenContext(ctx context.Context, inputs InputFiles) (AnalysisContext, error) {
	if inputs.CountsMap == "" {
		return nil, errors.New("counts map is required")
	}
	return &echoContext{entities: make(map[string]*Entity)}, nil
}

type echoContext struct {
	entities map[string]*Entity
	closed   bool
}

func (c *echoContext) AddEntity(entity *Entity) error {
	if c.closed {
		return errors.New("analysis context is closed")
	}
	if _, ok := c.entities[entity.Name]; ok {
		return errors.Errorf("entity %v is already in the context", entity.Name)
	}
	c.entities[entity.Name] = entity
	return nil
}

func (c *echoContext) Contribution(name string) ([]byte, error) {
	entity, ok := c.entities[name]
	if !ok {
		return nil, errors.Errorf("entity %v is not in the context", name)
	}
	return xml.Marshal(entity)
}

func (c *echoContext) RemoveEntity(name string) error {
	if _, ok := c.entities[name]; !ok {
		return errors.Errorf("entity %v is not in the context", name)
	}
	delete(c.entities, name)
	return nil
}

func (c *echoContext) Close() error {
	c.closed = true
	c.entities = nil
	return nil
}
