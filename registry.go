package srcbatch

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

//ConfigMaker builds the job table of one job type
type ConfigMaker interface {
	BuildJobConfigs(ctx context.Context) (JobTable, BatchError)
}

//ConfigMakerFactory creates a ConfigMaker from submission parameters
type ConfigMakerFactory func(params map[string]interface{}) (ConfigMaker, BatchError)

//Registry job type -> config maker factory, built at process start and handed to an Operator
type Registry struct {
	mu     sync.RWMutex
	makers map[string]ConfigMakerFactory
}

//NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{makers: make(map[string]ConfigMakerFactory)}
}

//DefaultRegistry a registry holding the catalog source-map job type
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CatalogSGJobType, NewCatalogSG)
	return r
}

//Register registers a job type, names must be unique
func (r *Registry) Register(jobType string, factory ConfigMakerFactory) error {
	if jobType == "" || factory == nil {
		return errors.New("job type and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.makers[jobType]; ok {
		return errors.Errorf("job type:%v has already been registered", jobType)
	}
	r.makers[jobType] = factory
	return nil
}

//New creates the config maker of jobType
func (r *Registry) New(jobType string, params map[string]interface{}) (ConfigMaker, BatchError) {
	r.mu.RLock()
	factory, ok := r.makers[jobType]
	r.mu.RUnlock()
	if !ok {
		return nil, NewBatchError(ErrCodeInvalidArgument, "can not find job type:%v", jobType)
	}
	return factory(params)
}

//JobTypes registered job types in ascending order
func (r *Registry) JobTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.makers))
	for t := range r.makers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
