package srcbatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/chararch/srcbatch/file"
	"github.com/chararch/srcbatch/internal/logs"
)

//Dispatcher runs the jobs of a table. Job failures are reported per key through the returned executions.
type Dispatcher interface {
	Dispatch(ctx context.Context, run string, table JobTable) (map[string]*JobExecution, BatchError)
}

//catalogCache loads each model file once and shares the read-only catalog between jobs
type catalogCache struct {
	mu      sync.Mutex
	entries map[string]*catalogEntry
}

type catalogEntry struct {
	once    sync.Once
	catalog *Catalog
	err     BatchError
}

func newCatalogCache() *catalogCache {
	return &catalogCache{entries: make(map[string]*catalogEntry)}
}

func (c *catalogCache) put(path string, catalog *Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &catalogEntry{catalog: catalog}
	entry.once.Do(func() {})
	c.entries[path] = entry
}

func (c *catalogCache) get(path string) (*Catalog, BatchError) {
	c.mu.Lock()
	entry, ok := c.entries[path]
	if !ok {
		entry = &catalogEntry{}
		c.entries[path] = entry
	}
	c.mu.Unlock()
	entry.once.Do(func() {
		entry.catalog, entry.err = LoadCatalogFile(path)
	})
	return entry.catalog, entry.err
}

//LocalDispatcher runs every job of a table in this process on a bounded worker pool
type LocalDispatcher struct {
	pool           *taskPool
	engine         AnalysisEngine
	store          ArtifactStore
	jobListeners   []JobListener
	buildListeners []BuildListener
	publisher      *Publisher
	checksum       string
	jobLogs        bool
	catalogs       *catalogCache
}

//NewLocalDispatcher creates a dispatcher running at most workers jobs at once, DefaultMaxRunningJobs when workers <= 0
func NewLocalDispatcher(workers int, engine AnalysisEngine, store ArtifactStore) (*LocalDispatcher, BatchError) {
	if engine == nil || store == nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "engine and artifact store are required")
	}
	if workers <= 0 {
		workers = DefaultMaxRunningJobs
	}
	pool, err := newTaskPool(workers)
	if err != nil {
		return nil, NewBatchError(ErrCodeGeneral, "create worker pool of size %v", workers, err)
	}
	return &LocalDispatcher{
		pool:     pool,
		engine:   engine,
		store:    store,
		catalogs: newCatalogCache(),
	}, nil
}

//Listener adds job listeners
func (d *LocalDispatcher) Listener(listeners ...JobListener) *LocalDispatcher {
	d.jobListeners = append(d.jobListeners, listeners...)
	return d
}

//BuildListener adds listeners given to every artifact build
func (d *LocalDispatcher) BuildListener(listeners ...BuildListener) *LocalDispatcher {
	d.buildListeners = append(d.buildListeners, listeners...)
	return d
}

func (d *LocalDispatcher) Publisher(p *Publisher) *LocalDispatcher {
	d.publisher = p
	return d
}

//Checksum writes a check file of the given algorithm next to every artifact
func (d *LocalDispatcher) Checksum(alg string) *LocalDispatcher {
	d.checksum = alg
	return d
}

//JobLogs writes the log lines of each job to its own log file as well
func (d *LocalDispatcher) JobLogs(enabled bool) *LocalDispatcher {
	d.jobLogs = enabled
	return d
}

//Catalog makes catalog available to the jobs whose model file is path without reading the file
func (d *LocalDispatcher) Catalog(path string, catalog *Catalog) *LocalDispatcher {
	d.catalogs.put(path, catalog)
	return d
}

//Release stops the worker pool, the dispatcher can not be used afterwards
func (d *LocalDispatcher) Release() {
	d.pool.Release()
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, run string, table JobTable) (map[string]*JobExecution, BatchError) {
	if d.checksum != "" && file.GetChecksumer(d.checksum) == nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "unknown checksum:%v", d.checksum)
	}
	keys := table.Keys()
	logger.Info(ctx, "dispatch jobs, run:%v, jobs:%v", run, len(keys))
	executions := make(map[string]*JobExecution, len(keys))
	futures := make(map[string]Future, len(keys))
	for _, key := range keys {
		desc := table[key]
		e := newJobExecution(run, key)
		executions[key] = e
		futures[key] = d.pool.Submit(ctx, func() (interface{}, error) {
			d.runJob(ctx, desc, e)
			return e, nil
		})
	}
	counts := make(map[string]int)
	for _, key := range keys {
		if _, err := futures[key].Get(); err != nil {
			e := executions[key]
			if !e.Status.Finished() {
				e.finish(NewBatchError(ErrCodeGeneral, "job %v was not run", key, err))
			}
			logger.Error(ctx, "job not run, run:%v, key:%v, err:%v", run, key, err)
		}
		counts[string(executions[key].Status)]++
	}
	logger.Info(ctx, "dispatch finished, run:%v, status:%v", run, counts)
	return executions, nil
}

func (d *LocalDispatcher) runJob(ctx context.Context, desc *JobDescriptor, e *JobExecution) {
	logger.Debug(ctx, "job start, key:%v, running jobs:%v", desc.Key, d.pool.Running())
	for _, l := range d.jobListeners {
		if err := l.BeforeJob(ctx, e); err != nil {
			logger.Error(ctx, "job rejected by listener, key:%v, err:%v", desc.Key, err)
			e.finish(err)
			d.afterJob(ctx, e)
			return
		}
	}
	if err := d.build(ctx, desc, e); err != nil && !e.Status.Finished() {
		logger.Error(ctx, "job failed before build, key:%v, err:%v", desc.Key, err)
		e.finish(err)
	}
	d.afterJob(ctx, e)
}

func (d *LocalDispatcher) afterJob(ctx context.Context, e *JobExecution) {
	for _, l := range d.jobListeners {
		if err := l.AfterJob(ctx, e); err != nil {
			logger.Error(ctx, "job listener failed, key:%v, err:%v", e.Key, err)
		}
	}
}

func (d *LocalDispatcher) build(ctx context.Context, desc *JobDescriptor, e *JobExecution) BatchError {
	catalog, err := d.catalogs.get(desc.ModelFile)
	if err != nil {
		return err
	}
	cfg := desc.WorkerConfig()
	cfg.Key = desc.Key
	cfg.Checksum = d.checksum
	b, err := NewArtifactBuilder(cfg, catalog, d.engine, d.store)
	if err != nil {
		return err
	}
	b.Execution(e).Listener(d.buildListeners...).Publisher(d.publisher)
	if d.jobLogs && desc.LogPath != "" {
		if ferr := os.MkdirAll(filepath.Dir(desc.LogPath), 0755); ferr != nil {
			return NewBatchError(ErrCodeGeneral, "create log dir of job %v", desc.Key, ferr)
		}
		f, ferr := os.Create(desc.LogPath)
		if ferr != nil {
			return NewBatchError(ErrCodeGeneral, "create log file of job %v", desc.Key, ferr)
		}
		defer f.Close()
		b.Logger(logs.Tee(logger, logs.NewLogger(f, logs.Debug)))
	}
	return b.Run(ctx)
}
