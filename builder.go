package srcbatch

import (
	"context"
	"runtime/debug"

	"github.com/chararch/srcbatch/file"
	"github.com/chararch/srcbatch/internal/logs"
)

//BuildState state of an ArtifactBuilder
type BuildState int

const (
	//Uninitialized no context opened and no artifact created yet
	Uninitialized BuildState = iota
	//Initialized context opened and artifact created with its header
	Initialized
	//Accumulating at least one entity was handed to Accumulate
	Accumulating
	//Done artifact closed
	Done
)

func (s BuildState) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Initialized:
		return "INITIALIZED"
	case Accumulating:
		return "ACCUMULATING"
	case Done:
		return "DONE"
	}
	return "UNKNOWN"
}

//AnalysisEngine opens analysis contexts on the input files of a job
type AnalysisEngine interface {
	OpenContext(ctx context.Context, inputs InputFiles) (AnalysisContext, error)
}

//AnalysisContext a mutable analysis session owned by a single job
type AnalysisContext interface {
	AddEntity(entity *Entity) error
	//Contribution computes the serialized contribution of an added entity
	Contribution(name string) ([]byte, error)
	RemoveEntity(name string) error
	Close() error
}

//ArtifactStore creates artifacts whose header is copied from a reference file
type ArtifactStore interface {
	Create(path, reference, irfs string) (Artifact, error)
}

//Artifact the output of one job
type Artifact interface {
	AppendContribution(name string, data []byte) error
	Close() error
}

//WorkerConfig configuration of one artifact build
type WorkerConfig struct {
	Key        string
	Inputs     InputFiles
	ModelFile  string
	OutputPath string
	//SrcMin index of the first entity
	SrcMin int
	//SrcMax index after the last entity, negative means the end of the catalog
	SrcMax   int
	Compress bool
	//Checksum algorithm of the check file written next to the artifact, empty for none
	Checksum string
}

//Validate checks the config against a catalog of n entities and returns the index range to build
func (c *WorkerConfig) Validate(n int) (IndexRange, BatchError) {
	if c.OutputPath == "" {
		return IndexRange{}, NewBatchError(ErrCodeInvalidArgument, "output path is required")
	}
	if c.Checksum != "" && file.GetChecksumer(c.Checksum) == nil {
		return IndexRange{}, NewBatchError(ErrCodeInvalidArgument, "unknown checksum:%v", c.Checksum)
	}
	max := c.SrcMax
	if max < 0 {
		max = n
	}
	if c.SrcMin < 0 || max > n || c.SrcMin > max {
		return IndexRange{}, NewBatchError(ErrCodeInvalidArgument, "invalid source range, srcmin:%v, srcmax:%v, catalog size:%v", c.SrcMin, c.SrcMax, n)
	}
	return IndexRange{Min: c.SrcMin, Max: max}, nil
}

//ArtifactBuilder builds one artifact by adding the contribution of each entity of a range, one entity at a time
type ArtifactBuilder struct {
	cfg       WorkerConfig
	catalog   *Catalog
	rng       IndexRange
	engine    AnalysisEngine
	store     ArtifactStore
	publisher *Publisher
	listeners []BuildListener
	logger    logs.Logger

	state     BuildState
	next      int
	actx      AnalysisContext
	artifact  Artifact
	failed    BatchError
	execution *JobExecution
}

//NewArtifactBuilder creates a builder of the entities of catalog selected by cfg
func NewArtifactBuilder(cfg WorkerConfig, catalog *Catalog, engine AnalysisEngine, store ArtifactStore) (*ArtifactBuilder, BatchError) {
	if catalog == nil || engine == nil || store == nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "catalog, engine and artifact store are required")
	}
	rng, err := cfg.Validate(catalog.Len())
	if err != nil {
		return nil, err
	}
	key := cfg.Key
	if key == "" {
		key = cfg.OutputPath
	}
	return &ArtifactBuilder{
		cfg:       cfg,
		catalog:   catalog,
		rng:       rng,
		engine:    engine,
		store:     store,
		logger:    logger,
		state:     Uninitialized,
		execution: newJobExecution("", key),
	}, nil
}

//Listener adds build listeners
func (b *ArtifactBuilder) Listener(listeners ...BuildListener) *ArtifactBuilder {
	b.listeners = append(b.listeners, listeners...)
	return b
}

//Publisher copies the finished artifact to a remote storage
func (b *ArtifactBuilder) Publisher(p *Publisher) *ArtifactBuilder {
	b.publisher = p
	return b
}

//Logger sets the logger of this build only
func (b *ArtifactBuilder) Logger(l logs.Logger) *ArtifactBuilder {
	if l != nil {
		b.logger = l
	}
	return b
}

//Execution records the build into an existing execution
func (b *ArtifactBuilder) Execution(e *JobExecution) *ArtifactBuilder {
	if e != nil {
		b.execution = e
	}
	return b
}

//State current state
func (b *ArtifactBuilder) State() BuildState {
	return b.state
}

//Range the index range being built
func (b *ArtifactBuilder) Range() IndexRange {
	return b.rng
}

//JobExecution the execution record of the build
func (b *ArtifactBuilder) JobExecution() *JobExecution {
	return b.execution
}

func (b *ArtifactBuilder) transition(ctx context.Context, to BuildState) {
	from := b.state
	b.state = to
	b.logger.Debug(ctx, "artifact build state change, outfile:%v, from:%v, to:%v", b.cfg.OutputPath, from, to)
	for _, l := range b.listeners {
		l.OnStateChange(ctx, b.execution, from, to)
	}
}

func (b *ArtifactBuilder) fail(err BatchError) BatchError {
	b.failed = err
	return err
}

//Initialize opens the analysis context and creates the artifact. It must be called exactly once, before any entity.
func (b *ArtifactBuilder) Initialize(ctx context.Context) BatchError {
	if b.state != Uninitialized {
		return NewBatchError(ErrCodeArtifactInit, "artifact %v is already initialized, state:%v", b.cfg.OutputPath, b.state)
	}
	if b.failed != nil {
		return b.failed
	}
	actx, err := b.engine.OpenContext(ctx, b.cfg.Inputs)
	if err != nil {
		return b.fail(NewBatchError(ErrCodeArtifactInit, "open analysis context for %v", b.cfg.OutputPath, err))
	}
	artifact, err := b.store.Create(b.cfg.OutputPath, b.cfg.Inputs.CountsMap, b.cfg.Inputs.IRFs)
	if err != nil {
		actx.Close()
		return b.fail(NewBatchError(ErrCodeArtifactInit, "create artifact %v", b.cfg.OutputPath, err))
	}
	b.actx = actx
	b.artifact = artifact
	b.next = b.rng.Min
	b.transition(ctx, Initialized)
	return nil
}

//Accumulate adds the contribution of entity index to the artifact. Indices must follow each other from the start of the range.
func (b *ArtifactBuilder) Accumulate(ctx context.Context, index int) BatchError {
	if b.failed != nil {
		return b.failed
	}
	switch b.state {
	case Uninitialized:
		return NewBatchError(ErrCodeArtifactInit, "artifact %v is not initialized", b.cfg.OutputPath)
	case Done:
		return NewBatchError(ErrCodeInvalidArgument, "artifact %v is already finished", b.cfg.OutputPath)
	}
	if !b.rng.Contains(index) || index != b.next {
		return NewBatchError(ErrCodeInvalidArgument, "entity index %v out of order, next:%v, range:%v", index, b.next, b.rng)
	}
	if b.state == Initialized {
		b.transition(ctx, Accumulating)
	}
	name := b.catalog.EntityName(index)
	err := b.accumulate(name)
	for _, l := range b.listeners {
		l.OnEntity(ctx, b.execution, index, name, err)
	}
	if err != nil {
		return b.fail(err)
	}
	b.next = index + 1
	b.execution.EntityCount++
	return nil
}

func (b *ArtifactBuilder) accumulate(name string) BatchError {
	entity, ok := b.catalog.Fetch(name)
	if !ok {
		return NewBatchError(ErrCodeEntityProcessing, "entity %v not found in catalog %v", name, b.catalog.Name)
	}
	if err := b.actx.AddEntity(entity); err != nil {
		return NewBatchError(ErrCodeEntityProcessing, "add entity %v", entity.Name, err)
	}
	data, err := b.actx.Contribution(entity.Name)
	if err != nil {
		return NewBatchError(ErrCodeEntityProcessing, "compute contribution of entity %v", entity.Name, err)
	}
	if err = b.artifact.AppendContribution(entity.Name, data); err != nil {
		return NewBatchError(ErrCodeEntityProcessing, "write contribution of entity %v", entity.Name, err)
	}
	if err = b.actx.RemoveEntity(entity.Name); err != nil {
		return NewBatchError(ErrCodeEntityProcessing, "remove entity %v", entity.Name, err)
	}
	return nil
}

//Finish closes the artifact, then compresses, checksums and publishes it as configured.
//A compression failure is recorded on the execution and does not fail the build.
func (b *ArtifactBuilder) Finish(ctx context.Context) BatchError {
	if b.failed != nil {
		return b.failed
	}
	switch b.state {
	case Uninitialized:
		return NewBatchError(ErrCodeArtifactInit, "artifact %v is not initialized", b.cfg.OutputPath)
	case Done:
		return NewBatchError(ErrCodeInvalidArgument, "artifact %v is already finished", b.cfg.OutputPath)
	}
	if b.next != b.rng.Max {
		return NewBatchError(ErrCodeInvalidArgument, "artifact %v is missing entities from %v, range:%v", b.cfg.OutputPath, b.next, b.rng)
	}
	err := b.artifact.Close()
	if e := b.actx.Close(); err == nil {
		err = e
	}
	if err != nil {
		return b.fail(NewBatchError(ErrCodeGeneral, "close artifact %v", b.cfg.OutputPath, err))
	}
	b.transition(ctx, Done)

	outfile := b.cfg.OutputPath
	if b.cfg.Compress {
		gzName, err := file.GzipInPlace(outfile)
		if err != nil {
			b.execution.CompressError = err
			b.logger.Warn(ctx, "compress artifact failed, outfile:%v, err:%v", outfile, err)
		} else {
			outfile = gzName
		}
	}
	b.execution.OutputPath = outfile
	if b.cfg.Checksum != "" {
		fd := file.FileObjectModel{FileStore: &file.LocalFileSystem{}, FileName: outfile}
		if err = file.GetChecksumer(b.cfg.Checksum).Checksum(fd); err != nil {
			return b.fail(NewBatchError(ErrCodeGeneral, "checksum artifact %v", outfile, err))
		}
	}
	if b.publisher != nil {
		if be := b.publisher.Publish(ctx, outfile, b.cfg.Checksum); be != nil {
			return b.fail(be)
		}
	}
	return nil
}

//abandon releases the context and the artifact of a build that will not be finished, the partial artifact stays on disk
func (b *ArtifactBuilder) abandon() {
	if b.artifact != nil && b.state != Done {
		b.artifact.Close()
	}
	if b.actx != nil && b.state != Done {
		b.actx.Close()
	}
}

//Run initializes the artifact, accumulates every entity of the range and finishes it.
//Cancellation of ctx is checked between entities.
func (b *ArtifactBuilder) Run(ctx context.Context) (err BatchError) {
	ctx = logs.WithFields(ctx, "job", b.execution.Key)
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(ctx, "panic in artifact build, outfile:%v, err:%v, stack:%v", b.cfg.OutputPath, r, string(debug.Stack()))
			err = b.fail(NewBatchError(ErrCodeGeneral, "panic in artifact build:%v", r))
		}
		if err != nil {
			b.abandon()
			b.logger.Error(ctx, "artifact build failed, outfile:%v, state:%v, entities:%v, err:%v", b.cfg.OutputPath, b.state, b.execution.EntityCount, err)
		}
		b.execution.finish(err)
		b.logger.Info(ctx, "artifact build finish, outfile:%v, status:%v, entities:%v, cost:%v", b.execution.OutputPath, b.execution.Status, b.execution.EntityCount, b.execution.Duration())
	}()
	b.execution.start()
	b.logger.Info(ctx, "artifact build start, outfile:%v, srcmdl:%v, range:%v", b.cfg.OutputPath, b.cfg.ModelFile, b.rng)
	if err = b.Initialize(ctx); err != nil {
		return err
	}
	for i := b.rng.Min; i < b.rng.Max; i++ {
		if e := ctx.Err(); e != nil {
			return b.fail(NewBatchError(ErrCodeStop, "build of %v cancelled before entity %v", b.cfg.OutputPath, i, e))
		}
		if err = b.Accumulate(ctx, i); err != nil {
			return err
		}
	}
	return b.Finish(ctx)
}
