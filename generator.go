package srcbatch

import (
	"context"
	"sort"

	"github.com/chararch/srcbatch/util"
)

//Options options of the catalog job generator
type Options struct {
	//ChunkSize number of catalog entities per job
	ChunkSize int
	//MakeXML write the catalog and split model files before generating jobs
	MakeXML bool
	//Compress gzip the artifacts once built
	Compress bool
}

//Validate checks the options, a zero ChunkSize is the unset value and becomes DefaultChunkSize
func (o *Options) Validate() BatchError {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkSize < 0 {
		return NewBatchError(ErrCodeInvalidArgument, "chunk size must be positive, chunkSize:%v", o.ChunkSize)
	}
	return nil
}

//CatalogJobGenerator turns catalogs and analysis bins into a job table
type CatalogJobGenerator struct {
	names   *NameFactory
	library Library
	opts    Options
}

//NewCatalogJobGenerator creates a generator, library may be nil when no split model files are wanted
func NewCatalogJobGenerator(names *NameFactory, library Library, opts Options) (*CatalogJobGenerator, BatchError) {
	if names == nil {
		return nil, NewBatchError(ErrCodeInvalidArgument, "name factory must not be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &CatalogJobGenerator{names: names, library: library, opts: opts}, nil
}

//Options the validated options of the generator
func (g *CatalogJobGenerator) Options() Options {
	return g.opts
}

//Generate builds one job per (bin, catalog, index range). No table is returned on error.
func (g *CatalogJobGenerator) Generate(catalogs map[string]*Catalog, bins []AnalysisBin, chunkSize int) (JobTable, BatchError) {
	if chunkSize <= 0 {
		return nil, NewBatchError(ErrCodeInvalidArgument, "chunk size must be positive, chunkSize:%v", chunkSize)
	}
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, bin := range bins {
		for _, ref := range bin.Catalogs {
			if _, ok := catalogs[ref]; !ok {
				return nil, NewBatchError(ErrCodeMissingCatalog, "bin %v references catalog %v which is not loaded", bin.Key(), ref)
			}
		}
	}
	if g.opts.MakeXML {
		if err := g.MakeXML(context.Background(), catalogs); err != nil {
			return nil, err
		}
	}

	table := make(JobTable)
	outputs := make(map[string]string)
	for _, name := range names {
		catalog := catalogs[name]
		ranges, err := Partition(catalog.Len(), chunkSize)
		if err != nil {
			return nil, err
		}
		for _, bin := range bins {
			if len(bin.Catalogs) > 0 && !util.In(name, bin.Catalogs...) {
				continue
			}
			for i, r := range ranges {
				paths, err := g.names.Resolve(bin, name, i)
				if err != nil {
					return nil, err
				}
				key := JobKey(bin, name, i)
				if _, ok := table[key]; ok {
					return nil, NewBatchError(ErrCodeDuplicateJob, "duplicate job key:%v", key)
				}
				if other, ok := outputs[paths.OutputPath]; ok {
					return nil, NewBatchError(ErrCodeDuplicateJob, "jobs %v and %v write the same output:%v", other, key, paths.OutputPath)
				}
				outputs[paths.OutputPath] = key
				table[key] = &JobDescriptor{
					Key:        key,
					BinKey:     bin.Key(),
					Catalog:    name,
					JobIndex:   i,
					Range:      r,
					Inputs:     paths.Inputs,
					ModelFile:  paths.ModelFile,
					OutputPath: paths.OutputPath,
					LogPath:    paths.LogPath,
					EvType:     bin.EvType,
					Compress:   g.opts.Compress,
				}
			}
		}
	}
	return table, nil
}

//MakeXML writes the model file of every catalog and of every split component declared in the library
func (g *CatalogJobGenerator) MakeXML(ctx context.Context, catalogs map[string]*Catalog) BatchError {
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		catalog := catalogs[name]
		path, err := g.names.CatalogModelFile(name)
		if err != nil {
			return NewBatchError(ErrCodeInvalidArgument, "resolve model file of catalog %v", name, err)
		}
		logger.Info(ctx, "%s : %06d", path, catalog.Len())
		if err = catalog.WriteModelFile(path); err != nil {
			return NewBatchError(ErrCodeGeneral, "write model file of catalog %v", name, err)
		}
	}
	for _, name := range names {
		entry, ok := g.library[name]
		if !ok {
			continue
		}
		components := make([]string, 0, len(entry.Split))
		for comp := range entry.Split {
			components = append(components, comp)
		}
		sort.Strings(components)
		for _, comp := range components {
			path, err := g.names.SplitModelFile(name, comp)
			if err != nil {
				return NewBatchError(ErrCodeInvalidArgument, "resolve model file of %v/%v", name, comp, err)
			}
			sub, be := catalogs[name].Split(name+"_"+comp, entry.Split[comp])
			if be != nil {
				return be
			}
			logger.Info(ctx, "%s : %06d", path, sub.Len())
			if err = sub.WriteModelFile(path); err != nil {
				return NewBatchError(ErrCodeGeneral, "write model file of %v/%v", name, comp, err)
			}
		}
	}
	return nil
}
