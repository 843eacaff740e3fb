package srcbatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/chararch/srcbatch/file"
	"github.com/chararch/srcbatch/status"
)

type fakeDispatcher struct {
	fail       map[string]bool
	dispatched [][]string
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, run string, table JobTable) (map[string]*JobExecution, BatchError) {
	d.dispatched = append(d.dispatched, table.Keys())
	executions := make(map[string]*JobExecution)
	for _, key := range table.Keys() {
		e := newJobExecution(run, key)
		e.start()
		if d.fail[key] {
			e.finish(NewBatchError(ErrCodeEntityProcessing, "add entity failed"))
		} else {
			e.EntityCount = int64(table[key].Range.Len())
			e.finish(nil)
		}
		executions[key] = e
	}
	return executions, nil
}

//writeSGInputs writes the binning, dataset and library files of a srcmaps-catalog-sg run into dir
func writeSGInputs(t *testing.T, dir string, nsrc int) map[string]interface{} {
	files := map[string]string{
		"comp.yaml":          "E0:\n  zmax: 100\n  psf_types:\n    PSF3:\n      hpx_order: 6\n",
		"data.yaml":          "data_ver: P305\nevclass: P8R3_SOURCE\nirf_ver: V2\n",
		"library.yaml":       "3FGL:\n  catalog_file: catalogs/3FGL.xml\n  split:\n    crab: ['*J0534*']\n",
		"catalogs/3FGL.xml": testCatalogXML,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		assert.Equal(t, nil, os.MkdirAll(filepath.Dir(path), 0755))
		assert.Equal(t, nil, os.WriteFile(path, []byte(content), 0644))
	}
	return map[string]interface{}{
		"comp":     filepath.Join(dir, "comp.yaml"),
		"data":     filepath.Join(dir, "data.yaml"),
		"library":  filepath.Join(dir, "library.yaml"),
		"nsrc":     nsrc,
		"make_xml": true,
		"gzip":     true,
	}
}

func TestOperator_SubmitAndRestart(t *testing.T) {
	ctx := context.Background()
	params := writeSGInputs(t, t.TempDir(), 2)
	repo := NewMemoryRepository()
	d := &fakeDispatcher{fail: map[string]bool{"E0_PSF3_3FGL_01": true}}
	op := NewOperator(DefaultRegistry(), repo, d)

	report, err := op.Submit(ctx, "run1", CatalogSGJobType, params)
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"E0_PSF3_3FGL_00", "E0_PSF3_3FGL_01"}, report.Table.Keys())
	assert.Equal(t, []string{"E0_PSF3_3FGL_01"}, report.Unfinished())
	assert.Equal(t, 1, report.Counts()[status.FAILED])
	saved, _ := repo.FindExecutions(ctx, "run1")
	assert.Equal(t, 2, len(saved))

	_, err = op.Submit(ctx, "run1", CatalogSGJobType, params)
	assert.Equal(t, ErrCodeDuplicateJob, err.Code())

	d.fail = nil
	report, err = op.Restart(ctx, "run1")
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"E0_PSF3_3FGL_01"}, d.dispatched[1])
	assert.Equal(t, 0, len(report.Unfinished()))
	assert.Equal(t, 2, report.Counts()[status.COMPLETED])

	report, err = op.Restart(ctx, "run1")
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(d.dispatched))
	assert.Equal(t, 0, len(report.Unfinished()))
}

func TestOperator_Errors(t *testing.T) {
	ctx := context.Background()
	op := NewOperator(DefaultRegistry(), nil, &fakeDispatcher{})
	_, err := op.Restart(ctx, "absent")
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
	_, err = op.Submit(ctx, "run1", "unknown", nil)
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
	_, err = op.Submit(ctx, "", CatalogSGJobType, nil)
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())

	dir := t.TempDir()
	params := writeSGInputs(t, dir, 2)
	os.WriteFile(filepath.Join(dir, "comp.yaml"), []byte("E0:\n  catalogs: [4FGL]\n  psf_types:\n    PSF3: {}\n"), 0644)
	repo := NewMemoryRepository()
	op = NewOperator(DefaultRegistry(), repo, &fakeDispatcher{})
	_, err = op.Submit(ctx, "run2", CatalogSGJobType, params)
	assert.Equal(t, ErrCodeMissingCatalog, err.Code())
	table, _ := repo.FindTable(ctx, "run2")
	assert.T(t, table == nil)

	op = NewOperator(DefaultRegistry(), nil, nil)
	table, err = op.Generate(ctx, "run3", CatalogSGJobType, writeSGInputs(t, t.TempDir(), 500))
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(table))
	_, err = op.Restart(ctx, "run3")
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
}

func TestOperator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	params := writeSGInputs(t, dir, 2)
	dispatcher := newTestDispatcher(t, 2)
	op := NewOperator(DefaultRegistry(), nil, dispatcher)

	table, err := op.Generate(ctx, "run1", CatalogSGJobType, params)
	assert.Equal(t, nil, err)
	_, statErr := os.Stat(filepath.Join(dir, "srcmdls", "3FGL.xml"))
	assert.Equal(t, nil, statErr)
	crab, cerr := LoadCatalogFile(filepath.Join(dir, "srcmdls", "3FGL_crab.xml"))
	assert.Equal(t, nil, cerr)
	assert.Equal(t, 2, crab.Len())
	for _, d := range table {
		assert.Equal(t, nil, os.MkdirAll(filepath.Dir(d.Inputs.CountsMap), 0755))
		assert.Equal(t, nil, os.WriteFile(d.Inputs.CountsMap, []byte(testCountsMap), 0644))
	}

	report, err := op.Restart(ctx, "run1")
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, report.Counts()[status.COMPLETED])
	last := report.Executions["E0_PSF3_3FGL_01"]
	assert.Equal(t, table["E0_PSF3_3FGL_01"].OutputPath+file.GzipSuffix, last.OutputPath)
	assert.Equal(t, int64(1), last.EntityCount)

	r, _ := file.OpenMaybeGzip(&file.LocalFileSystem{}, last.OutputPath)
	header, contributions, rerr := file.ReadArtifact(r)
	r.Close()
	assert.Equal(t, nil, rerr)
	irfs, _ := header.Get(IRFsKeyword)
	assert.Equal(t, "P8R3_SOURCE_V2", irfs)
	assert.Equal(t, "3FGL J0534.5+2200", contributions[0].Name)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{CatalogSGJobType}, r.JobTypes())
	assert.NotEqual(t, nil, r.Register(CatalogSGJobType, NewCatalogSG))
	assert.NotEqual(t, nil, r.Register("", NewCatalogSG))

	_, err := r.New(CatalogSGJobType, map[string]interface{}{"comp": "comp.yaml"})
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
	_, err = r.New(CatalogSGJobType, map[string]interface{}{"comp": "c", "data": "d", "library": "l", "nsrc": -1})
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
	maker, err := r.New(CatalogSGJobType, map[string]interface{}{"comp": "c", "data": "d", "library": "l", "nsrc": 100, "gzip": true})
	assert.Equal(t, nil, err)
	assert.Equal(t, CatalogSGParams{Comp: "c", Data: "d", Library: "l", Nsrc: 100, Compress: true}, maker.(*CatalogSG).Params())
}

func TestNewCatalogSG_Nsrc(t *testing.T) {
	_, err := NewCatalogSG(map[string]interface{}{"comp": "c", "data": "d", "library": "l", "nsrc": 0})
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())

	maker, err := NewCatalogSG(map[string]interface{}{"comp": "c", "data": "d", "library": "l"})
	assert.Equal(t, nil, err)
	assert.Equal(t, DefaultChunkSize, maker.(*CatalogSG).Params().Nsrc)

	op := NewOperator(DefaultRegistry(), nil, nil)
	_, err = op.Generate(context.Background(), "run0", CatalogSGJobType, writeSGInputs(t, t.TempDir(), 0))
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
}
