package srcbatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/chararch/srcbatch/file"
)

func TestJobTable_WriteRead(t *testing.T) {
	g := newTestGenerator(t, testDataset, nil, Options{Compress: true})
	table, err := g.Generate(map[string]*Catalog{"3FGL": makeCatalog("3FGL", 1200)}, testBins, 500)
	assert.Equal(t, nil, err)

	fs := &file.LocalFileSystem{}
	fileName := filepath.Join(t.TempDir(), "jobs", "table.json")
	assert.Equal(t, nil, WriteJobTable(fs, fileName, table, file.MD5))
	_, e := os.Stat(fileName + ".md5")
	assert.Equal(t, nil, e)
	lines, _ := file.Count(file.FileObjectModel{FileStore: fs, FileName: fileName})
	assert.Equal(t, int64(6), lines)

	read, err := ReadJobTable(fs, fileName, file.MD5)
	assert.Equal(t, nil, err)
	assert.Equal(t, table, read)

	read, err = ReadJobTable(fs, fileName, "")
	assert.Equal(t, nil, err)
	assert.Equal(t, 6, len(read))
}

func TestJobTable_ChecksumMismatch(t *testing.T) {
	fs := &file.LocalFileSystem{}
	fileName := filepath.Join(t.TempDir(), "table.json")
	assert.Equal(t, nil, WriteJobTable(fs, fileName, testTable(), file.SHA256))

	f, _ := os.OpenFile(fileName, os.O_APPEND|os.O_WRONLY, 0644)
	f.WriteString("{\"key\":\"extra\"}\n")
	f.Close()

	_, err := ReadJobTable(fs, fileName, file.SHA256)
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
	_, err = ReadJobTable(fs, fileName, "CRC")
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
	assert.Equal(t, ErrCodeInvalidArgument, WriteJobTable(fs, fileName, testTable(), "CRC").Code())
}

func TestJobTable_DuplicateKey(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "table.json")
	line := "{\"key\":\"E0_PSF3_3FGL_00\",\"outfile\":\"o.fits\"}\n"
	assert.Equal(t, nil, os.WriteFile(fileName, []byte(line+line), 0644))
	_, err := ReadJobTable(&file.LocalFileSystem{}, fileName, "")
	assert.Equal(t, ErrCodeDuplicateJob, err.Code())
}
