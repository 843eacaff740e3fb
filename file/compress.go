package file

import (
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

//GzipSuffix suffix of compressed files
const GzipSuffix = ".gz"

//GzipInPlace replaces a local file by "<file>.gz" compressed at the best level and returns the new name.
//The original file is only removed once the compressed file is complete.
func GzipInPlace(fileName string) (string, error) {
	src, err := os.Open(fileName)
	if err != nil {
		return "", errors.Wrapf(err, "open file:%v", fileName)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return "", errors.Wrapf(err, "stat file:%v", fileName)
	}

	gzName := fileName + GzipSuffix
	dest, err := os.OpenFile(gzName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return "", errors.Wrapf(err, "create file:%v", gzName)
	}
	zw, err := gzip.NewWriterLevel(dest, gzip.BestCompression)
	if err != nil {
		dest.Close()
		os.Remove(gzName)
		return "", err
	}
	zw.Name = info.Name()
	zw.ModTime = info.ModTime()
	if _, err = io.Copy(zw, src); err == nil {
		err = zw.Close()
	}
	if e := dest.Close(); err == nil {
		err = e
	}
	if err != nil {
		os.Remove(gzName)
		return "", errors.Wrapf(err, "compress file:%v", fileName)
	}
	src.Close()
	if err = os.Remove(fileName); err != nil {
		return "", errors.Wrapf(err, "remove file:%v", fileName)
	}
	return gzName, nil
}

//OpenMaybeGzip opens a file of the storage, transparently decompressing names ending with ".gz"
func OpenMaybeGzip(fs FileStorage, fileName string) (io.ReadCloser, error) {
	r, err := fs.Open(fileName, "")
	if err != nil {
		return nil, err
	}
	if len(fileName) < len(GzipSuffix) || fileName[len(fileName)-len(GzipSuffix):] != GzipSuffix {
		return r, nil
	}
	zr, err := gzip.NewReader(r)
	if err != nil {
		r.Close()
		return nil, errors.Wrapf(err, "open gzip file:%v", fileName)
	}
	return &gzipReadCloser{zr: zr, under: r}, nil
}

type gzipReadCloser struct {
	zr    *gzip.Reader
	under io.ReadCloser
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.zr.Read(p)
}

func (g *gzipReadCloser) Close() error {
	err := g.zr.Close()
	if e := g.under.Close(); err == nil {
		err = e
	}
	return err
}
