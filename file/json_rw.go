package file

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"reflect"

	"github.com/pkg/errors"
)

type jsonReader struct {
	fd         FileObjectModel
	reader     io.ReadCloser
	bufReader  *bufio.Reader
	structType reflect.Type
}
type jsonWriter struct {
	fd        FileObjectModel
	writer    io.WriteCloser
	bufWriter *bufio.Writer
}

//jsonFileItemReader reads one JSON object per line
type jsonFileItemReader struct {
}

func (r *jsonFileItemReader) Open(fd FileObjectModel) (interface{}, error) {
	if fd.Type != JSON {
		return nil, errors.New("file type doesn't match jsonFileItemReader")
	}
	tp, err := fd.ItemType()
	if err != nil {
		return nil, err
	}
	reader, err := fd.FileStore.Open(fd.FileName, fd.Encoding)
	if err != nil {
		return nil, err
	}
	return &jsonReader{fd, reader, bufio.NewReader(reader), tp}, nil
}
func (r *jsonFileItemReader) Close(handle interface{}) error {
	fdr := handle.(*jsonReader)
	return fdr.reader.Close()
}

//ReadItem returns a pointer to a new item, or nil at the end of the file
func (r *jsonFileItemReader) ReadItem(handle interface{}) (interface{}, error) {
	fdr := handle.(*jsonReader)
	for {
		line, err := fdr.bufReader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}
		val := reflect.New(fdr.structType)
		if err = json.Unmarshal(line, val.Interface()); err != nil {
			return nil, errors.Wrapf(err, "decode line of %v", fdr.fd.String())
		}
		return val.Interface(), nil
	}
}
func (r *jsonFileItemReader) SkipTo(handle interface{}, pos int64) error {
	fdr := handle.(*jsonReader)
	for i := int64(0); i < pos; i++ {
		_, err := fdr.bufReader.ReadBytes('\n')
		if err != nil {
			return err
		}
	}
	return nil
}
func (r *jsonFileItemReader) Count(fd FileObjectModel) (int64, error) {
	return Count(fd)
}

//jsonFileItemWriter writes one JSON object per line
type jsonFileItemWriter struct {
}

func (r *jsonFileItemWriter) Open(fd FileObjectModel) (interface{}, error) {
	if fd.Type != JSON {
		return nil, errors.New("file type doesn't match jsonFileItemWriter")
	}
	writer, err := fd.FileStore.Create(fd.FileName, fd.Encoding)
	if err != nil {
		return nil, err
	}
	return &jsonWriter{fd, writer, bufio.NewWriter(writer)}, nil
}
func (r *jsonFileItemWriter) Close(handle interface{}) error {
	fdw := handle.(*jsonWriter)
	err := fdw.bufWriter.Flush()
	if e := fdw.writer.Close(); err == nil {
		err = e
	}
	return err
}
func (r *jsonFileItemWriter) WriteItem(handle interface{}, item interface{}) error {
	fdw := handle.(*jsonWriter)
	buf, err := json.Marshal(item)
	if err != nil {
		return err
	}
	if _, err = fdw.bufWriter.Write(buf); err != nil {
		return err
	}
	return fdw.bufWriter.WriteByte('\n')
}
