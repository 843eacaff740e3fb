package file

import (
	"bufio"
	"fmt"
	"io"
	"reflect"

	"github.com/pkg/errors"
)

const (
	LocalFileStorage = "LocalFile"
	FTPFileStorage   = "FTP"
	S3FileStorage    = "S3"
)

const (
	JSON = "json"
)

const (
	OKFlag = "OK"
	MD5    = "MD5"
	SHA1   = "SHA1"
	SHA256 = "SHA256"
	SHA512 = "SHA512"
)

//FileObjectModel a file on some storage and how its items are encoded
type FileObjectModel struct {
	FileStore     FileStorage
	FileName      string
	Type          string
	Encoding      string
	Checksum      string
	ItemPrototype interface{}
}

func (fd *FileObjectModel) String() string {
	return fmt.Sprintf("%s://%s", fd.FileStore, fd.FileName)
}

func (fd *FileObjectModel) ItemType() (reflect.Type, error) {
	prot := fd.ItemPrototype
	tp := reflect.TypeOf(prot)
	if tp == nil {
		return nil, errors.New("ItemPrototype is nil for " + fd.String())
	}
	if tp.Kind() == reflect.Ptr {
		tp = tp.Elem()
	}
	if tp.Kind() != reflect.Struct {
		return nil, errors.New("the underlying type of ItemPrototype is not struct for " + fd.String())
	}
	return tp, nil
}

type FileStorage interface {
	Exists(fileName string) (ok bool, err error)
	Open(fileName, encoding string) (reader io.ReadCloser, err error)
	Create(fileName, encoding string) (writer io.WriteCloser, err error)
}

type FileItemReader interface {
	Open(fd FileObjectModel) (handle interface{}, err error)
	Close(handle interface{}) error
	ReadItem(handle interface{}) (interface{}, error)
	SkipTo(handle interface{}, pos int64) error
	Count(fd FileObjectModel) (int64, error)
}

type FileItemWriter interface {
	Open(fd FileObjectModel) (handle interface{}, err error)
	Close(handle interface{}) error
	WriteItem(handle interface{}, data interface{}) error
}

type ChecksumVerifier interface {
	Verify(fd FileObjectModel) (bool, error)
}

type ChecksumFlusher interface {
	Checksum(fd FileObjectModel) error
}

type Checksumer interface {
	ChecksumVerifier
	ChecksumFlusher
}

//Count counts the lines of a file
func Count(fd FileObjectModel) (int64, error) {
	fs := fd.FileStore
	reader, err := fs.Open(fd.FileName, fd.Encoding)
	if err != nil {
		return -1, err
	}
	defer reader.Close()
	bufReader := bufio.NewReader(reader)
	count := int64(0)
	for {
		line, err := bufReader.ReadString('\n')
		if err != nil && err != io.EOF {
			return -1, err
		}
		if err == io.EOF {
			if line != "" {
				count++
			}
			return count, nil
		}
		count++
	}
}

//Copy copies a file from one storage to another
func Copy(src FileObjectModel, dest FileObjectModel) error {
	reader, err := src.FileStore.Open(src.FileName, src.Encoding)
	if err != nil {
		return errors.Wrapf(err, "open src file:%v", src.String())
	}
	defer reader.Close()
	writer, err := dest.FileStore.Create(dest.FileName, dest.Encoding)
	if err != nil {
		return errors.Wrapf(err, "create dest file:%v", dest.String())
	}
	if _, err = io.Copy(writer, reader); err != nil {
		writer.Close()
		return errors.Wrapf(err, "copy %v to %v", src.String(), dest.String())
	}
	return writer.Close()
}

// GetFileItemReader get FileItemReader by type
func GetFileItemReader(ftype string) FileItemReader {
	switch ftype {
	case JSON:
		return &jsonFileItemReader{}
	}
	return nil
}

// GetFileItemWriter get FileItemWriter by type
func GetFileItemWriter(ftype string) FileItemWriter {
	switch ftype {
	case JSON:
		return &jsonFileItemWriter{}
	}
	return nil
}

// GetChecksumer get Checksumer by type
func GetChecksumer(key string) Checksumer {
	if key == OKFlag {
		return &OKFlagChecksumer{}
	}
	if ch := newDigestChecksumer(key); ch != nil {
		return ch
	}
	return nil
}
