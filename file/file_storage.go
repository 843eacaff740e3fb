package file

import (
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/pkg/errors"
)

type LocalFileSystem struct {
}

func (fs *LocalFileSystem) String() string {
	return "file"
}

func (fs *LocalFileSystem) Exists(fileName string) (bool, error) {
	_, err := os.Stat(fileName)
	if err != nil && os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
func (fs *LocalFileSystem) Open(fileName, encoding string) (io.ReadCloser, error) {
	file, err := os.Open(fileName)
	return file, err
}
func (fs *LocalFileSystem) Create(fileName, encoding string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		return nil, err
	}
	return os.Create(fileName)
}

type FTPFileSystem struct {
	Host        string
	Port        int
	User        string
	Password    string
	ConnTimeout time.Duration
}

func (fs *FTPFileSystem) String() string {
	return fmt.Sprintf("ftp://%s:%d", fs.Host, fs.Port)
}

func (fs *FTPFileSystem) connect() (*ftp.ServerConn, error) {
	c, err := ftp.DialTimeout(fmt.Sprintf("%s:%d", fs.Host, fs.Port), fs.ConnTimeout)
	if err != nil {
		return nil, err
	}

	err = c.Login(fs.User, fs.Password)
	return c, err
}

func (fs *FTPFileSystem) Exists(fileName string) (bool, error) {
	c, err := fs.connect()
	if c != nil {
		defer c.Quit()
	}
	if err != nil {
		return false, err
	}

	_, err = c.FileSize(fileName)
	if err == nil {
		return true, nil
	}
	if e, ok := err.(*textproto.Error); ok && e.Code == ftp.StatusFileUnavailable {
		return false, nil
	}
	return false, err
}

type ftpReader struct {
	conn *ftp.ServerConn
	resp *ftp.Response
}

func (r *ftpReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpReader) Close() error {
	err := r.resp.Close()
	if e := r.conn.Quit(); err == nil {
		err = e
	}
	return err
}

func (fs *FTPFileSystem) Open(fileName, encoding string) (io.ReadCloser, error) {
	c, err := fs.connect()
	if err != nil {
		if c != nil {
			c.Quit()
		}
		return nil, err
	}
	r, err := c.Retr(fileName)
	if err != nil {
		c.Quit()
		return nil, err
	}
	return &ftpReader{conn: c, resp: r}, nil
}

//ftpWriter streams into a STOR command running in the background, Close waits for the upload to finish
type ftpWriter struct {
	conn *ftp.ServerConn
	pw   *io.PipeWriter
	done chan error
}

func (w *ftpWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *ftpWriter) Close() error {
	w.pw.Close()
	err := <-w.done
	if e := w.conn.Quit(); err == nil {
		err = e
	}
	return err
}

func (fs *FTPFileSystem) Create(fileName, encoding string) (io.WriteCloser, error) {
	c, err := fs.connect()
	if err != nil {
		if c != nil {
			c.Quit()
		}
		return nil, err
	}
	if dir := filepath.ToSlash(filepath.Dir(fileName)); dir != "." && dir != "/" {
		//MakeDir fails when the directory exists already
		_ = c.MakeDir(dir)
	}
	pr, pw := io.Pipe()
	w := &ftpWriter{conn: c, pw: pw, done: make(chan error, 1)}
	go func() {
		err := c.Stor(fileName, pr)
		if err != nil {
			pr.CloseWithError(err)
		}
		w.done <- errors.Wrapf(err, "stor file:%v", fileName)
	}()
	return w, nil
}
