package file

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bmizerany/assert"
)

// fakeS3 serves Head/Get/Put of path-style object urls from memory
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	empty := io.NopCloser(bytes.NewReader(nil))
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return &http.Response{StatusCode: http.StatusNotFound, Body: empty, Header: http.Header{}}, nil
		}
		resp := &http.Response{StatusCode: http.StatusOK, Body: empty, Header: http.Header{
			"Content-Length": {strconv.Itoa(len(body))},
		}}
		if req.Method == http.MethodGet {
			resp.Body = io.NopCloser(bytes.NewReader(body))
		}
		return resp, nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.objects[key] = body
		return &http.Response{StatusCode: http.StatusOK, Body: empty, Header: http.Header{"ETag": {"\"etag\""}}}, nil
	}
	return &http.Response{StatusCode: http.StatusNotImplemented, Body: empty, Header: http.Header{}}, nil
}

// decodeChunked unwraps a single-chunk aws-chunked payload
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 || parts[2] != "0" {
		return nil, false
	}
	size, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newTestS3(t *testing.T) (*S3FileSystem, *fakeS3) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	fs, err := NewS3FileSystem(context.Background(), S3Config{
		Bucket:          "srcmaps",
		Prefix:          "/runs/",
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	assert.Equal(t, nil, err)
	return fs, fake
}

func TestS3FileSystem(t *testing.T) {
	fs, fake := newTestS3(t)
	assert.Equal(t, "s3://srcmaps/runs", fs.String())

	ok, err := fs.Exists("srcmaps/a.fits")
	assert.Equal(t, nil, err)
	assert.T(t, !ok)

	w, err := fs.Create("srcmaps/a.fits", "")
	assert.Equal(t, nil, err)
	_, err = w.Write([]byte("ENTITY a 1\nx\n"))
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, w.Close())
	assert.Equal(t, "ENTITY a 1\nx\n", string(fake.objects["runs/srcmaps/a.fits"]))

	ok, err = fs.Exists("/srcmaps/a.fits")
	assert.Equal(t, nil, err)
	assert.T(t, ok)

	r, err := fs.Open("srcmaps/a.fits", "")
	assert.Equal(t, nil, err)
	data, _ := io.ReadAll(r)
	r.Close()
	assert.Equal(t, "ENTITY a 1\nx\n", string(data))

	_, err = fs.Open("srcmaps/absent.fits", "")
	assert.NotEqual(t, nil, err)
}

func TestNewS3FileSystem_NoBucket(t *testing.T) {
	_, err := NewS3FileSystem(context.Background(), S3Config{})
	assert.NotEqual(t, nil, err)
}
