package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

//S3Config construction parameters of an S3FileSystem, empty credentials fall back to the default chain
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

//S3FileSystem stores files as objects of one bucket, file names map to keys under Prefix
type S3FileSystem struct {
	client *s3.Client
	bucket string
	prefix string
}

//NewS3FileSystem creates an S3FileSystem, optFns are applied to the client options after cfg
func NewS3FileSystem(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3FileSystem, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})
	return &S3FileSystem{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (fs *S3FileSystem) String() string {
	return fmt.Sprintf("s3://%s/%s", fs.bucket, fs.prefix)
}

func (fs *S3FileSystem) key(fileName string) string {
	name := strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(fileName, "\\", "/")), "/")
	if fs.prefix == "" {
		return name
	}
	return fs.prefix + "/" + name
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

func (fs *S3FileSystem) Exists(fileName string) (bool, error) {
	key := fs.key(fileName)
	_, err := fs.client.HeadObject(context.Background(), &s3.HeadObjectInput{Bucket: &fs.bucket, Key: &key})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (fs *S3FileSystem) Open(fileName, encoding string) (io.ReadCloser, error) {
	key := fs.key(fileName)
	out, err := fs.client.GetObject(context.Background(), &s3.GetObjectInput{Bucket: &fs.bucket, Key: &key})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

//s3Writer buffers the object and uploads it on Close
type s3Writer struct {
	fs  *S3FileSystem
	key string
	buf bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	_, err := w.fs.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: &w.fs.bucket,
		Key:    &w.key,
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	return errors.Wrapf(err, "put object:%v", w.key)
}

func (fs *S3FileSystem) Create(fileName, encoding string) (io.WriteCloser, error) {
	return &s3Writer{fs: fs, key: fs.key(fileName)}, nil
}
