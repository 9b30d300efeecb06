package qart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store keeps photon archives in a MinIO or S3 bucket.
type S3Store struct {
	client *minio.Client
	bucket string
	region string
}

type S3Config struct {
	Endpoint  string // host:port, e.g. "minio.local:9000"
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, ErrMisconfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &S3Store{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the bucket on first use. Losing a creation race to
// another client is fine.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return s.wrap("checking bucket", err)
	}
	if exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
		return nil
	}
	return s.wrap("creating bucket", err)
}

func (s *S3Store) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) (*Artifact, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, s.wrap("uploading "+key, err)
	}
	modified := info.LastModified
	if modified.IsZero() {
		modified = time.Now()
	}
	return &Artifact{
		Key:          info.Key,
		Bucket:       info.Bucket,
		Size:         info.Size,
		ContentType:  contentType,
		LastModified: modified,
		Metadata:     metadata,
	}, nil
}

// Download stats the object first so a missing key fails here rather than
// on the first read.
func (s *S3Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, s.wrap("reading "+key, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap("reading "+key, err)
	}
	return obj, nil
}

func (s *S3Store) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", s.wrap("presigning "+key, err)
	}
	return u.String(), nil
}

// List returns every object below prefix with its user metadata.
func (s *S3Store) List(ctx context.Context, prefix string) ([]*Artifact, error) {
	var out []*Artifact
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    true,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, s.wrap("listing "+prefix, obj.Err)
		}
		out = append(out, &Artifact{
			Key:          obj.Key,
			Bucket:       s.bucket,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
			Metadata:     userMetadata(obj.UserMetadata),
		})
	}
	return out, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	return s.wrap("removing "+key, s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}))
}

// DeletePrefix batch-removes every object below prefix.
func (s *S3Store) DeletePrefix(ctx context.Context, prefix string) error {
	keys := make(chan minio.ObjectInfo)
	var listErr error
	go func() {
		defer close(keys)
		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				listErr = obj.Err
				return
			}
			keys <- obj
		}
	}()

	var errs []error
	for res := range s.client.RemoveObjects(ctx, s.bucket, keys, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("%s: %w", res.ObjectName, res.Err))
	}
	if listErr != nil {
		errs = append(errs, listErr)
	}
	return s.wrap("removing "+prefix, errors.Join(errs...))
}

// wrap maps missing keys and buckets to ErrNotFound.
func (s *S3Store) wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s in %s: %w", what, s.bucket, ErrNotFound)
	}
	return fmt.Errorf("%s in %s: %w", what, s.bucket, err)
}

// userMetadata strips the X-Amz-Meta- prefix listings carry.
func userMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimPrefix(k, "X-Amz-Meta-"))] = v
	}
	return out
}

var _ Store = (*S3Store)(nil)
