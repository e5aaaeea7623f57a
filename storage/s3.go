package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const uploadTimeout = 2 * time.Minute

// PutObjectAPI is the subset of the S3 client used by S3Uploader.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an S3Uploader.
type S3Config struct {
	Bucket string
	// Prefix is prepended to the file's base name to form the object key.
	Prefix   string
	Region   string
	Endpoint string
}

// S3Uploader uploads output files to a bucket.
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Uploader builds an uploader from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, &StorageError{Op: "upload", Entity: "object", Err: ErrInvalidInput}
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3UploaderWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3UploaderWithClient wraps an existing client.
func NewS3UploaderWithClient(client PutObjectAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a local file.
func (u *S3Uploader) Key(localPath string) string {
	return path.Join(u.prefix, filepath.Base(localPath))
}

// Upload puts the file at localPath and returns its s3:// URL.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", &StorageError{Op: "upload", Entity: "file", ID: localPath, Err: err}
	}
	defer f.Close()

	key := u.Key(localPath)
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", &StorageError{Op: "upload", Entity: "object", ID: key, Err: err}
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
