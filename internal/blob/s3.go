package blob

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	goerrors "github.com/goliatone/go-errors"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes objects to S3.
type Store struct {
	client S3API
}

// New creates a Store over client.
func New(client S3API) *Store {
	return &Store{client: client}
}

// NewFromConfig creates a Store with an S3 client built from cfg.
func NewFromConfig(cfg aws.Config) *Store {
	return New(s3.NewFromConfig(cfg))
}

// Put uploads body to bucket/key.
func (s *Store) Put(ctx context.Context, bucket, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		Body:          bytes.NewReader(body),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "s3: put object")
	}
	return nil
}
