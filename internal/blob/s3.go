package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Deleter removes stored objects referenced by URL. Deletions are best
// effort; callers log failures and continue.
type Deleter interface {
	Delete(ctx context.Context, objectURL string) error
}

// S3Deleter removes scenario images from the configured bucket.
type S3Deleter struct {
	client *s3.Client
	bucket string
}

func NewS3Deleter(ctx context.Context, bucket string) (*S3Deleter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Deleter{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (d *S3Deleter) Delete(ctx context.Context, objectURL string) error {
	key, err := objectKey(objectURL)
	if err != nil {
		return err
	}
	_, err = d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// objectKey extracts the object key from a stored image URL. Both
// virtual-hosted (bucket.s3.region.amazonaws.com/key) and path-style
// (host/bucket/key) URLs resolve to the trailing path.
func objectKey(objectURL string) (string, error) {
	u, err := url.Parse(objectURL)
	if err != nil {
		return "", fmt.Errorf("parse object url: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("object url %q has no key", objectURL)
	}
	return key, nil
}
