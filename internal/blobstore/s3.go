// Package blobstore implements the BlobStore capability over an
// S3-compatible object store (AWS S3 or Cloudflare R2).
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wizziwig82/musiclib-ingest/internal/config"
)

// Store implements ingest.BlobStore over an S3-compatible bucket.
type Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// New builds a Store from resolved configuration. When cfg.S3Endpoint is
// set, the client is configured for path-style addressing, matching
// R2/MinIO-style deployments.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	var awsCfg aws.Config
	var err error

	if cfg.S3AccessKeyID != "" && cfg.S3SecretKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKeyID, cfg.S3SecretKey, "",
			)),
			awsconfig.WithRegion(cfg.S3Region),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.S3Bucket, baseURL: cfg.S3BaseURL}, nil
}

// Put uploads body under key with the given content type.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, mime string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if mime != "" {
		input.ContentType = aws.String(mime)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("putting object %s: %w", key, err)
	}
	return nil
}

// Delete removes a single key. Deleting a key that does not exist is not an
// error, matching the compensating-cleanup contract's "best-effort" policy.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

// DeleteMany removes multiple keys in a single batch request, falling back
// to no special handling for partial failures beyond what S3 reports; the
// caller logs anything returned here but never treats it as fatal.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
	}
	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		return fmt.Errorf("batch deleting objects: %w", err)
	}
	if len(out.Errors) > 0 {
		var msgs []string
		for _, e := range out.Errors {
			msgs = append(msgs, fmt.Sprintf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
		}
		return fmt.Errorf("partial batch delete failure: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Exists reports whether key is present in the bucket.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("checking object %s: %w", key, err)
	}
	return true, nil
}

// TestAccess verifies the configured bucket is reachable, for use at
// startup.
func (s *Store) TestAccess(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("accessing bucket %s: %w", s.bucket, err)
	}
	return nil
}

// PutAlbumArt stores cover art under the albums/artwork/<albumID>.<ext>
// key convention. The ingestion core itself never calls this — there is no
// artwork input in its data model — but a caller-side artwork feature can
// reuse this BlobStore without inventing a second key convention.
func (s *Store) PutAlbumArt(ctx context.Context, albumID, ext string, body io.Reader, mime string) error {
	return s.Put(ctx, albumArtKey(albumID, ext), body, mime)
}

// albumArtKey builds the albums/artwork/<albumID>.<ext> key, accepting ext
// with or without its leading dot.
func albumArtKey(albumID, ext string) string {
	return fmt.Sprintf("albums/artwork/%s.%s", albumID, strings.TrimPrefix(ext, "."))
}

// PublicURL returns a publicly-reachable URL for key when the store was
// configured with a base URL (e.g. an R2 public bucket domain); otherwise
// the empty string.
func (s *Store) PublicURL(key string) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(s.baseURL, "/"), key)
}
