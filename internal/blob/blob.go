// Package blob moves captured selfies out of point records into object
// storage.
package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrNotDataURL = errors.New("not a base64 data url")

// Store saves an object and returns the URL it can be fetched from.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ParseDataURL splits a base64 data URL into its media type and payload.
func ParseDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	return mediaType, data, nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ""
}

// Offload stores the selfie of recordID when it is still inline and returns
// the reference to keep on the record. References that are already URLs are
// returned unchanged.
func Offload(ctx context.Context, store Store, recordID, ref string) (string, error) {
	if store == nil || !strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	contentType, data, err := ParseDataURL(ref)
	if err != nil {
		return "", err
	}
	url, err := store.Put(ctx, recordID+extension(contentType), contentType, data)
	if err != nil {
		return "", fmt.Errorf("put selfie: %w", err)
	}
	return url, nil
}

type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Store(ctx context.Context, bucket, prefix string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	key = s.prefix + key
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s to bucket %s: %w", key, s.bucket, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
