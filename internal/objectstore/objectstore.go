// Package objectstore reads and archives extracted document text in an
// S3-compatible bucket (AWS S3 or MinIO).
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MaxTextBytes caps the size of document text accepted from any source.
const MaxTextBytes = 32 << 20

var (
	// ErrNotFound is returned when the object key does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrTooLarge is returned when text exceeds MaxTextBytes.
	ErrTooLarge = fmt.Errorf("text exceeds %d bytes", MaxTextBytes)
)

// TextKey is the object key under which a document's text is archived.
func TextKey(documentID string) string {
	return "texts/" + documentID + ".txt"
}

// ReadText reads all of r as document text. Input longer than MaxTextBytes
// is rejected with ErrTooLarge rather than truncated.
func ReadText(r io.Reader) (string, error) {
	return readText(r, MaxTextBytes)
}

func readText(r io.Reader, limit int64) (string, error) {
	var b strings.Builder
	n, err := io.Copy(&b, io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if n > limit {
		return "", ErrTooLarge
	}
	return b.String(), nil
}

// Config holds connection settings. Endpoint is only needed for
// S3-compatible servers and switches the client to path-style addressing.
// Empty keys fall back to the default AWS credential chain.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type Store struct {
	client *s3.Client
	bucket string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// GetText returns the object at key as a string. Objects larger than
// MaxTextBytes fail with ErrTooLarge.
func (s *Store) GetText(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", fmt.Errorf("get %s: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	text, err := ReadText(out.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return text, nil
}

// PutText stores text under key, replacing any existing object.
func (s *Store) PutText(ctx context.Context, key, text string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
