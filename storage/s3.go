package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Presigner signs GET requests for private objects.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store keeps objects in a single S3 bucket and addresses them with
// virtual-hosted style URLs.
type S3Store struct {
	client    S3API
	presigner S3Presigner
	bucket    string
	region    string
}

// NewS3Store creates a store for bucket using the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing S3 bucket")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, region), nil
}

// NewS3StoreWithClient wraps an existing client. A real *s3.Client also
// gets a presigner.
func NewS3StoreWithClient(client S3API, bucket, region string) *S3Store {
	store := &S3Store{client: client, bucket: bucket, region: region}
	if c, ok := client.(*s3.Client); ok {
		store.presigner = s3.NewPresignClient(c)
	}
	return store
}

// WithPresigner replaces the presigner.
func (s *S3Store) WithPresigner(p S3Presigner) *S3Store {
	s.presigner = p
	return s
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("error getting s3 object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading s3 object %s: %w", key, err)
	}
	return data, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("error putting s3 object %s: %w", key, err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// KeyFromURL accepts any URL on an amazonaws.com host, presigned or not.
func (s *S3Store) KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid object URL %q: %w", rawURL, err)
	}
	if !strings.HasSuffix(u.Hostname(), ".amazonaws.com") {
		return "", fmt.Errorf("not an S3 URL: %q", rawURL)
	}
	key := strings.TrimPrefix(u.Path, "/")
	// path-style URLs carry the bucket as the first segment
	if strings.HasPrefix(u.Hostname(), "s3.") || strings.HasPrefix(u.Hostname(), "s3-") {
		key = strings.TrimPrefix(key, s.bucket+"/")
	}
	if key == "" {
		return "", fmt.Errorf("no object key in URL %q", rawURL)
	}
	return key, nil
}

// PresignURL signs a GET for key valid for ttl.
func (s *S3Store) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.presigner == nil {
		return "", fmt.Errorf("s3 store has no presigner")
	}
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("error presigning s3 object %s: %w", key, err)
	}
	return req.URL, nil
}
