// Package storage reads and writes documents at local paths, stdio or S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Stdio is the location for stdin on read and stdout on write
const Stdio = "-"

var ErrInvalidLocation = errors.New("invalid location")

// S3API is the part of the S3 client the store uses
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store resolves locations. The S3 client is built from the default AWS
// config the first time an s3:// location is used unless one is injected.
type Store struct {
	Stdin  io.Reader
	Stdout io.Writer

	mu     sync.Mutex
	client S3API
}

// New returns a store bound to the process stdio
func New() *Store {
	return &Store{Stdin: os.Stdin, Stdout: os.Stdout}
}

// NewWithClient returns a store that uses client for s3:// locations
func NewWithClient(client S3API) *Store {
	s := New()
	s.client = client
	return s
}

// Location is a parsed s3 URL
type Location struct {
	Bucket string
	Key    string
}

// ParseS3 parses s3://bucket/key. ok is false for anything else.
func ParseS3(loc string) (Location, bool, error) {
	if !strings.HasPrefix(loc, "s3://") {
		return Location{}, false, nil
	}
	parsed, err := url.Parse(loc)
	if err != nil {
		return Location{}, true, fmt.Errorf("%w %q: %w", ErrInvalidLocation, loc, err)
	}
	l := Location{
		Bucket: parsed.Host,
		Key:    strings.TrimPrefix(parsed.Path, "/"),
	}
	if l.Bucket == "" || l.Key == "" {
		return Location{}, true, fmt.Errorf("%w %q: bucket and key are required", ErrInvalidLocation, loc)
	}
	return l, true, nil
}

// Read returns the full contents at loc
func (s *Store) Read(ctx context.Context, loc string) ([]byte, error) {
	if loc == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidLocation)
	}
	if loc == Stdio {
		data, err := io.ReadAll(s.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	l, isS3, err := ParseS3(loc)
	if err != nil {
		return nil, err
	}
	if !isS3 {
		data, err := os.ReadFile(loc)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", loc, err)
		}
		return data, nil
	}

	client, err := s.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.Bucket),
		Key:    aws.String(l.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", loc, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", loc, err)
	}
	return data, nil
}

// Write stores data at loc, creating local parent directories as needed
func (s *Store) Write(ctx context.Context, loc string, data []byte, contentType string) error {
	if loc == "" {
		return fmt.Errorf("%w: empty", ErrInvalidLocation)
	}
	if loc == Stdio {
		if _, err := s.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write stdout: %w", err)
		}
		return nil
	}

	l, isS3, err := ParseS3(loc)
	if err != nil {
		return err
	}
	if !isS3 {
		if dir := filepath.Dir(loc); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(loc, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", loc, err)
		}
		return nil
	}

	client, err := s.s3Client(ctx)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(l.Bucket),
		Key:           aws.String(l.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put %s: %w", loc, err)
	}
	return nil
}

func (s *Store) s3Client(ctx context.Context) (S3API, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s.client = s3.NewFromConfig(cfg)
	return s.client, nil
}
