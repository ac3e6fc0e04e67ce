package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	objects     map[string][]byte
	contentType map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.contentType[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestParseS3(t *testing.T) {
	tests := []struct {
		name    string
		loc     string
		want    Location
		isS3    bool
		wantErr bool
	}{
		{"local path", "scans/in.pdf", Location{}, false, false},
		{"stdio", "-", Location{}, false, false},
		{"bucket and key", "s3://scans/2024/in.pdf", Location{Bucket: "scans", Key: "2024/in.pdf"}, true, false},
		{"missing key", "s3://scans", Location{}, true, true},
		{"missing bucket", "s3:///in.pdf", Location{}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isS3, err := ParseS3(tt.loc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3() error = %v, wantErr %v", err, tt.wantErr)
			}
			if isS3 != tt.isS3 {
				t.Errorf("ParseS3() isS3 = %v, want %v", isS3, tt.isS3)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseS3() = %+v, want %+v", got, tt.want)
			}
			if err != nil && !errors.Is(err, ErrInvalidLocation) {
				t.Errorf("error should wrap ErrInvalidLocation, got %v", err)
			}
		})
	}
}

func TestLocalRoundTrip(t *testing.T) {
	s := New()
	path := filepath.Join(t.TempDir(), "nested", "out.pdf")

	if err := s.Write(context.Background(), path, []byte("%PDF-1.4"), "application/pdf"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := s.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "%PDF-1.4" {
		t.Errorf("Read() = %q", got)
	}

	if _, err := s.Read(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not exist error, got %v", err)
	}
}

func TestStdio(t *testing.T) {
	var out bytes.Buffer
	s := &Store{Stdin: strings.NewReader("from stdin"), Stdout: &out}

	got, err := s.Read(context.Background(), Stdio)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "from stdin" {
		t.Errorf("Read() = %q", got)
	}

	if err := s.Write(context.Background(), Stdio, []byte("to stdout"), ""); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if out.String() != "to stdout" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestS3RoundTrip(t *testing.T) {
	fake := newFakeS3()
	s := NewWithClient(fake)
	ctx := context.Background()

	if err := s.Write(ctx, "s3://scans/out/doc.pdf", []byte("pdf bytes"), "application/pdf"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if fake.contentType["scans/out/doc.pdf"] != "application/pdf" {
		t.Errorf("content type = %q", fake.contentType["scans/out/doc.pdf"])
	}

	got, err := s.Read(ctx, "s3://scans/out/doc.pdf")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "pdf bytes" {
		t.Errorf("Read() = %q", got)
	}

	_, err = s.Read(ctx, "s3://scans/missing.pdf")
	if err == nil || !strings.Contains(err.Error(), "NoSuchKey") {
		t.Errorf("expected missing object error, got %v", err)
	}
}

func TestEmptyLocation(t *testing.T) {
	s := New()
	if _, err := s.Read(context.Background(), ""); !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("Read(\"\") error = %v", err)
	}
	if err := s.Write(context.Background(), "", nil, ""); !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("Write(\"\") error = %v", err)
	}
}
