package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestNewUploaderValidatesConfig(t *testing.T) {
	full := Config{Region: "us-east-1", AccessKey: "a", SecretKey: "s", Bucket: "b", PublicBaseURL: "https://cdn.example.com"}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bucket", mutate: func(c *Config) { c.Bucket = "" }},
		{name: "region", mutate: func(c *Config) { c.Region = "" }},
		{name: "credentials", mutate: func(c *Config) { c.SecretKey = "" }},
		{name: "base url", mutate: func(c *Config) { c.PublicBaseURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := full
			tt.mutate(&cfg)
			if _, err := NewUploader(cfg); err == nil {
				t.Fatal("NewUploader() accepted incomplete config")
			}
		})
	}

	u, err := NewUploader(full)
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}
	if u.cfg.Prefix != "plan-reports" {
		t.Errorf("default prefix = %q", u.cfg.Prefix)
	}
}

func TestUploadBuildsDatedKey(t *testing.T) {
	putter := &fakePutter{}
	u := &Uploader{
		cfg:    Config{Bucket: "reports", PublicBaseURL: "https://cdn.example.com/", Prefix: "/plans/"},
		client: putter,
		now:    func() time.Time { return time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC) },
	}

	url, err := u.Upload(context.Background(), []byte(`{"ok":true}`), "application/json")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	pattern := regexp.MustCompile(`^https://cdn\.example\.com/plans/2024/03/09/[0-9a-f-]{36}\.json$`)
	if !pattern.MatchString(url) {
		t.Errorf("url = %q", url)
	}
	if aws.ToString(putter.input.Bucket) != "reports" || aws.ToString(putter.input.ContentType) != "application/json" {
		t.Errorf("put input = %+v", putter.input)
	}
	if string(putter.body) != `{"ok":true}` {
		t.Errorf("body = %q", putter.body)
	}
}

func TestUploadErrors(t *testing.T) {
	u := &Uploader{cfg: Config{Bucket: "b", PublicBaseURL: "https://x"}, client: &fakePutter{err: errors.New("boom")}, now: time.Now}
	if _, err := u.Upload(context.Background(), nil, ""); err == nil {
		t.Error("Upload() accepted empty data")
	}
	if _, err := u.Upload(context.Background(), []byte("x"), ""); err == nil {
		t.Error("Upload() hid the storage error")
	}
}

func TestExtensionFromContentType(t *testing.T) {
	tests := map[string]string{
		"application/json":                ".json",
		"application/json; charset=utf-8": ".json",
		"text/csv":                        ".csv",
		"image/png":                       ".bin",
	}
	for ct, want := range tests {
		if got := extensionFromContentType(ct); got != want {
			t.Errorf("extensionFromContentType(%q) = %q, want %q", ct, got, want)
		}
	}
}
