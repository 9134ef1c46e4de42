package faqcorpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

// ObjectConfig locates a corpus object in S3-compatible storage (S3, R2, MinIO).
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Key       string
}

// ObjectSource downloads a corpus object and parses it.
type ObjectSource struct {
	client *minio.Client
	bucket string
	key    string
	logger *slog.Logger
}

// NewObjectSource constructs the source.
func NewObjectSource(cfg ObjectConfig, logger *slog.Logger) (*ObjectSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("corpus object requires bucket and key")
	}
	useSSL := !strings.HasPrefix(strings.ToLower(cfg.Endpoint), "http://")
	client, err := minio.New(sanitizeEndpoint(cfg.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       useSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}
	return &ObjectSource{
		client: client,
		bucket: cfg.Bucket,
		key:    cfg.Key,
		logger: logger.With("component", "faqcorpus.object"),
	}, nil
}

func (s *ObjectSource) Load(ctx context.Context) ([]faq.Entry, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get corpus object: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read corpus object %s/%s: %w", s.bucket, s.key, err)
	}
	s.logger.Info("corpus object downloaded", "bucket", s.bucket, "key", s.key, "bytes", len(data))
	return Parse(data, FormatFromPath(s.key))
}

func sanitizeEndpoint(endpoint string) string {
	clean := strings.TrimSpace(endpoint)
	clean = strings.TrimPrefix(clean, "https://")
	clean = strings.TrimPrefix(clean, "http://")
	return strings.TrimRight(clean, "/")
}

var _ Source = (*ObjectSource)(nil)
