package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/owenshapw/poemVerse/internal/config"
)

// SupabaseStorage is the last-resort provider, the database's own file storage.
type SupabaseStorage struct {
	client    *resty.Client
	baseURL   string
	bucket    string
	available bool
}

func NewSupabaseStorage(cfg config.SupabaseConfig) *SupabaseStorage {
	base := strings.TrimRight(cfg.URL, "/")
	client := resty.New().
		SetBaseURL(base+"/storage/v1").
		SetTimeout(30*time.Second).
		SetAuthToken(cfg.ServiceKey).
		SetHeader("apikey", cfg.ServiceKey)

	return &SupabaseStorage{
		client:    client,
		baseURL:   base,
		bucket:    cfg.StorageBucket,
		available: base != "" && cfg.ServiceKey != "" && cfg.StorageBucket != "",
	}
}

func (s *SupabaseStorage) Name() string    { return "supabase" }
func (s *SupabaseStorage) Available() bool { return s.available }

func (s *SupabaseStorage) Upload(ctx context.Context, obj Object) (string, error) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := objectName(contentType)

	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"bucket": s.bucket, "name": name}).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(obj.Data).
		Post("/object/{bucket}/{name}")
	if err != nil {
		return "", fmt.Errorf("supabase storage upload: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("supabase storage upload: status %d: %s", resp.StatusCode(), resp.String())
	}
	return s.publicPrefix() + name, nil
}

func (s *SupabaseStorage) Owns(url string) bool {
	return s.baseURL != "" && strings.HasPrefix(url, s.publicPrefix())
}

func (s *SupabaseStorage) Delete(ctx context.Context, url string) error {
	name := strings.TrimPrefix(url, s.publicPrefix())
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"bucket": s.bucket, "name": name}).
		Delete("/object/{bucket}/{name}")
	if err != nil {
		return fmt.Errorf("supabase storage delete: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("supabase storage delete: status %d", resp.StatusCode())
	}
	return nil
}

func (s *SupabaseStorage) publicPrefix() string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/", s.baseURL, s.bucket)
}
