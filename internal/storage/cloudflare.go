package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/owenshapw/poemVerse/internal/config"
	"github.com/owenshapw/poemVerse/internal/imageurl"
	"github.com/owenshapw/poemVerse/internal/media"
)

type cloudflareMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type cloudflareResponse struct {
	Success bool                `json:"success"`
	Errors  []cloudflareMessage `json:"errors"`
	Result  struct {
		ID       string   `json:"id"`
		Variants []string `json:"variants"`
	} `json:"result"`
}

// CloudflareImages is the primary provider. Every payload is transcoded to PNG
// before upload so the CDN only ever serves one source encoding.
type CloudflareImages struct {
	client     *resty.Client
	accountID  string
	available  bool
	normalizer imageurl.Normalizer
}

func NewCloudflareImages(cfg config.CloudflareConfig, normalizer imageurl.Normalizer) *CloudflareImages {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIToken)

	return &CloudflareImages{
		client:     client,
		accountID:  cfg.AccountID,
		available:  cfg.AccountID != "" && cfg.APIToken != "",
		normalizer: normalizer,
	}
}

func (c *CloudflareImages) Name() string    { return "cloudflare" }
func (c *CloudflareImages) Available() bool { return c.available }

func (c *CloudflareImages) Upload(ctx context.Context, obj Object) (string, error) {
	data, err := media.ToPNG(obj.Data)
	if err != nil {
		return "", err
	}

	name := objectName(media.ContentTypePNG)
	metadata, _ := json.Marshal(map[string]string{"filename": obj.Filename})

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("account", c.accountID).
		SetMultipartField("file", name, media.ContentTypePNG, bytes.NewReader(data)).
		SetMultipartFormData(map[string]string{
			"metadata":          string(metadata),
			"requireSignedURLs": "false",
		}).
		Post("/accounts/{account}/images/v1")
	if err != nil {
		return "", fmt.Errorf("cloudflare upload: %w", err)
	}

	var body cloudflareResponse
	if jerr := json.Unmarshal(resp.Body(), &body); jerr != nil && resp.IsSuccess() {
		return "", fmt.Errorf("cloudflare upload: decode response: %w", jerr)
	}
	if resp.IsError() || !body.Success {
		return "", fmt.Errorf("cloudflare upload: status %d: %s", resp.StatusCode(), describe(body.Errors))
	}
	if len(body.Result.Variants) == 0 {
		return "", fmt.Errorf("cloudflare upload: image %s has no variants", body.Result.ID)
	}
	return body.Result.Variants[0], nil
}

func (c *CloudflareImages) Owns(url string) bool {
	_, ok := c.normalizer.ImageID(url)
	return ok
}

func (c *CloudflareImages) Delete(ctx context.Context, url string) error {
	id, ok := c.normalizer.ImageID(url)
	if !ok {
		return fmt.Errorf("cloudflare delete: %q is not a cloudflare image url", url)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"account": c.accountID, "id": id}).
		Delete("/accounts/{account}/images/v1/{id}")
	if err != nil {
		return fmt.Errorf("cloudflare delete: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("cloudflare delete: status %d", resp.StatusCode())
	}
	return nil
}

func describe(msgs []cloudflareMessage) string {
	if len(msgs) == 0 {
		return "no error detail"
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, fmt.Sprintf("%d %s", m.Code, m.Message))
	}
	return strings.Join(parts, "; ")
}
