package generation

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/owenshapw/poemVerse/internal/config"
	"github.com/owenshapw/poemVerse/internal/media"
)

type stabilityPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityRequest struct {
	TextPrompts []stabilityPrompt `json:"text_prompts"`
	CfgScale    float64           `json:"cfg_scale"`
	Height      int               `json:"height"`
	Width       int               `json:"width"`
	Samples     int               `json:"samples"`
	Steps       int               `json:"steps"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

// Stability calls the Stability AI text-to-image endpoint.
type Stability struct {
	client *resty.Client
	url    string
	apiKey string
}

func NewStability(cfg config.GeneratorConfig) *Stability {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Stability{
		client: resty.New().SetTimeout(timeout),
		url:    cfg.URL,
		apiKey: cfg.APIKey,
	}
}

func (s *Stability) Name() string    { return "stability" }
func (s *Stability) Available() bool { return s.apiKey != "" && s.url != "" }

func (s *Stability) Generate(ctx context.Context, prompt, negative string) (Result, error) {
	var out stabilityResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetHeader("Accept", "application/json").
		SetBody(stabilityRequest{
			TextPrompts: []stabilityPrompt{
				{Text: prompt, Weight: 1},
				{Text: negative, Weight: -1},
			},
			CfgScale: 7,
			Height:   1024,
			Width:    1024,
			Samples:  1,
			Steps:    30,
		}).
		SetResult(&out).
		Post(s.url)
	if err != nil {
		return Result{}, fmt.Errorf("stability request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return Result{}, fmt.Errorf("stability: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if len(out.Artifacts) == 0 {
		return Result{}, fmt.Errorf("stability: response has no artifacts")
	}

	data, err := base64.StdEncoding.DecodeString(out.Artifacts[0].Base64)
	if err != nil {
		return Result{}, fmt.Errorf("stability: decode artifact: %w", err)
	}
	if !media.IsPNG(data) {
		return Result{}, fmt.Errorf("stability: artifact is not a png")
	}
	return Result{Data: data, ContentType: media.ContentTypePNG}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
