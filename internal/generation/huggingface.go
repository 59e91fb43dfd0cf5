package generation

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/owenshapw/poemVerse/internal/config"
)

type hfParameters struct {
	NegativePrompt    string  `json:"negative_prompt"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

// HuggingFace calls a hosted inference model that answers with raw image bytes.
type HuggingFace struct {
	client *resty.Client
	url    string
	apiKey string
}

func NewHuggingFace(cfg config.GeneratorConfig) *HuggingFace {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HuggingFace{
		client: resty.New().SetTimeout(timeout),
		url:    cfg.URL,
		apiKey: cfg.APIKey,
	}
}

func (h *HuggingFace) Name() string    { return "huggingface" }
func (h *HuggingFace) Available() bool { return h.apiKey != "" && h.url != "" }

func (h *HuggingFace) Generate(ctx context.Context, prompt, negative string) (Result, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetAuthToken(h.apiKey).
		SetBody(hfRequest{
			Inputs: prompt,
			Parameters: hfParameters{
				NegativePrompt:    negative,
				NumInferenceSteps: 30,
				GuidanceScale:     7.5,
				Width:             512,
				Height:            512,
			},
		}).
		Post(h.url)
	if err != nil {
		return Result{}, fmt.Errorf("huggingface request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return Result{}, fmt.Errorf("huggingface: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	// A loading model answers 200 with a JSON body, so sniff the payload.
	data := resp.Body()
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return Result{}, fmt.Errorf("huggingface: response is %s, not an image", contentType)
	}
	return Result{Data: data, ContentType: contentType}, nil
}
