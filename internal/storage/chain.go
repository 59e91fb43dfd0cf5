package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/owenshapw/poemVerse/internal/media"
	"github.com/owenshapw/poemVerse/internal/metrics"
)

// ErrExhausted is returned when no provider accepted the object.
var ErrExhausted = errors.New("storage: every provider failed")

// Object is an upload request. Filename is only a hint for metadata; providers
// always pick their own object names.
type Object struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Provider is one object-storage backend. Available reflects configuration at
// construction time and never changes afterwards.
type Provider interface {
	Name() string
	Available() bool
	Upload(ctx context.Context, obj Object) (string, error)
}

// Remover is implemented by providers that can delete what they stored.
type Remover interface {
	Owns(url string) bool
	Delete(ctx context.Context, url string) error
}

type ProviderStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Priority  int    `json:"priority"`
}

// Chain tries providers in fixed priority order until one returns a URL.
type Chain struct {
	providers []Provider
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewChain(log *zap.Logger, m *metrics.Metrics, providers ...Provider) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{providers: providers, log: log, metrics: m}
}

// Upload returns the first provider URL. Unconfigured providers are skipped
// silently, failing ones are logged and the next is tried. An invalid image stops
// the chain at once.
func (c *Chain) Upload(ctx context.Context, obj Object) (string, error) {
	for _, p := range c.providers {
		if !p.Available() {
			c.metrics.Observe("storage", p.Name(), metrics.OutcomeUnavailable, 0)
			continue
		}

		start := time.Now()
		url, err := p.Upload(ctx, obj)
		elapsed := time.Since(start).Seconds()
		if err == nil && url != "" {
			c.metrics.Observe("storage", p.Name(), metrics.OutcomeSuccess, elapsed)
			c.log.Info("image stored", zap.String("provider", p.Name()), zap.String("url", url))
			return url, nil
		}
		if err == nil {
			err = errors.New("provider returned an empty url")
		}

		c.metrics.Observe("storage", p.Name(), metrics.OutcomeFailure, elapsed)
		if errors.Is(err, media.ErrInvalidImage) {
			return "", err
		}
		c.log.Warn("storage provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
	}
	return "", ErrExhausted
}

// Remove deletes url from whichever provider owns it. Unknown URLs are ignored.
func (c *Chain) Remove(ctx context.Context, url string) error {
	for _, p := range c.providers {
		r, ok := p.(Remover)
		if !ok || !p.Available() || !r.Owns(url) {
			continue
		}
		if err := r.Delete(ctx, url); err != nil {
			return fmt.Errorf("%s delete: %w", p.Name(), err)
		}
		return nil
	}
	return nil
}

func (c *Chain) Status() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(c.providers))
	for i, p := range c.providers {
		out = append(out, ProviderStatus{Name: p.Name(), Available: p.Available(), Priority: i + 1})
	}
	return out
}

func objectName(contentType string) string {
	return fmt.Sprintf("poemverse_%s.%s", strings.ReplaceAll(uuid.NewString(), "-", ""), media.Extension(contentType))
}
