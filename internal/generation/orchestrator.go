package generation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/owenshapw/poemVerse/internal/media"
	"github.com/owenshapw/poemVerse/internal/metrics"
	"github.com/owenshapw/poemVerse/internal/prompt"
)

const (
	DefaultTimeout = 60 * time.Second
	SourceRenderer = "poster"
)

// ErrExhausted means every remote backend failed and the poster renderer could
// not produce an image either.
var ErrExhausted = errors.New("generation: every backend failed")

// Request is the text a cover is generated from.
type Request struct {
	Title  string
	Body   string
	Author string
	Tags   []string
}

type Result struct {
	Data        []byte
	ContentType string
	Source      string
}

// Backend is one remote text-to-image API.
type Backend interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, prompt, negative string) (Result, error)
}

// Renderer is the local last resort. It only needs well-formed text.
type Renderer interface {
	Render(req Request) ([]byte, error)
}

// Orchestrator calls backends in fixed order, one attempt each, then the
// renderer.
type Orchestrator struct {
	backends []Backend
	renderer Renderer
	timeout  time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewOrchestrator(renderer Renderer, log *zap.Logger, m *metrics.Metrics, backends ...Backend) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		backends: backends,
		renderer: renderer,
		timeout:  DefaultTimeout,
		log:      log,
		metrics:  m,
	}
}

// WithTimeout overrides the per-backend call timeout.
func (o *Orchestrator) WithTimeout(d time.Duration) *Orchestrator {
	if d > 0 {
		o.timeout = d
	}
	return o
}

// Generate returns the first image a backend produced. Calls are detached from
// ctx cancellation so a client disconnect does not abort an in-flight backend;
// each call is bounded by its own timeout instead.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Result, error) {
	positive, negative := prompt.Build(req.Title, req.Body, req.Tags)
	detached := context.WithoutCancel(ctx)

	for _, b := range o.backends {
		if !b.Available() {
			o.metrics.Observe("generation", b.Name(), metrics.OutcomeUnavailable, 0)
			continue
		}

		res, elapsed, err := o.call(detached, b, positive, negative)
		if err == nil {
			o.metrics.Observe("generation", b.Name(), metrics.OutcomeSuccess, elapsed)
			res.Source = b.Name()
			o.log.Info("cover generated",
				zap.String("backend", b.Name()),
				zap.Int("bytes", len(res.Data)),
			)
			return res, nil
		}

		o.metrics.Observe("generation", b.Name(), metrics.OutcomeFailure, elapsed)
		o.log.Warn("generation backend failed, trying next",
			zap.String("backend", b.Name()),
			zap.Error(err),
		)
	}

	if o.renderer == nil {
		return Result{}, ErrExhausted
	}

	start := time.Now()
	data, err := o.renderer.Render(req)
	elapsed := time.Since(start).Seconds()
	if err != nil || len(data) == 0 {
		o.metrics.Observe("generation", SourceRenderer, metrics.OutcomeFailure, elapsed)
		o.log.Error("poster renderer failed", zap.Error(err))
		return Result{}, ErrExhausted
	}
	o.metrics.Observe("generation", SourceRenderer, metrics.OutcomeSuccess, elapsed)
	return Result{Data: data, ContentType: media.ContentTypePNG, Source: SourceRenderer}, nil
}

func (o *Orchestrator) call(ctx context.Context, b Backend, positive, negative string) (Result, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	res, err := b.Generate(ctx, positive, negative)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return Result{}, elapsed, err
	}
	if len(res.Data) == 0 {
		return Result{}, elapsed, errors.New("empty image")
	}
	return res, elapsed, nil
}
