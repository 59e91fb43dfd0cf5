// Package cover turns a piece of text into a stored, normalized cover image URL.
package cover

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/owenshapw/poemVerse/internal/generation"
	"github.com/owenshapw/poemVerse/internal/imageurl"
	"github.com/owenshapw/poemVerse/internal/storage"
)

type Generator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Result, error)
}

type Uploader interface {
	Upload(ctx context.Context, obj storage.Object) (string, error)
}

type Pipeline struct {
	generator  Generator
	uploader   Uploader
	normalizer imageurl.Normalizer
	log        *zap.Logger
}

func NewPipeline(generator Generator, uploader Uploader, normalizer imageurl.Normalizer, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{generator: generator, uploader: uploader, normalizer: normalizer, log: log}
}

// Produce generates, stores and normalizes a cover. Errors wrap
// generation.ErrExhausted or storage.ErrExhausted.
func (p *Pipeline) Produce(ctx context.Context, req generation.Request) (string, error) {
	res, err := p.generator.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate cover: %w", err)
	}

	url, err := p.uploader.Upload(context.WithoutCancel(ctx), storage.Object{
		Data:        res.Data,
		Filename:    "cover.png",
		ContentType: res.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("store cover from %s: %w", res.Source, err)
	}

	url = p.normalizer.Normalize(url)
	p.log.Info("cover produced", zap.String("source", res.Source), zap.String("url", url))
	return url, nil
}
