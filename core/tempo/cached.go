package tempo

import (
	"context"

	"BeatStudio/core/audio"
	"BeatStudio/logger"
)

// Cache stores results keyed by audio content hash.
type Cache interface {
	GetTempo(ctx context.Context, hash string) (Result, bool, error)
	SetTempo(ctx context.Context, hash string, r Result) error
}

// Estimator is anything that can detect tempo from a buffer.
type Estimator interface {
	Detect(ctx context.Context, buf *audio.Buffer) (Result, error)
}

// CachedDetector consults a Cache before running the wrapped estimator.
// Cache errors are logged and otherwise ignored.
type CachedDetector struct {
	inner Estimator
	cache Cache
}

func NewCachedDetector(inner Estimator, cache Cache) *CachedDetector {
	return &CachedDetector{inner: inner, cache: cache}
}

func (c *CachedDetector) Detect(ctx context.Context, buf *audio.Buffer) (Result, error) {
	if c.cache == nil || buf == nil || buf.SourceHash == "" {
		return c.inner.Detect(ctx, buf)
	}

	if r, ok, err := c.cache.GetTempo(ctx, buf.SourceHash); err != nil {
		logger.Warn("读取节拍缓存失败", logger.String("hash", buf.SourceHash), logger.ErrorField(err))
	} else if ok {
		logger.Debug("节拍缓存命中", logger.String("hash", buf.SourceHash), logger.Float64("bpm", r.BPM))
		return r, nil
	}

	r, err := c.inner.Detect(ctx, buf)
	if err != nil {
		return r, err
	}
	if err := c.cache.SetTempo(ctx, buf.SourceHash, r); err != nil {
		logger.Warn("写入节拍缓存失败", logger.String("hash", buf.SourceHash), logger.ErrorField(err))
	}
	return r, nil
}
