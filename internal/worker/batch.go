package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/openclimate/harmonize/internal/harmonize"
)

// HarmonizeJob runs one harmonizer
type HarmonizeJob struct {
	Harmonizer harmonize.Harmonizer
	Reference  *harmonize.Reference
}

// Execute runs the harmonizer and times it
func (j *HarmonizeJob) Execute(ctx context.Context) Result {
	start := time.Now()
	res, err := j.Harmonizer.Harmonize(ctx, j.Reference)
	return &SourceResult{
		Source:   j.Harmonizer.Name(),
		Result:   res,
		Duration: time.Since(start),
		Error:    err,
	}
}

// SourceResult is the outcome of one harmonizer
type SourceResult struct {
	Source   string
	Result   *harmonize.Result
	Duration time.Duration
	Error    error
}

// GetError returns the harmonizer error
func (r *SourceResult) GetError() error {
	return r.Error
}

// BatchProcessor runs several harmonizers concurrently
type BatchProcessor struct {
	concurrency int
	logger      *slog.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run executes every harmonizer against ref and returns one result per
// harmonizer, in the order given
func (b *BatchProcessor) Run(ctx context.Context, ref *harmonize.Reference, harmonizers []harmonize.Harmonizer) []*SourceResult {
	if len(harmonizers) == 0 {
		return []*SourceResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, h := range harmonizers {
		if err := pool.Submit(&HarmonizeJob{Harmonizer: h, Reference: ref}); err != nil {
			b.logger.Warn("source not started", "source", h.Name(), "err", err)
		}
	}

	bySource := make(map[string]*SourceResult, len(harmonizers))
	for _, r := range pool.Wait() {
		sr := r.(*SourceResult)
		bySource[sr.Source] = sr
		if sr.Error != nil {
			b.logger.Error("source failed", "source", sr.Source, "err", sr.Error)
			continue
		}
		b.logger.Info("source harmonized", "source", sr.Source, "rows", sr.Result.Rows(), "elapsed", sr.Duration.Round(time.Millisecond))
	}

	out := make([]*SourceResult, len(harmonizers))
	for i, h := range harmonizers {
		sr, ok := bySource[h.Name()]
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = ErrPoolClosed
			}
			sr = &SourceResult{Source: h.Name(), Error: err}
		}
		out[i] = sr
	}
	return out
}
