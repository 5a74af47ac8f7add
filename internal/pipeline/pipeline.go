package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
)

const (
	defaultConcurrency    = 4
	defaultRequestTimeout = 15 * time.Second
)

// BatchExtractor reads up to batchSize irrigation requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a raw request into an encoded recommendation.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes recommendations to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline consumes irrigation requests in batches and publishes one
// recommendation per answerable request. Requests within a batch are
// computed concurrently; output order follows input order.
type Pipeline struct {
	extractor      BatchExtractor
	transformer    Transformer
	loader         BatchLoader
	logger         *slog.Logger
	metrics        *observability.Metrics
	batchSize      int
	concurrency    int
	requestTimeout time.Duration
	retry          *backoff.ExponentialBackOff
	ready          atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency bounds how many requests of a batch are computed at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRequestTimeout bounds the time spent on a single request.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.requestTimeout = d
		}
	}
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:      e,
		transformer:    t,
		loader:         l,
		logger:         logger,
		metrics:        metrics,
		batchSize:      batchSize,
		concurrency:    defaultConcurrency,
		requestTimeout: defaultRequestTimeout,
		retry:          newRetryBackOff(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// newRetryBackOff starts at 200ms and caps at 5s, retrying forever.
func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// CheckReadiness returns nil once a batch of recommendations has been
// published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any recommendations yet")
	}
	return nil
}

// Ready reports whether a batch has been published.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run consumes batches until ctx is cancelled. Extract and load failures
// are retried with exponential backoff; Run itself only returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "concurrency", p.concurrency)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for ctx.Err() == nil && p.step(ctx) {
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// step handles one batch. It returns false once the pipeline should stop.
func (p *Pipeline) step(ctx context.Context) bool {
	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.pause(ctx)
	}
	if len(batch) == 0 {
		return true
	}

	start := time.Now()
	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	p.retry.Reset()

	results := p.recommend(ctx, batch)

	out := make([]domain.OutputEvent, 0, len(batch))
	for i, res := range results {
		if res.err == nil {
			out = append(out, res.event)
			continue
		}
		if ctx.Err() != nil {
			// Leave the batch uncommitted so it is redelivered.
			return false
		}
		raw := batch[i]
		p.logger.Warn("recommendation failed, skipping request",
			"error", res.err, "key", string(raw.Key), "source", raw.Source())
		p.metrics.RecommendErrors.Inc()
	}

	// A committed offset covers every earlier offset in its partition, so
	// nothing in the batch is committed until its recommendations are out.
	if len(out) == 0 {
		p.commitAll(ctx, batch)
		return true
	}
	if err := p.loader.LoadBatch(ctx, out); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(out))
		return p.pause(ctx)
	}
	p.metrics.MessagesProduced.Add(float64(len(out)))
	p.commitAll(ctx, batch)

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

type result struct {
	event domain.OutputEvent
	err   error
}

// recommend transforms every request of a batch with bounded concurrency,
// each under its own timeout. results[i] belongs to batch[i].
func (p *Pipeline) recommend(ctx context.Context, batch []domain.RawEvent) []result {
	results := make([]result, len(batch))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, raw := range batch {
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(ctx, p.requestTimeout)
			defer cancel()
			ev, err := p.transformer.Transform(rctx, raw)
			results[i] = result{event: ev, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// pause sleeps for the next backoff interval. It returns false if ctx ends first.
func (p *Pipeline) pause(ctx context.Context) bool {
	timer := time.NewTimer(p.retry.NextBackOff())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// commitAll acknowledges the batch in read order.
func (p *Pipeline) commitAll(ctx context.Context, batch []domain.RawEvent) {
	for _, raw := range batch {
		p.commit(ctx, raw)
	}
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err, "source", raw.Source())
	}
}
