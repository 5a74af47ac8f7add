package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
	"github.com/couchcryptid/smart-irrigation-service/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	mu      sync.Mutex
	batches [][]domain.RawEvent
	errs    []error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	m.mu.Lock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return nil, err
	}
	if len(m.batches) > 0 {
		b := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()
	// block until context cancelled to simulate waiting for messages
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	failKey string
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if string(raw.Key) == m.failKey {
		return domain.OutputEvent{}, errors.New("bad request")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	failures int
	loaded   []domain.OutputEvent
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawRequest(key string, commits *atomic.Int32) domain.RawEvent {
	return domain.RawEvent{
		Key:   []byte(key),
		Value: []byte(`{"farm_id":"` + key + `"}`),
		Topic: "irrigation-requests",
		Commit: func(context.Context) error {
			if commits != nil {
				commits.Add(1)
			}
			return nil
		},
	}
}

// runUntil runs the pipeline until cond holds or the deadline passes.
func runUntil(t *testing.T, p *pipeline.Pipeline, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, cond, 3*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawRequest("farm_001", &commits), rawRequest("farm_002", &commits)}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runUntil(t, p, func() bool { return ldr.count() == 2 && commits.Load() == 2 })

	assert.True(t, p.Ready())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesProduced))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, ldr.count())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_SkipsFailedRequests(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawRequest("bad", &commits), rawRequest("farm_003", &commits)}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, ldr, discardLogger(), metrics, 10)
	runUntil(t, p, func() bool { return commits.Load() == 2 })

	require.Equal(t, 1, ldr.count())
	assert.Equal(t, []byte("farm_003"), ldr.loaded[0].Key)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecommendErrors))
}

func TestPipeline_Run_AllFailedNotReady(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawRequest("bad", &commits)}}}

	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)
	runUntil(t, p, func() bool { return commits.Load() == 1 })

	assert.False(t, p.Ready())
}

func TestPipeline_Run_RetriesAfterExtractError(t *testing.T) {
	ext := &mockExtractor{
		errs:    []error{errors.New("leader not available")},
		batches: [][]domain.RawEvent{{rawRequest("farm_001", nil)}},
	}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runUntil(t, p, func() bool { return ldr.count() == 1 })
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawRequest("farm_001", &commits)}}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	assert.Zero(t, ldr.count())
	assert.Zero(t, commits.Load(), "offsets must only be committed after a successful load")
}

// slowTransformer sleeps longer for earlier requests so completions arrive
// out of order, and tracks peak concurrency.
type slowTransformer struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	delay := time.Duration(10-int(raw.Key[len(raw.Key)-1]-'0')) * 3 * time.Millisecond
	select {
	case <-ctx.Done():
		return domain.OutputEvent{}, ctx.Err()
	case <-time.After(delay):
	}
	return domain.OutputEvent{Key: raw.Key}, nil
}

func TestPipeline_Run_PreservesOrderUnderConcurrency(t *testing.T) {
	var commits atomic.Int32
	batch := make([]domain.RawEvent, 0, 6)
	for _, k := range []string{"farm_1", "farm_2", "farm_3", "farm_4", "farm_5", "farm_6"} {
		batch = append(batch, rawRequest(k, &commits))
	}
	ldr := &mockLoader{}
	tr := &slowTransformer{}

	p := pipeline.New(&mockExtractor{batches: [][]domain.RawEvent{batch}}, tr, ldr, discardLogger(),
		observability.NewMetricsForTesting(), 10, pipeline.WithConcurrency(3))
	runUntil(t, p, func() bool { return commits.Load() == 6 })

	require.Equal(t, 6, ldr.count())
	for i, ev := range ldr.loaded {
		assert.Equal(t, batch[i].Key, ev.Key)
	}
	assert.LessOrEqual(t, tr.peak.Load(), int32(3))
}

func TestPipeline_Run_RequestTimeoutSkipsRequest(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawRequest("farm_1", &commits)}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &slowTransformer{}, ldr, discardLogger(), metrics, 10,
		pipeline.WithRequestTimeout(time.Millisecond))
	runUntil(t, p, func() bool { return commits.Load() == 1 })

	assert.Zero(t, ldr.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecommendErrors))
}

func TestPipeline_Run_SkippedRequestsWaitForLoad(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawRequest("farm_001", &commits), rawRequest("bad", &commits)}}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	assert.Zero(t, ldr.count())
	assert.Zero(t, commits.Load(), "a skipped request must not commit past an unpublished one")
}
