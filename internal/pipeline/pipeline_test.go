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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
	"github.com/couchcryptid/cbc-history-etl/internal/observability"
	"github.com/couchcryptid/cbc-history-etl/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- mocks ---

type mockExtractor struct {
	batches    [][]domain.RawEvent
	index      atomic.Int64
	err        error
	partialErr error // returned alongside each batch
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until cancelled to simulate an idle topic
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], m.partialErr
}

type mockTransformer struct {
	failKey string
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.failKey != "" && string(raw.Key) == m.failKey {
		return domain.OutputEvent{}, errors.New("bad export")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu      sync.Mutex
	loaded  []domain.OutputEvent
	failFor int // fail this many LoadBatch calls first
	calls   int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failFor {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) snapshot() []domain.OutputEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputEvent(nil), m.loaded...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawExport(key string, commits *atomic.Int64) domain.RawEvent {
	return domain.RawEvent{
		Key:     []byte(key),
		Value:   []byte("Historical Results by Count\n"),
		Headers: map[string]string{domain.HeaderFilename: key + ".csv"},
		Topic:   "raw-count-exports",
		Commit: func(context.Context) error {
			if commits != nil {
				commits.Add(1)
			}
			return nil
		},
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{rawExport("macc", &commits), rawExport("mabo", &commits)},
	}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	assert.Error(t, p.CheckReadiness(context.Background()))
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 2)
	assert.Equal(t, []byte("macc"), loaded[0].Key)
	assert.Equal(t, int64(2), commits.Load())
	assert.True(t, p.Ready())
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadsPartialBatchReturnedWithError(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{
		batches: [][]domain.RawEvent{
			{rawExport("m1", &commits), rawExport("m2", &commits), rawExport("m3", &commits)},
		},
		partialErr: errors.New("fetch message: connection reset"),
	}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 3)
	assert.Equal(t, []byte("m3"), loaded[2].Key)
	assert.Equal(t, int64(3), commits.Load())
	assert.True(t, p.Ready())
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.snapshot())
}

func TestPipeline_Run_SkipsRejectedExports(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{rawExport("bad", &commits), rawExport("macc", &commits)},
	}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, []byte("macc"), loaded[0].Key)
	// The rejected export is committed too.
	assert.Equal(t, int64(2), commits.Load())
}

func TestPipeline_Run_AllRejectedNotReady(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawExport("bad", nil)}}}
	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 1)

	runFor(t, p, 200*time.Millisecond)
	assert.False(t, p.Ready())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawExport("macc", &commits)}}}
	ldr := &mockLoader{failFor: 1}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 1)

	runFor(t, p, 400*time.Millisecond)

	assert.Empty(t, ldr.snapshot())
	assert.Equal(t, int64(0), commits.Load())
	assert.False(t, p.Ready())
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{err: errors.New("broker down")}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 1)

	start := time.Now()
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.snapshot())
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}
