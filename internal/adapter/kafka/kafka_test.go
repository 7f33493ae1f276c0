package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cbc-history-etl/internal/config"
	"github.com/couchcryptid/cbc-history-etl/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("macc"),
		Value:     []byte("Historical Results by Count\n"),
		Topic:     "raw-count-exports",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: domain.HeaderFilename, Value: []byte("macc_history.csv")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("macc"), raw.Key)
	assert.Equal(t, "Historical Results by Count\n", string(raw.Value))
	assert.Equal(t, "raw-count-exports", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "macc_history.csv", raw.Filename())
	assert.Nil(t, raw.Commit)
}

func TestToMessage(t *testing.T) {
	event := domain.OutputEvent{
		Key:   []byte("macc-0011223344556677"),
		Value: []byte(`{"id":"macc-0011223344556677"}`),
		Headers: map[string]string{
			domain.HeaderYears:       "1997-2000",
			domain.HeaderCountCode:   "MACC",
			domain.HeaderExtractedAt: "2025-01-05T09:30:00Z",
		},
	}

	msg := toMessage(event)

	assert.Equal(t, event.Key, msg.Key)
	assert.JSONEq(t, `{"id":"macc-0011223344556677"}`, string(msg.Value))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, domain.HeaderCountCode, msg.Headers[0].Key)
	assert.Equal(t, []byte("MACC"), msg.Headers[0].Value)
	assert.Equal(t, domain.HeaderExtractedAt, msg.Headers[1].Key)
	assert.Equal(t, domain.HeaderYears, msg.Headers[2].Key)
	assert.Equal(t, []byte("1997-2000"), msg.Headers[2].Value)
}

func TestNewReader_Defaults(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:     []string{"localhost:9092"},
		KafkaSourceTopic: "raw-count-exports",
		KafkaGroupID:     "cbc-history-etl",
	}
	r := NewReader(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = r.Close() })

	assert.Equal(t, 500*time.Millisecond, r.flushInterval)
	assert.Equal(t, 64<<20+fetchHeadroom, r.reader.(*kafkago.Reader).Config().MaxBytes)
}

type stubReader struct {
	msgs      []kafkago.Message
	fetchErr  error
	next      int
	committed []int64
}

func (s *stubReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if s.next < len(s.msgs) {
		msg := s.msgs[s.next]
		s.next++
		return msg, nil
	}
	if s.fetchErr != nil {
		return kafkago.Message{}, s.fetchErr
	}
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (s *stubReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		s.committed = append(s.committed, m.Offset)
	}
	return nil
}

func (s *stubReader) Close() error { return nil }

func newStubbedReader(stub *stubReader) *Reader {
	return &Reader{
		reader:        stub,
		flushInterval: 50 * time.Millisecond,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestReader_ExtractBatch_FetchErrorKeepsPartialBatch(t *testing.T) {
	stub := &stubReader{
		msgs:     []kafkago.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}},
		fetchErr: errors.New("broker connection reset"),
	}
	r := newStubbedReader(stub)

	batch, err := r.ExtractBatch(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, batch, 3)
	for _, raw := range batch {
		require.NoError(t, raw.Commit(context.Background()))
	}
	assert.Equal(t, []int64{1, 2, 3}, stub.committed)

	_, err = r.ExtractBatch(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker connection reset")
}

func TestReader_ExtractBatch_FlushIntervalReturnsWhatArrived(t *testing.T) {
	stub := &stubReader{msgs: []kafkago.Message{{Offset: 7}}}
	r := newStubbedReader(stub)

	batch, err := r.ExtractBatch(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, int64(7), batch[0].Offset)
}

func TestWriter_LoadBatchEmpty(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaSinkTopic: "sink"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.LoadBatch(context.Background(), nil))
}
