package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishBatchEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w)

	err := p.PublishBatch(context.Background(), "railscan.signals", []Message{
		{Key: []byte("AAPL"), Value: map[string]interface{}{"side": "LONG"}},
		{Key: []byte("MSFT"), Value: "raw", Headers: map[string]string{"trace_id": "t-1"}},
		{Key: []byte("SPY"), Value: []byte(`{"x":1}`)},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 3)

	var got map[string]string
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "LONG", got["side"])
	assert.Equal(t, "railscan.signals", w.msgs[0].Topic)
	assert.Equal(t, "AAPL", string(w.msgs[0].Key))

	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, "t-1", ExtractTraceID(w.msgs[1]))
	assert.Equal(t, `{"x":1}`, string(w.msgs[2].Value))
}

func TestPublishSurfacesWriterErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w)

	err := p.Publish(context.Background(), "t", []byte("k"), "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestPublishRejectsUnencodable(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w)

	err := p.Publish(context.Background(), "t", nil, make(chan int))
	require.Error(t, err)
	assert.Empty(t, w.msgs)
}

func TestPublishBatchEmptyIsNoop(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w)
	require.NoError(t, p.PublishBatch(context.Background(), "t", nil))
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewProducerNeedsBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("zstd"))
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Lz4, parseCompression("lz4"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression("bogus"))
}
