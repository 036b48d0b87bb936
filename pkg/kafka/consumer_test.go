package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RailScan/pkg/logger"
)

type countingHandler struct {
	topic string
	calls int32
	fail  int32
	panic bool
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(_ context.Context, _ []byte) error {
	n := atomic.AddInt32(&h.calls, 1)
	if h.panic {
		panic("boom")
	}
	if n <= h.fail {
		return errors.New("transient")
	}
	return nil
}

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	t.Helper()
	opts = append([]ConsumerOption{
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	}, opts...)
	c, err := NewConsumer(logger.Nop(), opts...)
	require.NoError(t, err)
	return c
}

func TestProcessRetriesUntilSuccess(t *testing.T) {
	c := newTestConsumer(t)
	h := &countingHandler{topic: "bars", fail: 2}

	err := c.process(h, &message{topic: "bars", km: kafka.Message{Value: []byte("{}")}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, h.calls)
}

func TestProcessGivesUpAfterRetryMax(t *testing.T) {
	c := newTestConsumer(t)
	h := &countingHandler{topic: "bars", fail: 100}

	err := c.process(h, &message{topic: "bars", km: kafka.Message{Value: []byte("{}")}})
	require.Error(t, err)
	assert.EqualValues(t, 3, h.calls, "first attempt plus two retries")
}

func TestProcessRecoversHandlerPanic(t *testing.T) {
	c := newTestConsumer(t, WithConsumerRetry(0, time.Millisecond, time.Millisecond))
	h := &countingHandler{topic: "bars", panic: true}

	err := c.process(h, &message{topic: "bars"})
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)
}

func TestDispatchDeadLettersFailures(t *testing.T) {
	c := newTestConsumer(t, WithConsumerRetry(0, time.Millisecond, time.Millisecond))
	dlq := &fakeWriter{}
	c.dlq = dlq
	c.WithConsumerHook(RejectEmpty())
	h := &countingHandler{topic: "bars"}
	c.RegisterHandler(h)

	c.dispatch(&message{topic: "bars", km: kafka.Message{Key: []byte("AAPL")}})

	assert.EqualValues(t, 0, h.calls, "empty payload never reaches the handler")
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "AAPL", string(dlq.msgs[0].Key))
	assert.Equal(t, "source_topic", dlq.msgs[0].Headers[0].Key)
	assert.Equal(t, "bars", string(dlq.msgs[0].Headers[0].Value))
}

func TestRegisterHandlerKeepsFirst(t *testing.T) {
	c := newTestConsumer(t)
	first := &countingHandler{topic: "bars"}
	c.RegisterHandler(first)
	c.RegisterHandler(&countingHandler{topic: "bars"})
	assert.Same(t, first, c.handlers["bars"])
}

func TestStartWithoutHandlers(t *testing.T) {
	c := newTestConsumer(t)
	require.Error(t, c.Start())
}

func TestNewConsumerNeedsBrokers(t *testing.T) {
	_, err := NewConsumer(nil)
	require.Error(t, err)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}

type invalidHandler struct{ calls int }

func (h *invalidHandler) Topic() string { return "scan-requests" }

func (h *invalidHandler) Handle(context.Context, []byte) error {
	h.calls++
	return &HookError{Code: "ERR_VALIDATION", Err: errors.New("bad json")}
}

func TestProcessSkipsRetriesForValidationErrors(t *testing.T) {
	c := newTestConsumer(t)
	h := &invalidHandler{}

	err := c.process(h, &message{topic: "scan-requests"})
	require.Error(t, err)
	assert.Equal(t, 1, h.calls)
}
