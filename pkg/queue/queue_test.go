package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RailScan/pkg/logger"
)

type scanPayload struct {
	Symbols []string `json:"symbols"`
}

type testJob struct {
	calls  int32
	fail   int32
	gotSym chan string
}

func (j *testJob) Name() string { return "test-job" }
func (j *testJob) Type() string { return "scan" }

func (j *testJob) Handle(_ context.Context, payload json.RawMessage) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.fail {
		return errors.New("flaky")
	}
	p, err := ParsePayload[scanPayload](payload)
	if err != nil {
		return err
	}
	j.gotSym <- p.Symbols[0]
	return nil
}

func TestMemoryQueueDeliversAndRetries(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), &QueueConfig{Workers: 2, RetryLimit: 2, RetryDelay: time.Millisecond})
	job := &testJob{fail: 1, gotSym: make(chan string, 1)}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), "scan", scanPayload{Symbols: []string{"AAPL"}}))

	select {
	case sym := <-job.gotSym:
		assert.Equal(t, "AAPL", sym)
	case <-time.After(2 * time.Second):
		t.Fatal("job never completed")
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&job.calls))
}

func TestMemoryQueueRejects(t *testing.T) {
	q := NewMemoryQueue(nil, nil)
	err := q.Enqueue(context.Background(), "scan", nil)
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, q.Start())
	require.Error(t, q.Start())
	err = q.Enqueue(context.Background(), "unknown", nil)
	assert.ErrorIs(t, err, ErrNoJob)

	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()))
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[scanPayload](json.RawMessage(`{"symbols":["MSFT"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, p.Symbols)

	_, err = ParsePayload[scanPayload](nil)
	require.Error(t, err)
	_, err = ParsePayload[scanPayload](json.RawMessage(`[`))
	require.Error(t, err)
}

func TestNewMessage(t *testing.T) {
	m, err := NewMessage("scan", scanPayload{Symbols: []string{"SPY"}})
	require.NoError(t, err)
	assert.Len(t, m.ID, 36)
	assert.JSONEq(t, `{"symbols":["SPY"]}`, string(m.Payload))

	_, err = NewMessage("scan", make(chan int))
	require.Error(t, err)
}

func TestRedisQueueKeysAndNotRunning(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	q := NewRedisQueue(nil, nil, client, WithKeyPrefix("rs:q"))
	assert.Equal(t, "rs:q:messages", q.queueKey())
	assert.Equal(t, "rs:q:retry", q.retryKey())
	assert.Equal(t, "rs:q:dlq", q.deadLetterKey())

	err := q.Enqueue(context.Background(), "scan", nil)
	assert.ErrorIs(t, err, ErrNotRunning)
	require.NoError(t, q.Stop(context.Background()))
}
