package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RailScan/internal/domain/models"
	"RailScan/pkg/cache"
	"RailScan/pkg/logger"
	"RailScan/pkg/queue"
)

type stubScanner struct {
	err error
}

func (s *stubScanner) Scan(_ context.Context, p ScanParams) (*models.ScanReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ScanReport{
		Results: []models.ScanResult{{Symbol: p.Symbols[0], Side: models.SideLong}},
		Summary: models.ScanSummary{Total: 1, Long: 1},
	}, nil
}

func startJobs(t *testing.T, sc BatchScanner) *ScanJobs {
	t.Helper()
	q := queue.NewMemoryQueue(nil, &queue.QueueConfig{Workers: 1, QueueSize: 4, RetryLimit: 0})
	jobs := NewScanJobs(sc, cache.NewMemoryCache(), q, time.Minute, nil)
	q.RegisterJob(jobs)
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })
	return jobs
}

func waitStatus(t *testing.T, jobs *ScanJobs, id string, want models.JobStatus) *models.ScanJob {
	t.Helper()
	var got *models.ScanJob
	require.Eventually(t, func() bool {
		job, err := jobs.Status(context.Background(), id)
		if err != nil {
			return false
		}
		got = job
		return job.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return got
}

func TestScanJobCompletes(t *testing.T) {
	jobs := startJobs(t, &stubScanner{})

	job, err := jobs.Submit(context.Background(), ScanParams{Symbols: []string{"AAPL"}})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobPending, job.Status)

	done := waitStatus(t, jobs, job.ID, models.JobDone)
	require.NotNil(t, done.Report)
	assert.Equal(t, "AAPL", done.Report.Results[0].Symbol)
	assert.Empty(t, done.Error)
}

func TestScanJobFailureIsStored(t *testing.T) {
	jobs := startJobs(t, &stubScanner{err: errors.New("too many symbols: 60 > 50")})

	job, err := jobs.Submit(context.Background(), ScanParams{Symbols: []string{"AAPL"}})
	require.NoError(t, err)

	failed := waitStatus(t, jobs, job.ID, models.JobFailed)
	assert.Contains(t, failed.Error, "too many symbols")
	assert.Nil(t, failed.Report)
}

func TestScanJobStatusUnknown(t *testing.T) {
	jobs := NewScanJobs(&stubScanner{}, cache.NewMemoryCache(), nil, 0, nil)
	_, err := jobs.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScanJobSubmitValidation(t *testing.T) {
	jobs := NewScanJobs(&stubScanner{}, cache.NewMemoryCache(), nil, 0, nil)

	_, err := jobs.Submit(context.Background(), ScanParams{})
	assert.ErrorIs(t, err, ErrNoSymbols)

	_, err = jobs.Submit(context.Background(), ScanParams{Symbols: []string{"AAPL"}})
	assert.Error(t, err, "no queue configured")
}

type downQueue struct{}

func (downQueue) Enqueue(context.Context, string, interface{}) error {
	return errors.New("queue unavailable")
}

// flakyStore rejects writes after the first failAfter, when failAfter > 0.
type flakyStore struct {
	cache.Service
	failAfter int
	writes    int
	lastKey   string
}

func (f *flakyStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.writes++
	if f.failAfter > 0 && f.writes > f.failAfter {
		return errors.New("store unavailable")
	}
	f.lastKey = key
	return f.Service.Set(ctx, key, value, ttl)
}

func TestScanJobSubmitLogsLostFailureStatus(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "jobs.log")
	lgr, err := logger.New(&logger.Config{Level: "debug", Format: "json", Output: logPath})
	require.NoError(t, err)

	store := &flakyStore{Service: cache.NewMemoryCache(), failAfter: 1}
	jobs := NewScanJobs(&stubScanner{}, store, downQueue{}, time.Minute, lgr)

	_, err = jobs.Submit(context.Background(), ScanParams{Symbols: []string{"AAPL"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue unavailable")
	assert.Equal(t, 2, store.writes)

	out, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "store failed scan job")
	assert.Contains(t, string(out), "store unavailable")
}

func TestScanJobSubmitStoresEnqueueFailure(t *testing.T) {
	store := &flakyStore{Service: cache.NewMemoryCache()}
	jobs := NewScanJobs(&stubScanner{}, store, downQueue{}, time.Minute, nil)

	_, err := jobs.Submit(context.Background(), ScanParams{Symbols: []string{"AAPL"}})
	require.Error(t, err)
	assert.Equal(t, 2, store.writes)

	var job models.ScanJob
	require.NoError(t, store.Get(context.Background(), store.lastKey, &job))
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.Error, "queue unavailable")
}
