package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"RailScan/internal/domain/models"
	"RailScan/pkg/cache"
	"RailScan/pkg/logger"
	"RailScan/pkg/queue"

	"github.com/google/uuid"
)

// ScanJobType is the queue message type for asynchronous scans.
const ScanJobType = "scan.batch"

// ScanJobKeyPrefix prefixes every job status key in the cache.
const ScanJobKeyPrefix = "scanjob:"

var ErrJobNotFound = errors.New("scan job not found")

// BatchScanner runs a batch scan.
type BatchScanner interface {
	Scan(ctx context.Context, p ScanParams) (*models.ScanReport, error)
}

type scanJobPayload struct {
	ID     string     `json:"id"`
	Params ScanParams `json:"params"`
}

// ScanJobs submits scans to a queue and tracks their status in the cache.
type ScanJobs struct {
	scanner BatchScanner
	store   cache.Service
	queue   queue.Enqueuer
	ttl     time.Duration
	log     *logger.Logger
	now     func() time.Time
}

func NewScanJobs(scanner BatchScanner, store cache.Service, q queue.Enqueuer, ttl time.Duration, lgr *logger.Logger) *ScanJobs {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &ScanJobs{scanner: scanner, store: store, queue: q, ttl: ttl, log: lgr, now: time.Now}
}

// SetQueue wires the queue after construction; the queue's job handler is
// the ScanJobs itself.
func (j *ScanJobs) SetQueue(q queue.Enqueuer) { j.queue = q }

// Submit records a pending job and enqueues it.
func (j *ScanJobs) Submit(ctx context.Context, p ScanParams) (*models.ScanJob, error) {
	if len(p.Symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if j.queue == nil {
		return nil, errors.New("scan jobs: no queue configured")
	}
	now := j.now().UTC()
	job := &models.ScanJob{
		ID:        uuid.NewString(),
		Status:    models.JobPending,
		Symbols:   p.Symbols,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := j.save(ctx, job); err != nil {
		return nil, err
	}
	if err := j.queue.Enqueue(ctx, ScanJobType, scanJobPayload{ID: job.ID, Params: p}); err != nil {
		job.Status, job.Error = models.JobFailed, err.Error()
		if serr := j.save(ctx, job); serr != nil {
			j.log.Warn("store failed scan job", logger.String("job_id", job.ID), logger.Error(serr))
		}
		return nil, fmt.Errorf("enqueue scan job: %w", err)
	}
	return job, nil
}

// Status returns a job by id.
func (j *ScanJobs) Status(ctx context.Context, id string) (*models.ScanJob, error) {
	var job models.ScanJob
	if err := j.store.Get(ctx, jobKey(id), &job); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("load scan job %s: %w", id, err)
	}
	return &job, nil
}

func (j *ScanJobs) Name() string { return "scan-jobs" }
func (j *ScanJobs) Type() string { return ScanJobType }

// Handle runs a queued scan. Scan failures are terminal and stored on the job.
func (j *ScanJobs) Handle(ctx context.Context, payload json.RawMessage) error {
	msg, err := queue.ParsePayload[scanJobPayload](payload)
	if err != nil {
		return err
	}
	job, err := j.Status(ctx, msg.ID)
	if err != nil {
		return err
	}

	job.Status, job.UpdatedAt = models.JobRunning, j.now().UTC()
	if err := j.save(ctx, job); err != nil {
		return err
	}

	report, err := j.scanner.Scan(ctx, msg.Params)
	if errors.Is(err, context.Canceled) {
		return err
	}
	job.UpdatedAt = j.now().UTC()
	if err != nil {
		job.Status, job.Error = models.JobFailed, err.Error()
		j.log.Warn("scan job failed", logger.String("job_id", job.ID), logger.Error(err))
	} else {
		job.Status, job.Report = models.JobDone, report
	}
	return j.save(ctx, job)
}

func (j *ScanJobs) save(ctx context.Context, job *models.ScanJob) error {
	if err := j.store.Set(ctx, jobKey(job.ID), job, j.ttl); err != nil {
		return fmt.Errorf("store scan job %s: %w", job.ID, err)
	}
	return nil
}

func jobKey(id string) string {
	return ScanJobKeyPrefix + id
}

var _ queue.Job = (*ScanJobs)(nil)
