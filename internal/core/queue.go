package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orrn/ticketspool/internal/db"
	"github.com/orrn/ticketspool/internal/pkg/clock"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	historyTimeout    = 5 * time.Second
)

// Sender delivers a rendered payload over one transport.
type Sender interface {
	Send(ctx context.Context, payload Payload) error
}

// HistoryRecorder keeps a record of every job that left the queue.
type HistoryRecorder interface {
	RecordJob(ctx context.Context, job *db.PrintJob) error
}

type QueueOptions struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Queue is an in-memory FIFO of print jobs with a single consumer. A failed
// job is retried at the head of the queue after RetryDelay, so it blocks the
// jobs behind it until it succeeds or is dropped.
type Queue struct {
	renderer   ReceiptRenderer
	configs    ConfigSource
	transports map[Transport]Sender
	observer   *StatusObserver
	history    HistoryRecorder
	clock      clock.Clock
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	jobs       []*Job
	processing bool
	retryTimer *time.Timer
	stopped    bool
}

func NewQueue(
	renderer ReceiptRenderer,
	configs ConfigSource,
	transports map[Transport]Sender,
	observer *StatusObserver,
	history HistoryRecorder,
	clk clock.Clock,
	logger *slog.Logger,
	opts QueueOptions,
) *Queue {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		renderer:   renderer,
		configs:    configs,
		transports: transports,
		observer:   observer,
		history:    history,
		clock:      clk,
		logger:     logger.With("component", "queue"),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Enqueue renders order with the current printer configuration and appends
// the job. Render errors are returned and no job is created.
func (q *Queue) Enqueue(order Order, kind ReceiptKind) (string, error) {
	payload, err := q.renderer.Render(order, kind, q.configs.Get())
	if err != nil {
		return "", err
	}

	job := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		OrderID:   order.ID,
		Payload:   payload,
		CreatedAt: q.clock.Now(),
		State:     JobPending,
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return "", ErrQueueStopped
	}
	q.jobs = append(q.jobs, job)
	if !q.processing {
		q.processing = true
		q.wg.Add(1)
		go q.process()
	}
	q.mu.Unlock()

	q.logger.Info("job queued", "job_id", job.ID, "order_id", job.OrderID, "kind", kind, "transport", payload.Transport)
	q.observer.Update(EventJobQueued, func(s *Status) { s.JobID = job.ID })
	return job.ID, nil
}

// Status returns a copy of the queue that shares nothing with it.
func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]Job, len(q.jobs))
	for i, job := range q.jobs {
		jobs[i] = *job
		jobs[i].Payload = job.Payload.clone()
	}
	return QueueStatus{Jobs: jobs, IsProcessing: q.processing}
}

// Clear drops every queued job. A job already being sent finishes on its own
// and is never put back.
func (q *Queue) Clear() int {
	q.mu.Lock()
	n := len(q.jobs)
	q.jobs = nil
	if q.retryTimer != nil && q.retryTimer.Stop() {
		q.retryTimer = nil
		q.processing = false
		q.wg.Done()
	}
	q.mu.Unlock()

	q.logger.Info("queue cleared", "dropped", n)
	q.observer.Update(EventQueueCleared, nil)
	return n
}

// Stop cancels any send in flight and waits for the consumer to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	if q.retryTimer != nil && q.retryTimer.Stop() {
		q.retryTimer = nil
		q.processing = false
		q.wg.Done()
	}
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

func (q *Queue) process() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if q.stopped || len(q.jobs) == 0 {
			q.processing = false
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		job.State = JobSending
		payload := job.Payload
		q.mu.Unlock()

		err := q.deliver(payload)

		q.mu.Lock()
		stillQueued := len(q.jobs) > 0 && q.jobs[0] == job
		if err == nil {
			job.State = JobCompleted
			if stillQueued {
				q.jobs = q.jobs[1:]
			}
			done := *job
			q.mu.Unlock()
			q.completed(done)
			continue
		}

		job.RetryCount++
		job.LastError = err.Error()
		switch {
		case !stillQueued:
			job.State = JobFailed
			done := *job
			q.mu.Unlock()
			q.logger.Info("send failed for cleared job, not retrying", "job_id", done.ID, "error", err)
			q.record(done)
		case job.RetryCount > q.maxRetries:
			job.State = JobFailed
			q.jobs = q.jobs[1:]
			done := *job
			q.mu.Unlock()
			q.dropped(done)
		case q.stopped:
			job.State = JobPending
			q.processing = false
			q.mu.Unlock()
			return
		default:
			job.State = JobPending
			job.NextAttemptAt = q.clock.Now().Add(q.retryDelay)
			retry := *job
			// The pending timer holds its own wg slot and processing stays
			// true until it resumes the consumer.
			q.wg.Add(1)
			q.retryTimer = time.AfterFunc(q.retryDelay, q.resume)
			q.mu.Unlock()
			q.retrying(retry)
			return
		}
	}
}

func (q *Queue) resume() {
	q.mu.Lock()
	q.retryTimer = nil
	q.mu.Unlock()
	q.process()
}

func (q *Queue) deliver(payload Payload) error {
	sender, ok := q.transports[payload.Transport]
	if !ok {
		return deliveryError(fmt.Errorf("no sender for transport %q", payload.Transport), "deliver")
	}
	if err := sender.Send(q.ctx, payload); err != nil {
		return deliveryError(err, "deliver")
	}
	return nil
}

func (q *Queue) completed(job Job) {
	q.logger.Info("job completed", "job_id", job.ID, "order_id", job.OrderID, "attempts", job.RetryCount+1)
	q.record(job)
	q.observer.Update(EventJobCompleted, func(s *Status) {
		s.JobID = job.ID
		s.Error = ""
	})
}

func (q *Queue) retrying(job Job) {
	q.logger.Warn("job failed, retrying",
		"job_id", job.ID,
		"retry", job.RetryCount,
		"max_retries", q.maxRetries,
		"delay", q.retryDelay,
		"error", job.LastError)
	q.observer.Update(EventJobRetrying, func(s *Status) {
		s.JobID = job.ID
		s.Error = job.LastError
	})
}

func (q *Queue) dropped(job Job) {
	q.logger.Error("job dropped after retries", "job_id", job.ID, "attempts", job.RetryCount, "error", job.LastError)
	q.record(job)
	q.observer.Update(EventJobFailed, func(s *Status) {
		s.JobID = job.ID
		s.Error = fmt.Sprintf("print job %s failed after %d attempts: %s", job.ID, job.RetryCount, job.LastError)
	})
}

func (q *Queue) record(job Job) {
	if q.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	rec := &db.PrintJob{
		ID:           job.ID,
		OrderID:      job.OrderID,
		Kind:         string(job.Kind),
		Transport:    string(job.Payload.Transport),
		Status:       string(job.State),
		RetryCount:   job.RetryCount,
		ErrorMessage: job.LastError,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  q.clock.Now(),
	}
	if job.State == JobCompleted {
		rec.ErrorMessage = ""
	}
	if err := q.history.RecordJob(ctx, rec); err != nil {
		q.logger.Warn("failed to record job history", "job_id", job.ID, "error", err)
	}
}
