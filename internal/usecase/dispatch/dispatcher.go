// Package dispatch bounds concurrent document matches and defers the overflow to a durable queue.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/notification"
	"github.com/kailas-cloud/docmatch/internal/domain/request"
	"github.com/kailas-cloud/docmatch/internal/logger"
	"github.com/kailas-cloud/docmatch/internal/metrics"
)

// Defaults.
const (
	DefaultCapacity      = 2
	DefaultDrainInterval = 3 * time.Second
)

// Dispatcher admits at most capacity concurrent matches. Everything else goes to the queue
// and is drained one item per tick.
type Dispatcher struct {
	sem      *semaphore.Weighted
	capacity int64
	matcher  Matcher
	queue    Queue
	notifier Notifier
	interval time.Duration
	logger   *zap.Logger

	wg       sync.WaitGroup
	running  atomic.Int64
	stopping atomic.Bool
	// drainMu orders Drain against Stop so a popped item is always launched.
	drainMu sync.Mutex
}

// New creates a dispatcher. capacity below 1 is raised to 1.
func New(capacity int, matcher Matcher, queue Queue, notifier Notifier, logger *zap.Logger) *Dispatcher {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
		matcher:  matcher,
		queue:    queue,
		notifier: notifier,
		interval: DefaultDrainInterval,
		logger:   logger,
	}
}

// WithDrainInterval overrides the drain period.
func (d *Dispatcher) WithDrainInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// Capacity returns the maximum number of concurrent matches.
func (d *Dispatcher) Capacity() int { return int(d.capacity) }

// Running returns the number of matches currently holding a slot.
func (d *Dispatcher) Running() int { return int(d.running.Load()) }

// QueueLen returns the number of deferred requests.
func (d *Dispatcher) QueueLen(ctx context.Context) (int64, error) {
	n, err := d.queue.Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// Submit starts req when a slot is free, otherwise queues it.
// The match runs detached from ctx cancellation.
func (d *Dispatcher) Submit(ctx context.Context, req request.Request) request.Submission {
	if d.sem.TryAcquire(1) {
		err := d.launch(ctx, req)
		if err == nil {
			metrics.DispatchSubmissionsTotal.WithLabelValues(string(request.Accepted)).Inc()
			return request.Submission{Status: request.Accepted}
		}
		d.logger.Warn("Launch refused, queueing",
			zap.String("doc_id", req.DocID),
			zap.Error(err),
		)
	}
	return d.enqueue(ctx, req)
}

// Drain launches at most one queued request if a slot is free.
// After Stop the queue is left untouched.
func (d *Dispatcher) Drain(ctx context.Context) error {
	d.drainMu.Lock()
	defer d.drainMu.Unlock()

	if d.stopping.Load() {
		return nil
	}
	if !d.sem.TryAcquire(1) {
		return nil
	}

	req, ok, err := d.queue.Pop(ctx)
	if err != nil {
		d.sem.Release(1)
		if errors.Is(err, domain.ErrMalformedPayload) {
			metrics.DispatchDrainedTotal.WithLabelValues("malformed").Inc()
			d.logger.Warn("Dropped malformed queue item", zap.Error(err))
			return nil
		}
		metrics.DispatchDrainedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("drain: %w", err)
	}
	if !ok {
		d.sem.Release(1)
		return nil
	}

	if err := d.launch(ctx, req); err != nil {
		metrics.DispatchDrainedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("launch %s: %w", req.DocID, err)
	}

	metrics.DispatchDrainedTotal.WithLabelValues("launched").Inc()
	d.logger.Info("Queued request launched", zap.String("doc_id", req.DocID))
	return nil
}

// Run drains the queue every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("Drain loop started",
		zap.Duration("interval", d.interval),
		zap.Int64("capacity", d.capacity),
	)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Drain loop stopped")
			return
		case <-ticker.C:
			if err := d.Drain(ctx); err != nil {
				d.logger.Error("Drain failed", zap.Error(err))
			}
		}
	}
}

// Stop refuses new launches. Later submissions are queued for another instance or the next start.
func (d *Dispatcher) Stop() {
	d.drainMu.Lock()
	defer d.drainMu.Unlock()
	d.stopping.Store(true)
}

// Wait blocks until every launched match finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// launch starts req on a reserved slot. On error the slot is released.
func (d *Dispatcher) launch(ctx context.Context, req request.Request) error {
	if d.stopping.Load() {
		d.sem.Release(1)
		return fmt.Errorf("dispatcher stopping: %w", domain.ErrAdmissionRejected)
	}

	taskCtx := logger.WithTask(context.WithoutCancel(ctx), d.logger, req.DocID, req.ClientID)
	metrics.DispatchRunning.Set(float64(d.running.Add(1)))
	d.wg.Add(1)

	go d.run(taskCtx, req)
	return nil
}

func (d *Dispatcher) run(ctx context.Context, req request.Request) {
	defer d.wg.Done()
	defer func() {
		metrics.DispatchRunning.Set(float64(d.running.Add(-1)))
		d.sem.Release(1)
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("Match task panicked", zap.Any("panic", r))
		}
	}()

	// Errors are logged by the matcher; the task only frees its slot.
	_, _ = d.matcher.MatchDocument(ctx, req)
}

func (d *Dispatcher) enqueue(ctx context.Context, req request.Request) request.Submission {
	if err := d.queue.Push(ctx, req); err != nil {
		metrics.DispatchSubmissionsTotal.WithLabelValues(string(request.Failed)).Inc()
		d.logger.Error("Failed to queue request",
			zap.String("doc_id", req.DocID),
			zap.String("client_id", req.ClientID),
			zap.Error(err),
		)
		return request.Submission{Status: request.Failed, Reason: err.Error()}
	}

	metrics.DispatchSubmissionsTotal.WithLabelValues(string(request.Queued)).Inc()
	if !req.IsInsider() {
		d.notifier.Send(ctx, notification.Queued(req.ClientID))
	}
	d.logger.Info("Request queued",
		zap.String("doc_id", req.DocID),
		zap.String("client_id", req.ClientID),
	)
	return request.Submission{Status: request.Queued}
}
