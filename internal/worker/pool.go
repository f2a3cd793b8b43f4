// Package worker moves close reports from the ledger to the host's
// notification collaborator through a Redis list. Delivery itself (email,
// printout, dashboard push) is out of scope — a Notifier is plugged in by the
// composition root.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueCloseReports = "jobs:close_reports"

// CloseReportJob is the payload enqueued when a till session is closed.
// Amounts travel as decimal strings to avoid float round-trips.
type CloseReportJob struct {
	SessionID    string `json:"session_id"`
	ClosedBy     string `json:"closed_by"`
	ClosedAt     string `json:"closed_at"`
	ExpectedCash string `json:"expected_cash"`
	CountedCash  string `json:"counted_cash"`
	Variance     string `json:"variance"`
}

// Notifier is the outward boundary for close reports.
type Notifier interface {
	NotifySessionClosed(ctx context.Context, job CloseReportJob) error
}

// LogNotifier is the default Notifier: it just logs the report. The host
// application replaces it with a real delivery channel.
type LogNotifier struct{}

func (LogNotifier) NotifySessionClosed(_ context.Context, job CloseReportJob) error {
	log.Info().
		Str("session_id", job.SessionID).
		Str("closed_by", job.ClosedBy).
		Str("expected_cash", job.ExpectedCash).
		Str("counted_cash", job.CountedCash).
		Str("variance", job.Variance).
		Msg("cash session closed")
	return nil
}

// Dispatcher enqueues close-report jobs into a Redis list.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueCloseReport pushes a close report onto the queue. Best-effort:
// callers treat failures as non-fatal, the close itself already committed.
func (d *Dispatcher) EnqueueCloseReport(ctx context.Context, job CloseReportJob) error {
	if d.rdb == nil {
		return nil
	}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueCloseReports, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the queue.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, notifier Notifier, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, notifier, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, notifier Notifier, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueCloseReports).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, notifier, result[1])
		}
	}
}

func processJob(ctx context.Context, notifier Notifier, raw string) {
	var job CloseReportJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal close report job")
		return
	}
	if err := notifier.NotifySessionClosed(ctx, job); err != nil {
		log.Error().Str("session_id", job.SessionID).Err(err).Msg("close report notification failed")
	}
}
