// Package jobqueue archives terminal debate tasks through a River job queue.
// The engine enqueues one job per finished task; workers read the snapshot
// from the tracker and persist it through the task store. Queue state lives
// in Postgres, so archival survives restarts that the in-memory tracker
// does not.
package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/mailcouncil/internal/tasks"
)

// DefaultMaxWorkers bounds concurrent archival jobs when no worker count is
// configured.
const DefaultMaxWorkers = 4

// ArchiveTaskArgs identifies the task one archival job persists.
type ArchiveTaskArgs struct {
	TaskID string `json:"task_id"`
}

// Kind returns the job kind for River.
func (ArchiveTaskArgs) Kind() string {
	return "archive_task"
}

// ArchiveTaskWorker copies a task snapshot from the tracker into the store.
type ArchiveTaskWorker struct {
	river.WorkerDefaults[ArchiveTaskArgs]
	tracker *tasks.Tracker
	store   tasks.Store
}

// Work performs one archival. A task missing from the tracker cancels the
// job rather than retrying: the snapshot is gone and no retry brings it
// back.
func (w *ArchiveTaskWorker) Work(ctx context.Context, job *river.Job[ArchiveTaskArgs]) error {
	task, err := w.tracker.Get(job.Args.TaskID)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			log.Warn().Str("task_id", job.Args.TaskID).Msg("task vanished before archival")
			return river.JobCancel(err)
		}
		return fmt.Errorf("failed to read task for archival: %w", err)
	}

	if err := w.store.Save(ctx, task); err != nil {
		return fmt.Errorf("failed to archive task %s: %w", task.ID, err)
	}

	log.Debug().Str("task_id", task.ID).Str("status", string(task.Status)).Msg("task archived")
	return nil
}

// Queue manages the River client and its connection pool.
type Queue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
}

// NewQueue builds the archival queue against the given database. River's
// schema migrations must already be applied.
func NewQueue(ctx context.Context, databaseURL string, maxWorkers int, tracker *tasks.Tracker, store tasks.Store) (*Queue, error) {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &ArchiveTaskWorker{tracker: tracker, store: store})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Queue{client: client, pool: pool}, nil
}

// Start launches the queue workers.
func (q *Queue) Start(ctx context.Context) error {
	return q.client.Start(ctx)
}

// Stop drains the workers and releases the pool.
func (q *Queue) Stop(ctx context.Context) error {
	err := q.client.Stop(ctx)
	q.pool.Close()
	return err
}

// EnqueueArchive schedules the archival of one terminal task.
func (q *Queue) EnqueueArchive(ctx context.Context, taskID string) error {
	if _, err := q.client.Insert(ctx, ArchiveTaskArgs{TaskID: taskID}, nil); err != nil {
		return fmt.Errorf("failed to queue archive job: %w", err)
	}
	return nil
}
