// Package tasks owns the lifecycle records of debate tasks. The tracker is
// the in-memory source of truth; persistence is an optional archival layer
// behind the Store interface.
package tasks

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mailcouncil/pkg/models"
)

// ErrTaskNotFound is returned for lookups of unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// Tracker holds every task's lifecycle record. Each task has a single
// writer (the engine run that owns it); reads are safe from any number of
// goroutines at any time and return consistent snapshots.
type Tracker struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{tasks: make(map[string]*models.Task)}
}

// Create registers a new PENDING task and returns its generated id.
func (t *Tracker) Create(teamKey string, item models.WorkItem) string {
	now := time.Now().UTC()
	task := &models.Task{
		ID:        uuid.New().String(),
		TeamKey:   teamKey,
		WorkItem:  item,
		Status:    models.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.mu.Lock()
	t.tasks[task.ID] = task
	t.mu.Unlock()
	return task.ID
}

// MarkRunning moves a task from PENDING to RUNNING.
func (t *Tracker) MarkRunning(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, err := t.locked(id)
	if err != nil {
		return err
	}
	task.Status = models.TaskRunning
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// Append stores one finalized turn, assigning its sequence number and
// timestamp, and returns the stored message.
func (t *Tracker) Append(id string, msg models.Message) (models.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, err := t.locked(id)
	if err != nil {
		return models.Message{}, err
	}

	msg.Sequence = len(task.Messages) + 1
	msg.Timestamp = time.Now().UTC()
	task.Messages = append(task.Messages, msg)
	task.UpdatedAt = msg.Timestamp
	return msg, nil
}

// Complete finalizes a task with its decision.
func (t *Tracker) Complete(id string, decision models.Decision) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, err := t.locked(id)
	if err != nil {
		return err
	}

	d := decision
	task.Decision = &d
	task.Status = models.TaskCompleted
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail finalizes a task with a human-readable reason. The transcript
// accumulated so far stays on the task, never rolled back.
func (t *Tracker) Fail(id, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, err := t.locked(id)
	if err != nil {
		return err
	}

	task.Status = models.TaskFailed
	task.Error = reason
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// locked finds a mutable task and enforces forward-only transitions. The
// caller must hold the write lock.
func (t *Tracker) locked(id string) (*models.Task, error) {
	task, ok := t.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status.Terminal() {
		return nil, fmt.Errorf("task %s is already %s", id, task.Status)
	}
	return task, nil
}

// Get returns a point-in-time snapshot that shares no mutable state with
// the tracker.
func (t *Tracker) Get(id string) (models.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	task, ok := t.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return cloneTask(task), nil
}

// List returns summaries of all tasks, most recently created first.
func (t *Tracker) List() []models.TaskSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.TaskSummary, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, models.TaskSummary{
			ID:           task.ID,
			TeamKey:      task.TeamKey,
			Status:       task.Status,
			MessageCount: len(task.Messages),
			HasDecision:  task.Decision != nil,
			CreatedAt:    task.CreatedAt,
			UpdatedAt:    task.UpdatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func cloneTask(task *models.Task) models.Task {
	out := *task

	out.Messages = make([]models.Message, len(task.Messages))
	copy(out.Messages, task.Messages)

	if task.Decision != nil {
		d := *task.Decision
		d.ActionItems = append([]string(nil), task.Decision.ActionItems...)
		out.Decision = &d
	}

	if task.WorkItem.Email != nil {
		e := *task.WorkItem.Email
		e.Signals = append([]models.Signal(nil), task.WorkItem.Email.Signals...)
		out.WorkItem.Email = &e
	}
	return out
}
