package progress

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/erpsync/internal/platform/models"
)

// Task states. Running is the only non-terminal state.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// DefaultRetention is how long finished tasks stay visible before a sweep
// evicts them.
const DefaultRetention = 7 * 24 * time.Hour

var (
	// ErrTaskNotFound is returned for unknown or already evicted task ids.
	ErrTaskNotFound = errors.New("sync task not found")
	// ErrTaskFinished is returned when mutating a task in a terminal state.
	ErrTaskFinished = errors.New("sync task already finished")
)

// Snapshot is a point-in-time copy of one task, safe to hand to callers.
type Snapshot struct {
	ID         string
	Kind       string
	Status     string
	Current    int
	Total      int
	Stage      string
	Result     *models.SyncSummary
	Error      string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

type task struct {
	Snapshot
	cancelRequested bool
}

// Registry tracks running and finished sync tasks. All operations serialize
// behind one mutex so concurrent sync jobs and pollers never corrupt state.
// It is an injected component, not a process-wide singleton.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*task
	now   func() time.Time
}

// Option is custom configuration of Registry.
type Option func(r *Registry)

// NewRegistry returns new Registry.
func NewRegistry(ops ...Option) *Registry {
	reg := &Registry{
		tasks: map[string]*task{},
		now:   func() time.Time { return time.Now().UTC() },
	}

	for _, op := range ops {
		op(reg)
	}

	return reg
}

// WithNow sets a custom time source.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Create registers a new running task and returns its id.
func (r *Registry) Create(kind string, total int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	r.tasks[id] = &task{Snapshot: Snapshot{
		ID:        id,
		Kind:      kind,
		Status:    StatusRunning,
		Total:     total,
		CreatedAt: r.now(),
	}}

	return id
}

// Update sets progress counters and stage label of a running task.
func (r *Registry) Update(id string, current, total int, stage string) error {
	return r.mutate(id, func(t *task) {
		t.Current = current
		t.Total = total
		t.Stage = stage
	})
}

// Complete transitions a running task to completed with its result.
func (r *Registry) Complete(id string, result models.SyncSummary) error {
	return r.mutate(id, func(t *task) {
		t.Status = StatusCompleted
		t.Result = &result
		t.FinishedAt = r.nowPtr()
	})
}

// Fail transitions a running task to failed with the triggering error.
func (r *Registry) Fail(id string, taskErr error) error {
	return r.mutate(id, func(t *task) {
		t.Status = StatusFailed
		if taskErr != nil {
			t.Error = taskErr.Error()
		}
		t.FinishedAt = r.nowPtr()
	})
}

// Cancel transitions a running task to cancelled, keeping any partial result.
func (r *Registry) Cancel(id string, result models.SyncSummary) error {
	return r.mutate(id, func(t *task) {
		t.Status = StatusCancelled
		t.Result = &result
		t.FinishedAt = r.nowPtr()
	})
}

// RequestCancel asks a running task to stop. The task finishes its in-flight
// chunk first, so the flag is only a request until the orchestrator honors it.
func (r *Registry) RequestCancel(id string) error {
	return r.mutate(id, func(t *task) {
		t.cancelRequested = true
	})
}

// CancelRequested reports whether a stop was requested for the task.
func (r *Registry) CancelRequested(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	return ok && t.cancelRequested
}

// Get returns a snapshot of the task.
func (r *Registry) Get(id string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return Snapshot{}, ErrTaskNotFound
	}

	return t.Snapshot, nil
}

// List returns snapshots of all known tasks.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(r.tasks))
	for _, t := range r.tasks {
		snapshots = append(snapshots, t.Snapshot)
	}

	return snapshots
}

// Sweep evicts finished tasks older than retention and returns how many were
// removed. Eviction is explicit, never a side effect of reads.
func (r *Registry) Sweep(retention time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-retention)
	evicted := 0
	for id, t := range r.tasks {
		if t.Status == StatusRunning || t.FinishedAt == nil {
			continue
		}
		if t.FinishedAt.Before(cutoff) {
			delete(r.tasks, id)
			evicted++
		}
	}

	return evicted
}

func (r *Registry) mutate(id string, apply func(t *task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.Status != StatusRunning {
		return ErrTaskFinished
	}

	apply(t)
	return nil
}

func (r *Registry) nowPtr() *time.Time {
	now := r.now()
	return &now
}
