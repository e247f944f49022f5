// Package controller owns the canonical task collection and keeps it in step
// with the remote task store.
//
// Every mutation calls the store first and touches local state only after the
// store confirmed it, so the collection never drifts from what the store
// accepted. Mutations on the same task id are applied in the order they were
// issued.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/client"
	"github.com/BuzzLyutic/todo-list/internal/filter"
	"github.com/BuzzLyutic/todo-list/internal/model"
	"github.com/BuzzLyutic/todo-list/internal/worker"
)

var (
	ErrAlreadyStarted = errors.New("controller already started")
	ErrDuplicateID    = errors.New("duplicate task id")
)

// View is a read-only rendering of the controller state under the active filters.
type View struct {
	Tasks           []model.Task
	Count           int
	Total           int
	Heading         string
	PriorityHeading string
	StatusFilter    string
	PriorityFilter  string
	// CountDecreased is set when the visible count dropped since the previous view.
	CountDecreased bool
}

type Controller struct {
	store  client.TaskStore
	logger *zap.Logger
	lanes  *worker.Pool

	mu             sync.Mutex
	started        bool
	tasks          []model.Task
	statusFilter   string
	priorityFilter string
	prevCount      int
	lastCount      int
	seq            uint64

	// deliverMu orders delivery; views older than delivered are dropped.
	deliverMu sync.Mutex
	delivered uint64

	subMu     sync.Mutex
	subs      map[int]func(View)
	nextSubID int
}

type Option func(*Controller)

// WithFilters sets the initial status and priority filter names.
func WithFilters(status, priority string) Option {
	return func(c *Controller) {
		c.statusFilter = status
		c.priorityFilter = priority
	}
}

func New(store client.TaskStore, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:          store,
		logger:         logger,
		lanes:          worker.NewPool(logger),
		tasks:          []model.Task{},
		statusFilter:   filter.All,
		priorityFilter: filter.All,
		subs:           make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start performs the single initial fetch. On failure the collection stays
// empty and Start may be retried; after a successful fetch it returns
// ErrAlreadyStarted.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	tasks, err := c.store.ListTasks(ctx)
	if err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		c.logger.Error("failed to fetch tasks", zap.Error(err))
		return fmt.Errorf("fetch tasks: %w", err)
	}

	c.mu.Lock()
	c.tasks = append(make([]model.Task, 0, len(tasks)), tasks...)
	c.mu.Unlock()

	c.logger.Info("tasks loaded", zap.Int("count", len(tasks)))
	c.publish()
	return nil
}

// Stop waits for in-flight mutations and rejects new ones.
func (c *Controller) Stop() {
	c.lanes.Stop()
}

func (c *Controller) AddTask(ctx context.Context, name string, priority model.Priority) (model.Task, error) {
	if strings.TrimSpace(name) == "" {
		return model.Task{}, fmt.Errorf("add task: empty name: %w", client.ErrValidation)
	}
	if !priority.Valid() {
		return model.Task{}, fmt.Errorf("add task: priority %q: %w", priority, client.ErrValidation)
	}

	created, err := c.store.CreateTask(ctx, model.NewDraft(name, priority))
	if err != nil {
		c.logger.Error("failed to create task", zap.String("name", name), zap.Error(err))
		return model.Task{}, fmt.Errorf("add task: %w", err)
	}

	c.mu.Lock()
	if c.indexOf(created.ID) >= 0 {
		c.mu.Unlock()
		c.logger.Error("store returned a duplicate id", zap.String("id", created.ID))
		return model.Task{}, fmt.Errorf("add task %s: %w", created.ID, ErrDuplicateID)
	}
	c.tasks = append(c.tasks, created)
	c.mu.Unlock()

	c.logger.Debug("task added", zap.String("id", created.ID))
	c.publish()
	return created, nil
}

func (c *Controller) ToggleCompleted(ctx context.Context, id string) (model.Task, error) {
	return c.replace(ctx, "toggle task", id, func(t model.Task) (model.Task, error) {
		t.Completed = !t.Completed
		return t, nil
	})
}

// EditTask replaces name and priority together as one record.
func (c *Controller) EditTask(ctx context.Context, id, newName string, newPriority model.Priority) (model.Task, error) {
	return c.replace(ctx, "edit task", id, func(t model.Task) (model.Task, error) {
		if strings.TrimSpace(newName) == "" {
			return t, fmt.Errorf("empty name: %w", client.ErrValidation)
		}
		if !newPriority.Valid() {
			return t, fmt.Errorf("priority %q: %w", newPriority, client.ErrValidation)
		}
		t.Name = newName
		t.Priority = newPriority
		return t, nil
	})
}

func (c *Controller) DeleteTask(ctx context.Context, id string) error {
	return c.lanes.Do(ctx, id, func(ctx context.Context) error {
		if _, ok := c.find(id); !ok {
			return fmt.Errorf("delete task %s: %w", id, client.ErrNotFound)
		}

		ok, err := c.store.DeleteTask(ctx, id)
		if err == nil && !ok {
			err = client.ErrTransport
		}
		if err != nil {
			c.logger.Error("failed to delete task", zap.String("id", id), zap.Error(err))
			return fmt.Errorf("delete task %s: %w", id, err)
		}

		c.mu.Lock()
		if i := c.indexOf(id); i >= 0 {
			c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
		}
		c.mu.Unlock()

		c.logger.Debug("task deleted", zap.String("id", id))
		c.publish()
		return nil
	})
}

// replace runs the shared lookup, update and confirm sequence for toggle and edit.
func (c *Controller) replace(ctx context.Context, op, id string, mutate func(model.Task) (model.Task, error)) (model.Task, error) {
	var result model.Task
	err := c.lanes.Do(ctx, id, func(ctx context.Context) error {
		current, ok := c.find(id)
		if !ok {
			return fmt.Errorf("%s %s: %w", op, id, client.ErrNotFound)
		}

		next, err := mutate(current)
		if err != nil {
			return fmt.Errorf("%s %s: %w", op, id, err)
		}

		if _, err := c.store.UpdateTask(ctx, id, next); err != nil {
			c.logger.Error("failed to update task", zap.String("op", op), zap.String("id", id), zap.Error(err))
			return fmt.Errorf("%s %s: %w", op, id, err)
		}

		// the record we sent is the one applied; the id never changes
		c.mu.Lock()
		if i := c.indexOf(id); i >= 0 {
			c.tasks[i] = next
		}
		c.mu.Unlock()

		result = next
		c.publish()
		return nil
	})
	return result, err
}

func (c *Controller) find(id string) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.tasks[i], true
	}
	return model.Task{}, false
}

// indexOf must be called with mu held.
func (c *Controller) indexOf(id string) int {
	for i, t := range c.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) SetStatusFilter(name string) {
	c.mu.Lock()
	c.statusFilter = name
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) SetPriorityFilter(name string) {
	c.mu.Lock()
	c.priorityFilter = name
	c.mu.Unlock()
	c.publish()
}

// Tasks returns a copy of the full collection in insertion order.
func (c *Controller) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(make([]model.Task, 0, len(c.tasks)), c.tasks...)
}

// View renders the current state. CountDecreased compares against the count
// before the most recent state change.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(c.prevCount)
}

func (c *Controller) viewLocked(prevCount int) View {
	visible := filter.Select(c.tasks, c.statusFilter, c.priorityFilter)
	return View{
		Tasks:           visible,
		Count:           len(visible),
		Total:           len(c.tasks),
		Heading:         filter.Heading(len(visible)),
		PriorityHeading: filter.PriorityHeading(len(visible), c.priorityFilter),
		StatusFilter:    c.statusFilter,
		PriorityFilter:  c.priorityFilter,
		CountDecreased:  prevCount > len(visible),
	}
}

// Subscribe registers fn to receive a fresh View after every state change.
// Views arrive in state order and a view older than one already delivered is
// skipped. fn must not call mutating methods synchronously.
// The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) publish() {
	c.mu.Lock()
	v := c.viewLocked(c.lastCount)
	c.prevCount, c.lastCount = c.lastCount, v.Count
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if seq <= c.delivered {
		return
	}
	c.delivered = seq

	c.subMu.Lock()
	subs := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(cloneView(v))
	}
}

func cloneView(v View) View {
	v.Tasks = append(make([]model.Task, 0, len(v.Tasks)), v.Tasks...)
	return v
}
