package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/client"
	"github.com/BuzzLyutic/todo-list/internal/model"
	"github.com/BuzzLyutic/todo-list/internal/repo"
	"github.com/BuzzLyutic/todo-list/internal/service"
)

// memRepo is an in-memory repo.TaskRepository for handler tests.
type memRepo struct {
	mu     sync.Mutex
	tasks  []model.Task
	keys   map[string]string
	nextID int
	failAt string
}

func newMemRepo() *memRepo {
	return &memRepo{keys: make(map[string]string)}
}

func (m *memRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = fmt.Sprintf("t%d", m.nextID)
	m.tasks = append(m.tasks, t)
	return t, nil
}

func (m *memRepo) Get(ctx context.Context, id string) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Task{}, repo.ErrorNotFound
}

func (m *memRepo) List(ctx context.Context) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAt == "list" {
		return nil, errors.New("boom")
	}
	return append([]model.Task{}, m.tasks...), nil
}

func (m *memRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == t.ID {
			m.tasks[i] = t
			return t, nil
		}
	}
	return t, repo.ErrorNotFound
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return repo.ErrorNotFound
}

func (m *memRepo) SaveIdempotencyKey(ctx context.Context, key string, resourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = resourceID
	return nil
}

func (m *memRepo) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.keys[key]; ok {
		return id, nil
	}
	return "", repo.ErrorNotFound
}

func (m *memRepo) GetStats(ctx context.Context) (repo.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := repo.Stats{ByPriority: make(map[string]int)}
	for _, t := range m.tasks {
		stats.Total++
		if t.Completed {
			stats.Completed++
		} else {
			stats.Active++
		}
		stats.ByPriority[t.Priority.Label()]++
	}
	return stats, nil
}

func setupRouter(t *testing.T) (http.Handler, *memRepo) {
	t.Helper()
	mem := newMemRepo()
	h := NewTaskHandler(service.NewTaskService(mem), zap.NewNop())

	r := chi.NewRouter()
	h.Routes(r)
	return r, mem
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf []byte
	if body != nil {
		buf, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestTaskHandler_Create(t *testing.T) {
	tests := []struct {
		name          string
		body          interface{}
		wantCode      int
		checkResponse func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:     "successful creation",
			body:     model.NewDraft("Test Task", model.PriorityHigh),
			wantCode: http.StatusCreated,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var task model.Task
				require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
				assert.NotEmpty(t, task.ID)
				assert.Equal(t, "Test Task", task.Name)
				assert.False(t, task.Completed)
				assert.Equal(t, "/tasks/"+task.ID, w.Header().Get("Location"))
			},
		},
		{
			name:     "empty body",
			body:     nil,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "validation error",
			body:     model.NewDraft("", model.PriorityHigh),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid priority",
			body:     map[string]string{"name": "x", "priority": "Urgent"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupRouter(t)
			w := do(t, r, http.MethodPost, "/tasks", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestTaskHandler_CreateIdempotent(t *testing.T) {
	r, mem := setupRouter(t)

	send := func() model.Task {
		body, _ := json.Marshal(model.NewDraft("Idempotent Task", model.PriorityLow))
		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(body))
		req.Header.Set("Idempotency-Key", "test-key-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)

		var task model.Task
		json.NewDecoder(w.Body).Decode(&task)
		return task
	}

	first := send()
	second := send()
	assert.Equal(t, first.ID, second.ID, "should return same task")
	assert.Len(t, mem.tasks, 1)
}

func TestTaskHandler_Get(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodPost, "/tasks", model.NewDraft("Get Test", model.PriorityUnset))
	var created model.Task
	json.NewDecoder(w.Body).Decode(&created)

	t.Run("get existing task", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/tasks/"+created.ID, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var task model.Task
		json.NewDecoder(w.Body).Decode(&task)
		assert.Equal(t, created, task)
	})

	t.Run("get non-existing task", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/tasks/99999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTaskHandler_List(t *testing.T) {
	r, _ := setupRouter(t)

	t.Run("empty collection is an empty array", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/tasks", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	priorities := []model.Priority{model.PriorityHigh, model.PriorityLow, model.PriorityHigh, model.PriorityUnset, model.PriorityMedium}
	for i, p := range priorities {
		do(t, r, http.MethodPost, "/tasks", model.NewDraft(fmt.Sprintf("Task %d", i), p))
	}

	t.Run("list all tasks in creation order", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/tasks", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var tasks []model.Task
		json.NewDecoder(w.Body).Decode(&tasks)
		require.Len(t, tasks, 5)
		for i, task := range tasks {
			assert.Equal(t, fmt.Sprintf("Task %d", i), task.Name)
		}
	})

	t.Run("filter by priority", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/tasks?priority=High", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var tasks []model.Task
		json.NewDecoder(w.Body).Decode(&tasks)
		require.Len(t, tasks, 2)
		for _, task := range tasks {
			assert.Equal(t, model.PriorityHigh, task.Priority)
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/tasks?status=Completed", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestTaskHandler_ListError(t *testing.T) {
	r, mem := setupRouter(t)
	mem.failAt = "list"

	w := do(t, r, http.MethodGet, "/tasks", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTaskHandler_Update(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodPost, "/tasks", model.NewDraft("Original", model.PriorityLow))
	var created model.Task
	json.NewDecoder(w.Body).Decode(&created)

	t.Run("successful update", func(t *testing.T) {
		w := do(t, r, http.MethodPut, "/tasks/"+created.ID, model.Task{
			ID:        "ignored",
			Name:      "Updated",
			Completed: true,
			Priority:  model.PriorityHigh,
		})
		assert.Equal(t, http.StatusOK, w.Code)

		var updated model.Task
		json.NewDecoder(w.Body).Decode(&updated)
		assert.Equal(t, model.Task{ID: created.ID, Name: "Updated", Completed: true, Priority: model.PriorityHigh}, updated)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := do(t, r, http.MethodPut, "/tasks/nope", model.Task{Name: "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("validation error", func(t *testing.T) {
		w := do(t, r, http.MethodPut, "/tasks/"+created.ID, model.Task{Name: "  "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		w := do(t, r, http.MethodPut, "/tasks/"+created.ID, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodPost, "/tasks", model.NewDraft("To Delete", model.PriorityUnset))
	var created model.Task
	json.NewDecoder(w.Body).Decode(&created)

	t.Run("successful delete answers 200", func(t *testing.T) {
		w := do(t, r, http.MethodDelete, "/tasks/"+created.ID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{}`, w.Body.String())
	})

	t.Run("delete non-existing", func(t *testing.T) {
		w := do(t, r, http.MethodDelete, "/tasks/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTaskHandler_Stats(t *testing.T) {
	r, _ := setupRouter(t)

	for i := 0; i < 4; i++ {
		do(t, r, http.MethodPost, "/tasks", model.NewDraft(fmt.Sprintf("Task %d", i), model.PriorityMedium))
	}

	w := do(t, r, http.MethodGet, "/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var stats repo.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 4, stats.Active)
	assert.Equal(t, 4, stats.ByPriority["Medium"])
}

// The store client and these handlers speak the same wire format.
func TestTaskHandler_ClientRoundTrip(t *testing.T) {
	r, _ := setupRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := client.New(srv.URL)
	ctx := context.Background()

	created, err := c.CreateTask(ctx, model.NewDraft("Buy milk", model.PriorityLow))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	created.Completed = true
	updated, err := c.UpdateTask(ctx, created.ID, created)
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	tasks, err := c.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Task{updated}, tasks)

	ok, err := c.DeleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.DeleteTask(ctx, created.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, err, client.ErrNotFound)

	_, err = c.UpdateTask(ctx, created.ID, created)
	assert.ErrorIs(t, err, client.ErrNotFound)
}
