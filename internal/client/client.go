package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/model"
)

const tasksPath = "/tasks"

// TaskStore is the remote task collection the controller reconciles against.
type TaskStore interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, d model.Draft) (model.Task, error)
	UpdateTask(ctx context.Context, id string, t model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*HTTPClient)

// WithTimeout bounds every store call; expiry is reported as a TransportError.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.timeout = d
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) ListTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if _, err := c.do(ctx, "list tasks", http.MethodGet, tasksPath, nil, &tasks, http.StatusOK); err != nil {
		return nil, err
	}
	if tasks == nil { // json null
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (c *HTTPClient) CreateTask(ctx context.Context, d model.Draft) (model.Task, error) {
	var t model.Task
	_, err := c.do(ctx, "create task", http.MethodPost, tasksPath, d, &t, http.StatusOK, http.StatusCreated)
	return t, err
}

func (c *HTTPClient) UpdateTask(ctx context.Context, id string, t model.Task) (model.Task, error) {
	var updated model.Task
	_, err := c.do(ctx, "update task", http.MethodPut, taskPath(id), t, &updated, http.StatusOK)
	return updated, err
}

// DeleteTask reports success only when the store answers 200.
func (c *HTTPClient) DeleteTask(ctx context.Context, id string) (bool, error) {
	if _, err := c.do(ctx, "delete task", http.MethodDelete, taskPath(id), nil, nil, http.StatusOK); err != nil {
		return false, err
	}
	return true, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any, okCodes ...int) (int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return 0, fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("store request failed", zap.String("op", op), zap.Error(err))
		return 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if !accepted(resp.StatusCode, okCodes) {
		io.Copy(io.Discard, resp.Body)
		c.logger.Debug("store rejected request",
			zap.String("op", op),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		terr := &TransportError{Op: op, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusNotFound && method != http.MethodGet {
			return resp.StatusCode, fmt.Errorf("%w: %w", ErrNotFound, terr)
		}
		return resp.StatusCode, terr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return resp.StatusCode, nil
}

func accepted(code int, okCodes []int) bool {
	for _, ok := range okCodes {
		if code == ok {
			return true
		}
	}
	return false
}

func taskPath(id string) string {
	return tasksPath + "/" + url.PathEscape(id)
}
