package repo

import (
	"context"

	"github.com/BuzzLyutic/todo-list/internal/model"
)

// TaskRepository определяет интерфейс для хранения задач на стороне сервера
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	List(ctx context.Context) ([]model.Task, error)
	Update(ctx context.Context, t model.Task) (model.Task, error)
	Delete(ctx context.Context, id string) error
	SaveIdempotencyKey(ctx context.Context, key string, resourceID string) error
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	GetStats(ctx context.Context) (Stats, error)
}

type Stats struct {
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	Active     int            `json:"active"`
	ByPriority map[string]int `json:"by_priority"`
}
