package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/model"
)

const tasksCacheKey = "todo:tasks"

// Cache wraps a TaskRepository with a Redis-backed copy of the task list.
// Writes go to the base repository first and then evict the cached list.
type Cache struct {
	TaskRepository
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(base TaskRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if base == nil {
		panic("repo.NewCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		TaskRepository: base,
		redis:          client,
		ttl:            ttl,
		logger:         logger,
	}
}

func (c *Cache) List(ctx context.Context) ([]model.Task, error) {
	if tasks, ok := c.load(ctx); ok {
		return tasks, nil
	}

	tasks, err := c.TaskRepository.List(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, tasks)
	return tasks, nil
}

func (c *Cache) Create(ctx context.Context, t model.Task) (model.Task, error) {
	created, err := c.TaskRepository.Create(ctx, t)
	if err != nil {
		return created, err
	}
	c.evict(ctx)
	return created, nil
}

func (c *Cache) Update(ctx context.Context, t model.Task) (model.Task, error) {
	updated, err := c.TaskRepository.Update(ctx, t)
	if err != nil {
		return updated, err
	}
	c.evict(ctx)
	return updated, nil
}

func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.TaskRepository.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) load(ctx context.Context) ([]model.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the base repository.
			c.logger.Warn("Task list cache read failed", zap.Error(err))
			c.evict(ctx)
		}
		return nil, false
	}
	var tasks []model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		c.logger.Warn("Corrupt task list cache entry", zap.Error(err))
		c.evict(ctx)
		return nil, false
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, tasks []model.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		c.logger.Warn("Failed to encode task list for cache", zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, tasksCacheKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Task list cache write failed", zap.Error(err))
	}
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, tasksCacheKey).Err(); err != nil {
		c.logger.Warn("Task list cache eviction failed", zap.Error(err))
	}
}
