package service

import (
	"context"
	"errors"
	"strings"

	"github.com/BuzzLyutic/todo-list/internal/filter"
	"github.com/BuzzLyutic/todo-list/internal/model"
	"github.com/BuzzLyutic/todo-list/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

type TaskService struct {
	repo repo.TaskRepository
}

func NewTaskService(repo repo.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) Create(ctx context.Context, d model.Draft, idempKey string) (model.Task, error) {
	t := d.Task("")
	if err := s.validate(t); err != nil { // Валидация модели на корректность введенных данных
		return t, err
	}

	if idempKey != "" { // Повторный запрос с тем же ключом возвращает уже созданную задачу
		if existingID, err := s.repo.GetIdempotencyKey(ctx, idempKey); err == nil {
			return s.repo.Get(ctx, existingID)
		}
	}

	resource, err := s.repo.Create(ctx, t)
	if err != nil {
		return resource, err
	}

	if idempKey != "" {
		s.repo.SaveIdempotencyKey(ctx, idempKey, resource.ID)
	}

	return resource, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

// List returns the collection in creation order, optionally narrowed by the
// same status and priority filters the client uses. Empty names mean All.
func (s *TaskService) List(ctx context.Context, status, priority string) ([]model.Task, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if (status == "" || status == filter.All) && (priority == "" || priority == filter.All) {
		return tasks, nil
	}
	return filter.Select(tasks, status, priority), nil
}

func (s *TaskService) Update(ctx context.Context, t model.Task) (model.Task, error) {
	if err := s.validate(t); err != nil {
		return t, err
	}
	return s.repo.Update(ctx, t)
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *TaskService) GetStats(ctx context.Context) (repo.Stats, error) {
	return s.repo.GetStats(ctx)
}

func (s *TaskService) validate(t model.Task) error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrValidation
	}
	if !t.Priority.Valid() {
		return ErrValidation
	}
	return nil
}
