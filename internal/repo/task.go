package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/todo-list/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

// Create assigns a fresh id; any id on t is ignored.
func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, name, completed, priority)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, completed, priority
	`, uuid.NewString(), t.Name, t.Completed, string(t.Priority)).Scan(
		&t.ID, &t.Name, &t.Completed, &t.Priority,
	)
	return t, r.mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, completed, priority
		FROM tasks
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Completed, &t.Priority)

	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, completed, priority
		FROM tasks
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Name, &t.Completed, &t.Priority); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update replaces the whole record.
func (r *TaskRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET name = $2, completed = $3, priority = $4, updated_at = now()
		WHERE id = $1
		RETURNING id, name, completed, priority
	`, t.ID, t.Name, t.Completed, string(t.Priority)).Scan(
		&t.ID, &t.Name, &t.Completed, &t.Priority,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, r.mapError(err)
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, key string, resourceID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, resource_id) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, resourceID)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT resource_id FROM idempotency_keys WHERE key = $1
	`, key).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrorNotFound
	}
	return id, err
}

func (r *TaskRepo) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{ByPriority: make(map[string]int)}

	rows, err := r.pool.Query(ctx, `
		SELECT priority, completed, COUNT(*)
		FROM tasks
		GROUP BY priority, completed
	`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			priority  string
			completed bool
			n         int
		)
		if err := rows.Scan(&priority, &completed, &n); err != nil {
			return stats, err
		}
		stats.Total += n
		if completed {
			stats.Completed += n
		} else {
			stats.Active += n
		}
		stats.ByPriority[model.Priority(priority).Label()] += n
	}
	return stats, rows.Err()
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrorConflict
		}
	}
	return err
}
