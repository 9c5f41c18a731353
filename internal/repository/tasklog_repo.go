package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskLogRepository records per-task outcomes for offline diagnosis. The
// audit trail is best-effort: callers log insert failures and move on.
type TaskLogRepository struct {
	db *pgxpool.Pool
}

func NewTaskLogRepository(db *pgxpool.Pool) *TaskLogRepository {
	return &TaskLogRepository{db: db}
}

func (r *TaskLogRepository) Record(ctx context.Context, queue, taskID, status, errMsg string) error {
	query := `
        INSERT INTO task_log (queue, task_id, status, error, created_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
    `
	_, err := r.db.Exec(ctx, query, queue, taskID, status, errMsg)
	return err
}
