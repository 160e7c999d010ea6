package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jklundell/taskdeck/internal/task/entity"
	"github.com/jklundell/taskdeck/pkg/utilities"
)

// TaskRepo provides data access for the tasks table using sqlx.
type TaskRepo struct {
	db *sqlx.DB
}

func NewTaskRepo(db *sqlx.DB) *TaskRepo { return &TaskRepo{db: db} }

// EnsureTable creates the tasks table and its owner index if not exists
// (idempotent). user_id is a one-directional reference to users; the owner's
// task list is only ever obtained through the index, never as an owned
// collection.
func (r *TaskRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
  id BIGINT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'PENDING',
  priority TEXT NOT NULL DEFAULT 'NORMAL',
  tags TEXT NOT NULL DEFAULT '',
  deadline TEXT NOT NULL DEFAULT '',
  task_order INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  user_id BIGINT NOT NULL REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new task row. The id is assigned here from the snowflake
// generator; the creation timestamp comes back from the store.
func (r *TaskRepo) Create(ctx context.Context, t *entity.Task) error {
	t.ID = utilities.NewSnowflakeID()
	const q = `INSERT INTO tasks (id, title, description, status, priority, tags, deadline, task_order, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`
	row := r.db.QueryRowxContext(ctx, q,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.Tags, t.Deadline, t.Order, t.OwnerID)
	return row.Scan(&t.CreatedAt)
}

// GetByID fetches a task row or sql.ErrNoRows.
func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	const q = `SELECT id, title, description, status, priority, tags, deadline, task_order, created_at, user_id
		FROM tasks WHERE id = $1`
	var t entity.Task
	if err := r.db.GetContext(ctx, &t, q, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByOwner returns all tasks owned by ownerID sorted by manual order
// ascending, ties broken by id ascending for determinism.
func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Task, error) {
	const q = `SELECT id, title, description, status, priority, tags, deadline, task_order, created_at, user_id
		FROM tasks WHERE user_id = $1 ORDER BY task_order ASC, id ASC`
	var tasks []*entity.Task
	if err := r.db.SelectContext(ctx, &tasks, q, ownerID); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateFields replaces the mutable fields of a task in place. id, user_id,
// created_at and task_order are never touched by this statement.
func (r *TaskRepo) UpdateFields(ctx context.Context, t *entity.Task) error {
	const q = `UPDATE tasks SET title=$2, description=$3, status=$4, priority=$5, tags=$6, deadline=$7 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.Title, t.Description, t.Status, t.Priority, t.Tags, t.Deadline)
	return err
}

// Delete permanently removes a task row.
func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// UpdateOrder sets the manual sort key of a task, scoped to the owner so a
// foreign id can never be moved. Returns the number of rows touched (0 when
// the id is unknown or not owned by ownerID).
func (r *TaskRepo) UpdateOrder(ctx context.Context, id, ownerID int64, order int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET task_order=$3 WHERE id=$1 AND user_id=$2`, id, ownerID, order)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
