package entity

import "time"

const (
	StatusPending  = "PENDING"
	PriorityNormal = "NORMAL"
)

// Task represents a row in the `tasks` table. Each task is owned by exactly
// one user; the owner is set at creation and never reassigned. Order is an
// integer used purely for client-controlled manual sequencing.
type Task struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	Priority    string    `db:"priority" json:"priority"`
	Tags        string    `db:"tags" json:"tags"`
	Deadline    string    `db:"deadline" json:"deadline"`
	Order       int       `db:"task_order" json:"taskOrder"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	OwnerID     int64     `db:"user_id" json:"-"`
}
