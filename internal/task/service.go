package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jklundell/taskdeck/internal/task/entity"
	taskrepo "github.com/jklundell/taskdeck/internal/task/repo"
	userentity "github.com/jklundell/taskdeck/internal/user/entity"
)

// ErrForbidden covers both "no such task" and "not the owner" so responses
// never leak whether a foreign task id exists.
var ErrForbidden = errors.New("task not found or access denied")

// tailOrder places new tasks at the end of the list without scanning the
// current max order. Order values are only normalized by a later reorder.
const tailOrder = 9999

// Service implements the task operations. The acting user is resolved once
// at the HTTP boundary and passed in explicitly; the service holds no notion
// of a current user.
type Service struct {
	repo *taskrepo.TaskRepo
}

func NewService(db *sqlx.DB, r *taskrepo.TaskRepo) *Service {
	if r == nil {
		r = taskrepo.NewTaskRepo(db)
	}
	return &Service{repo: r}
}

// ListOwned returns all tasks owned by the caller, sorted by manual order
// ascending with id as tiebreaker.
func (s *Service) ListOwned(ctx context.Context, owner *userentity.User) ([]*entity.Task, error) {
	tasks, err := s.repo.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Create stores a new task for the caller. Any caller-supplied owner or
// order is ignored: ownership is taken from the authenticated user and the
// order is the tail sentinel. Status and priority default when unset.
func (s *Service) Create(ctx context.Context, owner *userentity.User, in *entity.Task) (*entity.Task, error) {
	t := &entity.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Tags:        in.Tags,
		Deadline:    in.Deadline,
		Order:       tailOrder,
		OwnerID:     owner.ID,
	}
	if t.Status == "" {
		t.Status = entity.StatusPending
	}
	if t.Priority == "" {
		t.Priority = entity.PriorityNormal
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Update replaces the mutable fields of an owned task in place. id, owner,
// creation time and order are untouched. Missing or foreign tasks fail with
// ErrForbidden.
func (s *Service) Update(ctx context.Context, owner *userentity.User, taskID int64, in *entity.Task) (*entity.Task, error) {
	existing, err := s.loadOwned(ctx, owner, taskID)
	if err != nil {
		return nil, err
	}
	existing.Title = in.Title
	existing.Description = in.Description
	existing.Status = in.Status
	existing.Priority = in.Priority
	existing.Tags = in.Tags
	existing.Deadline = in.Deadline
	if err := s.repo.UpdateFields(ctx, existing); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return existing, nil
}

// Delete permanently removes an owned task. Same ownership rule as Update.
func (s *Service) Delete(ctx context.Context, owner *userentity.User, taskID int64) error {
	if _, err := s.loadOwned(ctx, owner, taskID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// Reorder sets task_order = position for each of the caller's tasks named in
// ids. Foreign or unknown ids are silently skipped and omitted tasks keep
// their previous order, tolerating stale client state.
func (s *Service) Reorder(ctx context.Context, owner *userentity.User, ids []int64) error {
	for i, id := range ids {
		if _, err := s.repo.UpdateOrder(ctx, id, owner.ID, i); err != nil {
			return fmt.Errorf("reorder task %d: %w", id, err)
		}
	}
	return nil
}

func (s *Service) loadOwned(ctx context.Context, owner *userentity.User, taskID int64) (*entity.Task, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	if t.OwnerID != owner.ID {
		return nil, ErrForbidden
	}
	return t, nil
}
