package task

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jklundell/taskdeck/internal/task/entity"
	userentity "github.com/jklundell/taskdeck/internal/user/entity"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func taskRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "status", "priority", "tags", "deadline",
		"task_order", "created_at", "user_id",
	})
}

var owner = &userentity.User{ID: 42, Name: "Ada", Email: "ada@example.com"}

func TestCreate_AppliesDefaultsAndTailOrder(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs(sqlmock.AnyArg(), "Write report", "", "PENDING", "NORMAL", "", "", 9999, owner.ID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	// caller-supplied owner and order must be ignored
	in := &entity.Task{Title: "Write report", OwnerID: 999, Order: 3}
	out, err := svc.Create(context.Background(), owner, in)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, out.Status)
	assert.Equal(t, entity.PriorityNormal, out.Priority)
	assert.Equal(t, 9999, out.Order)
	assert.Equal(t, owner.ID, out.OwnerID)
	assert.NotZero(t, out.ID)
	assert.False(t, out.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_KeepsExplicitFields(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs(sqlmock.AnyArg(), "Ship it", "notes", "DONE", "HIGH", "work", "2026-09-01", 9999, owner.ID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	in := &entity.Task{
		Title: "Ship it", Description: "notes", Status: "DONE",
		Priority: "HIGH", Tags: "work", Deadline: "2026-09-01",
	}
	out, err := svc.Create(context.Background(), owner, in)
	require.NoError(t, err)
	assert.Equal(t, "DONE", out.Status)
	assert.Equal(t, "HIGH", out.Priority)
}

func TestUpdate_MissingTaskIsForbidden(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectQuery("SELECT .+ FROM tasks").
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	out, err := svc.Update(context.Background(), owner, 5, &entity.Task{Title: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, out)
}

func TestUpdate_ForeignTaskIsForbidden(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectQuery("SELECT .+ FROM tasks").
		WithArgs(int64(5)).
		WillReturnRows(taskRows().AddRow(int64(5), "t", "", "PENDING", "NORMAL", "", "", 0, time.Now(), int64(77)))

	out, err := svc.Update(context.Background(), owner, 5, &entity.Task{Title: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, out)
	// no UPDATE statement may run for a foreign task
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ReplacesFieldsKeepsOrderAndOwner(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	created := time.Now().Add(-time.Hour)
	mock.ExpectQuery("SELECT .+ FROM tasks").
		WithArgs(int64(5)).
		WillReturnRows(taskRows().AddRow(int64(5), "old", "old desc", "PENDING", "NORMAL", "", "", 2, created, owner.ID))
	mock.ExpectExec("UPDATE tasks SET title").
		WithArgs(int64(5), "new", "new desc", "DONE", "HIGH", "work", "2026-09-01").
		WillReturnResult(sqlmock.NewResult(0, 1))

	in := &entity.Task{
		Title: "new", Description: "new desc", Status: "DONE",
		Priority: "HIGH", Tags: "work", Deadline: "2026-09-01",
	}
	out, err := svc.Update(context.Background(), owner, 5, in)
	require.NoError(t, err)
	assert.Equal(t, "new", out.Title)
	assert.Equal(t, "DONE", out.Status)
	assert.Equal(t, 2, out.Order)
	assert.Equal(t, owner.ID, out.OwnerID)
	assert.Equal(t, created.Unix(), out.CreatedAt.Unix())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_OwnedTask(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectQuery("SELECT .+ FROM tasks").
		WithArgs(int64(5)).
		WillReturnRows(taskRows().AddRow(int64(5), "t", "", "PENDING", "NORMAL", "", "", 0, time.Now(), owner.ID))
	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Delete(context.Background(), owner, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_ForeignTaskIsForbidden(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	mock.ExpectQuery("SELECT .+ FROM tasks").
		WithArgs(int64(5)).
		WillReturnRows(taskRows().AddRow(int64(5), "t", "", "PENDING", "NORMAL", "", "", 0, time.Now(), int64(77)))

	err := svc.Delete(context.Background(), owner, 5)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReorder_AssignsPositionsAndSkipsForeign(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	// ids [3,1,2]: positions 0,1,2; id 1 is stale/foreign and touches no row
	mock.ExpectExec("UPDATE tasks SET task_order").
		WithArgs(int64(3), owner.ID, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET task_order").
		WithArgs(int64(1), owner.ID, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE tasks SET task_order").
		WithArgs(int64(2), owner.ID, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Reorder(context.Background(), owner, []int64{3, 1, 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOwned_ReturnsStoreOrder(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, nil)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE user_id").
		WithArgs(owner.ID).
		WillReturnRows(taskRows().
			AddRow(int64(3), "a", "", "PENDING", "NORMAL", "", "", 0, now, owner.ID).
			AddRow(int64(1), "b", "", "PENDING", "NORMAL", "", "", 1, now, owner.ID).
			AddRow(int64(2), "c", "", "PENDING", "NORMAL", "", "", 2, now, owner.ID))

	tasks, err := svc.ListOwned(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})
}
