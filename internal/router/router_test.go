package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jklundell/taskdeck/internal/token"
	"github.com/jklundell/taskdeck/internal/user"
)

func newTestRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock, *token.Service) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")
	tokens := token.NewService(token.Config{Secret: "supersecret", TTL: time.Hour})
	return RegisterRoutes(zap.NewNop().Sugar(), db, tokens), mock, tokens
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/taskdeck-api/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/taskdeck-api/health", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestCORSPreflight(t *testing.T) {
	h, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/taskdeck-api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestTaskRoutes_RequireToken(t *testing.T) {
	h, _, _ := newTestRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/taskdeck-api/tasks"},
		{http.MethodPost, "/taskdeck-api/tasks/create"},
		{http.MethodPut, "/taskdeck-api/tasks/5"},
		{http.MethodDelete, "/taskdeck-api/tasks/5"},
		{http.MethodPut, "/taskdeck-api/tasks/reorder"},
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
	}
}

// Register, then use the returned token to list tasks through the full stack.
func TestRegisterThenList(t *testing.T) {
	h, mock, _ := newTestRouter(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Ada", "ada@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/taskdeck-api/auth/register",
		strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"secret123"}`))
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp user.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
			AddRow(int64(7), "Ada", "ada@example.com", "hash", time.Now()))
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "description", "status", "priority", "tags", "deadline",
			"task_order", "created_at", "user_id",
		}))

	rr = httptest.NewRecorder()
	listReq := httptest.NewRequest(http.MethodGet, "/taskdeck-api/tasks", nil)
	listReq.Header.Set("Authorization", "Bearer "+resp.Token)
	h.ServeHTTP(rr, listReq)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The literal reorder route must win over the {id} wildcard.
func TestReorderRoutePrecedence(t *testing.T) {
	h, mock, tokens := newTestRouter(t)

	tok, err := tokens.Issue("ada@example.com")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
			AddRow(int64(7), "Ada", "ada@example.com", "hash", time.Now()))
	mock.ExpectExec("UPDATE tasks SET task_order").
		WithArgs(int64(9), int64(7), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPut, "/taskdeck-api/tasks/reorder", strings.NewReader(`[9]`))
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "order updated")
}
