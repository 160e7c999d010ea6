package task

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jklundell/taskdeck/internal/task/entity"
	"github.com/jklundell/taskdeck/internal/token"
	"github.com/jklundell/taskdeck/internal/user"
	userentity "github.com/jklundell/taskdeck/internal/user/entity"
)

var errUnknownSubject = errors.New("unknown token subject")

// Handler exposes the task endpoints. Every operation first resolves the
// caller from the bearer token and threads the resulting user explicitly
// into the service.
type Handler struct {
	svc    *Service
	users  *user.UserService
	tokens *token.Service
	logger *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, tokens *token.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		svc:    NewService(db, nil),
		users:  user.NewUserService(db, nil, nil),
		tokens: tokens,
		logger: logger,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	tasks, err := h.svc.ListOwned(r.Context(), owner)
	if err != nil {
		h.logger.Warnw("list tasks failed", "err", err, "user_id", owner.ID)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if tasks == nil {
		tasks = []*entity.Task{}
	}
	h.writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	var in entity.Task
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Debugw("invalid create payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	t, err := h.svc.Create(r.Context(), owner, &in)
	if err != nil {
		h.logger.Warnw("create task failed", "err", err, "user_id", owner.ID)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	taskID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task id"})
		return
	}
	var in entity.Task
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Debugw("invalid update payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	t, err := h.svc.Update(r.Context(), owner, taskID, &in)
	if err != nil {
		h.respondTaskError(w, err, owner.ID)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	taskID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task id"})
		return
	}
	if err := h.svc.Delete(r.Context(), owner, taskID); err != nil {
		h.respondTaskError(w, err, owner.ID)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "task deleted successfully"})
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	var ids []int64
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		h.logger.Debugw("invalid reorder payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.Reorder(r.Context(), owner, ids); err != nil {
		h.logger.Warnw("reorder failed", "err", err, "user_id", owner.ID)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "order updated"})
}

// authenticate resolves the caller from the Authorization header. Identity
// failures (missing/invalid/expired token, or a subject that no longer maps
// to a user) are all answered with 401 before any ownership check runs.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (*userentity.User, bool) {
	owner, err := h.currentUser(r)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) || errors.Is(err, errUnknownSubject) {
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		} else {
			h.logger.Warnw("identity resolution failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return nil, false
	}
	return owner, true
}

func (h *Handler) currentUser(r *http.Request) (*userentity.User, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return nil, token.ErrInvalidToken
	}
	email, err := h.tokens.Validate(strings.TrimSpace(auth[len("bearer "):]))
	if err != nil {
		return nil, err
	}
	u, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errUnknownSubject
		}
		return nil, err
	}
	return u, nil
}

func (h *Handler) respondTaskError(w http.ResponseWriter, err error, userID int64) {
	if errors.Is(err, ErrForbidden) {
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "task not found or access denied"})
		return
	}
	h.logger.Warnw("task operation failed", "err", err, "user_id", userID)
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
