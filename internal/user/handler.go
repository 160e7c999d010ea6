package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jklundell/taskdeck/internal/token"
	"github.com/jklundell/taskdeck/internal/user/entity"
)

// Handler exposes HTTP endpoints for registration and login.
type Handler struct {
	svc      *UserService
	tokens   *token.Service
	logger   *zap.SugaredLogger
	validate *validator.Validate
}

func NewHandler(db *sqlx.DB, tokens *token.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		svc:      NewUserService(db, nil, nil),
		tokens:   tokens,
		logger:   logger,
		validate: validator.New(),
	}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is the success body for both auth endpoints.
type AuthResponse struct {
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    *entity.Summary `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Debugw("register validation failed", "err", err)
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "validation failed"})
		return
	}
	summary, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email already exists"})
			return
		}
		h.logger.Warnw("register failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "registration failed"})
		return
	}
	tok, err := h.tokens.Issue(summary.Email)
	if err != nil {
		h.logger.Errorw("token issue failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "registration failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, AuthResponse{
		Message: "user registered successfully",
		Token:   tok,
		User:    summary,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.Debugw("login validation failed", "err", err)
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "validation failed"})
		return
	}
	summary, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
			return
		}
		h.logger.Warnw("login failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	tok, err := h.tokens.Issue(summary.Email)
	if err != nil {
		h.logger.Errorw("token issue failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, AuthResponse{
		Message: "login successful",
		Token:   tok,
		User:    summary,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
