package auth

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/httpx"
)

// Handler exposes HTTP endpoints for register / login / logout.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var cmd RegisterCommand
	if err := httpx.DecodeJSON(r, &cmd); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	sess, err := h.svc.Register(r.Context(), cmd)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "User registered successfully", sess)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var cmd LoginCommand
	if err := httpx.DecodeJSON(r, &cmd); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	sess, err := h.svc.Login(r.Context(), cmd)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Login successful", sess)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), u); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Logout successful", nil)
}
