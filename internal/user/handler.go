package user

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/httpx"
)

// Handler exposes the profile endpoints.
type Handler struct {
	svc    *ProfileService
	logger *zap.SugaredLogger
}

func NewHandler(svc *ProfileService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	view, err := h.svc.GetProfile(r.Context(), u)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", view)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	var cmd UpdateProfileCommand
	if err := httpx.DecodeJSON(r, &cmd); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	view, err := h.svc.UpdateProfile(r.Context(), u, cmd)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Profile updated successfully", view)
}
