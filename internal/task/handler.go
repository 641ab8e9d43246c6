package task

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/httpx"
)

// Handler exposes the task endpoints. Every route sits behind the session
// middleware.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized, no token")
		return "", false
	}
	return u.ID, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}
	page, err := h.svc.List(r.Context(), uid, ParseListParams(r.URL.Query()))
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", page)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", t)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}
	var cmd CreateCommand
	if err := httpx.DecodeJSON(r, &cmd); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	t, err := h.svc.Create(r.Context(), uid, cmd)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Task created successfully", t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}
	var cmd UpdateCommand
	if err := httpx.DecodeJSON(r, &cmd); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	t, err := h.svc.Update(r.Context(), uid, r.PathValue("id"), cmd)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Task updated successfully", t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := h.svc.Delete(r.Context(), uid, id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Task deleted successfully", map[string]string{"id": id})
}
