package digest

import (
	"net/http"

	"inkroom/internal/httpx"
)

// Handler exposes a manual tick trigger, guarded by a shared secret so an
// external cron can drive the pipeline in deployments without the
// internal timer.
type Handler struct {
	scheduler *Scheduler
	secret    string
}

func NewHandler(scheduler *Scheduler, secret string) *Handler {
	return &Handler{scheduler: scheduler, secret: secret}
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+h.secret {
		httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	if err := h.scheduler.TickNow(r.Context()); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
