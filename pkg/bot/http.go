package bot

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/ragequit-tracker/platform/pkg/common/logger"
)

// TriggerHandler exposes the scheduled poll endpoint. The scheduler
// authenticates with a bearer shared secret, checked before any work.
type TriggerHandler struct {
	poller     *Poller
	lock       *PollLock
	cronSecret string
}

func NewTriggerHandler(poller *Poller, lock *PollLock, cronSecret string) *TriggerHandler {
	return &TriggerHandler{poller: poller, lock: lock, cronSecret: cronSecret}
}

func (h *TriggerHandler) Register(r *mux.Router) {
	r.HandleFunc("/bot/poll", h.handlePoll).Methods(http.MethodGet, http.MethodPost)
}

func (h *TriggerHandler) handlePoll(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if h.cronSecret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": "unauthorized"})
		return
	}

	if !h.poller.platform.Configured() {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "skipped",
			"reason": "X_BEARER_TOKEN not set",
		})
		return
	}

	acquired, err := h.lock.Acquire(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to acquire poll lock")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "lock unavailable"})
		return
	}
	if !acquired {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "skipped",
			"reason": "poll already running",
		})
		return
	}
	defer h.lock.Release(r.Context())

	res, err := h.poller.Poll(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("poll cycle failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"processed": res.Processed,
		"skipped":   res.Skipped,
		"total":     res.Total,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
