package departures

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ragequit-tracker/platform/pkg/common/logger"
	"github.com/ragequit-tracker/platform/pkg/common/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/departures", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/departures", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/departures/stats", h.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/departures/recompute-scores", h.handleRecomputeAll).Methods(http.MethodPost)
	r.HandleFunc("/departures/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/departures/{id}", h.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/departures/{id}", h.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/departures/{id}/recompute-score", h.handleRecompute).Methods(http.MethodPost)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDepartureRequest(w, r)
	if !ok {
		return
	}

	dep, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "failed to create departure")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"departure": dep})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Company:   models.Company(q.Get("company")),
		Status:    models.DepartureStatus(q.Get("status")),
		Search:    q.Get("search"),
		Sort:      q.Get("sort"),
		Direction: q.Get("direction"),
		Limit:     parseLimit(r, 100),
	}

	deps, err := h.service.List(r.Context(), filter)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list departures")
		http.Error(w, "failed to list departures", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": deps})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid departure id", http.StatusBadRequest)
		return
	}

	dep, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get departure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"departure": dep})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid departure id", http.StatusBadRequest)
		return
	}

	req, ok := decodeDepartureRequest(w, r)
	if !ok {
		return
	}

	dep, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "failed to update departure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"departure": dep})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid departure id", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to delete departure")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid departure id", http.StatusBadRequest)
		return
	}

	score, err := h.service.RecomputeScore(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to recompute score")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"publicity_score": score})
}

func (h *Handler) handleRecomputeAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.RecomputeAllScores(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to recompute scores")
		http.Error(w, "failed to recompute scores", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rescored": count})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to compute stats")
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"companies": stats})
}

// decodeDepartureRequest accepts either a JSON body or the admin form's
// flat url-encoded fields.
func decodeDepartureRequest(w http.ResponseWriter, r *http.Request) (models.CreateDepartureRequest, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return models.CreateDepartureRequest{}, false
		}
		return DecodeDepartureForm(r.PostForm), true
	}

	var req models.CreateDepartureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return models.CreateDepartureRequest{}, false
	}
	return req, true
}

func writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrDepartureNotFound):
		http.Error(w, "departure not found", http.StatusNotFound)
	case errors.Is(err, ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Log.WithError(err).Error(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

func parseLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
