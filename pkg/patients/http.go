package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/medifusion/platform/pkg/common/logger"
	"github.com/medifusion/platform/pkg/common/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/patients", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/patients", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/patients/unmatched", h.handleListUnmatched).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}", h.handleGet).Methods(http.MethodGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input models.StructuredPatientInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	patient, err := h.service.CreateFromStructured(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrNameRequired) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to create patient")
		http.Error(w, "failed to create patient", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Patient added successfully",
		"patient_id": patient.ID,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list patients")
		http.Error(w, "failed to list patients", http.StatusInternalServerError)
		return
	}

	items := make([]PatientResponse, 0, len(all))
	for i := range all {
		items = append(items, all[i].ToResponse())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	patient, err := h.service.Get(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get patient")
		http.Error(w, "failed to get patient", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": patient.ToResponse()})
}

func (h *Handler) handleListUnmatched(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	staged, err := h.service.ListUnmatched(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list unmatched records")
		http.Error(w, "failed to list unmatched records", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": staged})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
