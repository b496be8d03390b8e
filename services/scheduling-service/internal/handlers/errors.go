package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

type conflictBody struct {
	Error           string `json:"error"`
	StaffID         string `json:"staff_id"`
	Date            string `json:"date"`
	StartMinute     int    `json:"start_minute"`
	DurationMinutes int    `json:"duration_minutes"`
	// Index is set for batch conflicts: the zero-based position of the
	// offending candidate in the submitted batch.
	Index *int `json:"index,omitempty"`
}

// writeDomainError maps the scheduling error taxonomy onto HTTP statuses.
// Conflicts get a structured body naming the colliding interval so clients
// can offer an alternate time.
func writeDomainError(w http.ResponseWriter, err error) {
	var bce *model.BatchConflictError
	if errors.As(err, &bce) {
		body := conflictBody{
			Error: bce.Error(),
			Index: &bce.Index,
			Date:  bce.Date,
		}
		if bce.Conflict != nil {
			body.StaffID = bce.Conflict.StaffID
			body.StartMinute = bce.Conflict.StartMinute
			body.DurationMinutes = bce.Conflict.DurationMinutes
		}
		writeJSON(w, http.StatusConflict, body)
		return
	}

	var ce *model.ConflictError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusConflict, conflictBody{
			Error:           ce.Error(),
			StaffID:         ce.StaffID,
			Date:            ce.Date,
			StartMinute:     ce.StartMinute,
			DurationMinutes: ce.DurationMinutes,
		})
		return
	}

	switch {
	case model.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case model.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrStorageUnavailable):
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
