package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/directory"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/slots"
)

type WindowHandler struct {
	store  booking.Store
	dir    directory.Resolver
	logger *slog.Logger
}

func NewWindowHandler(store booking.Store, dir directory.Resolver, logger *slog.Logger) *WindowHandler {
	return &WindowHandler{store: store, dir: dir, logger: logger}
}

type putWindowRequest struct {
	StaffID   string `json:"staff_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available *bool  `json:"available"`
}

type windowResponse struct {
	StaffID   string `json:"staff_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

func (h *WindowHandler) Put(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req putWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.Date = strings.TrimSpace(req.Date)
	if req.StaffID == "" || req.Date == "" {
		http.Error(w, "staff_id and date required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(model.DateFormat, req.Date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	start, err := slots.ParseLabel(strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	end, err := slots.ParseLabel(strings.TrimSpace(req.EndTime))
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return
	}
	if end <= start {
		http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
		return
	}

	if _, err := h.dir.Staff(r.Context(), req.StaffID); err != nil {
		writeDomainError(w, err)
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}
	window := model.WorkingWindow{
		StaffID:     req.StaffID,
		Date:        req.Date,
		StartMinute: start,
		EndMinute:   end,
		Available:   available,
	}
	if err := h.store.PutWindow(r.Context(), window); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowResponse(window))
}

func (h *WindowHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if staffID == "" || date == "" {
		http.Error(w, "staff_id and date required", http.StatusBadRequest)
		return
	}

	window, ok, err := h.store.Window(r.Context(), staffID, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		http.Error(w, "no working window for that date", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toWindowResponse(window))
}

type openSlotItem struct {
	StartTime   string `json:"start_time"`
	StartMinute int    `json:"start_minute"`
}

// OpenSlots lists slot boundaries where an appointment of the requested
// duration would fit: inside the working window and clear of every occupying
// reservation.
func (h *WindowHandler) OpenSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	staffID := strings.TrimSpace(q.Get("staff_id"))
	date := strings.TrimSpace(q.Get("date"))
	if staffID == "" || date == "" {
		http.Error(w, "staff_id and date required", http.StatusBadRequest)
		return
	}

	duration := slots.StepMinutes
	if raw := strings.TrimSpace(q.Get("duration_minutes")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d <= 0 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		duration = d
	}

	window, ok, err := h.store.Window(r.Context(), staffID, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok || !window.Available {
		writeJSON(w, http.StatusOK, map[string]any{"slots": []openSlotItem{}})
		return
	}

	existing, err := h.store.Reservations(r.Context(), staffID, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	open := make([]openSlotItem, 0, slots.Count())
	for _, s := range slots.All() {
		start := s.MinuteOfDay()
		if !window.Contains(start, duration) {
			continue
		}
		free := true
		for _, res := range existing {
			if res.Occupies() && booking.Overlaps(start, duration, res.StartMinute, res.DurationMinutes) {
				free = false
				break
			}
		}
		if free {
			open = append(open, openSlotItem{StartTime: s.Label(), StartMinute: start})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": open})
}

func toWindowResponse(w model.WorkingWindow) windowResponse {
	return windowResponse{
		StaffID:   w.StaffID,
		Date:      w.Date,
		StartTime: slots.FromMinuteOfDay(w.StartMinute).Label(),
		EndTime:   slots.FromMinuteOfDay(w.EndMinute).Label(),
		Available: w.Available,
	}
}
