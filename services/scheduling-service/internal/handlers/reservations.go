package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/grid"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/recurrence"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/slots"
)

type ReservationHandler struct {
	coord     *booking.Coordinator
	store     booking.Store
	projector grid.Projector
	logger    *slog.Logger
}

func NewReservationHandler(coord *booking.Coordinator, store booking.Store, projector grid.Projector, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{
		coord:     coord,
		store:     store,
		projector: projector,
		logger:    logger,
	}
}

type createReservationRequest struct {
	StaffID         string `json:"staff_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Kind            string `json:"kind"`
	CustomerRef     string `json:"customer_ref"`
	ServiceRef      string `json:"service_ref"`
	Notes           string `json:"notes"`
}

type recurrenceRequest struct {
	Frequency       string `json:"frequency"`
	Interval        int    `json:"interval"`
	OccurrenceCount int    `json:"occurrence_count"`
	EndDate         string `json:"end_date"`
}

type createBatchRequest struct {
	createReservationRequest
	Recurrence *recurrenceRequest `json:"recurrence"`
}

type reservationItem struct {
	ReservationID   string `json:"reservation_id"`
	StaffID         string `json:"staff_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	StartMinute     int    `json:"start_minute"`
	DurationMinutes int    `json:"duration_minutes"`
	Kind            string `json:"kind"`
	Status          string `json:"status"`
	CustomerRef     string `json:"customer_ref,omitempty"`
	ServiceRef      string `json:"service_ref,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func toItem(r model.Reservation) reservationItem {
	return reservationItem{
		ReservationID:   r.ID,
		StaffID:         r.StaffID,
		Date:            r.Date,
		StartTime:       slots.FromMinuteOfDay(r.StartMinute).Label(),
		StartMinute:     r.StartMinute,
		DurationMinutes: r.DurationMinutes,
		Kind:            string(r.Kind),
		Status:          string(r.Status),
		CustomerRef:     r.CustomerRef,
		ServiceRef:      r.ServiceRef,
		Notes:           r.Notes,
	}
}

func (req createReservationRequest) candidate() (booking.Candidate, error) {
	startMinute, err := slots.ParseLabel(strings.TrimSpace(req.StartTime))
	if err != nil {
		return booking.Candidate{}, &model.ValidationError{Field: "start_time", Reason: err.Error()}
	}
	return booking.Candidate{
		StaffID:         strings.TrimSpace(req.StaffID),
		Date:            strings.TrimSpace(req.Date),
		StartMinute:     startMinute,
		DurationMinutes: req.DurationMinutes,
		Kind:            model.ReservationKind(strings.TrimSpace(req.Kind)),
		CustomerRef:     strings.TrimSpace(req.CustomerRef),
		ServiceRef:      strings.TrimSpace(req.ServiceRef),
		Notes:           req.Notes,
	}, nil
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	cand, err := req.candidate()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if cand.StaffID == "" || cand.Date == "" {
		http.Error(w, "staff_id and date required", http.StatusBadRequest)
		return
	}

	committed, err := h.coord.Book(r.Context(), cand)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItem(committed))
}

// CreateBatch books a recurring series as one all-or-nothing group. The
// request carries the first occurrence plus a recurrence pattern; every
// expanded date becomes a candidate at the same time of day.
func (h *ReservationHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	base, err := req.candidate()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if base.StaffID == "" || base.Date == "" {
		http.Error(w, "staff_id and date required", http.StatusBadRequest)
		return
	}
	if req.Recurrence == nil {
		http.Error(w, "recurrence required", http.StatusBadRequest)
		return
	}

	pattern := recurrence.Pattern{
		Frequency: recurrence.Frequency(strings.TrimSpace(req.Recurrence.Frequency)),
		Interval:  req.Recurrence.Interval,
		Count:     req.Recurrence.OccurrenceCount,
	}
	if raw := strings.TrimSpace(req.Recurrence.EndDate); raw != "" {
		end, err := time.Parse(model.DateFormat, raw)
		if err != nil {
			http.Error(w, "invalid end_date", http.StatusBadRequest)
			return
		}
		pattern.EndDate = end
	}

	dates, err := recurrence.ExpandDates(base.Date, pattern, recurrence.DefaultHardCap)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	cands := make([]booking.Candidate, len(dates))
	for i, date := range dates {
		c := base
		c.Date = date
		cands[i] = c
	}

	committed, err := h.coord.BookBatch(r.Context(), cands)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]reservationItem, len(committed))
	for i, res := range committed {
		items[i] = toItem(res)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"reservations": items})
}

type rescheduleRequest struct {
	ReservationID   string  `json:"reservation_id"`
	StaffID         *string `json:"staff_id"`
	Date            *string `json:"date"`
	StartTime       *string `json:"start_time"`
	DurationMinutes *int    `json:"duration_minutes"`
	Notes           *string `json:"notes"`
	// DropPixelY reschedules via a grid drag-drop gesture instead of an
	// explicit time: the vertical position is snapped down to the nearest slot.
	DropPixelY *float64 `json:"drop_pixel_y"`
}

func (h *ReservationHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ReservationID = strings.TrimSpace(req.ReservationID)
	if req.ReservationID == "" {
		http.Error(w, "reservation_id required", http.StatusBadRequest)
		return
	}

	var patch booking.Patch
	if req.DropPixelY != nil {
		slot := h.projector.SlotFromDropPosition(*req.DropPixelY)
		start := slot.MinuteOfDay()
		patch.StartMinute = &start
	} else if req.StartTime != nil {
		startMinute, err := slots.ParseLabel(strings.TrimSpace(*req.StartTime))
		if err != nil {
			writeDomainError(w, &model.ValidationError{Field: "start_time", Reason: err.Error()})
			return
		}
		patch.StartMinute = &startMinute
	}
	patch.StaffID = req.StaffID
	patch.Date = req.Date
	patch.DurationMinutes = req.DurationMinutes
	patch.Notes = req.Notes

	updated, err := h.coord.Reschedule(r.Context(), req.ReservationID, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(updated))
}

type cancelRequest struct {
	ReservationID string `json:"reservation_id"`
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ReservationID = strings.TrimSpace(req.ReservationID)
	if req.ReservationID == "" {
		http.Error(w, "reservation_id required", http.StatusBadRequest)
		return
	}

	if err := h.coord.Cancel(r.Context(), req.ReservationID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reservation_id": req.ReservationID,
		"status":         string(model.StatusCancelled),
	})
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
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
	if _, err := time.Parse(model.DateFormat, date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	all, err := h.store.Reservations(r.Context(), staffID, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]reservationItem, 0, len(all))
	for _, res := range all {
		if res.Status == model.StatusCancelled {
			continue
		}
		items = append(items, toItem(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": items})
}
