package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/directory"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/grid"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

type GridHandler struct {
	store     booking.Store
	dir       directory.Resolver
	projector grid.Projector
	logger    *slog.Logger
}

func NewGridHandler(store booking.Store, dir directory.Resolver, projector grid.Projector, logger *slog.Logger) *GridHandler {
	return &GridHandler{store: store, dir: dir, projector: projector, logger: logger}
}

type gridCell struct {
	StartTime     string `json:"start_time"`
	RowOffset     int    `json:"row_offset"`
	ReservationID string `json:"reservation_id,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Status        string `json:"status,omitempty"`
	SpanSlots     int    `json:"span_slots,omitempty"`
	Continuation  bool   `json:"continuation,omitempty"`
	Bookable      bool   `json:"bookable"`
}

type gridColumn struct {
	StaffID   string     `json:"staff_id"`
	StaffName string     `json:"staff_name,omitempty"`
	Cells     []gridCell `json:"cells"`
}

type gridResponse struct {
	Date    string       `json:"date"`
	Columns []gridColumn `json:"columns"`
}

// Get renders the day view for the requested staff columns. The roster comes
// from the caller; the directory resolves each id so unknown staff fail fast
// instead of rendering an empty column.
func (h *GridHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		http.Error(w, "date required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(model.DateFormat, date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	var staffIDs []string
	for _, raw := range strings.Split(q.Get("staff"), ",") {
		if id := strings.TrimSpace(raw); id != "" {
			staffIDs = append(staffIDs, id)
		}
	}
	if len(staffIDs) == 0 {
		http.Error(w, "staff required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	staff := make([]model.StaffMember, 0, len(staffIDs))
	windows := make(map[string]model.WorkingWindow, len(staffIDs))
	reservations := make(map[string][]model.Reservation, len(staffIDs))

	for _, id := range staffIDs {
		member, err := h.dir.Staff(ctx, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		staff = append(staff, member)

		window, ok, err := h.store.Window(ctx, id, date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if ok {
			windows[id] = window
		}

		day, err := h.store.Reservations(ctx, id, date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		reservations[id] = day
	}

	projected := grid.Project(date, staff, windows, reservations)

	resp := gridResponse{Date: projected.Date, Columns: make([]gridColumn, 0, len(projected.Columns))}
	for _, col := range projected.Columns {
		out := gridColumn{
			StaffID:   col.Staff.ID,
			StaffName: col.Staff.Name,
			Cells:     make([]gridCell, len(col.Cells)),
		}
		for i, cell := range col.Cells {
			out.Cells[i] = gridCell{
				StartTime:     cell.Slot.Label(),
				RowOffset:     h.projector.RowOffset(cell.Slot),
				ReservationID: cell.ReservationID,
				Kind:          string(cell.Kind),
				Status:        string(cell.Status),
				SpanSlots:     cell.SpanSlots,
				Continuation:  cell.Continuation,
				Bookable:      cell.Bookable,
			}
		}
		resp.Columns = append(resp.Columns, out)
	}
	writeJSON(w, http.StatusOK, resp)
}
