package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/booking"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/directory"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/grid"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/storage"
)

func testHandlers(t *testing.T) (*ReservationHandler, *WindowHandler, *GridHandler, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	dir := directory.NewPermissive([]model.StaffMember{
		{ID: "st-1", Name: "Dana"},
		{ID: "st-2", Name: "Ira"},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := booking.NewCoordinator(store, dir, booking.NopNotifier{}, logger, booking.Config{})
	projector := grid.NewProjector(2)

	ctx := context.Background()
	for _, staffID := range []string{"st-1", "st-2"} {
		if err := store.PutWindow(ctx, model.WorkingWindow{
			StaffID: staffID, Date: "2030-05-01",
			StartMinute: 9 * 60, EndMinute: 18 * 60, Available: true,
		}); err != nil {
			t.Fatalf("seed window: %v", err)
		}
	}

	return NewReservationHandler(coord, store, projector, logger),
		NewWindowHandler(store, dir, logger),
		NewGridHandler(store, dir, projector, logger),
		store
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestCreateReservation(t *testing.T) {
	rh, _, _, _ := testHandlers(t)

	rec := postJSON(t, rh.Create, `{
		"staff_id": "st-1", "date": "2030-05-01",
		"start_time": "10:00", "duration_minutes": 30,
		"customer_ref": "cust-1", "service_ref": "svc-1"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var item reservationItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.ReservationID == "" || item.Status != "confirmed" || item.StartTime != "10:00" {
		t.Fatalf("unexpected response: %+v", item)
	}
}

func TestCreateReservation_Conflict(t *testing.T) {
	rh, _, _, _ := testHandlers(t)

	body := `{
		"staff_id": "st-1", "date": "2030-05-01",
		"start_time": "10:00", "duration_minutes": 60,
		"customer_ref": "cust-1"
	}`
	if rec := postJSON(t, rh.Create, body); rec.Code != http.StatusCreated {
		t.Fatalf("first booking: %d", rec.Code)
	}

	rec := postJSON(t, rh.Create, `{
		"staff_id": "st-1", "date": "2030-05-01",
		"start_time": "10:30", "duration_minutes": 30,
		"customer_ref": "cust-2"
	}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var body409 conflictBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body409); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body409.StartMinute != 10*60 || body409.DurationMinutes != 60 {
		t.Fatalf("conflict body should name the colliding interval: %+v", body409)
	}
}

func TestCreateReservation_BadInput(t *testing.T) {
	rh, _, _, _ := testHandlers(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `{{{`, http.StatusBadRequest},
		{"missing staff", `{"date":"2030-05-01","start_time":"10:00","duration_minutes":30}`, http.StatusBadRequest},
		{"bad time", `{"staff_id":"st-1","date":"2030-05-01","start_time":"ten","duration_minutes":30}`, http.StatusBadRequest},
		{"misaligned", `{"staff_id":"st-1","date":"2030-05-01","start_time":"10:07","duration_minutes":30,"customer_ref":"c"}`, http.StatusBadRequest},
		{"unknown staff", `{"staff_id":"st-9","date":"2030-05-01","start_time":"10:00","duration_minutes":30,"customer_ref":"c"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, rh.Create, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateBatch_Recurring(t *testing.T) {
	rh, wh, _, _ := testHandlers(t)

	// Extend windows over the series.
	for _, date := range []string{"2030-05-08", "2030-05-15", "2030-05-22"} {
		rec := postJSON(t, wh.Put, `{
			"staff_id": "st-1", "date": "`+date+`",
			"start_time": "09:00", "end_time": "18:00"
		}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("put window %s: %d", date, rec.Code)
		}
	}

	rec := postJSON(t, rh.CreateBatch, `{
		"staff_id": "st-1", "date": "2030-05-01",
		"start_time": "10:00", "duration_minutes": 60,
		"customer_ref": "cust-1",
		"recurrence": {"frequency": "weekly", "interval": 1, "occurrence_count": 4}
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Reservations []reservationItem `json:"reservations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Reservations) != 4 {
		t.Fatalf("expected 4 reservations, got %d", len(resp.Reservations))
	}
	wantDates := []string{"2030-05-01", "2030-05-08", "2030-05-15", "2030-05-22"}
	for i, item := range resp.Reservations {
		if item.Date != wantDates[i] {
			t.Fatalf("occurrence %d: expected %s, got %s", i, wantDates[i], item.Date)
		}
	}
}

func TestCreateBatch_ConflictRollsBack(t *testing.T) {
	rh, wh, _, store := testHandlers(t)

	for _, date := range []string{"2030-05-08", "2030-05-15"} {
		rec := postJSON(t, wh.Put, `{
			"staff_id": "st-1", "date": "`+date+`",
			"start_time": "09:00", "end_time": "18:00"
		}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("put window %s: %d", date, rec.Code)
		}
	}

	// Blocker on the third occurrence.
	if rec := postJSON(t, rh.Create, `{
		"staff_id": "st-1", "date": "2030-05-15",
		"start_time": "10:00", "duration_minutes": 60,
		"customer_ref": "cust-9"
	}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed blocker: %d", rec.Code)
	}

	rec := postJSON(t, rh.CreateBatch, `{
		"staff_id": "st-1", "date": "2030-05-01",
		"start_time": "10:00", "duration_minutes": 60,
		"customer_ref": "cust-1",
		"recurrence": {"frequency": "weekly", "interval": 1, "occurrence_count": 3}
	}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var body conflictBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Index == nil || *body.Index != 2 || body.Date != "2030-05-15" {
		t.Fatalf("conflict body should name occurrence 3: %+v", body)
	}

	// Earlier occurrences were rolled back.
	for _, date := range []string{"2030-05-01", "2030-05-08"} {
		all, _ := store.Reservations(context.Background(), "st-1", date)
		for _, r := range all {
			if r.Status == model.StatusConfirmed {
				t.Fatalf("%s: occurrence survived a failed batch", date)
			}
		}
	}
}

func TestRescheduleByDrop(t *testing.T) {
	rh, _, _, _ := testHandlers(t)

	rec := postJSON(t, rh.Create, `{
		"staff_id": "st-1", "date": "2030-05-01",
		"start_time": "09:00", "duration_minutes": 30,
		"customer_ref": "cust-1"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	var created reservationItem
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// At 2 px/min a drop at y=254 is 10:07, which snaps down to 10:00.
	rec = postJSON(t, rh.Reschedule, `{
		"reservation_id": "`+created.ReservationID+`",
		"drop_pixel_y": 254
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reschedule: %d: %s", rec.Code, rec.Body.String())
	}
	var moved reservationItem
	if err := json.Unmarshal(rec.Body.Bytes(), &moved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if moved.StartTime != "10:00" {
		t.Fatalf("drop should snap to 10:00, got %s", moved.StartTime)
	}
}

func TestCancelReservation(t *testing.T) {
	rh, _, _, _ := testHandlers(t)

	rec := postJSON(t, rh.Create, `{
		"staff_id": "st-1", "date": "2030-05-01",
		"start_time": "10:00", "duration_minutes": 30,
		"customer_ref": "cust-1"
	}`)
	var created reservationItem
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	body := `{"reservation_id": "` + created.ReservationID + `"}`
	if rec := postJSON(t, rh.Cancel, body); rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d", rec.Code)
	}
	// Idempotent.
	if rec := postJSON(t, rh.Cancel, body); rec.Code != http.StatusOK {
		t.Fatalf("second cancel: %d", rec.Code)
	}
	if rec := postJSON(t, rh.Cancel, `{"reservation_id": "missing"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("cancel missing: %d", rec.Code)
	}
}

func TestOpenSlots(t *testing.T) {
	rh, wh, _, _ := testHandlers(t)

	if rec := postJSON(t, rh.Create, `{
		"staff_id": "st-1", "date": "2030-05-01",
		"start_time": "09:00", "duration_minutes": 60,
		"customer_ref": "cust-1"
	}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet,
		"/?staff_id=st-1&date=2030-05-01&duration_minutes=30", nil)
	rec := httptest.NewRecorder()
	wh.OpenSlots(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("open slots: %d", rec.Code)
	}

	var resp struct {
		Slots []openSlotItem `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Window 09:00-18:00 with 09:00-10:00 taken: 30-minute fits run from
	// 10:00 through 17:30, every 15 minutes.
	if len(resp.Slots) == 0 {
		t.Fatal("expected open slots")
	}
	if resp.Slots[0].StartTime != "10:00" {
		t.Fatalf("first open slot should be 10:00, got %s", resp.Slots[0].StartTime)
	}
	for _, s := range resp.Slots {
		if s.StartMinute < 10*60 || s.StartMinute+30 > 18*60 {
			t.Fatalf("slot %s outside the free range", s.StartTime)
		}
	}
}

func TestGrid(t *testing.T) {
	rh, _, gh, _ := testHandlers(t)

	if rec := postJSON(t, rh.Create, `{
		"staff_id": "st-1", "date": "2030-05-01",
		"start_time": "10:00", "duration_minutes": 45,
		"customer_ref": "cust-1"
	}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/?date=2030-05-01&staff=st-1,st-2", nil)
	rec := httptest.NewRecorder()
	gh.Get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("grid: %d: %s", rec.Code, rec.Body.String())
	}

	var resp gridResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(resp.Columns))
	}

	col := resp.Columns[0]
	if col.StaffID != "st-1" {
		t.Fatalf("expected st-1 first, got %s", col.StaffID)
	}
	// 10:00 is row 8 from the 08:00 open.
	cell := col.Cells[8]
	if cell.StartTime != "10:00" || cell.ReservationID == "" || cell.SpanSlots != 3 {
		t.Fatalf("unexpected 10:00 cell: %+v", cell)
	}
	if !col.Cells[9].Continuation {
		t.Fatal("10:15 should be a continuation cell")
	}
	if col.Cells[8].Bookable {
		t.Fatal("occupied cell must not be bookable")
	}
	// Second staff member has a window and no bookings.
	if !resp.Columns[1].Cells[8].Bookable {
		t.Fatal("free in-window cell must be bookable")
	}
}

func TestGrid_UnknownStaff(t *testing.T) {
	_, _, gh, _ := testHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/?date=2030-05-01&staff=st-9", nil)
	rec := httptest.NewRecorder()
	gh.Get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
