package directory

import (
	"context"
	"testing"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

func TestDeterministicID_Stable(t *testing.T) {
	a := DeterministicID("phorest:staff:42")
	b := DeterministicID("phorest:staff:42")
	if a != b {
		t.Fatalf("same external id produced different UUIDs: %s vs %s", a, b)
	}
	if a == DeterministicID("phorest:staff:43") {
		t.Fatal("different external ids produced the same UUID")
	}
	if len(a) != 36 {
		t.Fatalf("expected canonical UUID string, got %q", a)
	}
}

func TestStatic_Resolution(t *testing.T) {
	ctx := context.Background()
	dir := NewStatic(
		[]model.StaffMember{{ID: "st-1", Name: "Dana", Specialty: "color", Role: "stylist"}},
		[]string{"cust-1"},
		[]string{"svc-1"},
	)

	staff, err := dir.Staff(ctx, "st-1")
	if err != nil {
		t.Fatalf("staff: %v", err)
	}
	if staff.Name != "Dana" {
		t.Fatalf("unexpected staff: %+v", staff)
	}

	if _, err := dir.Staff(ctx, "st-9"); !model.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	ok, err := dir.CustomerExists(ctx, "cust-1")
	if err != nil || !ok {
		t.Fatalf("expected cust-1 to exist, ok=%v err=%v", ok, err)
	}
	ok, _ = dir.CustomerExists(ctx, "cust-2")
	if ok {
		t.Fatal("cust-2 should not exist")
	}
}

func TestPermissive_AcceptsAnyRef(t *testing.T) {
	ctx := context.Background()
	dir := NewPermissive([]model.StaffMember{{ID: "st-1"}})

	ok, _ := dir.CustomerExists(ctx, "anyone")
	if !ok {
		t.Fatal("permissive resolver should accept any customer ref")
	}
	if _, err := dir.Staff(ctx, "st-2"); !model.IsNotFound(err) {
		t.Fatal("staff lookups still require a seed entry")
	}
}
