package directory

import (
	"context"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

// Static resolves against a fixed seed. It backs tests and DB-less dev runs;
// production deployments use the gRPC resolver instead.
type Static struct {
	staff     map[string]model.StaffMember
	customers map[string]struct{}
	services  map[string]struct{}
	// permissive makes every customer/service ref resolve. Staff lookups
	// still require a seed entry, since staff identity drives partitioning.
	permissive bool
}

func NewStatic(staff []model.StaffMember, customers, services []string) *Static {
	s := &Static{
		staff:     make(map[string]model.StaffMember, len(staff)),
		customers: make(map[string]struct{}, len(customers)),
		services:  make(map[string]struct{}, len(services)),
	}
	for _, m := range staff {
		s.staff[m.ID] = m
	}
	for _, c := range customers {
		s.customers[c] = struct{}{}
	}
	for _, sv := range services {
		s.services[sv] = struct{}{}
	}
	return s
}

// NewPermissive returns a Static that accepts any customer/service ref.
func NewPermissive(staff []model.StaffMember) *Static {
	s := NewStatic(staff, nil, nil)
	s.permissive = true
	return s
}

func (s *Static) Staff(_ context.Context, staffID string) (model.StaffMember, error) {
	m, ok := s.staff[staffID]
	if !ok {
		return model.StaffMember{}, &model.NotFoundError{Resource: "staff", Ref: staffID}
	}
	return m, nil
}

func (s *Static) CustomerExists(_ context.Context, customerRef string) (bool, error) {
	if s.permissive {
		return true, nil
	}
	_, ok := s.customers[customerRef]
	return ok, nil
}

func (s *Static) ServiceExists(_ context.Context, serviceRef string) (bool, error) {
	if s.permissive {
		return true, nil
	}
	_, ok := s.services[serviceRef]
	return ok, nil
}
