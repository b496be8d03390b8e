// Package directory is the boundary to the staff/customer/service directory
// collaborator. The scheduling engine stores opaque identifiers and validates
// existence here; it never owns directory records.
package directory

import (
	"context"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"github.com/google/uuid"
)

type Resolver interface {
	Staff(ctx context.Context, staffID string) (model.StaffMember, error)
	CustomerExists(ctx context.Context, customerRef string) (bool, error)
	ServiceExists(ctx context.Context, serviceRef string) (bool, error)
}

// Namespace anchors the deterministic mapping from external directory
// identifiers to engine-side UUIDs. It must never change once reservations
// reference derived ids.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://bookwell.dev/directory"))

// DeterministicID maps an external directory identifier to a stable UUID.
// The mapping is pure: the same external id always yields the same UUID, so
// collaborator records can be re-resolved without a lookup table.
func DeterministicID(externalID string) string {
	return uuid.NewSHA1(Namespace, []byte(externalID)).String()
}
