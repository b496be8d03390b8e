//go:build !protogen

package directory

import (
	"log/slog"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

// NewResolver returns the directory resolver for this build. Without the
// protogen build tag the gRPC client is unavailable, so the static seed is
// used regardless of addr.
func NewResolver(logger *slog.Logger, seed []model.StaffMember, addr string) (Resolver, error) {
	if addr != "" {
		logger.Warn("directory grpc resolver requires the protogen build; using static seed", "addr", addr)
	}
	return NewPermissive(seed), nil
}
