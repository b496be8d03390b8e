//go:build protogen

package directory

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookwell/bookwell/libs/grpcx"
	directoryv1 "github.com/bookwell/bookwell/protos/gen/directory/v1"
	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type grpcResolver struct {
	client directoryv1.DirectoryServiceClient
}

// NewResolver dials the directory service. If addr is empty or the dial
// fails, the static seed serves as fallback so the engine stays bookable.
func NewResolver(logger *slog.Logger, seed []model.StaffMember, addr string) (Resolver, error) {
	if addr == "" {
		return NewPermissive(seed), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		logger.Warn("directory resolver unavailable, using static seed", "err", err)
		return NewPermissive(seed), nil
	}

	logger.Info("grpc directory resolver enabled", "addr", addr)
	return &grpcResolver{client: directoryv1.NewDirectoryServiceClient(conn)}, nil
}

func (r *grpcResolver) Staff(ctx context.Context, staffID string) (model.StaffMember, error) {
	resp, err := r.client.GetStaff(ctx, &directoryv1.StaffRequest{StaffId: staffID})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.StaffMember{}, &model.NotFoundError{Resource: "staff", Ref: staffID}
		}
		return model.StaffMember{}, err
	}
	return model.StaffMember{
		ID:        resp.GetStaffId(),
		Name:      resp.GetName(),
		Specialty: resp.GetSpecialty(),
		Role:      resp.GetRole(),
	}, nil
}

func (r *grpcResolver) CustomerExists(ctx context.Context, customerRef string) (bool, error) {
	_, err := r.client.GetCustomer(ctx, &directoryv1.CustomerRequest{CustomerRef: customerRef})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *grpcResolver) ServiceExists(ctx context.Context, serviceRef string) (bool, error) {
	_, err := r.client.GetService(ctx, &directoryv1.ServiceRequest{ServiceRef: serviceRef})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
