package status

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/usage-alarms/internal/domain/alarm"
	"github.com/oshokin/usage-alarms/internal/logger"
)

// Source provides the snapshot served to clients.
type Source interface {
	Snapshot() *domain.Snapshot
}

// Server implements StatusServer on top of a Source.
type Server struct {
	// source provides the latest alarm snapshot.
	source Source
}

// NewServer wires source into a gRPC handler.
func NewServer(source Source) *Server {
	return &Server{
		source: source,
	}
}

// GetStatus returns the latest snapshot. It fails with Unavailable until
// the engine has finished its first tick.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot := s.source.Snapshot()

	logger.DebugKV(ctx, "Alarm status requested", "requested_by", requester(ctx))

	if snapshot == nil || snapshot.UpdatedAt.IsZero() {
		return nil, grpcstatus.Error(codes.Unavailable, "no tick completed yet")
	}

	result, err := ToStruct(snapshot)
	if err != nil {
		return nil, grpcstatus.Error(codes.Internal, "unable to encode status")
	}

	return result, nil
}

// requester reads the requester name from the incoming metadata.
func requester(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if values := md.Get(RequesterHeader); len(values) > 0 {
		return values[0]
	}

	return ""
}

// ToStruct converts a snapshot into its wire form.
func ToStruct(snapshot *domain.Snapshot) (*structpb.Struct, error) {
	alarms := make([]any, 0, len(snapshot.Alarms))

	for _, status := range snapshot.Alarms {
		window := make([]any, 0, len(status.Window))
		for _, breach := range status.Window {
			window = append(window, breach)
		}

		entry := map[string]any{
			"alarm":             string(status.Kind),
			"on":                status.On,
			"window":            window,
			"breachCount":       status.BreachCount,
			"value":             status.Config.Value,
			"periodMinutes":     int(status.Config.PeriodMinutes),
			"dataPoints":        int(status.Config.DataPoints),
			"dataPointsToAlarm": int(status.Config.DataPointsToAlarm),
		}

		if !status.ChangedAt.IsZero() {
			entry["changedAt"] = formatTime(status.ChangedAt)
		}

		alarms = append(alarms, entry)
	}

	return structpb.NewStruct(map[string]any{
		"serviceId": snapshot.ServiceID,
		"window":    formatTime(snapshot.Anchor),
		"updatedAt": formatTime(snapshot.UpdatedAt),
		"alarms":    alarms,
	})
}

// formatTime renders t in UTC the way protobuf JSON renders a Timestamp.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
