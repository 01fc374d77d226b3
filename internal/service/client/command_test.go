package client

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	api "github.com/oshokin/usage-alarms/internal/api/grpc/status"
	"github.com/oshokin/usage-alarms/internal/domain/alarm"
)

// staticSource serves one snapshot.
type staticSource struct {
	snapshot *alarm.Snapshot
}

func (s staticSource) Snapshot() *alarm.Snapshot { return s.snapshot.Clone() }

// startStatusServer serves snapshot on a loopback port and returns its address.
func startStatusServer(t *testing.T, snapshot *alarm.Snapshot) string {
	t.Helper()

	lc := net.ListenConfig{}

	lis, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	api.RegisterStatusServer(server, api.NewServer(staticSource{snapshot: snapshot}))

	go func() {
		_ = server.Serve(lis)
	}()

	t.Cleanup(server.Stop)

	return lis.Addr().String()
}

// TestRun_PrintsSnapshot prints the snapshot as JSON.
func TestRun_PrintsSnapshot(t *testing.T) {
	t.Parallel()

	address := startStatusServer(t, &alarm.Snapshot{
		ServiceID: "svc-1",
		UpdatedAt: time.Date(2024, 5, 1, 10, 2, 0, 0, time.UTC),
		Alarms: []*alarm.Status{
			{Kind: alarm.HealthCheckFailed, On: true, Window: []bool{true}, BreachCount: 1},
		},
	})

	var out bytes.Buffer

	err := Run(context.Background(), &Options{Address: address, Timeout: 5 * time.Second, Out: &out})
	require.NoError(t, err)
	require.Contains(t, out.String(), `"svc-1"`)
	require.Contains(t, out.String(), `"HEALTH_CHECK_FAILED"`)
}

// TestRun_NotReady surfaces the Unavailable error before the first tick.
func TestRun_NotReady(t *testing.T) {
	t.Parallel()

	address := startStatusServer(t, &alarm.Snapshot{ServiceID: "svc-1"})

	err := Run(context.Background(), &Options{Address: address, Timeout: 5 * time.Second, Out: new(bytes.Buffer)})
	require.ErrorContains(t, err, "no tick completed yet")
}
