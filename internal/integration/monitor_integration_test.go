package integration

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/usage-alarms/internal/notify"
	"github.com/oshokin/usage-alarms/internal/service/common"
	"github.com/oshokin/usage-alarms/internal/service/monitor"
)

// delivery is one request received by a fake notification target.
type delivery struct {
	path      string
	signature string
	body      []byte
}

// freeAddress reserves a loopback port and releases it for the monitor.
func freeAddress(t *testing.T) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // Test code needs simple net.Listen for port allocation.
	require.NoError(t, err)

	address := lis.Addr().String()
	require.NoError(t, lis.Close())

	return address
}

// newRailway answers every usage query with a busy CPU for svc-1.
func newRailway(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"usage":[
			{"measurement":"CPU_USAGE","value":3,"tags":{"serviceId":"svc-1"}},
			{"measurement":"MEMORY_USAGE_GB","value":0.5,"tags":{"serviceId":"svc-1"}}
		]}}`)
	}))
	t.Cleanup(server.Close)

	return server
}

// newTarget records deliveries on a channel and answers with status.
func newTarget(t *testing.T, status int) (*httptest.Server, <-chan delivery) {
	t.Helper()

	deliveries := make(chan delivery, 16)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		deliveries <- delivery{
			path:      r.URL.Path,
			signature: r.Header.Get(notify.SignatureHeader),
			body:      body,
		}

		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, deliveries
}

// receive waits for the next delivery.
func receive(t *testing.T, deliveries <-chan delivery) delivery {
	t.Helper()

	select {
	case d := <-deliveries:
		return d
	case <-time.After(10 * time.Second):
		t.Fatal("no delivery received")

		return delivery{}
	}
}

// TestMonitor_FirstTickRaisesAlarm runs the real monitor and checks the first
// tick raises the CPU alarm, notifies both targets and is reported by the
// status API.
func TestMonitor_FirstTickRaisesAlarm(t *testing.T) {
	railway := newRailway(t)
	webhook, webhookDeliveries := newTarget(t, http.StatusOK)
	pagerDuty, pagerDutyDeliveries := newTarget(t, http.StatusAccepted)
	statusAddress := freeAddress(t)

	t.Setenv("RAILWAY_API_TOKEN", "api-token")
	t.Setenv("RAILWAY_API_URL", railway.URL)
	t.Setenv("ALARM_TOKEN", "secret")
	t.Setenv("RAILWAY_PROJECT_ID", "project-1")
	t.Setenv("RAILWAY_SERVICE_ID", "svc-1")
	t.Setenv("STATUS_ADDR", statusAddress)
	t.Setenv("WEB_HOOK_URL", webhook.URL+"/alarms")
	t.Setenv("PAGER_DUTY_URL", pagerDuty.URL)
	t.Setenv("PAGER_DUTY_TOKEN", "pd-token")
	t.Setenv("PAGER_DUTY_SOURCE", "railway")
	t.Setenv("PAGER_DUTY_ROUTING_KEY", "routing")
	t.Setenv("DATA_POINTS", "1")
	t.Setenv("DATA_POINTS_TO_ALARM", "1")
	t.Setenv("CPU_UPPER_LIMIT_VCPUS", "0.5")
	t.Setenv("MEMORY_UPPER_LIMIT_GB", "8")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- monitor.Run(ctx, &monitor.Options{
			ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
			LogLevel:   "error",
		})
	}()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	// PagerDuty is notified before the webhook.
	event := receive(t, pagerDutyDeliveries)
	require.Equal(t, "/v2/enqueue", event.path)
	require.Contains(t, string(event.body), `"dedup_key":"svc-1-CPU_UPPER_LIMIT_VCPUS"`)
	require.Contains(t, string(event.body), `"event_action":"trigger"`)

	hook := receive(t, webhookDeliveries)
	require.Equal(t, "/alarms", hook.path)
	require.Equal(t, notify.Sign([]byte("secret"), hook.body), hook.signature)

	var payload struct {
		ID        string `json:"id"`
		ServiceID string `json:"serviceId"`
		Alarms    []struct {
			Alarm string `json:"alarm"`
			On    bool   `json:"on"`
		} `json:"alarms"`
	}

	require.NoError(t, json.Unmarshal(hook.body, &payload))
	require.NotEmpty(t, payload.ID)
	require.Equal(t, "svc-1", payload.ServiceID)
	require.Len(t, payload.Alarms, 1)
	require.Equal(t, "CPU_UPPER_LIMIT_VCPUS", payload.Alarms[0].Alarm)
	require.True(t, payload.Alarms[0].On)

	client, err := common.Dial(ctx, statusAddress, common.WithCallTimeout(5*time.Second))
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	// The status server may still be starting.
	require.Eventually(t, func() bool {
		snapshot, err := client.GetStatus(ctx)
		if err != nil {
			return false
		}

		alarms := snapshot.GetFields()["alarms"].GetListValue().GetValues()
		if len(alarms) != 2 {
			return false
		}

		cpu := alarms[0].GetStructValue().GetFields()
		memory := alarms[1].GetStructValue().GetFields()

		return cpu["alarm"].GetStringValue() == "CPU_UPPER_LIMIT_VCPUS" && cpu["on"].GetBoolValue() &&
			memory["alarm"].GetStringValue() == "MEMORY_UPPER_LIMIT_GB" && !memory["on"].GetBoolValue()
	}, 10*time.Second, 50*time.Millisecond)
}
