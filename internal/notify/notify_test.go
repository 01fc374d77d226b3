package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
)

// recorded is one request seen by a fake receiver.
type recorded struct {
	header http.Header
	body   []byte
}

// newReceiver starts a server answering status and collecting requests.
func newReceiver(t *testing.T, status int) (*httptest.Server, func() []recorded) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []recorded
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mu.Lock()
		requests = append(requests, recorded{header: r.Header.Clone(), body: body})
		mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, func() []recorded {
		mu.Lock()
		defer mu.Unlock()

		return append([]recorded(nil), requests...)
	}
}

func sampleBatch() Batch {
	return NewBatch("svc-1",
		[]alarm.State{
			{Kind: alarm.MemoryUpperLimitGB, On: true},
			{Kind: alarm.CPULowerLimitVCPUs, On: false},
		},
		[]alarm.State{
			{Kind: alarm.MemoryUpperLimitGB, On: true},
			{Kind: alarm.DiskUpperLimitGB, On: true},
		},
	)
}

// TestBatch_Merged checks transitions are merged with active alarms once per kind.
func TestBatch_Merged(t *testing.T) {
	t.Parallel()

	batch := sampleBatch()
	require.NotEqual(t, batch.ID.String(), NewBatch("svc-1", nil, nil).ID.String())
	require.False(t, batch.Empty())
	require.True(t, NewBatch("svc-1", nil, batch.Active).Empty())

	require.Equal(t, []alarm.State{
		{Kind: alarm.CPULowerLimitVCPUs, On: false},
		{Kind: alarm.DiskUpperLimitGB, On: true},
		{Kind: alarm.MemoryUpperLimitGB, On: true},
	}, batch.Merged())
}

// TestWebhook_SignsPayload verifies the body and its HMAC signature.
func TestWebhook_SignsPayload(t *testing.T) {
	t.Parallel()

	server, requests := newReceiver(t, http.StatusOK)

	webhook, err := NewWebhook(server.URL, "alarm-token")
	require.NoError(t, err)

	batch := sampleBatch()
	require.NoError(t, webhook.Notify(context.Background(), batch))

	got := requests()
	require.Len(t, got, 1)
	require.Equal(t, Sign([]byte("alarm-token"), got[0].body), got[0].header.Get(SignatureHeader))
	require.Equal(t, "application/json", got[0].header.Get("Content-Type"))

	var payload webhookPayload
	require.NoError(t, json.Unmarshal(got[0].body, &payload))
	require.Equal(t, "svc-1", payload.ServiceID)
	require.Equal(t, batch.ID.String(), payload.ID)
	require.Equal(t, batch.Merged(), payload.Alarms)
	require.JSONEq(t, `{"alarm":"CPU_LOWER_LIMIT_VCPUS","on":false}`, mustJSON(t, payload.Alarms[0]))
}

// TestSign matches a known HMAC-SHA256 digest.
func TestSign(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		Sign([]byte("key"), []byte("The quick brown fox jumps over the lazy dog")))
}

// TestWebhook_StatusFailure reports non-200 answers.
func TestWebhook_StatusFailure(t *testing.T) {
	t.Parallel()

	server, _ := newReceiver(t, http.StatusAccepted)

	webhook, err := NewWebhook(server.URL, "alarm-token")
	require.NoError(t, err)

	err = webhook.Notify(context.Background(), sampleBatch())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusAccepted, statusErr.Code)

	_, err = NewWebhook("", "alarm-token")
	require.ErrorIs(t, err, ErrEmptyURL)

	_, err = NewWebhook(server.URL, "")
	require.ErrorIs(t, err, ErrEmptySecret)
}

// TestPagerDuty_Events checks one event per transition with action and dedup key.
func TestPagerDuty_Events(t *testing.T) {
	t.Parallel()

	server, requests := newReceiver(t, http.StatusAccepted)

	pd, err := NewPagerDuty(PagerDutyConfig{
		BaseURL:    server.URL + "/",
		Token:      "pd-token",
		Source:     "railway",
		RoutingKey: "routing",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, pd.Notify(context.Background(), sampleBatch()))

	got := requests()
	require.Len(t, got, 2)

	var events [2]pagerDutyEvent
	for i := range got {
		require.Equal(t, "Bearer pd-token", got[i].header.Get("Authorization"))
		require.NoError(t, json.Unmarshal(got[i].body, &events[i]))
	}

	require.Equal(t, "trigger", events[0].EventAction)
	require.Equal(t, "svc-1-MEMORY_UPPER_LIMIT_GB", events[0].DedupKey)
	require.Equal(t, "routing", events[0].RoutingKey)
	require.Equal(t, "MEMORY_UPPER_LIMIT_GB", events[0].Payload.Class)
	require.Equal(t, "resolve", events[1].EventAction)
	require.Equal(t, "svc-1-CPU_LOWER_LIMIT_VCPUS", events[1].DedupKey)
}

// stubNotifier records batches and returns err.
type stubNotifier struct {
	batches []Batch
	err     error
}

func (s *stubNotifier) Notify(_ context.Context, batch Batch) error {
	s.batches = append(s.batches, batch)

	return s.err
}

// TestMulti_FansOut verifies every notifier is called even after a failure.
func TestMulti_FansOut(t *testing.T) {
	t.Parallel()

	failing := &stubNotifier{err: errors.New("boom")}
	healthy := new(stubNotifier)

	multi := NewMulti(failing, nil, healthy)
	require.Equal(t, 2, multi.Len())

	err := multi.Notify(context.Background(), sampleBatch())
	require.ErrorIs(t, err, failing.err)
	require.Len(t, failing.batches, 1)
	require.Len(t, healthy.batches, 1)

	require.NoError(t, multi.Notify(context.Background(), NewBatch("svc-1", nil, nil)))
	require.Len(t, healthy.batches, 1)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return string(data)
}
