package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/version"
)

// HTTP probes URLs with GET requests.
type HTTP struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures an HTTP prober.
type Option func(*HTTP)

// WithHTTPClient replaces the client used for probing.
func WithHTTPClient(client *http.Client) Option {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithTimeout bounds every probe.
func WithTimeout(timeout time.Duration) Option {
	return func(h *HTTP) {
		h.timeout = timeout
	}
}

// New creates an HTTP prober.
func New(opts ...Option) *HTTP {
	h := &HTTP{client: new(http.Client)}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Reachable reports whether url answered 200. Every failure, including a
// cancelled context, counts as unreachable.
func (h *HTTP) Reachable(ctx context.Context, url string) bool {
	if h.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logger.DebugKV(ctx, "Health check request is invalid", "url", url, "error", err)

		return false
	}

	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := h.client.Do(req)
	if err != nil {
		logger.DebugKV(ctx, "Health check failed", "url", url, "error", err)

		return false
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	logger.DebugKV(ctx, "Health check answered", "url", url, "status", resp.StatusCode)

	return resp.StatusCode == http.StatusOK
}
