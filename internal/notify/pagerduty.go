package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/oshokin/usage-alarms/internal/logger"
)

// PagerDuty event actions.
const (
	actionTrigger = "trigger"
	actionResolve = "resolve"
)

// PagerDutyConfig holds the settings of a PagerDuty notifier.
type PagerDutyConfig struct {
	// BaseURL is the events API address; /v2/enqueue is appended.
	BaseURL    string
	Token      string
	Source     string
	RoutingKey string
}

// PagerDuty sends one Events v2 event per transition.
type PagerDuty struct {
	cfg    PagerDutyConfig
	url    string
	client *http.Client
}

type pagerDutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	Payload     pagerDutyPayload `json:"payload"`
	DedupKey    string           `json:"dedup_key"`
	EventAction string           `json:"event_action"`
}

type pagerDutyPayload struct {
	Source   string `json:"source"`
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Class    string `json:"class"`
}

// NewPagerDuty creates a PagerDuty notifier.
func NewPagerDuty(cfg PagerDutyConfig, client *http.Client) (*PagerDuty, error) {
	if cfg.BaseURL == "" {
		return nil, ErrEmptyURL
	}

	if client == nil {
		client = new(http.Client)
	}

	return &PagerDuty{
		cfg:    cfg,
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/v2/enqueue",
		client: client,
	}, nil
}

// Notify enqueues a trigger for every alarm that switched ON and a resolve
// for every alarm that switched OFF. It stops at the first failure.
func (p *PagerDuty) Notify(ctx context.Context, batch Batch) error {
	logger.InfoKV(ctx, "Sending actions to PagerDuty", "url", p.url)

	for _, state := range batch.Changed {
		action := actionResolve
		if state.On {
			action = actionTrigger
		}

		body, err := json.Marshal(pagerDutyEvent{
			RoutingKey: p.cfg.RoutingKey,
			Payload: pagerDutyPayload{
				Source:   p.cfg.Source,
				Severity: "error",
				Summary:  fmt.Sprintf("Railway Alarm %s breached for %s: %s", state.Kind, p.cfg.Source, batch.ServiceID),
				Class:    state.Kind.String(),
			},
			DedupKey:    batch.ServiceID + "-" + state.Kind.String(),
			EventAction: action,
		})
		if err != nil {
			return fmt.Errorf("marshal pager duty event: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create pager duty request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)

		if err = send(p.client, req, http.StatusOK, http.StatusAccepted); err != nil {
			return fmt.Errorf("pager duty %s %s: %w", action, state.Kind, err)
		}
	}

	return nil
}
