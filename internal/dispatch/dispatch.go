package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/gator-taxi/internal/models"
)

// Notifier is told about every dispatched ride.
type Notifier interface {
	Notify(ctx context.Context, ride models.Ride) error
}

// WebhookDispatcher posts dispatched rides to an HTTP endpoint.
type WebhookDispatcher struct {
	Endpoint string
	Client   *http.Client
}

func NewWebhookDispatcher(endpoint string) *WebhookDispatcher {
	return &WebhookDispatcher{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (d *WebhookDispatcher) Notify(ctx context.Context, ride models.Ride) error {
	b, err := json.Marshal(map[string]any{"event": "ride_dispatched", "ride": ride})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: status %d", d.Endpoint, resp.StatusCode)
	}
	return nil
}

// WSNotifier adapts a WSRegistry to Notifier.
type WSNotifier struct{ Registry *WSRegistry }

func (n WSNotifier) Notify(ctx context.Context, ride models.Ride) error {
	n.Registry.Broadcast(ride)
	return nil
}

// Handler forwards dispatched events to every notifier. Other event types
// are ignored.
type Handler struct {
	Notifiers []Notifier
}

func (h Handler) Handle(ctx context.Context, ev models.RideEvent) error {
	if ev.Type != models.EventDispatched {
		return nil
	}
	var first error
	for _, n := range h.Notifiers {
		if err := n.Notify(ctx, ev.Ride); err != nil && first == nil {
			first = err
		}
	}
	return first
}
