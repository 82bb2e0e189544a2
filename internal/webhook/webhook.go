// Package webhook delivers scan outcomes to operator-configured URLs.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

const (
	// DefaultTimeout bounds one delivery when Config.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	// DeliveryHeader carries a unique id per delivery attempt.
	DeliveryHeader = "X-Portunus-Delivery"

	EventScanGranted = "scan.granted"
	EventScanDenied  = "scan.denied"
)

// ErrStatus is wrapped by every non-2xx response.
var ErrStatus = errors.New("unexpected webhook status")

type Config struct {
	Timeout time.Duration
}

// Payload is the JSON body posted to the webhook URL.
type Payload struct {
	Event          string          `json:"event"`
	ScanEventID    string          `json:"scan_event_id"`
	AccessPointID  string          `json:"access_point_id"`
	LocationID     string          `json:"location_id"`
	OrganizationID string          `json:"organization_id"`
	UserID         string          `json:"user_id"`
	Granted        bool            `json:"granted"`
	GrantType      types.GrantType `json:"grant_type"`
	Timestamp      string          `json:"timestamp"`
}

// Notifier implements service.Notifier with a single POST per event.
type Notifier struct {
	http    *http.Client
	timeout time.Duration
}

func New(cfg Config) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// NewPayload builds the delivery body for ev.
func NewPayload(ev types.ScanEvent) Payload {
	event := EventScanDenied
	if ev.Granted {
		event = EventScanGranted
	}
	return Payload{
		Event:          event,
		ScanEventID:    ev.ID,
		AccessPointID:  ev.AccessPointID,
		LocationID:     ev.LocationID,
		OrganizationID: ev.OrganizationID,
		UserID:         ev.UserID,
		Granted:        ev.Granted,
		GrantType:      ev.GrantType,
		Timestamp:      ev.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (n *Notifier) Notify(ctx context.Context, hook types.Webhook, ev types.ScanEvent) error {
	body, err := json.Marshal(NewPayload(ev))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeliveryHeader, uuid.NewString())

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}
	return nil
}
