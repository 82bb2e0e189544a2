package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/metrics"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/cardrange"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

var (
	ErrInvalidRequest = errors.New("locationId, accessPointId and apiKey are required")
	ErrUnauthorized   = errors.New("invalid api key")
)

// DefaultEventRetention is how long scan events are kept when no retention
// is configured.
const DefaultEventRetention = 30 * 24 * time.Hour

//go:generate mockgen -source=access_service.go -destination=mocks/notifier.gen.go -package=mocks

// Notifier delivers a decided scan to an operator webhook.
type Notifier interface {
	Notify(ctx context.Context, hook types.Webhook, ev types.ScanEvent) error
}

type Dependencies struct {
	Logger    *slog.Logger
	Directory store.Directory
	Events    store.ScanEventStore
	Stats     store.StatsStore
	Roles     RoleProvider
	Notifier  Notifier
	Metrics   *metrics.Metrics

	// EventRetention sets ScanEvent.ExpiresAt. Zero means DefaultEventRetention.
	EventRetention time.Duration

	// Now and NewID default to time.Now and a nanoid generator.
	Now   func() time.Time
	NewID func() (string, error)
}

// AccessService is the decision orchestrator: it authenticates the scan,
// evaluates the gate and identity paths, composes the scan data, and then
// records and notifies the outcome.
type AccessService struct {
	logger    *slog.Logger
	directory store.Directory
	events    store.ScanEventStore
	stats     store.StatsStore
	roles     RoleProvider
	notifier  Notifier
	metrics   *metrics.Metrics
	retention time.Duration
	now       func() time.Time
	newID     func() (string, error)

	// mu guards draining so no delivery is added to inflight once Wait
	// has started.
	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

func NewAccessService(d Dependencies) *AccessService {
	s := &AccessService{
		logger:    d.Logger,
		directory: d.Directory,
		events:    d.Events,
		stats:     d.Stats,
		roles:     d.Roles,
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		retention: d.EventRetention,
		now:       d.Now,
		newID:     d.NewID,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.retention <= 0 {
		s.retention = DefaultEventRetention
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = newScanEventID
	}
	return s
}

// Scan evaluates one scan request. Errors are returned only for bad
// requests (ErrInvalidRequest, ErrUnauthorized, store.ErrNotFound) and for
// directory failures while loading the records; nothing is recorded in
// those cases. Once a decision exists, side-channel failures are logged
// and never change it.
func (s *AccessService) Scan(ctx context.Context, req types.ScanRequest) (types.ScanResponse, error) {
	start := s.now()

	if strings.TrimSpace(req.LocationID) == types.UptimeLocationID {
		return types.ScanResponse{Success: true}, nil
	}

	req.LocationID = strings.TrimSpace(req.LocationID)
	req.AccessPointID = strings.TrimSpace(req.AccessPointID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.LocationID == "" || req.AccessPointID == "" || req.APIKey == "" {
		return types.ScanResponse{}, ErrInvalidRequest
	}

	loc, err := s.directory.GetLocation(ctx, req.LocationID)
	if err != nil {
		return types.ScanResponse{}, fmt.Errorf("location %s: %w", req.LocationID, err)
	}
	org, err := s.directory.GetOrganization(ctx, loc.OrganizationID)
	if err != nil {
		return types.ScanResponse{}, fmt.Errorf("organization %s: %w", loc.OrganizationID, err)
	}
	if !org.HasAPIKey(req.APIKey) {
		return types.ScanResponse{}, ErrUnauthorized
	}
	ap, err := s.directory.GetAccessPoint(ctx, req.AccessPointID)
	if err != nil {
		return types.ScanResponse{}, fmt.Errorf("access point %s: %w", req.AccessPointID, err)
	}
	if ap.LocationID != loc.ID {
		return types.ScanResponse{}, fmt.Errorf("access point %s in location %s: %w",
			req.AccessPointID, loc.ID, store.ErrNotFound)
	}

	cards := cardrange.SplitPresented(req.CardNumbers)
	resp := s.decide(ctx, org, ap, req.UserID, cards)

	// Recording must survive the device hanging up mid-request.
	recordCtx := context.WithoutCancel(ctx)
	granted := resp.Granted()

	s.recordStats(recordCtx, org.ID, granted)

	createdAt := s.now().UTC()
	ev, stored := s.recordEvent(recordCtx, types.ScanEvent{
		OrganizationID: org.ID,
		LocationID:     loc.ID,
		AccessPointID:  ap.ID,
		UserID:         req.UserID,
		CardHash:       hashCards(cards),
		Granted:        granted,
		GrantType:      resp.GrantType,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(s.retention),
	})

	s.logger.Info(
		"scan decided",
		slog.String("access_point_id", ap.ID),
		slog.String("location_id", loc.ID),
		slog.String("grant_type", string(resp.GrantType)),
		slog.String("response_code", string(resp.ResponseCode)),
		slog.String("universe_id", req.UniverseID),
		slog.Bool("recorded", stored),
	)

	if ap.Webhook.Wants(granted) {
		s.notify(recordCtx, *ap.Webhook, ev)
	}

	s.metrics.ObserveScan(string(resp.GrantType), string(resp.ResponseCode), s.now().Sub(start))

	return resp, nil
}

// decide runs the gate state machine and, when armed, the three identity
// paths. Any path can grant; none can revoke another's grant.
func (s *AccessService) decide(
	ctx context.Context,
	org types.Organization,
	ap types.AccessPoint,
	userID string,
	cards []string,
) types.ScanResponse {
	switch EvaluateGate(ap) {
	case GateInactive:
		return denied(ap, types.GrantAccessPointInactive)
	case GateUnarmed:
		return types.ScanResponse{
			Success:      true,
			GrantType:    types.GrantAccessPointUnarmed,
			ResponseCode: types.ResponseAccessGranted,
			ScanData:     orEmpty(ap.ScanData.Granted.Clone()),
		}
	}

	allowed := ResolveAllowlist(org, ap)

	var (
		granted   bool
		fragments []scandata.Object
	)
	contribute := func(memberIDs ...string) {
		for _, id := range memberIDs {
			m, ok := org.Members[id]
			if !ok {
				continue
			}
			granted = true
			fragments = append(fragments, memberFragment(org, m, allowed[id]))
		}
	}

	if id, ok := s.resolveIdentity(ctx, org, allowed, userID); ok {
		contribute(id)
	}
	contribute(s.resolveGroupRoles(ctx, org, allowed, userID)...)
	contribute(matchCards(org, allowed, cards)...)

	if !granted {
		return denied(ap, types.GrantUserScan)
	}

	return types.ScanResponse{
		Success:      true,
		GrantType:    types.GrantUserScan,
		ResponseCode: types.ResponseAccessGranted,
		ScanData:     composeGranted(ap, fragments),
	}
}

func denied(ap types.AccessPoint, grantType types.GrantType) types.ScanResponse {
	return types.ScanResponse{
		Success:      true,
		GrantType:    grantType,
		ResponseCode: types.ResponseAccessDenied,
		ScanData:     orEmpty(ap.ScanData.Denied.Clone()),
	}
}

func orEmpty(o scandata.Object) scandata.Object {
	if o == nil {
		return scandata.Object{}
	}
	return o
}

// notify delivers the webhook without holding up the caller. Deliveries
// are skipped once Wait has been called.
func (s *AccessService) notify(ctx context.Context, hook types.Webhook, ev types.ScanEvent) {
	if s.notifier == nil {
		return
	}

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		s.metrics.WebhookDelivered(false)
		s.logger.Warn(
			"webhook skipped during shutdown",
			slog.String("access_point_id", ev.AccessPointID),
			slog.String("scan_event_id", ev.ID),
		)
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()

		err := s.notifier.Notify(ctx, hook, ev)
		s.metrics.WebhookDelivered(err == nil)
		if err != nil {
			s.logger.Warn(
				"webhook delivery failed",
				slog.String("access_point_id", ev.AccessPointID),
				slog.String("scan_event_id", ev.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait stops new webhook deliveries and blocks until the ones already
// started complete. Scans keep deciding and recording afterwards; only
// their webhooks are skipped. It is safe to call while requests are still
// in flight and more than once.
func (s *AccessService) Wait() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	s.inflight.Wait()
}
