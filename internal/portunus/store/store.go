package store

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

var (
	// ErrNotFound is returned when a location, organization or access point
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is returned by InsertScanEvent when the event id is
	// already taken.
	ErrDuplicateID = errors.New("duplicate id")
)

// Directory is the read-only view of administrative records the access
// engine evaluates against. Implementations fetch either directly from the
// backing store or through the data API.
type Directory interface {
	GetLocation(ctx context.Context, locationID string) (types.Location, error)
	GetOrganization(ctx context.Context, orgID string) (types.Organization, error)
	GetAccessPoint(ctx context.Context, accessPointID string) (types.AccessPoint, error)

	// LinkedExternalIDs maps platform user ids to the external-provider id
	// each account has linked and verified. Users without a verified link
	// are absent from the result.
	LinkedExternalIDs(ctx context.Context, userIDs []string) (map[string]string, error)
}

// ScanEventStore persists scan events as an append-only audit log.
type ScanEventStore interface {
	InsertScanEvent(ctx context.Context, ev types.ScanEvent) error
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// StatsStore keeps the soft analytics counters.
type StatsStore interface {
	// IncrementScanCounters bumps total and granted/denied for orgID and
	// for types.GlobalStatsScope in one call.
	IncrementScanCounters(ctx context.Context, orgID string, granted bool) error
	ScanCounters(ctx context.Context, scope string) (types.ScanCounters, error)
}

// Seeder writes administrative records. The access engine never calls it;
// it backs the seed command and tests.
type Seeder interface {
	PutOrganization(ctx context.Context, org types.Organization) error
	PutLocation(ctx context.Context, loc types.Location) error
	PutAccessPoint(ctx context.Context, ap types.AccessPoint) error
	PutUserLink(ctx context.Context, link UserLink) error
}

// UserLink is a platform account's linked external-provider identity.
type UserLink struct {
	UserID     string `yaml:"user_id"     json:"user_id"`
	ExternalID string `yaml:"external_id" json:"external_id"`
	Verified   bool   `yaml:"verified"    json:"verified"`
}
