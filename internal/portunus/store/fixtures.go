package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Fixtures is the YAML document accepted by the seed command and the
// memory store.
type Fixtures struct {
	Organizations []OrganizationFixture `yaml:"organizations"`
	Locations     []LocationFixture     `yaml:"locations"`
	AccessPoints  []AccessPointFixture  `yaml:"access_points"`
	UserLinks     []UserLink            `yaml:"user_links"`
}

type OrganizationFixture struct {
	ID           string               `yaml:"id"`
	Name         string               `yaml:"name"`
	APIKeys      []string             `yaml:"api_keys"`
	AccessGroups []AccessGroupFixture `yaml:"access_groups"`
	Members      []MemberFixture      `yaml:"members"`
}

type AccessGroupFixture struct {
	ID             string         `yaml:"id"`
	Name           string         `yaml:"name"`
	Priority       int            `yaml:"priority"`
	Type           string         `yaml:"type"`
	LocationID     string         `yaml:"location_id"`
	Active         bool           `yaml:"active"`
	OpenToEveryone bool           `yaml:"open_to_everyone"`
	ScanData       map[string]any `yaml:"scan_data"`
}

type MemberFixture struct {
	ID           string         `yaml:"id"`
	Type         string         `yaml:"type"`
	UserID       string         `yaml:"user_id"`
	ExternalID   string         `yaml:"external_id"`
	GroupID      string         `yaml:"group_id"`
	GroupRoles   []string       `yaml:"group_roles"`
	CardNumbers  []string       `yaml:"card_numbers"`
	AccessGroups []string       `yaml:"access_groups"`
	ScanData     map[string]any `yaml:"scan_data"`
}

type LocationFixture struct {
	ID             string `yaml:"id"`
	OrganizationID string `yaml:"organization_id"`
	Name           string `yaml:"name"`
}

type AccessPointFixture struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	OrganizationID string `yaml:"organization_id"`
	LocationID     string `yaml:"location_id"`
	Active         bool   `yaml:"active"`
	Armed          bool   `yaml:"armed"`
	AlwaysAllowed  struct {
		Groups  []string `yaml:"groups"`
		Members []string `yaml:"members"`
	} `yaml:"always_allowed"`
	ScanData struct {
		Ready   map[string]any `yaml:"ready"`
		Granted map[string]any `yaml:"granted"`
		Denied  map[string]any `yaml:"denied"`
	} `yaml:"scan_data"`
	Webhook *struct {
		URL          string `yaml:"url"`
		EventGranted bool   `yaml:"event_granted"`
		EventDenied  bool   `yaml:"event_denied"`
	} `yaml:"webhook"`
}

// LoadFixtures reads and parses a fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(b)
}

func ParseFixtures(b []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	return f, nil
}

// Apply writes every record in f through s.
func (f Fixtures) Apply(ctx context.Context, s Seeder) error {
	for _, o := range f.Organizations {
		if err := s.PutOrganization(ctx, o.toOrganization()); err != nil {
			return fmt.Errorf("seed organization %s: %w", o.ID, err)
		}
	}
	for _, l := range f.Locations {
		loc := types.Location{ID: l.ID, OrganizationID: l.OrganizationID, Name: l.Name}
		if err := s.PutLocation(ctx, loc); err != nil {
			return fmt.Errorf("seed location %s: %w", l.ID, err)
		}
	}
	for _, a := range f.AccessPoints {
		if err := s.PutAccessPoint(ctx, a.toAccessPoint()); err != nil {
			return fmt.Errorf("seed access point %s: %w", a.ID, err)
		}
	}
	for _, u := range f.UserLinks {
		if err := s.PutUserLink(ctx, u); err != nil {
			return fmt.Errorf("seed user link %s: %w", u.UserID, err)
		}
	}
	return nil
}

func (o OrganizationFixture) toOrganization() types.Organization {
	org := types.Organization{
		ID:           o.ID,
		Name:         o.Name,
		APIKeys:      o.APIKeys,
		Members:      make(map[string]types.Member, len(o.Members)),
		AccessGroups: make(map[string]types.AccessGroup, len(o.AccessGroups)),
	}
	for _, g := range o.AccessGroups {
		org.AccessGroups[g.ID] = types.AccessGroup{
			ID:             g.ID,
			Name:           g.Name,
			Priority:       g.Priority,
			Type:           types.AccessGroupType(g.Type),
			LocationID:     g.LocationID,
			Active:         g.Active,
			OpenToEveryone: g.OpenToEveryone,
			ScanData:       objectFrom(g.ScanData),
		}
	}
	for _, m := range o.Members {
		org.Members[m.ID] = types.Member{
			ID:           m.ID,
			Type:         types.MemberType(m.Type),
			UserID:       m.UserID,
			ExternalID:   m.ExternalID,
			GroupID:      m.GroupID,
			GroupRoles:   m.GroupRoles,
			CardNumbers:  m.CardNumbers,
			AccessGroups: m.AccessGroups,
			ScanData:     objectFrom(m.ScanData),
		}
	}
	return org
}

func (a AccessPointFixture) toAccessPoint() types.AccessPoint {
	ap := types.AccessPoint{
		ID:             a.ID,
		Name:           a.Name,
		OrganizationID: a.OrganizationID,
		LocationID:     a.LocationID,
		Active:         a.Active,
		Armed:          a.Armed,
		AlwaysAllowed: types.AlwaysAllowed{
			Groups:  a.AlwaysAllowed.Groups,
			Members: a.AlwaysAllowed.Members,
		},
		ScanData: types.PointScanData{
			Ready:   objectFrom(a.ScanData.Ready),
			Granted: objectFrom(a.ScanData.Granted),
			Denied:  objectFrom(a.ScanData.Denied),
		},
	}
	if a.Webhook != nil {
		ap.Webhook = &types.Webhook{
			URL:          a.Webhook.URL,
			EventGranted: a.Webhook.EventGranted,
			EventDenied:  a.Webhook.EventDenied,
		}
	}
	return ap
}

func objectFrom(m map[string]any) scandata.Object {
	if m == nil {
		return scandata.Object{}
	}
	return scandata.FromAny(m).(scandata.Object)
}
