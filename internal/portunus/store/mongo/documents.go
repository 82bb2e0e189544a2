package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Organizations embed their groups and members; everything else is one
// document per record.

type organizationDoc struct {
	ID           string      `bson:"_id"`
	Name         string      `bson:"name"`
	APIKeys      []string    `bson:"api_keys"`
	AccessGroups []groupDoc  `bson:"access_groups"`
	Members      []memberDoc `bson:"members"`
	UpdatedAt    time.Time   `bson:"updated_at"`
}

type groupDoc struct {
	ID             string   `bson:"id"`
	Name           string   `bson:"name,omitempty"`
	Priority       int      `bson:"priority"`
	Type           string   `bson:"type"`
	LocationID     string   `bson:"location_id,omitempty"`
	Active         bool     `bson:"active"`
	OpenToEveryone bool     `bson:"open_to_everyone"`
	ScanData       bson.Raw `bson:"scan_data,omitempty"`
}

type memberDoc struct {
	ID           string   `bson:"id"`
	Type         string   `bson:"type"`
	UserID       string   `bson:"user_id,omitempty"`
	ExternalID   string   `bson:"external_id,omitempty"`
	GroupID      string   `bson:"group_id,omitempty"`
	GroupRoles   []string `bson:"group_roles,omitempty"`
	CardNumbers  []string `bson:"card_numbers,omitempty"`
	AccessGroups []string `bson:"access_groups,omitempty"`
	ScanData     bson.Raw `bson:"scan_data,omitempty"`
}

type locationDoc struct {
	ID             string `bson:"_id"`
	OrganizationID string `bson:"organization_id"`
	Name           string `bson:"name,omitempty"`
}

type accessPointDoc struct {
	ID             string `bson:"_id"`
	Name           string `bson:"name,omitempty"`
	OrganizationID string `bson:"organization_id"`
	LocationID     string `bson:"location_id"`
	Active         bool   `bson:"active"`
	Armed          bool   `bson:"armed"`
	AlwaysAllowed  struct {
		Groups  []string `bson:"groups,omitempty"`
		Members []string `bson:"members,omitempty"`
	} `bson:"always_allowed"`
	ScanData struct {
		Ready   bson.Raw `bson:"ready,omitempty"`
		Granted bson.Raw `bson:"granted,omitempty"`
		Denied  bson.Raw `bson:"denied,omitempty"`
	} `bson:"scan_data"`
	Webhook *webhookDoc `bson:"webhook,omitempty"`
}

type webhookDoc struct {
	URL          string `bson:"url"`
	EventGranted bool   `bson:"event_granted"`
	EventDenied  bool   `bson:"event_denied"`
}

type userLinkDoc struct {
	UserID     string `bson:"_id"`
	ExternalID string `bson:"external_id"`
	Verified   bool   `bson:"verified"`
}

type scanEventDoc struct {
	ID             string    `bson:"_id"`
	OrganizationID string    `bson:"organization_id"`
	LocationID     string    `bson:"location_id"`
	AccessPointID  string    `bson:"access_point_id"`
	UserID         string    `bson:"user_id,omitempty"`
	CardHash       []byte    `bson:"card_hash,omitempty"`
	Granted        bool      `bson:"granted"`
	GrantType      string    `bson:"grant_type"`
	CreatedAt      time.Time `bson:"created_at"`
	ExpiresAt      time.Time `bson:"expires_at"`
}

type countersDoc struct {
	Scope   string `bson:"_id"`
	Total   int64  `bson:"total"`
	Granted int64  `bson:"granted"`
	Denied  int64  `bson:"denied"`
}

// objectFromRaw decodes an embedded scan data document through relaxed
// extended JSON, which prints numbers the way the JSON path does.
func objectFromRaw(raw bson.Raw) (scandata.Object, error) {
	if len(raw) == 0 {
		return scandata.Object{}, nil
	}
	b, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("scan data to json: %w", err)
	}
	return scandata.Parse(b)
}

func rawFromObject(o scandata.Object) (bson.Raw, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(b, false, &d); err != nil {
		return nil, fmt.Errorf("scan data to bson: %w", err)
	}
	return bson.Marshal(d)
}

func (d organizationDoc) toOrganization() (types.Organization, error) {
	org := types.Organization{
		ID:           d.ID,
		Name:         d.Name,
		APIKeys:      d.APIKeys,
		Members:      make(map[string]types.Member, len(d.Members)),
		AccessGroups: make(map[string]types.AccessGroup, len(d.AccessGroups)),
	}
	for _, g := range d.AccessGroups {
		data, err := objectFromRaw(g.ScanData)
		if err != nil {
			return types.Organization{}, fmt.Errorf("group %s: %w", g.ID, err)
		}
		org.AccessGroups[g.ID] = types.AccessGroup{
			ID:             g.ID,
			Name:           g.Name,
			Priority:       g.Priority,
			Type:           types.AccessGroupType(g.Type),
			LocationID:     g.LocationID,
			Active:         g.Active,
			OpenToEveryone: g.OpenToEveryone,
			ScanData:       data,
		}
	}
	for _, m := range d.Members {
		data, err := objectFromRaw(m.ScanData)
		if err != nil {
			return types.Organization{}, fmt.Errorf("member %s: %w", m.ID, err)
		}
		org.Members[m.ID] = types.Member{
			ID:           m.ID,
			Type:         types.MemberType(m.Type),
			UserID:       m.UserID,
			ExternalID:   m.ExternalID,
			GroupID:      m.GroupID,
			GroupRoles:   m.GroupRoles,
			CardNumbers:  m.CardNumbers,
			AccessGroups: m.AccessGroups,
			ScanData:     data,
		}
	}
	return org, nil
}

func organizationToDoc(org types.Organization) (organizationDoc, error) {
	d := organizationDoc{
		ID:        org.ID,
		Name:      org.Name,
		APIKeys:   org.APIKeys,
		UpdatedAt: time.Now().UTC(),
	}
	for _, g := range org.AccessGroups {
		raw, err := rawFromObject(g.ScanData)
		if err != nil {
			return organizationDoc{}, fmt.Errorf("group %s: %w", g.ID, err)
		}
		d.AccessGroups = append(d.AccessGroups, groupDoc{
			ID:             g.ID,
			Name:           g.Name,
			Priority:       g.Priority,
			Type:           string(g.Type),
			LocationID:     g.LocationID,
			Active:         g.Active,
			OpenToEveryone: g.OpenToEveryone,
			ScanData:       raw,
		})
	}
	for _, m := range org.Members {
		raw, err := rawFromObject(m.ScanData)
		if err != nil {
			return organizationDoc{}, fmt.Errorf("member %s: %w", m.ID, err)
		}
		d.Members = append(d.Members, memberDoc{
			ID:           m.ID,
			Type:         string(m.Type),
			UserID:       m.UserID,
			ExternalID:   m.ExternalID,
			GroupID:      m.GroupID,
			GroupRoles:   m.GroupRoles,
			CardNumbers:  m.CardNumbers,
			AccessGroups: m.AccessGroups,
			ScanData:     raw,
		})
	}
	return d, nil
}

func (d accessPointDoc) toAccessPoint() (types.AccessPoint, error) {
	ap := types.AccessPoint{
		ID:             d.ID,
		Name:           d.Name,
		OrganizationID: d.OrganizationID,
		LocationID:     d.LocationID,
		Active:         d.Active,
		Armed:          d.Armed,
		AlwaysAllowed: types.AlwaysAllowed{
			Groups:  d.AlwaysAllowed.Groups,
			Members: d.AlwaysAllowed.Members,
		},
	}

	var err error
	if ap.ScanData.Ready, err = objectFromRaw(d.ScanData.Ready); err != nil {
		return types.AccessPoint{}, fmt.Errorf("ready: %w", err)
	}
	if ap.ScanData.Granted, err = objectFromRaw(d.ScanData.Granted); err != nil {
		return types.AccessPoint{}, fmt.Errorf("granted: %w", err)
	}
	if ap.ScanData.Denied, err = objectFromRaw(d.ScanData.Denied); err != nil {
		return types.AccessPoint{}, fmt.Errorf("denied: %w", err)
	}

	if d.Webhook != nil && d.Webhook.URL != "" {
		ap.Webhook = &types.Webhook{
			URL:          d.Webhook.URL,
			EventGranted: d.Webhook.EventGranted,
			EventDenied:  d.Webhook.EventDenied,
		}
	}
	return ap, nil
}

func accessPointToDoc(ap types.AccessPoint) (accessPointDoc, error) {
	d := accessPointDoc{
		ID:             ap.ID,
		Name:           ap.Name,
		OrganizationID: ap.OrganizationID,
		LocationID:     ap.LocationID,
		Active:         ap.Active,
		Armed:          ap.Armed,
	}
	d.AlwaysAllowed.Groups = ap.AlwaysAllowed.Groups
	d.AlwaysAllowed.Members = ap.AlwaysAllowed.Members

	var err error
	if d.ScanData.Ready, err = rawFromObject(ap.ScanData.Ready); err != nil {
		return accessPointDoc{}, fmt.Errorf("ready: %w", err)
	}
	if d.ScanData.Granted, err = rawFromObject(ap.ScanData.Granted); err != nil {
		return accessPointDoc{}, fmt.Errorf("granted: %w", err)
	}
	if d.ScanData.Denied, err = rawFromObject(ap.ScanData.Denied); err != nil {
		return accessPointDoc{}, fmt.Errorf("denied: %w", err)
	}

	if ap.Webhook != nil {
		d.Webhook = &webhookDoc{
			URL:          ap.Webhook.URL,
			EventGranted: ap.Webhook.EventGranted,
			EventDenied:  ap.Webhook.EventDenied,
		}
	}
	return d, nil
}

func scanEventToDoc(ev types.ScanEvent) scanEventDoc {
	return scanEventDoc{
		ID:             ev.ID,
		OrganizationID: ev.OrganizationID,
		LocationID:     ev.LocationID,
		AccessPointID:  ev.AccessPointID,
		UserID:         ev.UserID,
		CardHash:       ev.CardHash,
		Granted:        ev.Granted,
		GrantType:      string(ev.GrantType),
		CreatedAt:      ev.CreatedAt.UTC(),
		ExpiresAt:      ev.ExpiresAt.UTC(),
	}
}

func userLinkToDoc(l store.UserLink) userLinkDoc {
	return userLinkDoc{UserID: l.UserID, ExternalID: l.ExternalID, Verified: l.Verified}
}
