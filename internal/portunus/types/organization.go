package types

import (
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
)

type MemberType string

const (
	MemberUser          MemberType = "user"
	MemberExternalUser  MemberType = "external-user"
	MemberExternalGroup MemberType = "external-group"
	MemberCardSet       MemberType = "card-set"
)

type AccessGroupType string

const (
	AccessGroupOrganization AccessGroupType = "organization"
	AccessGroupLocation     AccessGroupType = "location"
)

type Organization struct {
	ID           string
	Name         string
	APIKeys      []string
	Members      map[string]Member
	AccessGroups map[string]AccessGroup
}

// HasAPIKey reports whether key is one of the organization's provisioned keys.
func (o Organization) HasAPIKey(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range o.APIKeys {
		if k == key {
			return true
		}
	}
	return false
}

type Location struct {
	ID             string
	OrganizationID string
	Name           string
}

// Member is one entry in an organization's member list. Which identity
// fields are meaningful depends on Type:
//
//	user            UserID (platform account id)
//	external-user   ExternalID
//	external-group  GroupID, GroupRoles
//	card-set        CardNumbers (literals or "<start>-<end>" ranges)
type Member struct {
	ID           string
	Type         MemberType
	UserID       string
	ExternalID   string
	GroupID      string
	GroupRoles   []string
	CardNumbers  []string
	AccessGroups []string
	ScanData     scandata.Object
}

type AccessGroup struct {
	ID             string
	Name           string
	Priority       int
	Type           AccessGroupType
	LocationID     string
	Active         bool
	OpenToEveryone bool
	ScanData       scandata.Object
}

// AppliesTo reports whether the group is scoped to the whole organization
// or to locationID.
func (g AccessGroup) AppliesTo(locationID string) bool {
	switch g.Type {
	case AccessGroupOrganization:
		return true
	case AccessGroupLocation:
		return g.LocationID == locationID
	}
	return false
}

type AlwaysAllowed struct {
	Groups  []string
	Members []string
}

type PointScanData struct {
	Ready   scandata.Object
	Granted scandata.Object
	Denied  scandata.Object
}

// Webhook is an operator-configured outbound notification target.
type Webhook struct {
	URL          string
	EventGranted bool
	EventDenied  bool
}

// Wants reports whether the webhook is subscribed to the given outcome.
func (w *Webhook) Wants(granted bool) bool {
	if w == nil || w.URL == "" {
		return false
	}
	if granted {
		return w.EventGranted
	}
	return w.EventDenied
}

type AccessPoint struct {
	ID             string
	Name           string
	OrganizationID string
	LocationID     string
	Active         bool
	Armed          bool
	AlwaysAllowed  AlwaysAllowed
	ScanData       PointScanData
	Webhook        *Webhook
}
