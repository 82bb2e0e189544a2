package types

import (
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
)

// UptimeLocationID is the locationId sentinel used by health checkers.
const UptimeLocationID = "UPTIME"

type GrantType string

const (
	GrantAccessPointInactive GrantType = "access_point_inactive"
	GrantAccessPointUnarmed  GrantType = "access_point_unarmed"
	GrantUserScan            GrantType = "user_scan"
)

type ResponseCode string

const (
	ResponseAccessGranted ResponseCode = "access_granted"
	ResponseAccessDenied  ResponseCode = "access_denied"
)

// ScanRequest is what an access point device sends when an identity is
// presented. UniverseID is carried for logging only.
type ScanRequest struct {
	LocationID    string `query:"locationId"    validate:"required"`
	AccessPointID string `query:"accessPointId" validate:"required"`
	APIKey        string `query:"apiKey"        validate:"required"`
	UserID        string `query:"userId"`
	CardNumbers   string `query:"cardNumbers"`
	UniverseID    string `query:"universeId"`
}

type ScanResponse struct {
	Success      bool            `json:"success"`
	GrantType    GrantType       `json:"grant_type,omitempty"`
	ResponseCode ResponseCode    `json:"response_code,omitempty"`
	ScanData     scandata.Object `json:"scan_data"`
}

// Granted reports whether the response lets the presenter through.
func (r ScanResponse) Granted() bool {
	return r.ResponseCode == ResponseAccessGranted
}

// ScanEvent is the immutable audit record written once per decided scan.
// CardHash is the BLAKE3 digest of the presented card numbers; raw card
// numbers are never persisted.
type ScanEvent struct {
	ID             string
	OrganizationID string
	LocationID     string
	AccessPointID  string
	UserID         string
	CardHash       []byte
	Granted        bool
	GrantType      GrantType
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// ScanCounters are the soft analytics counters kept per scope.
type ScanCounters struct {
	Total   int64 `json:"total"`
	Granted int64 `json:"granted"`
	Denied  int64 `json:"denied"`
}

// GlobalStatsScope is the counter scope shared by every organization.
const GlobalStatsScope = "global"

// GroupRole is one external-provider group membership of a presenter.
type GroupRole struct {
	GroupID string
	RoleID  string
	Rank    int
}
