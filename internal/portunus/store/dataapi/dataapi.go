// Package dataapi is a store.Directory that fetches records over HTTP from
// the platform's lightweight data API instead of reading the database
// directly. It is used by edge deployments that have no store access.
package dataapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// DefaultTimeout bounds one record fetch when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// APIKeyHeader authenticates the engine to the data API.
const APIKeyHeader = "X-Api-Key"

// ErrStatus is wrapped by every unexpected non-2xx response.
var ErrStatus = errors.New("unexpected data api status")

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ store.Directory = (*Client)(nil)

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Wire records. Field names follow the data API.

type location struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name"`
}

type organization struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	APIKeys      []string      `json:"apiKeys"`
	AccessGroups []accessGroup `json:"accessGroups"`
	Members      []member      `json:"members"`
}

type accessGroup struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Priority   int             `json:"priority"`
	Type       string          `json:"type"`
	LocationID string          `json:"locationId"`
	ScanData   scandata.Object `json:"scanData"`
	Config     struct {
		Active         bool `json:"active"`
		OpenToEveryone bool `json:"openToEveryone"`
	} `json:"config"`
}

type member struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	UserID       string          `json:"userId"`
	ExternalID   string          `json:"externalId"`
	GroupID      string          `json:"groupId"`
	GroupRoles   []string        `json:"groupRoles"`
	CardNumbers  []string        `json:"cardNumbers"`
	AccessGroups []string        `json:"accessGroups"`
	ScanData     scandata.Object `json:"scanData"`
}

type accessPoint struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OrganizationID string `json:"organizationId"`
	LocationID     string `json:"locationId"`
	Config         struct {
		Active        bool `json:"active"`
		Armed         bool `json:"armed"`
		AlwaysAllowed struct {
			Groups  []string `json:"groups"`
			Members []string `json:"members"`
		} `json:"alwaysAllowed"`
		ScanData struct {
			Ready   scandata.Object `json:"ready"`
			Granted scandata.Object `json:"granted"`
			Denied  scandata.Object `json:"denied"`
		} `json:"scanData"`
		Webhook *struct {
			URL          string `json:"url"`
			EventGranted bool   `json:"eventGranted"`
			EventDenied  bool   `json:"eventDenied"`
		} `json:"webhook"`
	} `json:"config"`
}

type linkedIDs struct {
	Data map[string]string `json:"data"`
}

func (c *Client) GetLocation(ctx context.Context, locationID string) (types.Location, error) {
	var l location
	if err := c.get(ctx, "/v1/locations/"+url.PathEscape(locationID), nil, &l); err != nil {
		return types.Location{}, fmt.Errorf("GetLocation: %w", err)
	}
	return types.Location{ID: l.ID, OrganizationID: l.OrganizationID, Name: l.Name}, nil
}

func (c *Client) GetOrganization(ctx context.Context, orgID string) (types.Organization, error) {
	var o organization
	if err := c.get(ctx, "/v1/organizations/"+url.PathEscape(orgID), nil, &o); err != nil {
		return types.Organization{}, fmt.Errorf("GetOrganization: %w", err)
	}

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
			Active:         g.Config.Active,
			OpenToEveryone: g.Config.OpenToEveryone,
			ScanData:       nonNil(g.ScanData),
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
			ScanData:     nonNil(m.ScanData),
		}
	}
	return org, nil
}

func (c *Client) GetAccessPoint(ctx context.Context, accessPointID string) (types.AccessPoint, error) {
	var a accessPoint
	if err := c.get(ctx, "/v1/access-points/"+url.PathEscape(accessPointID), nil, &a); err != nil {
		return types.AccessPoint{}, fmt.Errorf("GetAccessPoint: %w", err)
	}

	ap := types.AccessPoint{
		ID:             a.ID,
		Name:           a.Name,
		OrganizationID: a.OrganizationID,
		LocationID:     a.LocationID,
		Active:         a.Config.Active,
		Armed:          a.Config.Armed,
		AlwaysAllowed: types.AlwaysAllowed{
			Groups:  a.Config.AlwaysAllowed.Groups,
			Members: a.Config.AlwaysAllowed.Members,
		},
		ScanData: types.PointScanData{
			Ready:   nonNil(a.Config.ScanData.Ready),
			Granted: nonNil(a.Config.ScanData.Granted),
			Denied:  nonNil(a.Config.ScanData.Denied),
		},
	}
	if h := a.Config.Webhook; h != nil && h.URL != "" {
		ap.Webhook = &types.Webhook{URL: h.URL, EventGranted: h.EventGranted, EventDenied: h.EventDenied}
	}
	return ap, nil
}

// LinkedExternalIDs asks for every user in one request.
func (c *Client) LinkedExternalIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}

	q := url.Values{"userIds": {strings.Join(userIDs, ",")}}
	var resp linkedIDs
	if err := c.get(ctx, "/v1/user-links", q, &resp); err != nil {
		return nil, fmt.Errorf("LinkedExternalIDs: %w", err)
	}
	if resp.Data == nil {
		resp.Data = map[string]string{}
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return store.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// nonNil gives absent scan data fields the same empty value the other
// adapters produce.
func nonNil(o scandata.Object) scandata.Object {
	if o == nil {
		return scandata.Object{}
	}
	return o
}
