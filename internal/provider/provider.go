// Package provider is the HTTP client for the external identity provider's
// group role lookup.
package provider

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

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// DefaultTimeout bounds a single lookup when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// ErrStatus is wrapped by every non-2xx response.
var ErrStatus = errors.New("unexpected provider status")

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements service.RoleProvider. Each lookup is a single attempt.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type rolesResponse struct {
	Data []struct {
		Group struct {
			ID json.Number `json:"id"`
		} `json:"group"`
		Role struct {
			ID   json.Number `json:"id"`
			Rank int         `json:"rank"`
		} `json:"role"`
	} `json:"data"`
}

// GroupRoles returns every (group, role) pair the user currently holds.
func (c *Client) GroupRoles(ctx context.Context, userID string) ([]types.GroupRole, error) {
	endpoint := fmt.Sprintf("%s/v2/users/%s/groups/roles", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build role request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("role request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed rolesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode role response: %w", err)
	}

	roles := make([]types.GroupRole, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.Role.ID == "" {
			continue
		}
		roles = append(roles, types.GroupRole{
			GroupID: d.Group.ID.String(),
			RoleID:  d.Role.ID.String(),
			Rank:    d.Role.Rank,
		})
	}
	return roles, nil
}
