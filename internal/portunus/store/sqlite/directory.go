package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/gate/internal/db"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Directory reads administrative records straight from SQLite. Writes (the
// Seeder half) go through the single-writer worker.
type Directory struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

var (
	_ store.Directory = (*Directory)(nil)
	_ store.Seeder    = (*Directory)(nil)
)

func NewDirectory(db *sql.DB, writer *dbpkg.Worker) *Directory {
	return &Directory{db: db, writer: writer}
}

func (d *Directory) GetLocation(ctx context.Context, locationID string) (types.Location, error) {
	loc := types.Location{ID: locationID}
	err := d.db.QueryRowContext(ctx, `
SELECT organization_id, name FROM locations WHERE location_id = ?;
`, locationID).Scan(&loc.OrganizationID, &loc.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Location{}, store.ErrNotFound
	}
	if err != nil {
		return types.Location{}, fmt.Errorf("GetLocation: %w", err)
	}
	return loc, nil
}

func (d *Directory) GetOrganization(ctx context.Context, orgID string) (types.Organization, error) {
	org := types.Organization{
		ID:           orgID,
		Members:      make(map[string]types.Member),
		AccessGroups: make(map[string]types.AccessGroup),
	}

	var apiKeys string
	err := d.db.QueryRowContext(ctx, `
SELECT name, api_keys_json FROM organizations WHERE organization_id = ?;
`, orgID).Scan(&org.Name, &apiKeys)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Organization{}, store.ErrNotFound
	}
	if err != nil {
		return types.Organization{}, fmt.Errorf("GetOrganization: %w", err)
	}
	if org.APIKeys, err = decodeList(apiKeys); err != nil {
		return types.Organization{}, fmt.Errorf("GetOrganization api keys: %w", err)
	}

	if err := d.loadGroups(ctx, &org); err != nil {
		return types.Organization{}, err
	}
	if err := d.loadMembers(ctx, &org); err != nil {
		return types.Organization{}, err
	}
	return org, nil
}

func (d *Directory) loadGroups(ctx context.Context, org *types.Organization) error {
	rows, err := d.db.QueryContext(ctx, `
SELECT group_id, name, priority, group_type, location_id, active, open_to_everyone, scan_data_json
FROM access_groups
WHERE organization_id = ?;
`, org.ID)
	if err != nil {
		return fmt.Errorf("GetOrganization groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g        types.AccessGroup
			gType    string
			locID    sql.NullString
			active   int
			open     int
			scanData string
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Priority, &gType, &locID, &active, &open, &scanData); err != nil {
			return fmt.Errorf("GetOrganization scan group: %w", err)
		}
		var cols jsonColumns
		g.Type = types.AccessGroupType(gType)
		g.LocationID = str(locID)
		g.Active = active == 1
		g.OpenToEveryone = open == 1
		g.ScanData = cols.object("scan_data_json", scanData)
		if cols.err != nil {
			return fmt.Errorf("GetOrganization group %s: %w", g.ID, cols.err)
		}
		org.AccessGroups[g.ID] = g
	}
	return rows.Err()
}

func (d *Directory) loadMembers(ctx context.Context, org *types.Organization) error {
	rows, err := d.db.QueryContext(ctx, `
SELECT member_id, member_type, user_id, external_id, group_id,
       group_roles_json, card_numbers_json, access_groups_json, scan_data_json
FROM members
WHERE organization_id = ?;
`, org.ID)
	if err != nil {
		return fmt.Errorf("GetOrganization members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m                                   types.Member
			mType                               string
			userID, externalID, groupID         sql.NullString
			roles, cards, accessGroups, scanRaw string
		)
		if err := rows.Scan(&m.ID, &mType, &userID, &externalID, &groupID,
			&roles, &cards, &accessGroups, &scanRaw); err != nil {
			return fmt.Errorf("GetOrganization scan member: %w", err)
		}
		var cols jsonColumns
		m.Type = types.MemberType(mType)
		m.UserID = str(userID)
		m.ExternalID = str(externalID)
		m.GroupID = str(groupID)
		m.GroupRoles = cols.list("group_roles_json", roles)
		m.CardNumbers = cols.list("card_numbers_json", cards)
		m.AccessGroups = cols.list("access_groups_json", accessGroups)
		m.ScanData = cols.object("scan_data_json", scanRaw)
		if cols.err != nil {
			return fmt.Errorf("GetOrganization member %s: %w", m.ID, cols.err)
		}
		org.Members[m.ID] = m
	}
	return rows.Err()
}

func (d *Directory) GetAccessPoint(ctx context.Context, accessPointID string) (types.AccessPoint, error) {
	ap := types.AccessPoint{ID: accessPointID}
	var (
		active, armed           int
		groups, members         string
		ready, granted, denied  string
		hookURL                 sql.NullString
		hookGranted, hookDenied int
	)
	err := d.db.QueryRowContext(ctx, `
SELECT organization_id, location_id, name, active, armed,
       always_allowed_groups_json, always_allowed_members_json,
       scan_data_ready_json, scan_data_granted_json, scan_data_denied_json,
       webhook_url, webhook_event_granted, webhook_event_denied
FROM access_points
WHERE access_point_id = ?;
`, accessPointID).Scan(
		&ap.OrganizationID, &ap.LocationID, &ap.Name, &active, &armed,
		&groups, &members,
		&ready, &granted, &denied,
		&hookURL, &hookGranted, &hookDenied,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AccessPoint{}, store.ErrNotFound
	}
	if err != nil {
		return types.AccessPoint{}, fmt.Errorf("GetAccessPoint: %w", err)
	}

	var cols jsonColumns
	ap.Active = active == 1
	ap.Armed = armed == 1
	ap.AlwaysAllowed.Groups = cols.list("always_allowed_groups_json", groups)
	ap.AlwaysAllowed.Members = cols.list("always_allowed_members_json", members)
	ap.ScanData.Ready = cols.object("scan_data_ready_json", ready)
	ap.ScanData.Granted = cols.object("scan_data_granted_json", granted)
	ap.ScanData.Denied = cols.object("scan_data_denied_json", denied)
	if cols.err != nil {
		return types.AccessPoint{}, fmt.Errorf("GetAccessPoint %s: %w", accessPointID, cols.err)
	}
	if hookURL.Valid && hookURL.String != "" {
		ap.Webhook = &types.Webhook{
			URL:          hookURL.String,
			EventGranted: hookGranted == 1,
			EventDenied:  hookDenied == 1,
		}
	}
	return ap, nil
}

func (d *Directory) LinkedExternalIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")

	rows, err := d.db.QueryContext(ctx, `
SELECT user_id, external_id FROM user_links
WHERE verified = 1 AND external_id <> '' AND user_id IN (`+placeholders+`);
`, args...)
	if err != nil {
		return nil, fmt.Errorf("LinkedExternalIDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, externalID string
		if err := rows.Scan(&userID, &externalID); err != nil {
			return nil, fmt.Errorf("LinkedExternalIDs scan: %w", err)
		}
		out[userID] = externalID
	}
	return out, rows.Err()
}

// PutOrganization upserts the organization and replaces its groups and
// members wholesale.
func (d *Directory) PutOrganization(ctx context.Context, org types.Organization) error {
	now := time.Now().UTC().UnixMilli()

	apiKeys, err := encodeList(org.APIKeys)
	if err != nil {
		return fmt.Errorf("PutOrganization api keys: %w", err)
	}

	return d.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO organizations(organization_id, name, api_keys_json, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(organization_id) DO UPDATE SET
  name = excluded.name,
  api_keys_json = excluded.api_keys_json,
  updated_at_ms = excluded.updated_at_ms;
`, org.ID, org.Name, apiKeys, now, now); err != nil {
			return fmt.Errorf("PutOrganization upsert: %w", err)
		}

		for _, table := range []string{"access_groups", "members"} {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM "+table+" WHERE organization_id = ?;", org.ID,
			); err != nil {
				return fmt.Errorf("PutOrganization clear %s: %w", table, err)
			}
		}

		for _, g := range org.AccessGroups {
			scanData, err := encodeObject(g.ScanData)
			if err != nil {
				return fmt.Errorf("PutOrganization group %s: %w", g.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO access_groups(
  organization_id, group_id, name, priority, group_type, location_id,
  active, open_to_everyone, scan_data_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`, org.ID, g.ID, g.Name, g.Priority, string(g.Type), nullIfEmpty(g.LocationID),
				boolInt(g.Active), boolInt(g.OpenToEveryone), scanData); err != nil {
				return fmt.Errorf("PutOrganization group %s: %w", g.ID, err)
			}
		}

		for _, m := range org.Members {
			if err := insertMember(ctx, tx, org.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertMember(ctx context.Context, tx *sql.Tx, orgID string, m types.Member) error {
	roles, err := encodeList(m.GroupRoles)
	if err != nil {
		return fmt.Errorf("PutOrganization member %s: %w", m.ID, err)
	}
	cards, err := encodeList(m.CardNumbers)
	if err != nil {
		return fmt.Errorf("PutOrganization member %s: %w", m.ID, err)
	}
	groups, err := encodeList(m.AccessGroups)
	if err != nil {
		return fmt.Errorf("PutOrganization member %s: %w", m.ID, err)
	}
	scanData, err := encodeObject(m.ScanData)
	if err != nil {
		return fmt.Errorf("PutOrganization member %s: %w", m.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO members(
  organization_id, member_id, member_type, user_id, external_id, group_id,
  group_roles_json, card_numbers_json, access_groups_json, scan_data_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, orgID, m.ID, string(m.Type), nullIfEmpty(m.UserID), nullIfEmpty(m.ExternalID), nullIfEmpty(m.GroupID),
		roles, cards, groups, scanData); err != nil {
		return fmt.Errorf("PutOrganization member %s: %w", m.ID, err)
	}
	return nil
}

func (d *Directory) PutLocation(ctx context.Context, loc types.Location) error {
	now := time.Now().UTC().UnixMilli()
	return d.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO locations(location_id, organization_id, name, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(location_id) DO UPDATE SET
  organization_id = excluded.organization_id,
  name = excluded.name,
  updated_at_ms = excluded.updated_at_ms;
`, loc.ID, loc.OrganizationID, loc.Name, now, now); err != nil {
			return fmt.Errorf("PutLocation: %w", err)
		}
		return nil
	})
}

func (d *Directory) PutAccessPoint(ctx context.Context, ap types.AccessPoint) error {
	now := time.Now().UTC().UnixMilli()

	groups, err := encodeList(ap.AlwaysAllowed.Groups)
	if err != nil {
		return fmt.Errorf("PutAccessPoint %s groups: %w", ap.ID, err)
	}
	members, err := encodeList(ap.AlwaysAllowed.Members)
	if err != nil {
		return fmt.Errorf("PutAccessPoint %s members: %w", ap.ID, err)
	}
	ready, err := encodeObject(ap.ScanData.Ready)
	if err != nil {
		return fmt.Errorf("PutAccessPoint %s ready: %w", ap.ID, err)
	}
	granted, err := encodeObject(ap.ScanData.Granted)
	if err != nil {
		return fmt.Errorf("PutAccessPoint %s granted: %w", ap.ID, err)
	}
	denied, err := encodeObject(ap.ScanData.Denied)
	if err != nil {
		return fmt.Errorf("PutAccessPoint %s denied: %w", ap.ID, err)
	}

	var (
		hookURL      any
		hookG, hookD int
	)
	if ap.Webhook != nil {
		hookURL = nullIfEmpty(ap.Webhook.URL)
		hookG = boolInt(ap.Webhook.EventGranted)
		hookD = boolInt(ap.Webhook.EventDenied)
	}

	return d.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_points(
  access_point_id, organization_id, location_id, name, active, armed,
  always_allowed_groups_json, always_allowed_members_json,
  scan_data_ready_json, scan_data_granted_json, scan_data_denied_json,
  webhook_url, webhook_event_granted, webhook_event_denied,
  created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(access_point_id) DO UPDATE SET
  organization_id = excluded.organization_id,
  location_id = excluded.location_id,
  name = excluded.name,
  active = excluded.active,
  armed = excluded.armed,
  always_allowed_groups_json = excluded.always_allowed_groups_json,
  always_allowed_members_json = excluded.always_allowed_members_json,
  scan_data_ready_json = excluded.scan_data_ready_json,
  scan_data_granted_json = excluded.scan_data_granted_json,
  scan_data_denied_json = excluded.scan_data_denied_json,
  webhook_url = excluded.webhook_url,
  webhook_event_granted = excluded.webhook_event_granted,
  webhook_event_denied = excluded.webhook_event_denied,
  updated_at_ms = excluded.updated_at_ms;
`, ap.ID, ap.OrganizationID, ap.LocationID, ap.Name, boolInt(ap.Active), boolInt(ap.Armed),
			groups, members, ready, granted, denied,
			hookURL, hookG, hookD, now, now); err != nil {
			return fmt.Errorf("PutAccessPoint: %w", err)
		}
		return nil
	})
}

func (d *Directory) PutUserLink(ctx context.Context, link store.UserLink) error {
	now := time.Now().UTC().UnixMilli()
	return d.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO user_links(user_id, external_id, verified, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  external_id = excluded.external_id,
  verified = excluded.verified,
  updated_at_ms = excluded.updated_at_ms;
`, link.UserID, link.ExternalID, boolInt(link.Verified), now); err != nil {
			return fmt.Errorf("PutUserLink: %w", err)
		}
		return nil
	})
}
