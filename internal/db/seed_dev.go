package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dev seed identifiers, printed by the seed command so a developer can
// exercise the scan endpoint straight away.
const (
	DevOrganizationID = "org_dev"
	DevLocationID     = "loc_dev"
	DevAccessPointID  = "ap_main"
	DevAPIKey         = "dev-key"
)

// SeedDev inserts a small demo organization: one location, one armed access
// point, a staff group and a card-set member holding cards 1000-1099. It is
// safe to run repeatedly.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []struct {
		name string
		sql  string
		args []any
	}{
		{
			name: "organization",
			sql: `
INSERT INTO organizations(organization_id, name, api_keys_json, created_at_ms, updated_at_ms)
VALUES (?, 'Dev Organization', ?, ?, ?)
ON CONFLICT(organization_id) DO UPDATE SET
  api_keys_json = excluded.api_keys_json,
  updated_at_ms = excluded.updated_at_ms;`,
			args: []any{DevOrganizationID, `["` + DevAPIKey + `"]`, now, now},
		},
		{
			name: "location",
			sql: `
INSERT OR IGNORE INTO locations(location_id, organization_id, name, created_at_ms, updated_at_ms)
VALUES (?, ?, 'Dev', ?, ?);`,
			args: []any{DevLocationID, DevOrganizationID, now, now},
		},
		{
			name: "access group",
			sql: `
INSERT OR IGNORE INTO access_groups(
  organization_id, group_id, name, priority, group_type, active, open_to_everyone, scan_data_json
) VALUES (?, 'grp_staff', 'Staff', 10, 'organization', 1, 0, '{"role":"staff"}');`,
			args: []any{DevOrganizationID},
		},
		{
			name: "member",
			sql: `
INSERT OR IGNORE INTO members(
  organization_id, member_id, member_type, card_numbers_json, access_groups_json, scan_data_json
) VALUES (?, 'mem_cards', 'card-set', '["1000-1099"]', '["grp_staff"]', '{"greeting":"Welcome"}');`,
			args: []any{DevOrganizationID},
		},
		{
			name: "access point",
			sql: `
INSERT INTO access_points(
  access_point_id, organization_id, location_id, name, active, armed,
  always_allowed_groups_json, scan_data_ready_json, scan_data_granted_json, scan_data_denied_json,
  created_at_ms, updated_at_ms
) VALUES (?, ?, ?, 'Main Entrance', 1, 1, '["grp_staff"]',
  '{"led":"blue"}', '{"led":"green","unlock_ms":3000}', '{"led":"red"}', ?, ?)
ON CONFLICT(access_point_id) DO UPDATE SET
  active = 1,
  armed = 1,
  updated_at_ms = excluded.updated_at_ms;`,
			args: []any{DevAccessPointID, DevOrganizationID, DevLocationID, now, now},
		},
	}

	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.sql, s.args...); err != nil {
			return fmt.Errorf("seed %s: %w", s.name, err)
		}
	}

	return tx.Commit()
}
