package sqlite_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	sqlitestore "github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

func mustObject(t *testing.T, s string) scandata.Object {
	t.Helper()
	o, err := scandata.Parse([]byte(s))
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return o
}

func seedDirectory(t *testing.T) *sqlitestore.Directory {
	t.Helper()
	conn := openTestDB(t)
	d := sqlitestore.NewDirectory(conn, newTestWriter(t, conn))
	ctx := context.Background()

	org := types.Organization{
		ID:      "org-1",
		Name:    "Acme",
		APIKeys: []string{"k1", "k2"},
		AccessGroups: map[string]types.AccessGroup{
			"g-1": {
				ID: "g-1", Name: "Staff", Priority: 3, Type: types.AccessGroupLocation,
				LocationID: "loc-1", Active: true, OpenToEveryone: true,
				ScanData: mustObject(t, `{"mode":"a","tags":["x"]}`),
			},
		},
		Members: map[string]types.Member{
			"m-1": {
				ID: "m-1", Type: types.MemberExternalGroup, GroupID: "100",
				GroupRoles: []string{"7", "8"}, AccessGroups: []string{"g-1"},
				ScanData: mustObject(t, `{"n":1.5}`),
			},
			"m-2": {
				ID: "m-2", Type: types.MemberCardSet, CardNumbers: []string{"10-20"},
			},
		},
	}
	if err := d.PutOrganization(ctx, org); err != nil {
		t.Fatalf("PutOrganization: %v", err)
	}
	if err := d.PutLocation(ctx, types.Location{ID: "loc-1", OrganizationID: "org-1", Name: "HQ"}); err != nil {
		t.Fatalf("PutLocation: %v", err)
	}
	ap := types.AccessPoint{
		ID: "ap-1", Name: "Front", OrganizationID: "org-1", LocationID: "loc-1",
		Active: true, Armed: true,
		AlwaysAllowed: types.AlwaysAllowed{Groups: []string{"g-1"}, Members: []string{"m-2"}},
		ScanData: types.PointScanData{
			Ready:   mustObject(t, `{"r":true}`),
			Granted: mustObject(t, `{"g":true}`),
			Denied:  mustObject(t, `{"d":true}`),
		},
		Webhook: &types.Webhook{URL: "https://hooks.example/scan", EventDenied: true},
	}
	if err := d.PutAccessPoint(ctx, ap); err != nil {
		t.Fatalf("PutAccessPoint: %v", err)
	}
	return d
}

func TestDirectory_RoundTrip(t *testing.T) {
	d := seedDirectory(t)
	ctx := context.Background()

	loc, err := d.GetLocation(ctx, "loc-1")
	if err != nil {
		t.Fatalf("GetLocation: %v", err)
	}
	if loc.OrganizationID != "org-1" || loc.Name != "HQ" {
		t.Errorf("unexpected location %+v", loc)
	}

	org, err := d.GetOrganization(ctx, "org-1")
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	if !org.HasAPIKey("k2") {
		t.Errorf("expected api key k2, got %v", org.APIKeys)
	}
	g := org.AccessGroups["g-1"]
	if g.Priority != 3 || g.Type != types.AccessGroupLocation || g.LocationID != "loc-1" || !g.Active || !g.OpenToEveryone {
		t.Errorf("unexpected group %+v", g)
	}
	if !scandata.Equal(g.ScanData, mustObject(t, `{"mode":"a","tags":["x"]}`)) {
		t.Errorf("group scan data mismatch")
	}
	m := org.Members["m-1"]
	if m.Type != types.MemberExternalGroup || m.GroupID != "100" || !reflect.DeepEqual(m.GroupRoles, []string{"7", "8"}) {
		t.Errorf("unexpected member %+v", m)
	}
	if !scandata.Equal(m.ScanData, mustObject(t, `{"n":1.5}`)) {
		t.Errorf("member scan data mismatch")
	}
	if cards := org.Members["m-2"].CardNumbers; !reflect.DeepEqual(cards, []string{"10-20"}) {
		t.Errorf("unexpected cards %v", cards)
	}

	ap, err := d.GetAccessPoint(ctx, "ap-1")
	if err != nil {
		t.Fatalf("GetAccessPoint: %v", err)
	}
	if !ap.Active || !ap.Armed || ap.LocationID != "loc-1" {
		t.Errorf("unexpected access point %+v", ap)
	}
	if !reflect.DeepEqual(ap.AlwaysAllowed.Members, []string{"m-2"}) {
		t.Errorf("unexpected always-allowed members %v", ap.AlwaysAllowed.Members)
	}
	if !scandata.Equal(ap.ScanData.Denied, mustObject(t, `{"d":true}`)) {
		t.Errorf("denied payload mismatch")
	}
	if ap.Webhook == nil || ap.Webhook.URL != "https://hooks.example/scan" || ap.Webhook.EventGranted || !ap.Webhook.EventDenied {
		t.Errorf("unexpected webhook %+v", ap.Webhook)
	}
}

func TestDirectory_PutOrganizationReplacesMembers(t *testing.T) {
	d := seedDirectory(t)
	ctx := context.Background()

	org, err := d.GetOrganization(ctx, "org-1")
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	delete(org.Members, "m-2")
	if err := d.PutOrganization(ctx, org); err != nil {
		t.Fatalf("PutOrganization: %v", err)
	}

	org, err = d.GetOrganization(ctx, "org-1")
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	var ids []string
	for id := range org.Members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if !reflect.DeepEqual(ids, []string{"m-1"}) {
		t.Errorf("expected only m-1, got %v", ids)
	}
}

func TestDirectory_NotFound(t *testing.T) {
	d := seedDirectory(t)
	ctx := context.Background()

	if _, err := d.GetLocation(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetLocation: expected ErrNotFound, got %v", err)
	}
	if _, err := d.GetOrganization(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetOrganization: expected ErrNotFound, got %v", err)
	}
	if _, err := d.GetAccessPoint(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetAccessPoint: expected ErrNotFound, got %v", err)
	}
}

func TestDirectory_AccessPointWithoutWebhook(t *testing.T) {
	d := seedDirectory(t)
	ctx := context.Background()

	if err := d.PutAccessPoint(ctx, types.AccessPoint{
		ID: "ap-2", OrganizationID: "org-1", LocationID: "loc-1", Active: true,
	}); err != nil {
		t.Fatalf("PutAccessPoint: %v", err)
	}
	ap, err := d.GetAccessPoint(ctx, "ap-2")
	if err != nil {
		t.Fatalf("GetAccessPoint: %v", err)
	}
	if ap.Webhook != nil {
		t.Errorf("expected no webhook, got %+v", ap.Webhook)
	}
	if ap.ScanData.Ready == nil || len(ap.ScanData.Ready) != 0 {
		t.Errorf("expected empty ready payload, got %v", ap.ScanData.Ready)
	}
}

func TestDirectory_LinkedExternalIDs(t *testing.T) {
	d := seedDirectory(t)
	ctx := context.Background()

	links := []store.UserLink{
		{UserID: "u-1", ExternalID: "1001", Verified: true},
		{UserID: "u-2", ExternalID: "1002", Verified: false},
		{UserID: "u-3", ExternalID: "1003", Verified: true},
	}
	for _, l := range links {
		if err := d.PutUserLink(ctx, l); err != nil {
			t.Fatalf("PutUserLink: %v", err)
		}
	}

	got, err := d.LinkedExternalIDs(ctx, []string{"u-1", "u-2", "u-missing"})
	if err != nil {
		t.Fatalf("LinkedExternalIDs: %v", err)
	}
	if want := map[string]string{"u-1": "1001"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	empty, err := d.LinkedExternalIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty map, got %v, %v", empty, err)
	}
}

func TestDirectory_AccessPointRequiresLocation(t *testing.T) {
	d := seedDirectory(t)
	err := d.PutAccessPoint(context.Background(), types.AccessPoint{
		ID: "ap-orphan", OrganizationID: "org-1", LocationID: "loc-missing",
	})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestDirectory_LoadsFixtures(t *testing.T) {
	conn := openTestDB(t)
	d := sqlitestore.NewDirectory(conn, newTestWriter(t, conn))

	f, err := store.ParseFixtures([]byte(`
organizations:
  - id: org-y
    api_keys: [yk]
    access_groups:
      - id: g
        priority: 1
        type: organization
        active: true
        scan_data: {door: {led: green}}
    members:
      - id: m
        type: card-set
        card_numbers: ["1-3"]
        access_groups: [g]
locations:
  - id: loc-y
    organization_id: org-y
access_points:
  - id: ap-y
    organization_id: org-y
    location_id: loc-y
    active: true
    armed: false
user_links:
  - user_id: u
    external_id: "9"
    verified: true
`))
	if err != nil {
		t.Fatalf("ParseFixtures: %v", err)
	}
	if err := f.Apply(context.Background(), d); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	org, err := d.GetOrganization(context.Background(), "org-y")
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	if !scandata.Equal(org.AccessGroups["g"].ScanData, mustObject(t, `{"door":{"led":"green"}}`)) {
		t.Errorf("fixture scan data mismatch: %v", org.AccessGroups["g"].ScanData)
	}
	if _, err := d.GetAccessPoint(context.Background(), "ap-y"); err != nil {
		t.Errorf("GetAccessPoint: %v", err)
	}
}
