package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/memory"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

const (
	testAPIKey = "key-1"
	testOrgID  = "org-1"
	testLocID  = "loc-1"
	otherLocID = "loc-2"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func obj(t *testing.T, s string) scandata.Object {
	t.Helper()
	o, err := scandata.Parse([]byte(s))
	require.NoError(t, err)
	return o
}

// countingDirectory records how often the identity resolver reaches the
// directory for linked ids.
type countingDirectory struct {
	*memory.Directory
	linkCalls atomic.Int32
}

func (d *countingDirectory) LinkedExternalIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	d.linkCalls.Add(1)
	return d.Directory.LinkedExternalIDs(ctx, userIDs)
}

type testEnv struct {
	svc    *service.AccessService
	dir    *countingDirectory
	events *memory.ScanEventStore
	stats  *memory.StatsStore
}

// newTestEnv wires an AccessService over in-memory stores seeded with
// testOrg, two locations and whatever access points the test adds.
func newTestEnv(t *testing.T, org types.Organization, mutate ...func(*service.Dependencies)) *testEnv {
	t.Helper()
	ctx := context.Background()

	dir := &countingDirectory{Directory: memory.NewDirectory()}
	require.NoError(t, dir.PutOrganization(ctx, org))
	require.NoError(t, dir.PutLocation(ctx, types.Location{ID: testLocID, OrganizationID: org.ID}))
	require.NoError(t, dir.PutLocation(ctx, types.Location{ID: otherLocID, OrganizationID: org.ID}))
	require.NoError(t, dir.PutUserLink(ctx, store.UserLink{UserID: "u-1", ExternalID: "3003", Verified: true}))
	require.NoError(t, dir.PutUserLink(ctx, store.UserLink{UserID: "u-2", ExternalID: "3004", Verified: false}))

	env := &testEnv{
		dir:    dir,
		events: memory.NewScanEventStore(),
		stats:  memory.NewStatsStore(),
	}

	deps := service.Dependencies{
		Logger:    silentLogger(),
		Directory: dir,
		Events:    env.events,
		Stats:     env.stats,
	}
	for _, m := range mutate {
		m(&deps)
	}
	env.svc = service.NewAccessService(deps)
	t.Cleanup(env.svc.Wait)
	return env
}

func (e *testEnv) putAccessPoint(t *testing.T, ap types.AccessPoint) {
	t.Helper()
	if ap.OrganizationID == "" {
		ap.OrganizationID = testOrgID
	}
	if ap.LocationID == "" {
		ap.LocationID = testLocID
	}
	require.NoError(t, e.dir.PutAccessPoint(context.Background(), ap))
}

func (e *testEnv) scan(t *testing.T, apID, userID, cards string) types.ScanResponse {
	t.Helper()
	resp, err := e.svc.Scan(context.Background(), types.ScanRequest{
		LocationID:    testLocID,
		AccessPointID: apID,
		APIKey:        testAPIKey,
		UserID:        userID,
		CardNumbers:   cards,
	})
	require.NoError(t, err)
	return resp
}

func group(t *testing.T, id string, priority int, data string) types.AccessGroup {
	return types.AccessGroup{
		ID:       id,
		Priority: priority,
		Type:     types.AccessGroupOrganization,
		Active:   true,
		ScanData: obj(t, data),
	}
}

// testOrg is the shared organization used by most scenarios.
//
//	g-open       priority 0, open to everyone, org-wide
//	g-staff      priority 1
//	g-admin      priority 2
//	g-off        inactive
//	g-elsewhere  open, scoped to loc-2
func testOrg(t *testing.T) types.Organization {
	open := group(t, "g-open", 0, `{"welcome":true}`)
	open.OpenToEveryone = true

	elsewhere := group(t, "g-elsewhere", 0, `{"elsewhere":true}`)
	elsewhere.OpenToEveryone = true
	elsewhere.Type = types.AccessGroupLocation
	elsewhere.LocationID = otherLocID

	off := group(t, "g-off", 9, `{"mode":"off"}`)
	off.Active = false

	groups := []types.AccessGroup{
		open,
		elsewhere,
		off,
		group(t, "g-staff", 1, `{"mode":"a","tags":["staff"]}`),
		group(t, "g-admin", 2, `{"mode":"b","tags":["admin"]}`),
	}

	members := []types.Member{
		{
			ID: "m-ext", Type: types.MemberExternalUser, ExternalID: "1001",
			AccessGroups: []string{"g-staff"}, ScanData: obj(t, `{"name":"Ext"}`),
		},
		{
			ID: "m-user", Type: types.MemberUser, UserID: "u-1",
			AccessGroups: []string{"g-admin", "g-staff", "g-off"}, ScanData: obj(t, `{"name":"User"}`),
		},
		{
			ID: "m-unverified", Type: types.MemberUser, UserID: "u-2",
			AccessGroups: []string{"g-staff"},
		},
		{
			ID: "m-cards", Type: types.MemberCardSet, CardNumbers: []string{"5000-5010", "777"},
			AccessGroups: []string{"g-admin", "g-missing"}, ScanData: obj(t, `{"name":"Cards","tags":["card"]}`),
		},
		{
			ID: "m-cards2", Type: types.MemberCardSet, CardNumbers: []string{"5005"},
			ScanData: obj(t, `{"second":true}`),
		},
		{
			ID: "m-grp", Type: types.MemberExternalGroup, GroupID: "g100", GroupRoles: []string{"r1", "r2"},
			AccessGroups: []string{"g-staff"}, ScanData: obj(t, `{"name":"Group"}`),
		},
		{
			ID: "m-stranger", Type: types.MemberExternalUser, ExternalID: "2002",
			AccessGroups: []string{"g-nobody"},
		},
	}

	org := types.Organization{
		ID:           testOrgID,
		APIKeys:      []string{testAPIKey},
		Members:      make(map[string]types.Member),
		AccessGroups: make(map[string]types.AccessGroup),
	}
	for _, g := range groups {
		org.AccessGroups[g.ID] = g
	}
	for _, m := range members {
		org.Members[m.ID] = m
	}
	return org
}

// armedPoint allows every member of testOrg except m-stranger.
func armedPoint(t *testing.T, id string) types.AccessPoint {
	return types.AccessPoint{
		ID:     id,
		Active: true,
		Armed:  true,
		AlwaysAllowed: types.AlwaysAllowed{
			Members: []string{"m-ext", "m-user", "m-unverified", "m-cards", "m-cards2", "m-grp"},
		},
		ScanData: types.PointScanData{
			Ready:   obj(t, `{"display":"ready","tags":["point"]}`),
			Granted: obj(t, `{"display":"granted","open":true}`),
			Denied:  obj(t, `{"display":"denied","tags":["nope"]}`),
		},
	}
}
