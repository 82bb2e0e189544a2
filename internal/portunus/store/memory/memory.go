package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Directory is an in-memory store.Directory and store.Seeder. It is
// intended for tests and dev environments, usually loaded from fixtures.
type Directory struct {
	mu           sync.RWMutex
	orgs         map[string]types.Organization
	locations    map[string]types.Location
	accessPoints map[string]types.AccessPoint
	links        map[string]store.UserLink
}

var (
	_ store.Directory = (*Directory)(nil)
	_ store.Seeder    = (*Directory)(nil)
)

func NewDirectory() *Directory {
	return &Directory{
		orgs:         make(map[string]types.Organization),
		locations:    make(map[string]types.Location),
		accessPoints: make(map[string]types.AccessPoint),
		links:        make(map[string]store.UserLink),
	}
}

func (d *Directory) GetLocation(_ context.Context, locationID string) (types.Location, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	loc, ok := d.locations[locationID]
	if !ok {
		return types.Location{}, store.ErrNotFound
	}
	return loc, nil
}

func (d *Directory) GetOrganization(_ context.Context, orgID string) (types.Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	org, ok := d.orgs[orgID]
	if !ok {
		return types.Organization{}, store.ErrNotFound
	}
	return org, nil
}

func (d *Directory) GetAccessPoint(_ context.Context, accessPointID string) (types.AccessPoint, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ap, ok := d.accessPoints[accessPointID]
	if !ok {
		return types.AccessPoint{}, store.ErrNotFound
	}
	return ap, nil
}

func (d *Directory) LinkedExternalIDs(_ context.Context, userIDs []string) (map[string]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if l, ok := d.links[id]; ok && l.Verified && l.ExternalID != "" {
			out[id] = l.ExternalID
		}
	}
	return out, nil
}

func (d *Directory) PutOrganization(_ context.Context, org types.Organization) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.orgs[org.ID] = org
	return nil
}

func (d *Directory) PutLocation(_ context.Context, loc types.Location) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locations[loc.ID] = loc
	return nil
}

func (d *Directory) PutAccessPoint(_ context.Context, ap types.AccessPoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accessPoints[ap.ID] = ap
	return nil
}

func (d *Directory) PutUserLink(_ context.Context, link store.UserLink) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.links[link.UserID] = link
	return nil
}
