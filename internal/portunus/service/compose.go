package service

import (
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// memberFragment is one matched member's contribution: its active groups'
// scan data in ascending priority, then its own scan data last so the
// member always wins over its groups.
func memberFragment(org types.Organization, m types.Member, groupIDs []string) scandata.Object {
	groups := effectiveGroups(org, groupIDs)
	parts := make([]scandata.Object, 0, len(groups)+1)
	for _, g := range groups {
		parts = append(parts, g.ScanData)
	}
	parts = append(parts, m.ScanData)
	return scandata.MergeAll(parts...)
}

// composeGranted layers the combined path fragments over the access
// point's ready and granted payloads.
func composeGranted(ap types.AccessPoint, fragments []scandata.Object) scandata.Object {
	base := scandata.MergeObjects(ap.ScanData.Ready, ap.ScanData.Granted)
	return scandata.MergeObjects(base, scandata.MergeAll(fragments...))
}
