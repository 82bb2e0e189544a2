package mongo

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

type DocumentsTestSuite struct {
	suite.Suite
}

func (s *DocumentsTestSuite) obj(js string) scandata.Object {
	o, err := scandata.Parse([]byte(js))
	s.Require().NoError(err)
	return o
}

func (s *DocumentsTestSuite) TestScanDataRoundTrip() {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: `{}`},
		{name: "scalars", in: `{"s":"x","b":true,"n":null,"i":42}`},
		{name: "nested", in: `{"door":{"led":"green","pulse":[1,2,3]},"tags":["a","b"]}`},
		{name: "float", in: `{"f":1.5}`},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			raw, err := rawFromObject(s.obj(tt.in))
			s.Require().NoError(err)

			back, err := objectFromRaw(raw)
			s.Require().NoError(err)
			s.True(scandata.Equal(s.obj(tt.in), back), "got %v", back)
		})
	}
}

func (s *DocumentsTestSuite) TestObjectFromEmptyRaw() {
	o, err := objectFromRaw(nil)
	s.NoError(err)
	s.NotNil(o)
	s.Empty(o)
}

func (s *DocumentsTestSuite) TestOrganizationRoundTrip() {
	org := types.Organization{
		ID:      "org-1",
		Name:    "Acme",
		APIKeys: []string{"k"},
		AccessGroups: map[string]types.AccessGroup{
			"g": {
				ID: "g", Priority: 2, Type: types.AccessGroupLocation, LocationID: "loc-1",
				Active: true, OpenToEveryone: true, ScanData: s.obj(`{"mode":"b"}`),
			},
		},
		Members: map[string]types.Member{
			"m": {
				ID: "m", Type: types.MemberExternalGroup, GroupID: "100",
				GroupRoles: []string{"7"}, AccessGroups: []string{"g"}, ScanData: s.obj(`{"name":"x"}`),
			},
		},
	}

	d, err := organizationToDoc(org)
	s.Require().NoError(err)

	// Through the wire format, as the driver would store it.
	b, err := bson.Marshal(d)
	s.Require().NoError(err)
	var decoded organizationDoc
	s.Require().NoError(bson.Unmarshal(b, &decoded))

	back, err := decoded.toOrganization()
	s.Require().NoError(err)

	s.Equal(org.ID, back.ID)
	s.Equal(org.APIKeys, back.APIKeys)
	g := back.AccessGroups["g"]
	s.Equal(types.AccessGroupLocation, g.Type)
	s.Equal("loc-1", g.LocationID)
	s.True(g.OpenToEveryone)
	s.True(scandata.Equal(s.obj(`{"mode":"b"}`), g.ScanData))
	m := back.Members["m"]
	s.Equal(types.MemberExternalGroup, m.Type)
	s.Equal("100", m.GroupID)
	s.Equal([]string{"7"}, m.GroupRoles)
	s.True(scandata.Equal(s.obj(`{"name":"x"}`), m.ScanData))
}

func (s *DocumentsTestSuite) TestAccessPointRoundTrip() {
	ap := types.AccessPoint{
		ID: "ap-1", OrganizationID: "org-1", LocationID: "loc-1", Active: true,
		AlwaysAllowed: types.AlwaysAllowed{Members: []string{"m"}},
		ScanData: types.PointScanData{
			Ready:  s.obj(`{"r":1}`),
			Denied: s.obj(`{"d":[1]}`),
		},
		Webhook: &types.Webhook{URL: "https://hook", EventGranted: true},
	}

	d, err := accessPointToDoc(ap)
	s.Require().NoError(err)
	b, err := bson.Marshal(d)
	s.Require().NoError(err)
	var decoded accessPointDoc
	s.Require().NoError(bson.Unmarshal(b, &decoded))

	back, err := decoded.toAccessPoint()
	s.Require().NoError(err)
	s.True(back.Active)
	s.False(back.Armed)
	s.Equal([]string{"m"}, back.AlwaysAllowed.Members)
	s.True(scandata.Equal(s.obj(`{"r":1}`), back.ScanData.Ready))
	s.NotNil(back.ScanData.Granted)
	s.Empty(back.ScanData.Granted)
	s.Equal(&types.Webhook{URL: "https://hook", EventGranted: true}, back.Webhook)
}

func (s *DocumentsTestSuite) TestCounterIncrement() {
	s.Equal(bson.M{"$inc": bson.M{"total": int64(1), "granted": int64(1)}}, counterIncrement(true))
	s.Equal(bson.M{"$inc": bson.M{"total": int64(1), "denied": int64(1)}}, counterIncrement(false))
}

func TestDocumentsTestSuite(t *testing.T) {
	suite.Run(t, new(DocumentsTestSuite))
}
