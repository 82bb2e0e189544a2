// Package mongo is the MongoDB adapter for the directory, scan event and
// statistics stores.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Collection names.
const (
	ColOrganizations = "organizations"
	ColLocations     = "locations"
	ColAccessPoints  = "access_points"
	ColUserLinks     = "user_links"
	ColScanEvents    = "scan_events"
	ColScanCounters  = "scan_counters"
)

type Store struct {
	db *mongodriver.Database
}

var (
	_ store.Directory      = (*Store)(nil)
	_ store.Seeder         = (*Store)(nil)
	_ store.ScanEventStore = (*Store)(nil)
	_ store.StatsStore     = (*Store)(nil)
)

func New(db *mongodriver.Database) *Store {
	return &Store{db: db}
}

// Connect dials uri, verifies the connection and returns a Store over
// database. The caller owns the client and must Disconnect it.
func Connect(ctx context.Context, uri, database string) (*mongodriver.Client, *Store, error) {
	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, New(client.Database(database)), nil
}

// EnsureIndexes creates the lookup and expiry indexes. The TTL index lets
// the server expire scan events on its own; PruneExpired remains for
// deployments that disable TTL monitoring.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		col   string
		model mongodriver.IndexModel
	}{
		{ColLocations, mongodriver.IndexModel{
			Keys:    bson.D{{Key: "organization_id", Value: 1}},
			Options: options.Index().SetName("organization_id"),
		}},
		{ColAccessPoints, mongodriver.IndexModel{
			Keys:    bson.D{{Key: "location_id", Value: 1}},
			Options: options.Index().SetName("location_id"),
		}},
		{ColScanEvents, mongodriver.IndexModel{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
		}},
		{ColScanEvents, mongodriver.IndexModel{
			Keys:    bson.D{{Key: "access_point_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("access_point_created"),
		}},
	}

	for _, ix := range indexes {
		if _, err := s.db.Collection(ix.col).Indexes().CreateOne(ctx, ix.model); err != nil {
			return fmt.Errorf("create index %s.%s: %w", ix.col, *ix.model.Options.Name, err)
		}
	}
	return nil
}

func (s *Store) GetLocation(ctx context.Context, locationID string) (types.Location, error) {
	var d locationDoc
	if err := s.findOne(ctx, ColLocations, locationID, &d); err != nil {
		return types.Location{}, fmt.Errorf("GetLocation: %w", err)
	}
	return types.Location{ID: d.ID, OrganizationID: d.OrganizationID, Name: d.Name}, nil
}

func (s *Store) GetOrganization(ctx context.Context, orgID string) (types.Organization, error) {
	var d organizationDoc
	if err := s.findOne(ctx, ColOrganizations, orgID, &d); err != nil {
		return types.Organization{}, fmt.Errorf("GetOrganization: %w", err)
	}
	org, err := d.toOrganization()
	if err != nil {
		return types.Organization{}, fmt.Errorf("GetOrganization %s: %w", orgID, err)
	}
	return org, nil
}

func (s *Store) GetAccessPoint(ctx context.Context, accessPointID string) (types.AccessPoint, error) {
	var d accessPointDoc
	if err := s.findOne(ctx, ColAccessPoints, accessPointID, &d); err != nil {
		return types.AccessPoint{}, fmt.Errorf("GetAccessPoint: %w", err)
	}
	ap, err := d.toAccessPoint()
	if err != nil {
		return types.AccessPoint{}, fmt.Errorf("GetAccessPoint %s: %w", accessPointID, err)
	}
	return ap, nil
}

func (s *Store) findOne(ctx context.Context, col, id string, out any) error {
	err := s.db.Collection(col).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) LinkedExternalIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	cur, err := s.db.Collection(ColUserLinks).Find(ctx, bson.M{
		"_id":         bson.M{"$in": userIDs},
		"verified":    true,
		"external_id": bson.M{"$ne": ""},
	})
	if err != nil {
		return nil, fmt.Errorf("LinkedExternalIDs: %w", err)
	}
	var docs []userLinkDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("LinkedExternalIDs decode: %w", err)
	}
	for _, d := range docs {
		out[d.UserID] = d.ExternalID
	}
	return out, nil
}

func (s *Store) PutOrganization(ctx context.Context, org types.Organization) error {
	d, err := organizationToDoc(org)
	if err != nil {
		return fmt.Errorf("PutOrganization %s: %w", org.ID, err)
	}
	return s.replace(ctx, ColOrganizations, org.ID, d)
}

func (s *Store) PutLocation(ctx context.Context, loc types.Location) error {
	return s.replace(ctx, ColLocations, loc.ID, locationDoc{
		ID:             loc.ID,
		OrganizationID: loc.OrganizationID,
		Name:           loc.Name,
	})
}

func (s *Store) PutAccessPoint(ctx context.Context, ap types.AccessPoint) error {
	d, err := accessPointToDoc(ap)
	if err != nil {
		return fmt.Errorf("PutAccessPoint %s: %w", ap.ID, err)
	}
	return s.replace(ctx, ColAccessPoints, ap.ID, d)
}

func (s *Store) PutUserLink(ctx context.Context, link store.UserLink) error {
	return s.replace(ctx, ColUserLinks, link.UserID, userLinkToDoc(link))
}

func (s *Store) replace(ctx context.Context, col, id string, doc any) error {
	_, err := s.db.Collection(col).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", col, id, err)
	}
	return nil
}

// InsertScanEvent maps a duplicate _id to store.ErrDuplicateID.
func (s *Store) InsertScanEvent(ctx context.Context, ev types.ScanEvent) error {
	_, err := s.db.Collection(ColScanEvents).InsertOne(ctx, scanEventToDoc(ev))
	if mongodriver.IsDuplicateKeyError(err) {
		return fmt.Errorf("InsertScanEvent %s: %w", ev.ID, store.ErrDuplicateID)
	}
	if err != nil {
		return fmt.Errorf("InsertScanEvent: %w", err)
	}
	return nil
}

func (s *Store) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.Collection(ColScanEvents).DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lte": now.UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("PruneExpired: %w", err)
	}
	return res.DeletedCount, nil
}

// IncrementScanCounters sends both $inc upserts in one ordered bulk write.
func (s *Store) IncrementScanCounters(ctx context.Context, orgID string, granted bool) error {
	inc := counterIncrement(granted)
	models := []mongodriver.WriteModel{
		mongodriver.NewUpdateOneModel().SetFilter(bson.M{"_id": orgID}).SetUpdate(inc).SetUpsert(true),
		mongodriver.NewUpdateOneModel().SetFilter(bson.M{"_id": types.GlobalStatsScope}).SetUpdate(inc).SetUpsert(true),
	}
	if _, err := s.db.Collection(ColScanCounters).BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("IncrementScanCounters: %w", err)
	}
	return nil
}

func counterIncrement(granted bool) bson.M {
	outcome := "denied"
	if granted {
		outcome = "granted"
	}
	return bson.M{"$inc": bson.M{"total": int64(1), outcome: int64(1)}}
}

func (s *Store) ScanCounters(ctx context.Context, scope string) (types.ScanCounters, error) {
	var d countersDoc
	err := s.db.Collection(ColScanCounters).FindOne(ctx, bson.M{"_id": scope}).Decode(&d)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return types.ScanCounters{}, nil
	}
	if err != nil {
		return types.ScanCounters{}, fmt.Errorf("ScanCounters: %w", err)
	}
	return types.ScanCounters{Total: d.Total, Granted: d.Granted, Denied: d.Denied}, nil
}
