package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wedlock-server/internal/profile"
)

const defaultOpTimeout = 5 * time.Second

// Store implements profile.Store on top of a MongoDB collection. Profiles
// are stored one document per user with the phone number as _id.
type Store struct {
	collection *mongo.Collection
	opTimeout  time.Duration
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// New creates a Store backed by the named collection.
func New(db *mongo.Database, collectionName string) *Store {
	return &Store{
		collection: db.Collection(collectionName),
		opTimeout:  defaultOpTimeout,
	}
}

func (s *Store) Get(ctx context.Context, phone string) (*profile.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var p profile.Profile
	err := s.collection.FindOne(ctx, bson.M{"_id": phone}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("find profile %q: %w", phone, err)
	}
	return &p, nil
}

func (s *Store) FindByGender(ctx context.Context, gender string) ([]*profile.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, bson.M{"gender": gender})
	if err != nil {
		return nil, fmt.Errorf("find profiles by gender %q: %w", gender, err)
	}
	defer cursor.Close(ctx)

	var profiles []*profile.Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return profiles, nil
}

func (s *Store) Upsert(ctx context.Context, p *profile.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	filter := bson.M{"_id": p.Phone}
	update := bson.M{"$set": p}
	opts := options.Update().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("upsert profile %q: %w", p.Phone, err)
	}
	return nil
}

func (s *Store) SetTier(ctx context.Context, phone string, tier profile.Tier) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": phone},
		bson.M{"$set": bson.M{"tier": tier}},
	)
	if err != nil {
		return fmt.Errorf("set tier for profile %q: %w", phone, err)
	}
	if result.MatchedCount == 0 {
		return profile.ErrNotFound
	}
	return nil
}

func (s *Store) All(ctx context.Context) ([]*profile.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []*profile.Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return profiles, nil
}
