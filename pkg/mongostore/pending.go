package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/shimkit/pkg/shim"
)

const pendingCollection = "pending_authorizations"

type pendingDoc struct {
	StateToken        string    `bson:"_id"`
	UserID            string    `bson:"user_id"`
	ShimKey           string    `bson:"shim_key"`
	Interim           []byte    `bson:"interim"`
	ClientRedirectURL string    `bson:"client_redirect_url,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
}

// PendingAuthorizationStore is a MongoDB-backed
// shim.PendingAuthorizationStore. The state token is the document id, so a
// colliding Save fails with a duplicate key error.
type PendingAuthorizationStore struct {
	coll *mongo.Collection
	ttl  time.Duration
}

var _ shim.PendingAuthorizationStore = (*PendingAuthorizationStore)(nil)

// NewPendingAuthorizationStore binds the store to its collection. Records
// expire after ttl via a TTL index; a zero ttl disables expiry.
func NewPendingAuthorizationStore(db *mongo.Database, ttl time.Duration) *PendingAuthorizationStore {
	return &PendingAuthorizationStore{coll: db.Collection(pendingCollection), ttl: ttl}
}

// EnsureIndexes creates the TTL index. Call once at startup.
func (s *PendingAuthorizationStore) EnsureIndexes(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(s.ttl.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("create pending authorization indexes: %w", err)
	}
	return nil
}

func (s *PendingAuthorizationStore) Save(ctx context.Context, pending *shim.PendingAuthorization) error {
	_, err := s.coll.InsertOne(ctx, pendingDoc{
		StateToken:        pending.StateToken,
		UserID:            pending.UserID,
		ShimKey:           pending.ShimKey,
		Interim:           pending.Interim,
		ClientRedirectURL: pending.ClientRedirectURL,
		CreatedAt:         pending.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shim.ErrStateConflict
		}
		return fmt.Errorf("insert pending authorization: %w", err)
	}
	return nil
}

func (s *PendingAuthorizationStore) FindByStateToken(ctx context.Context, stateToken string) (*shim.PendingAuthorization, error) {
	var doc pendingDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: stateToken}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shim.ErrNoPendingAuthorization
		}
		return nil, fmt.Errorf("find pending authorization: %w", err)
	}
	return &shim.PendingAuthorization{
		StateToken:        doc.StateToken,
		UserID:            doc.UserID,
		ShimKey:           doc.ShimKey,
		Interim:           doc.Interim,
		ClientRedirectURL: doc.ClientRedirectURL,
		CreatedAt:         doc.CreatedAt,
	}, nil
}

func (s *PendingAuthorizationStore) Delete(ctx context.Context, pending *shim.PendingAuthorization) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: pending.StateToken}})
	if err != nil {
		return fmt.Errorf("delete pending authorization: %w", err)
	}
	if res.DeletedCount == 0 {
		return shim.ErrNoPendingAuthorization
	}
	return nil
}
