package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/shimkit/pkg/shim"
)

const credentialsCollection = "access_credentials"

type credentialDoc struct {
	ID           string            `bson:"_id"`
	UserID       string            `bson:"user_id"`
	ShimKey      string            `bson:"shim_key"`
	StateToken   string            `bson:"state_token"`
	AccessToken  string            `bson:"access_token"`
	TokenSecret  string            `bson:"token_secret,omitempty"`
	RefreshToken string            `bson:"refresh_token,omitempty"`
	TokenType    string            `bson:"token_type,omitempty"`
	ExpiresAt    time.Time         `bson:"expires_at,omitempty"`
	Extra        map[string]string `bson:"extra,omitempty"`
	CreatedAt    time.Time         `bson:"created_at"`
}

// CredentialStore is a MongoDB-backed shim.CredentialStore.
type CredentialStore struct {
	coll *mongo.Collection
}

var _ shim.CredentialStore = (*CredentialStore)(nil)

// NewCredentialStore binds the store to its collection.
func NewCredentialStore(db *mongo.Database) *CredentialStore {
	return &CredentialStore{coll: db.Collection(credentialsCollection)}
}

// EnsureIndexes creates the lookup index. Call once at startup.
func (s *CredentialStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "shim_key", Value: 1},
			{Key: "created_at", Value: -1},
		},
	})
	if err != nil {
		return fmt.Errorf("create credential indexes: %w", err)
	}
	return nil
}

func (s *CredentialStore) FindLatest(ctx context.Context, userID, shimKey string) (*shim.AccessCredential, error) {
	var doc credentialDoc
	err := s.coll.FindOne(ctx,
		bson.D{{Key: "user_id", Value: userID}, {Key: "shim_key", Value: shimKey}},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shim.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("find latest credential: %w", err)
	}
	return doc.toCredential()
}

func (s *CredentialStore) FindAll(ctx context.Context, userID, shimKey string) ([]*shim.AccessCredential, error) {
	cursor, err := s.coll.Find(ctx,
		bson.D{{Key: "user_id", Value: userID}, {Key: "shim_key", Value: shimKey}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}

	var docs []credentialDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}

	out := make([]*shim.AccessCredential, 0, len(docs))
	for _, doc := range docs {
		credential, err := doc.toCredential()
		if err != nil {
			return nil, err
		}
		out = append(out, credential)
	}
	return out, nil
}

func (s *CredentialStore) Save(ctx context.Context, credential *shim.AccessCredential) error {
	if _, err := s.coll.InsertOne(ctx, fromCredential(credential)); err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, credential *shim.AccessCredential) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: credential.ID.String()}})
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if res.DeletedCount == 0 {
		return shim.ErrCredentialNotFound
	}
	return nil
}

func fromCredential(c *shim.AccessCredential) credentialDoc {
	return credentialDoc{
		ID:           c.ID.String(),
		UserID:       c.UserID,
		ShimKey:      c.ShimKey,
		StateToken:   c.StateToken,
		AccessToken:  c.AccessToken,
		TokenSecret:  c.TokenSecret,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		ExpiresAt:    c.ExpiresAt,
		Extra:        c.Extra,
		CreatedAt:    c.CreatedAt,
	}
}

func (d credentialDoc) toCredential() (*shim.AccessCredential, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse credential id %q: %w", d.ID, err)
	}
	return &shim.AccessCredential{
		ID:           id,
		UserID:       d.UserID,
		ShimKey:      d.ShimKey,
		StateToken:   d.StateToken,
		AccessToken:  d.AccessToken,
		TokenSecret:  d.TokenSecret,
		RefreshToken: d.RefreshToken,
		TokenType:    d.TokenType,
		ExpiresAt:    d.ExpiresAt,
		Extra:        d.Extra,
		CreatedAt:    d.CreatedAt,
	}, nil
}
