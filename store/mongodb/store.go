package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/oauthkit/domain"
	oautherrors "go.pilab.hu/oauthkit/errors"
)

// TokenRecordsCollection is the collection holding one document per service.
const TokenRecordsCollection = "token_records"

type tokenRecordDoc struct {
	ID        string             `bson:"_id"` // service name
	Record    domain.TokenRecord `bson:"record"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// TokenStore implements the store.TokenStore interface on MongoDB. Upsert
// semantics give the last-writer-wins behavior the core expects from its
// store under concurrent refreshes.
type TokenStore struct {
	coll *mongo.Collection
}

// NewTokenStore creates a TokenStore over the given database.
func NewTokenStore(db *mongo.Database) *TokenStore {
	return &TokenStore{
		coll: db.Collection(TokenRecordsCollection),
	}
}

// Get retrieves the token record stored for the service.
func (s *TokenStore) Get(ctx context.Context, serviceName string) (*domain.TokenRecord, error) {
	var doc tokenRecordDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": serviceName}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, oautherrors.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token record: %w", err)
	}

	return &doc.Record, nil
}

// Put stores or replaces the token record for the service.
func (s *TokenStore) Put(ctx context.Context, serviceName string, record *domain.TokenRecord) error {
	doc := tokenRecordDoc{
		ID:        serviceName,
		Record:    *record,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": serviceName}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store token record: %w", err)
	}

	return nil
}

// Delete removes the token record for the service.
func (s *TokenStore) Delete(ctx context.Context, serviceName string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": serviceName})
	if err != nil {
		return fmt.Errorf("failed to delete token record: %w", err)
	}

	return nil
}
