package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hmlee/shopcart-backend/internal/app/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	// ErrVersionConflict signals that the cart was written by someone else
	// between our read and our write.
	ErrVersionConflict = errors.New("cart version conflict")
)

// CartRepository is the persistence contract for cart documents: lookup by
// the userId partition key and full-document upsert. There is no partial
// update primitive and no delete.
type CartRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Cart, error)
	Upsert(ctx context.Context, cart *model.Cart) (*model.Cart, error)
}

type cartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &cartRepository{
		collection: db.Collection("carts"),
	}
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart

	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	return &cart, nil
}

// Upsert writes the whole cart document using the version field as an
// optimistic-concurrency token. A cart at version 0 has never been persisted
// and is inserted; anything else replaces the stored document only if the
// stored version still matches the one we read.
func (r *cartRepository) Upsert(ctx context.Context, cart *model.Cart) (*model.Cart, error) {
	now := time.Now()

	if cart.Version == 0 {
		next := *cart
		next.Version = 1
		next.CreatedAt = now
		next.UpdatedAt = now

		if _, err := r.collection.InsertOne(ctx, &next); err != nil {
			// The unique user_id index turns a concurrent first write
			// into a duplicate key error.
			if mongo.IsDuplicateKeyError(err) {
				return nil, ErrVersionConflict
			}
			return nil, fmt.Errorf("failed to insert cart: %w", err)
		}
		return &next, nil
	}

	next := *cart
	next.Version = cart.Version + 1
	next.UpdatedAt = now

	filter := bson.M{"_id": cart.ID, "version": cart.Version}
	result, err := r.collection.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return nil, fmt.Errorf("failed to replace cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrVersionConflict
	}

	return &next, nil
}
