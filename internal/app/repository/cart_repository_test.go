package repository

import (
	"context"
	"testing"

	"github.com/hmlee/shopcart-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupTestDB starts a throwaway MongoDB container with the production
// indexes in place.
func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed repository test in short mode")
	}

	ctx := context.Background()

	mongoContainer, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Disconnect(ctx)
	})

	db := client.Database("shopcart_test")

	_, err = db.Collection("carts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	require.NoError(t, err)

	return db
}

func TestCartRepository_FindByUserID_NotFound(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))

	_, err := repo.FindByUserID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCartRepository_Upsert_InsertAndFind(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))
	ctx := context.Background()

	cart := &model.Cart{
		ID:     "cart-1",
		UserID: "u1",
		Items:  []model.CartItem{{ProductID: "p1", ProductName: "Widget", Price: 5, Quantity: 2}},
	}

	saved, err := repo.Upsert(ctx, cart)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)
	assert.False(t, saved.CreatedAt.IsZero())

	found, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", found.ID)
	assert.Equal(t, saved.Version, found.Version)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Widget", found.Items[0].ProductName)
}

func TestCartRepository_Upsert_ReplacesFullDocument(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))
	ctx := context.Background()

	cart := &model.Cart{ID: "cart-1", UserID: "u1", Items: []model.CartItem{}}
	saved, err := repo.Upsert(ctx, cart)
	require.NoError(t, err)

	require.NoError(t, saved.MergeOrAddItem(&model.Product{ID: "p1", Name: "Widget", Price: 5}, 3))
	saved, err = repo.Upsert(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	found, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 3, found.Items[0].Quantity)
}

func TestCartRepository_Upsert_StaleVersionConflicts(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))
	ctx := context.Background()

	cart := &model.Cart{ID: "cart-1", UserID: "u1", Items: []model.CartItem{}}
	first, err := repo.Upsert(ctx, cart)
	require.NoError(t, err)

	// Two readers got the same version; the second writer must lose.
	stale := *first
	_, err = repo.Upsert(ctx, first)
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, &stale)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestCartRepository_Upsert_DuplicateUserConflicts(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Upsert(ctx, &model.Cart{ID: "cart-1", UserID: "u1"})
	require.NoError(t, err)

	// A second never-persisted cart for the same user hits the unique
	// user_id index.
	_, err = repo.Upsert(ctx, &model.Cart{ID: "cart-2", UserID: "u1"})
	assert.ErrorIs(t, err, ErrVersionConflict)
}
