package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hmlee/shopcart-backend/internal/app/model"
	"github.com/hmlee/shopcart-backend/internal/app/repository"
	"github.com/hmlee/shopcart-backend/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCartRepo reproduces the store's version-token discipline in memory.
type mockCartRepo struct {
	mu            sync.Mutex
	carts         map[string]*model.Cart // keyed by userID
	findErr       error
	upsertErr     error
	conflictsLeft int // next N upserts lose the version race
	upsertCalls   int
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: map[string]*model.Cart{}}
}

func (m *mockCartRepo) FindByUserID(_ context.Context, userID string) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	copied := *cart
	copied.Items = append([]model.CartItem{}, cart.Items...)
	return &copied, nil
}

func (m *mockCartRepo) Upsert(_ context.Context, cart *model.Cart) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		// Simulate the concurrent writer that won the race.
		if stored, ok := m.carts[cart.UserID]; ok {
			stored.Version++
		}
		return nil, repository.ErrVersionConflict
	}

	stored, exists := m.carts[cart.UserID]
	if cart.Version == 0 {
		if exists {
			return nil, repository.ErrVersionConflict
		}
	} else if !exists || stored.Version != cart.Version {
		return nil, repository.ErrVersionConflict
	}

	saved := *cart
	saved.Version = cart.Version + 1
	saved.Items = append([]model.CartItem{}, cart.Items...)
	m.carts[cart.UserID] = &saved

	copied := saved
	copied.Items = append([]model.CartItem{}, saved.Items...)
	return &copied, nil
}

type mockProductRepo struct {
	products map[string]*model.Product
	err      error
}

func (m *mockProductRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProductRepo) FindAll(context.Context) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) FindByCategory(_ context.Context, category string) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range m.products {
		if p.Category == category {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

// mapCartCache is a plain in-memory CartCache for exercising the read path.
type mapCartCache struct {
	mu    sync.Mutex
	carts map[string]*model.Cart
}

func newMapCartCache() *mapCartCache {
	return &mapCartCache{carts: map[string]*model.Cart{}}
}

func (m *mapCartCache) Get(_ context.Context, userID string) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *mapCartCache) Set(_ context.Context, userID string, cart *model.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = cart
	return nil
}

func (m *mapCartCache) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

func setupCartServiceTest(t *testing.T) (CartService, *mockCartRepo, *mockProductRepo) {
	t.Helper()

	cartRepo := newMockCartRepo()
	productRepo := &mockProductRepo{products: map[string]*model.Product{
		"p1": {ID: "p1", Category: "tools", Name: "Widget", Price: 5.00, StockQuantity: 10},
		"p2": {ID: "p2", Category: "toys", Name: "Gadget", Price: 10.00, StockQuantity: 3},
	}}

	svc := NewCartService(cartRepo, productRepo, nil, 2*time.Second)
	return svc, cartRepo, productRepo
}

func TestCartService_GetCart_CreatesOnFirstAccess(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, cart.ID)
	assert.Equal(t, "u1", cart.UserID)
	assert.Empty(t, cart.Items)
}

func TestCartService_GetCart_Idempotent(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	first, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)

	second, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCartService_AddItem_NewItem(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p1", cart.Items[0].ProductID)
	assert.Equal(t, "Widget", cart.Items[0].ProductName)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	_, totalItems := cart.Totals()
	assert.Equal(t, 2, totalItems)
}

func TestCartService_AddItem_MergesQuantities(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	cart, err := svc.AddItem(ctx, "u1", "p1", 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_AddItem_TotalsAcrossProducts(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p1", 3)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)

	totalAmount, totalItems := cart.Totals()
	assert.Equal(t, 35.00, totalAmount)
	assert.Equal(t, 6, totalItems)
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	svc, cartRepo, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, "u1", "ghost", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	// The persisted cart must be untouched by the failed add.
	stored := cartRepo.carts["u1"]
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "p1", stored.Items[0].ProductID)
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	svc, cartRepo, _ := setupCartServiceTest(t)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 0)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	assert.Empty(t, cartRepo.carts)
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	cart, err := svc.UpdateItemQuantity(ctx, "u1", "p1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestCartService_UpdateItemQuantity_MissingProductIsNoOp(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	cart, err := svc.UpdateItemQuantity(ctx, "u1", "ghost", 7)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartService_UpdateItemQuantity_RejectsZero(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(ctx, "u1", "p1", 0)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestCartService_RemoveItem_Idempotent(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	cart, err = svc.RemoveItem(ctx, "u1", "p1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].ProductID)
}

func TestCartService_ClearCart(t *testing.T) {
	svc, cartRepo, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(ctx, "u1"))

	stored := cartRepo.carts["u1"]
	assert.Empty(t, stored.Items)

	totalAmount, totalItems := stored.Totals()
	assert.Zero(t, totalAmount)
	assert.Zero(t, totalItems)
}

func TestCartService_Mutate_RetriesOnConflict(t *testing.T) {
	svc, cartRepo, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	cartRepo.conflictsLeft = 1
	cart, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartService_Mutate_ConflictExhaustion(t *testing.T) {
	svc, cartRepo, _ := setupCartServiceTest(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	cartRepo.conflictsLeft = upsertAttempts
	_, err = svc.AddItem(ctx, "u1", "p1", 1)
	assert.ErrorIs(t, err, ErrCartConflict)
}

func TestCartService_GetCart_ConcurrentCreateConverges(t *testing.T) {
	cartRepo := newMockCartRepo()

	// The concurrent winner already persisted a cart for u1; a later
	// get-or-create must return it rather than inventing a second cart.
	winner := &model.Cart{ID: "winner", UserID: "u1", Items: []model.CartItem{}}
	_, err := cartRepo.Upsert(context.Background(), winner)
	require.NoError(t, err)

	svc := NewCartService(cartRepo, &mockProductRepo{products: map[string]*model.Product{}}, nil, time.Second)
	cart, err := svc.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "winner", cart.ID)
}

func TestCartService_GetCart_ReadThroughCache(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := &mockProductRepo{products: map[string]*model.Product{
		"p1": {ID: "p1", Name: "Widget", Price: 5.00},
	}}
	cartCache := newMapCartCache()
	svc := NewCartService(cartRepo, productRepo, cartCache, time.Second)
	ctx := context.Background()

	cached := &model.Cart{ID: "from-cache", UserID: "u1", Items: []model.CartItem{}}
	require.NoError(t, cartCache.Set(ctx, "u1", cached))

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "from-cache", cart.ID)
	// The store was never touched.
	assert.Empty(t, cartRepo.carts)
}

func TestCartService_Mutations_InvalidateCache(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := &mockProductRepo{products: map[string]*model.Product{
		"p1": {ID: "p1", Name: "Widget", Price: 5.00},
	}}
	cartCache := newMapCartCache()
	svc := NewCartService(cartRepo, productRepo, cartCache, time.Second)
	ctx := context.Background()

	stale := &model.Cart{ID: "stale", UserID: "u1", Items: []model.CartItem{}}
	require.NoError(t, cartCache.Set(ctx, "u1", stale))

	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	_, err = cartCache.Get(ctx, "u1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
