package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"delivery_api/internal/models"
	"delivery_api/internal/redis"
	"delivery_api/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducts struct {
	products  []models.Product
	listCalls int
	err       error
}

func (f *fakeProducts) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	f.listCalls++
	return f.products, f.err
}

func (f *fakeProducts) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError("product not found")
}

func (f *fakeProducts) ListCategories(ctx context.Context) ([]models.Category, error) {
	return nil, f.err
}

// mapCache stores JSON like the Redis client does.
type mapCache struct {
	values  map[string][]byte
	ttls    map[string]time.Duration
	readErr error
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if c.readErr != nil {
		return c.readErr
	}
	raw, ok := c.values[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	c.ttls[key] = ttl
	return nil
}

func menu() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Pizza", Price: decimal.RequireFromString("39.90"), Stock: 10, IsActive: true},
		{ID: 2, Name: "Soda", Price: decimal.RequireFromString("6.00"), Stock: 100, IsActive: true},
	}
}

func TestListProducts_ReadThroughCache(t *testing.T) {
	repo := &fakeProducts{products: menu()}
	cache := newMapCache()
	svc := NewCatalogService(repo, cache, time.Minute, quietLogger())
	filter := models.ProductFilter{CategoryID: 3, Search: " Pizza "}

	first, err := svc.ListProducts(context.Background(), filter)
	require.NoError(t, err)
	second, err := svc.ListProducts(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listCalls)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.True(t, first[0].Price.Equal(second[0].Price))
	assert.Equal(t, time.Minute, cache.ttls["products:c3:ffalse:spizza"])
}

func TestListProducts_CacheFailureFallsBackToStore(t *testing.T) {
	repo := &fakeProducts{products: menu()}
	cache := newMapCache()
	cache.readErr = errors.New("connection refused")
	svc := NewCatalogService(repo, cache, time.Minute, quietLogger())

	products, err := svc.ListProducts(context.Background(), models.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, 1, repo.listCalls)
}

func TestListProducts_WithoutCache(t *testing.T) {
	repo := &fakeProducts{}
	svc := NewCatalogService(repo, nil, time.Minute, quietLogger())

	products, err := svc.ListProducts(context.Background(), models.ProductFilter{Featured: true})
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	repo.err = errors.New("db down")
	_, err = svc.ListProducts(context.Background(), models.ProductFilter{})
	assertKind(t, err, apperrors.ErrInternal)
}

func TestGetProduct(t *testing.T) {
	svc := NewCatalogService(&fakeProducts{products: menu()}, nil, time.Minute, quietLogger())

	product, err := svc.GetProduct(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Soda", product.Name)

	_, err = svc.GetProduct(context.Background(), 99)
	assertKind(t, err, apperrors.ErrNotFound)
}
