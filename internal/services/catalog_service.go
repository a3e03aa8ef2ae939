package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"delivery_api/internal/models"
	"delivery_api/internal/redis"
	"delivery_api/internal/repository"
	"delivery_api/pkg/apperrors"

	"github.com/sirupsen/logrus"
)

// Cache is the subset of the Redis client used for read-through caching.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type CatalogService interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type catalogService struct {
	products repository.ProductRepository
	cache    Cache
	ttl      time.Duration
	logger   *logrus.Logger
}

// NewCatalogService caches product listings when cache is non nil. Cached
// stock figures are informational only; the order store always reads live
// rows.
func NewCatalogService(products repository.ProductRepository, cache Cache, ttl time.Duration, logger *logrus.Logger) CatalogService {
	return &catalogService{products: products, cache: cache, ttl: ttl, logger: logger}
}

func productsCacheKey(f models.ProductFilter) string {
	return fmt.Sprintf("products:c%d:f%t:s%s", f.CategoryID, f.Featured, strings.ToLower(strings.TrimSpace(f.Search)))
}

func (s *catalogService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	key := productsCacheKey(filter)
	if s.cache != nil {
		var cached []models.Product
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.WithError(err).WithField("key", key).Warn("Product cache read failed")
		}
	}

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if products == nil {
		products = []models.Product{}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, products, s.ttl); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Product cache write failed")
		}
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.From(err)
	}
	return product, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.products.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}
