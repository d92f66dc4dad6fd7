package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"lojaonline/internal/database"
	"lojaonline/internal/models"

	"golang.org/x/sync/singleflight"
)

// DefaultFeaturedLimit is used when no featured limit is configured.
const DefaultFeaturedLimit = 8

// CatalogStore is the read side of the product catalog.
type CatalogStore interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListFeatured(ctx context.Context, limit int) ([]models.Product, error)
}

// CatalogService coalesces concurrent list queries. Results are never
// cached past the in-flight call, so stock shown is always current.
type CatalogService struct {
	store         CatalogStore
	featuredLimit int
	group         singleflight.Group
}

func NewCatalogService(store CatalogStore, featuredLimit int) *CatalogService {
	if featuredLimit <= 0 {
		featuredLimit = DefaultFeaturedLimit
	}
	return &CatalogService{store: store, featuredLimit: featuredLimit}
}

func (s *CatalogService) Featured(ctx context.Context) ([]models.Product, error) {
	key := fmt.Sprintf("featured:%d", s.featuredLimit)
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.store.ListFeatured(ctx, s.featuredLimit)
	})
	if err != nil {
		log.Printf("CatalogService.Featured - Error: %v", err)
		return nil, err
	}
	if shared {
		log.Printf("CatalogService.Featured - shared in-flight query")
	}
	return copyProducts(v.([]models.Product)), nil
}

func (s *CatalogService) All(ctx context.Context) ([]models.Product, error) {
	v, err, _ := s.group.Do("all", func() (interface{}, error) {
		return s.store.ListProducts(ctx)
	})
	if err != nil {
		log.Printf("CatalogService.All - Error: %v", err)
		return nil, err
	}
	return copyProducts(v.([]models.Product)), nil
}

// Product reads a single product straight from the store. ok is false when
// the product does not exist.
func (s *CatalogService) Product(ctx context.Context, id int64) (*models.Product, bool, error) {
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func copyProducts(in []models.Product) []models.Product {
	out := make([]models.Product, len(in))
	copy(out, in)
	return out
}
