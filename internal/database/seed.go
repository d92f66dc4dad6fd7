package database

import (
	"context"
	"fmt"
	"log"

	"lojaonline/internal/models"
)

// Seed inserts the demo catalog when the products table is empty and the
// given test customer unless its email is already registered.
func (db *Database) Seed(ctx context.Context, products []models.Product, customer *models.Customer) error {
	n, err := db.CountProducts(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		for i := range products {
			if err := db.CreateProduct(ctx, &products[i]); err != nil {
				return fmt.Errorf("seed products: %w", err)
			}
		}
		log.Printf("Database.Seed - %d products created", len(products))
	} else {
		log.Printf("Database.Seed - catalog already has %d products, skipping", n)
	}

	if customer == nil {
		return nil
	}
	if _, err := db.GetCustomerByEmail(ctx, customer.Email); err == nil {
		log.Printf("Database.Seed - test customer %s already exists", customer.Email)
		return nil
	}
	if err := db.CreateCustomer(ctx, customer); err != nil && err != ErrDuplicate {
		return fmt.Errorf("seed customer: %w", err)
	}
	log.Printf("Database.Seed - test customer %s created", customer.Email)
	return nil
}

// SyncCatalog updates the products whose name already exists in the catalog
// and inserts the others.
func (db *Database) SyncCatalog(ctx context.Context, products []models.Product) (created, updated int, err error) {
	existing, err := db.ListProducts(ctx)
	if err != nil {
		return 0, 0, err
	}
	byName := make(map[string]int64, len(existing))
	for _, p := range existing {
		byName[p.Name] = p.ID
	}

	for i := range products {
		p := &products[i]
		if id, ok := byName[p.Name]; ok {
			p.ID = id
			if err := db.UpdateProduct(ctx, p); err != nil {
				return created, updated, fmt.Errorf("sync product %q: %w", p.Name, err)
			}
			updated++
			continue
		}
		if err := db.CreateProduct(ctx, p); err != nil {
			return created, updated, fmt.Errorf("sync product %q: %w", p.Name, err)
		}
		byName[p.Name] = p.ID
		created++
	}
	log.Printf("Database.SyncCatalog - %d products created, %d updated", created, updated)
	return created, updated, nil
}
