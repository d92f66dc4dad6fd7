package cli

import (
	"fmt"
	"os"

	"lojaonline/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Test customer created by initdb.
const (
	TestCustomerName     = "Cliente Teste"
	TestCustomerEmail    = "teste@email.com"
	TestCustomerPassword = "654321"
	TestCustomerPhone    = "(31) 99999-9999"
)

var demoCatalog = []models.ProductForm{
	{Name: "Caneca Cerâmica", Price: "39.90", Description: "Caneca de cerâmica de 350 ml.", Stock: 25},
	{Name: "Camiseta Algodão", Price: "59.90", Description: "Camiseta 100% algodão, várias cores.", Stock: 40},
	{Name: "Garrafa Térmica", Price: "89.00", Description: "Mantém a temperatura por até 12 horas.", Stock: 15},
	{Name: "Caderno Pautado", Price: "24.50", Description: "Caderno com 96 folhas pautadas.", Stock: 60},
	{Name: "Mochila Urbana", Price: "149.90", Description: "Mochila com compartimento para notebook.", Stock: 8},
	{Name: "Fone de Ouvido", Price: "119.00", Description: "Fone com cancelamento de ruído passivo.", Stock: 12},
	{Name: "Luminária LED", Price: "74.90", Description: "Luminária de mesa com três intensidades.", Stock: 0},
	{Name: "Kit Canetas", Price: "18.00", Description: "Kit com 6 canetas coloridas.", Stock: 100},
}

type catalogFile struct {
	Products []models.ProductForm `yaml:"products"`
}

// loadCatalog reads products from a YAML file, or returns the demo catalog
// when path is empty.
func loadCatalog(path string) ([]models.Product, error) {
	forms := demoCatalog
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		forms = file.Products
	}
	return productsFromForms(forms)
}

func productsFromForms(forms []models.ProductForm) ([]models.Product, error) {
	products := make([]models.Product, 0, len(forms))
	for i, f := range forms {
		if f.Name == "" {
			return nil, fmt.Errorf("product %d: name is required", i+1)
		}
		price, err := decimal.NewFromString(f.Price)
		if err != nil {
			return nil, fmt.Errorf("product %q: invalid price %q: %w", f.Name, f.Price, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("product %q: price must not be negative", f.Name)
		}
		if f.Stock < 0 {
			return nil, fmt.Errorf("product %q: stock must not be negative", f.Name)
		}
		products = append(products, models.Product{
			Name:        f.Name,
			Price:       price,
			Description: f.Description,
			Stock:       f.Stock,
			ImageURL:    f.ImageURL,
		})
	}
	return products, nil
}
