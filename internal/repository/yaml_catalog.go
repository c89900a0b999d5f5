package repository

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
)

// YAMLCatalog loads the product catalog from a YAML file once and serves it
// from memory. The catalog changes on deploys, not at runtime.
type YAMLCatalog struct {
	path string

	mu       sync.Mutex
	products []models.Product
	loaded   bool
}

func NewYAMLCatalog(path string) *YAMLCatalog {
	return &YAMLCatalog{path: path}
}

type catalogFile struct {
	Products []models.Product `yaml:"products"`
}

func (c *YAMLCatalog) Products(ctx context.Context) ([]models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		data, err := os.ReadFile(c.path)
		if err != nil {
			return nil, &models.DataUnavailableError{Source: "catalog", Err: err}
		}
		var f catalogFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		for i, p := range f.Products {
			if p.Name == "" {
				return nil, fmt.Errorf("catalog entry %d has no name", i)
			}
		}
		c.products = f.Products
		c.loaded = true
	}

	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

// StaticCatalog serves a fixed product list, used in tests and as the
// fallback when no catalog file is configured.
type StaticCatalog struct {
	products []models.Product
}

func NewStaticCatalog(products []models.Product) *StaticCatalog {
	return &StaticCatalog{products: products}
}

func (c *StaticCatalog) Products(ctx context.Context) ([]models.Product, error) {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

// DefaultProducts is the built-in catalog used when no file is configured.
func DefaultProducts() []models.Product {
	return []models.Product{
		{
			Name: "Rewards Credit Card",
			Type: "credit_card",
			Eligibility: models.EligibilityRule{
				MinTxCount: 5,
				ForbidsTag: []models.TagKind{models.TagHighInstallmentUsage},
			},
			Affinity: models.AffinityRule{
				Base: 0.50,
				TagWeights: map[models.TagKind]float64{
					models.TagTravelHeavy: 0.20,
				},
				CategoryWeights: map[models.Category]float64{
					models.CategoryTravel:   0.20,
					models.CategoryShopping: 0.16,
				},
			},
		},
		{
			Name: "Smart Saver Account",
			Type: "savings",
			Affinity: models.AffinityRule{
				Base: 0.55,
				TagWeights: map[models.TagKind]float64{
					models.TagStableIncome: 0.20,
				},
			},
		},
		{
			Name: "Debt Consolidation Loan",
			Type: "loan",
			Eligibility: models.EligibilityRule{
				RequiresAnyTag: []models.TagKind{models.TagHighInstallmentUsage},
			},
			Affinity: models.AffinityRule{
				Base: 0.62,
			},
		},
	}
}

var (
	_ domrepo.Catalog = (*YAMLCatalog)(nil)
	_ domrepo.Catalog = (*StaticCatalog)(nil)
)
