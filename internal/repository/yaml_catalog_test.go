package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"FinSight/internal/domain/models"
)

const catalogYAML = `products:
  - name: Rewards Credit Card
    type: credit_card
    eligibility:
      min_tx_count: 5
      forbids_tag: [high_installment_usage]
    affinity:
      base: 0.50
      tag_weights:
        travel_heavy: 0.20
      category_weights:
        Travel: 0.20
  - name: Smart Saver Account
    type: savings
    affinity:
      base: 0.55
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestYAMLCatalogLoadsProducts(t *testing.T) {
	cat := NewYAMLCatalog(writeCatalog(t, catalogYAML))

	products, err := cat.Products(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	card := products[0]
	if card.Name != "Rewards Credit Card" || card.Type != "credit_card" {
		t.Fatalf("unexpected first product: %+v", card)
	}
	if card.Eligibility.MinTxCount != 5 {
		t.Fatalf("expected min_tx_count 5, got %d", card.Eligibility.MinTxCount)
	}
	if len(card.Eligibility.ForbidsTag) != 1 || card.Eligibility.ForbidsTag[0] != models.TagHighInstallmentUsage {
		t.Fatalf("unexpected forbids_tag: %v", card.Eligibility.ForbidsTag)
	}
	if card.Affinity.TagWeights[models.TagTravelHeavy] != 0.20 {
		t.Fatalf("unexpected tag weight: %v", card.Affinity.TagWeights)
	}
	if card.Affinity.CategoryWeights[models.CategoryTravel] != 0.20 {
		t.Fatalf("unexpected category weight: %v", card.Affinity.CategoryWeights)
	}
}

func TestYAMLCatalogMissingFileIsDataUnavailable(t *testing.T) {
	cat := NewYAMLCatalog(filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := cat.Products(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if !models.IsDataUnavailable(err) {
		t.Fatalf("expected data unavailable, got %v", err)
	}
}

func TestYAMLCatalogRejectsUnnamedEntry(t *testing.T) {
	cat := NewYAMLCatalog(writeCatalog(t, "products:\n  - type: loan\n"))

	if _, err := cat.Products(context.Background()); err == nil {
		t.Fatalf("expected error for unnamed product")
	}
}

func TestYAMLCatalogReturnsCopies(t *testing.T) {
	cat := NewYAMLCatalog(writeCatalog(t, catalogYAML))

	first, err := cat.Products(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first[0].Name = "mutated"

	second, err := cat.Products(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second[0].Name != "Rewards Credit Card" {
		t.Fatalf("catalog slice was not copied: %q", second[0].Name)
	}
}

func TestDefaultProductsEligibleShapes(t *testing.T) {
	products := DefaultProducts()
	if len(products) == 0 {
		t.Fatalf("expected built-in products")
	}
	for _, p := range products {
		if p.Name == "" || p.Type == "" {
			t.Fatalf("product missing name or type: %+v", p)
		}
		if p.Affinity.Base <= 0 || p.Affinity.Base > 1 {
			t.Fatalf("product %s base out of range: %v", p.Name, p.Affinity.Base)
		}
	}
}
