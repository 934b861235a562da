// Package catalog provides the read-only product registry.
//
// The catalog is loaded once at startup (embedded sample data or a JSON file)
// and passed explicitly to the resolver and dispatcher. Lookup and search are
// pure: absent query, empty catalog and no-match all produce a valid result,
// never an error.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"voicecart/internal/logging"
)

//go:embed products.json
var embeddedProducts []byte

// Product is an immutable catalog entry. Loaded at process start,
// never mutated at runtime.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	ImageURL    string   `json:"image_url,omitempty"`
	Colors      []string `json:"colors"`
	Sizes       []string `json:"sizes"`
	Stock       int      `json:"stock"`
}

// Catalog is an in-memory product table preserving listed order.
// The mutex only guards hot reload of file-backed catalogs; the product
// slice itself is replaced wholesale, never edited in place.
type Catalog struct {
	mu       sync.RWMutex
	products []Product
	byID     map[string]int
}

// New builds a catalog from a product list. Listed order is preserved;
// a duplicated id keeps its first entry.
func New(products []Product) *Catalog {
	c := &Catalog{}
	c.replace(products)
	return c
}

// LoadEmbedded loads the baked-in sample catalog.
func LoadEmbedded() (*Catalog, error) {
	timer := logging.StartTimer(logging.CategoryCatalog, "LoadEmbedded")
	defer timer.Stop()

	products, err := parseProducts(embeddedProducts)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog corrupt: %w", err)
	}
	logging.Catalog("Loaded embedded catalog: %d products", len(products))
	return New(products), nil
}

// LoadFile loads a catalog from a products JSON file.
func LoadFile(path string) (*Catalog, error) {
	timer := logging.StartTimer(logging.CategoryCatalog, "LoadFile")
	defer timer.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	products, err := parseProducts(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	logging.Catalog("Loaded catalog from %s: %d products", path, len(products))
	return New(products), nil
}

func parseProducts(data []byte) ([]Product, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, err
	}
	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product at index %d has no id", i)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("product %s has negative price", p.ID)
		}
		if p.Stock < 0 {
			return nil, fmt.Errorf("product %s has negative stock", p.ID)
		}
	}
	return products, nil
}

func (c *Catalog) replace(products []Product) {
	byID := make(map[string]int, len(products))
	kept := make([]Product, 0, len(products))
	for _, p := range products {
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = len(kept)
		kept = append(kept, p)
	}

	c.mu.Lock()
	c.products = kept
	c.byID = byID
	c.mu.Unlock()
}

// GetByID returns the product with the exact id.
func (c *Catalog) GetByID(id string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// GetByName returns the product whose name equals the given name,
// case-insensitively. Used by the NLU gateway's enrichment step.
func (c *Catalog) GetByName(name string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lower := strings.ToLower(name)
	for _, p := range c.products {
		if strings.ToLower(p.Name) == lower {
			return p, true
		}
	}
	return Product{}, false
}

// Search returns products whose name, category or description contains the
// case-insensitive query substring, preserving catalog order. An empty query
// returns the full catalog.
func (c *Catalog) Search(query string) []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		out := make([]Product, len(c.products))
		copy(out, c.products)
		return out
	}

	lower := strings.ToLower(query)
	var out []Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), lower) ||
			strings.Contains(strings.ToLower(p.Category), lower) ||
			strings.Contains(strings.ToLower(p.Description), lower) {
			out = append(out, p)
		}
	}
	return out
}

// All returns the full catalog in listed order.
func (c *Catalog) All() []Product {
	return c.Search("")
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}
