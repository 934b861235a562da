// Package resolver maps partial or ambiguous entity references from a
// classified intent onto a concrete catalog or cart entry.
package resolver

import (
	"strings"

	"voicecart/internal/cart"
	"voicecart/internal/catalog"
	"voicecart/internal/logging"
)

// Ref is the raw reference material extracted from an utterance:
// an explicit id, a product name fragment, or a vaguer free-text query.
type Ref struct {
	ID    string
	Name  string
	Query string
}

// Empty reports whether the utterance gave nothing to resolve from.
// Callers use this to distinguish "not found" from "nothing specified".
func (r Ref) Empty() bool {
	return r.ID == "" && r.Name == "" && r.Query == ""
}

// Target is a resolved product reference. Product is nil when the id was
// taken from the classifier verbatim but is unknown to the catalog; the
// cart store re-validates ids on mutation, so that case is not an error
// here.
type Target struct {
	ID      string
	Product *catalog.Product
}

// DisplayName returns the product name when known, falling back to the id.
func (t Target) DisplayName() string {
	if t.Product != nil {
		return t.Product.Name
	}
	return t.ID
}

// Resolver binds references against the catalog and cart snapshots.
type Resolver struct {
	catalog *catalog.Catalog
}

// New creates a resolver over the given catalog.
func New(cat *catalog.Catalog) *Resolver {
	return &Resolver{catalog: cat}
}

// ResolveCatalog resolves a reference against the full catalog, for
// operations that introduce or display a product (add, view details).
//
// Precedence: explicit id wins outright; then first substring match on
// product name in catalog order; then first match of the free-text query
// over name or category. First-match-wins, no disambiguation prompt.
func (r *Resolver) ResolveCatalog(ref Ref) (Target, bool) {
	if ref.ID != "" {
		t := Target{ID: ref.ID}
		if p, ok := r.catalog.GetByID(ref.ID); ok {
			t.Product = &p
		}
		logging.Resolve("Catalog scope: explicit id %q (known=%v)", ref.ID, t.Product != nil)
		return t, true
	}

	if ref.Name != "" {
		needle := strings.ToLower(ref.Name)
		for _, p := range r.catalog.All() {
			if strings.Contains(strings.ToLower(p.Name), needle) {
				p := p
				logging.Resolve("Catalog scope: name %q matched %s (%s)", ref.Name, p.Name, p.ID)
				return Target{ID: p.ID, Product: &p}, true
			}
		}
		logging.Resolve("Catalog scope: name %q matched nothing", ref.Name)
		return Target{}, false
	}

	if ref.Query != "" {
		needle := strings.ToLower(ref.Query)
		for _, p := range r.catalog.All() {
			if strings.Contains(strings.ToLower(p.Name), needle) ||
				strings.Contains(strings.ToLower(p.Category), needle) {
				p := p
				logging.Resolve("Catalog scope: query %q matched %s (%s)", ref.Query, p.Name, p.ID)
				return Target{ID: p.ID, Product: &p}, true
			}
		}
		logging.Resolve("Catalog scope: query %q matched nothing", ref.Query)
		return Target{}, false
	}

	return Target{}, false
}

// ResolveCart resolves a reference against a cart snapshot, for
// operations on items the user already holds (remove, update quantity).
// Name and query fragments search line-item names in insertion order.
// The snapshot is taken once per dispatch by the caller so resolve and
// act see the same cart state.
func (r *Resolver) ResolveCart(items []cart.LineItem, ref Ref) (Target, bool) {
	if ref.ID != "" {
		t := Target{ID: ref.ID}
		if p, ok := r.catalog.GetByID(ref.ID); ok {
			t.Product = &p
		}
		logging.Resolve("Cart scope: explicit id %q", ref.ID)
		return t, true
	}

	needle := strings.ToLower(ref.Name)
	if needle == "" {
		needle = strings.ToLower(ref.Query)
	}
	if needle == "" {
		return Target{}, false
	}

	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Product.Name), needle) {
			p := item.Product
			logging.Resolve("Cart scope: %q matched %s (%s)", needle, p.Name, p.ID)
			return Target{ID: p.ID, Product: &p}, true
		}
	}
	logging.Resolve("Cart scope: %q matched nothing among %d items", needle, len(items))
	return Target{}, false
}
