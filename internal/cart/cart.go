// Package cart owns the authoritative shopping cart state.
//
// The Store is the only component permitted to mutate the cart. Every
// mutation is atomic with respect to the stock invariant: a line item's
// quantity is always a positive integer no greater than the product's
// stock, and an operation that would violate that leaves the cart
// unchanged and reports a descriptive failure instead.
//
// Mutations return an Outcome whose Message is surfaced verbatim to the
// user: result and explanation travel on one channel because the
// human-facing agent needs exactly that text.
package cart

import (
	"errors"
	"fmt"
	"sync"

	"voicecart/internal/catalog"
	"voicecart/internal/logging"
)

// Failure taxonomy for cart and resolution operations.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// LineItem is one product's quantity entry within the cart.
type LineItem struct {
	Product  catalog.Product
	Quantity int
}

// Outcome is the result of a cart mutation. Message is always set and is
// meant to be spoken/displayed as-is.
type Outcome struct {
	OK      bool
	Err     error // nil on success; wraps a taxonomy sentinel on failure
	Message string
}

func success(format string, args ...interface{}) Outcome {
	return Outcome{OK: true, Message: fmt.Sprintf(format, args...)}
}

func failure(sentinel error, format string, args ...interface{}) Outcome {
	msg := fmt.Sprintf(format, args...)
	return Outcome{Err: fmt.Errorf("%w: %s", sentinel, msg), Message: msg}
}

// Store is the cart state machine. Entries preserve insertion order,
// keyed by product id. Subscribers are notified after every successful
// mutation; the UI polls Items/ItemCount/Total from its callback.
type Store struct {
	mu        sync.RWMutex
	catalog   *catalog.Catalog
	order     []string // product ids, insertion order
	items     map[string]*LineItem
	version   uint64
	persister Persister

	subMu       sync.Mutex
	subscribers []func()
}

// NewStore creates a cart backed by the given catalog and persister.
// A nil persister keeps the cart memory-only. Previously persisted items
// are restored; entries that no longer match the catalog are dropped and
// quantities are clamped to current stock, so the invariant holds from
// the first read. Corrupt or missing persisted data yields an empty
// cart, never an error.
func NewStore(cat *catalog.Catalog, p Persister) *Store {
	s := &Store{
		catalog:   cat,
		items:     make(map[string]*LineItem),
		persister: p,
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	if s.persister == nil {
		return
	}
	saved, err := s.persister.Load()
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("Cart restore failed, starting empty: %v", err)
		return
	}
	restored := 0
	for _, it := range saved {
		product, ok := s.catalog.GetByID(it.ProductID)
		if !ok {
			logging.StoreDebug("Dropping persisted line item %s: not in catalog", it.ProductID)
			continue
		}
		qty := it.Quantity
		if qty <= 0 {
			continue
		}
		if qty > product.Stock {
			qty = product.Stock
		}
		if qty == 0 {
			continue
		}
		if _, dup := s.items[product.ID]; dup {
			continue
		}
		s.order = append(s.order, product.ID)
		s.items[product.ID] = &LineItem{Product: product, Quantity: qty}
		restored++
	}
	if restored > 0 {
		logging.Store("Restored cart: %d line items", restored)
	}
}

// Add adds quantity units of the product to the cart.
func (s *Store) Add(productID string, quantity int) Outcome {
	if quantity <= 0 {
		quantity = 1
	}

	s.mu.Lock()

	product, ok := s.catalog.GetByID(productID)
	if !ok {
		s.mu.Unlock()
		return failure(ErrProductNotFound, "Product with ID %s not found.", productID)
	}
	if quantity > product.Stock {
		s.mu.Unlock()
		return failure(ErrInsufficientStock, "Not enough stock for %s. Only %d available.", product.Name, product.Stock)
	}

	if item, exists := s.items[productID]; exists {
		// Check the post-addition total before touching state; the
		// reported "already have" count must reflect the same snapshot.
		newTotal := item.Quantity + quantity
		if newTotal > product.Stock {
			existing := item.Quantity
			s.mu.Unlock()
			return failure(ErrInsufficientStock,
				"Cannot add %d more of %s. You already have %d. Only %d total available.",
				quantity, product.Name, existing, product.Stock)
		}
		item.Quantity = newTotal
	} else {
		s.order = append(s.order, productID)
		s.items[productID] = &LineItem{Product: product, Quantity: quantity}
	}
	s.version++
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
	logging.Cart("Added %d x %s (id=%s)", quantity, product.Name, productID)
	return success("Added %d x %s to cart.", quantity, product.Name)
}

// Remove deletes the product's line item. Removing an absent item is a
// no-op, not an error.
func (s *Store) Remove(productID string) Outcome {
	name := fmt.Sprintf("product ID %s", productID)
	if product, ok := s.catalog.GetByID(productID); ok {
		name = product.Name
	}

	s.mu.Lock()
	if _, exists := s.items[productID]; exists {
		delete(s.items, productID)
		for i, id := range s.order {
			if id == productID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		s.version++
		s.persistLocked()
		s.mu.Unlock()
		s.notify()
	} else {
		s.mu.Unlock()
	}

	logging.Cart("Removed %s (id=%s)", name, productID)
	return success("Removed %s from cart.", name)
}

// UpdateQuantity sets the line item's quantity exactly (replace, not
// additive). A target of zero or less removes the item.
func (s *Store) UpdateQuantity(productID string, newQuantity int) Outcome {
	if newQuantity <= 0 {
		return s.Remove(productID)
	}

	s.mu.Lock()

	product, ok := s.catalog.GetByID(productID)
	if !ok {
		s.mu.Unlock()
		return failure(ErrProductNotFound, "Product with ID %s not found.", productID)
	}
	if newQuantity > product.Stock {
		s.mu.Unlock()
		return failure(ErrInsufficientStock,
			"Cannot set quantity to %d for %s. Only %d available.",
			newQuantity, product.Name, product.Stock)
	}

	if item, exists := s.items[productID]; exists {
		item.Quantity = newQuantity
	} else {
		s.order = append(s.order, productID)
		s.items[productID] = &LineItem{Product: product, Quantity: newQuantity}
	}
	s.version++
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
	logging.Cart("Updated %s quantity to %d", product.Name, newQuantity)
	return success("Updated %s quantity to %d.", product.Name, newQuantity)
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() Outcome {
	s.mu.Lock()
	s.order = nil
	s.items = make(map[string]*LineItem)
	s.version++
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
	logging.Cart("Cart cleared")
	return success("Cart cleared.")
}

// Items returns a snapshot of the line items in insertion order.
// The snapshot is safe to use across an entire resolve-and-dispatch
// call without seeing interleaved mutations.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LineItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// Total returns the sum of price*quantity over all line items.
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, item := range s.items {
		total += item.Product.Price * float64(item.Quantity)
	}
	return total
}

// ItemCount returns the sum of quantities over all line items.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Len returns the number of distinct line items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Version returns a counter incremented on every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers a callback invoked after every successful mutation.
// Callbacks run synchronously on the mutating goroutine and must not
// call back into mutation methods.
func (s *Store) Subscribe(fn func()) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

func (s *Store) notify() {
	s.subMu.Lock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// persistLocked writes the current items through the persister.
// Caller holds s.mu. Persistence failures are logged, not surfaced:
// durability beyond a session reload is explicitly not guaranteed.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	saved := make([]PersistedItem, 0, len(s.order))
	for _, id := range s.order {
		item := s.items[id]
		saved = append(saved, PersistedItem{
			ProductID: id,
			Name:      item.Product.Name,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
		})
	}
	if err := s.persister.Save(saved); err != nil {
		logging.Get(logging.CategoryStore).Warn("Cart persist failed: %v", err)
	}
}

// Close flushes and closes the underlying persister, if any.
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}
