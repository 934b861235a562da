// Package dispatch routes classified intents to cart mutations and
// navigation side effects, producing one spoken confirmation per
// utterance. The dispatcher holds no state of its own.
package dispatch

import (
	"fmt"
	"strings"

	"voicecart/internal/cart"
	"voicecart/internal/logging"
	"voicecart/internal/nlu"
	"voicecart/internal/resolver"
)

// Navigator is the abstract navigation boundary. The dispatcher emits
// "go to path" directives; rendering is someone else's job.
type Navigator interface {
	GoTo(path string)
	GoToSearch(path, query string)
}

// Result is what the user hears/sees for one utterance.
type Result struct {
	Message string
}

// Dispatcher routes one ParsedIntent at a time.
type Dispatcher struct {
	cart     *cart.Store
	resolver *resolver.Resolver
	nav      Navigator
}

// New creates a dispatcher over the given cart store, resolver, and
// navigation boundary.
func New(store *cart.Store, res *resolver.Resolver, nav Navigator) *Dispatcher {
	return &Dispatcher{cart: store, resolver: res, nav: nav}
}

// Dispatch executes one classified utterance. Every path returns a
// sentence; cart and resolution failures are folded into the message,
// never surfaced as errors.
func (d *Dispatcher) Dispatch(pi nlu.ParsedIntent) Result {
	logging.Dispatch("Dispatching %s", pi.Intent)

	switch pi.Intent {
	case nlu.IntentNavigate:
		e, _ := pi.Entities.(nlu.NavigateEntities)
		return d.navigate(e)
	case nlu.IntentSearchProducts:
		e, _ := pi.Entities.(nlu.SearchEntities)
		return d.search(e)
	case nlu.IntentViewProduct:
		e, _ := pi.Entities.(nlu.ViewProductEntities)
		return d.viewProduct(e)
	case nlu.IntentAddToCart:
		e, _ := pi.Entities.(nlu.AddToCartEntities)
		return d.addToCart(e)
	case nlu.IntentRemoveFromCart:
		e, _ := pi.Entities.(nlu.RemoveFromCartEntities)
		return d.removeFromCart(e)
	case nlu.IntentUpdateQuantity:
		e, _ := pi.Entities.(nlu.UpdateQuantityEntities)
		return d.updateQuantity(e)
	case nlu.IntentViewCart:
		return d.viewCart()
	case nlu.IntentClearCart:
		return Result{Message: d.cart.Clear().Message}
	case nlu.IntentGreeting:
		return Result{Message: "Hello! How can I help you shop today?"}
	default:
		return d.unknown(pi)
	}
}

// pagePath normalizes free-text page targets onto the fixed route set.
// Unrecognized keywords fall through to home.
func pagePath(target string) string {
	page := strings.ReplaceAll(strings.ToLower(target), " ", "")
	switch page {
	case "products", "allproducts", "catalog":
		return "/products"
	case "cart", "shoppingcart", "bag":
		return "/cart"
	case "sale", "deals":
		return "/sale"
	case "checkout":
		return "/checkout"
	case "home", "homepage":
		return "/"
	default:
		return "/"
	}
}

func (d *Dispatcher) navigate(e nlu.NavigateEntities) Result {
	if e.TargetPage == "" {
		return Result{Message: "Where would you like to go?"}
	}
	path := pagePath(e.TargetPage)
	d.nav.GoTo(path)
	return Result{Message: fmt.Sprintf("Navigating to %s.", e.TargetPage)}
}

func (d *Dispatcher) search(e nlu.SearchEntities) Result {
	if e.Query == "" {
		d.nav.GoTo("/products")
		return Result{Message: "What products are you looking for?"}
	}
	d.nav.GoToSearch("/products", e.Query)
	return Result{Message: fmt.Sprintf("Searching for: %s.", e.Query)}
}

func (d *Dispatcher) viewProduct(e nlu.ViewProductEntities) Result {
	ref := resolver.Ref{ID: e.ProductID, Name: e.ProductName, Query: e.ProductQuery}
	if ref.Empty() {
		d.nav.GoTo("/products")
		return Result{Message: "Which product are you interested in? I can take you to the main products page."}
	}

	target, ok := d.resolver.ResolveCatalog(ref)
	if ok && target.Product != nil {
		d.nav.GoTo("/products/" + target.Product.ID)
		return Result{Message: fmt.Sprintf("Showing details for %s.", target.Product.Name)}
	}

	// Fall back to a search on whatever identifier text was given.
	identifier := e.ProductName
	if e.ProductID != "" {
		identifier = "ID " + e.ProductID
	} else if identifier == "" {
		identifier = e.ProductQuery
	}
	d.nav.GoToSearch("/products", identifier)
	return Result{Message: fmt.Sprintf(
		"I couldn't find a specific product matching %q. I'll take you to the search results.", identifier)}
}

func (d *Dispatcher) addToCart(e nlu.AddToCartEntities) Result {
	ref := resolver.Ref{ID: e.ProductID, Name: e.ProductName}
	if ref.Empty() {
		return Result{Message: "Please specify which product to add or go to a product page and say 'add this'."}
	}

	target, ok := d.resolver.ResolveCatalog(ref)
	if !ok {
		return Result{Message: fmt.Sprintf("Could not find a product named %q to add.", e.ProductName)}
	}
	return Result{Message: d.cart.Add(target.ID, e.Quantity).Message}
}

func (d *Dispatcher) removeFromCart(e nlu.RemoveFromCartEntities) Result {
	ref := resolver.Ref{ID: e.ProductID, Name: e.ProductName}
	if ref.Empty() {
		return Result{Message: "Please specify which product to remove."}
	}

	// One snapshot serves both resolution and the message; the store
	// itself revalidates on mutation.
	target, ok := d.resolver.ResolveCart(d.cart.Items(), ref)
	if !ok {
		return Result{Message: fmt.Sprintf("Could not find %q in your cart.", e.ProductName)}
	}
	return Result{Message: d.cart.Remove(target.ID).Message}
}

func (d *Dispatcher) updateQuantity(e nlu.UpdateQuantityEntities) Result {
	if !e.HasQuantity || e.Quantity < 0 {
		return Result{Message: "Please specify a valid new quantity."}
	}

	ref := resolver.Ref{ID: e.ProductID, Name: e.ProductName}
	if ref.Empty() {
		return Result{Message: "Please specify which product's quantity to update."}
	}

	target, ok := d.resolver.ResolveCart(d.cart.Items(), ref)
	if !ok {
		return Result{Message: fmt.Sprintf("Could not find %q in your cart to update.", e.ProductName)}
	}
	return Result{Message: d.cart.UpdateQuantity(target.ID, e.Quantity).Message}
}

func (d *Dispatcher) viewCart() Result {
	// Summarize before navigating so the spoken count matches what the
	// user is about to see.
	count := d.cart.ItemCount()
	total := d.cart.Total()
	empty := d.cart.Len() == 0

	d.nav.GoTo("/cart")

	if empty {
		return Result{Message: "Your cart is empty."}
	}
	plural := "s"
	if count == 1 {
		plural = ""
	}
	return Result{Message: fmt.Sprintf(
		"You have %d item%s in your cart, totaling $%.2f. I'm taking you to the cart page.", count, plural, total)}
}

func (d *Dispatcher) unknown(pi nlu.ParsedIntent) Result {
	// A rate-limited classifier tends to say so in its raw output; give
	// that case a distinct message instead of the generic fallback.
	diag := strings.ToLower(pi.Diagnostic)
	if strings.Contains(diag, "rate limit") || strings.Contains(diag, "quota") {
		return Result{Message: "It seems I've hit my usage limit for now. Please try again later."}
	}

	text := pi.RawText
	if text == "" {
		text = "that"
	}
	msg := fmt.Sprintf("I'm not sure how to handle: %q. Try \"show me t-shirts\" or \"go to cart\".", text)
	if pi.Error != "" {
		msg += fmt.Sprintf(" (Debug: %s)", pi.Error)
	}
	return Result{Message: msg}
}
