package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecart/internal/cart"
	"voicecart/internal/catalog"
	"voicecart/internal/nlu"
	"voicecart/internal/resolver"
)

// recordingNav captures navigation directives for assertions.
type recordingNav struct {
	paths   []string
	queries []string
}

func (n *recordingNav) GoTo(path string) {
	n.paths = append(n.paths, path)
}

func (n *recordingNav) GoToSearch(path, query string) {
	n.paths = append(n.paths, path)
	n.queries = append(n.queries, query)
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Product{
		{ID: "1", Name: "Classic Cotton T-Shirt", Category: "Tops", Price: 19.99, Stock: 100},
		{ID: "2", Name: "Slim Fit Denim Jeans", Category: "Bottoms", Price: 49.99, Stock: 80},
		{ID: "3", Name: "Lightweight Running Sneakers", Category: "Shoes", Price: 89.99, Stock: 60},
		{ID: "7", Name: "Canvas Tote Bag", Category: "Accessories", Price: 19.99, Stock: 30},
	})
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *cart.Store, *recordingNav) {
	t.Helper()
	cat := testCatalog()
	store := cart.NewStore(cat, nil)
	nav := &recordingNav{}
	return New(store, resolver.New(cat), nav), store, nav
}

func TestDispatch_Navigate(t *testing.T) {
	tests := []struct {
		target string
		path   string
	}{
		{"products", "/products"},
		{"all products", "/products"},
		{"catalog", "/products"},
		{"shopping cart", "/cart"},
		{"bag", "/cart"},
		{"deals", "/sale"},
		{"checkout", "/checkout"},
		{"home", "/"},
		{"the moon", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			d, _, nav := newTestDispatcher(t)
			res := d.Dispatch(nlu.ParsedIntent{
				Intent:   nlu.IntentNavigate,
				Entities: nlu.NavigateEntities{TargetPage: tt.target},
			})
			require.Equal(t, []string{tt.path}, nav.paths)
			assert.Equal(t, "Navigating to "+tt.target+".", res.Message)
		})
	}
}

func TestDispatch_NavigateWithoutTarget(t *testing.T) {
	d, _, nav := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{Intent: nlu.IntentNavigate, Entities: nlu.NavigateEntities{}})
	assert.Equal(t, "Where would you like to go?", res.Message)
	assert.Empty(t, nav.paths)
}

func TestDispatch_Search(t *testing.T) {
	d, _, nav := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentSearchProducts,
		Entities: nlu.SearchEntities{Query: "summer dress"},
	})
	assert.Equal(t, "Searching for: summer dress.", res.Message)
	require.Equal(t, []string{"/products"}, nav.paths)
	assert.Equal(t, []string{"summer dress"}, nav.queries)
}

func TestDispatch_SearchWithoutQuery(t *testing.T) {
	d, _, nav := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{Intent: nlu.IntentSearchProducts, Entities: nlu.SearchEntities{}})
	assert.Equal(t, "What products are you looking for?", res.Message)
	assert.Equal(t, []string{"/products"}, nav.paths)
	assert.Empty(t, nav.queries)
}

func TestDispatch_ViewProductByName(t *testing.T) {
	d, _, nav := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentViewProduct,
		Entities: nlu.ViewProductEntities{ProductName: "jeans"},
	})
	assert.Equal(t, "Showing details for Slim Fit Denim Jeans.", res.Message)
	assert.Equal(t, []string{"/products/2"}, nav.paths)
}

func TestDispatch_ViewProductSearchFallback(t *testing.T) {
	d, _, nav := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentViewProduct,
		Entities: nlu.ViewProductEntities{ProductName: "hoverboard"},
	})
	assert.Equal(t,
		`I couldn't find a specific product matching "hoverboard". I'll take you to the search results.`,
		res.Message)
	require.Equal(t, []string{"/products"}, nav.paths)
	assert.Equal(t, []string{"hoverboard"}, nav.queries)
}

func TestDispatch_ViewProductWithoutIdentifier(t *testing.T) {
	d, _, nav := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{Intent: nlu.IntentViewProduct, Entities: nlu.ViewProductEntities{}})
	assert.Equal(t,
		"Which product are you interested in? I can take you to the main products page.", res.Message)
	assert.Equal(t, []string{"/products"}, nav.paths)
}

func TestDispatch_AddToCartContextSubstitution(t *testing.T) {
	// "add this to cart" while viewing product 3: the classifier has
	// already substituted the ambient id into product_id
	d, store, _ := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentAddToCart,
		Entities: nlu.AddToCartEntities{ProductID: "3", Quantity: 1},
	})
	assert.Contains(t, res.Message, "Running Sneakers")
	assert.Equal(t, 1, store.ItemCount())
	require.Len(t, store.Items(), 1)
	assert.Equal(t, "3", store.Items()[0].Product.ID)
}

func TestDispatch_AddToCartIDWinsOverName(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentAddToCart,
		Entities: nlu.AddToCartEntities{ProductID: "2", ProductName: "sneakers", Quantity: 1},
	})
	assert.Equal(t, "Added 1 x Slim Fit Denim Jeans to cart.", res.Message)
	require.Len(t, store.Items(), 1)
	assert.Equal(t, "2", store.Items()[0].Product.ID)
}

func TestDispatch_AddToCartStockExceeded(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	require.True(t, store.Add("7", 25).OK)

	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentAddToCart,
		Entities: nlu.AddToCartEntities{ProductID: "7", Quantity: 10},
	})
	assert.Equal(t,
		"Cannot add 10 more of Canvas Tote Bag. You already have 25. Only 30 total available.",
		res.Message)
	assert.Equal(t, 25, store.ItemCount())
}

func TestDispatch_AddToCartUnknownName(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentAddToCart,
		Entities: nlu.AddToCartEntities{ProductName: "hoverboard", Quantity: 1},
	})
	assert.Equal(t, `Could not find a product named "hoverboard" to add.`, res.Message)
	assert.Equal(t, 0, store.ItemCount())
}

func TestDispatch_AddToCartWithoutTarget(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{Intent: nlu.IntentAddToCart, Entities: nlu.AddToCartEntities{Quantity: 1}})
	assert.Equal(t,
		"Please specify which product to add or go to a product page and say 'add this'.", res.Message)
}

func TestDispatch_RemoveFromCartByName(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	store.Add("2", 1)
	store.Add("3", 1)

	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentRemoveFromCart,
		Entities: nlu.RemoveFromCartEntities{ProductName: "sneakers"},
	})
	assert.Equal(t, "Removed Lightweight Running Sneakers from cart.", res.Message)
	assert.Equal(t, 1, store.Len())
}

func TestDispatch_RemoveScopedToCart(t *testing.T) {
	// sneakers exist in the catalog but not in the cart; cart scope
	// must report not-in-cart rather than resolving via the catalog
	d, store, _ := newTestDispatcher(t)
	store.Add("2", 1)

	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentRemoveFromCart,
		Entities: nlu.RemoveFromCartEntities{ProductName: "sneakers"},
	})
	assert.Equal(t, `Could not find "sneakers" in your cart.`, res.Message)
	assert.Equal(t, 1, store.Len())
}

func TestDispatch_UpdateQuantity(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	store.Add("2", 1)

	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentUpdateQuantity,
		Entities: nlu.UpdateQuantityEntities{ProductName: "jeans", Quantity: 5, HasQuantity: true},
	})
	assert.Equal(t, "Updated Slim Fit Denim Jeans quantity to 5.", res.Message)
	assert.Equal(t, 5, store.ItemCount())
}

func TestDispatch_UpdateQuantityValidation(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	store.Add("2", 1)

	// missing quantity
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentUpdateQuantity,
		Entities: nlu.UpdateQuantityEntities{ProductName: "jeans"},
	})
	assert.Equal(t, "Please specify a valid new quantity.", res.Message)

	// negative quantity
	res = d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentUpdateQuantity,
		Entities: nlu.UpdateQuantityEntities{ProductName: "jeans", Quantity: -1, HasQuantity: true},
	})
	assert.Equal(t, "Please specify a valid new quantity.", res.Message)
	assert.Equal(t, 1, store.ItemCount())
}

func TestDispatch_UpdateQuantityZeroRemoves(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	store.Add("2", 3)

	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentUpdateQuantity,
		Entities: nlu.UpdateQuantityEntities{ProductID: "2", Quantity: 0, HasQuantity: true},
	})
	assert.Equal(t, "Removed Slim Fit Denim Jeans from cart.", res.Message)
	assert.Equal(t, 0, store.Len())
}

func TestDispatch_ViewCart(t *testing.T) {
	d, store, nav := newTestDispatcher(t)
	store.Add("1", 2)
	store.Add("2", 1)

	res := d.Dispatch(nlu.ParsedIntent{Intent: nlu.IntentViewCart, Entities: nlu.NoEntities{}})
	assert.Equal(t,
		"You have 3 items in your cart, totaling $89.97. I'm taking you to the cart page.", res.Message)
	assert.Equal(t, []string{"/cart"}, nav.paths)
}

func TestDispatch_ViewCartSingular(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	store.Add("1", 1)

	res := d.Dispatch(nlu.ParsedIntent{Intent: nlu.IntentViewCart, Entities: nlu.NoEntities{}})
	assert.Contains(t, res.Message, "You have 1 item in your cart")
}

func TestDispatch_ViewCartEmpty(t *testing.T) {
	d, _, nav := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{Intent: nlu.IntentViewCart, Entities: nlu.NoEntities{}})
	assert.Equal(t, "Your cart is empty.", res.Message)
	// navigation happens even for an empty cart
	assert.Equal(t, []string{"/cart"}, nav.paths)
}

func TestDispatch_ClearCart(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	store.Add("1", 2)

	res := d.Dispatch(nlu.ParsedIntent{Intent: nlu.IntentClearCart, Entities: nlu.NoEntities{}})
	assert.Equal(t, "Cart cleared.", res.Message)
	assert.Equal(t, 0, store.ItemCount())
}

func TestDispatch_Greeting(t *testing.T) {
	d, _, nav := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{Intent: nlu.IntentGreeting, Entities: nlu.NoEntities{}})
	assert.Equal(t, "Hello! How can I help you shop today?", res.Message)
	assert.Empty(t, nav.paths)
}

func TestDispatch_Unknown(t *testing.T) {
	d, store, nav := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:   nlu.IntentUnknown,
		Entities: nlu.NoEntities{},
		RawText:  "make me a sandwich",
	})
	assert.Equal(t,
		`I'm not sure how to handle: "make me a sandwich". Try "show me t-shirts" or "go to cart".`,
		res.Message)
	assert.Empty(t, nav.paths)
	assert.Equal(t, 0, store.ItemCount())
}

func TestDispatch_UnknownWithParseError(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:     nlu.IntentUnknown,
		Entities:   nlu.NoEntities{},
		RawText:    "add sneakers",
		Error:      "Failed to parse NLU response as JSON",
		Diagnostic: "sure, adding sneakers now!",
	})
	assert.Contains(t, res.Message, `"add sneakers"`)
	assert.Contains(t, res.Message, "(Debug: Failed to parse NLU response as JSON)")
}

func TestDispatch_UnknownRateLimitOverride(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	res := d.Dispatch(nlu.ParsedIntent{
		Intent:     nlu.IntentUnknown,
		Entities:   nlu.NoEntities{},
		RawText:    "add sneakers",
		Error:      "Failed to parse NLU response as JSON",
		Diagnostic: `{"error": "Rate limit reached for model"}`,
	})
	assert.Equal(t, "It seems I've hit my usage limit for now. Please try again later.", res.Message)
}
