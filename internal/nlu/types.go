// Package nlu implements the request/response contract with the opaque
// intent classifier service.
//
// The classifier is a fallible external dependency behind the LLMClient
// interface; its output is untrusted text. Parse failures are never
// fatal: they degrade to IntentUnknown with the raw output attached for
// diagnostics. Service/network failures are the only hard errors.
package nlu

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrClassifierService marks a transport/service failure talking to the
// classifier, as opposed to a malformed-but-received response.
var ErrClassifierService = errors.New("classifier service error")

// IntentKind is a closed-set classification label describing what
// shopping action an utterance requests.
type IntentKind string

const (
	IntentAddToCart      IntentKind = "ADD_TO_CART"
	IntentNavigate       IntentKind = "NAVIGATE_TO_PAGE"
	IntentViewProduct    IntentKind = "VIEW_PRODUCT_DETAILS"
	IntentSearchProducts IntentKind = "SEARCH_PRODUCTS"
	IntentRemoveFromCart IntentKind = "REMOVE_FROM_CART"
	IntentUpdateQuantity IntentKind = "UPDATE_CART_QUANTITY"
	IntentViewCart       IntentKind = "VIEW_CART"
	IntentClearCart      IntentKind = "CLEAR_CART"
	IntentGreeting       IntentKind = "GREETING"
	IntentUnknown        IntentKind = "UNKNOWN"
)

// parseIntentKind maps classifier output onto the closed set.
// Anything outside the set collapses to IntentUnknown.
func parseIntentKind(s string) IntentKind {
	k := IntentKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case IntentAddToCart, IntentNavigate, IntentViewProduct, IntentSearchProducts,
		IntentRemoveFromCart, IntentUpdateQuantity, IntentViewCart,
		IntentClearCart, IntentGreeting:
		return k
	default:
		return IntentUnknown
	}
}

// Entities is the closed sum of per-intent entity bags. Modeling one
// variant per intent keeps the dispatcher's handling exhaustive instead
// of poking at an open string-keyed map.
type Entities interface {
	isEntities()
}

// NoEntities is used by VIEW_CART, CLEAR_CART, GREETING and UNKNOWN.
type NoEntities struct{}

// NavigateEntities carries the free-text page target.
type NavigateEntities struct {
	TargetPage string
}

// SearchEntities carries the product search query.
type SearchEntities struct {
	Query string
}

// ViewProductEntities identifies a product by id, name, or a vaguer
// free-text query, in that order of preference.
type ViewProductEntities struct {
	ProductID    string
	ProductName  string
	ProductQuery string
}

// AddToCartEntities identifies the product to add and how many.
type AddToCartEntities struct {
	ProductID   string
	ProductName string
	Quantity    int // defaulted to 1 by the gateway
}

// RemoveFromCartEntities identifies a cart line item to delete.
type RemoveFromCartEntities struct {
	ProductID   string
	ProductName string
}

// UpdateQuantityEntities identifies a cart line item and its new exact
// quantity. HasQuantity distinguishes "missing" from zero so the
// dispatcher can prompt instead of silently removing.
type UpdateQuantityEntities struct {
	ProductID   string
	ProductName string
	Quantity    int
	HasQuantity bool
}

func (NoEntities) isEntities()             {}
func (NavigateEntities) isEntities()       {}
func (SearchEntities) isEntities()         {}
func (ViewProductEntities) isEntities()    {}
func (AddToCartEntities) isEntities()      {}
func (RemoveFromCartEntities) isEntities() {}
func (UpdateQuantityEntities) isEntities() {}

// ParsedIntent is the per-utterance classification record. Transient:
// produced per utterance, consumed immediately, never persisted.
type ParsedIntent struct {
	Intent   IntentKind
	Entities Entities

	// RawText is the original utterance, always preserved.
	RawText string

	// Error carries a parse diagnostic when classification degraded
	// (e.g. malformed classifier JSON). Empty on a clean parse.
	Error string

	// Diagnostic is the classifier's raw output when it could not be
	// parsed, kept for observability and the rate-limit fallback.
	Diagnostic string
}

// flexString tolerates the classifier emitting a JSON number where the
// schema asks for a string (ids in particular).
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	// Unusable shape (object, array, bool): treat as absent.
	*f = ""
	return nil
}

// flexInt tolerates quantity arriving as a number, a numeric string, or
// garbage (treated as absent).
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		f.value, f.set = n, true
		return nil
	}
	var fl float64
	if err := json.Unmarshal(data, &fl); err == nil {
		f.value, f.set = int(fl), true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, convErr := strconv.Atoi(strings.TrimSpace(s)); convErr == nil {
			f.value, f.set = v, true
		}
		return nil
	}
	return nil
}

// rawEntities is the untyped wire bag the classifier fills. Converted
// into the typed per-intent variant after parsing.
type rawEntities struct {
	ProductID    flexString `json:"product_id"`
	ProductName  flexString `json:"product_name"`
	ProductQuery flexString `json:"product_query"`
	TargetPage   flexString `json:"target_page"`
	Query        flexString `json:"query"`
	Quantity     flexInt    `json:"quantity"`
}

// rawResponse is the classifier's expected JSON envelope.
type rawResponse struct {
	Intent   string      `json:"intent"`
	Entities rawEntities `json:"entities"`
}

// toEntities converts the wire bag into the intent's typed variant.
func (r rawEntities) toEntities(intent IntentKind) Entities {
	switch intent {
	case IntentNavigate:
		return NavigateEntities{TargetPage: string(r.TargetPage)}
	case IntentSearchProducts:
		return SearchEntities{Query: string(r.Query)}
	case IntentViewProduct:
		return ViewProductEntities{
			ProductID:    string(r.ProductID),
			ProductName:  string(r.ProductName),
			ProductQuery: string(r.ProductQuery),
		}
	case IntentAddToCart:
		qty := 1
		if r.Quantity.set && r.Quantity.value > 0 {
			qty = r.Quantity.value
		}
		return AddToCartEntities{
			ProductID:   string(r.ProductID),
			ProductName: string(r.ProductName),
			Quantity:    qty,
		}
	case IntentRemoveFromCart:
		return RemoveFromCartEntities{
			ProductID:   string(r.ProductID),
			ProductName: string(r.ProductName),
		}
	case IntentUpdateQuantity:
		return UpdateQuantityEntities{
			ProductID:   string(r.ProductID),
			ProductName: string(r.ProductName),
			Quantity:    r.Quantity.value,
			HasQuantity: r.Quantity.set,
		}
	default:
		return NoEntities{}
	}
}
