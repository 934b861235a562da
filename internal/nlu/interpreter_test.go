package nlu

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voicecart/internal/catalog"
)

// stubClient returns a canned classifier response without any network.
type stubClient struct {
	response string
	err      error
	lastUser string
	lastSys  string
}

func (s *stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteWithSystem(ctx, "", prompt)
}

func (s *stubClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastSys = systemPrompt
	s.lastUser = userPrompt
	return s.response, s.err
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Product{
		{ID: "2", Name: "Slim Fit Denim Jeans", Category: "Bottoms", Stock: 80},
		{ID: "3", Name: "Lightweight Running Sneakers", Category: "Shoes", Stock: 60},
	})
}

func TestInterpret_AddToCart(t *testing.T) {
	stub := &stubClient{response: `{"intent": "ADD_TO_CART", "entities": {"product_id": "3", "quantity": 2}}`}
	interp := NewInterpreter(stub, testCatalog())

	pi, err := interp.Interpret(context.Background(), "add 2 of product 3", "")
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if pi.Intent != IntentAddToCart {
		t.Fatalf("Expected ADD_TO_CART, got %s", pi.Intent)
	}
	e, ok := pi.Entities.(AddToCartEntities)
	if !ok {
		t.Fatalf("Expected AddToCartEntities, got %T", pi.Entities)
	}
	if e.ProductID != "3" || e.Quantity != 2 {
		t.Errorf("Unexpected entities: %+v", e)
	}
	if pi.RawText != "add 2 of product 3" {
		t.Errorf("RawText not preserved: %q", pi.RawText)
	}
}

func TestInterpret_ContextInjection(t *testing.T) {
	stub := &stubClient{response: `{"intent": "ADD_TO_CART", "entities": {"product_id": "3", "quantity": 1}}`}
	interp := NewInterpreter(stub, testCatalog())

	_, err := interp.Interpret(context.Background(), "add this to cart", "3")
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}

	// The ambient id must be woven into the message as prose, not a field
	want := `User's utterance: "add this to cart". Context: The user is currently viewing product with ID '3'.`
	if stub.lastUser != want {
		t.Errorf("Context injection mismatch:\n got: %s\nwant: %s", stub.lastUser, want)
	}
	if !strings.Contains(stub.lastSys, "Respond ONLY with a JSON object") {
		t.Error("System prompt missing JSON-only instruction")
	}
}

func TestInterpret_NoContextLeavesTextAlone(t *testing.T) {
	stub := &stubClient{response: `{"intent": "GREETING", "entities": {}}`}
	interp := NewInterpreter(stub, testCatalog())

	_, _ = interp.Interpret(context.Background(), "hello there", "")
	if stub.lastUser != "hello there" {
		t.Errorf("Expected bare utterance, got %q", stub.lastUser)
	}
}

func TestInterpret_MalformedJSONDegradesToUnknown(t *testing.T) {
	stub := &stubClient{response: "I think the user wants to buy shoes!"}
	interp := NewInterpreter(stub, testCatalog())

	pi, err := interp.Interpret(context.Background(), "add sneakers", "")
	if err != nil {
		t.Fatalf("Malformed JSON must not be a hard error, got: %v", err)
	}
	if pi.Intent != IntentUnknown {
		t.Errorf("Expected UNKNOWN, got %s", pi.Intent)
	}
	if pi.Error != "Failed to parse NLU response as JSON" {
		t.Errorf("Unexpected error message: %q", pi.Error)
	}
	if pi.RawText != "add sneakers" {
		t.Errorf("Original utterance not preserved: %q", pi.RawText)
	}
	if pi.Diagnostic != "I think the user wants to buy shoes!" {
		t.Errorf("Raw classifier output not attached: %q", pi.Diagnostic)
	}
}

func TestInterpret_MarkdownFencedJSON(t *testing.T) {
	stub := &stubClient{response: "```json\n{\"intent\": \"VIEW_CART\", \"entities\": {}}\n```"}
	interp := NewInterpreter(stub, testCatalog())

	pi, err := interp.Interpret(context.Background(), "show my bag", "")
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if pi.Intent != IntentViewCart {
		t.Errorf("Expected VIEW_CART, got %s", pi.Intent)
	}
}

func TestInterpret_ServiceErrorPropagates(t *testing.T) {
	stub := &stubClient{err: errors.New("connection refused")}
	interp := NewInterpreter(stub, testCatalog())

	_, err := interp.Interpret(context.Background(), "add sneakers", "")
	if err == nil {
		t.Fatal("Expected service error to propagate")
	}
}

func TestInterpret_NameEnrichment(t *testing.T) {
	// product_id absent, product_name exactly matches a catalog entry
	stub := &stubClient{response: `{"intent": "ADD_TO_CART", "entities": {"product_name": "slim fit denim jeans", "quantity": 1}}`}
	interp := NewInterpreter(stub, testCatalog())

	pi, _ := interp.Interpret(context.Background(), "add the slim fit denim jeans", "")
	e := pi.Entities.(AddToCartEntities)
	if e.ProductID != "2" {
		t.Errorf("Expected enrichment to fill product_id=2, got %q", e.ProductID)
	}

	// Partial names are not enriched; the resolver handles those
	stub.response = `{"intent": "ADD_TO_CART", "entities": {"product_name": "jeans", "quantity": 1}}`
	pi, _ = interp.Interpret(context.Background(), "add jeans", "")
	e = pi.Entities.(AddToCartEntities)
	if e.ProductID != "" {
		t.Errorf("Expected no enrichment for partial name, got %q", e.ProductID)
	}
}

func TestInterpret_UnknownIntentValue(t *testing.T) {
	stub := &stubClient{response: `{"intent": "ORDER_PIZZA", "entities": {}}`}
	interp := NewInterpreter(stub, testCatalog())

	pi, _ := interp.Interpret(context.Background(), "order a pizza", "")
	if pi.Intent != IntentUnknown {
		t.Errorf("Out-of-schema intent must collapse to UNKNOWN, got %s", pi.Intent)
	}
}

func TestInterpret_QuantityCoercion(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     int
	}{
		{"number", `{"intent": "ADD_TO_CART", "entities": {"product_id": "3", "quantity": 4}}`, 4},
		{"numeric string", `{"intent": "ADD_TO_CART", "entities": {"product_id": "3", "quantity": "4"}}`, 4},
		{"missing defaults to 1", `{"intent": "ADD_TO_CART", "entities": {"product_id": "3"}}`, 1},
		{"garbage defaults to 1", `{"intent": "ADD_TO_CART", "entities": {"product_id": "3", "quantity": "many"}}`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubClient{response: tt.response}
			interp := NewInterpreter(stub, testCatalog())
			pi, _ := interp.Interpret(context.Background(), "add", "")
			e := pi.Entities.(AddToCartEntities)
			if e.Quantity != tt.want {
				t.Errorf("Quantity = %d, want %d", e.Quantity, tt.want)
			}
		})
	}
}

func TestInterpret_NumericProductID(t *testing.T) {
	stub := &stubClient{response: `{"intent": "ADD_TO_CART", "entities": {"product_id": 3, "quantity": 1}}`}
	interp := NewInterpreter(stub, testCatalog())

	pi, _ := interp.Interpret(context.Background(), "add product 3", "")
	e := pi.Entities.(AddToCartEntities)
	if e.ProductID != "3" {
		t.Errorf("Numeric id must coerce to string, got %q", e.ProductID)
	}
}

func TestInterpret_UpdateQuantityDistinguishesMissing(t *testing.T) {
	stub := &stubClient{response: `{"intent": "UPDATE_CART_QUANTITY", "entities": {"product_id": "3"}}`}
	interp := NewInterpreter(stub, testCatalog())

	pi, _ := interp.Interpret(context.Background(), "change the sneakers", "")
	e := pi.Entities.(UpdateQuantityEntities)
	if e.HasQuantity {
		t.Error("Missing quantity must not read as zero")
	}

	stub.response = `{"intent": "UPDATE_CART_QUANTITY", "entities": {"product_id": "3", "quantity": 0}}`
	pi, _ = interp.Interpret(context.Background(), "set sneakers to zero", "")
	e = pi.Entities.(UpdateQuantityEntities)
	if !e.HasQuantity || e.Quantity != 0 {
		t.Errorf("Explicit zero must be kept: %+v", e)
	}
}
