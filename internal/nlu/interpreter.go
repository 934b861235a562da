package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"voicecart/internal/catalog"
	"voicecart/internal/logging"
)

// parseFailureMessage is attached to the degraded record when the
// classifier returns something that is not the expected JSON object.
const parseFailureMessage = "Failed to parse NLU response as JSON"

// Interpreter turns free-form utterance text plus ambient page context
// into a ParsedIntent.
type Interpreter struct {
	client  LLMClient
	catalog *catalog.Catalog
}

// NewInterpreter creates an interpreter over the given classifier client
// and catalog. The catalog is only used for the exact-name enrichment
// step; resolution proper happens downstream.
func NewInterpreter(client LLMClient, cat *catalog.Catalog) *Interpreter {
	return &Interpreter{client: client, catalog: cat}
}

// buildUserMessage weaves the ambient product id into the text sent for
// classification as an explicit natural-language clause. The classifier
// decides from phrasing alone whether an anaphoric reference resolves to
// that id or is overridden by an explicit name elsewhere in the utterance.
func buildUserMessage(text, contextProductID string) string {
	if contextProductID == "" {
		return text
	}
	return fmt.Sprintf("User's utterance: %q. Context: The user is currently viewing product with ID '%s'.",
		text, contextProductID)
}

// Interpret classifies one utterance. The returned error is non-nil only
// for service/transport failures; a malformed classifier response is
// downgraded to IntentUnknown with diagnostics attached.
func (i *Interpreter) Interpret(ctx context.Context, text, contextProductID string) (ParsedIntent, error) {
	timer := logging.StartTimer(logging.CategoryNLU, "Interpret")
	defer timer.Stop()

	userMessage := buildUserMessage(text, contextProductID)
	logging.NLUDebug("Classifying: %q (context id=%q)", text, contextProductID)

	raw, err := i.client.CompleteWithSystem(ctx, systemPrompt, userMessage)
	if err != nil {
		return ParsedIntent{}, err
	}

	return i.parse(raw, text), nil
}

// parse decodes the classifier's untrusted output. Never fails: the
// worst case is an UNKNOWN record carrying diagnostics.
func (i *Interpreter) parse(raw, originalText string) ParsedIntent {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		logging.Get(logging.CategoryNLU).Warn("No JSON object in classifier output: %q", truncate(raw, 200))
		return ParsedIntent{
			Intent:     IntentUnknown,
			Entities:   NoEntities{},
			RawText:    originalText,
			Error:      parseFailureMessage,
			Diagnostic: raw,
		}
	}

	var resp rawResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		logging.Get(logging.CategoryNLU).Warn("Classifier JSON parse failed: %v", err)
		return ParsedIntent{
			Intent:     IntentUnknown,
			Entities:   NoEntities{},
			RawText:    originalText,
			Error:      parseFailureMessage,
			Diagnostic: raw,
		}
	}

	intent := parseIntentKind(resp.Intent)
	entities := i.enrich(resp.Entities.toEntities(intent))

	logging.NLU("Classified %q as %s", originalText, intent)
	return ParsedIntent{
		Intent:   intent,
		Entities: entities,
		RawText:  originalText,
	}
}

// enrich fills a missing product_id from product_name via one exact
// case-insensitive catalog lookup. Substring matching is deliberately
// left to the resolver; this step only catches verbatim names.
func (i *Interpreter) enrich(e Entities) Entities {
	if i.catalog == nil {
		return e
	}
	lookup := func(name string) string {
		if p, ok := i.catalog.GetByName(name); ok {
			return p.ID
		}
		return ""
	}

	switch v := e.(type) {
	case AddToCartEntities:
		if v.ProductID == "" && v.ProductName != "" {
			v.ProductID = lookup(v.ProductName)
		}
		return v
	case ViewProductEntities:
		if v.ProductID == "" && v.ProductName != "" {
			v.ProductID = lookup(v.ProductName)
		}
		return v
	case RemoveFromCartEntities:
		if v.ProductID == "" && v.ProductName != "" {
			v.ProductID = lookup(v.ProductName)
		}
		return v
	case UpdateQuantityEntities:
		if v.ProductID == "" && v.ProductName != "" {
			v.ProductID = lookup(v.ProductName)
		}
		return v
	default:
		return e
	}
}

// extractJSON finds the first JSON object in a response (handles
// markdown fences and chatter around the object).
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}

	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
