// Package chat drives a conversation turn: it exchanges messages with the
// model, runs the catalog tools the model asks for and falls back to a local
// search when the model answers without calling any.
package chat

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/llm"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
	"github.com/Thomaz-Klifson/car-search/internal/search"
)

// Tool names exposed to the model.
const (
	ToolSearchCars     = "searchCars"
	ToolGetSimilarCars = "getSimilarCars"
)

const defaultDispatchConcurrency = 4

// ToolError is the payload returned to the model for a call it cannot make.
type ToolError struct {
	Error string `json:"error"`
}

// Registry declares the catalog tools and dispatches calls to them.
type Registry struct {
	exec        search.Executor
	logger      *observability.Logger
	concurrency int
}

// NewRegistry creates a tool registry backed by exec.
func NewRegistry(exec search.Executor, logger *observability.Logger) *Registry {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Registry{
		exec:        exec,
		logger:      logger,
		concurrency: defaultDispatchConcurrency,
	}
}

// Specs returns the tool declarations sent with every completion request.
func (r *Registry) Specs() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        ToolSearchCars,
			Description: "Search for cars in the catalog by name or brand, location and price range. Returns up to 5 matching cars sorted by price, plus every available location and the catalog price range.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Car name, brand or model to search for",
					},
					"location": map[string]interface{}{
						"type":        "string",
						"description": "City where the car should be",
					},
					"maxPrice": map[string]interface{}{
						"type":        "number",
						"description": "Maximum price the user is willing to pay",
					},
					"minPrice": map[string]interface{}{
						"type":        "number",
						"description": "Minimum price",
					},
				},
			},
		},
		{
			Name:        ToolGetSimilarCars,
			Description: "Get similar cars when there is no exact match. Useful for suggesting alternatives by name or by budget.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"referenceCar": map[string]interface{}{
						"type":        "string",
						"description": "The car the user was looking for",
					},
					"userBudget": map[string]interface{}{
						"type":        "number",
						"description": "User budget if mentioned",
					},
				},
				"required": []string{"referenceCar"},
			},
		},
	}
}

// Dispatch runs a single tool call. Unknown tools yield a ToolError; it never fails.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) interface{} {
	args := DecodeArgs(call.Arguments)

	switch call.Name {
	case ToolSearchCars:
		return r.exec.Search(ctx, catalog.CriteriaFromArgs(args))
	case ToolGetSimilarCars:
		return r.exec.Similar(ctx, catalog.SimilarRequestFromArgs(args))
	default:
		r.logger.WithContext(ctx).Warn().Str("tool", call.Name).Msg("Model requested unknown tool")
		return ToolError{Error: "Unknown function"}
	}
}

// DispatchAll runs calls concurrently and returns their results in call order.
func (r *Registry) DispatchAll(ctx context.Context, calls []llm.ToolCall) []interface{} {
	results := make([]interface{}, len(calls))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = r.Dispatch(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// DecodeArgs turns tool arguments into a mapping. Arguments may already be a
// mapping or may be its JSON encoding; anything else becomes an empty mapping.
func DecodeArgs(raw interface{}) map[string]interface{} {
	var data []byte
	switch v := raw.(type) {
	case map[string]interface{}:
		return v
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		return map[string]interface{}{}
	}

	var args map[string]interface{}
	if err := json.Unmarshal(data, &args); err != nil || args == nil {
		return map[string]interface{}{}
	}
	return args
}
