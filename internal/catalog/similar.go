package catalog

import "strings"

const (
	// similarMinMatches is the name-match count under which budget neighbours are added.
	similarMinMatches = 3
	// BudgetTolerance is the half-width of the price band around a budget, as a fraction of it.
	BudgetTolerance = 0.2
)

// SimilarRequest is the input of Similar.
type SimilarRequest struct {
	ReferenceCar string   `json:"referenceCar"`
	Budget       *float64 `json:"userBudget,omitempty"`
}

// SimilarRequestFromArgs builds a SimilarRequest from loosely typed tool arguments.
func SimilarRequestFromArgs(args map[string]interface{}) SimilarRequest {
	return SimilarRequest{
		ReferenceCar: stringArg(args, "referenceCar"),
		Budget:       NormalizePtr(args["userBudget"]),
	}
}

// SimilarityResult is the outcome of Similar.
type SimilarityResult struct {
	Found bool    `json:"found"`
	Count int     `json:"count"`
	Cars  []Entry `json:"cars"`
}

// Similar returns entries whose name shares any word with the reference car.
// With a budget and fewer than three name matches, entries priced within
// BudgetTolerance of the budget are added. Duplicates are removed keeping
// first occurrence order.
func (c *Catalog) Similar(req SimilarRequest) SimilarityResult {
	words := strings.Fields(strings.ToLower(req.ReferenceCar))

	var similar []Entry
	for _, e := range c.entries {
		name := strings.ToLower(e.Name)
		for _, w := range words {
			if strings.Contains(name, w) {
				similar = append(similar, e)
				break
			}
		}
	}

	if req.Budget != nil && len(similar) < similarMinMatches {
		budget := *req.Budget
		band := budget * BudgetTolerance
		for _, e := range c.entries {
			diff := e.Price - budget
			if diff < 0 {
				diff = -diff
			}
			if diff <= band {
				similar = append(similar, e)
			}
		}
	}

	seen := make(map[Entry]struct{}, len(similar))
	unique := make([]Entry, 0, len(similar))
	for _, e := range similar {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		unique = append(unique, e)
	}

	return SimilarityResult{
		Found: len(unique) > 0,
		Count: len(unique),
		Cars:  head(unique, ResultLimit),
	}
}
