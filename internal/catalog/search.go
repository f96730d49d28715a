package catalog

import (
	"sort"
	"strings"
)

// Criteria is the optional filter set accepted by Search. Zero values mean
// "no constraint"; a nil price is absent, never zero.
type Criteria struct {
	Name     string   `json:"name,omitempty"`
	Location string   `json:"location,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

// CriteriaFromArgs builds Criteria from loosely typed tool arguments. Prices
// may be numbers or formatted strings; anything unreadable is dropped.
func CriteriaFromArgs(args map[string]interface{}) Criteria {
	return Criteria{
		Name:     stringArg(args, "name"),
		Location: stringArg(args, "location"),
		MinPrice: NormalizePtr(args["minPrice"]),
		MaxPrice: NormalizePtr(args["maxPrice"]),
	}
}

// SearchResult is the outcome of Search. AllLocations and PriceRange always
// describe the full catalog so callers can explain an empty result.
type SearchResult struct {
	Found        bool       `json:"found"`
	Count        int        `json:"count"`
	Cars         []Entry    `json:"cars"`
	AllLocations []string   `json:"allLocations"`
	PriceRange   PriceRange `json:"priceRange"`
}

// Search filters the catalog by every supplied criterion, sorts survivors by
// ascending price and returns at most ResultLimit of them.
func (c *Catalog) Search(criteria Criteria) SearchResult {
	name := strings.ToLower(criteria.Name)
	location := strings.ToLower(criteria.Location)

	matches := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if criteria.Name != "" && !nameMatches(e, name) {
			continue
		}
		if criteria.Location != "" && !strings.Contains(strings.ToLower(e.Location), location) {
			continue
		}
		if criteria.MaxPrice != nil && e.Price > *criteria.MaxPrice {
			continue
		}
		if criteria.MinPrice != nil && e.Price < *criteria.MinPrice {
			continue
		}
		matches = append(matches, e)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Price < matches[j].Price
	})

	return SearchResult{
		Found:        len(matches) > 0,
		Count:        len(matches),
		Cars:         head(matches, ResultLimit),
		AllLocations: c.Locations(),
		PriceRange:   c.PriceRange(),
	}
}

// nameMatches tries the whole phrase against name or model first, then
// requires every word of the phrase to appear in name or model.
// "byd dolphin" matches {Name: "BYD", Model: "Dolphin"} through the second tier.
func nameMatches(e Entry, term string) bool {
	name := strings.ToLower(e.Name)
	model := strings.ToLower(e.Model)

	if strings.Contains(name, term) || strings.Contains(model, term) {
		return true
	}

	for _, word := range strings.Fields(term) {
		if !strings.Contains(name, word) && !strings.Contains(model, word) {
			return false
		}
	}
	return true
}

func head(entries []Entry, n int) []Entry {
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

func stringArg(args map[string]interface{}, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}
