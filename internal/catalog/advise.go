package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// SearchType labels how an Advice was produced.
type SearchType string

const (
	SearchExact            SearchType = "exact"
	SearchPriceAdjusted    SearchType = "price-adjusted"
	SearchLocationAdjusted SearchType = "location-adjusted"
	SearchSimilar          SearchType = "similar"
)

const (
	adviceSuggestions    = 3
	adviceNearby         = 6
	adviceNearbyDistance = 50000.0
)

// Advice is a search outcome with a ready-to-show Portuguese message
// explaining which relaxation, if any, was applied.
type Advice struct {
	SearchType   SearchType `json:"searchType"`
	Message      string     `json:"message"`
	ExactMatches []Entry    `json:"exactMatches"`
	Suggestions  []Entry    `json:"suggestions"`
}

// Advise runs a name/price/location search and, when it comes up empty,
// explains the closest alternative: the same car above budget, the same car
// in another city, or cars priced near the budget.
func (c *Catalog) Advise(criteria Criteria) Advice {
	advice := Advice{SearchType: SearchExact, ExactMatches: []Entry{}, Suggestions: []Entry{}}
	name := strings.ToLower(criteria.Name)
	location := strings.ToLower(criteria.Location)

	if name != "" {
		for _, e := range c.entries {
			if !strings.Contains(strings.ToLower(e.Name), name) {
				continue
			}
			if criteria.MaxPrice != nil && e.Price > *criteria.MaxPrice {
				continue
			}
			if location != "" && !strings.Contains(strings.ToLower(e.Location), location) {
				continue
			}
			advice.ExactMatches = append(advice.ExactMatches, e)
		}
	}

	if len(advice.ExactMatches) > 0 {
		n := len(advice.ExactMatches)
		noun := "resultados"
		if n == 1 {
			noun = "resultado"
		}
		advice.Message = fmt.Sprintf("Encontramos %d %s para sua busca!", n, noun)
		return advice
	}

	if name != "" {
		var byName []Entry
		for _, e := range c.entries {
			if strings.Contains(strings.ToLower(e.Name), name) {
				byName = append(byName, e)
			}
		}

		if len(byName) > 0 && criteria.MaxPrice != nil {
			sort.SliceStable(byName, func(i, j int) bool { return byName[i].Price < byName[j].Price })
			if cheapest := byName[0]; cheapest.Price > *criteria.MaxPrice {
				advice.SearchType = SearchPriceAdjusted
				advice.Suggestions = head(byName, adviceSuggestions)
				advice.Message = fmt.Sprintf("Encontramos %s, mas o preço mínimo é R$ %s. Confira as opções disponíveis:",
					criteria.Name, formatAmount(cheapest.Price))
				return advice
			}
		}

		if location != "" {
			var elsewhere []Entry
			for _, e := range byName {
				if !strings.Contains(strings.ToLower(e.Location), location) {
					elsewhere = append(elsewhere, e)
				}
			}
			if len(elsewhere) > 0 {
				advice.SearchType = SearchLocationAdjusted
				advice.Suggestions = head(elsewhere, adviceSuggestions)
				advice.Message = fmt.Sprintf("%s não disponível em %s. Veja opções em outras cidades:",
					criteria.Name, criteria.Location)
				return advice
			}
		}
	}

	advice.SearchType = SearchSimilar
	if criteria.MaxPrice == nil {
		advice.Suggestions = head(c.entries, adviceNearby)
		advice.Message = "Confira nossas opções disponíveis:"
		return advice
	}

	budget := *criteria.MaxPrice
	var nearby []Entry
	for _, e := range c.entries {
		if math.Abs(e.Price-budget) < adviceNearbyDistance {
			nearby = append(nearby, e)
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return math.Abs(nearby[i].Price-budget) < math.Abs(nearby[j].Price-budget)
	})
	advice.Suggestions = head(nearby, adviceNearby)
	advice.Message = fmt.Sprintf("Confira estas opções próximas ao seu orçamento de R$ %s:", formatAmount(budget))

	return advice
}
