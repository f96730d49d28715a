package catalog

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders a price the way listings show it: "R$ 120.000,00".
func FormatBRL(price float64) string {
	return brPrinter.Sprintf("R$ %.2f", price)
}

// formatAmount renders a number with pt-BR grouping, dropping the decimals
// for whole values ("100.000", "89.990,50").
func formatAmount(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return brPrinter.Sprintf("%d", int64(v))
	}
	return brPrinter.Sprintf("%.2f", v)
}

// CarView is the client-facing shape of an entry. Image is duplicated under
// both key spellings older clients read, and is the placeholder when missing.
type CarView struct {
	Name           string  `json:"Name"`
	Model          string  `json:"Model"`
	Image          *string `json:"Image"`
	ImageAlias     *string `json:"image"`
	Price          float64 `json:"Price"`
	Location       string  `json:"Location"`
	FormattedPrice string  `json:"formattedPrice"`
}

// SearchView is a SearchResult prepared for clients.
type SearchView struct {
	Found        bool       `json:"found"`
	Count        int        `json:"count"`
	Cars         []CarView  `json:"cars"`
	AllLocations []string   `json:"allLocations"`
	PriceRange   PriceRange `json:"priceRange"`
}

// SimilarityView is a SimilarityResult prepared for clients.
type SimilarityView struct {
	Found bool      `json:"found"`
	Count int       `json:"count"`
	Cars  []CarView `json:"cars"`
}

// Presenter turns search results into client views. An empty Placeholder
// renders a missing image as JSON null.
type Presenter struct {
	Placeholder string
}

// Present converts SearchResult and SimilarityResult values (or pointers to
// them) into views. Any other value is returned untouched.
func (p Presenter) Present(v interface{}) interface{} {
	switch r := v.(type) {
	case SearchResult:
		return SearchView{
			Found:        r.Found,
			Count:        r.Count,
			Cars:         p.Cars(r.Cars),
			AllLocations: r.AllLocations,
			PriceRange:   r.PriceRange,
		}
	case *SearchResult:
		if r == nil {
			return v
		}
		return p.Present(*r)
	case SimilarityResult:
		return SimilarityView{Found: r.Found, Count: r.Count, Cars: p.Cars(r.Cars)}
	case *SimilarityResult:
		if r == nil {
			return v
		}
		return p.Present(*r)
	default:
		return v
	}
}

// Cars converts entries into views.
func (p Presenter) Cars(entries []Entry) []CarView {
	out := make([]CarView, 0, len(entries))
	for _, e := range entries {
		img := p.image(e.Image)
		out = append(out, CarView{
			Name:           e.Name,
			Model:          e.Model,
			Image:          img,
			ImageAlias:     img,
			Price:          e.Price,
			Location:       e.Location,
			FormattedPrice: FormatBRL(e.Price),
		})
	}
	return out
}

func (p Presenter) image(ref string) *string {
	if ref != "" {
		return &ref
	}
	if p.Placeholder == "" {
		return nil
	}
	placeholder := p.Placeholder
	return &placeholder
}
