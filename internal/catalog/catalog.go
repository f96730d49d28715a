// Package catalog holds the read-only car listing catalog and the pure search
// functions that run over it: price normalization, criteria filtering,
// similarity lookup and free-text query extraction.
package catalog

// ResultLimit is the maximum number of cars returned by Search and Similar.
const ResultLimit = 5

// Entry is a single car listing. JSON keys follow the catalog file format.
type Entry struct {
	Name     string  `json:"Name" yaml:"name"`
	Model    string  `json:"Model" yaml:"model"`
	Image    string  `json:"Image,omitempty" yaml:"image,omitempty"`
	Price    float64 `json:"Price" yaml:"price"`
	Location string  `json:"Location" yaml:"location"`
}

// PriceRange is the min/max price over the whole catalog.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Catalog is an immutable ordered set of entries. It is safe for concurrent use
// because nothing mutates it after New returns.
type Catalog struct {
	entries    []Entry
	locations  []string
	priceRange PriceRange
}

// New builds a catalog from entries, preserving their order. The slice is copied.
func New(entries []Entry) *Catalog {
	c := &Catalog{entries: make([]Entry, len(entries))}
	copy(c.entries, entries)

	seen := make(map[string]struct{}, len(entries))
	for i, e := range c.entries {
		if _, ok := seen[e.Location]; !ok {
			seen[e.Location] = struct{}{}
			c.locations = append(c.locations, e.Location)
		}
		if i == 0 || e.Price < c.priceRange.Min {
			c.priceRange.Min = e.Price
		}
		if i == 0 || e.Price > c.priceRange.Max {
			c.priceRange.Max = e.Price
		}
	}
	if c.locations == nil {
		c.locations = []string{}
	}

	return c
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Locations returns the distinct locations in first-seen order.
func (c *Catalog) Locations() []string {
	out := make([]string, len(c.locations))
	copy(out, c.locations)
	return out
}

// PriceRange returns the catalog-wide price range. An empty catalog reports {0, 0}.
func (c *Catalog) PriceRange() PriceRange {
	return c.priceRange
}
