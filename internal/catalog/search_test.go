package catalog

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	c := fixture()

	tests := []struct {
		name       string
		criteria   Criteria
		wantCount  int
		wantModels []string
	}{
		{"no criteria returns cheapest five", Criteria{}, 7, []string{"Mobi", "Onix", "Polo", "Yaris", "Pulse"}},
		{"brand", Criteria{Name: "byd"}, 2, []string{"Dolphin", "Song Plus"}},
		{"brand is case insensitive", Criteria{Name: "FIAT"}, 2, []string{"Mobi", "Pulse"}},
		{"words in any order across fields", Criteria{Name: "dolphin byd"}, 1, []string{"Dolphin"}},
		{"every word must match", Criteria{Name: "byd polo"}, 0, []string{}},
		{"model phrase", Criteria{Name: "song plus"}, 1, []string{"Song Plus"}},
		{"location substring", Criteria{Location: "são"}, 3, []string{"Yaris", "Pulse", "Dolphin"}},
		{"location uppercase", Criteria{Location: "SÃO PAULO"}, 3, []string{"Yaris", "Pulse", "Dolphin"}},
		{"max price inclusive", Criteria{MaxPrice: price(90000)}, 3, []string{"Mobi", "Onix", "Polo"}},
		{"min price inclusive", Criteria{MinPrice: price(103000)}, 3, []string{"Pulse", "Dolphin", "Song Plus"}},
		{"location and max price", Criteria{Location: "rio", MaxPrice: price(100000)}, 1, []string{"Onix"}},
		{"price window", Criteria{MinPrice: price(85000), MaxPrice: price(105000)}, 3, []string{"Polo", "Yaris", "Pulse"}},
		{"unknown car", Criteria{Name: "ferrari"}, 0, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := c.Search(tc.criteria)

			assert.Equal(t, tc.wantCount, res.Count)
			assert.Equal(t, tc.wantCount > 0, res.Found)
			assert.Equal(t, tc.wantModels, models(res.Cars))
			assert.NotNil(t, res.Cars)
		})
	}
}

func TestSearch_TokenConjunctiveMatch(t *testing.T) {
	c := New([]Entry{{Name: "BYD", Model: "Dolphin", Price: 120000, Location: "São Paulo"}})

	res := c.Search(Criteria{Name: "BYD Dolphin"})

	assert.True(t, res.Found)
	assert.Equal(t, 1, res.Count)
}

func TestSearch_Invariants(t *testing.T) {
	c := fixture()
	all := []Criteria{
		{},
		{Name: "byd"},
		{Name: "nothing here"},
		{Location: "rio"},
		{MaxPrice: price(1)},
		{MinPrice: price(0), MaxPrice: price(1e9)},
		{Name: "a", Location: "o"},
	}

	for _, criteria := range all {
		res := c.Search(criteria)

		assert.LessOrEqual(t, len(res.Cars), ResultLimit)
		assert.True(t, sort.SliceIsSorted(res.Cars, func(i, j int) bool { return res.Cars[i].Price < res.Cars[j].Price }))
		assert.Equal(t, c.Locations(), res.AllLocations)
		assert.Equal(t, c.PriceRange(), res.PriceRange)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	c := fixture()
	all := []Criteria{
		{Name: "byd"},
		{Location: "são paulo"},
		{MaxPrice: price(95000)},
		{Name: "fiat", MinPrice: price(70000)},
	}

	for _, criteria := range all {
		first := c.Search(criteria)
		require.LessOrEqual(t, first.Count, ResultLimit)

		second := New(first.Cars).Search(criteria)
		assert.Equal(t, first.Cars, second.Cars)
	}
}

func TestSearch_DoesNotMutateCatalog(t *testing.T) {
	c := fixture()
	before := c.Entries()

	c.Search(Criteria{MaxPrice: price(100000)})

	assert.Equal(t, before, c.Entries())
}

func TestCriteriaFromArgs(t *testing.T) {
	got := CriteriaFromArgs(map[string]interface{}{
		"name":     "BYD",
		"location": 42,
		"maxPrice": "R$ 150.000,00",
		"minPrice": 100000.0,
	})

	assert.Equal(t, "BYD", got.Name)
	assert.Equal(t, "", got.Location)
	require.NotNil(t, got.MaxPrice)
	require.NotNil(t, got.MinPrice)
	assert.Equal(t, 150000.0, *got.MaxPrice)
	assert.Equal(t, 100000.0, *got.MinPrice)

	empty := CriteriaFromArgs(map[string]interface{}{"maxPrice": "caro"})
	assert.Nil(t, empty.MaxPrice)
}
