package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 120.000,00", FormatBRL(120000))
	assert.Equal(t, "R$ 89.990,50", FormatBRL(89990.5))
	assert.Equal(t, "R$ 0,00", FormatBRL(0))
}

func TestPresenter_ImagePlaceholder(t *testing.T) {
	entries := []Entry{
		{Name: "BYD", Model: "Dolphin", Image: "https://img.example/d.jpg", Price: 120000, Location: "São Paulo"},
		{Name: "Fiat", Model: "Mobi", Price: 69000, Location: "Recife"},
	}

	t.Run("null by default", func(t *testing.T) {
		views := Presenter{}.Cars(entries)

		require.Len(t, views, 2)
		assert.Equal(t, "https://img.example/d.jpg", *views[0].Image)
		assert.Equal(t, "https://img.example/d.jpg", *views[0].ImageAlias)
		assert.Nil(t, views[1].Image)
		assert.Equal(t, "R$ 69.000,00", views[1].FormattedPrice)

		raw, err := json.Marshal(views[1])
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"Image":null`)
		assert.Contains(t, string(raw), `"image":null`)
	})

	t.Run("configured marker", func(t *testing.T) {
		views := Presenter{Placeholder: "/placeholder.svg"}.Cars(entries)

		require.NotNil(t, views[1].Image)
		assert.Equal(t, "/placeholder.svg", *views[1].Image)
		assert.Equal(t, "/placeholder.svg", *views[1].ImageAlias)
	})
}

func TestPresenter_Present(t *testing.T) {
	p := Presenter{}
	c := fixture()

	sv, ok := p.Present(c.Search(Criteria{Name: "byd"})).(SearchView)
	require.True(t, ok)
	assert.Equal(t, 2, sv.Count)
	assert.Equal(t, c.Locations(), sv.AllLocations)

	res := c.Similar(SimilarRequest{ReferenceCar: "fiat"})
	simv, ok := p.Present(&res).(SimilarityView)
	require.True(t, ok)
	assert.Len(t, simv.Cars, 2)

	other := map[string]string{"error": "Unknown function"}
	assert.Equal(t, other, p.Present(other))
}
