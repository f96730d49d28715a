package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thomaz-Klifson/car-search/internal/app"
	"github.com/Thomaz-Klifson/car-search/internal/catalog"
)

// writeConfig writes a config pointing at the sample catalog and a temp
// sqlite database.
func writeConfig(t *testing.T) string {
	t.Helper()

	for _, key := range []string{
		"CONFIG_PATH", "CATALOG_PATH", "CATALOG_SOURCE", "DATABASE_URL", "REDIS_URL",
		"LLM_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(key, "")
	}

	catalogPath, err := filepath.Abs(filepath.Join("..", "..", "data", "cars.json"))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
catalog:
  source: file
  path: %q
database:
  driver: sqlite
  sqlite:
    path: %q
cache:
  driver: memory
`, catalogPath, filepath.Join(dir, "cars.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "unused.yaml", "", "version")
	require.NoError(t, err)
	assert.Equal(t, "car-search-cli dev\n", out)
}

func TestSearch(t *testing.T) {
	cfg := writeConfig(t)

	t.Run("by name", func(t *testing.T) {
		out, err := run(t, cfg, "", "--json", "search", "--name", "Toyota")
		require.NoError(t, err)

		var view catalog.SearchView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, 2, view.Count)
		assert.Equal(t, "Yaris", view.Cars[0].Model)
	})

	t.Run("locale budget", func(t *testing.T) {
		out, err := run(t, cfg, "", "--json", "search", "--max-price", "R$ 80.000")
		require.NoError(t, err)

		var view catalog.SearchView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		require.Equal(t, 2, view.Count)
		assert.Equal(t, "Mobi", view.Cars[0].Model)
		assert.Equal(t, "Kwid", view.Cars[1].Model)
	})

	t.Run("table", func(t *testing.T) {
		out, err := run(t, cfg, "", "--no-color", "search", "--name", "Jeep")
		require.NoError(t, err)
		assert.Contains(t, out, "Compass")
		assert.Contains(t, out, "R$ 189.990,00")
		assert.Contains(t, out, "Porto Alegre")
	})

	t.Run("advise", func(t *testing.T) {
		out, err := run(t, cfg, "", "--json", "search", "--name", "Jeep", "--location", "Recife", "--advise")
		require.NoError(t, err)

		var advice catalog.Advice
		require.NoError(t, json.Unmarshal([]byte(out), &advice))
		assert.Equal(t, catalog.SearchLocationAdjusted, advice.SearchType)
	})
}

func TestSimilarParseFallback(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "", "--json", "similar", "Hyundai", "i30")
	require.NoError(t, err)
	var similar catalog.SimilarityView
	require.NoError(t, json.Unmarshal([]byte(out), &similar))
	assert.Equal(t, 2, similar.Count)

	out, err = run(t, cfg, "", "--json", "parse", "Quero um Onix no Rio de Janeiro")
	require.NoError(t, err)
	var criteria catalog.Criteria
	require.NoError(t, json.Unmarshal([]byte(out), &criteria))
	assert.Equal(t, "Chevrolet Onix", criteria.Name)
	assert.Equal(t, "rio de janeiro", criteria.Location)

	out, err = run(t, cfg, "", "--json", "fallback", "Quero uma Ferrari até R$ 10.000")
	require.NoError(t, err)
	var fb map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &fb))
	assert.Equal(t, "EXPAND", fb["stage"])
	assert.InDelta(t, 12000.0, fb["raisedBudget"], 1e-6)
}

func TestReplay(t *testing.T) {
	cfg := writeConfig(t)

	stdin := strings.Join([]string{
		"# sample",
		"Quero um BYD Dolphin em São Paulo",
		"",
		"Tem BYD Dolphin em Recife?",
		"Quero uma Ferrari até R$ 10.000",
	}, "\n")

	out, err := run(t, cfg, stdin, "--json", "replay")
	require.NoError(t, err)

	var report ReplayReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Found)
	assert.Equal(t, 1, report.ByStage["EXACT"])
	assert.Equal(t, 1, report.ByStage["SIMILAR"])
	assert.Equal(t, 1, report.ByStage["EXPAND"])
	assert.Equal(t, []string{"Quero uma Ferrari até R$ 10.000"}, report.Misses)

	_, err = run(t, cfg, "\n# nothing\n", "replay")
	assert.ErrorIs(t, err, errNoUtterances)
}

func TestCatalogImportAndList(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "", "--json", "catalog", "import", "--file", filepath.Join("..", "..", "data", "cars.json"))
	require.NoError(t, err)
	assert.Contains(t, out, `"imported": 16`)

	out, err = run(t, cfg, "", "--json", "catalog", "list", "--source", "database")
	require.NoError(t, err)

	var listing struct {
		Count int               `json:"count"`
		Cars  []catalog.CarView `json:"cars"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	assert.Equal(t, 16, listing.Count)
	assert.Equal(t, "Dolphin", listing.Cars[0].Model)
}

func TestCatalogImport_Invalid(t *testing.T) {
	cfg := writeConfig(t)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- name: \"\"\n  price: 10\n"), 0o644))

	_, err := run(t, cfg, "", "catalog", "import", "--file", bad)
	assert.ErrorContains(t, err, "invalid catalog")
}

func TestChat_WithoutKey(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, cfg, "", "chat", "--message", "oi")
	assert.ErrorIs(t, err, app.ErrChatUnavailable)
}

func TestEvents_RequiresRedis(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, cfg, "", "events")
	assert.ErrorContains(t, err, "cache.driver=redis")
}
