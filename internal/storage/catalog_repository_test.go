package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
)

func newSQLiteRepo(t *testing.T) *CatalogRepository {
	t.Helper()

	db, err := Open(context.Background(), OpenConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewCatalogRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestCatalogRepository_ReplaceAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	entries := []catalog.Entry{
		{Name: "Toyota", Model: "Yaris", Price: 99990, Location: "Salvador"},
		{Name: "BYD", Model: "Dolphin", Image: "https://img.example/d.jpg", Price: 149800, Location: "São Paulo"},
		{Name: "Fiat", Model: "Mobi", Price: 68990.5, Location: "Recife"},
	}

	var reported []int
	require.NoError(t, repo.ReplaceAll(ctx, entries, func(done int) { reported = append(reported, done) }))
	assert.Equal(t, []int{1, 2, 3}, reported)

	loaded, err := repo.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dolphin", got.Model)

	_, err = repo.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogRepository_ReplaceOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	require.NoError(t, repo.ReplaceAll(ctx, []catalog.Entry{{Name: "A", Price: 1}, {Name: "B", Price: 2}}, nil))
	require.NoError(t, repo.ReplaceAll(ctx, []catalog.Entry{{Name: "C", Price: 3}}, nil))

	loaded, err := repo.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Entry{{Name: "C", Price: 3}}, loaded)
}

func TestCatalogRepository_AsCatalogSource(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	require.NoError(t, repo.ReplaceAll(ctx, []catalog.Entry{
		{Name: "BYD", Model: "Dolphin", Price: 120000, Location: "São Paulo"},
	}, nil))

	c, err := catalog.Load(ctx, repo)
	require.NoError(t, err)
	assert.True(t, c.Search(catalog.Criteria{Name: "BYD Dolphin"}).Found)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), OpenConfig{Driver: "mysql"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
