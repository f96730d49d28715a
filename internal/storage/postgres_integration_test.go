//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
)

func TestCatalogRepository_Postgres(t *testing.T) {
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("car_search_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := Open(ctx, OpenConfig{
		Driver:       "postgres",
		DSN:          fmt.Sprintf("postgres://test:test@%s:%s/car_search_test?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
	})
	require.NoError(t, err)
	defer db.Close()

	repo := NewCatalogRepository(db)
	require.NoError(t, repo.Migrate(ctx))

	entries := []catalog.Entry{
		{Name: "BYD", Model: "Dolphin", Price: 149800, Location: "São Paulo"},
		{Name: "Fiat", Model: "Mobi", Image: "https://img.example/mobi.jpg", Price: 68990, Location: "Recife"},
	}
	require.NoError(t, repo.ReplaceAll(ctx, entries, nil))

	loaded, err := repo.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)

	_, err = repo.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
