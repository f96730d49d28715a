package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thomaz-Klifson/car-search/internal/app"
	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/chat"
	"github.com/Thomaz-Klifson/car-search/internal/storage"
)

func (c *cli) newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and import the car catalog",
	}

	cmd.AddCommand(c.newCatalogImportCmd())
	cmd.AddCommand(c.newCatalogListCmd())

	return cmd
}

func (c *cli) newCatalogImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the database catalog with a JSON or YAML file",
		Long: `Import validates the file, replaces every row of the cars table in one
transaction and drops cached search results.

The target database comes from the database section of the config
(or DATABASE_URL).`,
		Example: `  car-search-cli catalog import --file data/cars.json
  DATABASE_URL=postgres://localhost/cars car-search-cli catalog import -f cars.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			entries, err := catalog.FileSource{Path: file}.LoadEntries(ctx)
			if err != nil {
				return err
			}
			if err := catalog.Validate(entries); err != nil {
				return fmt.Errorf("invalid catalog: %w", err)
			}

			db, err := app.OpenDatabase(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := storage.NewCatalogRepository(db)
			if err := repo.Migrate(ctx); err != nil {
				return err
			}

			bar := c.ui.ProgressBar("Importing", int64(len(entries)))
			err = repo.ReplaceAll(ctx, entries, func(done int) {
				if bar != nil {
					bar.SetCurrent(int64(done))
				}
			})
			if bar != nil {
				if err != nil {
					bar.Abort(false)
				} else {
					bar.SetTotal(int64(len(entries)), true)
				}
			}
			c.ui.Close()
			if err != nil {
				return err
			}

			if err := c.invalidateSearchCache(ctx); err != nil {
				c.ui.Warning("Cached results were not cleared: %v", err)
			}

			count, err := repo.Count(ctx)
			if err != nil {
				return err
			}

			c.logger.Info().
				Str("file", file).
				Str("driver", c.cfg.Database.Driver).
				Int("entries", count).
				Msg("Catalog imported")

			if c.outputJSON {
				return c.printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"imported": count,
					"driver":   c.cfg.Database.Driver,
				})
			}
			c.ui.Success("%d carros importados (%s)", count, c.cfg.Database.Driver)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog file (.json, .yaml, .yml)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// invalidateSearchCache drops cached results that were computed against the
// previous catalog. Only the redis cache outlives this process.
func (c *cli) invalidateSearchCache(ctx context.Context) error {
	if c.cfg.Cache.Driver != "redis" {
		return nil
	}

	client, _, err := app.OpenCache(c.cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.DeleteByPrefix(ctx, app.SearchCacheKeyPrefix)
}

func (c *cli) newCatalogListCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every car of the configured catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if source != "" {
				c.cfg.Catalog.Source = source
			}

			cat, err := app.LoadCatalog(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}

			presenter := catalog.Presenter{Placeholder: c.cfg.Catalog.ImagePlaceholder}
			cars := presenter.Cars(cat.Entries())
			if c.outputJSON {
				return c.printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"count":      len(cars),
					"cars":       cars,
					"locations":  cat.Locations(),
					"priceRange": cat.PriceRange(),
				})
			}

			c.ui.Info("%d carros (%s)", len(cars), c.cfg.Catalog.Source)
			c.ui.Cars(cars)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "override catalog source (file or database)")

	return cmd
}

func (c *cli) newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow per-turn summaries published by the API server",
		Long: `Events subscribes to the turn events channel. It needs the redis cache
driver, the same one the API server publishes through.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Cache.Driver != "redis" {
				return fmt.Errorf("events require cache.driver=redis, got %q", c.cfg.Cache.Driver)
			}

			_, rc, err := app.OpenCache(c.cfg)
			if err != nil {
				return err
			}
			defer rc.Close()

			ctx := cmd.Context()
			msgs, stop, err := rc.Subscribe(ctx, c.cfg.Cache.EventsChannel)
			if err != nil {
				return err
			}
			defer stop()

			c.ui.Info("Listening on %s (Ctrl+C to stop)", c.cfg.Cache.EventsChannel)
			for {
				select {
				case <-ctx.Done():
					return nil
				case data, ok := <-msgs:
					if !ok {
						return nil
					}
					if c.outputJSON {
						fmt.Fprintln(cmd.OutOrStdout(), string(data))
						continue
					}

					var evt chat.TurnEvent
					if err := json.Unmarshal(data, &evt); err != nil {
						c.ui.Warning("malformed event: %v", err)
						continue
					}
					c.ui.Success("%s  %s  tools=%v fallback=%s results=%d %dms",
						evt.Timestamp.Format(time.RFC3339), evt.TurnID, evt.Tools,
						orDash(evt.FallbackStage), evt.ResultCount, evt.DurationMs)
				}
			}
		},
	}
}
