// Package main provides the car search CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Thomaz-Klifson/car-search/internal/app"
	"github.com/Thomaz-Klifson/car-search/internal/config"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cli holds the state shared by every subcommand.
type cli struct {
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool

	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "car-search-cli",
		Short: "Car search CLI for catalog queries, chat turns and catalog administration",
		Long: `Car search CLI runs the same search pipeline as the API server.

Use this tool to:
- Search the catalog by name, city and price
- Find similar cars and run the fallback chain on free text
- Chat with the sales assistant
- Import a catalog file into the database

All commands support --json for automation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			var err error
			c.cfg, err = config.Load(c.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			level := "warn"
			if c.verbose {
				level = "debug"
			}
			c.logger = observability.NewLogger(observability.LogConfig{
				Level:       level,
				Format:      "console",
				Output:      cmd.ErrOrStderr(),
				ServiceName: "car-search-cli",
			})
			c.ui = NewUI(cmd.OutOrStdout(), c.outputJSON, c.noColor)

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&c.outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(c.newSearchCmd())
	rootCmd.AddCommand(c.newSimilarCmd())
	rootCmd.AddCommand(c.newParseCmd())
	rootCmd.AddCommand(c.newFallbackCmd())
	rootCmd.AddCommand(c.newChatCmd())
	rootCmd.AddCommand(c.newReplayCmd())
	rootCmd.AddCommand(c.newCatalogCmd())
	rootCmd.AddCommand(c.newEventsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// openApp wires the search pipeline from the loaded config.
func (c *cli) openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return a, nil
}

func (c *cli) printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func utterance(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "car-search-cli %s\n", version)
		},
	}
}
