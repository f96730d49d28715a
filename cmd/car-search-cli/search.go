package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/search"
)

func (c *cli) newSearchCmd() *cobra.Command {
	var (
		name     string
		location string
		minPrice string
		maxPrice string
		advise   bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Filter the catalog by name, city and price",
		Long: `Search filters the catalog the same way the searchCars tool does.

Prices accept plain numbers or Brazilian formatting ("R$ 120.000,00").
With --advise, an empty result is explained with the closest alternatives.`,
		Example: `  car-search-cli search --name "BYD Dolphin" --location "São Paulo"
  car-search-cli search --max-price "R$ 100.000" --advise`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			criteria := catalog.CriteriaFromArgs(map[string]interface{}{
				"name":     name,
				"location": location,
				"minPrice": minPrice,
				"maxPrice": maxPrice,
			})

			if advise {
				advice := a.Catalog.Advise(criteria)
				if c.outputJSON {
					return c.printJSON(cmd.OutOrStdout(), advice)
				}
				c.ui.Info("%s", advice.Message)
				c.ui.Cars(a.Presenter.Cars(append(advice.ExactMatches, advice.Suggestions...)))
				return nil
			}

			view := a.Presenter.Present(a.Executor.Search(ctx, criteria)).(catalog.SearchView)
			if c.outputJSON {
				return c.printJSON(cmd.OutOrStdout(), view)
			}

			if !view.Found {
				c.ui.Warning("Nenhum carro encontrado")
				c.ui.KeyValue("Cidades", view.AllLocations)
				c.ui.KeyValue("Faixa de preço", fmt.Sprintf("%s - %s",
					catalog.FormatBRL(view.PriceRange.Min), catalog.FormatBRL(view.PriceRange.Max)))
				return nil
			}
			c.ui.Success("%d carro(s) encontrado(s)", view.Count)
			c.ui.Cars(view.Cars)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "brand or model")
	cmd.Flags().StringVar(&location, "location", "", "city")
	cmd.Flags().StringVar(&minPrice, "min-price", "", "minimum price")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "maximum price")
	cmd.Flags().BoolVar(&advise, "advise", false, "explain empty results with alternatives")

	return cmd
}

func (c *cli) newSimilarCmd() *cobra.Command {
	var budget string

	cmd := &cobra.Command{
		Use:     "similar <reference car>",
		Short:   "Find cars similar to a reference car",
		Example: `  car-search-cli similar Fiat Argo --budget 90000`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			req := catalog.SimilarRequestFromArgs(map[string]interface{}{
				"referenceCar": utterance(args),
				"userBudget":   budget,
			})
			view := a.Presenter.Present(a.Executor.Similar(ctx, req)).(catalog.SimilarityView)

			if c.outputJSON {
				return c.printJSON(cmd.OutOrStdout(), view)
			}
			c.ui.Info("%d carro(s) semelhante(s) a %q", view.Count, req.ReferenceCar)
			c.ui.Cars(view.Cars)
			return nil
		},
	}

	cmd.Flags().StringVar(&budget, "budget", "", "budget used when few cars share the name")

	return cmd
}

func (c *cli) newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "parse <utterance>",
		Short:   "Extract search criteria from free text",
		Example: `  car-search-cli parse "Quero um BYD Dolphin em São Paulo até R$ 150.000"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			criteria := a.Catalog.ParseQuery(utterance(args))
			if c.outputJSON {
				return c.printJSON(cmd.OutOrStdout(), criteria)
			}

			c.ui.KeyValue("Nome", orDash(criteria.Name))
			c.ui.KeyValue("Cidade", orDash(criteria.Location))
			if criteria.MaxPrice != nil {
				c.ui.KeyValue("Preço máximo", catalog.FormatBRL(*criteria.MaxPrice))
			} else {
				c.ui.KeyValue("Preço máximo", "-")
			}
			return nil
		},
	}
}

func (c *cli) newFallbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fallback <utterance>",
		Short: "Run the EXACT, SIMILAR, EXPAND chain on free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := a.Orchestrator.Run(cmd.Context(), utterance(args))
			if c.outputJSON {
				return c.printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"stage":        out.Stage,
					"found":        out.Found,
					"criteria":     out.Criteria,
					"raisedBudget": out.RaisedBudget,
					"skipped":      out.Skipped,
					"result":       presentOutcome(a.Presenter, out),
				})
			}

			c.ui.KeyValue("Etapa", out.Stage)
			if out.RaisedBudget != nil {
				c.ui.KeyValue("Orçamento ampliado", catalog.FormatBRL(*out.RaisedBudget))
			}
			c.ui.KeyValue("Tempo", FormatDuration(out.Duration))
			c.ui.Cars(outcomeCars(a.Presenter, out))
			return nil
		},
	}
}

func presentOutcome(p catalog.Presenter, out *search.Outcome) interface{} {
	if out.Result == nil {
		return nil
	}
	return p.Present(out.Result)
}

func outcomeCars(p catalog.Presenter, out *search.Outcome) []catalog.CarView {
	switch v := presentOutcome(p, out).(type) {
	case catalog.SearchView:
		return v.Cars
	case catalog.SimilarityView:
		return v.Cars
	default:
		return nil
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
