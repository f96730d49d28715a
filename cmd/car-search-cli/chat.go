package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/chat"
	"github.com/Thomaz-Klifson/car-search/internal/llm"
	"github.com/Thomaz-Klifson/car-search/internal/search"
)

var errNoUtterances = errors.New("no utterances to replay")

func (c *cli) newChatCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the sales assistant",
		Long: `Chat runs conversation turns against the configured model. Without
--message it reads one utterance per line from stdin until EOF or "sair".

Requires LLM_API_KEY (or OPENAI_API_KEY / OPENROUTER_API_KEY).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var history []llm.Message
			turn := func(text string) error {
				history = append(history, llm.Message{Role: llm.RoleUser, Content: text})

				spin := c.ui.NewSpinner("Pensando...")
				spin.Start()
				result, err := a.Chat(ctx, history)
				spin.Stop()
				if err != nil {
					history = history[:len(history)-1]
					return err
				}

				history = append(history, llm.Message{Role: llm.RoleAssistant, Content: result.Text})
				return c.printTurn(cmd.OutOrStdout(), result)
			}

			if message != "" {
				return turn(message)
			}

			c.ui.Info("Digite sua mensagem (\"sair\" para encerrar)")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				if !c.outputJSON {
					fmt.Fprint(cmd.OutOrStdout(), "você> ")
				}
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if strings.EqualFold(text, "sair") {
					break
				}
				if err := turn(text); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "send a single message and exit")

	return cmd
}

func (c *cli) printTurn(w io.Writer, result *chat.TurnResult) error {
	if c.outputJSON {
		return c.printJSON(w, map[string]interface{}{
			"turnId":      result.TurnID,
			"toolResults": result.ToolResults,
			"text":        result.Text,
			"iterations":  result.Iterations,
			"toolCalls":   result.ToolCalls,
		})
	}

	for _, r := range result.ToolResults {
		switch v := r.(type) {
		case catalog.SearchView:
			c.ui.Cars(v.Cars)
		case catalog.SimilarityView:
			c.ui.Cars(v.Cars)
		}
	}
	c.ui.Assistant(result.Text)
	if c.verbose {
		c.ui.KeyValue("Ferramentas", result.ToolCalls)
		c.ui.KeyValue("Tempo", FormatDuration(result.Duration))
	}
	return nil
}

// ReplayReport summarizes a replay run.
type ReplayReport struct {
	Total    int            `json:"total"`
	Found    int            `json:"found"`
	ByStage  map[string]int `json:"byStage"`
	Duration time.Duration  `json:"durationNs"`
	Misses   []string       `json:"misses,omitempty"`
}

func (c *cli) newReplayCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run the fallback chain over a file of utterances",
		Long: `Replay reads one utterance per line (blank lines and lines starting
with # are skipped) and reports which fallback stage answered each one.`,
		Example: `  car-search-cli replay --file testdata/utterances.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			utterances, err := readUtterances(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report := ReplayReport{Total: len(utterances), ByStage: map[string]int{}}
			bar := c.ui.NewReplayBar(len(utterances), "Replaying")
			start := time.Now()

			for _, u := range utterances {
				if ctx.Err() != nil {
					break
				}
				out := a.Orchestrator.Run(ctx, u)
				report.ByStage[string(out.Stage)]++
				if out.Found {
					report.Found++
				} else {
					report.Misses = append(report.Misses, u)
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()
			report.Duration = time.Since(start)

			if c.outputJSON {
				return c.printJSON(cmd.OutOrStdout(), report)
			}

			c.ui.Success("%d/%d utterances answered in %s", report.Found, report.Total, FormatDuration(report.Duration))
			rows := make([][]string, 0, 3)
			for _, stage := range []search.Stage{search.StageExact, search.StageSimilar, search.StageExpand} {
				rows = append(rows, []string{string(stage), fmt.Sprintf("%d", report.ByStage[string(stage)])})
			}
			c.ui.Table([]string{"Etapa", "Utterances"}, rows)
			for _, m := range report.Misses {
				c.ui.Warning("sem resultado: %s", m)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "utterance file, - for stdin")

	return cmd
}

func readUtterances(path string, stdin io.Reader) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open utterances: %w", err)
		}
		defer f.Close()
		r = f
	}

	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read utterances: %w", err)
	}
	if len(out) == 0 {
		return nil, errNoUtterances
	}
	return out, nil
}
