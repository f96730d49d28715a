// Package main provides UI utilities for the car search CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
)

// UI provides user-friendly output utilities.
type UI struct {
	out      io.Writer
	progress *mpb.Progress
	noColor  bool
	jsonMode bool
}

// NewUI creates a new UI writing to out. Progress bars are only drawn on a
// terminal.
func NewUI(out io.Writer, jsonMode, noColor bool) *UI {
	ui := &UI{out: out, noColor: noColor || !IsTerminal(), jsonMode: jsonMode}
	if !jsonMode && IsTerminal() {
		ui.progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	}
	return ui
}

// Close waits for running progress bars.
func (ui *UI) Close() {
	if ui.progress != nil {
		ui.progress.Wait()
	}
}

func (ui *UI) line(c color.Attribute, symbol, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if ui.noColor {
		fmt.Fprintf(ui.out, "%s %s\n", symbol, msg)
		return
	}
	color.New(c).Fprintf(ui.out, "%s %s\n", symbol, msg)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.line(color.FgGreen, "✓", format, args...)
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.line(color.FgYellow, "⚠", format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.line(color.FgCyan, "ℹ", format, args...)
}

// Assistant prints a model reply.
func (ui *UI) Assistant(text string) {
	if ui.jsonMode {
		return
	}
	if ui.noColor {
		fmt.Fprintf(ui.out, "assistente> %s\n", text)
		return
	}
	color.New(color.FgMagenta, color.Bold).Fprint(ui.out, "assistente> ")
	fmt.Fprintln(ui.out, text)
}

// KeyValue prints a key-value pair.
func (ui *UI) KeyValue(key string, value interface{}) {
	if ui.jsonMode {
		return
	}
	if ui.noColor {
		fmt.Fprintf(ui.out, "  %s: %v\n", key, value)
		return
	}
	color.New(color.FgYellow).Fprintf(ui.out, "  %s: ", key)
	fmt.Fprintf(ui.out, "%v\n", value)
}

// Cars prints catalog entries as a table.
func (ui *UI) Cars(cars []catalog.CarView) {
	if len(cars) == 0 {
		ui.Warning("Nenhum carro encontrado")
		return
	}

	rows := make([][]string, 0, len(cars))
	for _, c := range cars {
		rows = append(rows, []string{c.Name, c.Model, c.FormattedPrice, c.Location})
	}
	ui.Table([]string{"Marca", "Modelo", "Preço", "Cidade"}, rows)
}

// Table prints a formatted table.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode || len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = runeLen(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && runeLen(cell) > widths[i] {
				widths[i] = runeLen(cell)
			}
		}
	}

	border := func(left, mid, right string) {
		parts := make([]string, len(widths))
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		ui.accent(left + strings.Join(parts, mid) + right + "\n")
	}
	row := func(cells []string) {
		ui.accent("│")
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(ui.out, " %s%s ", cell, strings.Repeat(" ", w-runeLen(cell)))
			ui.accent("│")
		}
		fmt.Fprintln(ui.out)
	}

	border("┌", "┬", "┐")
	row(headers)
	border("├", "┼", "┤")
	for _, r := range rows {
		row(r)
	}
	border("└", "┴", "┘")
}

func (ui *UI) accent(s string) {
	if ui.noColor {
		fmt.Fprint(ui.out, s)
		return
	}
	color.New(color.FgCyan, color.Bold).Fprint(ui.out, s)
}

// ProgressBar creates a counting bar, or nil when not on a terminal.
func (ui *UI) ProgressBar(name string, total int64) *mpb.Bar {
	if ui.progress == nil {
		return nil
	}

	return ui.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.OnComplete(
				decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12}),
				" done",
			),
		),
	)
}

// Spinner wraps a spinner for indeterminate waits such as a model turn.
type Spinner struct {
	spinner *spinner.Spinner
	enabled bool
}

// NewSpinner creates a spinner writing to stderr.
func (ui *UI) NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s, enabled: !ui.jsonMode && IsTerminal()}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if s.enabled {
		s.spinner.Start()
	}
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	if s.enabled {
		s.spinner.Stop()
	}
}

// NewReplayBar creates the progress bar used when replaying utterances.
func (ui *UI) NewReplayBar(total int, description string) *progressbar.ProgressBar {
	w := io.Writer(os.Stderr)
	if ui.jsonMode || !IsTerminal() {
		w = io.Discard
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("utterances"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// IsTerminal checks if stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func runeLen(s string) int {
	return len([]rune(s))
}
