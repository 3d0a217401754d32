package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/abennett/ttt/pkg"
)

var barStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#01c5d1"))

// oddsBars renders one line per outcome with a bar scaled so the likeliest
// total is width cells wide.
func oddsBars(p *message.Printer, outcomes []pkg.Outcome, width int) []string {
	var top float64
	for _, o := range outcomes {
		top = max(top, o.Probability)
	}
	lines := make([]string, len(outcomes))
	for i, o := range outcomes {
		cells := 0
		if top > 0 {
			cells = int(o.Probability / top * float64(width))
		}
		lines[i] = p.Sprintf("%5d %7.3f%% ", o.Total, o.Probability*100) +
			barStyle.Render(strings.Repeat("█", cells))
	}
	return lines
}

// simulate rolls the expression n times and counts each total, aligned with
// outcomes. Totals outside outcomes mean the roller and the odds disagree.
func simulate(roller *pkg.Roller, groups []pkg.DieSpec, connectors []pkg.Connector, outcomes []pkg.Outcome, n int, bar *pb.ProgressBar) ([]float64, error) {
	observed := make([]float64, len(outcomes))
	for range n {
		res, err := roller.Execute(groups, connectors, pkg.BatchOptions{})
		if err != nil {
			return nil, err
		}
		total := res.Rolls[0].Total
		idx, ok := slices.BinarySearchFunc(outcomes, total, func(o pkg.Outcome, t int) int {
			return o.Total - t
		})
		if !ok {
			return nil, fmt.Errorf("rolled %d which has no odds", total)
		}
		observed[idx]++
		bar.Increment()
	}
	return observed, nil
}

// goodnessOfFit returns Pearson's chi-square statistic for the observed
// counts and the probability of a statistic at least that large.
func goodnessOfFit(outcomes []pkg.Outcome, observed []float64, n int) (float64, float64) {
	expected := make([]float64, len(outcomes))
	for i, o := range outcomes {
		expected[i] = o.Probability * float64(n)
	}
	chi := stat.ChiSquare(observed, expected)
	if len(outcomes) < 2 {
		return chi, 1
	}
	dist := distuv.ChiSquared{K: float64(len(outcomes) - 1)}
	return chi, dist.Survival(chi)
}

func printOdds(w io.Writer, roller *pkg.Roller, expr string, width, rolls int) error {
	groups, connectors, _, err := pkg.Parse(expr, pkg.DieOptions{})
	if err != nil {
		return err
	}
	outcomes, err := roller.Odds(groups, connectors)
	if err != nil {
		return err
	}
	p := message.NewPrinter(language.English)
	for _, line := range oddsBars(p, outcomes, width) {
		_, _ = fmt.Fprintln(w, line)
	}
	if rolls <= 0 {
		return nil
	}

	bar := pb.StartNew(rolls)
	bar.SetWriter(os.Stderr)
	observed, err := simulate(roller, groups, connectors, outcomes, rolls, bar)
	bar.Finish()
	if err != nil {
		return err
	}
	chi, pValue := goodnessOfFit(outcomes, observed, rolls)
	_, _ = p.Fprintf(w, "%d rolls, chi-square %.2f with %d degrees of freedom, p=%.4f\n",
		rolls, chi, len(outcomes)-1, pValue)
	return nil
}

func newOddsCmd(logs *logConfig) *ffcli.Command {
	fs := flag.NewFlagSet("odds", flag.ExitOnError)
	width := fs.Int("width", 40, "width of the longest bar")
	rolls := fs.Int("simulate", 0, "also roll this many times and compare against the odds")
	seed := fs.Uint64("seed", 0, "seed the roller for reproducible rolls, 0 for random")
	return &ffcli.Command{
		Name:       "odds",
		ShortUsage: "odds [flags] <dice>",
		ShortHelp:  "show the chance of every total",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(_ context.Context, args []string) error {
			if len(args) == 0 {
				return flag.ErrHelp
			}
			logger, err := logs.setup(os.Stderr)
			if err != nil {
				return err
			}
			return printOdds(os.Stdout, newRoller(logger, *seed), strings.Join(args, ""), *width, *rolls)
		},
	}
}
