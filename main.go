package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/abennett/ttt/pkg"
	"github.com/abennett/ttt/pkg/request"
	"github.com/abennett/ttt/pkg/server"
)

const envPrefix = "TTT"

func newServeCmd(logs *logConfig) *ffcli.Command {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	maxNotation := fs.Int("max-notation", server.DefaultMaxNotationLength, "longest dice expression accepted")
	roomDice := fs.String("room-dice", server.DefaultRoomDice, "dice rolled in rooms when a player asks for nothing else")
	seed := fs.Uint64("seed", 0, "seed the roller for reproducible rolls, 0 for random")
	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve [flags]",
		ShortHelp:  "serve the roll API and rooms",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, _ []string) error {
			logger, err := logs.setup(os.Stderr)
			if err != nil {
				return err
			}
			if _, _, _, err := pkg.Parse(*roomDice, pkg.DieOptions{}); err != nil {
				return fmt.Errorf("room dice: %w", err)
			}
			srv := server.NewServer(
				server.WithLogger(logger),
				server.WithRoller(newRoller(logger, *seed)),
				server.WithRoomDice(*roomDice),
				server.WithMaxNotationLength(*maxNotation),
			)
			return serve(ctx, logger, *addr, server.NewMux(srv))
		},
	}
}

func serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newRoller(logger *slog.Logger, seed uint64) *pkg.Roller {
	opts := []pkg.Option{pkg.WithLogger(logger)}
	if seed != 0 {
		opts = append(opts, pkg.WithSampler(pkg.NewSeededSampler(seed)))
	}
	return pkg.NewRoller(opts...)
}

type rollFlags struct {
	seed       uint64
	asJSON     bool
	dropLowest int
	rerollTot  int
	rerollDie  string
	subAll     int
	addAll     int
	repeat     int
}

func (f *rollFlags) register(fs *flag.FlagSet) {
	fs.Uint64Var(&f.seed, "seed", 0, "seed the roller for reproducible rolls, 0 for random")
	fs.BoolVar(&f.asJSON, "json", false, "print the full result as JSON")
	fs.IntVar(&f.dropLowest, "drop-lowest", 0, "drop this many of the lowest dice")
	fs.IntVar(&f.rerollTot, "reroll-total", -1, "reroll while the total is at or below this, -1 to disable")
	fs.StringVar(&f.rerollDie, "reroll-die", "", "comma separated faces removed from the die")
	fs.IntVar(&f.subAll, "sub-all", 0, "subtract from every face")
	fs.IntVar(&f.addAll, "add-all", 0, "add to every face")
	fs.IntVar(&f.repeat, "repeat", 0, "roll the whole expression this many times")
}

// dieOptions goes through the same parsing as query parameters so the CLI
// and the HTTP API reject the same input.
func (f *rollFlags) dieOptions() (pkg.DieOptions, error) {
	q := url.Values{}
	if f.dropLowest != 0 {
		q.Set("dropLowest", strconv.Itoa(f.dropLowest))
	}
	if f.rerollTot >= 0 {
		q.Set("rerollTotal", strconv.Itoa(f.rerollTot))
	}
	if f.rerollDie != "" {
		q.Set("rerollDie", f.rerollDie)
	}
	if f.subAll != 0 {
		q.Set("subAll", strconv.Itoa(f.subAll))
	}
	if f.addAll != 0 {
		q.Set("addAll", strconv.Itoa(f.addAll))
	}
	return request.OptionsFromQuery(q)
}

func printResult(w io.Writer, label string, res pkg.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	for _, r := range res.Rolls {
		if len(r.Dice) > 1 {
			_, _ = fmt.Fprintf(w, "%s => %d %v\n", label, r.Total, r.Dice)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s => %d\n", label, r.Total)
	}
	return nil
}

func newRollLocalCmd(logs *logConfig) *ffcli.Command {
	fs := flag.NewFlagSet("roll_local", flag.ExitOnError)
	var f rollFlags
	f.register(fs)
	return &ffcli.Command{
		Name:       "roll_local",
		ShortUsage: "roll_local [flags] <dice>",
		ShortHelp:  "roll dice such as 2d6+1d4-1",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(_ context.Context, args []string) error {
			if len(args) == 0 {
				return errors.New("a roll argument is required")
			}
			expr := strings.Join(args, "")
			logger, err := logs.setup(os.Stderr)
			if err != nil {
				return err
			}
			opts, err := f.dieOptions()
			if err != nil {
				return err
			}
			groups, connectors, ignored, err := pkg.Parse(expr, opts)
			if err != nil {
				return err
			}
			if !ignored.IsZero() {
				logger.Warn("die options only apply to a single die group", "expression", expr)
			}
			res, err := newRoller(logger, f.seed).Execute(groups, connectors, pkg.BatchOptions{RepeatRoll: f.repeat})
			if err != nil {
				return err
			}
			return printResult(os.Stdout, expr, res, f.asJSON)
		},
	}
}

func newCharacterCmd(logs *logConfig) *ffcli.Command {
	fs := flag.NewFlagSet("character", flag.ExitOnError)
	seed := fs.Uint64("seed", 0, "seed the roller for reproducible rolls, 0 for random")
	asJSON := fs.Bool("json", false, "print the full result as JSON")
	return &ffcli.Command{
		Name:       "character",
		ShortUsage: "character [flags] <" + strings.Join(request.PresetNames(), "|") + ">",
		ShortHelp:  "roll six ability scores",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(_ context.Context, args []string) error {
			level := "normal"
			if len(args) > 0 {
				level = args[0]
			}
			logger, err := logs.setup(os.Stderr)
			if err != nil {
				return err
			}
			n, err := request.Preset(level)
			if err != nil {
				return err
			}
			res, err := newRoller(logger, *seed).Execute(n.Groups, n.Connectors, n.Batch)
			if err != nil {
				return err
			}
			return printResult(os.Stdout, n.Groups[0].String(), res, *asJSON)
		},
	}
}

func main() {
	var logs logConfig
	fs := flag.NewFlagSet("ttt", flag.ExitOnError)
	logs.register(fs)
	root := &ffcli.Command{
		ShortUsage: "ttt [flags] <subcommand>",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Subcommands: []*ffcli.Command{
			newRollLocalCmd(&logs),
			newServeCmd(&logs),
			newRollRemoteCmd(&logs),
			newCharacterCmd(&logs),
			newOddsCmd(&logs),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}

	err := root.ParseAndRun(context.Background(), os.Args[1:])
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		log.Fatal(err)
	}
}
