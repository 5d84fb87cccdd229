// Package main provides the skitour command line tool: rank routes, inspect
// snow quality and look up weather grid neighbors from exported data files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Version is set at compile time via ldflags.
var Version = "dev"

// CLI is the root command.
type CLI struct {
	Globals

	Score   ScoreCmd         `cmd:"" help:"Rank routes for a date and user profile."`
	Snow    SnowCmd          `cmd:"" help:"Show the hybrid snow quality of one route."`
	Nearest NearestCmd       `cmd:"" help:"List the weather grid points blended for a location."`
	Version kong.VersionFlag `help:"Print version and exit."`
}

// Globals are flags shared by every command.
type Globals struct {
	Routes    string   `help:"Route table CSV." env:"ROUTES_CSV" default:"data/routes.csv" type:"path"`
	Weather   string   `help:"Weather grid CSV." env:"WEATHER_CSV" default:"data/weather.csv" type:"path"`
	Bulletins string   `help:"Avalanche bulletin JSON." env:"BULLETINS_JSON" default:"data/bulletins.json" type:"path"`
	Model     string   `help:"LightGBM snow model. Empty uses the physical winter score." env:"MODEL_PATH" type:"path"`
	Massifs   []string `help:"Massif categories in model training order." env:"MASSIF_CODES"`
	Neighbors int      `help:"Grid points blended per location (3-5)." env:"WEATHER_NEIGHBORS" default:"4"`
	JSON      bool     `help:"Write JSON instead of a table."`
	Verbose   bool     `short:"v" help:"Log loading progress to stderr."`
}

func (g *Globals) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if g.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, clockwork.NewRealClock(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "skitour:", err)
		os.Exit(1) //nolint:gocritic // stop only releases the signal handler
	}
}

// run parses args and executes the selected command, writing results to out.
func run(ctx context.Context, clock clockwork.Clock, args []string, out io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("skitour"),
		kong.Description("Ski touring route scoring from exported datasets."),
		kong.Vars{"version": Version},
		kong.Writers(out, os.Stderr),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.BindTo(clock, (*clockwork.Clock)(nil)),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(&cli.Globals)
}
