package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/dataset"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/scoring"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// loadSession reads the data files into a scoring session.
func (g *Globals) loadSession(ctx context.Context, clock clockwork.Clock) (*dataset.Session, error) {
	logger := g.logger()
	loader := dataset.NewLoader(dataset.LoaderConfig{
		Repository: dataset.NewFileRepository(dataset.FileRepositoryConfig{
			RoutesPath:    g.Routes,
			WeatherPath:   g.Weather,
			BulletinsPath: g.Bulletins,
			Logger:        logger,
		}),
		ModelPath: g.Model,
		Massifs:   g.Massifs,
		Neighbors: g.Neighbors,
		Clock:     clock,
		Logger:    logger,
	})
	return loader.Load(ctx)
}

func (g *Globals) writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDate reads a YYYY-MM-DD date. Empty means today in UTC.
func parseDate(raw string, clock clockwork.Clock) (time.Time, error) {
	if raw == "" {
		now := clock.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return d, nil
}

// ScoreCmd ranks the route catalog.
type ScoreCmd struct {
	Date        string  `help:"Target date (YYYY-MM-DD). Defaults to today."`
	Level       string  `help:"User level, S1..S5." required:""`
	DplusMin    float64 `help:"Lower bound of the acceptable elevation gain (m)." default:"800"`
	DplusMax    float64 `help:"Upper bound of the acceptable elevation gain (m)." default:"1500"`
	Massif      string  `help:"Only score routes of this massif."`
	Top         int     `help:"Show the N best routes, 0 for all." default:"10"`
	Concurrency int     `help:"Scoring workers." env:"SCORING_CONCURRENCY" default:"4"`
}

// Run scores the routes and prints the ranking.
func (c *ScoreCmd) Run(g *Globals, ctx context.Context, clock clockwork.Clock, out io.Writer) error {
	date, err := parseDate(c.Date, clock)
	if err != nil {
		return err
	}
	level, err := route.ParseGrade(c.Level)
	if err != nil {
		return err
	}

	s, err := g.loadSession(ctx, clock)
	if err != nil {
		return err
	}

	routes := s.Context.Routes
	if c.Massif != "" {
		massif := avalanche.NormalizeMassif(c.Massif)
		routes = routes[:0:0]
		for _, r := range s.Context.Routes {
			if r.Massif == massif {
				routes = append(routes, r)
			}
		}
	}

	engine := scoring.NewEngine(scoring.EngineConfig{Logger: g.logger(), Concurrency: c.Concurrency})
	batch, err := engine.ScoreRoutes(ctx, s.Context, routes, scoring.Query{
		Date:      date,
		UserLevel: level,
		Dplus:     scoring.DplusRange{Min: c.DplusMin, Max: c.DplusMax},
	})
	if err != nil {
		return err
	}
	if c.Top > 0 && len(batch.Results) > c.Top {
		batch.Results = batch.Results[:c.Top]
	}

	if g.JSON {
		return g.writeJSON(out, batch)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tROUTE\tMASSIF\tSCORE\tDANGER\tFITNESS\tSNOW\tMODE\tCONFIDENCE")
	for i, r := range batch.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%s\t%s\n",
			i+1, r.Name, r.Massif, r.FinalScore, r.Danger, r.Fitness, r.SnowQuality, r.SeasonMode, r.Confidence)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if n := len(batch.Skipped); n > 0 {
		fmt.Fprintf(out, "%d route(s) skipped\n", n)
	}
	return nil
}

// SnowCmd prints the hybrid snow quality of a route.
type SnowCmd struct {
	RouteID string `help:"Route identifier." required:""`
	Date    string `help:"Target date (YYYY-MM-DD). Defaults to today."`
}

// Run computes and prints the snow quality.
func (c *SnowCmd) Run(g *Globals, ctx context.Context, clock clockwork.Clock, out io.Writer) error {
	date, err := parseDate(c.Date, clock)
	if err != nil {
		return err
	}

	s, err := g.loadSession(ctx, clock)
	if err != nil {
		return err
	}
	r, err := s.Context.RouteByID(c.RouteID)
	if err != nil {
		return fmt.Errorf("%w: %s", err, c.RouteID)
	}

	engine := scoring.NewEngine(scoring.EngineConfig{Logger: g.logger()})
	sq := engine.HybridSnowQuality(ctx, s.Context, r, date)

	if g.JSON {
		return g.writeJSON(out, sq)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "route\t%s (%s)\n", r.Name, r.ID)
	fmt.Fprintf(tw, "date\t%s\n", date.Format(time.DateOnly))
	fmt.Fprintf(tw, "score\t%.3f\n", sq.Score)
	fmt.Fprintf(tw, "mode\t%s\n", sq.Mode)
	fmt.Fprintf(tw, "winter\t%.3f (%s)\n", sq.Winter, sq.WinterSource)
	fmt.Fprintf(tw, "spring\t%.3f\n", sq.Spring)
	fmt.Fprintf(tw, "confidence\t%s\n", sq.Confidence)
	fmt.Fprintf(tw, "snowfall 7d\t%.1f cm\n", sq.Features.SnowfallSum)
	fmt.Fprintf(tw, "freeze-thaw 7d\t%.2f\n", sq.Features.FreezeThawCycles)
	return tw.Flush()
}

// NearestCmd lists the grid points blended for a location.
type NearestCmd struct {
	Lat float64 `help:"Latitude." required:""`
	Lon float64 `help:"Longitude." required:""`
	K   int     `short:"k" help:"Number of neighbors (clamped to 3-5)." default:"4"`
}

// Run reads only the weather grid and prints the neighbors with their weights.
func (c *NearestCmd) Run(g *Globals, out io.Writer) error {
	f, err := os.Open(g.Weather)
	if err != nil {
		return err
	}
	defer f.Close()

	points, _, err := dataset.ReadWeatherCSV(f, g.logger())
	if err != nil {
		return err
	}
	grid, err := weather.NewGrid(points)
	if err != nil {
		return err
	}

	agg := weather.NewAggregator(weather.AggregatorConfig{Grid: grid, Neighbors: c.K, Logger: g.logger()})
	contributions := agg.Contributions(c.Lat, c.Lon)

	if g.JSON {
		return g.writeJSON(out, contributions)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LAT\tLON\tDISTANCE_KM\tWEIGHT")
	for _, ct := range contributions {
		fmt.Fprintf(tw, "%.4f\t%.4f\t%.2f\t%.3f\n", ct.Point.Lat, ct.Point.Lon, ct.DistanceKm, ct.Weight)
	}
	return tw.Flush()
}
