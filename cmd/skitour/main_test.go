package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routesCSV = `id,name,massif,lat,lon,denivele_positif,exposition,difficulty_ski
belv,Col du Belvedere,Mont-Blanc,45.95,6.88,1200,N,2.1
perc,Pointe Percee,Aravis,45.96,6.54,1500,SO,4
`

const bulletinsJSON = `[{"massif":"Mont-Blanc","risque_actuel":2}]`

func weatherCSV() string {
	var b strings.Builder
	b.WriteString("latitude,longitude,time,temperature_2m,wind_speed_10m,precipitation,snowfall\n")
	for _, p := range []string{"45.9,6.8", "45.95,6.55", "46.0,6.7"} {
		for d := 7; d <= 14; d++ {
			fmt.Fprintf(&b, "%s,2026-02-%02dT06:00,-5,10,0,3\n", p, d)
		}
	}
	return b.String()
}

func writeDataset(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"routes.csv":     routesCSV,
		"weather.csv":    weatherCSV(),
		"bulletins.json": bulletinsJSON,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return []string{
		"--routes", filepath.Join(dir, "routes.csv"),
		"--weather", filepath.Join(dir, "weather.csv"),
		"--bulletins", filepath.Join(dir, "bulletins.json"),
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	clock := clockwork.NewFakeClockAt(time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC))
	err := run(context.Background(), clock, args, &out)
	return out.String(), err
}

func TestScoreCommand_Table(t *testing.T) {
	args := append(writeDataset(t), "score", "--level", "S2", "--top", "1")

	out, err := runCLI(t, args...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "RANK")
	assert.True(t, strings.HasPrefix(lines[1], "1 "))
	assert.Contains(t, lines[1], "winter")
	assert.Contains(t, lines[1], "LOW")
}

func TestScoreCommand_JSON(t *testing.T) {
	args := append(writeDataset(t), "--json", "score", "--level", "S4", "--date", "2026-02-13", "--massif", "aravis")

	out, err := runCLI(t, args...)
	require.NoError(t, err)

	var batch struct {
		Date    time.Time `json:"date"`
		Results []struct {
			RouteID    string  `json:"routeId"`
			FinalScore float64 `json:"finalScore"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Equal(t, "2026-02-13", batch.Date.Format(time.DateOnly))
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "perc", batch.Results[0].RouteID)
	assert.Greater(t, batch.Results[0].FinalScore, 0.0)
}

func TestScoreCommand_InvalidLevel(t *testing.T) {
	args := append(writeDataset(t), "score", "--level", "S7")

	_, err := runCLI(t, args...)
	assert.Error(t, err)
}

func TestSnowCommand(t *testing.T) {
	args := append(writeDataset(t), "snow", "--route-id", "belv")

	out, err := runCLI(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Col du Belvedere (belv)")
	assert.Contains(t, out, "2026-02-14")
	assert.Contains(t, out, "physical")
	assert.Contains(t, out, "LOW")
	assert.Contains(t, out, "21.0 cm")
}

func TestSnowCommand_UnknownRoute(t *testing.T) {
	args := append(writeDataset(t), "snow", "--route-id", "nope")

	_, err := runCLI(t, args...)
	assert.ErrorContains(t, err, "nope")
}

func TestNearestCommand(t *testing.T) {
	args := append(writeDataset(t), "--json", "nearest", "--lat", "45.9", "--lon", "6.8", "-k", "3")

	out, err := runCLI(t, args...)
	require.NoError(t, err)

	var contributions []struct {
		Point struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"point"`
		DistanceKm float64 `json:"distanceKm"`
		Weight     float64 `json:"weight"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &contributions))
	require.Len(t, contributions, 3)

	// The exact match dominates the blend.
	assert.InDelta(t, 45.9, contributions[0].Point.Lat, 1e-9)
	assert.InDelta(t, 0, contributions[0].DistanceKm, 1e-9)
	assert.Greater(t, contributions[0].Weight, 0.5)

	var total float64
	for _, c := range contributions {
		total += c.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestNearestCommand_MissingWeatherFile(t *testing.T) {
	_, err := runCLI(t, "--weather", filepath.Join(t.TempDir(), "none.csv"), "nearest", "--lat", "45.9", "--lon", "6.8")
	assert.Error(t, err)
}
