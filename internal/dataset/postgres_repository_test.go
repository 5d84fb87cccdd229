package dataset_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/skitourlive/skitourlive/internal/dataset"
	"github.com/skitourlive/skitourlive/internal/route"
)

func TestPostgresRepository_AcceptRoute(t *testing.T) {
	var buf bytes.Buffer
	repo := dataset.NewPostgresRepository(nil, zerolog.New(&buf))

	base := route.Route{ID: "belv", Name: "Belvedere", Massif: "Mont-Blanc", Lat: 45.95, Lon: 6.88, ElevationGain: 1200}

	t.Run("valid row", func(t *testing.T) {
		buf.Reset()
		rt, ok := repo.AcceptRoute(base, "NE", "2.1")
		assert.True(t, ok)
		assert.Equal(t, "MONT-BLANC", rt.Massif)
		assert.Equal(t, route.AspectNE, rt.Aspect)
		assert.Equal(t, route.GradeS2, rt.Grade)
		assert.Empty(t, buf.String())
	})

	t.Run("invalid difficulty is logged", func(t *testing.T) {
		buf.Reset()
		_, ok := repo.AcceptRoute(base, "N", "S9")
		assert.False(t, ok)
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.Contains(t, buf.String(), `"route_id":"belv"`)
	})

	t.Run("failed validation is logged", func(t *testing.T) {
		buf.Reset()
		bad := base
		bad.ID = "flat"
		bad.ElevationGain = 0
		_, ok := repo.AcceptRoute(bad, "N", "2")
		assert.False(t, ok)
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.Contains(t, buf.String(), `"route_id":"flat"`)
	})
}
