package avalanche_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skitourlive/skitourlive/internal/avalanche"
)

func TestNormalizeMassif(t *testing.T) {
	assert.Equal(t, "MONT-BLANC", avalanche.NormalizeMassif("  Mont-Blanc\t"))
	assert.Equal(t, "", avalanche.NormalizeMassif("   "))
}

func TestTable_Risk(t *testing.T) {
	table := avalanche.NewTable([]avalanche.Bulletin{
		{Massif: "Mont-Blanc", Level: 2},
		{Massif: "belledonne ", Level: 5},
		{Massif: "Vercors", Level: 0},
		{Massif: "Oisans", Level: 7},
	})

	tests := []struct {
		massif   string
		expected float64
	}{
		{"MONT-BLANC", 0.4},
		{" mont-blanc ", 0.4},
		{"Belledonne", 1.0},
		{"Vercors", avalanche.DefaultRisk},
		{"Oisans", avalanche.DefaultRisk},
		{"Chartreuse", avalanche.DefaultRisk},
		{"", avalanche.DefaultRisk},
	}

	for _, tt := range tests {
		t.Run(tt.massif, func(t *testing.T) {
			risk := table.Risk(tt.massif)
			assert.InDelta(t, tt.expected, risk, 1e-9)
			assert.GreaterOrEqual(t, risk, 0.0)
			assert.LessOrEqual(t, risk, 1.0)
		})
	}
}

func TestTable_KeepsLatestBulletin(t *testing.T) {
	day := time.Date(2026, 2, 10, 16, 0, 0, 0, time.UTC)
	table := avalanche.NewTable([]avalanche.Bulletin{
		{Massif: "Aravis", Level: 4, ValidAt: day},
		{Massif: "ARAVIS", Level: 2, ValidAt: day.AddDate(0, 0, -1)},
	})

	b, ok := table.Lookup("aravis")
	require.True(t, ok)
	assert.Equal(t, 4, b.Level)
	assert.Equal(t, "ARAVIS", b.Massif)
	assert.Equal(t, 1, table.Len())
}

func TestTable_Bulletins_Sorted(t *testing.T) {
	table := avalanche.NewTable([]avalanche.Bulletin{
		{Massif: "Vanoise", Level: 3},
		{Massif: "Aravis", Level: 2},
		{Massif: "  ", Level: 2},
	})

	bulletins := table.Bulletins()
	require.Len(t, bulletins, 2)
	assert.Equal(t, "ARAVIS", bulletins[0].Massif)
	assert.Equal(t, "VANOISE", bulletins[1].Massif)
}

func TestTable_NilIsEmpty(t *testing.T) {
	var table *avalanche.Table
	assert.InDelta(t, avalanche.DefaultRisk, table.Risk("Aravis"), 1e-9)
	assert.Equal(t, 0, table.Len())
}
