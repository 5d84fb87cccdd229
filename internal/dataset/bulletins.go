package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/avalanche"
)

// rawBulletin is one entry of the scraped bulletin file. Risk levels come
// through as numbers, numeric strings, or null.
type rawBulletin struct {
	Massif       string          `json:"massif"`
	RisqueActuel json.RawMessage `json:"risque_actuel"`
	RisqueJ2     json.RawMessage `json:"risque_j2"`
	DateValidite string          `json:"date_validite"`
	Resume       string          `json:"resume"`
}

// ReadBulletinsJSON parses an array of avalanche bulletins. Entries without
// a massif are skipped; unreadable levels are kept as "no level".
func ReadBulletinsJSON(r io.Reader, logger zerolog.Logger) ([]avalanche.Bulletin, int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("reading bulletins: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, 0, nil
	}

	var raw []rawBulletin
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decoding bulletins: %w", err)
	}

	out := make([]avalanche.Bulletin, 0, len(raw))
	skipped := 0
	for i, rb := range raw {
		if strings.TrimSpace(rb.Massif) == "" {
			logger.Warn().Int("entry", i).Msg("skipping bulletin without massif")
			skipped++
			continue
		}

		b := avalanche.Bulletin{
			Massif:  rb.Massif,
			Summary: strings.TrimSpace(rb.Resume),
		}
		if b.Level, err = parseLevel(rb.RisqueActuel); err != nil {
			logger.Warn().Str("massif", rb.Massif).Err(err).Msg("ignoring unreadable bulletin level")
		}
		if b.NextDayLevel, err = parseLevel(rb.RisqueJ2); err != nil {
			logger.Debug().Str("massif", rb.Massif).Err(err).Msg("ignoring unreadable next-day level")
		}
		if rb.DateValidite != "" {
			if t, err := parseTime(strings.TrimSpace(rb.DateValidite)); err == nil {
				b.ValidAt = t
			} else {
				logger.Debug().Str("massif", rb.Massif).Str("date_validite", rb.DateValidite).Msg("unparsed bulletin validity date")
			}
		}
		out = append(out, b)
	}

	return out, skipped, nil
}

// parseLevel returns 0 for absent levels and rejects anything outside 1..5.
func parseLevel(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("level %q is not numeric", s)
	}
	lvl := int(f)
	if float64(lvl) != f || lvl < 1 || lvl > avalanche.MaxLevel {
		return 0, fmt.Errorf("level %q out of range", s)
	}
	return lvl, nil
}

// bulletinFromRow builds a bulletin from nullable database columns.
func bulletinFromRow(massif string, level, next *int, validAt *time.Time, summary string) avalanche.Bulletin {
	b := avalanche.Bulletin{Massif: massif, Summary: summary}
	if level != nil && *level >= 1 && *level <= avalanche.MaxLevel {
		b.Level = *level
	}
	if next != nil && *next >= 1 && *next <= avalanche.MaxLevel {
		b.NextDayLevel = *next
	}
	if validAt != nil {
		b.ValidAt = *validAt
	}
	return b
}
