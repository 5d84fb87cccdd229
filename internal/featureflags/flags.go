// Package featureflags provides runtime switches for the scoring service.
package featureflags

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisableMLModel forces the physical winter score even when a model is loaded.
	FlagDisableMLModel = "disable_ml_model"

	// FlagWeatherNeighbors is the number of grid points blended per location.
	// It takes effect on the next dataset reload.
	FlagWeatherNeighbors = "weather_neighbors"

	// FlagScoringConcurrency is the number of scoring workers per batch.
	FlagScoringConcurrency = "scoring_concurrency"

	// FlagWarmDays is how many upcoming dates the warm job precomputes.
	FlagWarmDays = "warm_days"
)

// Validation errors.
var (
	ErrUnknownFlag      = errors.New("unknown feature flag")
	ErrInvalidFlagValue = errors.New("invalid feature flag value")
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// IntValue returns the flag value as an integer.
// Returns the default value if the flag is nil or not a number.
func (f *Flag) IntValue(defaultValue int) int {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		return defaultValue
	default:
		return defaultValue
	}
}

// intRange bounds integer flags.
type intRange struct{ min, max int }

var intFlags = map[string]intRange{
	FlagWeatherNeighbors:   {3, 5},
	FlagScoringConcurrency: {1, 64},
	FlagWarmDays:           {0, 14},
}

// Validate checks that an update targets a known flag with a usable value.
func Validate(u FlagUpdate) error {
	switch u.Key {
	case FlagDisableMLModel:
		if _, ok := u.Value.(bool); !ok {
			return fmt.Errorf("%w: %s must be a boolean", ErrInvalidFlagValue, u.Key)
		}
		return nil
	}

	rng, ok := intFlags[u.Key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, u.Key)
	}

	var n float64
	switch v := u.Value.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	default:
		return fmt.Errorf("%w: %s must be a number", ErrInvalidFlagValue, u.Key)
	}
	if n != float64(int(n)) || int(n) < rng.min || int(n) > rng.max {
		return fmt.Errorf("%w: %s must be an integer in %d..%d", ErrInvalidFlagValue, u.Key, rng.min, rng.max)
	}
	return nil
}

// DefaultFlags returns the default feature flags for the application.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagDisableMLModel: {
			Key:       FlagDisableMLModel,
			Value:     false,
			UpdatedAt: now,
		},
		FlagWeatherNeighbors: {
			Key:       FlagWeatherNeighbors,
			Value:     4,
			UpdatedAt: now,
		},
		FlagScoringConcurrency: {
			Key:       FlagScoringConcurrency,
			Value:     4,
			UpdatedAt: now,
		},
		FlagWarmDays: {
			Key:       FlagWarmDays,
			Value:     3,
			UpdatedAt: now,
		},
	}
}
