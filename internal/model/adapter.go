// Package model adapts an externally trained snow-quality regressor into a
// winter score in [0,1].
package model

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/skitourlive/skitourlive/internal/provider/resilience"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// NeutralScore is returned when the model cannot be used.
const NeutralScore = 0.5

// Post-processing constants.
const (
	boostExponent = 1.5
	powerExponent = 0.65

	// Exceptional winter day thresholds.
	exceptionalSnowfall = 25.0
	exceptionalTempMin  = -6.0
	exceptionalWindMax  = 35.0
)

// Prediction is a post-processed winter score.
type Prediction struct {
	Score float64 `json:"score"`

	// Raw is the unprocessed model output. Zero when unavailable.
	Raw float64 `json:"raw"`

	// Available is false when the neutral score was returned.
	Available bool `json:"available"`

	// Exceptional is set when the exceptional-day lift was applied.
	Exceptional bool `json:"exceptional"`
}

// AdapterConfig holds configuration for the Adapter.
type AdapterConfig struct {
	// Regressor is the trained model. Nil means the model is unavailable.
	Regressor Regressor

	// Massifs is the model's categorical massif list, in training order.
	Massifs []string

	// CircuitBreaker configures the breaker around Predict.
	// If nil, uses DefaultCircuitBreakerConfig("snow-model").
	CircuitBreaker *resilience.CircuitBreakerConfig

	// Logger for adapter operations.
	Logger zerolog.Logger
}

// Adapter turns raw model output into a winter snow score.
type Adapter struct {
	regressor Regressor
	massifs   *MassifEncoder
	breaker   *gobreaker.CircuitBreaker[float64]
	logger    zerolog.Logger
}

// NewAdapter creates a new Adapter.
func NewAdapter(cfg AdapterConfig) *Adapter {
	cbConfig := resilience.DefaultCircuitBreakerConfig("snow-model")
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}

	logger := cfg.Logger
	cbConfig.Logger = logger

	return &Adapter{
		regressor: cfg.Regressor,
		massifs:   NewMassifEncoder(cfg.Massifs),
		breaker:   resilience.NewCircuitBreaker[float64](cbConfig),
		logger:    logger,
	}
}

// Available reports whether a regressor is configured and its breaker is not open.
func (a *Adapter) Available() bool {
	return a != nil && a.regressor != nil && a.breaker.State() != gobreaker.StateOpen
}

// PredictWinterScore runs the model for a route on a date and post-processes
// the output. It never fails: on any model problem the neutral score is
// returned with Available=false.
func (a *Adapter) PredictWinterScore(fv weather.FeatureVector, rc RouteContext, date time.Time) Prediction {
	if a == nil || a.regressor == nil {
		return Prediction{Score: NeutralScore}
	}

	row := NewFeatureRow(fv, rc, date, a.massifs)

	raw, err := a.breaker.Execute(func() (float64, error) {
		out, err := a.regressor.Predict(row.Values())
		if err == nil && (math.IsNaN(out) || math.IsInf(out, 0)) {
			err = ErrInvalidOutput
		}
		return out, err
	})
	if err != nil {
		a.logger.Debug().Err(err).Str("massif", rc.Massif).Msg("snow model prediction failed")
		return Prediction{Score: NeutralScore}
	}

	return Prediction{
		Score:       PostProcess(raw, fv),
		Raw:         raw,
		Available:   true,
		Exceptional: ExceptionalDay(fv),
	}
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (a *Adapter) CircuitBreakerState() gobreaker.State {
	return a.breaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (a *Adapter) CircuitBreakerCounts() gobreaker.Counts {
	return a.breaker.Counts()
}

// PostProcess maps raw model output to [0,1] in a fixed order:
//
//  1. clamp to [-1, 1]
//  2. normalize to [0, 1]
//  3. Boost
//  4. exceptional-day lift: halve the remaining headroom
//  5. raise to 0.65
//
// Steps 3 and 5 both correct the model's low bias on powder days, which are
// under-represented in outing reports because of avalanche risk. The result
// is rounded to 3 decimals.
func PostProcess(raw float64, fv weather.FeatureVector) float64 {
	score := Normalize(raw)
	score = Boost(score)
	if ExceptionalDay(fv) {
		score += 0.5 * (1 - score)
	}
	score = math.Pow(score, powerExponent)
	return math.Round(score*1000) / 1000
}

// Normalize clamps raw to [-1, 1] and maps it to [0, 1].
func Normalize(raw float64) float64 {
	clamped := math.Max(-1, math.Min(1, raw))
	return (clamped + 1) / 2
}

// Boost stretches mid and high scores upward while keeping 0 and 1 fixed.
func Boost(x float64) float64 {
	return 1 - math.Pow(1-x, boostExponent)
}

// ExceptionalDay reports heavy cold snowfall with moderate wind.
func ExceptionalDay(fv weather.FeatureVector) bool {
	return fv.SnowfallSum >= exceptionalSnowfall &&
		fv.TempMinAvg <= exceptionalTempMin &&
		fv.WindMax <= exceptionalWindMax
}
