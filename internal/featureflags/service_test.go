package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skitourlive/skitourlive/internal/featureflags"
)

func newService(repo featureflags.Repository, clock clockwork.Clock) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
		Clock:      clock,
	})
}

func TestService_Defaults(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository(), nil)
	ctx := context.Background()

	assert.False(t, svc.IsMLModelDisabled(ctx))
	assert.Equal(t, 4, svc.WeatherNeighbors(ctx))
	assert.Equal(t, 4, svc.ScoringConcurrency(ctx))
	assert.Equal(t, 3, svc.WarmDays(ctx))
}

func TestService_NilServiceUsesDefaults(t *testing.T) {
	var svc *featureflags.Service
	ctx := context.Background()

	assert.False(t, svc.IsMLModelDisabled(ctx))
	assert.Equal(t, 4, svc.ScoringConcurrency(ctx))
	assert.Len(t, svc.GetAllFlags(ctx), 4)
}

func TestService_ApplyUpdates(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc := newService(repo, nil)
	ctx := context.Background()

	flags, err := svc.ApplyUpdates(ctx, featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{
			{Key: featureflags.FlagDisableMLModel, Value: true},
			{Key: featureflags.FlagScoringConcurrency, Value: float64(8)},
		},
		Reason: "model drift investigation",
	})
	require.NoError(t, err)
	assert.Len(t, flags, 2)

	assert.True(t, svc.IsMLModelDisabled(ctx))
	assert.Equal(t, 8, svc.ScoringConcurrency(ctx))

	stored, err := repo.GetFlag(ctx, featureflags.FlagDisableMLModel)
	require.NoError(t, err)
	assert.Equal(t, true, stored.Value)
	assert.False(t, stored.UpdatedAt.IsZero())
}

func TestService_ApplyUpdates_RejectsWholeBatch(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc := newService(repo, nil)
	ctx := context.Background()

	_, err := svc.ApplyUpdates(ctx, featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{
			{Key: featureflags.FlagDisableMLModel, Value: true},
			{Key: featureflags.FlagWeatherNeighbors, Value: float64(9)},
		},
	})
	assert.ErrorIs(t, err, featureflags.ErrInvalidFlagValue)

	all, err := repo.GetAllFlags(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		update  featureflags.FlagUpdate
		wantErr error
	}{
		{"bool ok", featureflags.FlagUpdate{Key: featureflags.FlagDisableMLModel, Value: false}, nil},
		{"bool wrong type", featureflags.FlagUpdate{Key: featureflags.FlagDisableMLModel, Value: "yes"}, featureflags.ErrInvalidFlagValue},
		{"neighbors in range", featureflags.FlagUpdate{Key: featureflags.FlagWeatherNeighbors, Value: float64(5)}, nil},
		{"neighbors too low", featureflags.FlagUpdate{Key: featureflags.FlagWeatherNeighbors, Value: float64(2)}, featureflags.ErrInvalidFlagValue},
		{"fractional", featureflags.FlagUpdate{Key: featureflags.FlagScoringConcurrency, Value: 2.5}, featureflags.ErrInvalidFlagValue},
		{"int value", featureflags.FlagUpdate{Key: featureflags.FlagWarmDays, Value: 0}, nil},
		{"unknown key", featureflags.FlagUpdate{Key: "enable_time_travel", Value: true}, featureflags.ErrUnknownFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := featureflags.Validate(tt.update)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// countingRepository counts GetFlag calls to observe caching.
type countingRepository struct {
	*featureflags.InMemoryRepository
	gets int
	fail bool
}

func (r *countingRepository) GetFlag(ctx context.Context, key string) (*featureflags.Flag, error) {
	r.gets++
	if r.fail {
		return nil, errors.New("database unavailable")
	}
	return r.InMemoryRepository.GetFlag(ctx, key)
}

func TestService_CacheExpiresWithClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &countingRepository{InMemoryRepository: featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
		featureflags.FlagScoringConcurrency: {Key: featureflags.FlagScoringConcurrency, Value: float64(6)},
	})}
	svc := newService(repo, clock)
	ctx := context.Background()

	assert.Equal(t, 6, svc.ScoringConcurrency(ctx))
	assert.Equal(t, 6, svc.ScoringConcurrency(ctx))
	assert.Equal(t, 1, repo.gets)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 6, svc.ScoringConcurrency(ctx))
	assert.Equal(t, 2, repo.gets)

	svc.InvalidateCache()
	assert.Equal(t, 6, svc.ScoringConcurrency(ctx))
	assert.Equal(t, 3, repo.gets)
}

func TestService_RepositoryErrorFallsBackToDefault(t *testing.T) {
	repo := &countingRepository{InMemoryRepository: featureflags.NewInMemoryRepository(), fail: true}
	svc := newService(repo, nil)

	assert.Equal(t, 4, svc.WeatherNeighbors(context.Background()))
}

func TestService_GetAllFlagsMergesDefaults(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
		featureflags.FlagWarmDays: {Key: featureflags.FlagWarmDays, Value: float64(7)},
	})
	svc := newService(repo, nil)

	all := svc.GetAllFlags(context.Background())
	require.Len(t, all, 4)
	assert.Equal(t, 7, all[featureflags.FlagWarmDays].IntValue(0))
	assert.Equal(t, false, all[featureflags.FlagDisableMLModel].Value)
}

func TestFlag_ValueHelpers(t *testing.T) {
	var nilFlag *featureflags.Flag
	assert.True(t, nilFlag.BoolValue(true))
	assert.Equal(t, 9, nilFlag.IntValue(9))

	assert.True(t, (&featureflags.Flag{Value: float64(1)}).BoolValue(false))
	assert.False(t, (&featureflags.Flag{Value: "x"}).BoolValue(false))
	assert.Equal(t, 3, (&featureflags.Flag{Value: float64(3)}).IntValue(0))
	assert.Equal(t, 0, (&featureflags.Flag{Value: "3"}).IntValue(0))
}

func TestService_ResetFlag(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc := featureflags.NewService(featureflags.ServiceConfig{Repository: repo, Logger: zerolog.Nop()})
	ctx := context.Background()

	_, err := svc.ApplyUpdates(ctx, featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{{Key: featureflags.FlagWarmDays, Value: float64(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, svc.WarmDays(ctx))

	flag, err := svc.ResetFlag(ctx, featureflags.FlagWarmDays)
	require.NoError(t, err)
	assert.Equal(t, 3, flag.IntValue(0))
	assert.Equal(t, 3, svc.WarmDays(ctx))

	_, err = repo.GetFlag(ctx, featureflags.FlagWarmDays)
	assert.ErrorIs(t, err, featureflags.ErrFlagNotFound)

	_, err = svc.ResetFlag(ctx, featureflags.FlagWarmDays)
	assert.ErrorIs(t, err, featureflags.ErrFlagNotFound)

	_, err = svc.ResetFlag(ctx, "nope")
	assert.ErrorIs(t, err, featureflags.ErrUnknownFlag)
}
