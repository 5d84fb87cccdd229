package featureflags

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository   Repository
	Logger       zerolog.Logger
	CacheTTL     time.Duration // How long to cache flags in memory
	DefaultFlags map[string]*Flag
	Clock        clockwork.Clock
}

// Service provides feature flag evaluation with caching and fallback.
// A nil *Service answers every flag with its default.
type Service struct {
	repo         Repository
	logger       zerolog.Logger
	cacheTTL     time.Duration
	defaultFlags map[string]*Flag
	clock        clockwork.Clock

	mu          sync.RWMutex
	cache       map[string]*Flag
	cacheExpiry time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute
	}

	defaultFlags := cfg.DefaultFlags
	if defaultFlags == nil {
		defaultFlags = DefaultFlags()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		repo:         cfg.Repository,
		logger:       cfg.Logger,
		cacheTTL:     cacheTTL,
		defaultFlags: defaultFlags,
		clock:        clock,
		cache:        make(map[string]*Flag),
	}
}

// GetFlag retrieves a feature flag by key.
// Uses cached value if available and not expired, with fallback to defaults.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if s == nil {
		return DefaultFlags()[key]
	}

	if flag := s.getCached(key); flag != nil {
		return flag
	}

	if s.repo != nil {
		flag, err := s.repo.GetFlag(ctx, key)
		if err == nil {
			s.setCached(key, flag)
			return flag
		}
		if !errors.Is(err, ErrFlagNotFound) {
			s.logger.Warn().Err(err).Str("flag", key).Msg("failed to get feature flag from repository")
		}
	}

	if defaultFlag, ok := s.defaultFlags[key]; ok {
		return defaultFlag
	}
	return nil
}

// GetAllFlags retrieves all feature flags, repository values merged over defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	if s == nil {
		return DefaultFlags()
	}

	result := make(map[string]*Flag, len(s.defaultFlags))
	for k, v := range s.defaultFlags {
		result[k] = v
	}
	if s.repo == nil {
		return result
	}

	flags, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to get feature flags from repository, using defaults")
		return result
	}

	for k, v := range flags {
		result[k] = v
	}

	s.mu.Lock()
	s.cache = flags
	s.cacheExpiry = s.clock.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	return result
}

// ApplyUpdates validates every update, then stores them together.
// Nothing is stored if any update is invalid.
func (s *Service) ApplyUpdates(ctx context.Context, req FlagUpdateRequest) ([]*Flag, error) {
	flags := make([]*Flag, 0, len(req.Updates))
	for _, u := range req.Updates {
		if err := Validate(u); err != nil {
			return nil, err
		}
		flags = append(flags, &Flag{Key: u.Key, Value: u.Value})
	}

	if err := s.SetFlags(ctx, flags); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("count", len(flags)).
		Str("reason", req.Reason).
		Msg("feature flags updated")
	return flags, nil
}

// SetFlags updates multiple feature flags atomically.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	if s == nil || s.repo == nil {
		return errors.New("feature flag service has no repository")
	}

	now := s.clock.Now()
	for _, flag := range flags {
		flag.UpdatedAt = now
	}

	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	s.mu.Lock()
	for _, flag := range flags {
		s.cache[flag.Key] = flag
	}
	s.mu.Unlock()

	return nil
}

// ResetFlag drops the stored override for key so it resolves to its default
// again. Unknown keys return ErrUnknownFlag; keys without an override return
// ErrFlagNotFound.
func (s *Service) ResetFlag(ctx context.Context, key string) (*Flag, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("feature flag service has no repository")
	}
	def, ok := s.defaultFlags[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlag, key)
	}

	if err := s.repo.DeleteFlag(ctx, key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	s.logger.Info().Str("key", key).Msg("feature flag reset to default")
	cp := *def
	return &cp, nil
}

// InvalidateCache clears the cached flags, forcing a refresh on next access.
func (s *Service) InvalidateCache() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Flag)
	s.cacheExpiry = time.Time{}
}

func (s *Service) getCached(key string) *Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.clock.Now().After(s.cacheExpiry) {
		return nil
	}
	return s.cache[key]
}

func (s *Service) setCached(key string, flag *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = flag
	if now := s.clock.Now(); s.cacheExpiry.Before(now) {
		s.cacheExpiry = now.Add(s.cacheTTL)
	}
}

// Convenience methods for well-known flags.

// IsMLModelDisabled reports whether winter scores must use the physical rules.
func (s *Service) IsMLModelDisabled(ctx context.Context) bool {
	return s.GetFlag(ctx, FlagDisableMLModel).BoolValue(false)
}

// WeatherNeighbors returns the neighbor count to use on the next reload.
func (s *Service) WeatherNeighbors(ctx context.Context) int {
	return s.GetFlag(ctx, FlagWeatherNeighbors).IntValue(4)
}

// ScoringConcurrency returns the number of scoring workers per batch.
func (s *Service) ScoringConcurrency(ctx context.Context) int {
	return s.GetFlag(ctx, FlagScoringConcurrency).IntValue(4)
}

// WarmDays returns how many upcoming dates the warm job covers.
func (s *Service) WarmDays(ctx context.Context) int {
	return s.GetFlag(ctx, FlagWarmDays).IntValue(3)
}
