package recon

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-erp/meridian/internal/shared"
)

const defaultProviderTimeout = 5 * time.Second

// Service computes the reconciliation health projection for periods.
// Concurrent requests for the same period collapse into one provider call.
type Service struct {
	provider Provider
	config   Thresholds
	timeout  time.Duration
	cache    *Cache
	group    singleflight.Group
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithCache enables Redis-backed caching of computed projections.
func WithCache(cache *Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithTimeout bounds the provider call; exceeded deadlines surface as
// DependencyUnavailable rather than hanging the caller.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewService constructs the aggregator over a counts provider.
func NewService(provider Provider, thresholds Thresholds, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		config:   thresholds,
		timeout:  defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StatusForPeriod returns the reconciliation projection for a period.
func (s *Service) StatusForPeriod(ctx context.Context, tenantID, periodID int64) (Status, error) {
	if s.provider == nil {
		return Status{}, shared.NewDependencyUnavailable("reconciliation data provider", nil)
	}
	key := fmt.Sprintf("recon:status:%d:%d", tenantID, periodID)
	var status Status
	if s.cache != nil {
		err := s.cache.FetchJSON(ctx, key, &status, func(ctx context.Context) (any, error) {
			return s.compute(ctx, key, tenantID, periodID)
		})
		return status, err
	}
	computed, err := s.compute(ctx, key, tenantID, periodID)
	if err != nil {
		return Status{}, err
	}
	return computed, nil
}

// Invalidate expires cached projections after upstream match data changes.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

func (s *Service) compute(ctx context.Context, key string, tenantID, periodID int64) (Status, error) {
	result, err, _ := s.group.Do(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		counts, err := s.provider.Counts(callCtx, tenantID, periodID)
		if err != nil {
			return Status{}, shared.NewDependencyUnavailable("reconciliation data provider", err)
		}
		return Compute(counts, s.config), nil
	})
	if err != nil {
		return Status{}, err
	}
	return result.(Status), nil
}
