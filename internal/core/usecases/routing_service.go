package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/pkg/metrics"
)

// RoutingService resolves route queries against the routing provider,
// reading through the cache when one is configured.
type RoutingService struct {
	provider ports.DirectionsProvider
	cache    ports.CacheService
	ttl      time.Duration
}

// NewRoutingService creates a new RoutingService. cache may be nil.
func NewRoutingService(provider ports.DirectionsProvider, cache ports.CacheService, ttl time.Duration) *RoutingService {
	return &RoutingService{provider: provider, cache: cache, ttl: ttl}
}

// Route returns the travel legs for q, in the order given.
func (s *RoutingService) Route(ctx context.Context, q domain.RouteQuery) (*domain.RouteResult, error) {
	cacheKey := routeCacheKey(q)
	if s.cache != nil && s.ttl > 0 {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var res domain.RouteResult
			if err := json.Unmarshal(data, &res); err == nil && len(res.Legs) == len(q.Waypoints)+1 {
				metrics.CacheHits.WithLabelValues("route").Inc()
				return &res, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("route").Inc()
	}

	res, err := s.provider.Directions(ctx, q)
	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues("routing").Inc()
		return nil, err
	}
	if len(res.Legs) != len(q.Waypoints)+1 {
		metrics.CollaboratorErrors.WithLabelValues("routing").Inc()
		return nil, fmt.Errorf("%w: got %d legs for %d waypoints", domain.ErrLegMismatch, len(res.Legs), len(q.Waypoints))
	}

	if s.cache != nil && s.ttl > 0 {
		if data, err := json.Marshal(res); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, int(s.ttl.Seconds()))
		}
	}
	return res, nil
}

func routeCacheKey(q domain.RouteQuery) string {
	parts := make([]string, 0, len(q.Waypoints)+3)
	parts = append(parts, string(q.Mode), q.Origin.String())
	for _, w := range q.Waypoints {
		parts = append(parts, w.String())
	}
	parts = append(parts, q.Destination.String())
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "routes:" + hex.EncodeToString(h[:16])
}
