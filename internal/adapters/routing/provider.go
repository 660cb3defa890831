// Package routing selects the DirectionsProvider a binary routes with.
package routing

import (
	"log/slog"
	"time"

	"github.com/samirrijal/wanderplan/internal/adapters/directions"
	"github.com/samirrijal/wanderplan/internal/adapters/estimate"
	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/pkg/config"
)

// NewProvider returns the offline estimator for the estimate provider and
// the Google Directions client otherwise.
func NewProvider(cfg *config.Config) ports.DirectionsProvider {
	if cfg.Routing.Provider == config.ProviderEstimate {
		slog.Warn("using offline travel time estimates")
		return estimate.NewProvider()
	}
	return directions.NewClient(cfg.Directions.APIKey,
		directions.WithBaseURL(cfg.Directions.BaseURL),
		directions.WithTimeout(time.Duration(cfg.Directions.Timeout)*time.Second),
		directions.WithRateLimit(cfg.Directions.RateLimit),
	)
}
