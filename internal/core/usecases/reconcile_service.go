package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/pkg/logging"
)

// ReconcileService replaces a draft's duration estimate with routed figures.
type ReconcileService struct {
	routes *RoutingService
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(routes *RoutingService) *ReconcileService {
	return &ReconcileService{routes: routes}
}

// BuildRouteQuery derives the route points for it. The route always starts
// at the starting location; when returning to start every spot is a
// waypoint, otherwise the last spot is the destination. Spot order is kept.
func BuildRouteQuery(it *domain.Itinerary, req domain.PlanRequest) (domain.RouteQuery, error) {
	if it == nil {
		return domain.RouteQuery{}, domain.ErrNothingToPlan
	}
	if len(it.Spots) == 0 {
		return domain.RouteQuery{}, domain.ErrNoSpots
	}

	q := domain.RouteQuery{
		Origin: req.StartingLocation,
		Mode:   req.Transportation,
	}
	if req.ReturnToStart {
		q.Destination = req.StartingLocation
		q.Waypoints = make([]domain.GeoPoint, 0, len(it.Spots))
		for _, s := range it.Spots {
			q.Waypoints = append(q.Waypoints, s.Location)
		}
		return q, nil
	}

	last := len(it.Spots) - 1
	q.Destination = it.Spots[last].Location
	q.Waypoints = make([]domain.GeoPoint, 0, last)
	for _, s := range it.Spots[:last] {
		q.Waypoints = append(q.Waypoints, s.Location)
	}
	return q, nil
}

// Reconcile routes it and returns a copy whose TotalDuration is the sum of
// stays plus routed travel time.
func (s *ReconcileService) Reconcile(ctx context.Context, it *domain.Itinerary, req domain.PlanRequest) (*domain.Itinerary, *domain.RouteResult, error) {
	q, err := BuildRouteQuery(it, req)
	if err != nil {
		return nil, nil, err
	}

	route, err := s.routes.Route(ctx, q)
	if err != nil {
		return nil, nil, fmt.Errorf("route %d spots: %w", len(it.Spots), err)
	}

	out := it.Clone()
	out.TotalDuration = out.StayMinutes() + route.TotalDurationMinutes

	logging.FromContext(ctx).Info("route reconciled",
		slog.Int("spots", len(it.Spots)),
		slog.Int("waypoints", len(q.Waypoints)),
		slog.Int("estimated_duration", it.TotalDuration),
		slog.Int("routed_duration", out.TotalDuration),
		slog.Int("travel_minutes", route.TotalDurationMinutes),
	)
	return out, route, nil
}
