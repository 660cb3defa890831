// Package estimate routes without a network call, from straight-line
// distance and a per-mode travel speed.
package estimate

import (
	"context"
	"math"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/pkg/geospatial"
)

// DetourFactor stretches straight-line distance towards street distance.
const DetourFactor = 1.3

// Speeds in meters per minute.
var speeds = map[domain.TransportMode]float64{
	domain.ModeWalk:    80,
	domain.ModeBicycle: 250,
	domain.ModeCar:     500,
}

// Provider implements ports.DirectionsProvider.
type Provider struct{}

func NewProvider() *Provider { return &Provider{} }

// Directions estimates one leg per hop of q. Leg polylines are the straight
// segment between the two points.
func (p *Provider) Directions(ctx context.Context, q domain.RouteQuery) (*domain.RouteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	speed, ok := speeds[q.Mode]
	if !ok {
		speed = speeds[domain.ModeCar]
	}

	points := make([]domain.GeoPoint, 0, len(q.Waypoints)+2)
	points = append(points, q.Origin)
	points = append(points, q.Waypoints...)
	points = append(points, q.Destination)

	res := &domain.RouteResult{Legs: make([]domain.TravelLeg, 0, len(points)-1)}
	line := make([]geospatial.Point, 0, len(points))
	for i := 0; i < len(points)-1; i++ {
		from, to := points[i], points[i+1]
		meters := geospatial.Haversine(from.Lat, from.Lng, to.Lat, to.Lng) * DetourFactor
		minutes := int(math.Round(meters / speed))
		leg := domain.TravelLeg{
			StartAddress:    from.String(),
			EndAddress:      to.String(),
			DistanceMeters:  int(math.Round(meters)),
			DurationMinutes: minutes,
			Polyline: geospatial.EncodePolyline([]geospatial.Point{
				{Lat: from.Lat, Lng: from.Lng},
				{Lat: to.Lat, Lng: to.Lng},
			}),
		}
		res.Legs = append(res.Legs, leg)
		res.TotalDistanceMeters += leg.DistanceMeters
		res.TotalDurationMinutes += minutes
	}
	for _, pt := range points {
		line = append(line, geospatial.Point{Lat: pt.Lat, Lng: pt.Lng})
	}
	res.OverviewPolyline = geospatial.EncodePolyline(line)
	return res, nil
}
