package estimate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/wanderplan/internal/adapters/estimate"
	"github.com/samirrijal/wanderplan/internal/core/domain"
)

var (
	hakata = domain.GeoPoint{Lat: 33.5897, Lng: 130.4207}
	tenjin = domain.GeoPoint{Lat: 33.5911, Lng: 130.3989}
)

func TestDirections_LegCount(t *testing.T) {
	p := estimate.NewProvider()
	res, err := p.Directions(context.Background(), domain.RouteQuery{
		Origin:      hakata,
		Destination: hakata,
		Waypoints:   []domain.GeoPoint{tenjin, {Lat: 33.58, Lng: 130.38}},
		Mode:        domain.ModeWalk,
	})
	require.NoError(t, err)
	assert.Len(t, res.Legs, 3)
	assert.NotEmpty(t, res.OverviewPolyline)

	sum := 0
	for _, l := range res.Legs {
		sum += l.DurationMinutes
	}
	assert.Equal(t, sum, res.TotalDurationMinutes)
}

func TestDirections_ModeSpeeds(t *testing.T) {
	p := estimate.NewProvider()
	q := domain.RouteQuery{Origin: hakata, Destination: tenjin}

	minutes := map[domain.TransportMode]int{}
	for _, mode := range []domain.TransportMode{domain.ModeWalk, domain.ModeBicycle, domain.ModeCar} {
		q.Mode = mode
		res, err := p.Directions(context.Background(), q)
		require.NoError(t, err)
		minutes[mode] = res.TotalDurationMinutes
	}

	// ~2 km straight line × 1.3 ≈ 2.6 km
	assert.InDelta(t, 33, minutes[domain.ModeWalk], 2)
	assert.Greater(t, minutes[domain.ModeWalk], minutes[domain.ModeBicycle])
	assert.GreaterOrEqual(t, minutes[domain.ModeBicycle], minutes[domain.ModeCar])
}

func TestDirections_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := estimate.NewProvider().Directions(ctx, domain.RouteQuery{Origin: hakata, Destination: tenjin})
	assert.ErrorIs(t, err, context.Canceled)
}
