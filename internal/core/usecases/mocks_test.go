package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
)

// --- Mock TextGenerator ---

type mockGenerator struct {
	mu         sync.Mutex
	prompts    []string
	generateFn func(ctx context.Context, prompt string, call int) (*ports.Generation, error)
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (*ports.Generation, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	call := len(m.prompts)
	m.mu.Unlock()
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt, call)
	}
	return nil, errors.New("no generateFn")
}

func (m *mockGenerator) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// --- Mock DirectionsProvider ---

type mockDirections struct {
	mu           sync.Mutex
	queries      []domain.RouteQuery
	directionsFn func(ctx context.Context, q domain.RouteQuery) (*domain.RouteResult, error)
}

func (m *mockDirections) Directions(ctx context.Context, q domain.RouteQuery) (*domain.RouteResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.directionsFn != nil {
		return m.directionsFn(ctx, q)
	}
	return nil, errors.New("no directionsFn")
}

// legsFor returns a route with one leg per hop, each taking minutesPerLeg.
func legsFor(q domain.RouteQuery, minutesPerLeg int) *domain.RouteResult {
	res := &domain.RouteResult{OverviewPolyline: "_p~iF~ps|U"}
	for i := 0; i < len(q.Waypoints)+1; i++ {
		res.Legs = append(res.Legs, domain.TravelLeg{
			StartAddress:    fmt.Sprintf("stop %d", i),
			EndAddress:      fmt.Sprintf("stop %d", i+1),
			DistanceMeters:  500,
			DurationMinutes: minutesPerLeg,
		})
		res.TotalDistanceMeters += 500
		res.TotalDurationMinutes += minutesPerLeg
	}
	return res
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock RunObserver ---

type mockObserver struct {
	mu     sync.Mutex
	events []ports.RunEvent
	err    error
}

func (m *mockObserver) OnTransition(ctx context.Context, ev ports.RunEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockObserver) stages() []domain.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Stage, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Stage)
	}
	return out
}

// --- Mock RunRecorder ---

type mockRecorder struct {
	mu       sync.Mutex
	started  []domain.RunRecord
	finished []domain.RunRecord
	err      error

	getByIDFn func(ctx context.Context, id string) (*domain.RunRecord, error)
	listFn    func(ctx context.Context, offset, limit int) ([]domain.RunRecord, int, error)
}

func (m *mockRecorder) Start(ctx context.Context, rec *domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, *rec)
	return m.err
}

func (m *mockRecorder) Finish(ctx context.Context, rec *domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, *rec)
	return m.err
}

func (m *mockRecorder) GetByID(ctx context.Context, id string) (*domain.RunRecord, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrRunNotFound
}

func (m *mockRecorder) List(ctx context.Context, offset, limit int) ([]domain.RunRecord, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

// --- Fixtures ---

var hakata = domain.GeoPoint{Lat: 33.5897, Lng: 130.4207}

func validRequest() domain.PlanRequest {
	return domain.PlanRequest{
		Query:            "quiet temples and a good ramen shop",
		Transportation:   domain.ModeWalk,
		DurationLimit:    120,
		StartingLocation: hakata,
		ReturnToStart:    true,
	}
}

// draftJSON renders a drafting answer with one spot per stay.
func draftJSON(title string, stays ...int) string {
	spots := make([]string, 0, len(stays))
	for i, stay := range stays {
		spots = append(spots, fmt.Sprintf(
			`{"name":"Spot %d","description":"d","stayDuration":%d,"location":{"lat":33.59%d,"lng":130.40%d},"address":"Fukuoka"}`,
			i+1, stay, i, i))
	}
	return fmt.Sprintf(`{"title":%q,"spots":[%s],"totalDuration":60}`, title, strings.Join(spots, ","))
}
