// Package directions is a client for the Google Directions JSON API.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/pkg/geospatial"
)

const (
	// DefaultBaseURL is the Directions API endpoint.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/directions/json"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10
)

// Client implements ports.DirectionsProvider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		burst := int(math.Max(1, math.Ceil(requestsPerSecond)))
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// NewClient creates a new Directions API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-200 HTTP answer from the Directions API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directions API error: %s (status %d)", e.Message, e.StatusCode)
}

// Directions routes q in the given waypoint order. Waypoints are never
// reordered by the service.
func (c *Client) Directions(ctx context.Context, q domain.RouteQuery) (*domain.RouteResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("origin", q.Origin.String())
	params.Set("destination", q.Destination.String())
	params.Set("mode", q.Mode.TravelMode())
	if len(q.Waypoints) > 0 {
		points := make([]string, 0, len(q.Waypoints))
		for _, w := range q.Waypoints {
			points = append(points, w.String())
		}
		params.Set("waypoints", strings.Join(points, "|"))
	}
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("directions request",
		"mode", q.Mode.TravelMode(),
		"waypoints", len(q.Waypoints),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var payload directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return toRouteResult(&payload)
}

func toRouteResult(p *directionsResponse) (*domain.RouteResult, error) {
	if p.Status != "OK" {
		if p.ErrorMessage != "" {
			return nil, fmt.Errorf("%w: %s (%s)", domain.ErrRouteStatus, p.Status, p.ErrorMessage)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrRouteStatus, p.Status)
	}
	if len(p.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes in response", domain.ErrRouteStatus)
	}

	route := p.Routes[0]
	res := &domain.RouteResult{
		OverviewPolyline: route.OverviewPolyline.Points,
		Legs:             make([]domain.TravelLeg, 0, len(route.Legs)),
	}
	for _, l := range route.Legs {
		minutes := int(math.Round(float64(l.Duration.Value) / 60))
		leg := domain.TravelLeg{
			StartAddress:    l.StartAddress,
			EndAddress:      l.EndAddress,
			DistanceMeters:  l.Distance.Value,
			DurationMinutes: minutes,
			Polyline:        legPolyline(l.Steps),
		}
		res.Legs = append(res.Legs, leg)
		res.TotalDistanceMeters += l.Distance.Value
		res.TotalDurationMinutes += minutes
	}
	return res, nil
}

// legPolyline stitches the step polylines of a leg into one line. A leg
// whose steps cannot be decoded gets an empty polyline.
func legPolyline(steps []step) string {
	if len(steps) == 0 {
		return ""
	}
	segments := make([]string, 0, len(steps))
	for _, s := range steps {
		segments = append(segments, s.Polyline.Points)
	}
	line, err := geospatial.JoinPolylines(segments...)
	if err != nil {
		slog.Debug("leg polyline skipped", "error", err)
		return ""
	}
	return line
}
