package domain

import "time"

// Spot is a single place to visit with a planned stay.
type Spot struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	StayDuration int      `json:"stayDuration"` // minutes
	Location     GeoPoint `json:"location"`
	Address      string   `json:"address"`
	PlaceID      string   `json:"placeId,omitempty"`
}

// Itinerary is an ordered travel plan.
// TotalDuration is the drafted estimate until the route is reconciled, after
// which it is stay time plus routed travel time.
type Itinerary struct {
	Title         string `json:"title"`
	Spots         []Spot `json:"spots"`
	TotalDuration int    `json:"totalDuration"` // minutes
}

// StayMinutes sums the planned stay at every spot.
func (it *Itinerary) StayMinutes() int {
	total := 0
	for _, s := range it.Spots {
		total += s.StayDuration
	}
	return total
}

// Clone returns a copy that shares no slices with the receiver.
func (it *Itinerary) Clone() *Itinerary {
	if it == nil {
		return nil
	}
	cp := *it
	cp.Spots = append([]Spot(nil), it.Spots...)
	return &cp
}

// TravelLeg is the routed segment between two consecutive route points.
type TravelLeg struct {
	StartAddress    string `json:"startAddress"`
	EndAddress      string `json:"endAddress"`
	DistanceMeters  int    `json:"distanceMeters"`
	DurationMinutes int    `json:"durationMinutes"`
	Polyline        string `json:"polyline"`
}

// RouteResult is the routing provider's answer for a full itinerary.
type RouteResult struct {
	TotalDistanceMeters  int         `json:"totalDistanceMeters"`
	TotalDurationMinutes int         `json:"totalDurationMinutes"`
	OverviewPolyline     string      `json:"overviewPolyline"`
	Legs                 []TravelLeg `json:"legs"`
}

// RouteQuery is the ordered set of points handed to a routing provider.
type RouteQuery struct {
	Origin      GeoPoint
	Destination GeoPoint
	Waypoints   []GeoPoint
	Mode        TransportMode
}

// PlaceRef is a grounding candidate returned alongside a draft.
type PlaceRef struct {
	Title   string `json:"title"`
	PlaceID string `json:"placeId"`
}

// PlanResult is what a finished run reports to its caller.
type PlanResult struct {
	RunID       string       `json:"runId"`
	Plan        *Itinerary   `json:"plan"`
	RouteResult *RouteResult `json:"routeResult"`
	IsOverTime  bool         `json:"isOverTime"`
	Attempts    int          `json:"attempts"`
}

// RunStatus is the terminal status recorded for a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the audit entry kept for a run. It carries run metadata only,
// never the itinerary itself.
type RunRecord struct {
	ID             string        `json:"id"`
	Query          string        `json:"query"`
	Transportation TransportMode `json:"transportation"`
	DurationLimit  int           `json:"durationLimit"`
	ReturnToStart  bool          `json:"returnToStart"`
	Status         RunStatus     `json:"status"`
	ErrorKind      ErrorKind     `json:"errorKind,omitempty"`
	Attempts       int           `json:"attempts"`
	RetryCount     int           `json:"retryCount"`
	TotalDuration  int           `json:"totalDuration,omitempty"`
	OverBudget     bool          `json:"overBudget"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     *time.Time    `json:"finishedAt,omitempty"`
}
