package usecases

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/samirrijal/wanderplan/internal/core/domain"
)

// draftPayload mirrors the JSON object the drafting service is asked for.
// Numbers are floats because models happily emit 45.0 for a stay.
// A stay is capped at one day and a total at one week.
type draftPayload struct {
	Title         string      `json:"title"`
	Spots         []draftSpot `json:"spots" validate:"required,min=1,dive"`
	TotalDuration *float64    `json:"totalDuration" validate:"omitempty,lte=10080"`
}

type draftSpot struct {
	Name         string         `json:"name" validate:"required"`
	Description  string         `json:"description"`
	StayDuration *float64       `json:"stayDuration" validate:"omitempty,gte=0,lte=1440"`
	Location     *draftLocation `json:"location" validate:"required"`
	Address      string         `json:"address"`
	PlaceID      string         `json:"placeId"`
}

type draftLocation struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

var draftValidator = validator.New()

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// NormalizeDraft parses the drafting service's raw text into an itinerary.
// Any error wraps domain.ErrEmptyDraft or domain.ErrMalformed.
func NormalizeDraft(raw string) (*domain.Itinerary, error) {
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return nil, domain.ErrEmptyDraft
	}

	var p draftPayload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	if err := draftValidator.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}

	it := &domain.Itinerary{
		Title: strings.TrimSpace(p.Title),
		Spots: make([]domain.Spot, 0, len(p.Spots)),
	}
	if p.TotalDuration != nil {
		it.TotalDuration = roundMinutes(*p.TotalDuration)
	}
	for _, s := range p.Spots {
		spot := domain.Spot{
			Name:        strings.TrimSpace(s.Name),
			Description: s.Description,
			Location:    domain.GeoPoint{Lat: *s.Location.Lat, Lng: *s.Location.Lng},
			Address:     s.Address,
			PlaceID:     s.PlaceID,
		}
		if s.StayDuration != nil {
			spot.StayDuration = roundMinutes(*s.StayDuration)
		}
		it.Spots = append(it.Spots, spot)
	}
	return it, nil
}

// AttachPlaceRefs copies grounding place ids onto spots whose name contains,
// or is contained in, a reference title. Matching is case-sensitive and the
// first reference in order wins. It is a heuristic: short or generic names
// can pick up the wrong place.
func AttachPlaceRefs(spots []domain.Spot, refs []domain.PlaceRef) int {
	matched := 0
	for i := range spots {
		name := spots[i].Name
		if name == "" {
			continue
		}
		for _, ref := range refs {
			if ref.Title == "" || ref.PlaceID == "" {
				continue
			}
			if strings.Contains(name, ref.Title) || strings.Contains(ref.Title, name) {
				spots[i].PlaceID = ref.PlaceID
				matched++
				break
			}
		}
	}
	return matched
}

func roundMinutes(v float64) int {
	if v < 0 {
		return 0
	}
	return int(math.Round(v))
}
