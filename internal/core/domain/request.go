package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TransportMode is how the traveller moves between spots.
type TransportMode string

const (
	ModeWalk    TransportMode = "walk"
	ModeBicycle TransportMode = "bicycle"
	ModeCar     TransportMode = "car"
)

// MinDurationLimit is the shortest time budget a plan may ask for, in minutes.
const MinDurationLimit = 30

// TravelMode maps the mode onto the routing provider's vocabulary.
func (m TransportMode) TravelMode() string {
	switch m {
	case ModeWalk:
		return "walking"
	case ModeBicycle:
		return "bicycling"
	default:
		return "driving"
	}
}

// PlanRequest is the immutable input of one planning run.
type PlanRequest struct {
	Query            string        `json:"query" validate:"required,max=500"`
	Transportation   TransportMode `json:"transportation" validate:"required,oneof=walk bicycle car"`
	DurationLimit    int           `json:"duration" validate:"gte=30"`
	StartingLocation GeoPoint      `json:"startingLocation"`
	ReturnToStart    bool          `json:"returnToStart"`
}

var validate = validator.New()

// Validate checks field constraints and reports every violation at once.
func (r PlanRequest) Validate() error {
	var problems []string
	if err := validate.Struct(r); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				problems = append(problems, describeField(fe))
			}
		} else {
			return NewPlanError(KindInput, "", err)
		}
	}
	if r.Query != "" && strings.TrimSpace(r.Query) == "" {
		problems = append(problems, "query is required")
	}
	if !r.StartingLocation.Valid() {
		problems = append(problems, "startingLocation must be a valid lat/lng")
	}
	if len(problems) > 0 {
		return NewPlanError(KindInput, "", fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.StructField() {
	case "Query":
		field = "query"
	case "Transportation":
		field = "transportation"
	case "DurationLimit":
		field = "duration"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "gte":
		return fmt.Sprintf("%s must be at least %s minutes", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long (max %s characters)", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
