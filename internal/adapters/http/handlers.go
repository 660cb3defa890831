package http

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/samirrijal/wanderplan/internal/core/domain"
)

type geoPointBody struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

// planRequestBody mirrors domain.PlanRequest with every field required.
// Pointers tell a missing field apart from a zero value.
type planRequestBody struct {
	Query            *string       `json:"query" validate:"required"`
	Transportation   *string       `json:"transportation" validate:"required"`
	Duration         *float64      `json:"duration" validate:"required"`
	ReturnToStart    *bool         `json:"returnToStart" validate:"required"`
	StartingLocation *geoPointBody `json:"startingLocation" validate:"required"`
}

var bodyValidator = newBodyValidator()

func newBodyValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// problems lists every missing field by its JSON path.
func (b *planRequestBody) problems() []string {
	err := bodyValidator.Struct(b)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		out = append(out, path+" is required")
	}
	return out
}

func (b *planRequestBody) toDomain() domain.PlanRequest {
	return domain.PlanRequest{
		Query:          *b.Query,
		Transportation: domain.TransportMode(*b.Transportation),
		DurationLimit:  durationMinutes(*b.Duration),
		ReturnToStart:  *b.ReturnToStart,
		StartingLocation: domain.GeoPoint{
			Lat: *b.StartingLocation.Lat,
			Lng: *b.StartingLocation.Lng,
		},
	}
}

// durationMinutes truncates a fractional budget, so anything below 30 stays
// below the minimum.
func durationMinutes(v float64) int {
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(v))
}

// CreatePlanHandler runs one planning workflow and returns the accepted plan.
// A plan over its time budget is still a success, flagged with isOverTime.
func CreatePlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body planRequestBody
		if err := c.BodyParser(&body); err != nil {
			return errValidation(c, "invalid JSON body", err.Error())
		}
		if problems := body.problems(); len(problems) > 0 {
			return errValidation(c, "invalid plan request", problems...)
		}

		ctx := c.UserContext()
		if deps.PlanTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deps.PlanTimeout)
			defer cancel()
		}

		result, err := deps.Planner.Run(ctx, body.toDomain())
		if err != nil {
			LoggerFromCtx(ctx).Warn("plan failed",
				"kind", domain.KindOf(err),
				"error", err,
			)
			return errFromPlan(c, err)
		}
		return c.JSON(result)
	}
}

// ListRunsHandler returns the run audit trail, newest first.
func ListRunsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Runs == nil {
			return errUnavailable(c, "run history is not configured")
		}
		offset, limit, err := parsePaging(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		runs, total, limit, err := deps.Runs.List(c.UserContext(), offset, limit)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("list runs", "error", err)
			return errInternal(c, "could not list runs")
		}
		if runs == nil {
			runs = []domain.RunRecord{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: runs, Pagination: pg})
	}
}

// GetRunHandler returns one run by id.
func GetRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Runs == nil {
			return errUnavailable(c, "run history is not configured")
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return errBadRequest(c, "run id must be a UUID")
		}

		run, err := deps.Runs.Get(c.UserContext(), id)
		if errors.Is(err, domain.ErrRunNotFound) {
			return errNotFound(c, "run not found")
		}
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("get run", "run_id", id, "error", err)
			return errInternal(c, "could not load run")
		}
		return c.JSON(run)
	}
}
