package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/wanderplan/internal/core/domain"
)

// gqlError carries an API error code into the GraphQL "extensions" field.
type gqlError struct {
	err  error
	code string
}

func (e gqlError) Error() string { return e.err.Error() }

func (e gqlError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

// buildSchema creates the GraphQL schema wired to the planner and run history.
// Object fields resolve through the domain types' json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	spotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Spot",
		Fields: graphql.Fields{
			"name":         &graphql.Field{Type: graphql.String},
			"description":  &graphql.Field{Type: graphql.String},
			"stayDuration": &graphql.Field{Type: graphql.Int},
			"location":     &graphql.Field{Type: geoPointType},
			"address":      &graphql.Field{Type: graphql.String},
			"placeId":      &graphql.Field{Type: graphql.String},
		},
	})

	itineraryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Itinerary",
		Fields: graphql.Fields{
			"title":         &graphql.Field{Type: graphql.String},
			"spots":         &graphql.Field{Type: graphql.NewList(spotType)},
			"totalDuration": &graphql.Field{Type: graphql.Int},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TravelLeg",
		Fields: graphql.Fields{
			"startAddress":    &graphql.Field{Type: graphql.String},
			"endAddress":      &graphql.Field{Type: graphql.String},
			"distanceMeters":  &graphql.Field{Type: graphql.Int},
			"durationMinutes": &graphql.Field{Type: graphql.Int},
			"polyline":        &graphql.Field{Type: graphql.String},
		},
	})

	routeResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteResult",
		Fields: graphql.Fields{
			"totalDistanceMeters":  &graphql.Field{Type: graphql.Int},
			"totalDurationMinutes": &graphql.Field{Type: graphql.Int},
			"overviewPolyline":     &graphql.Field{Type: graphql.String},
			"legs":                 &graphql.Field{Type: graphql.NewList(legType)},
		},
	})

	planResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlanResult",
		Fields: graphql.Fields{
			"runId":       &graphql.Field{Type: graphql.String},
			"plan":        &graphql.Field{Type: itineraryType},
			"routeResult": &graphql.Field{Type: routeResultType},
			"isOverTime":  &graphql.Field{Type: graphql.Boolean},
			"attempts":    &graphql.Field{Type: graphql.Int},
		},
	})

	runType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Run",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"query":          &graphql.Field{Type: graphql.String},
			"transportation": &graphql.Field{Type: graphql.String},
			"durationLimit":  &graphql.Field{Type: graphql.Int},
			"returnToStart":  &graphql.Field{Type: graphql.Boolean},
			"status":         &graphql.Field{Type: graphql.String},
			"errorKind":      &graphql.Field{Type: graphql.String},
			"attempts":       &graphql.Field{Type: graphql.Int},
			"retryCount":     &graphql.Field{Type: graphql.Int},
			"totalDuration":  &graphql.Field{Type: graphql.Int},
			"overBudget":     &graphql.Field{Type: graphql.Boolean},
			"startedAt":      &graphql.Field{Type: graphql.DateTime},
			"finishedAt":     &graphql.Field{Type: graphql.DateTime},
		},
	})

	planInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PlanInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"query":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"transportation": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"duration":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
			"returnToStart":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Boolean)},
			"startingLocation": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.NewInputObject(graphql.InputObjectConfig{
				Name: "GeoPointInput",
				Fields: graphql.InputObjectConfigFieldMap{
					"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
			}))},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"runs": &graphql.Field{
				Type:        graphql.NewList(runType),
				Description: "Recent planning runs, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Runs == nil {
						return nil, gqlError{errors.New("run history is not configured"), "unavailable"}
					}
					runs, _, _, err := deps.Runs.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return runs, err
				},
			},
			"run": &graphql.Field{
				Type:        runType,
				Description: "A planning run by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Runs == nil {
						return nil, gqlError{errors.New("run history is not configured"), "unavailable"}
					}
					run, err := deps.Runs.Get(p.Context, p.Args["id"].(string))
					if errors.Is(err, domain.ErrRunNotFound) {
						return nil, gqlError{err, "not_found"}
					}
					return run, err
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"plan": &graphql.Field{
				Type:        planResultType,
				Description: "Draft, route and review an itinerary",
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(planInputType)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in := p.Args["input"].(map[string]interface{})
					loc := in["startingLocation"].(map[string]interface{})
					req := domain.PlanRequest{
						Query:          in["query"].(string),
						Transportation: domain.TransportMode(in["transportation"].(string)),
						DurationLimit:  in["duration"].(int),
						ReturnToStart:  in["returnToStart"].(bool),
						StartingLocation: domain.GeoPoint{
							Lat: loc["lat"].(float64),
							Lng: loc["lng"].(float64),
						},
					}

					ctx := p.Context
					if deps.PlanTimeout > 0 {
						var cancel context.CancelFunc
						ctx, cancel = context.WithTimeout(ctx, deps.PlanTimeout)
						defer cancel()
					}
					result, err := deps.Planner.Run(ctx, req)
					if err != nil {
						_, code := planErrorStatus(err)
						return nil, gqlError{err, code}
					}
					return result, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
