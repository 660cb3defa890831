package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a run ended in Failed.
type ErrorKind string

const (
	KindInput    ErrorKind = "input"
	KindDraft    ErrorKind = "draft"
	KindRoute    ErrorKind = "route"
	KindCanceled ErrorKind = "canceled"
)

var (
	ErrEmptyDraft    = errors.New("empty response from drafting service")
	ErrMalformed     = errors.New("draft is not a valid itinerary")
	ErrNoSpots       = errors.New("itinerary has no spots")
	ErrRouteStatus   = errors.New("routing service returned a non-OK status")
	ErrLegMismatch   = errors.New("routing service returned an unexpected number of legs")
	ErrNothingToPlan = errors.New("no itinerary to work on")
	ErrRunNotFound   = errors.New("run not found")
)

// PlanError is the terminal error of a run.
type PlanError struct {
	Kind  ErrorKind
	Stage Stage
	Err   error
}

// NewPlanError wraps err with a kind and the stage it happened in.
// A collaborator's own timeout keeps the stage's kind; only PlanState.Abort
// produces KindCanceled.
func NewPlanError(kind ErrorKind, stage Stage, err error) *PlanError {
	return &PlanError{Kind: kind, Stage: stage, Err: err}
}

func (e *PlanError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }

// KindOf returns the kind of a PlanError anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var pe *PlanError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
