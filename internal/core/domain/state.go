package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Stage is a state of the planning workflow.
type Stage string

const (
	StageDrafting    Stage = "drafting"
	StageReconciling Stage = "reconciling"
	StageReviewing   Stage = "reviewing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// ErrIllegalTransition is returned when a stage result arrives in the wrong stage.
var ErrIllegalTransition = errors.New("illegal workflow transition")

// Role tags who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the drafting conversation.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Transcript is an append-only conversation log. Append never mutates the
// receiver, so a Transcript value can be handed out freely.
type Transcript struct {
	entries []Message
}

// NewTranscript builds a transcript from existing entries.
func NewTranscript(msgs ...Message) Transcript {
	return Transcript{entries: append([]Message(nil), msgs...)}
}

// Append returns a new transcript with m added at the end.
func (t Transcript) Append(m Message) Transcript {
	entries := make([]Message, len(t.entries), len(t.entries)+1)
	copy(entries, t.entries)
	return Transcript{entries: append(entries, m)}
}

func (t Transcript) Len() int { return len(t.entries) }

// Last returns the most recent entry.
func (t Transcript) Last() (Message, bool) {
	if len(t.entries) == 0 {
		return Message{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Entries returns a copy of all entries in order.
func (t Transcript) Entries() []Message {
	return append([]Message(nil), t.entries...)
}

func (t Transcript) MarshalJSON() ([]byte, error) {
	if t.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.entries)
}

func (t *Transcript) UnmarshalJSON(data []byte) error {
	var entries []Message
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	t.entries = entries
	return nil
}

// Verdict is the reviewer's outcome.
type Verdict string

const (
	VerdictAccept Verdict = "accept"
	VerdictRetry  Verdict = "retry"
)

// Decision is what the acceptance review returns.
// OverBudget is meaningful for Accept; Feedback and RetryCount for Retry.
type Decision struct {
	Verdict    Verdict
	OverBudget bool
	Feedback   string
	RetryCount int
}

// PlanState is the mutable state of a single run. It is owned by that run
// alone and only changed through the Apply methods, in stage order.
type PlanState struct {
	RunID      string
	Request    PlanRequest
	Stage      Stage
	History    Transcript
	Itinerary  *Itinerary
	Route      *RouteResult
	RetryCount int
	OverBudget *bool
	Attempts   int
	Err        *PlanError
}

// NewPlanState returns the initial Drafting state for req.
func NewPlanState(runID string, req PlanRequest) *PlanState {
	return &PlanState{RunID: runID, Request: req, Stage: StageDrafting}
}

// Terminal reports whether the run reached Done or Failed.
func (s *PlanState) Terminal() bool {
	return s.Stage == StageDone || s.Stage == StageFailed
}

// ApplyDraft records the outcome of a drafting attempt.
func (s *PlanState) ApplyDraft(it *Itinerary, raw string, err error) error {
	if s.Stage != StageDrafting {
		return s.illegal(StageDrafting)
	}
	s.Attempts++
	if err != nil {
		s.fail(NewPlanError(KindDraft, StageDrafting, err))
		return nil
	}
	if it == nil || len(it.Spots) == 0 {
		s.fail(NewPlanError(KindDraft, StageDrafting, ErrNoSpots))
		return nil
	}
	s.History = s.History.Append(Message{Role: RoleAssistant, Text: raw})
	s.Itinerary = it
	s.Route = nil
	s.Stage = StageReconciling
	return nil
}

// ApplyRoute records the outcome of reconciling the current itinerary.
func (s *PlanState) ApplyRoute(it *Itinerary, route *RouteResult, err error) error {
	if s.Stage != StageReconciling {
		return s.illegal(StageReconciling)
	}
	if err != nil {
		s.fail(NewPlanError(KindRoute, StageReconciling, err))
		return nil
	}
	s.Itinerary = it
	s.Route = route
	s.Stage = StageReviewing
	return nil
}

// ApplyDecision moves a reviewed run to Done or back to Drafting.
// On retry the feedback is appended before the next draft is requested.
func (s *PlanState) ApplyDecision(d Decision) error {
	if s.Stage != StageReviewing {
		return s.illegal(StageReviewing)
	}
	switch d.Verdict {
	case VerdictRetry:
		s.History = s.History.Append(Message{Role: RoleUser, Text: d.Feedback})
		s.RetryCount = d.RetryCount
		s.Stage = StageDrafting
	case VerdictAccept:
		over := d.OverBudget
		s.OverBudget = &over
		s.Stage = StageDone
	default:
		return fmt.Errorf("%w: unknown verdict %q", ErrIllegalTransition, d.Verdict)
	}
	return nil
}

// Abort fails a non-terminal run, e.g. when its context is canceled
// between stages.
func (s *PlanState) Abort(err error) {
	if s.Terminal() {
		return
	}
	s.fail(NewPlanError(KindCanceled, s.Stage, err))
}

// Result reports the outcome of a terminal run. A failed run returns its
// PlanError and no partial itinerary.
func (s *PlanState) Result() (*PlanResult, error) {
	switch s.Stage {
	case StageDone:
		return &PlanResult{
			RunID:       s.RunID,
			Plan:        s.Itinerary,
			RouteResult: s.Route,
			IsOverTime:  s.OverBudget != nil && *s.OverBudget,
			Attempts:    s.Attempts,
		}, nil
	case StageFailed:
		return nil, s.Err
	default:
		return nil, fmt.Errorf("%w: run %s is still %s", ErrIllegalTransition, s.RunID, s.Stage)
	}
}

func (s *PlanState) fail(err *PlanError) {
	s.Err = err
	s.Stage = StageFailed
}

func (s *PlanState) illegal(want Stage) error {
	return fmt.Errorf("%w: expected %s, run is %s", ErrIllegalTransition, want, s.Stage)
}
