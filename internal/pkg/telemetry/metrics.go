package telemetry

// Span and attribute names used for instrumentation.
const (
	SpanPlanRun   = "plan.run"
	SpanDraft     = "plan.draft"
	SpanReconcile = "plan.reconcile"
	SpanReview    = "plan.review"

	AttrRunID          = "plan.run_id"
	AttrTransportation = "plan.transportation"
	AttrDurationLimit  = "plan.duration_limit"
	AttrReturnToStart  = "plan.return_to_start"
	AttrAttempt        = "plan.attempt"
	AttrRetryCount     = "plan.retry_count"
	AttrOverBudget     = "plan.over_budget"
	AttrTotalDuration  = "plan.total_duration"
	AttrErrorKind      = "plan.error_kind"
)
