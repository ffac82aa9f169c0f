package domain

// QueryInput is the body of POST /runs/query
// Times are RFC 3339
type QueryInput struct {
	Source string `json:"source,omitempty" validate:"omitempty,min=1,max=64" example:"autoscout"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=success warning error" example:"warning"`
	From   string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00" example:"2026-10-01T00:00:00Z"`
	To     string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00" example:"2026-10-02T00:00:00Z"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"100"`
}

// RunDetail is a run with the records it skipped
type RunDetail struct {
	RunOutcome
	Failures []RecordFailure `json:"failures"`
}
