package dto

// GradingProgress reports settled-over-total progress of the queue.
type GradingProgress struct {
	RunID     string  `json:"run_id,omitempty"`
	Running   bool    `json:"running"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Errored   int     `json:"errored"`
	Ratio     float64 `json:"ratio"`
}

// RunSummary describes a finished grading run.
type RunSummary struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Errored   int    `json:"errored"`
	Cancelled bool   `json:"cancelled"`
}

// Event kinds published to progress subscribers.
const (
	EventRecordUpdate = "record_update"
	EventProgress     = "progress"
	EventNotice       = "notice"
	EventRunDone      = "run_done"
)

// ProgressEvent is pushed to websocket subscribers after every queue mutation
// the orchestrator makes. Notices are transient data-quality warnings meant to
// auto-dismiss client-side.
type ProgressEvent struct {
	Kind     string              `json:"kind"`
	Record   *SubmissionResponse `json:"record,omitempty"`
	Progress *GradingProgress    `json:"progress,omitempty"`
	Summary  *RunSummary         `json:"summary,omitempty"`
	Message  string              `json:"message,omitempty"`
}
