package progress

import "time"

// Stage identifies which workflow stage is active.
type Stage string

const (
	StageGenerate Stage = "generate"
	StageSave     Stage = "save"
	StageComplete Stage = "complete"
)

// Event carries progress information from the generator and pipeline to the
// renderer.
type Event struct {
	Stage   Stage
	Message string
	Percent float64 // 0.0–1.0
	Elapsed time.Duration
	Error   error
	// Character is the character the event concerns, when known.
	Character string
	// OutputFile is set on StageComplete when a record was written.
	OutputFile string
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(stage Stage, msg string, pct float64, start time.Time) Event {
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: pct,
		Elapsed: time.Since(start),
	}
}
