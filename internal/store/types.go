package store

import "time"

// Run is one invocation of the harness over a set of scenarios.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"` // zero while the run is in progress
	CasesDir   string    `json:"cases_dir"`
	BuildDir   string    `json:"build_dir"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
}

// Finished reports whether FinishRun was called for the run.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Record is the stored outcome of one scenario within a run.
type Record struct {
	RunID    string        `json:"run_id"`
	Seq      int64         `json:"seq"` // position in discovery order, starting at 1
	Name     string        `json:"name"`
	Digest   string        `json:"digest,omitempty"`
	Pass     bool          `json:"pass"`
	Kind     string        `json:"kind,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// timeFormat is how timestamps are stored. Fixed width keeps text ordering
// equal to time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}
