package harness

import "github.com/easelhq/easel/internal/model"

// TraceEvent records the outcome of one scenario step. Seq is the
// 1-based step position; Version is the store version after the step, so
// dropped and transient operations show an unchanged version.
type TraceEvent struct {
	Op      string `json:"op"`
	Seq     int    `json:"seq"`
	Applied bool   `json:"applied"`
	Version int64  `json:"version"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success. True when every applied
	// expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in execution order. Used for
	// golden comparison and printed on assertion failures.
	Trace []TraceEvent `json:"trace"`

	// Errors contains the failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the snapshot after the last step.
	Final model.Snapshot `json:"final"`

	// Version is the store version after the last step.
	Version int64 `json:"version"`
}

// NewResult creates a new passing result. Used as the starting point for
// scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends one step outcome to the trace.
func (r *Result) AddTrace(op string, seq int, applied bool, version int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Op:      op,
		Seq:     seq,
		Applied: applied,
		Version: version,
	})
}
