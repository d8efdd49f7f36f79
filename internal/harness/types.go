package harness

import (
	"github.com/roach88/objcore/internal/variant"
)

// Trace event types.
const (
	EventEmission = "emission"
	EventDispatch = "dispatch"
	EventCall     = "call"
)

// TraceEvent is one entry of a scenario trace. Objects are identified by
// their scenario names.
//
// Emission events carry Seq, Object, Signal, and Args. Dispatch events carry
// Seq, EmissionSeq, Object (the source), Signal, Target, Callable, Outcome,
// and Error. Call events carry Object, Method, and Args; they have no
// sequence number of their own and appear before the dispatch that caused
// them.
type TraceEvent struct {
	Type        string
	Seq         int64
	EmissionSeq int64
	Object      string
	Signal      string
	Target      string
	Callable    string
	Method      string
	Outcome     string
	Error       string
	Args        []variant.Value
}

// Value converts the event to a Dictionary holding only the fields its type
// uses.
func (e TraceEvent) Value() variant.Dictionary {
	d := variant.Dictionary{
		"type":   variant.String(e.Type),
		"object": variant.String(e.Object),
	}
	switch e.Type {
	case EventEmission:
		d["seq"] = variant.Int(e.Seq)
		d["signal"] = variant.String(e.Signal)
		d["args"] = argsValue(e.Args)
	case EventDispatch:
		d["seq"] = variant.Int(e.Seq)
		d["emission_seq"] = variant.Int(e.EmissionSeq)
		d["signal"] = variant.String(e.Signal)
		d["target"] = variant.String(e.Target)
		d["callable"] = variant.String(e.Callable)
		d["outcome"] = variant.String(e.Outcome)
		if e.Error != "" {
			d["error"] = variant.String(e.Error)
		}
	case EventCall:
		d["method"] = variant.String(e.Method)
		d["args"] = argsValue(e.Args)
	}
	return d
}

// MarshalJSON encodes the event as canonical JSON.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	return variant.MarshalCanonical(e.Value())
}

func argsValue(args []variant.Value) variant.Array {
	if args == nil {
		return variant.Array{}
	}
	return variant.Array(args)
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds emissions, dispatches, and recorded calls in the order
	// they happened.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RunID is the journal run id when the run was recorded to a store.
	RunID string `json:"run_id,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEmissionTrace adds an emission to the trace.
func (r *Result) AddEmissionTrace(seq int64, object, signal string, args []variant.Value) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventEmission,
		Seq:    seq,
		Object: object,
		Signal: signal,
		Args:   args,
	})
}

// AddDispatchTrace adds a dispatch to the trace.
func (r *Result) AddDispatchTrace(ev TraceEvent) {
	ev.Type = EventDispatch
	r.Trace = append(r.Trace, ev)
}

// AddCallTrace adds a recorded method call to the trace.
func (r *Result) AddCallTrace(object, method string, args []variant.Value) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventCall,
		Object: object,
		Method: method,
		Args:   args,
	})
}

// Calls returns the recorded calls as "object.method" in trace order.
func (r *Result) Calls() []string {
	var calls []string
	for _, ev := range r.Trace {
		if ev.Type == EventCall {
			calls = append(calls, ev.Object+"."+ev.Method)
		}
	}
	return calls
}
