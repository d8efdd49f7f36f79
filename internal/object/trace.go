package object

import "github.com/roach88/objcore/internal/variant"

// Outcome describes what happened to one connection during an emission.
type Outcome string

const (
	// OutcomeOK means the callee ran and returned no error.
	OutcomeOK Outcome = "ok"

	// OutcomeError means the callee ran and returned an error.
	OutcomeError Outcome = "error"

	// OutcomeDangling means the target had been freed. The connection was
	// pruned and nothing was called.
	OutcomeDangling Outcome = "dangling"

	// OutcomeDeferred means the call was queued for FlushDeferred.
	OutcomeDeferred Outcome = "deferred"
)

// Emission is one EmitSignal call that reached dispatch.
type Emission struct {
	Seq    int64
	Source ObjectID
	Class  string
	Signal string
	Args   []variant.Value
}

// Dispatch is the outcome of delivering an emission to one connection.
// EmissionSeq links it back to its Emission.
type Dispatch struct {
	Seq         int64
	EmissionSeq int64
	Source      ObjectID
	Signal      string
	Target      ObjectID
	Callable    string
	Outcome     Outcome
	Error       string
}

// Tracer observes emissions and dispatches. Implementations must not call
// back into the emitting object.
type Tracer interface {
	TraceEmission(Emission)
	TraceDispatch(Dispatch)
}

type nopTracer struct{}

func (nopTracer) TraceEmission(Emission) {}
func (nopTracer) TraceDispatch(Dispatch) {}
