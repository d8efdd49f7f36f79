package store

import (
	"context"
	"sync"

	"github.com/roach88/objcore/internal/object"
	"github.com/roach88/objcore/internal/variant"
)

// Recorder journals the emissions and dispatches of one run. It implements
// object.Tracer, so it plugs into object.WithTracer.
//
// Tracer callbacks cannot return errors. A failed write is logged, and the
// first failure is kept for Err.
type Recorder struct {
	store *Store
	ctx   context.Context
	run   Run

	mu  sync.Mutex
	err error
}

var _ object.Tracer = (*Recorder)(nil)

// NewRecorder begins a run named name with an id from gen and returns a
// recorder for it. A nil gen uses UUIDv7Generator.
func (s *Store) NewRecorder(ctx context.Context, name string, gen RunIDGenerator) (*Recorder, error) {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	run := Run{ID: gen.Generate(), Name: name}
	if err := s.BeginRun(ctx, run); err != nil {
		return nil, err
	}
	return &Recorder{store: s, ctx: ctx, run: run}, nil
}

// Run returns the run being recorded.
func (r *Recorder) Run() Run {
	return r.run
}

// Err returns the first write failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// TraceEmission journals an emission.
func (r *Recorder) TraceEmission(e object.Emission) {
	args, err := variant.MarshalCanonicalList(e.Args)
	if err != nil {
		r.fail("marshal emission args", err)
		return
	}
	id, err := EmissionID(r.run.ID, e.Seq, uint64(e.Source), e.Signal, e.Args)
	if err != nil {
		r.fail("compute emission id", err)
		return
	}
	err = r.store.WriteEmission(r.ctx, EmissionRecord{
		ID:     id,
		RunID:  r.run.ID,
		Seq:    e.Seq,
		Source: uint64(e.Source),
		Class:  e.Class,
		Signal: e.Signal,
		Args:   string(args),
	})
	if err != nil {
		r.fail("write emission", err)
	}
}

// TraceDispatch journals a dispatch.
func (r *Recorder) TraceDispatch(d object.Dispatch) {
	id, err := DispatchID(r.run.ID, d.Seq, d.EmissionSeq, d.Callable, string(d.Outcome))
	if err != nil {
		r.fail("compute dispatch id", err)
		return
	}
	err = r.store.WriteDispatch(r.ctx, DispatchRecord{
		ID:          id,
		RunID:       r.run.ID,
		Seq:         d.Seq,
		EmissionSeq: d.EmissionSeq,
		Target:      uint64(d.Target),
		Callable:    d.Callable,
		Outcome:     string(d.Outcome),
		Error:       d.Error,
	})
	if err != nil {
		r.fail("write dispatch", err)
	}
}

func (r *Recorder) fail(msg string, err error) {
	r.store.logger.Error("trace journal: "+msg, "run", r.run.ID, "error", err)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}
