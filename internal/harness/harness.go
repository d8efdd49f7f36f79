package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/roach88/objcore/internal/classdb"
	"github.com/roach88/objcore/internal/compiler"
	"github.com/roach88/objcore/internal/object"
	"github.com/roach88/objcore/internal/store"
	"github.com/roach88/objcore/internal/testutil"
	"github.com/roach88/objcore/internal/variant"
)

// Harness executes one scenario against a fresh object DB.
// It records every emission, dispatch, and method call into the result.
type Harness struct {
	db      *object.DB
	clock   *testutil.DeterministicClock
	logger  *slog.Logger
	journal object.Tracer
	objects map[string]*object.Object
	names   map[object.ObjectID]string
	bound   map[string]object.Callable
	result  *Result
}

var _ object.Tracer = (*Harness)(nil)

// Option configures a run.
type Option func(*config)

type config struct {
	logger *slog.Logger
	store  *store.Store
	runIDs store.RunIDGenerator
}

// WithLogger routes object and harness logs to logger. Runs are silent by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStore journals the run's emissions and dispatches to st.
func WithStore(st *store.Store) Option {
	return func(c *config) {
		c.store = st
	}
}

// WithRunIDGenerator sets the generator for the journal run id. Only used
// with WithStore.
func WithRunIDGenerator(gen store.RunIDGenerator) Option {
	return func(c *config) {
		c.runIDs = gen
	}
}

// Run executes a scenario and returns the result.
//
// Each run gets its own class registry and object DB, and a deterministic
// clock, so repeated runs produce identical traces.
//
// Execution flow:
//  1. Compile the scenario's CUE classes into a fresh registry
//  2. Bind every declared method to the call recorder
//  3. Create the declared objects in order
//  4. Execute steps, checking each expect clause
//  5. Evaluate assertions
//
// A returned error means the scenario could not be set up. Failed
// expectations and assertions are reported in the result instead.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Harness{
		clock:   testutil.NewDeterministicClock(),
		logger:  cfg.logger,
		objects: make(map[string]*object.Object, len(scenario.Objects)),
		names:   make(map[object.ObjectID]string, len(scenario.Objects)),
		bound:   make(map[string]object.Callable),
		result:  NewResult(),
	}

	classes, err := h.loadClasses(scenario.Classes)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	var recorder *store.Recorder
	if cfg.store != nil {
		recorder, err = cfg.store.NewRecorder(ctx, scenario.Name, cfg.runIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to begin journal run: %w", err)
		}
		h.journal = recorder
		h.result.RunID = recorder.Run().ID
	}

	h.db = object.NewDB(
		object.WithClassDB(classes),
		object.WithLogger(cfg.logger),
		object.WithClock(h.clock),
		object.WithTracer(h),
	)

	for _, decl := range scenario.Objects {
		obj, err := h.db.NewOfClass(decl.Class)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", decl.Name, err)
		}
		h.objects[decl.Name] = obj
		h.names[obj.ID()] = decl.Name
	}

	for i, st := range scenario.Steps {
		h.runStep(i, st)
	}

	actx := &AssertionContext{Objects: h.objects}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}

	if recorder != nil {
		if err := recorder.Err(); err != nil {
			return nil, fmt.Errorf("failed to journal run: %w", err)
		}
	}

	return h.result, nil
}

// loadClasses compiles the CUE manifests into a fresh registry holding the
// root class, and binds every declared method to the call recorder.
func (h *Harness) loadClasses(paths []string) (*classdb.DB, error) {
	classes := classdb.New()
	if err := object.RegisterRoot(classes); err != nil {
		return nil, fmt.Errorf("failed to register root class: %w", err)
	}

	var infos []classdb.ClassInfo
	for _, path := range paths {
		v, err := compiler.LoadValue(filepath.Dir(path), filepath.Base(path))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		compiled, errs := compiler.CompileManifest(v, true)
		if len(errs) > 0 {
			return nil, fmt.Errorf("failed to compile %s: %w", path, errs[0])
		}
		infos = append(infos, compiled...)
	}

	if _, err := compiler.Register(classes, infos); err != nil {
		return nil, fmt.Errorf("failed to register classes: %w", err)
	}

	for _, info := range infos {
		for _, m := range info.Methods {
			if err := classes.Bind(info.Name, m.Name, h.recordCall(m.Name)); err != nil {
				return nil, fmt.Errorf("failed to bind %s.%s: %w", info.Name, m.Name, err)
			}
		}
	}
	return classes, nil
}

func (h *Harness) recordCall(method string) classdb.MethodFunc {
	return func(self classdb.Instance, args []variant.Value) (variant.Value, error) {
		name := self.ClassName()
		if obj, ok := self.(*object.Object); ok {
			name = h.nameOf(obj.ID())
		}
		h.result.AddCallTrace(name, method, slices.Clone(args))
		return variant.Nil{}, nil
	}
}

func (h *Harness) nameOf(id object.ObjectID) string {
	if name, ok := h.names[id]; ok {
		return name
	}
	return "ObjectID(" + id.String() + ")"
}

// TraceEmission records an emission and forwards it to the journal.
func (h *Harness) TraceEmission(e object.Emission) {
	h.result.AddEmissionTrace(e.Seq, h.nameOf(e.Source), e.Signal, slices.Clone(e.Args))
	if h.journal != nil {
		h.journal.TraceEmission(e)
	}
}

// TraceDispatch records a dispatch and forwards it to the journal.
func (h *Harness) TraceDispatch(d object.Dispatch) {
	h.result.AddDispatchTrace(TraceEvent{
		Seq:         d.Seq,
		EmissionSeq: d.EmissionSeq,
		Object:      h.nameOf(d.Source),
		Signal:      d.Signal,
		Target:      h.nameOf(d.Target),
		Callable:    d.Callable,
		Outcome:     string(d.Outcome),
		Error:       d.Error,
	})
	if h.journal != nil {
		h.journal.TraceDispatch(d)
	}
}

// stepOutcome is what a step produced. Nil fields are results the op does
// not have.
type stepOutcome struct {
	ok    *bool
	value variant.Value
	count *int
	err   error
}

func (h *Harness) runStep(i int, st Step) {
	out, err := h.execute(st)
	if err != nil {
		h.result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, st.Op, err))
		return
	}
	for _, msg := range checkExpect(st, out) {
		h.result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", i, st.Op, st.Object, msg))
	}

	h.logger.Info("step completed",
		"step", i,
		"op", st.Op,
		"object", st.Object,
		"error", out.err,
	)
}

// execute applies one step. A returned error means the step itself was
// malformed; object errors are reported in the outcome.
func (h *Harness) execute(st Step) (stepOutcome, error) {
	var out stepOutcome
	obj := h.objects[st.Object]

	switch st.Op {
	case OpSetMeta:
		v, err := variant.FromGo(st.Value)
		if err != nil {
			return out, fmt.Errorf("value: %w", err)
		}
		obj.SetMeta(st.Key, v)

	case OpGetMeta:
		out.value = obj.GetMeta(st.Key)
		out.ok = boolPtr(obj.HasMeta(st.Key))

	case OpRemoveMeta:
		obj.RemoveMeta(st.Key)

	case OpMetaList:
		keys := obj.GetMetaList()
		arr := make(variant.Array, len(keys))
		for i, k := range keys {
			arr[i] = variant.String(k)
		}
		out.value = arr
		out.count = intPtr(len(keys))

	case OpConnect:
		var flags object.ConnectFlags
		for _, name := range st.Flags {
			f, _ := object.ParseConnectFlag(name)
			flags |= f
		}
		callable := h.db.Callable(h.objects[st.Target].ID(), st.Method)
		if len(st.Args) > 0 {
			args, err := convertArgs(st.Args)
			if err != nil {
				return out, err
			}
			callable = callable.Bind(args...)
		}
		out.err = obj.Connect(st.Signal, callable, flags)
		if out.err == nil && len(st.Args) > 0 {
			h.bound[bindingKey(st)] = callable
		}

	case OpDisconnect:
		out.err = obj.Disconnect(st.Signal, h.callable(st))

	case OpIsConnected:
		out.ok = boolPtr(obj.IsConnected(st.Signal, h.callable(st)))

	case OpHasSignal:
		out.ok = boolPtr(obj.HasSignal(st.Signal))

	case OpHasMethod:
		out.ok = boolPtr(obj.HasMethod(st.Method))

	case OpIsClass:
		out.ok = boolPtr(obj.IsClass(st.Class))

	case OpAddUserSignal:
		out.err = obj.AddUserSignal(st.Signal)

	case OpBlockSignals:
		obj.SetBlockSignals(st.Enabled)

	case OpEmit:
		args, err := convertArgs(st.Args)
		if err != nil {
			return out, err
		}
		out.err = obj.EmitSignal(st.Signal, args...)

	case OpSetEdited:
		obj.SetEdited(st.Enabled)

	case OpEditedVersion:
		out.count = intPtr(int(obj.EditedVersion()))

	case OpFree:
		obj.Free()

	case OpFlushDeferred:
		out.count = intPtr(h.db.FlushDeferred())

	default:
		return out, fmt.Errorf("unknown op %q", st.Op)
	}
	return out, nil
}

// callable resolves a step's target and method. A binding made by an
// earlier connect with args is reused, since bound callables only equal
// themselves. A freed target still yields a callable carrying its stale id.
func (h *Harness) callable(st Step) object.Callable {
	if c, ok := h.bound[bindingKey(st)]; ok {
		return c
	}
	return h.db.Callable(h.objects[st.Target].ID(), st.Method)
}

func bindingKey(st Step) string {
	return st.Object + "\x00" + st.Signal + "\x00" + st.Target + "\x00" + st.Method
}

func checkExpect(st Step, out stepOutcome) []string {
	var msgs []string

	want := st.Expect
	if want == nil {
		want = &Expect{}
	}

	gotKind := object.ErrorKind(out.err)
	if out.err != nil && gotKind == "" {
		msgs = append(msgs, fmt.Sprintf("unclassified error: %v", out.err))
	}
	if gotKind != want.Error {
		if out.err != nil {
			msgs = append(msgs, fmt.Sprintf("expected error %q, got %q (%v)", want.Error, gotKind, out.err))
		} else {
			msgs = append(msgs, fmt.Sprintf("expected error %q, got none", want.Error))
		}
	}

	if want.OK != nil {
		switch {
		case out.ok == nil:
			msgs = append(msgs, "expect.ok given but op has no boolean result")
		case *out.ok != *want.OK:
			msgs = append(msgs, fmt.Sprintf("expected ok=%t, got %t", *want.OK, *out.ok))
		}
	}

	if want.Value != nil {
		expected, err := variant.FromGo(want.Value)
		switch {
		case err != nil:
			msgs = append(msgs, fmt.Sprintf("expect.value: %v", err))
		case out.value == nil:
			msgs = append(msgs, "expect.value given but op has no value result")
		case !variant.EqualApprox(expected, out.value):
			msgs = append(msgs, fmt.Sprintf("expected value %s, got %s", formatValue(expected), formatValue(out.value)))
		}
	}

	if want.Count != nil {
		switch {
		case out.count == nil:
			msgs = append(msgs, "expect.count given but op has no count result")
		case *out.count != *want.Count:
			msgs = append(msgs, fmt.Sprintf("expected count %d, got %d", *want.Count, *out.count))
		}
	}
	return msgs
}

func convertArgs(raw []any) ([]variant.Value, error) {
	args := make([]variant.Value, len(raw))
	for i, a := range raw {
		v, err := variant.FromGo(a)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func formatValue(v variant.Value) string {
	data, err := variant.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }
