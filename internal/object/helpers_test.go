package object

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/objcore/internal/classdb"
	"github.com/roach88/objcore/internal/variant"
)

type recordedCall struct {
	object ObjectID
	method string
	args   []variant.Value
}

type callLog struct {
	calls []recordedCall
}

func (l *callLog) body(method string) classdb.MethodFunc {
	return func(self classdb.Instance, args []variant.Value) (variant.Value, error) {
		o := self.(*Object)
		l.calls = append(l.calls, recordedCall{object: o.ID(), method: method, args: args})
		return nil, nil
	}
}

func (l *callLog) methods() []string {
	out := make([]string, len(l.calls))
	for i, c := range l.calls {
		out[i] = c.method
	}
	return out
}

type memTracer struct {
	emissions  []Emission
	dispatches []Dispatch
}

func (t *memTracer) TraceEmission(e Emission) { t.emissions = append(t.emissions, e) }
func (t *memTracer) TraceDispatch(d Dispatch) { t.dispatches = append(t.dispatches, d) }

type fixture struct {
	db     *DB
	log    *callLog
	tracer *memTracer
	logs   *bytes.Buffer
}

// newFixture returns an isolated DB with a "Receiver" class whose methods
// record their calls, and an "Emitter" class declaring a few signals.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	classes := classdb.New()
	require.NoError(t, RegisterRoot(classes))

	log := &callLog{}
	_, err := classes.Register(classdb.ClassInfo{
		Name:   "Receiver",
		Parent: RootClass,
		Methods: []classdb.MethodInfo{
			{Name: "on_a", Vararg: true, Func: log.body("on_a")},
			{Name: "on_b", Vararg: true, Func: log.body("on_b")},
			{Name: "fail", Vararg: true, Func: func(classdb.Instance, []variant.Value) (variant.Value, error) {
				log.calls = append(log.calls, recordedCall{method: "fail"})
				return nil, errors.New("boom")
			}},
		},
	})
	require.NoError(t, err)
	_, err = classes.Register(classdb.ClassInfo{
		Name:     "Emitter",
		Parent:   RootClass,
		SaveName: "OldEmitter",
		Signals: []classdb.SignalInfo{
			{Name: "fired", Args: []classdb.ArgInfo{{Name: "n", Type: "int"}}},
			{Name: "other"},
		},
	})
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	tracer := &memTracer{}
	db := NewDB(
		WithClassDB(classes),
		WithLogger(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithTracer(tracer),
	)
	return &fixture{db: db, log: log, tracer: tracer, logs: logs}
}

func (f *fixture) newOf(t *testing.T, class string) *Object {
	t.Helper()
	o, err := f.db.NewOfClass(class)
	require.NoError(t, err)
	return o
}

func quietDB() *DB {
	return NewDB(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}
