package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objcore/internal/variant"
)

func TestIsConnectedWhenNotConnected(t *testing.T) {
	f := newFixture(t)
	o := f.db.New()

	assert.False(t, o.IsConnected("script_changed", NewCallable(o, "get_class")))
	assert.False(t, o.IsConnected("script_changed", Callable{}))
	assert.False(t, o.IsConnected("no_such_signal", NewCallable(o, "get_class")))
	assert.Contains(t, f.logs.String(), "level=DEBUG")
	assert.NotContains(t, f.logs.String(), "level=ERROR")
}

func TestBlockSignals(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")
	require.NoError(t, e.Connect("fired", NewCallable(r, "on_a")))

	e.SetBlockSignals(true)
	assert.True(t, e.IsBlockingSignals())
	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	assert.Empty(t, f.log.calls)
	assert.Empty(t, f.tracer.emissions)

	// Blocking only stops dispatch; the table stays editable.
	extra := NewCallable(r, "on_b")
	require.NoError(t, e.Connect("fired", extra))
	assert.True(t, e.IsConnected("fired", extra))
	require.NoError(t, e.Disconnect("fired", extra))
	assert.False(t, e.IsConnected("fired", extra))
	assert.True(t, e.IsConnected("fired", NewCallable(r, "on_a")))

	e.SetBlockSignals(false)
	assert.False(t, e.IsBlockingSignals())
	require.NoError(t, e.EmitSignal("fired", variant.Int(2)))
	require.Len(t, f.log.calls, 1)
	assert.Equal(t, []variant.Value{variant.Int(2)}, f.log.calls[0].args)
}

func TestConnectErrors(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")

	err := e.Connect("fired", Callable{})
	assert.True(t, IsInvalidArgument(err))

	err = e.Connect("nonexistent", NewCallable(r, "on_a"))
	assert.True(t, IsInvalidArgument(err))

	require.NoError(t, e.Connect("fired", NewCallable(r, "on_a")))
	err = e.Connect("fired", NewCallable(r, "on_a"))
	assert.True(t, IsAlreadyConnected(err))

	assert.Len(t, e.SignalConnectionList("fired"), 1)
	assert.Contains(t, f.logs.String(), "connect failed")
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")
	c := NewCallable(r, "on_a")

	assert.True(t, IsNotFound(e.Disconnect("fired", c)))
	assert.True(t, IsInvalidArgument(e.Disconnect("fired", Callable{})))
	assert.True(t, IsInvalidArgument(e.Disconnect("nope", c)))

	require.NoError(t, e.Connect("fired", c))
	assert.True(t, e.IsConnected("fired", c))
	require.NoError(t, e.Disconnect("fired", c))
	assert.False(t, e.IsConnected("fired", c))
	assert.Empty(t, e.ConnectionList())
}

func TestDisconnectMethodIgnoresBoundArgs(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")

	require.NoError(t, e.Connect("fired", NewCallable(r, "on_a")))
	require.NoError(t, e.Connect("fired", NewCallable(r, "on_a").Bind(variant.String("x"))))
	require.NoError(t, e.Connect("fired", NewCallable(r, "on_b")))

	require.NoError(t, e.DisconnectMethod("fired", r.ID(), "on_a"))
	list := e.SignalConnectionList("fired")
	require.Len(t, list, 1)
	assert.Equal(t, "on_b", list[0].Callable.Method())

	assert.True(t, IsNotFound(e.DisconnectMethod("fired", r.ID(), "on_a")))
}

func TestEmitOrderAndArgs(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r1 := f.newOf(t, "Receiver")
	r2 := f.newOf(t, "Receiver")

	require.NoError(t, e.Connect("fired", NewCallable(r2, "on_b")))
	require.NoError(t, e.Connect("fired", NewCallable(r1, "on_a").Bind(variant.String("bound"))))

	require.NoError(t, e.EmitSignal("fired", variant.Int(7)))

	require.Len(t, f.log.calls, 2)
	assert.Equal(t, r2.ID(), f.log.calls[0].object)
	assert.Equal(t, "on_b", f.log.calls[0].method)
	assert.Equal(t, []variant.Value{variant.Int(7)}, f.log.calls[0].args)
	assert.Equal(t, r1.ID(), f.log.calls[1].object)
	assert.Equal(t, []variant.Value{variant.Int(7), variant.String("bound")}, f.log.calls[1].args)

	require.Len(t, f.tracer.emissions, 1)
	em := f.tracer.emissions[0]
	assert.Equal(t, "fired", em.Signal)
	assert.Equal(t, "Emitter", em.Class)
	require.Len(t, f.tracer.dispatches, 2)
	for _, d := range f.tracer.dispatches {
		assert.Equal(t, em.Seq, d.EmissionSeq)
		assert.Greater(t, d.Seq, em.Seq)
		assert.Equal(t, OutcomeOK, d.Outcome)
	}
	assert.Equal(t, "Receiver::on_b", f.tracer.dispatches[0].Callable)
}

func TestEmitUnknownSignal(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	err := e.EmitSignal("", variant.Int(1))
	assert.True(t, IsInvalidArgument(err))
	assert.Empty(t, f.tracer.emissions)
}

func TestEmitWithNoConnections(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	require.NoError(t, e.EmitSignal("other"))
	assert.Len(t, f.tracer.emissions, 1)
	assert.Empty(t, f.tracer.dispatches)
}

func TestEmitSkipsDanglingAndPrunes(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	gone := f.newOf(t, "Receiver")
	alive := f.newOf(t, "Receiver")

	require.NoError(t, e.Connect("fired", NewCallable(gone, "on_a")))
	require.NoError(t, e.Connect("fired", NewCallable(alive, "on_b")))
	gone.Free()

	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	assert.Equal(t, []string{"on_b"}, f.log.methods())

	list := e.SignalConnectionList("fired")
	require.Len(t, list, 1)
	assert.Equal(t, alive.ID(), list[0].Callable.Target())

	require.Len(t, f.tracer.dispatches, 2)
	assert.Equal(t, OutcomeDangling, f.tracer.dispatches[0].Outcome)
	assert.Contains(t, f.logs.String(), "connection target freed")
}

func TestSlotReuseDoesNotRevive(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	gone := f.newOf(t, "Receiver")
	require.NoError(t, e.Connect("fired", NewCallable(gone, "on_a")))
	gone.Free()

	// The new instance reuses the freed slot under a new generation.
	reused := f.newOf(t, "Receiver")
	assert.Equal(t, gone.ID().Slot(), reused.ID().Slot())
	assert.NotEqual(t, gone.ID(), reused.ID())

	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	assert.Empty(t, f.log.calls)
}

func TestCalleeFailureDoesNotStopEmission(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")

	require.NoError(t, e.Connect("fired", NewCallable(r, "fail")))
	require.NoError(t, e.Connect("fired", NewCallable(r, "on_a")))
	require.NoError(t, e.Connect("fired", NewCallable(r, "missing_method")))

	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	assert.Equal(t, []string{"fail", "on_a"}, f.log.methods())

	require.Len(t, f.tracer.dispatches, 3)
	assert.Equal(t, OutcomeError, f.tracer.dispatches[0].Outcome)
	assert.Contains(t, f.tracer.dispatches[0].Error, "boom")
	assert.Equal(t, OutcomeOK, f.tracer.dispatches[1].Outcome)
	assert.Equal(t, OutcomeError, f.tracer.dispatches[2].Outcome)
	assert.Contains(t, f.logs.String(), "signal callee failed")
}

func TestDisconnectDuringEmission(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")
	later := NewCallable(r, "on_b")

	var order []string
	first := NewCustomCallable("first", func([]variant.Value) (variant.Value, error) {
		order = append(order, "first")
		return nil, e.Disconnect("fired", later)
	})
	require.NoError(t, e.Connect("fired", first))
	require.NoError(t, e.Connect("fired", later))

	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	assert.Equal(t, []string{"first"}, order)
	assert.Empty(t, f.log.calls)
}

func TestConnectDuringEmissionWaitsForNextEmission(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")

	adder := NewCustomCallable("adder", func([]variant.Value) (variant.Value, error) {
		if e.IsConnected("fired", NewCallable(r, "on_a")) {
			return nil, nil
		}
		return nil, e.Connect("fired", NewCallable(r, "on_a"))
	})
	require.NoError(t, e.Connect("fired", adder))

	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	assert.Empty(t, f.log.calls)
	require.NoError(t, e.EmitSignal("fired", variant.Int(2)))
	assert.Len(t, f.log.calls, 1)
}

func TestOneShot(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")
	c := NewCallable(r, "on_a")

	require.NoError(t, e.Connect("fired", c, ConnectOneShot))
	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	require.NoError(t, e.EmitSignal("fired", variant.Int(2)))

	assert.Len(t, f.log.calls, 1)
	assert.False(t, e.IsConnected("fired", c))
}

func TestOneShotReentrantEmission(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	count := 0
	var once Callable
	once = NewCustomCallable("once", func([]variant.Value) (variant.Value, error) {
		count++
		return nil, e.EmitSignal("fired", variant.Int(0))
	})
	require.NoError(t, e.Connect("fired", once, ConnectOneShot))
	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	assert.Equal(t, 1, count)
	assert.False(t, e.IsConnected("fired", once))
}

func TestReferenceCounted(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")
	c := NewCallable(r, "on_a")

	require.NoError(t, e.Connect("fired", c, ConnectReferenceCounted))
	require.NoError(t, e.Connect("fired", c, ConnectReferenceCounted))
	require.NoError(t, e.Connect("fired", c, ConnectReferenceCounted))
	list := e.SignalConnectionList("fired")
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].RefCount)

	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	assert.Len(t, f.log.calls, 1)

	require.NoError(t, e.Disconnect("fired", c))
	require.NoError(t, e.Disconnect("fired", c))
	assert.True(t, e.IsConnected("fired", c))
	require.NoError(t, e.Disconnect("fired", c))
	assert.False(t, e.IsConnected("fired", c))

	// A plain duplicate of a counted connection is still rejected.
	require.NoError(t, e.Connect("fired", c, ConnectReferenceCounted))
	assert.True(t, IsAlreadyConnected(e.Connect("fired", c)))
}

func TestReferenceCountedOntoPlainConnection(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")
	c := NewCallable(r, "on_a")

	require.NoError(t, e.Connect("fired", c))
	err := e.Connect("fired", c, ConnectReferenceCounted)
	assert.True(t, IsAlreadyConnected(err))

	list := e.SignalConnectionList("fired")
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].RefCount)
	assert.Zero(t, list[0].Flags&ConnectReferenceCounted)

	// One disconnect removes the plain connection.
	require.NoError(t, e.Disconnect("fired", c))
	assert.False(t, e.IsConnected("fired", c))
}

func TestDeferred(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")

	require.NoError(t, e.Connect("fired", NewCallable(r, "on_a"), ConnectDeferred))
	require.NoError(t, e.Connect("fired", NewCallable(r, "on_b")))

	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	assert.Equal(t, []string{"on_b"}, f.log.methods())
	assert.Equal(t, 1, f.db.PendingDeferred())

	assert.Equal(t, 1, f.db.FlushDeferred())
	assert.Equal(t, []string{"on_b", "on_a"}, f.log.methods())
	assert.Equal(t, 0, f.db.PendingDeferred())
	assert.Equal(t, 0, f.db.FlushDeferred())

	var outcomes []Outcome
	for _, d := range f.tracer.dispatches {
		outcomes = append(outcomes, d.Outcome)
	}
	assert.Equal(t, []Outcome{OutcomeDeferred, OutcomeOK, OutcomeOK}, outcomes)
}

func TestDeferredTargetFreedBeforeFlush(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")

	require.NoError(t, e.Connect("fired", NewCallable(r, "on_a"), ConnectDeferred))
	require.NoError(t, e.EmitSignal("fired", variant.Int(1)))
	r.Free()

	assert.Equal(t, 1, f.db.FlushDeferred())
	assert.Empty(t, f.log.calls)
	last := f.tracer.dispatches[len(f.tracer.dispatches)-1]
	assert.Equal(t, OutcomeDangling, last.Outcome)
}

func TestUserSignals(t *testing.T) {
	f := newFixture(t)
	o := f.db.New()
	r := f.newOf(t, "Receiver")

	assert.False(t, o.HasSignal("poked"))
	require.NoError(t, o.AddUserSignal("poked"))
	assert.True(t, o.HasSignal("poked"))
	assert.True(t, o.HasUserSignal("poked"))

	assert.True(t, IsInvalidArgument(o.AddUserSignal("")))
	assert.True(t, IsInvalidArgument(o.AddUserSignal("poked")))
	assert.True(t, IsInvalidArgument(o.AddUserSignal("script_changed")))

	require.NoError(t, o.Connect("poked", NewCallable(r, "on_a")))
	require.NoError(t, o.EmitSignal("poked"))
	assert.Len(t, f.log.calls, 1)

	// User signals are per instance.
	assert.False(t, f.db.New().HasSignal("poked"))
}

func TestIncomingConnections(t *testing.T) {
	f := newFixture(t)
	e1 := f.newOf(t, "Emitter")
	e2 := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")

	require.NoError(t, e1.Connect("fired", NewCallable(r, "on_a")))
	require.NoError(t, e2.Connect("other", NewCallable(r, "on_b")))
	require.NoError(t, e2.Connect("other", NewCustomCallable("x", func([]variant.Value) (variant.Value, error) { return nil, nil })))

	in := r.IncomingConnections()
	require.Len(t, in, 2)
	assert.Equal(t, e1.ID(), in[0].Source)
	assert.Equal(t, "fired", in[0].Signal)
	assert.Equal(t, e2.ID(), in[1].Source)
	assert.Equal(t, "on_b", in[1].Callable.Method())
}

func TestIncomingConnectionsIncludesSelf(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	other := f.newOf(t, "Emitter")

	require.NoError(t, e.Connect("fired", NewCallable(e, "get_class")))
	require.NoError(t, other.Connect("fired", NewCallable(e, "get_class_name")))

	in := e.IncomingConnections()
	require.Len(t, in, 2)
	assert.Equal(t, e.ID(), in[0].Source)
	assert.Equal(t, "get_class", in[0].Callable.Method())
	assert.Equal(t, other.ID(), in[1].Source)
	assert.Empty(t, other.IncomingConnections())
}

func TestEmitSignalBuiltin(t *testing.T) {
	f := newFixture(t)
	e := f.newOf(t, "Emitter")
	r := f.newOf(t, "Receiver")
	require.NoError(t, e.Connect("fired", NewCallable(r, "on_a")))

	_, err := e.Call("emit_signal", variant.String("fired"), variant.Int(3))
	require.NoError(t, err)
	require.Len(t, f.log.calls, 1)
	assert.Equal(t, []variant.Value{variant.Int(3)}, f.log.calls[0].args)

	require.NoError(t, e.Connect("property_list_changed", NewCallable(r, "on_b")))
	_, err = e.Call("notify_property_list_changed")
	require.NoError(t, err)
	assert.Equal(t, []string{"on_a", "on_b"}, f.log.methods())
}

func TestConnectFlagsString(t *testing.T) {
	assert.Equal(t, "", ConnectFlags(0).String())
	assert.Equal(t, "deferred|one_shot", (ConnectDeferred | ConnectOneShot).String())

	f, ok := ParseConnectFlag("reference_counted")
	assert.True(t, ok)
	assert.Equal(t, ConnectReferenceCounted, f)
	_, ok = ParseConnectFlag("sticky")
	assert.False(t, ok)
}
