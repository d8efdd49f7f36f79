package object

import (
	"slices"
	"strings"

	"github.com/roach88/objcore/internal/classdb"
	"github.com/roach88/objcore/internal/variant"
)

// ConnectFlags modify how a connection is dispatched.
type ConnectFlags uint32

const (
	// ConnectDeferred queues the call on the DB instead of running it during
	// the emission. DB.FlushDeferred runs the queue.
	ConnectDeferred ConnectFlags = 1 << iota

	// ConnectOneShot disconnects the connection right before its first
	// dispatch.
	ConnectOneShot

	// ConnectReferenceCounted lets the same pair be connected repeatedly.
	// Each connect adds a reference and each disconnect drops one; the
	// connection is removed when the count reaches zero.
	ConnectReferenceCounted
)

var flagNames = []struct {
	flag ConnectFlags
	name string
}{
	{ConnectDeferred, "deferred"},
	{ConnectOneShot, "one_shot"},
	{ConnectReferenceCounted, "reference_counted"},
}

// ParseConnectFlag returns the flag with the given snake_case name.
func ParseConnectFlag(name string) (ConnectFlags, bool) {
	for _, f := range flagNames {
		if f.name == name {
			return f.flag, true
		}
	}
	return 0, false
}

func (f ConnectFlags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Connection is a snapshot of one entry in a signal's connection list.
type Connection struct {
	Signal   string
	Callable Callable
	Flags    ConnectFlags
	RefCount int
}

// IncomingConnection is a connection on Source whose callable targets
// another instance.
type IncomingConnection struct {
	Source ObjectID
	Connection
}

type connection struct {
	signal   string
	callable Callable
	flags    ConnectFlags
	refs     int

	// removed is set when the connection leaves the table, so an emission
	// iterating a snapshot can skip it.
	removed bool
}

func (c *connection) export() Connection {
	return Connection{
		Signal:   c.signal,
		Callable: c.callable,
		Flags:    c.flags,
		RefCount: c.refs,
	}
}

// connectionTable holds each signal's connections in connection order.
type connectionTable struct {
	bySignal map[string][]*connection
	order    []string
}

func (t *connectionTable) find(signal string, callable Callable) *connection {
	for _, c := range t.bySignal[signal] {
		if c.callable == callable {
			return c
		}
	}
	return nil
}

func (t *connectionTable) add(c *connection) {
	if t.bySignal == nil {
		t.bySignal = make(map[string][]*connection)
	}
	if _, ok := t.bySignal[c.signal]; !ok {
		t.order = append(t.order, c.signal)
	}
	t.bySignal[c.signal] = append(t.bySignal[c.signal], c)
}

func (t *connectionTable) remove(c *connection) {
	list := t.bySignal[c.signal]
	i := slices.Index(list, c)
	if i < 0 {
		return
	}
	c.removed = true
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(t.bySignal, c.signal)
		if j := slices.Index(t.order, c.signal); j >= 0 {
			t.order = slices.Delete(t.order, j, j+1)
		}
		return
	}
	t.bySignal[c.signal] = list
}

func (t *connectionTable) reset() {
	for _, list := range t.bySignal {
		for _, c := range list {
			c.removed = true
		}
	}
	t.bySignal = nil
	t.order = nil
}

// Connect binds callable to signal. Flags are combined.
//
// A null callable or a signal that is neither declared by the class chain
// nor added with AddUserSignal yields ErrInvalidArgument. Connecting the same
// pair twice yields ErrAlreadyConnected unless both connects pass
// ConnectReferenceCounted.
func (o *Object) Connect(signal string, callable Callable, flags ...ConnectFlags) error {
	var f ConnectFlags
	for _, fl := range flags {
		f |= fl
	}

	if err := o.checkLive("connect"); err != nil {
		return err
	}
	if callable.IsNull() {
		err := ErrInvalidArgument.New("cannot connect to %q of %s: callable is null", signal, o.ClassName())
		o.logError("connect failed", signal, callable, err)
		return err
	}
	if !o.HasSignal(signal) {
		err := ErrInvalidArgument.New("cannot connect to nonexistent signal %q of %s", signal, o.ClassName())
		o.logError("connect failed", signal, callable, err)
		return err
	}

	if existing := o.conns.find(signal, callable); existing != nil {
		if f&ConnectReferenceCounted != 0 && existing.flags&ConnectReferenceCounted != 0 {
			existing.refs++
			return nil
		}
		err := ErrAlreadyConnected.New("signal %q of %s is already connected to %s", signal, o.ClassName(), callable)
		o.logError("connect failed", signal, callable, err)
		return err
	}

	o.conns.add(&connection{signal: signal, callable: callable, flags: f, refs: 1})
	mon.Counter("connections_made", signalTag(signal)).Inc(1)
	return nil
}

// Disconnect removes the binding of callable to signal. A reference counted
// connection only drops one reference.
func (o *Object) Disconnect(signal string, callable Callable) error {
	if err := o.checkLive("disconnect"); err != nil {
		return err
	}
	if callable.IsNull() {
		err := ErrInvalidArgument.New("cannot disconnect from %q of %s: callable is null", signal, o.ClassName())
		o.logError("disconnect failed", signal, callable, err)
		return err
	}
	if !o.HasSignal(signal) {
		err := ErrInvalidArgument.New("cannot disconnect from nonexistent signal %q of %s", signal, o.ClassName())
		o.logError("disconnect failed", signal, callable, err)
		return err
	}
	c := o.conns.find(signal, callable)
	if c == nil {
		err := ErrNotFound.New("signal %q of %s is not connected to %s", signal, o.ClassName(), callable)
		o.logError("disconnect failed", signal, callable, err)
		return err
	}
	o.dropReference(c)
	return nil
}

// DisconnectMethod removes every binding of signal to method on target,
// whatever arguments the callables were bound with.
func (o *Object) DisconnectMethod(signal string, target ObjectID, method string) error {
	if err := o.checkLive("disconnect"); err != nil {
		return err
	}
	var matched []*connection
	for _, c := range o.conns.bySignal[signal] {
		if !c.callable.isCustom() && c.callable.db == o.db && c.callable.target == target && c.callable.method == method {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		callable := o.db.Callable(target, method)
		err := ErrNotFound.New("signal %q of %s is not connected to %s", signal, o.ClassName(), callable)
		o.logError("disconnect failed", signal, callable, err)
		return err
	}
	for _, c := range matched {
		o.dropReference(c)
	}
	return nil
}

func (o *Object) dropReference(c *connection) {
	c.refs--
	if c.refs > 0 {
		return
	}
	o.conns.remove(c)
	mon.Counter("connections_removed", signalTag(c.signal)).Inc(1)
}

// IsConnected reports whether callable is bound to signal. It never fails:
// a null callable or unknown signal is reported at debug level and yields
// false, so it is safe to call speculatively.
func (o *Object) IsConnected(signal string, callable Callable) bool {
	if o.freed {
		return false
	}
	if callable.IsNull() {
		o.db.logger.Debug("is_connected: callable is null", "object", o.id, "signal", signal)
		return false
	}
	if !o.HasSignal(signal) {
		o.db.logger.Debug("is_connected: nonexistent signal", "object", o.id, "class", o.ClassName(), "signal", signal)
		return false
	}
	return o.conns.find(signal, callable) != nil
}

// SignalConnectionList returns the connections of signal in connection order.
func (o *Object) SignalConnectionList(signal string) []Connection {
	list := o.conns.bySignal[signal]
	out := make([]Connection, 0, len(list))
	for _, c := range list {
		out = append(out, c.export())
	}
	return out
}

// ConnectionList returns every outgoing connection, grouped by signal in the
// order each signal was first connected.
func (o *Object) ConnectionList() []Connection {
	var out []Connection
	for _, signal := range o.conns.order {
		out = append(out, o.SignalConnectionList(signal)...)
	}
	return out
}

// IncomingConnections returns the connections of every instance of the same
// DB whose callables target o, including o's connections to itself.
func (o *Object) IncomingConnections() []IncomingConnection {
	return o.db.IncomingConnections(o.id)
}

// HasSignal reports whether the class chain declares signal or it was added
// with AddUserSignal. Malformed names simply miss.
func (o *Object) HasSignal(signal string) bool {
	if o.class.HasSignal(signal) {
		return true
	}
	_, ok := o.userSignals[signal]
	return ok
}

// HasUserSignal reports whether signal was added with AddUserSignal.
func (o *Object) HasUserSignal(signal string) bool {
	_, ok := o.userSignals[signal]
	return ok
}

// AddUserSignal declares a signal on this instance only.
func (o *Object) AddUserSignal(signal string, args ...classdb.ArgInfo) error {
	if err := o.checkLive("add_user_signal"); err != nil {
		return err
	}
	var err error
	switch {
	case signal == "":
		err = ErrInvalidArgument.New("user signal name is empty")
	case o.class.HasSignal(signal):
		err = ErrInvalidArgument.New("class %s already declares signal %q", o.ClassName(), signal)
	case o.HasUserSignal(signal):
		err = ErrInvalidArgument.New("user signal %q already exists on %s", signal, o.ClassName())
	}
	if err != nil {
		o.db.logger.Error("add user signal failed", "object", o.id, "signal", signal, "error", err)
		return err
	}
	if o.userSignals == nil {
		o.userSignals = make(map[string]classdb.SignalInfo)
	}
	info := classdb.SignalInfo{Name: signal, Args: append([]classdb.ArgInfo(nil), args...)}
	o.userSignals[signal] = info
	o.userSignalOrder = append(o.userSignalOrder, signal)
	return nil
}

// SetBlockSignals enables or disables emission from this instance.
func (o *Object) SetBlockSignals(block bool) {
	o.blocked = block
}

// IsBlockingSignals reports whether emission is blocked.
func (o *Object) IsBlockingSignals() bool {
	return o.blocked
}

// EmitSignal dispatches signal to every connection that exists when the
// emission starts, in connection order.
//
// While signals are blocked it returns nil without dispatching. A signal the
// instance does not have yields ErrInvalidArgument. Connections removed by an
// earlier callee in the same emission are skipped. A connection whose target
// was freed is pruned and skipped. A failing callee is logged and does not
// stop the emission; callee errors are not returned.
func (o *Object) EmitSignal(signal string, args ...variant.Value) error {
	if err := o.checkLive("emit_signal"); err != nil {
		return err
	}
	if o.blocked {
		mon.Counter("emissions_blocked", signalTag(signal)).Inc(1)
		return nil
	}
	if !o.HasSignal(signal) {
		err := ErrInvalidArgument.New("cannot emit nonexistent signal %q of %s", signal, o.ClassName())
		o.db.logger.Error("emit failed", "object", o.id, "class", o.ClassName(), "signal", signal, "error", err)
		return err
	}

	args = normalizeArgs(args)
	seq := o.db.clock.Next()
	o.db.tracer.TraceEmission(Emission{
		Seq:    seq,
		Source: o.id,
		Class:  o.ClassName(),
		Signal: signal,
		Args:   args,
	})
	mon.Counter("emissions", signalTag(signal)).Inc(1)

	snapshot := slices.Clone(o.conns.bySignal[signal])
	for _, c := range snapshot {
		if o.freed {
			break
		}
		if c.removed {
			continue
		}
		if c.flags&ConnectOneShot != 0 {
			o.conns.remove(c)
		}
		o.dispatch(seq, c, args)
	}
	return nil
}

func (o *Object) dispatch(emissionSeq int64, c *connection, args []variant.Value) {
	d := Dispatch{
		Seq:         o.db.clock.Next(),
		EmissionSeq: emissionSeq,
		Source:      o.id,
		Signal:      c.signal,
		Target:      c.callable.target,
		Callable:    c.callable.String(),
		Outcome:     OutcomeOK,
	}

	if !c.callable.isCustom() && !c.callable.db.IsAlive(c.callable.target) {
		o.conns.remove(c)
		d.Outcome = OutcomeDangling
		mon.Event("dangling_target", signalTag(c.signal))
		o.db.logger.Warn("connection target freed, pruned",
			"object", o.id,
			"signal", c.signal,
			"callable", d.Callable,
		)
		o.db.tracer.TraceDispatch(d)
		return
	}

	if c.flags&ConnectDeferred != 0 {
		o.db.enqueue(deferredCall{
			emissionSeq: emissionSeq,
			source:      o.id,
			signal:      c.signal,
			callable:    c.callable,
			args:        args,
		})
		d.Outcome = OutcomeDeferred
		o.db.tracer.TraceDispatch(d)
		return
	}

	if _, err := c.callable.Call(args...); err != nil {
		d.Outcome = OutcomeError
		d.Error = err.Error()
		mon.Counter("dispatch_failures", signalTag(c.signal)).Inc(1)
		o.db.logger.Error("signal callee failed",
			"object", o.id,
			"signal", c.signal,
			"callable", d.Callable,
			"error", err,
		)
	}
	mon.Counter("dispatches", signalTag(c.signal)).Inc(1)
	o.db.tracer.TraceDispatch(d)
}

func (o *Object) logError(msg, signal string, callable Callable, err error) {
	o.db.logger.Error(msg,
		"object", o.id,
		"class", o.ClassName(),
		"signal", signal,
		"callable", callable.String(),
		"error", err,
	)
}

func normalizeArgs(args []variant.Value) []variant.Value {
	out := make([]variant.Value, len(args))
	for i, a := range args {
		out[i] = variant.Normalize(a)
	}
	return out
}
