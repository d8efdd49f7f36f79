package object

import (
	"log/slog"
	"sync"

	"github.com/roach88/objcore/internal/classdb"
	"github.com/roach88/objcore/internal/variant"
)

// DB is an instance database. It owns the id table, the class registry used
// to resolve class names, and the queue of deferred calls.
type DB struct {
	classes *classdb.DB
	logger  *slog.Logger
	tracer  Tracer
	clock   Clock

	mu    sync.RWMutex
	slots []slot
	free  []uint32

	qmu      sync.Mutex
	deferred []deferredCall
}

type slot struct {
	obj        *Object
	generation uint32
}

type deferredCall struct {
	emissionSeq int64
	source      ObjectID
	signal      string
	callable    Callable
	args        []variant.Value
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger for runtime diagnostics.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		db.logger = logger
	}
}

// WithClassDB sets the class registry. The root "Object" class is registered
// into it if missing.
// Default: classdb.Default().
func WithClassDB(classes *classdb.DB) Option {
	return func(db *DB) {
		db.classes = classes
	}
}

// WithTracer sets the observer of emissions and dispatches.
func WithTracer(tracer Tracer) Option {
	return func(db *DB) {
		db.tracer = tracer
	}
}

// WithClock sets the sequence source for traces.
// Default: a fresh SeqClock.
func WithClock(clock Clock) Option {
	return func(db *DB) {
		db.clock = clock
	}
}

var (
	defaultOnce sync.Once
	defaultDB   *DB
)

// Default returns the process-wide DB, backed by classdb.Default().
func Default() *DB {
	defaultOnce.Do(func() {
		defaultDB = NewDB()
	})
	return defaultDB
}

// NewDB creates an isolated instance database.
func NewDB(opts ...Option) *DB {
	db := &DB{
		classes: classdb.Default(),
		tracer:  nopTracer{},
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = slog.Default()
	}
	if db.clock == nil {
		db.clock = NewSeqClock()
	}
	if db.tracer == nil {
		db.tracer = nopTracer{}
	}
	if _, ok := db.classes.Lookup(RootClass); !ok {
		if err := RegisterRoot(db.classes); err != nil {
			db.logger.Error("register root class failed", "error", err)
		}
	}
	return db
}

// New creates an instance of the root class in the process-wide DB.
func New() *Object {
	return Default().New()
}

// Classes returns the class registry used by db.
func (db *DB) Classes() *classdb.DB {
	return db.classes
}

// Logger returns the logger used for runtime diagnostics.
func (db *DB) Logger() *slog.Logger {
	return db.logger
}

// New creates an instance of the root class.
func (db *DB) New() *Object {
	class, _ := db.classes.Lookup(RootClass)
	return db.instantiate(class)
}

// NewOfClass creates an instance of a registered class.
func (db *DB) NewOfClass(name string) (*Object, error) {
	class, ok := db.classes.Lookup(name)
	if !ok {
		err := ErrNotFound.New("class %q is not registered", name)
		db.logger.Warn("instantiate failed", "class", name, "error", err)
		return nil, err
	}
	return db.instantiate(class), nil
}

func (db *DB) instantiate(class *classdb.Class) *Object {
	o := &Object{
		db:    db,
		class: class,
	}

	db.mu.Lock()
	var idx uint32
	if n := len(db.free); n > 0 {
		idx = db.free[n-1]
		db.free = db.free[:n-1]
	} else {
		idx = uint32(len(db.slots))
		db.slots = append(db.slots, slot{})
	}
	db.slots[idx].obj = o
	o.id = makeObjectID(idx, db.slots[idx].generation)
	db.mu.Unlock()

	mon.Counter("objects_created").Inc(1)
	return o
}

// release invalidates id. Reports false if id was not live.
func (db *DB) release(id ObjectID) bool {
	idx := id.Slot()
	db.mu.Lock()
	defer db.mu.Unlock()
	if idx < 0 || idx >= len(db.slots) {
		return false
	}
	s := &db.slots[idx]
	if s.obj == nil || s.generation != id.Generation() {
		return false
	}
	s.obj = nil
	s.generation++
	db.free = append(db.free, uint32(idx))
	mon.Counter("objects_freed").Inc(1)
	return true
}

// Lookup resolves id to its live instance, or nil if id is null, stale, or
// was issued by another DB.
func (db *DB) Lookup(id ObjectID) *Object {
	idx := id.Slot()
	db.mu.RLock()
	defer db.mu.RUnlock()
	if idx < 0 || idx >= len(db.slots) {
		return nil
	}
	s := db.slots[idx]
	if s.generation != id.Generation() {
		return nil
	}
	return s.obj
}

// IsAlive reports whether id resolves to a live instance.
func (db *DB) IsAlive(id ObjectID) bool {
	return db.Lookup(id) != nil
}

// Count returns the number of live instances.
func (db *DB) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.slots) - len(db.free)
}

// Objects returns the live instances in slot order.
func (db *DB) Objects() []*Object {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*Object, 0, len(db.slots)-len(db.free))
	for _, s := range db.slots {
		if s.obj != nil {
			out = append(out, s.obj)
		}
	}
	return out
}

// Callable returns a method callable on the instance with the given id. The
// id need not be live.
func (db *DB) Callable(target ObjectID, method string) Callable {
	if target.IsNull() {
		return Callable{}
	}
	return Callable{db: db, target: target, method: method}
}

func (db *DB) enqueue(call deferredCall) {
	db.qmu.Lock()
	db.deferred = append(db.deferred, call)
	db.qmu.Unlock()
	mon.Counter("deferred_queued", signalTag(call.signal)).Inc(1)
}

// PendingDeferred returns the number of queued deferred calls.
func (db *DB) PendingDeferred() int {
	db.qmu.Lock()
	defer db.qmu.Unlock()
	return len(db.deferred)
}

// FlushDeferred runs queued deferred calls in the order they were queued,
// including calls queued by the calls it runs, until the queue is empty. It
// returns the number of calls attempted.
//
// A call whose target was freed after queuing is skipped and logged. The
// call itself is never retried.
func (db *DB) FlushDeferred() int {
	n := 0
	for {
		db.qmu.Lock()
		batch := db.deferred
		db.deferred = nil
		db.qmu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, call := range batch {
			n++
			db.runDeferred(call)
		}
	}
}

func (db *DB) runDeferred(call deferredCall) {
	d := Dispatch{
		Seq:         db.clock.Next(),
		EmissionSeq: call.emissionSeq,
		Source:      call.source,
		Signal:      call.signal,
		Target:      call.callable.target,
		Callable:    call.callable.String(),
		Outcome:     OutcomeOK,
	}
	if !call.callable.isCustom() && !db.IsAlive(call.callable.target) {
		d.Outcome = OutcomeDangling
		mon.Event("dangling_target", signalTag(call.signal))
		db.logger.Warn("deferred call skipped: target freed",
			"source", call.source,
			"signal", call.signal,
			"callable", d.Callable,
		)
		db.tracer.TraceDispatch(d)
		return
	}
	if _, err := call.callable.Call(call.args...); err != nil {
		d.Outcome = OutcomeError
		d.Error = err.Error()
		mon.Counter("dispatch_failures", signalTag(call.signal)).Inc(1)
		db.logger.Error("deferred call failed",
			"source", call.source,
			"signal", call.signal,
			"callable", d.Callable,
			"error", err,
		)
	}
	mon.Counter("dispatches", signalTag(call.signal)).Inc(1)
	db.tracer.TraceDispatch(d)
}

// IncomingConnections scans every live instance for connections whose
// callable targets id. Per-instance tables are read without locking, so the
// scan must not run concurrently with mutation of any instance.
func (db *DB) IncomingConnections(id ObjectID) []IncomingConnection {
	var out []IncomingConnection
	for _, src := range db.Objects() {
		for _, signal := range src.conns.order {
			for _, c := range src.conns.bySignal[signal] {
				if c.callable.db == db && c.callable.target == id {
					out = append(out, IncomingConnection{Source: src.id, Connection: c.export()})
				}
			}
		}
	}
	return out
}
