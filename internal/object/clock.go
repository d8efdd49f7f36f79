package object

import "sync/atomic"

// Clock stamps emissions and dispatches with strictly increasing sequence
// numbers, so traces order deterministically without wall-clock time.
type Clock interface {
	Next() int64
}

// SeqClock is the default Clock. Safe for concurrent use.
type SeqClock struct {
	seq atomic.Int64
}

// NewSeqClock creates a clock starting at 0.
func NewSeqClock() *SeqClock {
	return &SeqClock{}
}

// NewSeqClockAt creates a clock whose next value is start+1. Used to resume
// numbering after the last sequence stored in a trace journal.
func NewSeqClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}
