package object

import "strconv"

// ObjectID identifies an instance within a DB.
//
// The low 32 bits hold the slot index plus one and the high 32 bits hold the
// slot generation. A freed slot is reused with a bumped generation, so an id
// that outlived its object never resolves again. The zero ObjectID is null.
type ObjectID uint64

func makeObjectID(slot, generation uint32) ObjectID {
	return ObjectID(uint64(generation)<<32 | uint64(slot+1))
}

// IsNull reports whether id is the null id.
func (id ObjectID) IsNull() bool {
	return id == 0
}

// Slot returns the slot index, or -1 for the null id.
func (id ObjectID) Slot() int {
	low := uint32(id)
	if low == 0 {
		return -1
	}
	return int(low - 1)
}

// Generation returns the slot generation the id was issued for.
func (id ObjectID) Generation() uint32 {
	return uint32(id >> 32)
}

func (id ObjectID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
