package testutil

// DefaultRunID is returned by a FixedRunIDGenerator built with an empty id.
const DefaultRunID = "00000000-0000-7000-8000-000000000000"

// FixedRunIDGenerator returns the same run id every time, so journals
// written by repeated test runs compare byte for byte.
//
// Unlike store.FixedGenerator, which hands out ids in sequence, this one
// never runs out.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. An empty id selects
// DefaultRunID.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
