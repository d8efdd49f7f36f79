package store

// Run is one journaled execution.
type Run struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EmissionRecord is a journaled emission. Args holds the canonical JSON
// array of the emission arguments.
type EmissionRecord struct {
	ID     string `json:"id"`
	RunID  string `json:"run_id"`
	Seq    int64  `json:"seq"`
	Source uint64 `json:"source"`
	Class  string `json:"class"`
	Signal string `json:"signal"`
	Args   string `json:"args"`
}

// DispatchRecord is a journaled dispatch of an emission to one connection.
type DispatchRecord struct {
	ID          string `json:"id"`
	RunID       string `json:"run_id"`
	Seq         int64  `json:"seq"`
	EmissionSeq int64  `json:"emission_seq"`
	Target      uint64 `json:"target"`
	Callable    string `json:"callable"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
}
