package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objcore/internal/store"
)

const oneShotScenario = `name: one_shot
description: "A one-shot connection fires on the first emission only"
classes: [classes.cue]
objects:
  - {name: src, class: Emitter}
  - {name: dst, class: Receiver}
steps:
  - {op: connect, object: src, signal: fired, target: dst, method: on_fired, flags: [one_shot]}
  - {op: emit, object: src, signal: fired, args: [1]}
  - {op: emit, object: src, signal: fired, args: [2]}
  - {op: is_connected, object: src, signal: fired, target: dst, method: on_fired, expect: {ok: false}}
assertions:
  - {type: call_count, object: dst, method: on_fired, count: 1}
`

const deferredScenario = `name: deferred
description: "A deferred call is journaled when queued and when flushed"
classes: [classes.cue]
objects:
  - {name: src, class: Emitter}
  - {name: dst, class: Receiver}
  - {name: gone, class: Receiver}
steps:
  - {op: connect, object: src, signal: fired, target: dst, method: on_fired, flags: [deferred]}
  - {op: connect, object: src, signal: done, target: gone, method: on_done}
  - {op: free, object: gone}
  - {op: emit, object: src, signal: fired, args: [5]}
  - {op: emit, object: src, signal: done}
  - {op: flush_deferred, expect: {count: 1}}
`

const failingScenario = `name: failing
description: "Expects a connection that was never made"
classes: [classes.cue]
objects:
  - {name: src, class: Emitter}
  - {name: dst, class: Receiver}
steps:
  - {op: is_connected, object: src, signal: fired, target: dst, method: on_fired, expect: {ok: true}}
`

// writeScenario writes the fixture classes and one scenario into a fresh
// directory and returns the scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := writeClasses(t)
	return writeFile(t, dir, "scenario.yaml", content)
}

// journalScenario runs a scenario with --db and a fixed run id.
func journalScenario(t *testing.T, dbPath, scenario, runID string) {
	t.Helper()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		RunIDs:      store.NewFixedGenerator(runID),
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, runScenario(opts, writeScenario(t, scenario), cmd))
}

func TestRunCommand_Text(t *testing.T) {
	path := writeScenario(t, oneShotScenario)

	out, err := executeCommand(t, "run", path)
	require.NoError(t, err)

	assert.Contains(t, out, "PASS one_shot\n")
	assert.NotContains(t, out, "Run:", "nothing is journaled without --db")
	assert.Contains(t, out, "[1] emit src.fired [1]\n")
	assert.Contains(t, out, "      call dst.on_fired [1]\n")
	assert.Contains(t, out, "[2] dispatch #1 fired -> Receiver::on_fired ok\n")
	assert.Contains(t, out, "[3] emit src.fired [2]\n")
	assert.NotContains(t, out, "=== Failures ===")
}

func TestRunCommand_JSON(t *testing.T) {
	path := writeScenario(t, oneShotScenario)

	out, err := executeCommand(t, "--format", "json", "run", path)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Scenario string           `json:"scenario"`
			Pass     bool             `json:"pass"`
			RunID    string           `json:"run_id"`
			Trace    []map[string]any `json:"trace"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "one_shot", resp.Data.Scenario)
	assert.True(t, resp.Data.Pass)
	assert.Empty(t, resp.Data.RunID)

	require.Len(t, resp.Data.Trace, 4)
	assert.Equal(t, "emission", resp.Data.Trace[0]["type"])
	assert.Equal(t, "call", resp.Data.Trace[1]["type"])
	assert.Equal(t, "dispatch", resp.Data.Trace[2]["type"])
	assert.Equal(t, "Receiver::on_fired", resp.Data.Trace[2]["callable"])
	assert.Equal(t, float64(1), resp.Data.Trace[2]["emission_seq"])
	assert.Equal(t, []any{float64(2)}, resp.Data.Trace[3]["args"])
}

func TestRunCommand_FailedScenario(t *testing.T) {
	path := writeScenario(t, failingScenario)

	out, err := executeCommand(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario failing failed")

	assert.Contains(t, out, "FAIL failing\n")
	assert.Contains(t, out, "=== Failures ===")
	assert.Contains(t, out, "expected ok=true, got false")
}

func TestRunCommand_DanglingAndDeferred(t *testing.T) {
	path := writeScenario(t, deferredScenario)

	out, err := executeCommand(t, "run", path)
	require.NoError(t, err)

	assert.Contains(t, out, "-> Receiver::on_fired deferred\n")
	assert.Contains(t, out, "fired -> Receiver::on_fired ok\n")
	assert.Contains(t, out, "done -> ObjectID(3)::on_done dangling\n")
}

func TestRunCommand_ScenarioErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantOut string
		wantErr string
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
			wantOut: "Error [E007]",
			wantErr: "failed to load scenario",
		},
		{
			name: "invalid scenario",
			path: func(t *testing.T) string {
				return writeScenario(t, "name: broken\nobjects: []\n")
			},
			wantOut: "Error [E007]",
			wantErr: "failed to load scenario",
		},
		{
			name: "unknown class",
			path: func(t *testing.T) string {
				return writeScenario(t, `name: unknown_class
description: "declares an object of an undeclared class"
classes: [classes.cue]
objects: [{name: a, class: Door}]
steps: [{op: free, object: a}]
`)
			},
			wantOut: "Error [E001]",
			wantErr: "failed to run scenario",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, "run", tt.path(t))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestRunCommand_JournalsToDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trace.db")
	path := writeScenario(t, oneShotScenario)

	out, err := executeCommand(t, "run", "--db", dbPath, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Run: ")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ReadRuns(t.Context())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "one_shot", runs[0].Name)
	assert.Contains(t, out, "Run: "+runs[0].ID)

	emissions, err := st.ReadEmissions(t.Context(), runs[0].ID, "")
	require.NoError(t, err)
	assert.Len(t, emissions, 2)
}

func TestRunCommand_DatabaseOpenError(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "trace.db")
	path := writeScenario(t, oneShotScenario)

	out, err := executeCommand(t, "--format", "json", "run", "--db", dbPath, path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeJournal, resp.Error.Code)
}
