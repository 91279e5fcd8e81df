package models

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunningExecution() *Execution {
	workflow := &Workflow{
		ID:        "wf-1",
		Variables: map[string]any{"region": "eu"},
		Steps:     []*WorkflowStep{{ID: "s1"}, {ID: "s2"}, {ID: "s3"}},
	}

	execution := NewExecution(workflow, "user-1", "manual", nil)
	execution.Begin()

	return execution
}

func TestExecutionRecordStepCollectsErrors(t *testing.T) {
	execution := newRunningExecution()

	execution.RecordStep(StepResult{Index: 0, StepID: "s1", Success: true})
	execution.RecordStep(StepResult{Index: 1, StepID: "s2", Success: false, Error: "element not found"})
	execution.RecordError("step 1 requested skip to invalid index 9")

	snapshot := execution.Snapshot()
	assert.Equal(t, 1, snapshot.StepsCompleted)
	assert.Equal(t, 1, snapshot.StepsFailed)

	assert.Equal(t, "step 1 requested skip to invalid index 9", execution.LastError())
}

func TestExecutionFinishMakesTerminal(t *testing.T) {
	execution := newRunningExecution()
	assert.False(t, execution.Terminal())

	execution.Finish(ExecutionStatusCompleted)

	assert.True(t, execution.Terminal())
	assert.NotNil(t, execution.FinishedAt)
	assert.Greater(t, execution.Duration(), time.Duration(0))
}

func TestExecutionEnsureCancelReasonKeepsExisting(t *testing.T) {
	execution := newRunningExecution()

	execution.SetCancelReason("operator request")
	assert.Equal(t, "operator request", execution.EnsureCancelReason("shutdown"))

	other := newRunningExecution()
	assert.Equal(t, "shutdown", other.EnsureCancelReason("shutdown"))
}

// Status queries and persistence snapshots arrive from other goroutines while
// the owning runner is still recording steps; none of that may trip the race
// detector or observe torn state.
func TestExecutionSnapshotDuringConcurrentRecording(t *testing.T) {
	execution := newRunningExecution()

	done := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for i := range 500 {
			execution.AdvanceTo(i)
			execution.RecordStep(StepResult{Index: i, StepID: "s1", Success: i%3 != 0, Error: "boom"})
			execution.MergeVariables(map[string]any{"iteration": i})
		}

		execution.Finish(ExecutionStatusCompleted)
		close(done)
	}()

	lastSeen := 0

	for {
		snapshot := execution.Snapshot()
		recorded := snapshot.StepsCompleted + snapshot.StepsFailed
		assert.GreaterOrEqual(t, recorded, lastSeen)
		lastSeen = recorded

		execution.Terminal()

		if _, err := json.Marshal(execution); err != nil {
			t.Errorf("marshal during recording: %v", err)
		}

		clone := execution.Clone()
		assert.Equal(t, execution.ID, clone.ID)

		select {
		case <-done:
			wg.Wait()

			final := execution.Snapshot()
			assert.Equal(t, ExecutionStatusCompleted, final.Status)
			assert.Equal(t, 500, final.StepsCompleted+final.StepsFailed)

			return
		default:
		}
	}
}

func TestExecutionCloneIsDetached(t *testing.T) {
	execution := newRunningExecution()
	execution.RecordStep(StepResult{Index: 0, StepID: "s1", Success: true})

	clone := execution.Clone()

	execution.MergeVariables(map[string]any{"region": "us"})
	execution.RecordStep(StepResult{Index: 1, StepID: "s2", Success: true})

	assert.Equal(t, "eu", clone.Variables["region"])
	assert.Len(t, clone.StepResults, 1)
}

func TestExecutionMarshalRoundTrip(t *testing.T) {
	execution := newRunningExecution()
	execution.RecordStep(StepResult{Index: 0, StepID: "s1", Success: true})
	execution.Finish(ExecutionStatusCompleted)

	data, err := json.Marshal(execution)
	require.NoError(t, err)

	loaded := &Execution{}
	require.NoError(t, json.Unmarshal(data, loaded))

	assert.Equal(t, execution.ID, loaded.ID)
	assert.Equal(t, ExecutionStatusCompleted, loaded.Status)
	assert.Len(t, loaded.StepResults, 1)
}
