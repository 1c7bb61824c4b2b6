package domain

import "fmt"

// RunState is a state of the orchestrator's per-run state machine.
type RunState string

// Run states in order of progression.
const (
	RunIdle        RunState = "idle"
	RunFetching    RunState = "fetching"
	RunEnhancing   RunState = "enhancing"
	RunClassifying RunState = "classifying"
	RunValidating  RunState = "validating"
	RunWriting     RunState = "writing"
	RunDone        RunState = "done"
	RunFailed      RunState = "failed"
)

// String returns the string representation.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal reports whether the run has finished.
func (s RunState) IsTerminal() bool {
	return s == RunDone || s == RunFailed
}

// next maps each non-terminal state to its single successor.
var next = map[RunState]RunState{
	RunIdle:        RunFetching,
	RunFetching:    RunEnhancing,
	RunEnhancing:   RunClassifying,
	RunClassifying: RunValidating,
	RunValidating:  RunWriting,
	RunWriting:     RunDone,
}

// CanTransition reports whether from -> to is allowed. Stages advance
// strictly in order; Failed is reachable from every non-terminal state.
func CanTransition(from, to RunState) bool {
	if from.IsTerminal() {
		return false
	}
	if to == RunFailed {
		return true
	}
	return next[from] == to
}

// RunMachine tracks a run's current state and rejects out-of-order transitions.
type RunMachine struct {
	state   RunState
	history []RunState
}

// NewRunMachine starts a machine in Idle.
func NewRunMachine() *RunMachine {
	return &RunMachine{state: RunIdle, history: []RunState{RunIdle}}
}

// State returns the current state.
func (m *RunMachine) State() RunState {
	return m.state
}

// History returns every state entered, in order.
func (m *RunMachine) History() []RunState {
	out := make([]RunState, len(m.history))
	copy(out, m.history)
	return out
}

// Advance moves to the given state.
func (m *RunMachine) Advance(to RunState) error {
	if !CanTransition(m.state, to) {
		return fmt.Errorf("disallowed run transition: %s -> %s", m.state, to)
	}
	m.state = to
	m.history = append(m.history, to)
	return nil
}

// Fail moves to Failed from any non-terminal state and returns the tagged error.
func (m *RunMachine) Fail(err error) *RunError {
	runErr := &RunError{State: m.state, Err: err}
	if !m.state.IsTerminal() {
		m.state = RunFailed
		m.history = append(m.history, RunFailed)
	}
	return runErr
}
