package tap

import (
	"fmt"
	"sync"
)

// State represents one of the 16 defined IEEE 1149.1 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR
)

var stateNames = [...]string{
	StateTestLogicReset: "TestLogicReset",
	StateRunTestIdle:    "RunTestIdle",
	StateSelectDRScan:   "SelectDRScan",
	StateCaptureDR:      "CaptureDR",
	StateShiftDR:        "ShiftDR",
	StateExit1DR:        "Exit1DR",
	StatePauseDR:        "PauseDR",
	StateExit2DR:        "Exit2DR",
	StateUpdateDR:       "UpdateDR",
	StateSelectIRScan:   "SelectIRScan",
	StateCaptureIR:      "CaptureIR",
	StateShiftIR:        "ShiftIR",
	StateExit1IR:        "Exit1IR",
	StatePauseIR:        "PauseIR",
	StateExit2IR:        "Exit2IR",
	StateUpdateIR:       "UpdateIR",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

func (s State) valid() bool { return int(s) < len(stateNames) }

// Phase is the coarse view of the controller used by the bit-banging
// sequencer. Only three phases are ever resting points between operations.
type Phase uint8

const (
	// PhaseTransient covers the Select, Exit and Pause states, which the
	// sequencer only passes through.
	PhaseTransient Phase = iota
	PhaseReset
	PhaseIdle
	PhaseShifting
)

func (p Phase) String() string {
	switch p {
	case PhaseReset:
		return "Reset"
	case PhaseIdle:
		return "Idle"
	case PhaseShifting:
		return "Shifting"
	default:
		return "Transient"
	}
}

// PhaseOf maps an exact controller state onto its phase. Update-xR counts as
// idle: one more TMS=0 clock reaches Run-Test/Idle and a scan can be entered
// directly from it.
func PhaseOf(s State) Phase {
	switch s {
	case StateTestLogicReset:
		return PhaseReset
	case StateRunTestIdle, StateUpdateDR, StateUpdateIR:
		return PhaseIdle
	case StateCaptureDR, StateShiftDR, StateCaptureIR, StateShiftIR:
		return PhaseShifting
	default:
		return PhaseTransient
	}
}

type stateTransitions struct {
	onZero State
	onOne  State
}

var transitions = [...]stateTransitions{
	StateTestLogicReset: {onZero: StateRunTestIdle, onOne: StateTestLogicReset},
	StateRunTestIdle:    {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectDRScan:   {onZero: StateCaptureDR, onOne: StateSelectIRScan},
	StateCaptureDR:      {onZero: StateShiftDR, onOne: StateExit1DR},
	StateShiftDR:        {onZero: StateShiftDR, onOne: StateExit1DR},
	StateExit1DR:        {onZero: StatePauseDR, onOne: StateUpdateDR},
	StatePauseDR:        {onZero: StatePauseDR, onOne: StateExit2DR},
	StateExit2DR:        {onZero: StateShiftDR, onOne: StateUpdateDR},
	StateUpdateDR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectIRScan:   {onZero: StateCaptureIR, onOne: StateTestLogicReset},
	StateCaptureIR:      {onZero: StateShiftIR, onOne: StateExit1IR},
	StateShiftIR:        {onZero: StateShiftIR, onOne: StateExit1IR},
	StateExit1IR:        {onZero: StatePauseIR, onOne: StateUpdateIR},
	StatePauseIR:        {onZero: StatePauseIR, onOne: StateExit2IR},
	StateExit2IR:        {onZero: StateShiftIR, onOne: StateUpdateIR},
	StateUpdateIR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
}

// NextState returns the next TAP state after clocking TCK with the provided TMS
// value. It panics if an invalid state is supplied, which should never happen
// when interacting through the exported API.
func NextState(current State, tms bool) State {
	if !current.valid() {
		panic(fmt.Sprintf("tap: unhandled state %d", current))
	}
	if tms {
		return transitions[current].onOne
	}
	return transitions[current].onZero
}

// StateMachine tracks the TAP controller state locally. It does not perform any
// I/O; the sequencer clocks it in lockstep with the pins it drives.
type StateMachine struct {
	state State
}

// NewStateMachine creates a TAP state machine initialized to Test-Logic-Reset.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateTestLogicReset}
}

// State reports the current TAP state tracked by the machine.
func (m *StateMachine) State() State {
	return m.state
}

// Clock advances the machine one TCK cycle with the provided TMS bit and
// returns the new state.
func (m *StateMachine) Clock(tms bool) State {
	m.state = NextState(m.state, tms)
	return m.state
}

// Reset applies the IEEE recommendation of clocking five consecutive TMS=1
// cycles, which reaches Test-Logic-Reset from any state.
func (m *StateMachine) Reset() []bool {
	tms := make([]bool, 5)
	for i := range tms {
		tms[i] = true
		m.Clock(true)
	}
	return tms
}

// ForceReset models an asynchronous TRST assertion.
func (m *StateMachine) ForceReset() {
	m.state = StateTestLogicReset
}

// GoTo computes the shortest TMS sequence to the target state, clocks the
// machine along it and returns it.
func (m *StateMachine) GoTo(target State) ([]bool, error) {
	tms, err := Path(m.state, target)
	if err != nil {
		return nil, err
	}
	for _, bit := range tms {
		m.Clock(bit)
	}
	return tms, nil
}

type edge struct{ from, to State }

var (
	pathMu    sync.Mutex
	pathCache = map[edge][]bool{}
)

// Path returns the shortest TMS sequence leading from one state to another.
// Results are memoized; callers must not modify the returned slice.
func Path(from, to State) ([]bool, error) {
	pathMu.Lock()
	defer pathMu.Unlock()
	if tms, ok := pathCache[edge{from, to}]; ok {
		return tms, nil
	}
	tms, err := computePath(from, to)
	if err != nil {
		return nil, err
	}
	pathCache[edge{from, to}] = tms
	return tms, nil
}

// computePath uses BFS across the TAP state diagram to find the shortest set of
// transitions between two states.
func computePath(from, to State) ([]bool, error) {
	if !from.valid() {
		return nil, fmt.Errorf("tap: invalid start state %d", from)
	}
	if !to.valid() {
		return nil, fmt.Errorf("tap: invalid target state %d", to)
	}
	if from == to {
		return []bool{}, nil
	}

	type node struct {
		state State
		tms   []bool
	}

	queue := []node{{state: from}}
	visited := map[State]bool{from: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, bit := range [2]bool{false, true} {
			next := NextState(current.state, bit)
			if visited[next] {
				continue
			}
			tms := append(append([]bool{}, current.tms...), bit)
			if next == to {
				return tms, nil
			}
			visited[next] = true
			queue = append(queue, node{state: next, tms: tms})
		}
	}

	return nil, fmt.Errorf("tap: no path from %s to %s", from, to)
}
