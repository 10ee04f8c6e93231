package grid_world

import (
	"errors"
	"fmt"
)

// State is a grid position. Its identity is purely positional; rewards and
// terminality are properties of the GridWorld, not of the State.
type State struct {
	X, Y int
}

func (s State) String() string {
	return fmt.Sprintf("(%d,%d)", s.X, s.Y)
}

// Action is a unit move in one of the four compass directions.
type Action rune

const (
	UP    Action = 'U'
	DOWN  Action = 'D'
	LEFT  Action = 'L'
	RIGHT Action = 'R'
)

// The fixed enumeration order of actions. Greedy selections break ties by this order.
var actions = []Action{UP, DOWN, LEFT, RIGHT}

func (a Action) String() string {
	return string(a)
}

// Arrow returns a printable arrow for the action, e.g. for short policy traces.
func (a Action) Arrow() string {
	switch a {
	case UP:
		return "↑"
	case DOWN:
		return "↓"
	case LEFT:
		return "←"
	case RIGHT:
		return "→"
	}
	return string(a)
}

// Cell configures a non-default grid position: its reward for stepping into it,
// and whether it ends an episode.
type Cell struct {
	X        int     `yaml:"x"`
	Y        int     `yaml:"y"`
	Reward   float64 `yaml:"reward"`
	Terminal bool    `yaml:"terminal"`
}

// ErrInvalidGrid is returned by New for bad dimensions or cells outside the grid.
var ErrInvalidGrid error = errors.New("invalid grid")

// GridWorld is a deterministic grid MDP. It is immutable once built, so a single
// instance may be read by any number of solvers at once.
type GridWorld struct {
	width, height int
	rewards       map[State]float64
	terminals     map[State]bool
	// states are ordered x-major, then y, e.g. (0,0), (0,1), ... (w-1,h-1).
	// Every sweep visits states in this order, so it determines in-place sweep counts.
	states []State
}

// New builds a width x height grid. Positions not named by cells have zero reward
// and are non-terminal.
func New(width, height int, cells []Cell) (*GridWorld, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidGrid, width, height)
	}

	gw := &GridWorld{
		width:     width,
		height:    height,
		rewards:   make(map[State]float64, len(cells)),
		terminals: make(map[State]bool, len(cells)),
		states:    make([]State, 0, width*height),
	}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			gw.states = append(gw.states, State{X: x, Y: y})
		}
	}

	for _, cell := range cells {
		s := State{X: cell.X, Y: cell.Y}
		if !gw.Contains(s) {
			return nil, fmt.Errorf("%w: cell %v outside %dx%d grid", ErrInvalidGrid, s, width, height)
		}
		gw.rewards[s] = cell.Reward
		if cell.Terminal {
			gw.terminals[s] = true
		}
	}

	return gw, nil
}

// ReferenceCells are the terminal cells of the classic 3x4 problem instance.
var ReferenceCells = []Cell{
	{X: 1, Y: 1, Reward: -10, Terminal: true},
	{X: 2, Y: 1, Reward: -20, Terminal: true},
	{X: 1, Y: 2, Reward: 10, Terminal: true},
	{X: 2, Y: 3, Reward: 20, Terminal: true},
}

const (
	REFERENCE_WIDTH  = 3
	REFERENCE_HEIGHT = 4
)

// Reference returns the 3 column by 4 row instance with two penalizing and two
// rewarding terminals.
func Reference() *GridWorld {
	gw, err := New(REFERENCE_WIDTH, REFERENCE_HEIGHT, ReferenceCells)
	if err != nil {
		// Unreachable; the reference cells are constant and in bounds.
		panic(err)
	}
	return gw
}

// Dims returns the width (columns) and height (rows) of the grid.
func (gw *GridWorld) Dims() (width, height int) {
	return gw.width, gw.height
}

// Contains reports whether s lies within the grid bounds.
func (gw *GridWorld) Contains(s State) bool {
	return s.X >= 0 && s.X < gw.width && s.Y >= 0 && s.Y < gw.height
}

// States returns every state in enumeration order.
func (gw *GridWorld) States() []State {
	return append([]State(nil), gw.states...)
}

// NonTerminalStates returns the actionable states in enumeration order.
func (gw *GridWorld) NonTerminalStates() (states []State) {
	for _, s := range gw.states {
		if !gw.terminals[s] {
			states = append(states, s)
		}
	}
	return
}

// Actions returns the action set in enumeration order.
func (gw *GridWorld) Actions() []Action {
	return append([]Action(nil), actions...)
}

func (gw *GridWorld) IsTerminal(s State) bool {
	return gw.terminals[s]
}

// Reward is the reward received upon entering s.
func (gw *GridWorld) Reward(s State) float64 {
	return gw.rewards[s]
}

// Transition returns the successor of s under a. Terminal states self-loop.
// Moves off the grid are clamped per axis, leaving that coordinate unchanged.
func (gw *GridWorld) Transition(s State, a Action) State {
	if gw.terminals[s] {
		return s
	}

	switch a {
	case UP:
		s.Y = min(s.Y+1, gw.height-1)
	case DOWN:
		s.Y = max(s.Y-1, 0)
	case LEFT:
		s.X = max(s.X-1, 0)
	case RIGHT:
		s.X = min(s.X+1, gw.width-1)
	}
	return s
}

// Returns reversed indices of a slice, e.g. for ranging over rows top-down.
func Rev(length int) []int {
	indices := make([]int, length)
	for i := 0; i < length; i++ {
		indices[i] = length - i - 1
	}
	return indices
}
