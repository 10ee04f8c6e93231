package cell_views

import (
	"gridmdp/grid_world"
	"gridmdp/reinforcement"
)

// Cell is a single grid position of a solver's result, flattened for printing.
// Rows of cells are ordered top (highest y) first, the way the grid is read on a
// console, while X and Y keep the grid's own coordinates. Cell fields should be
// immediately usable by the views.
type Cell struct {
	X, Y     int
	Value    float64
	Reward   float64
	Terminal bool
	// Action is the policy's choice, meaningful only when HasAction is set.
	Action    grid_world.Action
	HasAction bool
}

// Convert maps a value function and policy over gw into rows of cells.
func Convert(
	gw *grid_world.GridWorld,
	values reinforcement.ValueFunction,
	policy reinforcement.Policy,
) (rows [][]Cell) {
	width, height := gw.Dims()
	rows = make([][]Cell, 0, height)
	for _, y := range grid_world.Rev(height) {
		row := make([]Cell, 0, width)
		for x := 0; x < width; x++ {
			s := grid_world.State{X: x, Y: y}
			action, ok := policy[s]
			row = append(row, Cell{
				X:         x,
				Y:         y,
				Value:     values[s],
				Reward:    gw.Reward(s),
				Terminal:  gw.IsTerminal(s),
				Action:    action,
				HasAction: ok,
			})
		}
		rows = append(rows, row)
	}
	return
}
