package reinforcement

import (
	"math"

	. "gridmdp/grid_world"

	"gonum.org/v1/gonum/floats"
)

// Environment is the finite, deterministic MDP the solvers operate on.
// GridWorld satisfies it; every method must be pure.
type Environment interface {
	States() []State
	NonTerminalStates() []State
	Actions() []Action
	Transition(State, Action) State
	Reward(State) float64
	IsTerminal(State) bool
}

// ValueFunction maps every state to its estimated value.
type ValueFunction map[State]float64

// NewValueFunction returns a zeroed value function over all of env's states.
func NewValueFunction(env Environment) ValueFunction {
	states := env.States()
	values := make(ValueFunction, len(states))
	for _, s := range states {
		values[s] = 0
	}
	return values
}

// Vector returns the values of states, in order.
func (vf ValueFunction) Vector(states []State) []float64 {
	vec := make([]float64, len(states))
	for i, s := range states {
		vec[i] = vf[s]
	}
	return vec
}

// MaxDifference is the largest absolute per-state difference between two value
// functions over states (the infinity-norm distance).
func MaxDifference(a, b ValueFunction, states []State) float64 {
	if len(states) == 0 {
		return 0
	}
	return floats.Distance(a.Vector(states), b.Vector(states), math.Inf(1))
}

// Policy maps non-terminal states to an action. A missing entry means the policy
// is undefined there (terminals, unreached states).
type Policy map[State]Action

// Trace greedily follows the policy from start for at most maxSteps steps, returning the
// actions taken. It stops early at an undefined entry or once a terminal is entered.
func (p Policy) Trace(env Environment, start State, maxSteps int) (path []Action) {
	state := start
	for i := 0; i < maxSteps; i++ {
		action, ok := p[state]
		if !ok {
			break
		}
		path = append(path, action)
		state = env.Transition(state, action)
		if env.IsTerminal(state) {
			break
		}
	}
	return
}

// StateAction keys the Q-table.
type StateAction struct {
	State  State
	Action Action
}

// QTable holds action values, Q(s,a).
type QTable map[StateAction]float64

// NewQTable returns a zeroed table over every state-action pair of env.
func NewQTable(env Environment) QTable {
	states, actions := env.States(), env.Actions()
	q := make(QTable, len(states)*len(actions))
	for _, s := range states {
		for _, a := range actions {
			q[StateAction{s, a}] = 0
		}
	}
	return q
}

// Greedy returns the max-valued action in s and its value. Ties go to the first action
// in enumeration order. The row buffer must have len(actions) entries.
func (q QTable) Greedy(s State, actions []Action, row []float64) (Action, float64) {
	for i, a := range actions {
		row[i] = q[StateAction{s, a}]
	}
	i := floats.MaxIdx(row)
	return actions[i], row[i]
}

// Result is what every solver hands back: the value function, the derived policy, and
// the number of sweeps, outer iterations or episodes actually run.
type Result struct {
	Values ValueFunction
	Policy Policy
	// Iterations is sweeps for value iteration, improvement passes for policy
	// iteration, and episodes for Q-learning.
	Iterations int
	// Converged is false when the solver stopped at its cap.
	Converged bool
	// Residuals traces progress per checked iteration; the meaning differs per solver.
	Residuals []float64
	// Q is only set by Q-learning.
	Q QTable
}

// The one-step lookahead shared by all the model-based computations: the reward for
// entering the successor plus its discounted value, or just the reward if it is terminal.
func lookahead(env Environment, values ValueFunction, gamma float64, s State, a Action) float64 {
	successor := env.Transition(s, a)
	reward := env.Reward(successor)
	if env.IsTerminal(successor) {
		return reward
	}
	return reward + gamma*values[successor]
}

// Returns the action maximizing the lookahead in s, and that maximum. Ties go to the
// first action in enumeration order. The row buffer must have len(actions) entries.
func greedy(
	env Environment,
	values ValueFunction,
	gamma float64,
	s State,
	actions []Action,
	row []float64,
) (Action, float64) {
	for i, a := range actions {
		row[i] = lookahead(env, values, gamma, s, a)
	}
	i := floats.MaxIdx(row)
	return actions[i], row[i]
}

// GreedyPolicy extracts the greedy policy of values for every non-terminal state.
func GreedyPolicy(env Environment, values ValueFunction, gamma float64) Policy {
	states, actions := env.NonTerminalStates(), env.Actions()
	row := make([]float64, len(actions))
	policy := make(Policy, len(states))
	for _, s := range states {
		policy[s], _ = greedy(env, values, gamma, s, actions, row)
	}
	return policy
}
