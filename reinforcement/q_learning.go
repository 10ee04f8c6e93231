package reinforcement

import (
	. "gridmdp/grid_world"

	"golang.org/x/exp/rand"
)

// QLearning learns action values model-free from epsilon-greedy episodes, each started
// at a uniformly chosen non-terminal state and ended on entering a terminal.
//
// Every params.CheckInterval episodes the largest update magnitude of the block is
// checked: below params.Tolerance stops training, otherwise the tracker resets. Training
// always stops at params.MaxEpisodes. An episode longer than params.MaxEpisodeSteps is
// cut short; a non-positive value disables the cut.
//
// The value function and policy are read off the learned Q-table: V(s) = max_a Q(s,a)
// and the argmax action, with terminals at zero and undefined. Residuals holds the
// largest update of each checked block.
func QLearning(env Environment, params Params, rng *rand.Rand) Result {
	starts, actions := env.NonTerminalStates(), env.Actions()
	q := NewQTable(env)
	row := make([]float64, len(actions))

	// Exploration: do something random. Exploitation: take the max-valued action.
	policyEpsilonGreedy := func(state State) Action {
		if rng.Float64() < params.Epsilon {
			return actions[rng.Intn(len(actions))]
		}
		action, _ := q.Greedy(state, actions, row)
		return action
	}

	episode := func(track func(float64)) {
		state := starts[rng.Intn(len(starts))]
		for step := 0; params.MaxEpisodeSteps <= 0 || step < params.MaxEpisodeSteps; step++ {
			action := policyEpsilonGreedy(state)
			successor := env.Transition(state, action)
			target := env.Reward(successor)
			if !env.IsTerminal(successor) {
				_, maxNext := q.Greedy(successor, actions, row)
				target += params.Gamma * maxNext
			}

			key := StateAction{state, action}
			delta := params.Alpha * (target - q[key])
			q[key] += delta
			track(delta)

			if env.IsTerminal(successor) {
				return
			}
			state = successor
		}
	}

	var outcome Outcome
	if len(starts) > 0 {
		loop := Loop{
			Limit:    params.MaxEpisodes,
			Interval: params.CheckInterval,
			Converged: func(largest float64) bool {
				return largest < params.Tolerance
			},
		}
		outcome = loop.Run(episode)
	}

	values := NewValueFunction(env)
	policy := make(Policy, len(starts))
	for _, s := range starts {
		policy[s], values[s] = q.Greedy(s, actions, row)
	}

	return Result{
		Values:     values,
		Policy:     policy,
		Iterations: outcome.Steps,
		Converged:  outcome.Converged,
		Residuals:  outcome.Residuals,
		Q:          q,
	}
}
