package reinforcement

import (
	"golang.org/x/exp/rand"
)

// PolicyIteration alternates full policy evaluation with greedy improvement, starting
// from a uniformly random policy drawn from rng. It stops once an improvement pass
// changes no action, or after params.MaxIterations passes.
//
// The returned values are those of the final evaluation; Residuals holds the number of
// actions changed by each improvement pass.
func PolicyIteration(env Environment, params Params, rng *rand.Rand) Result {
	states, actions := env.NonTerminalStates(), env.Actions()
	row := make([]float64, len(actions))

	policy := make(Policy, len(states))
	for _, s := range states {
		policy[s] = actions[rng.Intn(len(actions))]
	}

	values := NewValueFunction(env)
	loop := Loop{
		Limit:     params.MaxIterations,
		Converged: func(changed float64) bool { return changed == 0 },
	}
	outcome := loop.Run(func(track func(float64)) {
		values, _ = EvaluatePolicy(env, policy, params)

		changed := 0
		for _, s := range states {
			if best, _ := greedy(env, values, params.Gamma, s, actions, row); best != policy[s] {
				policy[s] = best
				changed++
			}
		}
		track(float64(changed))
	})

	return Result{
		Values:     values,
		Policy:     policy,
		Iterations: outcome.Steps,
		Converged:  outcome.Converged,
		Residuals:  outcome.Residuals,
	}
}

// EvaluatePolicy solves the Bellman expectation equation of a fixed policy by in-place
// sweeps from a zeroed value function, until no state moves by more than params.Theta or
// params.MaxIterations sweeps have run. Only the policy's action is backed up per state.
// States without a policy entry keep a value of zero.
func EvaluatePolicy(env Environment, policy Policy, params Params) (ValueFunction, Outcome) {
	values := NewValueFunction(env)
	states := env.NonTerminalStates()

	loop := Loop{
		Limit:     params.MaxIterations,
		Converged: withinThreshold(params.Theta),
	}
	outcome := loop.Run(func(track func(float64)) {
		for _, s := range states {
			action, ok := policy[s]
			if !ok {
				continue
			}
			v := lookahead(env, values, params.Gamma, s, action)
			track(v - values[s])
			values[s] = v
		}
	})

	return values, outcome
}
