package reinforcement

// ValueIteration sweeps the non-terminal states with Bellman optimality backups until no
// state moves by more than params.Theta, or params.MaxIterations sweeps have run, then
// extracts the greedy policy.
//
// Backups are written in place: states later in a sweep already see the values updated
// earlier in the same sweep. This converges faster than a double-buffered sweep and the
// sweep counts reported depend on it.
//
// Residuals holds the largest change of each sweep. Terminals keep V=0 and no policy entry.
func ValueIteration(env Environment, params Params) Result {
	values := NewValueFunction(env)
	states, actions := env.NonTerminalStates(), env.Actions()
	row := make([]float64, len(actions))

	loop := Loop{
		Limit:     params.MaxIterations,
		Converged: withinThreshold(params.Theta),
	}
	outcome := loop.Run(func(track func(float64)) {
		for _, s := range states {
			_, best := greedy(env, values, params.Gamma, s, actions, row)
			track(best - values[s])
			values[s] = best
		}
	})

	return Result{
		Values:     values,
		Policy:     GreedyPolicy(env, values, params.Gamma),
		Iterations: outcome.Steps,
		Converged:  outcome.Converged,
		Residuals:  outcome.Residuals,
	}
}
