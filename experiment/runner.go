// experiment runs every solver for every configured discount factor and collects
// the results in a fixed order for reporting.
package experiment

import (
	"context"
	"fmt"
	"sort"

	"gridmdp/grid_world"
	"gridmdp/reinforcement"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// Algorithm selects a solver.
type Algorithm int

const (
	VALUE_ITERATION Algorithm = iota
	POLICY_ITERATION
	Q_LEARNING
)

// Algorithms lists the solvers in the order they run and are reported.
var Algorithms = []Algorithm{VALUE_ITERATION, POLICY_ITERATION, Q_LEARNING}

func (alg Algorithm) String() string {
	switch alg {
	case VALUE_ITERATION:
		return "Value Iteration"
	case POLICY_ITERATION:
		return "Policy Iteration"
	case Q_LEARNING:
		return "Q-Learning"
	}
	return fmt.Sprintf("Algorithm(%d)", int(alg))
}

// Unit names what a result's iteration count counts.
func (alg Algorithm) Unit() string {
	if alg == Q_LEARNING {
		return "episodes"
	}
	return "iterations"
}

// Run is one solver invocation for one discount factor.
type Run struct {
	Algorithm Algorithm
	Gamma     float64
	// GammaIndex is the position of Gamma in the config, which orders the report.
	GammaIndex int
	Result     reinforcement.Result
}

// Runner executes the configured experiment against an environment.
type Runner struct {
	env reinforcement.Environment
	cfg *reinforcement.TrainingConfig
	log zerolog.Logger
}

func NewRunner(
	env reinforcement.Environment,
	cfg *reinforcement.TrainingConfig,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		env: env,
		cfg: cfg,
		log: log,
	}
}

func (r *Runner) solve(alg Algorithm, params reinforcement.Params, rng *rand.Rand) reinforcement.Result {
	switch alg {
	case POLICY_ITERATION:
		return reinforcement.PolicyIteration(r.env, params, rng)
	case Q_LEARNING:
		return reinforcement.QLearning(r.env, params, rng)
	default:
		return reinforcement.ValueIteration(r.env, params)
	}
}

// Run deploys one worker per discount factor, each running the solvers in order with
// its own random source, and fans their results in. Solver invocations share nothing,
// so workers proceed independently. The context is only consulted between solver
// invocations; once it is done no further runs start, and the runs completed so far are
// returned with the context's error.
// Runs are returned ordered by gamma (as configured), then by algorithm.
func (r *Runner) Run(ctx context.Context) ([]Run, error) {
	worker := func(done <-chan struct{}, index int, gamma float64) <-chan Run {
		runs := make(chan Run)
		go func() {
			defer close(runs)

			rng := rand.New(rand.NewSource(r.cfg.Seed + uint64(index)))
			params := r.cfg.Params(gamma)
			for _, alg := range Algorithms {
				// done-guard
				select {
				case <-done:
					return
				default:
				}

				run := Run{
					Algorithm:  alg,
					Gamma:      gamma,
					GammaIndex: index,
					Result:     r.solve(alg, params, rng),
				}
				select {
				case runs <- run:
				case <-done:
					return
				}
			}
		}()
		return runs
	}

	workers := []<-chan Run{}
	for i, gamma := range r.cfg.Gammas {
		workers = append(workers, worker(ctx.Done(), i, gamma))
	}

	runs := []Run{}
	for run := range channerics.Merge(ctx.Done(), workers...) {
		r.logRun(run)
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].GammaIndex != runs[j].GammaIndex {
			return runs[i].GammaIndex < runs[j].GammaIndex
		}
		return runs[i].Algorithm < runs[j].Algorithm
	})

	if expected := len(r.cfg.Gammas) * len(Algorithms); len(runs) < expected {
		err := fmt.Errorf("experiment stopped after %d of %d runs: %w", len(runs), expected, ctx.Err())
		r.log.Warn().Err(err).Msg("training deadline reached")
		return runs, err
	}

	for _, agreement := range Agree(runs, r.env.States()) {
		r.log.Info().
			Float64("gamma", agreement.Gamma).
			Float64("max_value_gap", agreement.MaxGap).
			Int("converged_solvers", agreement.Solvers).
			Msg("cross-solver agreement")
	}

	return runs, nil
}

func (r *Runner) logRun(run Run) {
	res := run.Result
	residual := 0.0
	if n := len(res.Residuals); n > 0 {
		residual = res.Residuals[n-1]
	}

	level := zerolog.InfoLevel
	if !res.Converged {
		level = zerolog.WarnLevel
	}
	r.log.WithLevel(level).
		Str("algorithm", run.Algorithm.String()).
		Float64("gamma", run.Gamma).
		Int(run.Algorithm.Unit(), res.Iterations).
		Bool("converged", res.Converged).
		Float64("residual", residual).
		Msg("solver finished")

	r.log.Debug().
		Str("algorithm", run.Algorithm.String()).
		Float64("gamma", run.Gamma).
		Floats64("residuals", res.Residuals).
		Msg("residual trace")
}

// Agreement is the largest per-state value gap between the converged solvers of one gamma.
type Agreement struct {
	Gamma   float64
	MaxGap  float64
	Solvers int
}

// Agree compares, per gamma, the value functions of every converged run. Capped runs
// are left out since their values carry no convergence guarantee. Runs must be ordered
// as returned by Run.
func Agree(runs []Run, states []grid_world.State) (agreements []Agreement) {
	for start := 0; start < len(runs); {
		end := start
		for end < len(runs) && runs[end].GammaIndex == runs[start].GammaIndex {
			end++
		}

		agreement := Agreement{Gamma: runs[start].Gamma}
		var converged []reinforcement.ValueFunction
		for _, run := range runs[start:end] {
			if run.Result.Converged {
				converged = append(converged, run.Result.Values)
			}
		}
		agreement.Solvers = len(converged)
		for i := range converged {
			for j := i + 1; j < len(converged); j++ {
				agreement.MaxGap = max(agreement.MaxGap, reinforcement.MaxDifference(converged[i], converged[j], states))
			}
		}
		agreements = append(agreements, agreement)
		start = end
	}
	return
}
