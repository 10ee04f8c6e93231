package reinforcement

import (
	"testing"

	. "gridmdp/grid_world"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
)

// Optimal values of the reference grid at gamma=0.9, worked out by hand.
var optimalValues = map[State]float64{
	{X: 0, Y: 0}: 13.122,
	{X: 0, Y: 1}: 14.58,
	{X: 0, Y: 2}: 16.2,
	{X: 0, Y: 3}: 18,
	{X: 1, Y: 0}: 11.8098,
	{X: 1, Y: 3}: 20,
	{X: 2, Y: 0}: 10.62882,
	{X: 2, Y: 2}: 20,
}

var optimalPolicy = Policy{
	{X: 0, Y: 0}: UP,
	{X: 0, Y: 1}: UP,
	{X: 0, Y: 2}: UP,
	{X: 0, Y: 3}: RIGHT,
	{X: 1, Y: 0}: LEFT,
	{X: 1, Y: 3}: RIGHT,
	{X: 2, Y: 0}: LEFT,
	{X: 2, Y: 2}: UP,
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Follows a trace from start and returns the state it ends in.
func endOfTrace(env Environment, start State, path []Action) State {
	for _, a := range path {
		start = env.Transition(start, a)
	}
	return start
}

func TestValueIteration(t *testing.T) {
	Convey("Given the reference grid and gamma=0.9", t, func() {
		gw := Reference()
		params := DefaultParams(0.9)
		result := ValueIteration(gw, params)

		Convey("It converges well under the sweep cap", func() {
			So(result.Converged, ShouldBeTrue)
			So(result.Iterations, ShouldBeLessThan, 1000)
			// In-place sweeps propagate the terminal rewards back in six passes.
			So(result.Iterations, ShouldEqual, 6)
			So(len(result.Residuals), ShouldEqual, result.Iterations)
		})

		Convey("The residuals shrink monotonically to within theta", func() {
			expected := []float64{20, 9, 8.1, 5.58, 5.022, 0}
			So(len(result.Residuals), ShouldEqual, len(expected))
			for i, residual := range result.Residuals {
				So(residual, ShouldAlmostEqual, expected[i], 1e-9)
				if i > 0 {
					So(residual, ShouldBeLessThanOrEqualTo, result.Residuals[i-1])
				}
			}
			So(result.Residuals[len(result.Residuals)-1], ShouldBeLessThanOrEqualTo, params.Theta)
		})

		Convey("It finds the optimal values and policy", func() {
			for s, v := range optimalValues {
				So(result.Values[s], ShouldAlmostEqual, v, 1e-6)
			}
			So(result.Policy, ShouldResemble, optimalPolicy)
		})

		Convey("Terminals keep zero value and have no policy entry", func() {
			for _, s := range gw.States() {
				if !gw.IsTerminal(s) {
					continue
				}
				So(result.Values[s], ShouldEqual, 0.0)
				_, ok := result.Policy[s]
				So(ok, ShouldBeFalse)
			}
		})

		Convey("The greedy path from (0,0) avoids the penalties and reaches +20", func() {
			path := result.Policy.Trace(gw, State{X: 0, Y: 0}, 6)
			So(path, ShouldResemble, []Action{UP, UP, UP, RIGHT, RIGHT})
			end := endOfTrace(gw, State{X: 0, Y: 0}, path)
			So(gw.IsTerminal(end), ShouldBeTrue)
			So(gw.Reward(end), ShouldBeGreaterThan, 0)
		})
	})

	Convey("When the sweep cap is hit before convergence", t, func() {
		params := DefaultParams(0.9)
		params.MaxIterations = 2
		result := ValueIteration(Reference(), params)

		So(result.Converged, ShouldBeFalse)
		So(result.Iterations, ShouldEqual, 2)
		So(len(result.Policy), ShouldEqual, 8)
	})

	Convey("With a short horizon the agent grabs the nearest reward", t, func() {
		result := ValueIteration(Reference(), DefaultParams(0.1))
		So(result.Converged, ShouldBeTrue)
		So(result.Policy[State{X: 0, Y: 2}], ShouldEqual, RIGHT)
		So(result.Values[State{X: 0, Y: 2}], ShouldAlmostEqual, 10.0, 1e-9)
	})
}

func TestPolicyTrace(t *testing.T) {
	Convey("Given the reference grid", t, func() {
		gw := Reference()
		start := State{X: 0, Y: 0}

		Convey("A cycling policy is cut off at maxSteps", func() {
			cycle := Policy{{X: 0, Y: 0}: UP, {X: 0, Y: 1}: DOWN}
			So(cycle.Trace(gw, start, 6), ShouldResemble, []Action{UP, DOWN, UP, DOWN, UP, DOWN})
			So(cycle.Trace(gw, start, 3), ShouldResemble, []Action{UP, DOWN, UP})
		})

		Convey("The trace stops where the policy is undefined", func() {
			partial := Policy{{X: 0, Y: 0}: UP}
			So(partial.Trace(gw, start, 6), ShouldResemble, []Action{UP})
			So(Policy{}.Trace(gw, start, 6), ShouldBeEmpty)
		})

		Convey("A zero step bound yields an empty trace", func() {
			So(optimalPolicy.Trace(gw, start, 0), ShouldBeEmpty)
		})

		Convey("The trace stops on entering a terminal even with steps left", func() {
			So(optimalPolicy.Trace(gw, State{X: 0, Y: 3}, 6), ShouldResemble, []Action{RIGHT, RIGHT})
		})
	})
}

func TestPolicyIteration(t *testing.T) {
	Convey("Given the reference grid and gamma=0.9", t, func() {
		gw := Reference()
		params := DefaultParams(0.9)
		result := PolicyIteration(gw, params, newRand(42))

		Convey("It stabilizes within the number of distinct policies", func() {
			So(result.Converged, ShouldBeTrue)
			So(result.Iterations, ShouldBeGreaterThanOrEqualTo, 1)
			// 4 actions over 8 non-terminal states.
			So(result.Iterations, ShouldBeLessThanOrEqualTo, 65536)
			So(result.Residuals[len(result.Residuals)-1], ShouldEqual, 0.0)
		})

		Convey("It agrees with value iteration", func() {
			vi := ValueIteration(gw, params)
			So(result.Policy, ShouldResemble, vi.Policy)
			So(MaxDifference(result.Values, vi.Values, gw.States()), ShouldBeLessThan, 1e-4)
		})

		Convey("The same seed reproduces the same run", func() {
			again := PolicyIteration(gw, params, newRand(42))
			So(again, ShouldResemble, result)
		})
	})

	Convey("Evaluating the greedy policy of the optimal values reproduces them", t, func() {
		gw := Reference()
		params := DefaultParams(0.9)
		vi := ValueIteration(gw, params)

		values, outcome := EvaluatePolicy(gw, vi.Policy, params)
		So(outcome.Converged, ShouldBeTrue)
		So(MaxDifference(values, vi.Values, gw.States()), ShouldBeLessThan, 1e-4)
	})

	Convey("Evaluation leaves states without a policy entry at zero", t, func() {
		gw := Reference()
		values, _ := EvaluatePolicy(gw, Policy{{X: 0, Y: 2}: RIGHT}, DefaultParams(0.9))
		So(values[State{X: 0, Y: 2}], ShouldEqual, 10.0)
		So(values[State{X: 0, Y: 3}], ShouldEqual, 0.0)
	})

	Convey("The outer loop honors its cap", t, func() {
		params := DefaultParams(0.9)
		params.MaxIterations = 1
		result := PolicyIteration(Reference(), params, newRand(3))
		So(result.Iterations, ShouldEqual, 1)
		So(len(result.Policy), ShouldEqual, 8)
	})
}

func TestQLearning(t *testing.T) {
	Convey("Given the reference grid and gamma=0.9", t, func() {
		gw := Reference()
		params := DefaultParams(0.9)
		result := QLearning(gw, params, newRand(1))

		Convey("It runs whole checkpoint blocks or stops at the episode cap", func() {
			So(result.Iterations, ShouldBeGreaterThan, 0)
			So(result.Iterations, ShouldBeLessThanOrEqualTo, params.MaxEpisodes)
			if result.Converged {
				So(result.Iterations%params.CheckInterval, ShouldEqual, 0)
				So(result.Residuals[len(result.Residuals)-1], ShouldBeLessThan, params.Tolerance)
			} else {
				So(result.Iterations, ShouldEqual, params.MaxEpisodes)
			}
		})

		Convey("Its greedy policy matches value iteration", func() {
			vi := ValueIteration(gw, params)
			So(result.Policy, ShouldResemble, vi.Policy)
			So(MaxDifference(result.Values, vi.Values, gw.States()), ShouldBeLessThan, 0.05)
		})

		Convey("Derived values are the row maxima of Q, zero at terminals", func() {
			row := make([]float64, len(gw.Actions()))
			for _, s := range gw.States() {
				if gw.IsTerminal(s) {
					So(result.Values[s], ShouldEqual, 0.0)
					continue
				}
				_, best := result.Q.Greedy(s, gw.Actions(), row)
				So(result.Values[s], ShouldEqual, best)
			}
		})

		Convey("The same seed reproduces the same run", func() {
			again := QLearning(gw, params, newRand(1))
			So(again.Iterations, ShouldEqual, result.Iterations)
			So(again.Values, ShouldResemble, result.Values)
			So(again.Policy, ShouldResemble, result.Policy)
		})
	})

	Convey("A greedy learner stuck on a wall is cut off by the episode step cap", t, func() {
		// A single column with the only terminal at the bottom: with zero Q values the
		// greedy action is UP, which never reaches it.
		gw, err := New(1, 3, []Cell{{X: 0, Y: 0, Reward: 1, Terminal: true}})
		So(err, ShouldBeNil)

		params := DefaultParams(0.9)
		params.Epsilon = 0
		params.MaxEpisodes = 10
		params.CheckInterval = 5
		params.MaxEpisodeSteps = 50
		result := QLearning(gw, params, newRand(5))

		So(result.Iterations, ShouldEqual, 5)
		So(result.Converged, ShouldBeTrue)
		So(result.Policy[State{X: 0, Y: 1}], ShouldEqual, UP)
	})
}
