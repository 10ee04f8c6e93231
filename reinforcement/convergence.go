package reinforcement

import "math"

// StepFunc performs one unit of work (a sweep, an episode, an improvement pass) and
// reports the magnitude of each change it makes through track.
type StepFunc func(track func(delta float64))

// Loop is the shared "iterate until nothing moves, else give up at the cap" driver.
// Every Interval steps the largest magnitude tracked since the previous check is
// recorded and tested with Converged, then reset.
type Loop struct {
	// Limit is the maximum number of steps; the loop never exceeds it.
	Limit int
	// Interval is the number of steps per convergence check. Values below one check every step.
	Interval int
	// Converged reports whether the largest magnitude of a block means the loop is done.
	Converged func(largest float64) bool
}

// Outcome describes how a Loop exited. The shape is the same whether it converged or
// was capped; callers tell the two apart with Converged.
type Outcome struct {
	Steps     int
	Converged bool
	// Residuals holds the largest tracked magnitude of every checked block, in order.
	Residuals []float64
}

func (loop Loop) Run(step StepFunc) (out Outcome) {
	interval := max(loop.Interval, 1)
	largest := 0.0
	track := func(delta float64) {
		if mag := math.Abs(delta); mag > largest {
			largest = mag
		}
	}

	for out.Steps < loop.Limit {
		step(track)
		out.Steps++
		if out.Steps%interval != 0 {
			continue
		}

		out.Residuals = append(out.Residuals, largest)
		if loop.Converged(largest) {
			out.Converged = true
			return
		}
		largest = 0
	}
	return
}

// Returns a convergence test passing when no change exceeded theta.
func withinThreshold(theta float64) func(float64) bool {
	return func(largest float64) bool {
		return largest <= theta
	}
}
