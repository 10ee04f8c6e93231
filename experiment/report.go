package experiment

import (
	"fmt"

	"gridmdp/cell_views"
	"gridmdp/grid_world"
	"gridmdp/reinforcement"
)

// SummaryRow tabulates a run: its trace from the reference start and the values of the
// two reference states.
func SummaryRow(
	gw *grid_world.GridWorld,
	cfg *reinforcement.TrainingConfig,
	run Run,
) cell_views.SummaryRow {
	ref := cfg.Reference
	res := run.Result
	return cell_views.SummaryRow{
		Algorithm:  run.Algorithm.String(),
		Gamma:      run.Gamma,
		Iterations: res.Iterations,
		Path:       cell_views.PathString(res.Policy.Trace(gw, ref.Start, ref.MaxSteps)),
		V2:         res.Values[ref.Start],
		V3:         res.Values[ref.Secondary],
		Notes:      cfg.NoteFor(run.Gamma),
		Capped:     !res.Converged,
	}
}

// Report prints the value and policy grids of every run, grouped under a banner per
// gamma, followed by the summary table. Runs must be ordered as returned by Runner.Run.
// The printed summary is returned so its rows can be checked without parsing output.
func Report(
	p *cell_views.Printer,
	gw *grid_world.GridWorld,
	cfg *reinforcement.TrainingConfig,
	runs []Run,
) *cell_views.Summary {
	summary := &cell_views.Summary{}
	for i, run := range runs {
		if i == 0 || runs[i-1].GammaIndex != run.GammaIndex {
			p.WriteBanner(fmt.Sprint("gamma = ", run.Gamma))
		}

		name := run.Algorithm.String()
		p.WriteLine("%s - %s: %d", name, run.Algorithm.Unit(), run.Result.Iterations)

		valuesTitle := fmt.Sprintf("V(s) from %s, gamma=%v", name, run.Gamma)
		if run.Algorithm == Q_LEARNING {
			valuesTitle = "Approx. " + valuesTitle
		}
		cells := cell_views.Convert(gw, run.Result.Values, run.Result.Policy)
		p.WriteValues(valuesTitle, cells)
		p.WritePolicy(fmt.Sprintf("Policy from %s, gamma=%v", name, run.Gamma), cells)

		summary.Add(SummaryRow(gw, cfg, run))
	}

	p.WriteSummary(summary)
	return summary
}
