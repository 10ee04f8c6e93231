package cell_views

import (
	"fmt"
	"strings"
)

// SummaryRow is one solver run as it appears in the comparison table.
type SummaryRow struct {
	Algorithm  string
	Gamma      float64
	Iterations int
	// Path is the rendered policy trace from the reference start state.
	Path string
	// V2 and V3 are the values of the reference start and secondary states.
	V2, V3 float64
	Notes  string
	// Capped marks runs that stopped at their iteration or episode cap.
	Capped bool
}

const summaryWidth = 80

// Summary accumulates rows for the final cross-algorithm table.
type Summary struct {
	rows []SummaryRow
}

func (s *Summary) Add(row SummaryRow) {
	s.rows = append(s.rows, row)
}

// Rows returns a copy of the tabulated rows, for callers that inspect the table
// rather than print it.
func (s *Summary) Rows() []SummaryRow {
	return append([]SummaryRow(nil), s.rows...)
}

// WriteSummary prints the table. Capped runs have their iteration count flagged with '*'.
func (p *Printer) WriteSummary(s *Summary) {
	rule := strings.Repeat("=", summaryWidth)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, p.au.Bold("Summary Table"))
	fmt.Fprintln(p.w, rule)
	fmt.Fprintf(p.w, "%-15s %-5s %-10s %-20s %-8s %-8s %s\n",
		"Algorithm", "γ", "Iteration", "Policy", "V(2)", "V(3)", "Notes")
	fmt.Fprintln(p.w, strings.Repeat("-", summaryWidth))
	for _, row := range s.rows {
		iterations := fmt.Sprint(row.Iterations)
		if row.Capped {
			iterations += "*"
		}
		fmt.Fprintf(p.w, "%-15s %-5v %-10s %-20s %8.2f %8.2f %s\n",
			row.Algorithm,
			row.Gamma,
			iterations,
			row.Path,
			row.V2,
			row.V3,
			row.Notes)
	}
	fmt.Fprintln(p.w, rule)
}
