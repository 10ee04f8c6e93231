package cell_views

import (
	"fmt"
	"io"
	"strings"

	"gridmdp/grid_world"

	"github.com/logrusorgru/aurora"
)

// Printer writes the console views. Colors are optional so output can be piped or compared.
type Printer struct {
	w  io.Writer
	au aurora.Aurora
}

func NewPrinter(w io.Writer, colors bool) *Printer {
	return &Printer{
		w:  w,
		au: aurora.NewAurora(colors),
	}
}

// Colors terminal cells by the sign of the reward for entering them.
func (p *Printer) paint(cell Cell, text string) string {
	switch {
	case cell.Terminal && cell.Reward > 0:
		return p.au.Green(text).String()
	case cell.Terminal && cell.Reward < 0:
		return p.au.Red(text).String()
	case cell.Terminal:
		return p.au.Yellow(text).String()
	}
	return text
}

const bannerWidth = 60

// WriteBanner prints text between two rules of '#'.
func (p *Printer) WriteBanner(text string) {
	rule := strings.Repeat("#", bannerWidth)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, p.au.Bold(text))
	fmt.Fprintln(p.w, rule)
}

// WriteLine prints a single formatted line.
func (p *Printer) WriteLine(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) title(title string) {
	fmt.Fprintln(p.w, p.au.Bold("== "+title+" =="))
}

// WriteValues prints the value of every cell, top row first.
func (p *Printer) WriteValues(title string, rows [][]Cell) {
	p.title(title)
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		texts := make([]string, 0, len(row))
		for _, cell := range row {
			texts = append(texts, p.paint(cell, fmt.Sprintf("%6.2f", cell.Value)))
		}
		fmt.Fprintf(p.w, "y = %d | %s\n", row[0].Y, strings.Join(texts, " "))
	}
	fmt.Fprintln(p.w)
}

// WritePolicy prints the policy of every cell, top row first: T for terminals and
// a dot where the policy is undefined.
func (p *Printer) WritePolicy(title string, rows [][]Cell) {
	p.title(title)
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		texts := make([]string, 0, len(row))
		for _, cell := range row {
			var glyph string
			switch {
			case cell.Terminal:
				glyph = " T "
			case !cell.HasAction:
				glyph = " . "
			default:
				glyph = " " + cell.Action.String() + " "
			}
			texts = append(texts, p.paint(cell, glyph))
		}
		fmt.Fprintf(p.w, "y = %d | %s\n", row[0].Y, strings.Join(texts, " "))
	}
	fmt.Fprintln(p.w)
}

// PathString renders a policy trace as arrows, e.g. [↑,↑,→].
func PathString(path []grid_world.Action) string {
	arrows := make([]string, len(path))
	for i, a := range path {
		arrows[i] = a.Arrow()
	}
	return "[" + strings.Join(arrows, ",") + "]"
}
