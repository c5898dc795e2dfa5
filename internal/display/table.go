package display

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/moguls753/abtest/internal/experiment"
	"github.com/moguls753/abtest/internal/statistics"
)

// Summary writes the per-variation description of a collection
func Summary(w io.Writer, lang string, s *experiment.Summary) {
	m := messagesFor(lang)
	if s == nil || len(s.Rows) == 0 {
		fmt.Fprintln(w, m.empty)
		return
	}

	fmt.Fprintln(w, "┌──────────────┬────────────┬────────────┬────────────┐")
	fmt.Fprintf(w, "│ %-12s │ %10s │ %10s │ %10s │\n", m.variation, m.success, m.total, m.conversion)
	fmt.Fprintln(w, "├──────────────┼────────────┼────────────┼────────────┤")
	for _, row := range s.Rows {
		fmt.Fprintf(w, "│ %-12s │ %10d │ %10d │ %10s │\n",
			row.Name,
			row.Success,
			row.Total,
			percent(row.Conversion),
		)
	}
	fmt.Fprintln(w, "└──────────────┴────────────┴────────────┴────────────┘")
}

// Comparisons writes the test results of every treatment against control
func Comparisons(w io.Writer, lang string, comps []statistics.Comparison, a statistics.Analysis) {
	m := messagesFor(lang)
	if len(comps) == 0 {
		fmt.Fprintln(w, m.noTreatments)
		return
	}

	fmt.Fprintf(w, "\n%s (alpha = %g, epsilon = %g", m.results, a.Alpha, a.Epsilon)
	if a.Delta > 0 {
		fmt.Fprintf(w, ", delta = %g", a.Delta)
	}
	fmt.Fprintln(w, ")")

	fmt.Fprintln(w, "┌──────────────┬──────────┬──────────┬──────────┬──────────┬────────────┐")
	fmt.Fprintln(w, "│ Variation    │ z        │ p (z)    │ p (sup.) │ p (Fish) │ P(T > C)   │")
	fmt.Fprintln(w, "├──────────────┼──────────┼──────────┼──────────┼──────────┼────────────┤")
	for _, c := range comps {
		fmt.Fprintf(w, "│ %-12s │ %8.3f │ %8.4f │ %8.4f │ %8.4f │ %10s │\n",
			c.Name,
			c.ZTest.Statistic,
			c.ZTest.PValue,
			c.Superiority.PValue,
			c.Fisher.PValue,
			percent(c.ProbBetter),
		)
	}
	fmt.Fprintln(w, "└──────────────┴──────────┴──────────┴──────────┴──────────┴────────────┘")

	for _, c := range comps {
		fmt.Fprintf(w, "%s: %s\n", c.Name, Verdict(lang, c, a))
	}
}

// Verdict is the one-line conclusion for a comparison
func Verdict(lang string, c statistics.Comparison, a statistics.Analysis) string {
	m := messagesFor(lang)

	var parts []string
	if c.Significant {
		parts = append(parts, fmt.Sprintf(m.significant, a.Alpha))
	} else {
		parts = append(parts, fmt.Sprintf(m.notSignificant, a.Alpha))
	}

	prob := c.ProbBetter
	if a.Delta > 0 {
		prob = c.ProbBetterByDelta
	}
	if c.BayesConfident {
		parts = append(parts, fmt.Sprintf(m.confident, percent(prob)))
	} else {
		parts = append(parts, fmt.Sprintf(m.notConfident, percent(prob)))
	}
	return strings.Join(parts, "; ")
}

func percent(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}
