package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/moguls753/abtest/internal/simulate"
)

// Simulation writes the outcome of a power simulation
func Simulation(w io.Writer, cfg simulate.Config, res *simulate.Result) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 72))
	fmt.Fprintf(w, "Power simulation: %.2f%% vs %.2f%%, %d visitors per arm, %d trials\n",
		cfg.ControlRate*100, cfg.TreatmentRate*100, cfg.Size, res.Trials)
	fmt.Fprintln(w, strings.Repeat("=", 72))

	fmt.Fprintf(w, "%-28s %8.2f%%\n", "Power at full size", res.Power*100)
	fmt.Fprintf(w, "%-28s %8.2f%%\n", "Rejected at any look", res.PeekingRejectRate*100)

	p := res.PValues
	fmt.Fprintln(w, "\np-values at full size")
	fmt.Fprintln(w, "┌──────────┬──────────┬──────────┬──────────┬──────────┬─────────┐")
	fmt.Fprintln(w, "│ Median   │ Mean     │ StdDev   │ Min      │ Max      │ CV %    │")
	fmt.Fprintln(w, "├──────────┼──────────┼──────────┼──────────┼──────────┼─────────┤")
	fmt.Fprintf(w, "│ %8.4f │ %8.4f │ %8.4f │ %8.4f │ %8.4f │ %7.1f │\n",
		p.Median, p.Mean, p.StdDev, p.Min, p.Max, p.CV)
	fmt.Fprintln(w, "└──────────┴──────────┴──────────┴──────────┴──────────┴─────────┘")
}

// Replay writes the z-test trajectory of a replay
func Replay(w io.Writer, points []simulate.Point, alpha float64) {
	fmt.Fprintln(w, "┌────────────┬────────────┬────────────┬──────────┬──────────┬──────────────┐")
	fmt.Fprintln(w, "│ Visitors   │ Control    │ Treatment  │ z        │ p-value  │ Significant? │")
	fmt.Fprintln(w, "├────────────┼────────────┼────────────┼──────────┼──────────┼──────────────┤")
	for _, p := range points {
		if p.Err != nil {
			fmt.Fprintf(w, "│ %10d │ %10d │ %10d │ %8s │ %8s │ %-12s │\n",
				p.Visitors, p.Control.Success(), p.Treatment.Success(), "n/a", "n/a", "undefined")
			continue
		}

		significance := "n.s."
		if p.Result.PValue < alpha {
			significance = fmt.Sprintf("* (p<%g)", alpha)
		}
		fmt.Fprintf(w, "│ %10d │ %10d │ %10d │ %8.3f │ %8.4f │ %-12s │\n",
			p.Visitors,
			p.Control.Success(),
			p.Treatment.Success(),
			p.Result.Statistic,
			p.Result.PValue,
			significance,
		)
	}
	fmt.Fprintln(w, "└────────────┴────────────┴────────────┴──────────┴──────────┴──────────────┘")
}
