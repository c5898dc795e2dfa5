package statistics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	quadTolerance = 1e-10
	quadMaxDepth  = 40
	quadLowOrder  = 10
	quadHighOrder = 20
)

// integrate approximates the integral of f over [breaks[0], breaks[len-1]].
// Each interval between consecutive breakpoints is refined by bisection until
// two Gauss-Legendre rules of different order agree.
func integrate(f func(float64) float64, breaks []float64) float64 {
	pts := normalizeBreaks(breaks)
	if len(pts) < 2 {
		return 0
	}

	tol := quadTolerance / float64(len(pts)-1)
	total := 0.0
	for i := 0; i+1 < len(pts); i++ {
		total += adaptive(f, pts[i], pts[i+1], tol, quadMaxDepth)
	}
	return total
}

func adaptive(f func(float64) float64, a, b, tol float64, depth int) float64 {
	coarse := quad.Fixed(f, a, b, quadLowOrder, nil, 1)
	fine := quad.Fixed(f, a, b, quadHighOrder, nil, 1)
	if math.Abs(fine-coarse) <= tol || depth == 0 || b-a < 1e-15 {
		return fine
	}

	m := a + (b-a)/2
	return adaptive(f, a, m, tol/2, depth-1) + adaptive(f, m, b, tol/2, depth-1)
}

// normalizeBreaks sorts the breakpoints and drops duplicates and NaNs
func normalizeBreaks(breaks []float64) []float64 {
	pts := make([]float64, 0, len(breaks))
	for _, x := range breaks {
		if !math.IsNaN(x) {
			pts = append(pts, x)
		}
	}
	sort.Float64s(pts)

	out := pts[:0]
	for i, x := range pts {
		if i == 0 || x-out[len(out)-1] > 1e-15 {
			out = append(out, x)
		}
	}
	return out
}
