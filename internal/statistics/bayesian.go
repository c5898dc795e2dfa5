package statistics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/moguls753/abtest/internal/experiment"
)

// ErrDomain is returned when an argument lies outside the domain of a routine
var ErrDomain = errors.New("argument out of domain")

// BetaParams are the shape parameters of a Beta distribution
type BetaParams struct {
	Alpha float64 `validate:"gt=0"`
	Beta  float64 `validate:"gt=0"`
}

// UniformPrior is the uninformative Beta(1, 1) prior
var UniformPrior = BetaParams{Alpha: 1, Beta: 1}

func (p BetaParams) valid() bool {
	return p.Alpha > 0 && p.Beta > 0 && !math.IsInf(p.Alpha, 0) && !math.IsInf(p.Beta, 0)
}

func (p BetaParams) dist() distuv.Beta {
	return distuv.Beta{Alpha: p.Alpha, Beta: p.Beta}
}

// PosteriorBetaParameters returns the conjugate posterior of a Beta prior
// after observing the variation
func PosteriorBetaParameters(v *experiment.Variation, prior BetaParams) BetaParams {
	s := float64(v.Success())
	n := float64(v.Total())
	return BetaParams{Alpha: prior.Alpha + s, Beta: prior.Beta + n - s}
}

// ProbGreater computes Pr(p2 > p1 + delta) for independent p1 ~ Beta(par1)
// and p2 ~ Beta(par2).
//
// For delta = 0 the exact sum of Evan Miller, "Formulas for Bayesian A/B
// Testing", is evaluated in log space; it needs an integral par2.Alpha.
// Otherwise the joint density is integrated over {x + delta <= y}
// (Chris Stucchio, "Bayesian A/B Testing at VWO").
func ProbGreater(par1, par2 BetaParams, delta float64) (float64, error) {
	if math.IsNaN(delta) || delta < 0 {
		return 0, fmt.Errorf("%w: margin must be >= 0, got %v", ErrDomain, delta)
	}
	if !par1.valid() || !par2.valid() {
		return 0, fmt.Errorf("%w: beta parameters must be positive, got %v and %v", ErrDomain, par1, par2)
	}

	if delta == 0 && par2.Alpha == math.Trunc(par2.Alpha) {
		return probGreaterSum(par1, par2), nil
	}
	return probGreaterIntegral(par1, par2, delta), nil
}

func probGreaterSum(par1, par2 BetaParams) float64 {
	a1, b1 := par1.Alpha, par1.Beta
	a2, b2 := par2.Alpha, par2.Beta

	base := mathext.Lbeta(a1, b1)
	prob := 0.0
	for i := 0.0; i < a2; i++ {
		term := mathext.Lbeta(a1+i, b1+b2) - mathext.Lbeta(1+i, b2) - base - math.Log(b2+i)
		prob += math.Exp(term)
	}
	return prob
}

// probGreaterIntegral integrates f1(x) * Pr(p2 > x + delta) over [0, 1 - delta].
// The inner integral over y is the Beta survival function.
func probGreaterIntegral(par1, par2 BetaParams, delta float64) float64 {
	upper := 1 - delta
	if upper <= 0 {
		return 0
	}

	d1 := par1.dist()
	d2 := par2.dist()
	f := func(x float64) float64 {
		return d1.Prob(x) * d2.Survival(x+delta)
	}

	// start the refinement where the mass of either law sits
	breaks := []float64{0, upper}
	for _, p := range []float64{1e-9, 1e-6, 1e-3, 0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1 - 1e-3, 1 - 1e-6, 1 - 1e-9} {
		if x := d1.Quantile(p); x > 0 && x < upper {
			breaks = append(breaks, x)
		}
		if x := d2.Quantile(p) - delta; x > 0 && x < upper {
			breaks = append(breaks, x)
		}
	}

	return math.Min(1, math.Max(0, integrate(f, breaks)))
}
