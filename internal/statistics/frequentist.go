package statistics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/moguls753/abtest/internal/experiment"
)

// TestResult is the outcome of a one-sided hypothesis test
type TestResult struct {
	Statistic float64
	PValue    float64
}

// ZSuperiorityTest performs the test for non-inferiority/superiority of
// binomial samples (Chow, Sample Size Calculations in Clinical Research, 4.2.2).
//
// With p1, p2 the true conversion rates of v1 and v2:
// H0: p1 - p2 <= delta, H1: p1 - p2 > delta.
func ZSuperiorityTest(v1, v2 *experiment.Variation, delta float64) (TestResult, error) {
	if v1 == nil || v2 == nil {
		return TestResult{}, fmt.Errorf("superiority test: %w", experiment.ErrNilVariation)
	}
	p1, err := v1.EstimateConversion()
	if err != nil {
		return TestResult{}, fmt.Errorf("superiority test: first variation: %w", err)
	}
	p2, err := v2.EstimateConversion()
	if err != nil {
		return TestResult{}, fmt.Errorf("superiority test: second variation: %w", err)
	}

	n1 := float64(v1.Total())
	n2 := float64(v2.Total())
	pe := p1 - p2 - delta                   // point estimate
	variance := p1*(1-p1)/n1 + p2*(1-p2)/n2 // variance estimate
	z := pe / math.Sqrt(variance)

	return TestResult{Statistic: z, PValue: distuv.UnitNormal.Survival(z)}, nil
}

// ZBinomialTest compares the means of two binomial samples with a continuity
// corrected pooled z statistic (Kobzar, Applied Mathematical Statistics, 4.1.3.1).
//
// H0: p1 = p2, H1: p1 > p2.
// When both samples are all failures or all successes the pooled variance is
// zero and the statistic is infinite or NaN.
func ZBinomialTest(v1, v2 *experiment.Variation) (TestResult, error) {
	if v1 == nil || v2 == nil {
		return TestResult{}, fmt.Errorf("binomial test: %w", experiment.ErrNilVariation)
	}
	if v1.Total() == 0 || v2.Total() == 0 {
		return TestResult{}, fmt.Errorf("binomial test: empty variation: %w", experiment.ErrDivision)
	}

	m1 := float64(v1.Success())
	m2 := float64(v2.Success())
	n1 := float64(v1.Total())
	n2 := float64(v2.Total())

	pe := m1/n1 - m2/n2 + 0.5*(1/n1-1/n2)
	variance := (m1 + m2) / (n1 + n2) *
		(n1 + n2 - m1 - m2) / (n1 + n2) *
		(1/n1 + 1/n2)
	z := pe / math.Sqrt(variance)

	return TestResult{Statistic: z, PValue: distuv.UnitNormal.Survival(z)}, nil
}

// FisherExactTest performs the one-sided ("greater") Fisher exact test on the
// 2x2 table
//
//	| s1      s2      |
//	| n1 - s1 n2 - s2 |
//
// (Casella & Berger, Statistical Inference, Example 8.3.30).
// The statistic is the sample odds ratio, the p-value the exact hypergeometric
// upper tail. H0: p1 = p2, H1: p1 > p2.
func FisherExactTest(v1, v2 *experiment.Variation) (TestResult, error) {
	if v1 == nil || v2 == nil {
		return TestResult{}, fmt.Errorf("fisher test: %w", experiment.ErrNilVariation)
	}

	a := v1.Success()
	b := v2.Success()
	c := v1.Total() - a
	d := v2.Total() - b

	// degenerate tables carry no information
	if a+b == 0 || c+d == 0 || a+c == 0 || b+d == 0 {
		return TestResult{Statistic: math.NaN(), PValue: 1}, nil
	}

	oddsRatio := math.Inf(1)
	if b > 0 && c > 0 {
		oddsRatio = float64(a) * float64(d) / (float64(b) * float64(c))
	}

	return TestResult{
		Statistic: oddsRatio,
		PValue:    hypergeomUpperTail(a, a+b+c+d, a+b, a+c),
	}, nil
}

// hypergeomUpperTail returns Pr(X >= k) for X counting marked items in n draws
// without replacement from a population of size total holding marked items.
func hypergeomUpperTail(k, total, marked, n int) float64 {
	hi := min(marked, n)
	if k > hi {
		return 0
	}
	if k <= max(0, n-(total-marked)) {
		return 1
	}

	logDenom := logChoose(total, n)
	logTerms := make([]float64, 0, hi-k+1)
	maxTerm := math.Inf(-1)
	for x := k; x <= hi; x++ {
		lt := logChoose(marked, x) + logChoose(total-marked, n-x) - logDenom
		logTerms = append(logTerms, lt)
		maxTerm = math.Max(maxTerm, lt)
	}

	sum := 0.0
	for _, lt := range logTerms {
		sum += math.Exp(lt - maxTerm)
	}
	return math.Min(1, math.Exp(maxTerm)*sum)
}

// logChoose returns log C(n, k)
func logChoose(n, k int) float64 {
	return combin.LogGeneralizedBinomial(float64(n), float64(k))
}
