package statistics

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/moguls753/abtest/internal/experiment"
)

var (
	// ErrNoControl is returned when a collection has no control to compare against
	ErrNoControl = errors.New("collection has no control variation")
	// ErrInvalidAnalysis is returned for thresholds outside their ranges
	ErrInvalidAnalysis = errors.New("invalid analysis")
)

var validate = validator.New()

// Analysis holds the decision thresholds of a comparison
type Analysis struct {
	Alpha   float64    `validate:"gt=0,lt=1"`  // significance level of the frequentist tests
	Epsilon float64    `validate:"gt=0,lt=1"`  // posterior probability threshold
	Delta   float64    `validate:"gte=0,lt=1"` // superiority margin
	Prior   BetaParams // prior of both arms
}

// Validate checks the thresholds and the prior
func (a Analysis) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnalysis, err)
	}
	return nil
}

// DefaultAnalysis returns alpha 0.05, epsilon 0.9, no margin and a uniform prior
func DefaultAnalysis() Analysis {
	return Analysis{
		Alpha:   0.05,
		Epsilon: 0.9,
		Delta:   0,
		Prior:   UniformPrior,
	}
}

// Comparison holds the results of comparing a treatment against control.
// All tests are run in the direction "treatment converts better".
type Comparison struct {
	Name string

	Superiority TestResult
	ZTest       TestResult
	Fisher      TestResult

	PosteriorControl   BetaParams
	PosteriorTreatment BetaParams
	ProbBetter         float64 // Pr(p_treatment > p_control)
	ProbBetterByDelta  float64 // Pr(p_treatment > p_control + delta), equal to ProbBetter when delta is 0

	Significant       bool // z-test p-value below alpha
	FisherSignificant bool // Fisher p-value below alpha
	BayesConfident    bool // ProbBetterByDelta at least epsilon
}

// Compare performs the frequentist and Bayesian comparison of treatment vs control
func Compare(control, treatment *experiment.Variation, a Analysis) (*Comparison, error) {
	if control == nil || treatment == nil {
		return nil, fmt.Errorf("compare: %w", experiment.ErrNilVariation)
	}

	sup, err := ZSuperiorityTest(treatment, control, a.Delta)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	z, err := ZBinomialTest(treatment, control)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	fisher, err := FisherExactTest(treatment, control)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}

	postC := PosteriorBetaParameters(control, a.Prior)
	postT := PosteriorBetaParameters(treatment, a.Prior)
	prob, err := ProbGreater(postC, postT, 0)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	probDelta := prob
	if a.Delta > 0 {
		probDelta, err = ProbGreater(postC, postT, a.Delta)
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
	}

	return &Comparison{
		Superiority:        sup,
		ZTest:              z,
		Fisher:             fisher,
		PosteriorControl:   postC,
		PosteriorTreatment: postT,
		ProbBetter:         prob,
		ProbBetterByDelta:  probDelta,
		Significant:        z.PValue < a.Alpha,
		FisherSignificant:  fisher.PValue < a.Alpha,
		BayesConfident:     probDelta >= a.Epsilon,
	}, nil
}

// CompareCollection compares every treatment of the collection against its control
func CompareCollection(c *experiment.Collection, a Analysis) ([]Comparison, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	control := c.Control()
	if control == nil {
		return nil, ErrNoControl
	}

	treatments := c.Treatments()
	comparisons := make([]Comparison, 0, len(treatments))
	for i, t := range treatments {
		comp, err := Compare(control, t, a)
		if err != nil {
			return nil, fmt.Errorf("treatment %d: %w", i+1, err)
		}
		comp.Name = fmt.Sprintf("Treatment_%d", i+1)
		comparisons = append(comparisons, *comp)
	}
	return comparisons, nil
}
