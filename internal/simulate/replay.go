package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/moguls753/abtest/internal/experiment"
	"github.com/moguls753/abtest/internal/statistics"
)

// Point is the state of the z-test after a number of visitors per arm
type Point struct {
	Visitors  int
	Control   *experiment.Variation
	Treatment *experiment.Variation
	Result    statistics.TestResult
	// Err is set when the test is undefined at this point
	Err error
}

// Replay reconstructs an arrival order for the observed outcomes and runs the
// binomial z-test (treatment vs control) after each checkpoint.
// Variations built from counts get a random order from GenerateSample;
// variations with raw data keep their recorded order.
func Replay(control, treatment *experiment.Variation, looks []int, rng *rand.Rand) ([]Point, error) {
	if control == nil || treatment == nil {
		return nil, fmt.Errorf("replay: %w", experiment.ErrNilVariation)
	}

	c, err := withData(control, rng)
	if err != nil {
		return nil, fmt.Errorf("replay control: %w", err)
	}
	t, err := withData(treatment, rng)
	if err != nil {
		return nil, fmt.Errorf("replay treatment: %w", err)
	}

	size := min(c.Total(), t.Total())
	if size == 0 {
		return nil, fmt.Errorf("replay: %w", experiment.ErrDivision)
	}

	points := make([]Point, 0, len(looks)+1)
	for _, look := range checkpoints(looks, size) {
		pc, err := c.Truncate(look - 1)
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		pt, err := t.Truncate(look - 1)
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}

		p := Point{Visitors: look, Control: pc, Treatment: pt}
		p.Result, p.Err = statistics.ZBinomialTest(pt, pc)
		points = append(points, p)
	}
	return points, nil
}

func withData(v *experiment.Variation, rng *rand.Rand) (*experiment.Variation, error) {
	if v.HasData() {
		return v, nil
	}
	return experiment.FromData(v.GenerateSample(rng))
}
