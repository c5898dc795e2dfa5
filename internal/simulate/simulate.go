// Package simulate estimates the operating characteristics of the binomial
// z-test by Monte-Carlo simulation, and replays observed counts to show how
// the test evolves as data arrives.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/moguls753/abtest/internal/experiment"
	"github.com/moguls753/abtest/internal/statistics"
)

// ErrInvalidConfig is returned when a simulation config fails validation
var ErrInvalidConfig = errors.New("invalid simulation config")

var validate = validator.New()

// Config describes a power simulation
type Config struct {
	ControlRate   float64 `validate:"gte=0,lte=1"`
	TreatmentRate float64 `validate:"gte=0,lte=1"`
	Size          int     `validate:"gt=0"` // visitors per arm
	Trials        int     `validate:"gt=0"`
	Workers       int     `validate:"gt=0"`
	Alpha         float64 `validate:"gt=0,lt=1"`
	Checkpoints   []int   `validate:"dive,gte=0"` // interim looks; the full size is always looked at
	Seed          uint64
}

// DefaultConfig returns a 1000-trial simulation of 10% vs 12% with 5000 visitors per arm
func DefaultConfig() Config {
	return Config{
		ControlRate:   0.10,
		TreatmentRate: 0.12,
		Size:          5000,
		Trials:        1000,
		Workers:       4,
		Alpha:         0.05,
		Checkpoints:   []int{1000, 2000, 3000, 4000},
		Seed:          1,
	}
}

// Result summarizes a power simulation
type Result struct {
	Trials int
	// Power is the share of trials rejecting H0 at the full size
	Power float64
	// PeekingRejectRate is the share of trials rejecting H0 at any checkpoint
	PeekingRejectRate float64
	// PValues summarizes the p-values at the full size
	PValues statistics.Stats
}

type trialResult struct {
	finalPValue float64
	rejectedAny bool
}

// Run simulates cfg.Trials experiments concurrently
func Run(ctx context.Context, cfg Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	looks := checkpoints(cfg.Checkpoints, cfg.Size)
	results := make([]trialResult, cfg.Trials)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Trials; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			res, err := runTrial(cfg, looks, rng)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pvalues := make([]float64, len(results))
	rejectedAny := 0
	for i, r := range results {
		pvalues[i] = r.finalPValue
		if r.rejectedAny {
			rejectedAny++
		}
	}

	res := &Result{
		Trials:            cfg.Trials,
		Power:             statistics.FractionBelow(pvalues, cfg.Alpha),
		PeekingRejectRate: float64(rejectedAny) / float64(cfg.Trials),
		PValues:           statistics.Calculate(pvalues),
	}
	logger.Info("simulation finished",
		zap.Int("trials", cfg.Trials),
		zap.Float64("power", res.Power),
		zap.Float64("peeking_reject_rate", res.PeekingRejectRate))
	return res, nil
}

func runTrial(cfg Config, looks []int, rng *rand.Rand) (trialResult, error) {
	control, err := experiment.FromData(bernoulli(rng, cfg.ControlRate, cfg.Size))
	if err != nil {
		return trialResult{}, err
	}
	treatment, err := experiment.FromData(bernoulli(rng, cfg.TreatmentRate, cfg.Size))
	if err != nil {
		return trialResult{}, err
	}

	var res trialResult
	for _, look := range looks {
		c, t := control, treatment
		if look < cfg.Size {
			// Truncate keeps look+1 outcomes
			if c, err = control.Truncate(look - 1); err != nil {
				return trialResult{}, err
			}
			if t, err = treatment.Truncate(look - 1); err != nil {
				return trialResult{}, err
			}
		}

		z, err := statistics.ZBinomialTest(t, c)
		if err != nil {
			return trialResult{}, err
		}
		if z.PValue < cfg.Alpha {
			res.rejectedAny = true
		}
		if look == cfg.Size {
			res.finalPValue = z.PValue
		}
	}
	return res, nil
}

// checkpoints returns the sorted distinct looks in [1, size], always ending at size
func checkpoints(in []int, size int) []int {
	looks := make([]int, 0, len(in)+1)
	for _, c := range in {
		if c >= 1 && c < size {
			looks = append(looks, c)
		}
	}
	looks = append(looks, size)
	slices.Sort(looks)
	return slices.Compact(looks)
}

func bernoulli(rng *rand.Rand, p float64, n int) []int {
	out := make([]int, n)
	for i := range out {
		if rng.Float64() < p {
			out[i] = 1
		}
	}
	return out
}
