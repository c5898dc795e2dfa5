package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/moguls753/abtest/internal/display"
	"github.com/moguls753/abtest/internal/experiment"
	"github.com/moguls753/abtest/internal/export"
	"github.com/moguls753/abtest/internal/simulate"
	"github.com/moguls753/abtest/internal/statistics"
)

func newSimulateCmd(a *app) *cobra.Command {
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Monte-Carlo power analysis and replay of observed counts",
	}
	simulateCmd.AddCommand(newPowerCmd(a), newReplayCmd(a))
	return simulateCmd
}

func newPowerCmd(a *app) *cobra.Command {
	cfg := simulate.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Estimate the power of the z-test and the cost of peeking",
		Example: `  abtest simulate power --control-rate 0.10 --treatment-rate 0.12 --size 5000
  abtest simulate power --treatment-rate 0.10 --checkpoints 500,1000,2000   # false positive rate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("trials") {
				cfg.Trials = a.cfg.Simulation.Trials
			}
			if !cmd.Flags().Changed("workers") {
				cfg.Workers = a.cfg.Simulation.Workers
			}
			if !cmd.Flags().Changed("alpha") {
				cfg.Alpha = a.cfg.Defaults.Alpha
			}

			ctx := cmd.Context()
			if a.cfg.Simulation.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.Simulation.Timeout)
				defer cancel()
			}

			res, err := simulate.Run(ctx, cfg, a.logger)
			if err != nil {
				return err
			}
			display.Simulation(a.out(cmd), cfg, res)
			return nil
		},
	}

	cmd.Flags().Float64Var(&cfg.ControlRate, "control-rate", cfg.ControlRate, "true conversion rate of the control")
	cmd.Flags().Float64Var(&cfg.TreatmentRate, "treatment-rate", cfg.TreatmentRate, "true conversion rate of the treatment")
	cmd.Flags().IntVar(&cfg.Size, "size", cfg.Size, "visitors per arm")
	cmd.Flags().IntVar(&cfg.Trials, "trials", cfg.Trials, "number of simulated tests (default from config)")
	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent workers (default from config)")
	cmd.Flags().Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "significance level (default from settings)")
	cmd.Flags().IntSliceVar(&cfg.Checkpoints, "checkpoints", cfg.Checkpoints, "interim looks, in visitors per arm")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	return cmd
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		control, treatment string
		looks              []int
		seed               uint64
		alpha              float64
		csvPath            string
	)
	cmd := &cobra.Command{
		Use:     "replay",
		Short:   "Show how the z-test evolves as the observed visitors arrive",
		Example: `  abtest simulate replay --control "1000 100" --treatment "1000 130" --looks 100,250,500`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := experiment.ParseCounts(control)
			if err != nil {
				return fmt.Errorf("control: %w", err)
			}
			t, err := experiment.ParseCounts(treatment)
			if err != nil {
				return fmt.Errorf("treatment: %w", err)
			}
			if !cmd.Flags().Changed("alpha") {
				alpha = a.cfg.Defaults.Alpha
			} else if alpha <= 0 || alpha >= 1 {
				return fmt.Errorf("%w: alpha must be in (0, 1), got %v", statistics.ErrInvalidAnalysis, alpha)
			}

			rng := rand.New(rand.NewPCG(seed, seed))
			points, err := simulate.Replay(c, t, looks, rng)
			if err != nil {
				return err
			}
			display.Replay(a.out(cmd), points, alpha)

			if csvPath != "" {
				return export.ToFile(csvPath, func(w io.Writer) error {
					return export.ReplayCSV(w, points)
				})
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&control, "control", "", `control arm as "<total> <success>"`)
	cmd.Flags().StringVar(&treatment, "treatment", "", `treatment arm as "<total> <success>"`)
	cmd.Flags().IntSliceVar(&looks, "looks", []int{100, 250, 500, 1000}, "interim looks, in visitors per arm")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed of the arrival order")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "significance level (default from settings)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the trajectory to this CSV file")
	cmd.MarkFlagRequired("control")
	cmd.MarkFlagRequired("treatment")
	return cmd
}
