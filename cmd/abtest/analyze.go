package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/moguls753/abtest/internal/display"
	"github.com/moguls753/abtest/internal/experiment"
	"github.com/moguls753/abtest/internal/export"
	"github.com/moguls753/abtest/internal/statistics"
)

type analyzeOptions struct {
	control    string
	treatments []string
	input      string
	alpha      float64
	epsilon    float64
	delta      float64
	language   string
	csvPath    string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare treatments against a control without storing anything",
		Long: `Compare one or more treatments against a control. Arms are given as
"<total> <success>" pairs, or read from an exchange-format JSON file with --input.`,
		Example: `  abtest analyze --control "1000 100" --treatment "1000 130"
  abtest analyze --input test.json --delta 0.01 --csv results.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.control, "control", "", `control arm as "<total> <success>"`)
	cmd.Flags().StringArrayVar(&opts.treatments, "treatment", nil, `treatment arm as "<total> <success>" (repeatable)`)
	cmd.Flags().StringVar(&opts.input, "input", "", "read the collection from an exchange-format JSON file")
	cmd.Flags().Float64Var(&opts.alpha, "alpha", 0, "significance level (default from settings)")
	cmd.Flags().Float64Var(&opts.epsilon, "epsilon", 0, "posterior probability threshold (default from settings)")
	cmd.Flags().Float64Var(&opts.delta, "delta", 0, "superiority margin (default from config)")
	cmd.Flags().StringVar(&opts.language, "lang", "", "report language: eng or rus (default from settings)")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "also write the comparisons to this CSV file")
	cmd.MarkFlagsMutuallyExclusive("input", "control")
	cmd.MarkFlagsMutuallyExclusive("input", "treatment")
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	c, err := a.collectionFromFlags(opts)
	if err != nil {
		return err
	}

	analysis := a.cfg.Analysis.Base()
	analysis.Alpha = a.cfg.Defaults.Alpha
	analysis.Epsilon = a.cfg.Defaults.Epsilon
	flags := cmd.Flags()
	if flags.Changed("alpha") {
		analysis.Alpha = opts.alpha
	}
	if flags.Changed("epsilon") {
		analysis.Epsilon = opts.epsilon
	}
	if flags.Changed("delta") {
		analysis.Delta = opts.delta
	}
	lang := a.cfg.Defaults.Language
	if opts.language != "" {
		lang = opts.language
	}

	comps, err := statistics.CompareCollection(c, analysis)
	if err != nil {
		return err
	}

	out := a.out(cmd)
	display.Summary(out, lang, c.Describe())
	display.Comparisons(out, lang, comps, analysis)

	if opts.csvPath != "" {
		if err := export.ToFile(opts.csvPath, func(w io.Writer) error {
			return export.ComparisonsCSV(w, comps)
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Comparisons written to %s\n", opts.csvPath)
	}
	return nil
}

func (a *app) collectionFromFlags(opts *analyzeOptions) (*experiment.Collection, error) {
	c, err := experiment.NewCollection(a.logger)
	if err != nil {
		return nil, err
	}

	if opts.input != "" {
		raw, err := os.ReadFile(opts.input)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		if err := c.Deserialize(string(raw)); err != nil {
			return nil, err
		}
		return c, nil
	}

	if opts.control == "" {
		return nil, fmt.Errorf("--control or --input is required")
	}
	control, err := experiment.ParseCounts(opts.control)
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	if err := c.AddControl(control); err != nil {
		return nil, err
	}

	for i, raw := range opts.treatments {
		t, err := experiment.ParseCounts(raw)
		if err != nil {
			return nil, fmt.Errorf("treatment %d: %w", i+1, err)
		}
		if err := c.AddTreatments(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}
