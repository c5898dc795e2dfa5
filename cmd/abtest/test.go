package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moguls753/abtest/internal/display"
	"github.com/moguls753/abtest/internal/export"
)

func newTestCmd(a *app) *cobra.Command {
	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Build and analyse an A/B test kept in the session store",
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new empty test, discarding the one in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			id, err := svc.NewTest(cmd.Context(), a.cfg.Session)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out(cmd), "Started test %s\n", id)
			return nil
		},
	}

	controlCmd := &cobra.Command{
		Use:     "control <total> <success>",
		Short:   "Set the control arm",
		Example: "  abtest test control 1000 100",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.AddControl(cmd.Context(), a.cfg.Session, strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(a.out(cmd), "Control set")
			return nil
		},
	}

	treatmentCmd := &cobra.Command{
		Use:     "treatment <total> <success>",
		Short:   "Add a treatment arm",
		Example: "  abtest test treatment 1000 130",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			n, err := svc.AddTreatment(cmd.Context(), a.cfg.Session, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out(cmd), "Added Treatment_%d\n", n)
			return nil
		},
	}

	deleteControlCmd := &cobra.Command{
		Use:   "delete-control",
		Short: "Remove the control arm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteControl(cmd.Context(), a.cfg.Session)
		},
	}

	deleteTreatmentCmd := &cobra.Command{
		Use:   "delete-treatment <n>",
		Short: "Remove treatment number n (from 1)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("treatment number: %w", err)
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteTreatment(cmd.Context(), a.cfg.Session, n)
		},
	}

	var describeCSV string
	describeCmd := &cobra.Command{
		Use:   "describe",
		Short: "Show the arms of the test in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			summary, err := svc.Describe(ctx, a.cfg.Session)
			if err != nil {
				return err
			}
			display.Summary(a.out(cmd), a.language(ctx, svc), summary)
			if describeCSV != "" {
				return export.ToFile(describeCSV, func(w io.Writer) error {
					return export.SummaryCSV(w, summary)
				})
			}
			return nil
		},
	}
	describeCmd.Flags().StringVar(&describeCSV, "csv", "", "also write the summary to this CSV file")

	var runCSV string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Compare every treatment of the test in progress against its control",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			comps, err := svc.Analyze(ctx, a.cfg.Session)
			if err != nil {
				return err
			}
			analysis, err := svc.Analysis(ctx, a.cfg.Session)
			if err != nil {
				return err
			}
			display.Comparisons(a.out(cmd), a.language(ctx, svc), comps, analysis)
			if runCSV != "" {
				return export.ToFile(runCSV, func(w io.Writer) error {
					return export.ComparisonsCSV(w, comps)
				})
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&runCSV, "csv", "", "also write the comparisons to this CSV file")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Print the test in progress in the exchange format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			c, err := svc.Collection(cmd.Context(), a.cfg.Session)
			if err != nil {
				return err
			}
			payload, err := c.Serialize()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out(cmd), payload)
			return nil
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Discard the test in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.CancelTest(cmd.Context(), a.cfg.Session); err != nil {
				return err
			}
			fmt.Fprintln(a.out(cmd), "Test cancelled")
			return nil
		},
	}

	testCmd.AddCommand(newCmd, controlCmd, treatmentCmd, deleteControlCmd, deleteTreatmentCmd,
		describeCmd, runCmd, exportCmd, cancelCmd)
	return testCmd
}
