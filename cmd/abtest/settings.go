package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moguls753/abtest/internal/session"
	"github.com/moguls753/abtest/internal/store"
)

func newSettingsCmd(a *app) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the analysis settings of the session",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			settings, err := svc.Settings(cmd.Context(), a.cfg.Session)
			if err != nil {
				return err
			}
			printSettings(cmd, settings)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: fmt.Sprintf(`Change one setting. Keys:
  %s   report language, eng or rus
  %s      significance level of the frequentist tests, in (0, 1)
  %s    posterior probability threshold, in (0, 1)`,
			session.KeyLanguage, session.KeyAlpha, session.KeyEpsilon),
		Example: "  abtest settings set alpha 0.01",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			settings, err := svc.UpdateSetting(cmd.Context(), a.cfg.Session, args[0], args[1])
			if err != nil {
				return err
			}
			printSettings(cmd, settings)
			return nil
		},
	}

	settingsCmd.AddCommand(showCmd, setCmd)
	return settingsCmd
}

func printSettings(cmd *cobra.Command, s store.Settings) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "language: %s\n", s.Language)
	fmt.Fprintf(out, "alpha:    %g\n", s.Alpha)
	fmt.Fprintf(out, "epsilon:  %g\n", s.Epsilon)
}
