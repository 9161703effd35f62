package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/wite2/internal/admin"
	"github.com/JonMunkholm/wite2/internal/history"
	"github.com/JonMunkholm/wite2/internal/report"
)

// requireHistory opens the history database or explains that none is set.
func (a *app) requireHistory(cmd *cobra.Command) (*history.Store, error) {
	store, err := a.openHistory(cmd)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, history.ErrNotConfigured
	}
	return store, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse or reset recorded audit runs",
		Long: `Audit reports are recorded in PostgreSQL when DATABASE_URL is set. These
commands list past runs, show the findings of one run and clear the
history.`,
	}
	cmd.AddCommand(newHistoryListCmd(a), newHistoryShowCmd(a), newHistoryResetCmd(a))
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.requireHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return report.WriteRuns(a.out, a.format, runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the findings of one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			store, err := a.requireHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			findings, err := store.Findings(cmd.Context(), id)
			if err != nil {
				return err
			}
			return report.WriteFindings(a.out, a.format, id, findings)
		},
	}
}

func newHistoryResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every recorded run and finding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete the audit history without --yes")
			}
			store, err := a.requireHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			reset := &admin.ResetHistory{Store: store}
			if err := reset.ResetAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "audit history cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
