package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-assistant/internal/observability"
	"github.com/jonathan/job-assistant/internal/storage"
	"github.com/jonathan/job-assistant/internal/types"
)

var (
	listLimit   int
	statusNotes string
)

var applicationsCmd = &cobra.Command{
	Use:     "applications",
	Aliases: []string{"apps"},
	Short:   "Inspect and track saved applications",
}

var applicationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent applications, newest first",
	Args:  cobra.NoArgs,
	RunE:  runApplicationsList,
}

var applicationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one application in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runApplicationsShow,
}

var applicationsStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Update the tracking status of an application",
	Long: fmt.Sprintf("Update the tracking status of an application.\n\nValid statuses: %v",
		types.ApplicationStatuses),
	Args: cobra.ExactArgs(2),
	RunE: runApplicationsStatus,
}

func init() {
	applicationsListCmd.Flags().IntVarP(&listLimit, "limit", "n", storage.DefaultListLimit, "Maximum number of applications to list")
	applicationsStatusCmd.Flags().StringVar(&statusNotes, "notes", "", "Free-form notes stored with the status")

	applicationsCmd.AddCommand(applicationsListCmd, applicationsShowCmd, applicationsStatusCmd)
	rootCmd.AddCommand(applicationsCmd)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid application id %q", raw)
	}
	return id, nil
}

func runApplicationsList(cmd *cobra.Command, _ []string) error {
	if listLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	apps, err := a.store.List(cmd.Context(), listLimit)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintApplications(apps)
	return nil
}

func runApplicationsShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintApplication(rec)
	return nil
}

func runApplicationsStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	update := types.StatusUpdate{Status: args[1], Notes: statusNotes}
	if err := update.Validate(); err != nil {
		return fmt.Errorf("invalid status %q (valid: %v)", args[1], types.ApplicationStatuses)
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.UpdateStatus(cmd.Context(), id, update.Status, update.Notes); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Application %d marked %s\n", id, update.Status)
	return nil
}
