package main

import (
	"context"
	"fmt"
	"sort"

	"reqdesk/cmd/reqdesk/ui"
	"reqdesk/internal/state"

	"github.com/spf13/cobra"
)

// stateCmd inspects the local store
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or clear the locally kept state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show what the local store holds",
	Args:  cobra.NoArgs,
	RunE:  withApp(runStateShow),
}

var stateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every persisted slice, including the session",
	Args:  cobra.NoArgs,
	RunE:  withApp(runStateClear),
}

func init() {
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateClearCmd)
}

func runStateShow(_ context.Context, cmd *cobra.Command, _ []string, a *app) error {
	snap := a.store.Snapshot()
	out := cmd.OutOrStdout()

	if snap.Auth.SignedIn() {
		fmt.Fprintf(out, "Signed in as %s (%s)\n", snap.Auth.Account.DisplayName(), snap.Auth.Account.Role)
	} else {
		fmt.Fprintln(out, "Not signed in")
	}
	if snap.Auth.PendingEmail != "" {
		fmt.Fprintf(out, "Awaiting verification: %s\n", snap.Auth.PendingEmail)
	}
	fmt.Fprintln(out)

	tbl := ui.NewListing("Slices", "Slice", "Items", "Last error", "Operations")
	tbl.Column("Items").Right = true
	tbl.Column("Last error").Max = 40
	tbl.AddRow(state.SliceAuth, "-", snap.Auth.Error, opSummary(authStatuses(snap.Auth)))
	tbl.AddRow(state.SliceCategory, fmt.Sprint(len(snap.Categories.Items)), snap.Categories.Error, opSummary(snap.Categories.Statuses()))
	tbl.AddRow(state.SliceRequestType, fmt.Sprint(len(snap.RequestTypes.Items)), snap.RequestTypes.Error, opSummary(snap.RequestTypes.Statuses()))
	tbl.AddRow(state.SliceUsers, fmt.Sprint(len(snap.Users.Items)), snap.Users.Error, opSummary(snap.Users.Statuses()))
	tbl.AddRow(state.SliceAnalytics, fmt.Sprint(len(snap.Analytics.Items)), snap.Analytics.Error, opSummary(snap.Analytics.Statuses()))
	a.printTable(cmd, tbl)

	if a.persistor != nil {
		fmt.Fprintf(out, "\nStorage: %s %s (keys %s)\n", a.cfg.Storage.Driver, a.cfg.Storage.Path, a.persistor.Key("<slice>"))
	}
	return nil
}

func authStatuses(s *state.AuthSlice) map[string]state.Status {
	out := make(map[string]state.Status)
	for _, op := range []string{state.OpSignIn, state.OpSignUp, state.OpVerifyOTP, state.OpResendOTP, state.OpSignedInUser, state.OpSignOut} {
		out[op] = s.Status(op)
	}
	return out
}

// opSummary lists the operations that left idle.
func opSummary(statuses map[string]state.Status) string {
	var parts []string
	for op, st := range statuses {
		if st != state.StatusIdle {
			parts = append(parts, op+"="+string(st))
		}
	}
	sort.Strings(parts)
	if len(parts) == 0 {
		return "-"
	}
	return fmt.Sprint(parts)
}

func runStateClear(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	if a.persistor == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Persistence is disabled; nothing to clear")
		return nil
	}
	if err := a.persistor.Purge(ctx); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	// Keep close from writing the loaded slices back.
	a.discard = true
	fmt.Fprintln(cmd.OutOrStdout(), "Local state cleared")
	return nil
}
