package main

import (
	"context"
	"fmt"

	"reqdesk/cmd/reqdesk/ui"
	"reqdesk/internal/actions"
	"reqdesk/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// dashboardCmd opens the terminal dashboard
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive request dashboard",
	Long: `Shows the requests the signed-in account can see, with resolved category
and type names and the load state of every slice.

Keys: r refresh, tab cycle the status filter, q quit.`,
	Args: cobra.NoArgs,
	RunE: withApp(runDashboard),
}

func runDashboard(_ context.Context, _ *cobra.Command, _ []string, a *app) error {
	if _, err := a.session(); err != nil {
		return err
	}

	// Each refresh gets its own deadline; the dashboard outlives --timeout.
	requestTimeout := a.cfg.GetRequestTimeout()
	refresh := func(ctx context.Context, acct domain.Account) error {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return actions.Preload(ctx, a.actions, acct)
	}

	d := ui.NewDashboard(a.store, refresh, a.styles(), a.cfg.UI.MaxRows)
	defer d.Close()
	d.SetRefreshInterval(a.cfg.UI.GetRefreshInterval())

	p := tea.NewProgram(d, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
