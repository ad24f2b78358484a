package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sipico/covid-counter-client/internal/tui"
)

func newDashboardCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:         "dashboard",
		Aliases:     []string{"ui"},
		Short:       "Open the interactive dashboard",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationInteractive: "true"},
		RunE: rt.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			return tui.Run(cmd.Context(), tui.Config{
				Session: app.Session,
				Auth:    app.Auth,
				Lister:  app.Client,
				Logger:  app.Logger,
				Window:  app.Config.DebounceWindow,
			}, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
		}),
	}
}
