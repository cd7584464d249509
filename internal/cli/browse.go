package cli

import (
	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-roster/internal/tui"
)

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "browse",
		Short:       "Open the interactive roster browser",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationQuiet: "true"},
		RunE: a.session(func(cmd *cobra.Command, args []string) error {
			return tui.Run(a.roster, a.cfg.SummaryPath)
		}),
	}
}
