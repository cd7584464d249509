// Package cli is the command-line front end of the roster.
//
// Every command runs one session: load the roster, do one thing, and for
// commands that change it, save the file and flush the activity log before
// exiting. The interactive "browse" command keeps the session open instead.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// New creates the root command.
func New(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "student-roster",
		Short:         "Manage a roster of student records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the configuration YAML file")

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newAddCmd(a))
	root.AddCommand(newUpdateCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newSummaryCmd(a))
	root.AddCommand(newLogsCmd(a))
	root.AddCommand(newBrowseCmd(a))

	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// No session needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
		},
	}
}
