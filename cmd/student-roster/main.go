// main is the entry point of the student roster.
//
// STARTUP SEQUENCE (per command):
//  1. Load configuration from a YAML file, the environment, or defaults
//  2. Initialise the logger
//  3. Open (and create on first run) the SQLite activity log
//  4. Load the roster file
//  5. Run the command, saving the roster if the command changed it
//
// RUNNING:
//
//	go run ./cmd/student-roster --config=config/local.yaml list
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/student-roster browse
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aanand-mishra/student-roster/internal/cli"
	"github.com/aanand-mishra/student-roster/internal/utils/report"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	// Ctrl+C or kill cancels the context; a save already in progress still
	// finishes writing the roster file before the log flush sees the cancel.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := cli.New(buildVersion())
	err := root.ExecuteContext(ctx)
	stop()

	if err != nil {
		for _, line := range report.Errors(err) {
			fmt.Fprintln(os.Stderr, "Error:", line)
		}
		os.Exit(1)
	}
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}
