package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-roster/internal/config"
	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/storage"
	"github.com/aanand-mishra/student-roster/internal/storage/flatfile"
	"github.com/aanand-mishra/student-roster/internal/storage/sqlite"
)

// annotationQuiet marks commands that own the terminal; their logs are
// dropped instead of written to stderr.
const annotationQuiet = "quiet-logs"

// app is everything a command needs for one session. It is filled in by
// the root command's PersistentPreRunE, before any RunE is called.
type app struct {
	configPath string

	cfg    *config.Config
	log    *slog.Logger
	logs   *sqlite.Store
	roster *roster.Service
}

// ─────────────────────────────────────────────────────────────────────────────
// open runs the startup sequence:
//  1. Load configuration (file, environment, defaults)
//  2. Initialise the logger, tagged with a fresh session id
//  3. Open (and create on first run) the SQLite log store
//  4. Load the roster file
//
// A log store that cannot be opened is not fatal: the session runs without
// activity persistence. A truncated roster file is reported and the lines
// read before the bad one are kept.
// ─────────────────────────────────────────────────────────────────────────────
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Path(a.configPath))
	if err != nil {
		return err
	}
	a.cfg = cfg

	out := cmd.ErrOrStderr()
	if cmd.Annotations[annotationQuiet] == "true" {
		out = io.Discard
	}
	a.log = setupLogger(a.cfg.Env, out).With(slog.String("session", uuid.NewString()))

	// The roster service must see a nil interface, not a nil *sqlite.Store,
	// when the log store is missing.
	var logs storage.LogStore
	store, err := sqlite.Open(a.cfg.LogStorePath, a.log)
	if err != nil {
		a.log.Warn("log store unavailable, activity will not be persisted",
			slog.String("path", a.cfg.LogStorePath),
			slog.String("error", err.Error()))
	} else {
		a.logs = store
		logs = store
		if store.Created() {
			fmt.Fprintf(cmd.ErrOrStderr(), "Database created at %s\n", a.cfg.LogStorePath)
		}
	}

	a.roster = roster.New(a.cfg.RosterPath, flatfile.New(), logs, a.log)
	if err := a.roster.Load(); err != nil {
		var perr *storage.ParseError
		if !errors.As(err, &perr) {
			a.close()
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v; loaded %d students before it\n",
			perr, len(a.roster.Students()))
	}

	return nil
}

// guardTruncated refuses to go on with a command that saves when the roster
// file was only partly loaded, unless force is set.
func (a *app) guardTruncated(force bool) error {
	perr := a.roster.Truncation()
	if perr == nil || force {
		return nil
	}
	return fmt.Errorf("%w: %s line %d: %s; saving would drop that line and every line after it, "+
		"fix the file or rerun with --force", roster.ErrTruncated, perr.Path, perr.Line, perr.Reason)
}

// session wraps a RunE so the log store is released however it returns.
func (a *app) session(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return fn(cmd, args)
	}
}

// close releases the log store. Safe to call more than once.
func (a *app) close() {
	if a.logs != nil {
		if err := a.logs.Close(); err != nil {
			a.log.Error("failed to close log store", slog.String("error", err.Error()))
		}
		a.logs = nil
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
//
// Logs go to w (stderr for normal commands) so stdout carries only the
// command's own output.
func setupLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
