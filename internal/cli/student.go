package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/types"
	"github.com/aanand-mishra/student-roster/internal/utils/report"
)

// ─────────────────────────────────────────────────────────────────────────────
// COMMAND FACTORIES
// ─────────────────────────────────────────────────────────────────────────────
// Each newXxxCmd receives the shared *app and returns a command whose RunE
// closes over it. The app is only populated once the root command's
// PersistentPreRunE has run, which cobra guarantees happens before RunE.
// ─────────────────────────────────────────────────────────────────────────────

func newListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show every student",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, args []string) error {
			return printStudents(cmd, a.roster.Students(), asJSON)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <id-fragment>",
		Short: "Show students whose ID contains the fragment (case-sensitive)",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.session(func(cmd *cobra.Command, args []string) error {
			fragment := ""
			if len(args) == 1 {
				fragment = args[0]
			}
			return printStudents(cmd, a.roster.FindByID(fragment), asJSON)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var f formFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a student and save the roster",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, args []string) error {
			if err := a.guardTruncated(f.force); err != nil {
				return err
			}
			student, err := a.roster.Add(f.apply(cmd, types.Form{}))
			if err != nil {
				return err
			}
			if err := a.roster.Save(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Student %s added.\n", student.ID)
			return nil
		}),
	}
	f.bind(cmd)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var f formFlags

	cmd := &cobra.Command{
		Use:   "update <current-id>",
		Short: "Change a student's fields and save the roster",
		Long: "Change a student's fields and save the roster.\n\n" +
			"Fields without a flag keep their current value. Use --id to give the student a new ID.",
		Args: cobra.ExactArgs(1),
		RunE: a.session(func(cmd *cobra.Command, args []string) error {
			if err := a.guardTruncated(f.force); err != nil {
				return err
			}
			currentID := args[0]

			matches := a.roster.FindByID(currentID)
			var current *types.Student
			for i := range matches {
				if matches[i].ID == currentID {
					current = &matches[i]
					break
				}
			}
			if current == nil {
				return fmt.Errorf("no student with ID %q: %w", currentID, roster.ErrNotFound)
			}

			student, err := a.roster.Update(currentID, f.apply(cmd, types.FormFrom(*current)))
			if err != nil {
				return err
			}
			if err := a.roster.Save(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Student %s updated.\n", student.ID)
			return nil
		}),
	}
	f.bind(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete every student with the ID and save the roster",
		Args:  cobra.ExactArgs(1),
		RunE: a.session(func(cmd *cobra.Command, args []string) error {
			if err := a.guardTruncated(force); err != nil {
				return err
			}
			removed := a.roster.Delete(args[0])
			if removed == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No student with ID %q.\n", args[0])
				return nil
			}
			if err := a.roster.Save(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d student(s) with ID %s.\n", removed, args[0])
			return nil
		}),
	}
	bindForce(cmd, &force)
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Write the summary report and print the totals",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, args []string) error {
			sum, err := a.roster.Summarize()
			if errors.Is(err, roster.ErrEmptyRoster) {
				return errors.New("no students on the roster, nothing to summarize")
			}
			if err != nil {
				return err
			}

			if err := report.WriteSummaryFile(a.cfg.SummaryPath, sum); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Students:    %d\n", sum.Count)
			fmt.Fprintf(out, "Average age: %d\n", report.RoundedAge(sum))
			fmt.Fprintf(out, "Summary report written to %s\n", a.cfg.SummaryPath)
			return nil
		}),
	}
}

func newLogsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the activity log",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, args []string) error {
			entries, err := a.roster.Logs(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return report.WriteJSON(cmd.OutOrStdout(), entries)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.LogTable(entries))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printStudents(cmd *cobra.Command, students []types.Student, asJSON bool) error {
	if asJSON {
		return report.WriteJSON(cmd.OutOrStdout(), students)
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.RosterTable(students))
	return nil
}

// formFlags are the six form inputs shared by add and update.
type formFlags struct {
	id, name, surname, age, phone, course string
	force                                 bool
}

func (f *formFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.id, "id", "", "student ID")
	flags.StringVar(&f.name, "name", "", "first name")
	flags.StringVar(&f.surname, "surname", "", "surname")
	flags.StringVar(&f.age, "age", "", "age in years")
	flags.StringVar(&f.phone, "phone", "", "phone number, 10 digits or (000) 000-0000")
	flags.StringVar(&f.course, "course", "", "course")
	bindForce(cmd, &f.force)
}

func bindForce(cmd *cobra.Command, force *bool) {
	cmd.Flags().BoolVar(force, "force", false, "save even though the roster file was only partly loaded")
}

// apply overwrites the fields of base whose flags were given on the
// command line. A bare 10-digit phone number is put into the display mask.
func (f *formFlags) apply(cmd *cobra.Command, base types.Form) types.Form {
	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("id", &base.ID, f.id)
	set("name", &base.Name, f.name)
	set("surname", &base.Surname, f.surname)
	set("age", &base.Age, f.age)
	set("phone", &base.PhoneNumber, f.phone)
	set("course", &base.Course, f.course)

	base.PhoneNumber = roster.FormatPhone(base.PhoneNumber)
	return base
}
