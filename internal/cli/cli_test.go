package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/types"
)

type paths struct {
	roster, logs, summary string
}

// setupEnv points every configured path into a fresh temp dir.
func setupEnv(t *testing.T) paths {
	t.Helper()
	dir := t.TempDir()
	p := paths{
		roster:  filepath.Join(dir, "Student.txt"),
		logs:    filepath.Join(dir, "SMSLogs.db"),
		summary: filepath.Join(dir, "summary.txt"),
	}
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV", "dev")
	t.Setenv("ROSTER_PATH", p.roster)
	t.Setenv("LOG_STORE_PATH", p.logs)
	t.Setenv("SUMMARY_PATH", p.summary)
	return p
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := New("test")
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func addJohn(t *testing.T) {
	t.Helper()
	out, _, err := run(t, "add", "--id", "S1", "--name", "john", "--surname", "SMITH",
		"--age", "20", "--phone", "0123456789", "--course", "Maths")
	require.NoError(t, err)
	assert.Equal(t, "Student S1 added.\n", out)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "test\n", out)
}

func TestFirstRunCreatesFiles(t *testing.T) {
	p := setupEnv(t)

	out, errOut, err := run(t, "list", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
	assert.Contains(t, errOut, "Database created at "+p.logs)

	assert.FileExists(t, p.roster)
	assert.FileExists(t, p.logs)

	_, errOut, err = run(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "Database created at")
}

func TestAddNormalizesAndSaves(t *testing.T) {
	p := setupEnv(t)
	addJohn(t)

	raw, err := os.ReadFile(p.roster)
	require.NoError(t, err)
	assert.Equal(t, "S1,John,Smith,20,(012) 345-6789,Maths\n", string(raw))

	out, _, err := run(t, "list", "--json")
	require.NoError(t, err)
	var students []types.Student
	require.NoError(t, json.Unmarshal([]byte(out), &students))
	assert.Equal(t, []types.Student{
		{ID: "S1", Name: "John", Surname: "Smith", Age: 20, PhoneNumber: "(012) 345-6789", Course: "Maths"},
	}, students)
}

func TestAddInvalidLeavesFileAlone(t *testing.T) {
	p := setupEnv(t)
	addJohn(t)

	_, _, err := run(t, "add", "--id", "S1", "--name", "Jane", "--surname", "Doe",
		"--age", "-3", "--phone", "12345", "--course", "Physics")
	var verr *roster.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"Age must be a positive integer.",
		"Phone number must be exactly 10 digits.",
		"Duplicate ID found. Please use a unique ID.",
	}, verr.Result.Messages)

	raw, err := os.ReadFile(p.roster)
	require.NoError(t, err)
	assert.Equal(t, "S1,John,Smith,20,(012) 345-6789,Maths\n", string(raw))
}

func TestSearch(t *testing.T) {
	setupEnv(t)
	addJohn(t)
	_, _, err := run(t, "add", "--id", "X9", "--name", "Ann", "--surname", "Lee",
		"--age", "30", "--phone", "(012) 345-6781", "--course", "Art")
	require.NoError(t, err)

	out, _, err := run(t, "search", "S", "--json")
	require.NoError(t, err)
	var students []types.Student
	require.NoError(t, json.Unmarshal([]byte(out), &students))
	require.Len(t, students, 1)
	assert.Equal(t, "S1", students[0].ID)

	out, _, err = run(t, "search", "s", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	out, _, err = run(t, "search")
	require.NoError(t, err)
	assert.Contains(t, out, "S1")
	assert.Contains(t, out, "X9")
}

func TestUpdate(t *testing.T) {
	p := setupEnv(t)
	addJohn(t)
	_, _, err := run(t, "add", "--id", "S2", "--name", "Jane", "--surname", "Doe",
		"--age", "22", "--phone", "0123456780", "--course", "Physics")
	require.NoError(t, err)

	out, _, err := run(t, "update", "S1", "--course", "History", "--id", "S3")
	require.NoError(t, err)
	assert.Equal(t, "Student S3 updated.\n", out)

	raw, err := os.ReadFile(p.roster)
	require.NoError(t, err)
	assert.Equal(t, "S3,John,Smith,20,(012) 345-6789,History\n"+
		"S2,Jane,Doe,22,(012) 345-6780,Physics\n", string(raw))

	_, _, err = run(t, "update", "S3", "--id", "S2")
	var derr *roster.DuplicateKeyError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "S2", derr.ID)

	_, _, err = run(t, "update", "nope", "--name", "X")
	assert.True(t, errors.Is(err, roster.ErrNotFound))
}

func TestDelete(t *testing.T) {
	p := setupEnv(t)
	addJohn(t)

	out, _, err := run(t, "delete", "S9")
	require.NoError(t, err)
	assert.Equal(t, "No student with ID \"S9\".\n", out)

	out, _, err = run(t, "delete", "S1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted 1 student(s) with ID S1.\n", out)

	raw, err := os.ReadFile(p.roster)
	require.NoError(t, err)
	assert.Empty(t, string(raw))
}

func TestSummary(t *testing.T) {
	p := setupEnv(t)

	_, _, err := run(t, "summary")
	require.Error(t, err)
	assert.NoFileExists(t, p.summary)

	addJohn(t)
	_, _, err = run(t, "add", "--id", "S2", "--name", "Jane", "--surname", "Doe",
		"--age", "25", "--phone", "0123456780", "--course", "Physics")
	require.NoError(t, err)

	out, _, err := run(t, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Students:    2")
	assert.Contains(t, out, "Average age: 23")

	raw, err := os.ReadFile(p.summary)
	require.NoError(t, err)
	assert.Equal(t, "Total Number of Students: 2\nAverage Age of Students: 22.5\n", string(raw))
}

func TestLogsRecordEachChange(t *testing.T) {
	setupEnv(t)
	addJohn(t)
	_, _, err := run(t, "update", "S1", "--name", "Johnny")
	require.NoError(t, err)
	_, _, err = run(t, "delete", "S1")
	require.NoError(t, err)

	out, _, err := run(t, "logs", "--json")
	require.NoError(t, err)

	var entries []types.LogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, types.ActionAdded, entries[0].Action)
	assert.Equal(t, types.ActionUpdated, entries[1].Action)
	assert.Equal(t, types.ActionDeleted, entries[2].Action)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.ID)
		assert.Equal(t, "S1", e.StudentID)
	}
}

func TestMissingConfigFile(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, "list", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestMutatingCommandsRefuseTruncatedRoster(t *testing.T) {
	p := setupEnv(t)
	contents := "S1,John,Smith,20,(012) 345-6789,Maths\n" +
		"S2,Bad,Line,xx,(012) 345-6780,Physics\n" +
		"S3,Jane,Doe,22,(012) 345-6781,Art\n"
	require.NoError(t, os.WriteFile(p.roster, []byte(contents), 0o644))

	for _, args := range [][]string{
		{"add", "--id", "S4", "--name", "Ann", "--surname", "Lee", "--age", "30", "--phone", "0123456781", "--course", "Art"},
		{"update", "S1", "--course", "History"},
		{"delete", "S1"},
	} {
		_, errOut, err := run(t, args...)
		require.ErrorIs(t, err, roster.ErrTruncated, "%v", args)
		assert.Contains(t, err.Error(), "--force")
		assert.Contains(t, errOut, "Warning:")

		raw, err := os.ReadFile(p.roster)
		require.NoError(t, err)
		assert.Equal(t, contents, string(raw), "%v must not touch the file", args)
	}

	// Read-only commands still work on what was loaded.
	out, _, err := run(t, "list", "--json")
	require.NoError(t, err)
	var students []types.Student
	require.NoError(t, json.Unmarshal([]byte(out), &students))
	require.Len(t, students, 1)

	_, _, err = run(t, "add", "--force", "--id", "S4", "--name", "Ann", "--surname", "Lee",
		"--age", "30", "--phone", "0123456781", "--course", "Art")
	require.NoError(t, err)

	raw, err := os.ReadFile(p.roster)
	require.NoError(t, err)
	assert.Equal(t, "S1,John,Smith,20,(012) 345-6789,Maths\n"+
		"S4,Ann,Lee,30,(012) 345-6781,Art\n", string(raw))
}

func TestAddRejectsDelimiterInFields(t *testing.T) {
	p := setupEnv(t)
	addJohn(t)

	_, _, err := run(t, "add", "--id", "S2", "--name", "smith, jr", "--surname", "Doe",
		"--age", "22", "--phone", "0123456780", "--course", "Physics")
	var verr *roster.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Name cannot contain commas or line breaks."}, verr.Result.Messages)

	_, _, err = run(t, "add", "--id", "S3", "--name", "Ann", "--surname", "Lee",
		"--age", "30", "--phone", "0123456781", "--course", "Art")
	require.NoError(t, err)

	raw, err := os.ReadFile(p.roster)
	require.NoError(t, err)
	assert.Equal(t, "S1,John,Smith,20,(012) 345-6789,Maths\n"+
		"S3,Ann,Lee,30,(012) 345-6781,Art\n", string(raw))
}
