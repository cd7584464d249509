// Package types holds all shared data structures (models) used across
// the application. The roster service, both stores and the presentation
// packages import types without importing each other.
//
// Nothing in here validates. The file store builds Student values straight
// from disk, even ones that would fail interactive validation.
package types

import (
	"strconv"
	"time"
)

// Student represents one row of the roster.
//
// The json:"..." tags control how the record appears in --json output.
// Field order in the flat file is fixed and lives in the flatfile package,
// not here.
type Student struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Age         int    `json:"age"`
	PhoneNumber string `json:"phoneNumber"`
	Course      string `json:"course"`
}

// Form is the raw snapshot of the six input fields submitted by the
// presentation layer on "add" or "update".
//
// Age stays a string here: turning it into a number is part of validation,
// and a failed parse has to be reported together with every other problem.
//
// validate:"..." tags are read by go-playground/validator. positive_int,
// phone and flatfield are custom rules registered by the roster package.
type Form struct {
	ID          string `json:"id"          validate:"required,flatfield"`
	Name        string `json:"name"        validate:"required,flatfield"`
	Surname     string `json:"surname"     validate:"required,flatfield"`
	Age         string `json:"age"         validate:"positive_int"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	Course      string `json:"course"      validate:"required,flatfield"`
}

// FormFrom fills a Form from an existing record, e.g. to prefill an edit
// from the selected row.
func FormFrom(s Student) Form {
	return Form{
		ID:          s.ID,
		Name:        s.Name,
		Surname:     s.Surname,
		Age:         strconv.Itoa(s.Age),
		PhoneNumber: s.PhoneNumber,
		Course:      s.Course,
	}
}

// Activity labels written to the log store.
const (
	ActionAdded   = "Student Added"
	ActionUpdated = "Updated Student"
	ActionDeleted = "Deleted Student"
)

// LogEntry is one activity record.
//
// (Action, StudentID, Timestamp) is the natural key: the log store never
// holds two rows with the same triple. ID is the store's LogID and stays 0
// for entries that have not been written yet.
type LogEntry struct {
	ID        int64     `json:"logId,omitempty"`
	Action    string    `json:"action"`
	StudentID string    `json:"studentId"`
	Timestamp time.Time `json:"timestamp"`
}
