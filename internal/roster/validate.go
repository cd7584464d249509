package roster

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-roster/internal/types"
)

// Tag reported in Result.Fields for an ID that is already on the roster.
const tagDuplicate = "duplicate"

// phoneMask is the display mask a phone number must match; '0' stands for
// one ASCII digit.
const (
	phoneMask   = "(000) 000-0000"
	phoneDigits = 10
)

// flatFieldForbidden are the characters the roster file cannot hold in a
// field: the delimiter and line breaks.
const flatFieldForbidden = ",\r\n"

// Result is the outcome of validating a Form.
//
// It never touches any UI: the presentation layer decides how to show
// Messages (one batch) and which inputs to highlight (Fields).
type Result struct {
	OK bool

	// Messages holds every violation in a stable, user-facing order.
	Messages []string

	// Fields maps a Form field name ("ID", "Age", ...) to the rule it broke.
	Fields map[string]string

	// Student is the normalized record: capitalized name and surname, age
	// parsed. Only meaningful when OK is true, but filled regardless.
	Student types.Student

	// Duplicates lists the roster entries that already use the form's ID.
	Duplicates []types.Student
}

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole process.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("positive_int", isPositiveInt)
	_ = v.RegisterValidation("phone", isMaskedPhone)
	_ = v.RegisterValidation("flatfield", isFlatField)
	return v
}

func isPositiveInt(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Field().String())
	return err == nil && n > 0
}

func isMaskedPhone(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != len(phoneMask) {
		return false
	}
	for i := 0; i < len(phoneMask); i++ {
		switch want := phoneMask[i]; {
		case want == '0':
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		case s[i] != want:
			return false
		}
	}
	return true
}

func isFlatField(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), flatFieldForbidden)
}

// messageOrder is the order violations are reported in.
var messageOrder = []string{"ID", "Name", "Surname", "Age", "Course", "PhoneNumber"}

// ─────────────────────────────────────────────────────────────────────────────
// Validate checks form against existing and returns every violation at once.
//
// Rules:
//   - ID, Name, Surname, Course and PhoneNumber are required.
//   - Age must parse as a positive integer.
//   - PhoneNumber must match "(000) 000-0000" with ASCII digits.
//   - ID, Name, Surname and Course must not contain commas or line breaks.
//   - ID must not already appear in existing.
//
// Name and Surname are normalized ("jOHN" → "John") whenever they are
// non-empty, even if some other field fails. A duplicate ID makes the result
// fail but does not stop the rest of the form from being checked.
// ─────────────────────────────────────────────────────────────────────────────
func Validate(form types.Form, existing []types.Student) Result {
	res := Result{Fields: make(map[string]string)}

	form.Name = Capitalize(form.Name)
	form.Surname = Capitalize(form.Surname)

	if err := validate.Struct(form); err != nil {
		// Struct only returns something other than ValidationErrors for
		// programmer mistakes such as passing a non-struct.
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errs {
				res.Fields[e.Field()] = e.Tag()
			}
		} else {
			res.Fields["form"] = err.Error()
		}
	}

	for _, field := range messageOrder {
		if tag, ok := res.Fields[field]; ok {
			res.Messages = append(res.Messages, fieldMessage(field, tag))
		}
	}

	if form.ID != "" {
		res.Duplicates = matchID(existing, form.ID)
		if len(res.Duplicates) > 0 {
			res.Fields["ID"] = tagDuplicate
			res.Messages = append(res.Messages, fieldMessage("ID", tagDuplicate))
		}
	}

	if msg, ok := res.Fields["form"]; ok {
		res.Messages = append(res.Messages, msg)
	}

	age, _ := strconv.Atoi(form.Age)
	res.Student = types.Student{
		ID:          form.ID,
		Name:        form.Name,
		Surname:     form.Surname,
		Age:         age,
		PhoneNumber: form.PhoneNumber,
		Course:      form.Course,
	}
	res.OK = len(res.Messages) == 0

	return res
}

// fieldMessage turns one broken rule into a sentence for the user.
func fieldMessage(field, tag string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s cannot be empty.", fieldLabel(field))
	case "positive_int":
		return "Age must be a positive integer."
	case "phone":
		return "Phone number must be exactly 10 digits."
	case "flatfield":
		return fmt.Sprintf("%s cannot contain commas or line breaks.", fieldLabel(field))
	case tagDuplicate:
		return "Duplicate ID found. Please use a unique ID."
	default:
		return fmt.Sprintf("%s is invalid.", fieldLabel(field))
	}
}

func fieldLabel(field string) string {
	if field == "PhoneNumber" {
		return "Phone number"
	}
	return field
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}

// FormatPhone puts a bare 10-digit number into the display mask
// "(000) 000-0000". Anything else is returned unchanged so validation can
// report it.
func FormatPhone(s string) string {
	if len(s) != phoneDigits {
		return s
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	return fmt.Sprintf("(%s) %s-%s", s[:3], s[3:6], s[6:])
}
