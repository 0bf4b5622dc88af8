// Package validation provides input validation utilities
package validation

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"toolbox/internal/models"
)

// FormInvalidMessage is the summary shown when any field fails.
const FormInvalidMessage = "Please fix the errors in the form"

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Err returns nil when there are no field errors, otherwise a validation
// AppError carrying the summary message and wrapping e.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return &models.AppError{Code: models.CodeValidation, Message: FormInvalidMessage, Err: e}
}

// Username validates a sign-up username.
func Username(v string) string {
	n := utf8.RuneCountInString(v)
	switch {
	case v == "":
		return "Username is required"
	case n < 3:
		return "Username must be at least 3 characters"
	case n > 20:
		return "Username must be less than 20 characters"
	}
	return ""
}

// Email validates an email address.
func Email(v string) string {
	switch {
	case v == "":
		return "Email is required"
	case !emailRegex.MatchString(v):
		return "Please enter a valid email address"
	}
	return ""
}

// SignUp validates a registration form.
func SignUp(r models.Registration) FieldErrors {
	errs := FieldErrors{}
	if msg := Username(r.Username); msg != "" {
		errs["username"] = msg
	}
	if msg := Email(r.Email); msg != "" {
		errs["email"] = msg
	}
	if r.Password == "" {
		errs["password"] = "Password is required"
	}
	switch {
	case r.PasswordConf == "":
		errs["passwordConf"] = "Please confirm your password"
	case r.PasswordConf != r.Password:
		errs["passwordConf"] = "Passwords do not match"
	}
	return errs
}

// SignIn validates a sign-in form.
func SignIn(c models.Credentials) FieldErrors {
	errs := FieldErrors{}
	switch {
	case c.Username == "":
		errs["username"] = "Username is required"
	case utf8.RuneCountInString(c.Username) < 3:
		errs["username"] = "Username must be at least 3 characters"
	}
	if c.Password == "" {
		errs["password"] = "Password is required"
	}
	return errs
}

// Profile field limits.
const (
	MaxBio         = 500
	MaxTitle       = 100
	MaxContactInfo = 200
)

// Profile validates a profile update. Empty fields are left unchanged by the
// server, so only present values are checked.
func Profile(p models.ProfileUpdate) FieldErrors {
	errs := FieldErrors{}
	if p.Username != "" && utf8.RuneCountInString(strings.TrimSpace(p.Username)) < 3 {
		errs["username"] = "Username must be at least 3 characters"
	}
	if utf8.RuneCountInString(p.Bio) > MaxBio {
		errs["bio"] = "Bio must be 500 characters or less"
	}
	if utf8.RuneCountInString(p.Title) > MaxTitle {
		errs["title"] = "Title must be 100 characters or less"
	}
	if utf8.RuneCountInString(p.ContactInfo) > MaxContactInfo {
		errs["contactInfo"] = "Contact info must be 200 characters or less"
	}
	return errs
}

// Content trims v and fails with a validation error naming what is missing
// when nothing is left.
func Content(v, what string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", models.NewValidationError(what + " cannot be empty")
	}
	return v, nil
}

// ParseTags splits free text like "#go, #http  tools" into ["go", "http",
// "tools"]. Leading hashes are stripped, duplicates dropped, order kept.
func ParseTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	seen := make(map[string]bool, len(fields))
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := strings.TrimLeft(f, "#")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
