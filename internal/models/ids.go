// Package models contains data structures for the application's domain models.
//
// The API is loosely typed: ids arrive as strings or numbers, user references
// arrive either as raw ids or as embedded objects, and timestamps are not always
// well formed. The types here absorb those variations at decode time so the
// rest of the code works with one shape.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is an entity identifier. It decodes from JSON strings and numbers.
type ID string

// UnmarshalJSON accepts a string, a number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// FirstID returns the first non-empty id.
func FirstID(ids ...ID) ID {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}

// Ref points at a user (or another entity) either by raw id or by an
// embedded object, depending on whether the server populated it.
type Ref struct {
	ID   ID
	User *User
}

// RefTo returns a raw-id reference.
func RefTo(id ID) *Ref { return &Ref{ID: id} }

// RefToUser returns an embedded-object reference.
func RefToUser(u User) *Ref { return &Ref{User: &u} }

// Empty reports whether the reference carries neither an id nor an object.
func (r *Ref) Empty() bool {
	return r == nil || (r.ID == "" && r.User == nil)
}

// Embedded reports whether the reference was populated with an object.
func (r *Ref) Embedded() bool {
	return r != nil && r.User != nil
}

// UnmarshalJSON accepts an object, a string, a number or null.
func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*r = Ref{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '{' {
		var u User
		if err := json.Unmarshal(b, &u); err != nil {
			return err
		}
		r.User = &u
		return nil
	}
	return r.ID.UnmarshalJSON(b)
}

// MarshalJSON writes the embedded object when present, else the raw id.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.User != nil {
		return json.Marshal(r.User)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(r.ID))
}

// Timestamp is a lenient RFC 3339 time. Malformed values decode to the zero
// time instead of failing the whole payload.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses RFC 3339 strings and unix milliseconds.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	t.Time = time.Time{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed
		}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
	}
	return nil
}

// MarshalJSON writes RFC 3339, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// At wraps a time.Time.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }
