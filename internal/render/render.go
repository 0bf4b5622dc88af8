// Package render prints API data for a terminal as plain text, JSON or YAML.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"toolbox/internal/models"

	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts text, json and yaml (or yml), case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return Text, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Printer writes views to w in one format.
type Printer struct {
	w      io.Writer
	format Format
	now    func() time.Time
	me     *models.User
	clean  *Sanitizer
}

// Option configures a Printer.
type Option func(*Printer)

// WithClock replaces time.Now for relative times.
func WithClock(now func() time.Time) Option {
	return func(p *Printer) { p.now = now }
}

// WithViewer sets the signed-in user, used to resolve author names.
func WithViewer(u *models.User) Option {
	return func(p *Printer) { p.me = u }
}

// New returns a printer.
func New(w io.Writer, format Format, opts ...Option) *Printer {
	p := &Printer{w: w, format: format, now: time.Now, clean: NewSanitizer()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the printer's format.
func (p *Printer) Format() Format {
	return p.format
}

// emit encodes v for JSON and YAML, or runs text for plain output.
func (p *Printer) emit(v any, text func(w io.Writer)) error {
	switch p.format {
	case JSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML:
		out, err := toYAML(v)
		if err != nil {
			return err
		}
		_, err = p.w.Write(out)
		return err
	default:
		text(p.w)
		return nil
	}
}

// Value prints any value; text output falls back to fmt's %v.
func (p *Printer) Value(v any) error {
	return p.emit(v, func(w io.Writer) { fmt.Fprintf(w, "%v\n", v) })
}

// Message prints a status line. JSON and YAML wrap it as {"message": msg}.
func (p *Printer) Message(msg string) error {
	return p.emit(map[string]string{"message": msg}, func(w io.Writer) { fmt.Fprintln(w, msg) })
}

// toYAML goes through the JSON encoding so json tags and custom marshalers
// decide the field names, then re-emits it as block-style YAML in the same
// key order.
func toYAML(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	blockStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
