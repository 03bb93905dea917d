// Package decode turns raw event-log records into structured descriptions and
// the key=value text lines the monitor publishes.
//
// Decoding is total: every record, including unknown kinds and short payloads,
// yields a Description. Nothing in this package keeps state between calls.
package decode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jnesss/mptevents/mpi"
)

// Field is one key=value pair of a rendered line. Annotated fields carry a
// human-readable token rendered in parentheses after the value.
type Field struct {
	Key       string
	Value     string
	Token     string
	Annotated bool
}

func (f Field) String() string {
	if f.Annotated {
		return f.Key + "=" + f.Value + "(" + f.Token + ")"
	}
	return f.Key + "=" + f.Value
}

// with returns f annotated with token.
func (f Field) with(token string) Field {
	f.Token = token
	f.Annotated = true
	return f
}

// Element is one entry of a compound record's trailing array.
type Element struct {
	Name   string
	Index  int // 1-based
	Total  int
	Fields []Field
}

func (e Element) String() string {
	return fmt.Sprintf("%s (%d/%d): %s", e.Name, e.Index, e.Total, joinFields(e.Fields))
}

// Description is the decoded form of one event record.
type Description struct {
	Kind     mpi.EventKind
	Name     string
	Context  uint32
	Fields   []Field
	Elements []Element
}

// Header returns the category line, e.g. "GPIO Interrupt: context=7 gpionum=2 ...".
func (d Description) Header() string {
	return d.Name + ": " + joinFields(d.Fields)
}

// Lines returns the header followed by one line per element.
func (d Description) Lines() []string {
	lines := make([]string, 0, 1+len(d.Elements))
	lines = append(lines, d.Header())
	for _, e := range d.Elements {
		lines = append(lines, e.String())
	}
	return lines
}

// String joins Lines with newlines.
func (d Description) String() string {
	return strings.Join(d.Lines(), "\n")
}

// Values flattens the header fields into a map for rule matching. Annotated
// fields also contribute "<key>_name" holding the token.
func (d Description) Values() map[string]string {
	values := map[string]string{
		"Category":  d.Name,
		"EventKind": strconv.FormatUint(uint64(d.Kind), 10),
		"Context":   strconv.FormatUint(uint64(d.Context), 10),
	}
	for _, f := range d.Fields {
		values[f.Key] = f.Value
		if f.Annotated {
			values[f.Key+"_name"] = f.Token
		}
	}
	return values
}

func joinFields(fields []Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.String())
	}
	return b.String()
}
