// Package testutil provides helpers shared by attributex tests.
package testutil

import (
	"fmt"
	"strings"

	"github.com/comalice/attributex"
)

// Call is one recorded notification. For pre-change phases Old is the value
// received and New the value returned (always the same: the recorder never
// changes values).
type Call struct {
	Phase     attributex.Phase
	Attribute attributex.Attribute
	Old       float64
	New       float64
}

func (c Call) String() string {
	return fmt.Sprintf("%s %s %g->%g", c.Phase, c.Attribute.Name, c.Old, c.New)
}

// Recorder is a rule that subscribes to every phase of Attributes and records
// the notifications in the order they arrive.
type Recorder struct {
	attributex.RuleBase

	Attributes []attributex.Attribute

	calls []Call
}

// NewRecorder returns a recorder watching attrs.
func NewRecorder(attrs ...attributex.Attribute) *Recorder {
	return &Recorder{Attributes: attrs}
}

// InitRule implements attributex.Rule.
func (r *Recorder) InitRule(c *attributex.Container) error {
	if err := r.Bind(c); err != nil {
		return err
	}
	n := c.GetNotifier()
	for _, attr := range r.Attributes {
		attr := attr
		n.OnInitAttribute(attr).Add(func(md attributex.MetaData) {
			r.calls = append(r.calls, Call{Phase: attributex.PhaseInit, Attribute: attr, New: md.Default})
		})
		n.OnPreAttributeBaseChange(attr).Add(func(v float64) float64 {
			r.calls = append(r.calls, Call{Phase: attributex.PhasePreBaseChange, Attribute: attr, Old: v, New: v})
			return v
		})
		n.OnPreAttributeChange(attr).Add(func(v float64) float64 {
			r.calls = append(r.calls, Call{Phase: attributex.PhasePreChange, Attribute: attr, Old: v, New: v})
			return v
		})
		n.OnPostAttributeChange(attr).Add(func(oldValue, newValue float64) {
			r.calls = append(r.calls, Call{Phase: attributex.PhasePostChange, Attribute: attr, Old: oldValue, New: newValue})
		})
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	return append([]Call(nil), r.calls...)
}

// Trace renders the calls one per line, handy in test failure output.
func (r *Recorder) Trace() string {
	lines := make([]string, len(r.calls))
	for i, c := range r.calls {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}

// Reset drops recorded calls.
func (r *Recorder) Reset() {
	r.calls = nil
}
