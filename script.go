package attributex

import (
	"errors"
	"fmt"
)

// ScriptHost supplies the per-phase logic of a ScriptRule. Implementations
// live outside the engine: Go funcs (ScriptFuncs), Lua, or anything else.
// All calls are synchronous and happen on the container's call stack.
type ScriptHost interface {
	// InitRule runs once; this is where the host calls r.Subscribe.
	InitRule(r *ScriptRule) error
	InitAttribute(r *ScriptRule, attr Attribute, md MetaData)
	PreAttributeBaseChange(r *ScriptRule, attr Attribute, value float64) float64
	PreAttributeChange(r *ScriptRule, attr Attribute, value float64) float64
	PostAttributeChange(r *ScriptRule, attr Attribute, oldValue, newValue float64)
}

// ScriptEvents selects which phases a ScriptRule subscription forwards.
type ScriptEvents struct {
	Init          bool `json:"init" yaml:"init"`
	PreBaseChange bool `json:"preBaseChange" yaml:"preBaseChange"`
	PreChange     bool `json:"preChange" yaml:"preChange"`
	PostChange    bool `json:"postChange" yaml:"postChange"`
}

// AllEvents subscribes to every phase.
var AllEvents = ScriptEvents{Init: true, PreBaseChange: true, PreChange: true, PostChange: true}

// ScriptRule forwards subscribed notifications to a ScriptHost.
//
// Nothing is delivered until the host subscribes. Attribute values should only
// be changed from inside the phase callbacks; changing them elsewhere from a
// script easily recurses.
type ScriptRule struct {
	RuleBase

	Host ScriptHost

	events map[Attribute]ScriptEvents
}

// NewScriptRule returns a rule driven by host.
func NewScriptRule(host ScriptHost) *ScriptRule {
	return &ScriptRule{Host: host}
}

// InitRule implements Rule.
func (r *ScriptRule) InitRule(c *Container) error {
	if err := r.Bind(c); err != nil {
		return err
	}
	if r.Host == nil {
		return errors.New("script rule: no host")
	}
	if err := r.Host.InitRule(r); err != nil {
		return fmt.Errorf("script rule: %w", err)
	}
	return nil
}

// Subscribe forwards the selected phases of attr to the host. Subscribing the
// same attribute twice adds a second set of callbacks.
func (r *ScriptRule) Subscribe(attr Attribute, ev ScriptEvents) error {
	c := r.Container()
	if c == nil {
		return errors.New("script rule: subscribe before init")
	}
	if !attr.IsValid() {
		return fmt.Errorf("script rule: %w: %q", ErrInvalidPath, attr.String())
	}
	n := c.GetNotifier()
	if ev.Init {
		n.OnInitAttribute(attr).Add(func(md MetaData) {
			r.Host.InitAttribute(r, attr, md)
		})
	}
	if ev.PreBaseChange {
		n.OnPreAttributeBaseChange(attr).Add(func(v float64) float64 {
			return r.Host.PreAttributeBaseChange(r, attr, v)
		})
	}
	if ev.PreChange {
		n.OnPreAttributeChange(attr).Add(func(v float64) float64 {
			return r.Host.PreAttributeChange(r, attr, v)
		})
	}
	if ev.PostChange {
		n.OnPostAttributeChange(attr).Add(func(oldValue, newValue float64) {
			r.Host.PostAttributeChange(r, attr, oldValue, newValue)
		})
	}

	if r.events == nil {
		r.events = make(map[Attribute]ScriptEvents)
	}
	prev := r.events[attr]
	r.events[attr] = ScriptEvents{
		Init:          prev.Init || ev.Init,
		PreBaseChange: prev.PreBaseChange || ev.PreBaseChange,
		PreChange:     prev.PreChange || ev.PreChange,
		PostChange:    prev.PostChange || ev.PostChange,
	}
	return nil
}

// Subscribed returns the phases forwarded for attr.
func (r *ScriptRule) Subscribed(attr Attribute) ScriptEvents {
	return r.events[attr]
}

// GetAttributeValue returns the current value of attr.
func (r *ScriptRule) GetAttributeValue(attr Attribute) float64 {
	if c := r.Container(); c != nil {
		return c.GetValue(attr)
	}
	return 0
}

// SetAttributeValue proposes a new current value for attr.
func (r *ScriptRule) SetAttributeValue(attr Attribute, value float64) error {
	c := r.Container()
	if c == nil {
		return errors.New("script rule: not initialized")
	}
	return c.SetValue(attr, value)
}

// SetAttributeBaseValue proposes a new base value for attr.
func (r *ScriptRule) SetAttributeBaseValue(attr Attribute, value float64) error {
	c := r.Container()
	if c == nil {
		return errors.New("script rule: not initialized")
	}
	return c.SetBaseValue(attr, value)
}

// Owner returns the owner of the container.
func (r *ScriptRule) Owner() any {
	if c := r.Container(); c != nil {
		return c.Owner()
	}
	return nil
}

// ScriptFuncs is a ScriptHost built from plain functions. Nil functions keep
// the value unchanged or do nothing.
type ScriptFuncs struct {
	Init          func(r *ScriptRule) error
	InitAttr      func(r *ScriptRule, attr Attribute, md MetaData)
	PreBaseChange func(r *ScriptRule, attr Attribute, value float64) float64
	PreChange     func(r *ScriptRule, attr Attribute, value float64) float64
	PostChange    func(r *ScriptRule, attr Attribute, oldValue, newValue float64)
}

func (f *ScriptFuncs) InitRule(r *ScriptRule) error {
	if f.Init == nil {
		return nil
	}
	return f.Init(r)
}

func (f *ScriptFuncs) InitAttribute(r *ScriptRule, attr Attribute, md MetaData) {
	if f.InitAttr != nil {
		f.InitAttr(r, attr, md)
	}
}

func (f *ScriptFuncs) PreAttributeBaseChange(r *ScriptRule, attr Attribute, value float64) float64 {
	if f.PreBaseChange == nil {
		return value
	}
	return f.PreBaseChange(r, attr, value)
}

func (f *ScriptFuncs) PreAttributeChange(r *ScriptRule, attr Attribute, value float64) float64 {
	if f.PreChange == nil {
		return value
	}
	return f.PreChange(r, attr, value)
}

func (f *ScriptFuncs) PostAttributeChange(r *ScriptRule, attr Attribute, oldValue, newValue float64) {
	if f.PostChange != nil {
		f.PostChange(r, attr, oldValue, newValue)
	}
}
