package primitives

import (
	"errors"
	"fmt"

	"github.com/comalice/attributex"
)

// ScriptLoader creates the host behind a script rule. It receives the rule
// configuration so it can read either Script or Source.
type ScriptLoader func(r RuleConfig) (attributex.ScriptHost, error)

// Build validates c and creates its rules in order. loader may be nil when
// the rule set has no script rules.
func (c *RuleSetConfig) Build(loader ScriptLoader) ([]attributex.Rule, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	rules := make([]attributex.Rule, 0, len(c.Rules))
	for i, rc := range c.Rules {
		r, err := c.buildRule(rc, loader)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rc.Type, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// NewContainer builds the rules and a container defining c's attributes.
// opts are applied after the attributes and before the rules are initialized.
func (c *RuleSetConfig) NewContainer(loader ScriptLoader, opts ...attributex.Option) (*attributex.Container, error) {
	rules, err := c.Build(loader)
	if err != nil {
		return nil, err
	}
	all := make([]attributex.Option, 0, len(opts)+2)
	all = append(all, attributex.WithAttributes(c.Attributes...))
	all = append(all, opts...)
	all = append(all, attributex.WithRules(rules...))
	return attributex.NewContainer(c.Class, all...)
}

func (c *RuleSetConfig) buildRule(rc RuleConfig, loader ScriptLoader) (attributex.Rule, error) {
	switch rc.Type {
	case RuleClamp:
		attr, err := c.ResolveAttribute(rc.Attribute)
		if err != nil {
			return nil, err
		}
		lo, err := rc.Min.Resolve(c)
		if err != nil {
			return nil, err
		}
		hi, err := rc.Max.Resolve(c)
		if err != nil {
			return nil, err
		}
		policy, err := attributex.ParseClampPolicy(rc.Policy)
		if err != nil {
			return nil, err
		}
		return attributex.NewClampRule(attr, lo, hi, policy), nil

	case RuleBinding:
		attr, err := c.ResolveAttribute(rc.Attribute)
		if err != nil {
			return nil, err
		}
		return attributex.NewBindingRule(attr, rc.TargetClass, rc.TargetProperty), nil

	case RuleScript:
		if loader == nil {
			return nil, errors.New("no script loader configured")
		}
		host, err := loader(rc)
		if err != nil {
			return nil, err
		}
		if len(rc.Subscribe) == 0 {
			return attributex.NewScriptRule(host), nil
		}
		sub := &subscribingHost{ScriptHost: host, events: attributex.AllEvents}
		if rc.Events != nil {
			sub.events = *rc.Events
		}
		for _, ref := range rc.Subscribe {
			attr, err := c.ResolveAttribute(ref)
			if err != nil {
				return nil, err
			}
			sub.attrs = append(sub.attrs, attr)
		}
		return attributex.NewScriptRule(sub), nil
	}
	return nil, fmt.Errorf("unknown rule type %q", rc.Type)
}

// subscribingHost adds the configured subscriptions after the host's own
// InitRule.
type subscribingHost struct {
	attributex.ScriptHost

	attrs  []attributex.Attribute
	events attributex.ScriptEvents
}

func (h *subscribingHost) InitRule(r *attributex.ScriptRule) error {
	if err := h.ScriptHost.InitRule(r); err != nil {
		return err
	}
	for _, attr := range h.attrs {
		if err := r.Subscribe(attr, h.events); err != nil {
			return err
		}
	}
	return nil
}
