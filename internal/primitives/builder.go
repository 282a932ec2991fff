package primitives

import "github.com/comalice/attributex"

// RuleSetBuilder builds a RuleSetConfig fluently.
type RuleSetBuilder struct {
	config *RuleSetConfig
}

// NewRuleSetBuilder starts a rule set for attributes on class.
func NewRuleSetBuilder(id, class string) *RuleSetBuilder {
	return &RuleSetBuilder{config: &RuleSetConfig{ID: id, Class: class}}
}

// Version pins the rule set version.
func (b *RuleSetBuilder) Version(v string) *RuleSetBuilder {
	b.config.Version = v
	return b
}

// Attribute defines an attribute with its initial base value.
func (b *RuleSetBuilder) Attribute(name string, base float64) *RuleSetBuilder {
	b.config.Attributes = append(b.config.Attributes, attributex.AttributeDef{Name: name, Base: base})
	return b
}

// Clamp adds a clamp rule.
func (b *RuleSetBuilder) Clamp(attr string, lo, hi ValueSourceConfig, policy attributex.ClampPolicy) *RuleSetBuilder {
	b.config.Rules = append(b.config.Rules, RuleConfig{
		Type:      RuleClamp,
		Attribute: attr,
		Min:       &lo,
		Max:       &hi,
		Policy:    policy.String(),
	})
	return b
}

// Bind adds a binding rule copying attr into targetClass.targetProperty.
func (b *RuleSetBuilder) Bind(attr, targetClass, targetProperty string) *RuleSetBuilder {
	b.config.Rules = append(b.config.Rules, RuleConfig{
		Type:           RuleBinding,
		Attribute:      attr,
		TargetClass:    targetClass,
		TargetProperty: targetProperty,
	})
	return b
}

// Script adds a script rule with inline source, subscribed to attrs on every
// phase.
func (b *RuleSetBuilder) Script(source string, attrs ...string) *RuleSetBuilder {
	b.config.Rules = append(b.config.Rules, RuleConfig{
		Type:      RuleScript,
		Source:    source,
		Subscribe: attrs,
	})
	return b
}

// ScriptFile adds a script rule loaded from path.
func (b *RuleSetBuilder) ScriptFile(path string, attrs ...string) *RuleSetBuilder {
	b.config.Rules = append(b.config.Rules, RuleConfig{
		Type:      RuleScript,
		Script:    path,
		Subscribe: attrs,
	})
	return b
}

// Build validates and returns the configuration.
func (b *RuleSetBuilder) Build() (*RuleSetConfig, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// Const, Meta and Attr build value source configurations.
func Const(v float64) ValueSourceConfig { return ValueSourceConfig{Type: "constant", Value: v} }

func Meta() ValueSourceConfig { return ValueSourceConfig{Type: "metadata"} }

func Attr(ref string) ValueSourceConfig {
	return ValueSourceConfig{Type: "attribute", Attribute: ref}
}
