package primitives

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comalice/attributex"
)

// RuleType names a rule variant in configuration.
type RuleType string

const (
	RuleClamp   RuleType = "clamp"
	RuleBinding RuleType = "binding"
	RuleScript  RuleType = "script"
)

// RuleSetConfig is the complete declarative configuration of one container.
type RuleSetConfig struct {
	Version    string                    `json:"version,omitempty" yaml:"version,omitempty"`
	ID         string                    `json:"id" yaml:"id"`
	Class      string                    `json:"class" yaml:"class"`
	Attributes []attributex.AttributeDef `json:"attributes" yaml:"attributes"`
	Rules      []RuleConfig              `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// ValueSourceConfig is the configured form of attributex.ValueSource.
type ValueSourceConfig struct {
	Type      string  `json:"type" yaml:"type"`
	Value     float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Attribute string  `json:"attribute,omitempty" yaml:"attribute,omitempty"`
}

// RuleConfig configures one rule. Which fields apply depends on Type.
type RuleConfig struct {
	Type      RuleType `json:"type" yaml:"type"`
	Attribute string   `json:"attribute,omitempty" yaml:"attribute,omitempty"`

	// clamp
	Min    *ValueSourceConfig `json:"min,omitempty" yaml:"min,omitempty"`
	Max    *ValueSourceConfig `json:"max,omitempty" yaml:"max,omitempty"`
	Policy string             `json:"policy,omitempty" yaml:"policy,omitempty"`

	// binding
	TargetClass    string `json:"targetClass,omitempty" yaml:"targetClass,omitempty"`
	TargetProperty string `json:"targetProperty,omitempty" yaml:"targetProperty,omitempty"`

	// script: exactly one of Script (file path) or Source (inline).
	Script    string                   `json:"script,omitempty" yaml:"script,omitempty"`
	Source    string                   `json:"source,omitempty" yaml:"source,omitempty"`
	Subscribe []string                 `json:"subscribe,omitempty" yaml:"subscribe,omitempty"`
	Events    *attributex.ScriptEvents `json:"events,omitempty" yaml:"events,omitempty"`
}

// ParseRuleSet decodes a YAML rule set and validates it.
func ParseRuleSet(data []byte) (*RuleSetConfig, error) {
	var cfg RuleSetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rule set: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadRuleSet reads and parses the YAML rule set at path.
func LoadRuleSet(path string) (*RuleSetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	return ParseRuleSet(data)
}

// YAML encodes the rule set.
func (c *RuleSetConfig) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the whole configuration:
// - non-empty ID and Class
// - unique, non-empty attribute names
// - every rule validates and targets a defined attribute
func (c *RuleSetConfig) Validate() error {
	if c.ID == "" {
		return errors.New("rule set ID is required")
	}
	if c.Class == "" {
		return errors.New("rule set class is required")
	}
	if len(c.Attributes) == 0 {
		return errors.New("at least one attribute is required")
	}
	defined := make(map[string]bool, len(c.Attributes))
	for i, a := range c.Attributes {
		if a.Name == "" {
			return fmt.Errorf("attribute %d: name is required", i)
		}
		if strings.Contains(a.Name, ".") {
			return fmt.Errorf("attribute %q: name must not contain '.'", a.Name)
		}
		if defined[a.Name] {
			return fmt.Errorf("duplicate attribute %q", a.Name)
		}
		defined[a.Name] = true
	}

	for i, r := range c.Rules {
		if err := r.validate(c, defined); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i, r.Type, err)
		}
	}
	return nil
}

// ResolveAttribute turns a configured attribute reference into an identity.
func (c *RuleSetConfig) ResolveAttribute(ref string) (attributex.Attribute, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return attributex.Attribute{}, fmt.Errorf("%w: empty attribute reference", attributex.ErrInvalidPath)
	}
	if !strings.Contains(ref, ".") {
		return attributex.NewAttribute(c.Class, ref), nil
	}
	return attributex.ImportFromString(ref)
}

// ownAttribute resolves ref and requires it to be defined by the rule set.
func (c *RuleSetConfig) ownAttribute(ref string, defined map[string]bool) (attributex.Attribute, error) {
	attr, err := c.ResolveAttribute(ref)
	if err != nil {
		return attr, err
	}
	if attr.ClassPath != c.Class || !defined[attr.Name] {
		return attr, fmt.Errorf("%w: %s", attributex.ErrUnknownAttribute, attr)
	}
	return attr, nil
}

func (r *RuleConfig) validate(c *RuleSetConfig, defined map[string]bool) error {
	switch r.Type {
	case RuleClamp:
		if _, err := c.ownAttribute(r.Attribute, defined); err != nil {
			return err
		}
		if r.Min == nil || r.Max == nil {
			return errors.New("clamp needs min and max")
		}
		if _, err := attributex.ParseClampPolicy(r.Policy); err != nil {
			return err
		}
		if _, err := r.Min.Resolve(c); err != nil {
			return fmt.Errorf("min: %w", err)
		}
		if _, err := r.Max.Resolve(c); err != nil {
			return fmt.Errorf("max: %w", err)
		}
	case RuleBinding:
		if _, err := c.ownAttribute(r.Attribute, defined); err != nil {
			return err
		}
		if r.TargetClass == "" || r.TargetProperty == "" {
			return errors.New("binding needs targetClass and targetProperty")
		}
	case RuleScript:
		if (r.Script == "") == (r.Source == "") {
			return errors.New("script needs exactly one of script or source")
		}
		for _, ref := range r.Subscribe {
			if _, err := c.ResolveAttribute(ref); err != nil {
				return err
			}
		}
		if r.Events != nil && len(r.Subscribe) == 0 {
			return errors.New("events given without subscribe")
		}
	case "":
		return errors.New("rule type is required")
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}

// Resolve converts the configuration into a ValueSource. Attribute sources
// may point at any class.
func (v *ValueSourceConfig) Resolve(c *RuleSetConfig) (attributex.ValueSource, error) {
	typ, err := attributex.ParseSourceType(v.Type)
	if err != nil {
		return attributex.ValueSource{}, err
	}
	switch typ {
	case attributex.SourceAttribute:
		attr, err := c.ResolveAttribute(v.Attribute)
		if err != nil {
			return attributex.ValueSource{}, err
		}
		return attributex.FromAttribute(attr), nil
	case attributex.SourceMetadata:
		return attributex.FromMetadata(), nil
	default:
		return attributex.Constant(v.Value), nil
	}
}
