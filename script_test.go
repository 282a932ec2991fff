package attributex_test

import (
	"errors"
	"testing"

	"github.com/comalice/attributex"
)

func TestScriptRuleForwardsSubscribedPhases(t *testing.T) {
	armor := attributex.NewAttribute("Game.Character", "Armor")
	var phases []string
	host := &attributex.ScriptFuncs{
		Init: func(r *attributex.ScriptRule) error {
			return r.Subscribe(armor, attributex.ScriptEvents{PreBaseChange: true, PostChange: true})
		},
		PreBaseChange: func(_ *attributex.ScriptRule, _ attributex.Attribute, v float64) float64 {
			phases = append(phases, "pre_base")
			return v + 1
		},
		PreChange: func(_ *attributex.ScriptRule, _ attributex.Attribute, v float64) float64 {
			phases = append(phases, "pre")
			return v
		},
		PostChange: func(r *attributex.ScriptRule, attr attributex.Attribute, o, v float64) {
			phases = append(phases, "post")
			if !r.Container().IsChanging(attr) {
				t.Error("IsChanging should be true inside post-change")
			}
		},
	}
	rule := attributex.NewScriptRule(host)
	c, err := attributex.NewContainer("Game.Character",
		attributex.WithAttributes(attributex.AttributeDef{Name: "Armor"}),
		attributex.WithOwner("hero"),
		attributex.WithRules(rule),
	)
	if err != nil {
		t.Fatal(err)
	}

	c.SetBaseValue(armor, 9)
	if got := c.GetValue(armor); got != 10 {
		t.Errorf("Armor = %v, want 10", got)
	}
	if len(phases) != 2 || phases[0] != "pre_base" || phases[1] != "post" {
		t.Errorf("phases = %v, want [pre_base post]", phases)
	}
	if c.IsChanging(armor) {
		t.Error("IsChanging should be false after the change")
	}
	if rule.Owner() != "hero" {
		t.Errorf("Owner = %v", rule.Owner())
	}
}

func TestScriptRuleHelpers(t *testing.T) {
	rule := attributex.NewScriptRule(&attributex.ScriptFuncs{})
	armor := attributex.NewAttribute("Game.Character", "Armor")

	if err := rule.SetAttributeValue(armor, 1); err == nil {
		t.Error("expected error before init")
	}
	if err := rule.Subscribe(armor, attributex.AllEvents); err == nil {
		t.Error("expected subscribe error before init")
	}
	if rule.GetAttributeValue(armor) != 0 || rule.Owner() != nil {
		t.Error("uninitialized rule should read zero values")
	}

	c, err := attributex.NewContainer("Game.Character",
		attributex.WithAttributes(attributex.AttributeDef{Name: "Armor", Base: 3}),
		attributex.WithRules(rule))
	if err != nil {
		t.Fatal(err)
	}
	if rule.GetAttributeValue(armor) != 3 {
		t.Errorf("GetAttributeValue = %v", rule.GetAttributeValue(armor))
	}
	rule.SetAttributeBaseValue(armor, 8)
	rule.SetAttributeValue(armor, 5)
	if c.GetBaseValue(armor) != 8 || c.GetValue(armor) != 5 {
		t.Errorf("base/current = %v/%v", c.GetBaseValue(armor), c.GetValue(armor))
	}

	rule.Subscribe(armor, attributex.ScriptEvents{Init: true})
	rule.Subscribe(armor, attributex.ScriptEvents{PostChange: true})
	if got := rule.Subscribed(armor); got != (attributex.ScriptEvents{Init: true, PostChange: true}) {
		t.Errorf("Subscribed = %+v", got)
	}
	if err := rule.Subscribe(attributex.Attribute{}, attributex.AllEvents); !errors.Is(err, attributex.ErrInvalidPath) {
		t.Errorf("Subscribe invalid = %v", err)
	}
}

func TestScriptRuleInitErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := attributex.NewContainer("Game.Character", attributex.WithRules(attributex.NewScriptRule(nil))); err == nil {
		t.Error("expected error for nil host")
	}
	_, err := attributex.NewContainer("Game.Character", attributex.WithRules(attributex.NewScriptRule(&attributex.ScriptFuncs{
		Init: func(*attributex.ScriptRule) error { return boom },
	})))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestRuleBoundOnce(t *testing.T) {
	rule := attributex.NewScriptRule(&attributex.ScriptFuncs{})
	if _, err := attributex.NewContainer("Game.A", attributex.WithRules(rule)); err != nil {
		t.Fatal(err)
	}
	_, err := attributex.NewContainer("Game.B", attributex.WithRules(rule))
	if !errors.Is(err, attributex.ErrRuleAlreadyBound) {
		t.Errorf("err = %v, want ErrRuleAlreadyBound", err)
	}
}

func TestScriptFuncsInitAttr(t *testing.T) {
	health := attributex.NewAttribute("Game.Character", "Health")
	var got attributex.MetaData
	host := &attributex.ScriptFuncs{
		Init: func(r *attributex.ScriptRule) error {
			return r.Subscribe(health, attributex.ScriptEvents{Init: true})
		},
		InitAttr: func(_ *attributex.ScriptRule, _ attributex.Attribute, md attributex.MetaData) {
			got = md
		},
	}
	c, err := attributex.NewContainer("Game.Character",
		attributex.WithAttributes(attributex.AttributeDef{Name: "Health"}),
		attributex.WithRules(attributex.NewScriptRule(host)),
	)
	if err != nil {
		t.Fatal(err)
	}
	want := attributex.MetaData{Min: 0, Max: 80, Default: 40}
	if err := c.InitFromMetadata(attributex.MapMetadata{"Health": want}); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("InitAttr got %+v, want %+v", got, want)
	}

	var empty attributex.ScriptFuncs
	empty.InitAttribute(nil, health, want)
}
