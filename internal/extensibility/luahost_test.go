package extensibility

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/comalice/attributex"
	"github.com/comalice/attributex/internal/primitives"
)

const armorScript = `
function init_rule(rule)
  rule:subscribe("Armor", {pre_change = true, post_change = true})
end

function pre_change(rule, name, value)
  if name == "Armor" then
    return value * 2
  end
  return value
end

function post_change(rule, name, old, new)
  rule:set("Mirror", new)
  if rule:is_changing("Armor") then
    rule:set("Flag", 1)
  end
end
`

func newArmorContainer(t *testing.T, host attributex.ScriptHost) *attributex.Container {
	t.Helper()
	c, err := attributex.NewContainer("Game.Character",
		attributex.WithLogger(log.New(&bytes.Buffer{}, "", 0)),
		attributex.WithAttributes(
			attributex.AttributeDef{Name: "Armor"},
			attributex.AttributeDef{Name: "Mirror"},
			attributex.AttributeDef{Name: "Flag"},
		),
		attributex.WithRules(attributex.NewScriptRule(host)),
	)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	return c
}

func TestLuaHostPhases(t *testing.T) {
	host, err := NewLuaHost("armor", armorScript)
	if err != nil {
		t.Fatal(err)
	}
	c := newArmorContainer(t, host)

	if err := c.SetValue(c.Attribute("Armor"), 5); err != nil {
		t.Fatal(err)
	}
	if got := c.GetValue(c.Attribute("Armor")); got != 10 {
		t.Errorf("Armor = %v, want 10", got)
	}
	if got := c.GetValue(c.Attribute("Mirror")); got != 10 {
		t.Errorf("Mirror = %v, want 10", got)
	}
	if got := c.GetValue(c.Attribute("Flag")); got != 1 {
		t.Errorf("Flag = %v, want 1 (is_changing inside post_change)", got)
	}
	if host.Err() != nil {
		t.Errorf("unexpected script error: %v", host.Err())
	}

	rule := c.Rules()[0].(*attributex.ScriptRule)
	want := attributex.ScriptEvents{PreChange: true, PostChange: true}
	if got := rule.Subscribed(c.Attribute("Armor")); got != want {
		t.Errorf("Subscribed = %+v, want %+v", got, want)
	}
}

func TestLuaHostInitAttribute(t *testing.T) {
	host, err := NewLuaHost("init", `
function init_rule(rule)
  rule:subscribe("Health")
end
function init_attribute(rule, name, md)
  rule:set_base("MaxSeen", md.max)
end
`)
	if err != nil {
		t.Fatal(err)
	}
	c, err := attributex.NewContainer("Game.Character",
		attributex.WithAttributes(
			attributex.AttributeDef{Name: "Health"},
			attributex.AttributeDef{Name: "MaxSeen"},
		),
		attributex.WithRules(attributex.NewScriptRule(host)),
	)
	if err != nil {
		t.Fatal(err)
	}
	err = c.InitFromMetadata(attributex.MapMetadata{
		"Health": {Min: 0, Max: 250, Default: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.GetValue(c.Attribute("Health")); got != 100 {
		t.Errorf("Health = %v, want 100", got)
	}
	if got := c.GetBaseValue(c.Attribute("MaxSeen")); got != 250 {
		t.Errorf("MaxSeen base = %v, want 250", got)
	}
}

func TestLuaHostErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"runtime error", `
function init_rule(rule) rule:subscribe("Armor") end
function pre_change(rule, name, value) error("boom") end
`},
		{"non-number result", `
function init_rule(rule) rule:subscribe("Armor") end
function pre_change(rule, name, value) return "nope" end
`},
		{"unknown attribute", `
function init_rule(rule) rule:subscribe("Armor") end
function post_change(rule, name, old, new) rule:set("Missing", 1) end
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, err := NewLuaHost(tt.name, tt.script)
			if err != nil {
				t.Fatal(err)
			}
			c := newArmorContainer(t, host)
			if err := c.SetValue(c.Attribute("Armor"), 3); err != nil {
				t.Fatal(err)
			}
			if got := c.GetValue(c.Attribute("Armor")); got != 3 {
				t.Errorf("Armor = %v, want 3", got)
			}
		})
	}
}

func TestLuaHostInitRuleError(t *testing.T) {
	host, err := NewLuaHost("bad", `function init_rule(rule) rule:subscribe("") end`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = attributex.NewContainer("Game.Character",
		attributex.WithAttributes(attributex.AttributeDef{Name: "Armor"}),
		attributex.WithLogger(log.New(&bytes.Buffer{}, "", 0)),
		attributex.WithRules(attributex.NewScriptRule(host)),
	)
	if err == nil {
		t.Fatal("expected init_rule failure to fail the container")
	}
}

func TestLoadLuaHost(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "armor.lua")
	if err := os.WriteFile(path, []byte(armorScript), 0o644); err != nil {
		t.Fatal(err)
	}
	host, err := LoadLuaHost(path)
	if err != nil {
		t.Fatal(err)
	}
	if host.Name() != "armor.lua" {
		t.Errorf("Name = %q", host.Name())
	}

	bad := filepath.Join(dir, "bad.lua")
	os.WriteFile(bad, []byte("function ("), 0o644)
	if _, err := LoadLuaHost(bad); err == nil {
		t.Error("expected syntax error")
	}
	if _, err := NewLuaHost("bad", "function ("); err == nil {
		t.Error("expected syntax error for inline source")
	}
}

func TestLoaderWithRuleSet(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "armor.lua"), []byte(armorScript), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := primitives.NewRuleSetBuilder("armor", "Game.Character").
		Attribute("Armor", 0).
		Attribute("Mirror", 0).
		Attribute("Flag", 0).
		ScriptFile("armor.lua").
		Build()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	c, err := cfg.NewContainer(LoggingLoader(Loader(dir), log.New(&buf, "", 0)))
	if err != nil {
		t.Fatal(err)
	}
	c.SetValue(c.Attribute("Armor"), 4)
	if got := c.GetValue(c.Attribute("Mirror")); got != 8 {
		t.Errorf("Mirror = %v, want 8", got)
	}

	out := buf.String()
	for _, want := range []string{"LOG: init_rule", "LOG: pre_change", "LOG: post_change"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}
