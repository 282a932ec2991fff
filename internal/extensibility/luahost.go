// Package extensibility provides ScriptHost implementations for
// attributex.ScriptRule: LuaHost runs rule logic written in Lua and
// LoggingHost traces any host.
package extensibility

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/comalice/attributex"
	"github.com/comalice/attributex/internal/primitives"
)

const ruleTypeName = "attributex.rule"

// Global functions a script may define. All are optional.
const (
	fnInitRule      = "init_rule"       // init_rule(rule)
	fnInitAttribute = "init_attribute"  // init_attribute(rule, name, {min, max, default})
	fnPreBaseChange = "pre_base_change" // pre_base_change(rule, name, value) -> value
	fnPreChange     = "pre_change"      // pre_change(rule, name, value) -> value
	fnPostChange    = "post_change"     // post_change(rule, name, old, new)
)

// LuaHost is a ScriptHost backed by a Lua state. Scripts see attributes of
// the rule's own container by bare field name and any other attribute by its
// full path.
//
// The rule userdata handed to every global has these methods:
//
//	rule:subscribe(name [, {init=, pre_base_change=, pre_change=, post_change=}])
//	rule:get(name)  rule:get_base(name)
//	rule:set(name, value)  rule:set_base(name, value)
//	rule:is_changing(name)  rule:class()
//
// A LuaHost belongs to one rule and is not safe for concurrent use.
type LuaHost struct {
	name  string
	state *lua.State
	err   error
}

// NewLuaHost runs source as a chunk called name and returns a host calling the
// globals it defines.
func NewLuaHost(name, source string) (*LuaHost, error) {
	h := newLuaHost(name)
	if err := lua.LoadBuffer(h.state, source, name, ""); err != nil {
		return nil, fmt.Errorf("load lua %s: %w", name, err)
	}
	if err := h.state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("run lua %s: %w", name, err)
	}
	return h, nil
}

// LoadLuaHost is NewLuaHost for a script file.
func LoadLuaHost(path string) (*LuaHost, error) {
	h := newLuaHost(filepath.Base(path))
	if err := lua.LoadFile(h.state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := h.state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("run lua %s: %w", path, err)
	}
	return h, nil
}

func newLuaHost(name string) *LuaHost {
	state := lua.NewState()
	lua.OpenLibraries(state)
	lua.NewMetaTable(state, ruleTypeName)
	state.NewTable()
	lua.SetFunctions(state, ruleMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
	return &LuaHost{name: name, state: state}
}

// Name returns the chunk name.
func (h *LuaHost) Name() string { return h.name }

// Err returns the last error raised by a script callback.
func (h *LuaHost) Err() error { return h.err }

// Loader returns a ScriptLoader that creates a LuaHost per script rule.
// Relative script paths are resolved against dir.
func Loader(dir string) primitives.ScriptLoader {
	return func(rc primitives.RuleConfig) (attributex.ScriptHost, error) {
		if rc.Source != "" {
			return NewLuaHost("inline", rc.Source)
		}
		path := rc.Script
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return LoadLuaHost(path)
	}
}

// call pushes the named global and its arguments and runs it. It reports
// false when the global is not a function or the call failed.
func (h *LuaHost) call(r *attributex.ScriptRule, fn string, nresults int, push func(*lua.State) int) bool {
	h.state.Global(fn)
	if !h.state.IsFunction(-1) {
		h.state.Pop(1)
		return false
	}
	pushRule(h.state, r)
	nargs := 1 + push(h.state)
	if err := h.state.ProtectedCall(nargs, nresults, 0); err != nil {
		h.state.Pop(1)
		h.err = fmt.Errorf("lua %s: %s: %w", h.name, fn, err)
		if c := r.Container(); c != nil {
			c.Logf("%v", h.err)
		}
		return false
	}
	return true
}

func none(*lua.State) int { return 0 }

// InitRule implements attributex.ScriptHost.
func (h *LuaHost) InitRule(r *attributex.ScriptRule) error {
	h.err = nil
	h.call(r, fnInitRule, 0, none)
	return h.err
}

// InitAttribute implements attributex.ScriptHost.
func (h *LuaHost) InitAttribute(r *attributex.ScriptRule, attr attributex.Attribute, md attributex.MetaData) {
	h.call(r, fnInitAttribute, 0, func(l *lua.State) int {
		l.PushString(attrName(r, attr))
		l.NewTable()
		l.PushNumber(md.Min)
		l.SetField(-2, "min")
		l.PushNumber(md.Max)
		l.SetField(-2, "max")
		l.PushNumber(md.Default)
		l.SetField(-2, "default")
		return 2
	})
}

// PreAttributeBaseChange implements attributex.ScriptHost.
func (h *LuaHost) PreAttributeBaseChange(r *attributex.ScriptRule, attr attributex.Attribute, value float64) float64 {
	return h.fold(r, fnPreBaseChange, attr, value)
}

// PreAttributeChange implements attributex.ScriptHost.
func (h *LuaHost) PreAttributeChange(r *attributex.ScriptRule, attr attributex.Attribute, value float64) float64 {
	return h.fold(r, fnPreChange, attr, value)
}

// fold calls fn and returns its numeric result. A failed call or a result
// that is not a number leaves value unchanged.
func (h *LuaHost) fold(r *attributex.ScriptRule, fn string, attr attributex.Attribute, value float64) float64 {
	ok := h.call(r, fn, 1, func(l *lua.State) int {
		l.PushString(attrName(r, attr))
		l.PushNumber(value)
		return 2
	})
	if !ok {
		return value
	}
	v, isNum := h.state.ToNumber(-1)
	h.state.Pop(1)
	if !isNum {
		return value
	}
	return v
}

// PostAttributeChange implements attributex.ScriptHost.
func (h *LuaHost) PostAttributeChange(r *attributex.ScriptRule, attr attributex.Attribute, oldValue, newValue float64) {
	h.call(r, fnPostChange, 0, func(l *lua.State) int {
		l.PushString(attrName(r, attr))
		l.PushNumber(oldValue)
		l.PushNumber(newValue)
		return 3
	})
}

func pushRule(l *lua.State, r *attributex.ScriptRule) {
	l.PushUserData(r)
	lua.SetMetaTableNamed(l, ruleTypeName)
}

func attrName(r *attributex.ScriptRule, attr attributex.Attribute) string {
	if c := r.Container(); c != nil && attr.ClassPath == c.Class() {
		return attr.Name
	}
	return attr.String()
}

var ruleMethods = []lua.RegistryFunction{
	{Name: "subscribe", Function: ruleSubscribe},
	{Name: "get", Function: ruleGet},
	{Name: "get_base", Function: ruleGetBase},
	{Name: "set", Function: ruleSet},
	{Name: "set_base", Function: ruleSetBase},
	{Name: "is_changing", Function: ruleIsChanging},
	{Name: "class", Function: ruleClass},
}

func checkRule(l *lua.State) *attributex.ScriptRule {
	r, ok := lua.CheckUserData(l, 1, ruleTypeName).(*attributex.ScriptRule)
	if !ok || r.Container() == nil {
		lua.Errorf(l, "rule is not initialized")
	}
	return r
}

// checkAttribute reads argument 2 as a bare name or a full path.
func checkAttribute(l *lua.State, r *attributex.ScriptRule) attributex.Attribute {
	name := lua.CheckString(l, 2)
	if !strings.Contains(name, ".") {
		return r.Container().Attribute(name)
	}
	attr, err := attributex.ImportFromString(name)
	if err != nil {
		lua.ArgumentError(l, 2, err.Error())
	}
	return attr
}

func ruleSubscribe(l *lua.State) int {
	r := checkRule(l)
	attr := checkAttribute(l, r)
	ev := attributex.AllEvents
	if l.IsTable(3) {
		ev = attributex.ScriptEvents{
			Init:          boolField(l, 3, "init"),
			PreBaseChange: boolField(l, 3, "pre_base_change"),
			PreChange:     boolField(l, 3, "pre_change"),
			PostChange:    boolField(l, 3, "post_change"),
		}
	}
	if err := r.Subscribe(attr, ev); err != nil {
		lua.Errorf(l, "%s", err.Error())
	}
	return 0
}

func boolField(l *lua.State, idx int, name string) bool {
	l.Field(idx, name)
	v := l.ToBoolean(-1)
	l.Pop(1)
	return v
}

func ruleGet(l *lua.State) int {
	r := checkRule(l)
	l.PushNumber(r.GetAttributeValue(checkAttribute(l, r)))
	return 1
}

func ruleGetBase(l *lua.State) int {
	r := checkRule(l)
	l.PushNumber(r.Container().GetBaseValue(checkAttribute(l, r)))
	return 1
}

func ruleSet(l *lua.State) int {
	r := checkRule(l)
	attr := checkAttribute(l, r)
	if err := r.SetAttributeValue(attr, lua.CheckNumber(l, 3)); err != nil {
		lua.Errorf(l, "%s", err.Error())
	}
	return 0
}

func ruleSetBase(l *lua.State) int {
	r := checkRule(l)
	attr := checkAttribute(l, r)
	if err := r.SetAttributeBaseValue(attr, lua.CheckNumber(l, 3)); err != nil {
		lua.Errorf(l, "%s", err.Error())
	}
	return 0
}

func ruleIsChanging(l *lua.State) int {
	r := checkRule(l)
	l.PushBoolean(r.Container().IsChanging(checkAttribute(l, r)))
	return 1
}

func ruleClass(l *lua.State) int {
	r := checkRule(l)
	l.PushString(r.Container().Class())
	return 1
}
