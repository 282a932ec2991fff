package attributex

import (
	"fmt"
	"math"
)

// ClampPolicy decides what happens to the attribute value when its clamp
// range changes.
type ClampPolicy int

const (
	// KeepAbsolute leaves the value alone; it is only clamped into the new range.
	KeepAbsolute ClampPolicy = iota
	// KeepRelative rescales the value proportionally into the new range.
	KeepRelative
	// UseMin resets the value to the new minimum.
	UseMin
	// UseMax resets the value to the new maximum.
	UseMax
)

func (p ClampPolicy) String() string {
	switch p {
	case KeepAbsolute:
		return "keep_absolute"
	case KeepRelative:
		return "keep_relative"
	case UseMin:
		return "use_min"
	case UseMax:
		return "use_max"
	default:
		return fmt.Sprintf("ClampPolicy(%d)", int(p))
	}
}

// ParseClampPolicy is the inverse of ClampPolicy.String.
func ParseClampPolicy(s string) (ClampPolicy, error) {
	switch s {
	case "keep_absolute", "":
		return KeepAbsolute, nil
	case "keep_relative":
		return KeepRelative, nil
	case "use_min":
		return UseMin, nil
	case "use_max":
		return UseMax, nil
	default:
		return 0, fmt.Errorf("unknown clamp policy %q", s)
	}
}

// Rescale maps value from [oldMin, oldMax] onto [newMin, newMax]. A zero-width
// old range has no proportional position and yields ErrDegenerateRange.
func Rescale(value, oldMin, oldMax, newMin, newMax float64) (float64, error) {
	if oldMax == oldMin {
		return newMin, ErrDegenerateRange
	}
	return (value-oldMin)/(oldMax-oldMin)*(newMax-newMin) + newMin, nil
}

// ApplyPolicy returns the value after a range change from [oldMin, oldMax] to
// [newMin, newMax], clamped into the new range. KeepRelative over a zero-width
// old range behaves like UseMin.
func ApplyPolicy(p ClampPolicy, value, oldMin, oldMax, newMin, newMax float64) float64 {
	switch p {
	case KeepRelative:
		value, _ = Rescale(value, oldMin, oldMax, newMin, newMax)
	case UseMin:
		value = newMin
	case UseMax:
		value = newMax
	}
	return clamp(value, newMin, newMax)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// ClampRule keeps Attribute inside [MinValue, MaxValue]. Every proposed value
// is clamped in the pre-change phase; when the range itself moves, Policy
// decides the new value.
type ClampRule struct {
	RuleBase

	Attribute Attribute
	MinValue  ValueSource
	MaxValue  ValueSource
	Policy    ClampPolicy

	min, max float64
	hasRange bool
	warned   [2]bool
}

// NewClampRule returns a clamp rule for attr.
func NewClampRule(attr Attribute, minValue, maxValue ValueSource, policy ClampPolicy) *ClampRule {
	return &ClampRule{Attribute: attr, MinValue: minValue, MaxValue: maxValue, Policy: policy}
}

// InitRule implements Rule.
func (r *ClampRule) InitRule(c *Container) error {
	if err := r.Bind(c); err != nil {
		return err
	}
	if !r.Attribute.IsValid() {
		return fmt.Errorf("clamp rule: %w: %q", ErrInvalidPath, r.Attribute.String())
	}

	n := c.GetNotifier()
	n.OnInitAttribute(r.Attribute).Add(r.onInit)
	n.OnPreAttributeChange(r.Attribute).Add(r.onPreChange)
	n.OnPostAttributeChange(r.Attribute).Add(func(_, _ float64) { r.refresh() })

	watched := map[Attribute]bool{r.Attribute: true}
	for _, src := range []*ValueSource{&r.MinValue, &r.MaxValue} {
		dep, ok := src.DependsOn()
		if !ok || watched[dep] {
			continue
		}
		watched[dep] = true
		n.OnPostAttributeChange(dep).Add(func(_, _ float64) { r.refresh() })
	}

	if lo, hi, ok := r.resolveRange(c.SourceContext(r.Attribute, MetaMin)); ok {
		r.min, r.max, r.hasRange = lo, hi, true
	}
	return nil
}

// Range returns the cached range and whether one has been resolved yet.
func (r *ClampRule) Range() (lo, hi float64, ok bool) {
	return r.min, r.max, r.hasRange
}

func (r *ClampRule) onInit(md MetaData) {
	ctx := r.Container().SourceContext(r.Attribute, MetaMin)
	ctx.Metadata = singleRow{name: r.Attribute.Name, md: md}
	if lo, hi, ok := r.resolveRange(ctx); ok {
		r.min, r.max, r.hasRange = lo, hi, true
	}
}

func (r *ClampRule) onPreChange(value float64) float64 {
	lo, hi, ok := r.resolveRange(r.Container().SourceContext(r.Attribute, MetaMin))
	if !ok {
		return value
	}
	return clamp(value, lo, hi)
}

func (r *ClampRule) refresh() {
	if lo, hi, ok := r.resolveRange(r.Container().SourceContext(r.Attribute, MetaMin)); ok {
		r.UpdateRange(lo, hi)
	}
}

// Resync re-reads both bounds into the cached range without applying Policy
// or touching the value. A bound that fails to resolve keeps its cached value.
func (r *ClampRule) Resync() {
	c := r.Container()
	if c == nil {
		return
	}
	ctx := c.SourceContext(r.Attribute, MetaMin)
	lo, errLo := r.MinValue.GetValue(ctx)
	ctx.Field = MetaMax
	hi, errHi := r.MaxValue.GetValue(ctx)
	if !r.hasRange && (errLo != nil || errHi != nil) {
		return
	}
	if errLo == nil {
		r.min = lo
	}
	if errHi == nil {
		r.max = hi
	}
	r.hasRange = true
}

// UpdateRange records a new range and, if it differs from the cached one,
// applies Policy and commits the resulting value.
func (r *ClampRule) UpdateRange(lo, hi float64) {
	if r.hasRange && lo == r.min && hi == r.max {
		return
	}
	oldMin, oldMax, had := r.min, r.max, r.hasRange
	r.min, r.max, r.hasRange = lo, hi, true

	c := r.Container()
	if c == nil {
		return
	}
	value := c.GetValue(r.Attribute)
	var next float64
	if had {
		if r.Policy == KeepRelative && oldMax == oldMin {
			c.Logf("clamp %s: %v [%g, %g], using min", r.Attribute, ErrDegenerateRange, oldMin, oldMax)
		}
		next = ApplyPolicy(r.Policy, value, oldMin, oldMax, lo, hi)
	} else {
		next = clamp(value, lo, hi)
	}
	if next == value {
		return
	}
	if err := c.SetValue(r.Attribute, next); err != nil {
		c.Logf("clamp %s: %v", r.Attribute, err)
	}
}

// resolveRange reads both bounds. A bound that fails to resolve keeps its
// cached value; without a cached value the range is unavailable.
func (r *ClampRule) resolveRange(ctx SourceContext) (lo, hi float64, ok bool) {
	lo, okLo := r.bound(0, &r.MinValue, ctx, MetaMin, r.min)
	hi, okHi := r.bound(1, &r.MaxValue, ctx, MetaMax, r.max)
	return lo, hi, okLo && okHi
}

func (r *ClampRule) bound(side int, src *ValueSource, ctx SourceContext, field MetaField, cached float64) (float64, bool) {
	ctx.Field = field
	v, err := src.GetValue(ctx)
	if err == nil {
		r.warned[side] = false
		return v, true
	}
	if !r.warned[side] {
		r.warned[side] = true
		if c := r.Container(); c != nil {
			c.Logf("clamp %s: %s bound: %v", r.Attribute, field, err)
		}
	}
	return cached, r.hasRange
}

// singleRow serves one metadata row during init notifications.
type singleRow struct {
	name string
	md   MetaData
}

func (s singleRow) Lookup(name string) (MetaData, bool) {
	if name != s.name {
		return MetaData{}, false
	}
	return s.md, true
}
