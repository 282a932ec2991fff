package attributex

import "sort"

// Phase is one of the four attribute lifecycle phases.
type Phase int

const (
	PhaseInit Phase = iota
	PhasePreBaseChange
	PhasePreChange
	PhasePostChange
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhasePreBaseChange:
		return "pre_base_change"
	case PhasePreChange:
		return "pre_change"
	case PhasePostChange:
		return "post_change"
	default:
		return "unknown"
	}
}

// Callback shapes for each phase. Pre-change callbacks return the proposed
// value handed to the next subscriber.
type (
	InitFunc       func(md MetaData)
	PreChangeFunc  func(value float64) float64
	PostChangeFunc func(oldValue, newValue float64)
)

// Delegate is an ordered callback list. Adding never replaces.
type Delegate[F any] struct {
	handlers []F
}

// Add appends f.
func (d *Delegate[F]) Add(f F) {
	d.handlers = append(d.handlers, f)
}

// Len returns the number of subscribers.
func (d *Delegate[F]) Len() int {
	if d == nil {
		return 0
	}
	return len(d.handlers)
}

// snapshot returns the handlers registered at call time. Subscribers added
// during a dispatch run from the next dispatch on.
func (d *Delegate[F]) snapshot() []F {
	if d == nil {
		return nil
	}
	return d.handlers[:len(d.handlers):len(d.handlers)]
}

// Subscription summarises the subscribers of one (attribute, phase) pair.
type Subscription struct {
	Attribute Attribute
	Phase     Phase
	Count     int
}

// Notifier dispatches phase callbacks keyed by attribute. It is owned by one
// Container and not safe for concurrent use.
type Notifier struct {
	init    map[Attribute]*Delegate[InitFunc]
	preBase map[Attribute]*Delegate[PreChangeFunc]
	pre     map[Attribute]*Delegate[PreChangeFunc]
	post    map[Attribute]*Delegate[PostChangeFunc]
}

// NewNotifier returns an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		init:    make(map[Attribute]*Delegate[InitFunc]),
		preBase: make(map[Attribute]*Delegate[PreChangeFunc]),
		pre:     make(map[Attribute]*Delegate[PreChangeFunc]),
		post:    make(map[Attribute]*Delegate[PostChangeFunc]),
	}
}

func getOrCreate[F any](m map[Attribute]*Delegate[F], attr Attribute) *Delegate[F] {
	d, ok := m[attr]
	if !ok {
		d = &Delegate[F]{}
		m[attr] = d
	}
	return d
}

// OnInitAttribute returns the init delegate for attr, creating it if absent.
func (n *Notifier) OnInitAttribute(attr Attribute) *Delegate[InitFunc] {
	return getOrCreate(n.init, attr)
}

// OnPreAttributeBaseChange returns the pre-base-change delegate for attr.
func (n *Notifier) OnPreAttributeBaseChange(attr Attribute) *Delegate[PreChangeFunc] {
	return getOrCreate(n.preBase, attr)
}

// OnPreAttributeChange returns the pre-change delegate for attr.
func (n *Notifier) OnPreAttributeChange(attr Attribute) *Delegate[PreChangeFunc] {
	return getOrCreate(n.pre, attr)
}

// OnPostAttributeChange returns the post-change delegate for attr.
func (n *Notifier) OnPostAttributeChange(attr Attribute) *Delegate[PostChangeFunc] {
	return getOrCreate(n.post, attr)
}

// NotifyInitAttribute calls every init subscriber of attr in order.
func (n *Notifier) NotifyInitAttribute(attr Attribute, md MetaData) {
	for _, fn := range n.init[attr].snapshot() {
		fn(md)
	}
}

// NotifyPreAttributeBaseChange folds value through the pre-base-change
// subscribers of attr and returns the result.
func (n *Notifier) NotifyPreAttributeBaseChange(attr Attribute, value float64) float64 {
	return fold(n.preBase[attr], value)
}

// NotifyPreAttributeChange folds value through the pre-change subscribers of
// attr and returns the result.
func (n *Notifier) NotifyPreAttributeChange(attr Attribute, value float64) float64 {
	return fold(n.pre[attr], value)
}

// NotifyPostAttributeChange broadcasts the committed change. If a subscriber
// changes attr again, later subscribers still receive this pass's newValue.
func (n *Notifier) NotifyPostAttributeChange(attr Attribute, oldValue, newValue float64) {
	for _, fn := range n.post[attr].snapshot() {
		fn(oldValue, newValue)
	}
}

func fold(d *Delegate[PreChangeFunc], value float64) float64 {
	for _, fn := range d.snapshot() {
		value = fn(value)
	}
	return value
}

// Subscriptions lists every non-empty (attribute, phase) pair, sorted by
// attribute path then phase.
func (n *Notifier) Subscriptions() []Subscription {
	var subs []Subscription
	collect := func(phase Phase, byAttr map[Attribute]int) {
		for attr, c := range byAttr {
			if c > 0 {
				subs = append(subs, Subscription{Attribute: attr, Phase: phase, Count: c})
			}
		}
	}
	collect(PhaseInit, counts(n.init))
	collect(PhasePreBaseChange, counts(n.preBase))
	collect(PhasePreChange, counts(n.pre))
	collect(PhasePostChange, counts(n.post))
	sort.Slice(subs, func(i, j int) bool {
		a, b := subs[i].Attribute.String(), subs[j].Attribute.String()
		if a != b {
			return a < b
		}
		return subs[i].Phase < subs[j].Phase
	})
	return subs
}

func counts[F any](m map[Attribute]*Delegate[F]) map[Attribute]int {
	out := make(map[Attribute]int, len(m))
	for attr, d := range m {
		out[attr] = d.Len()
	}
	return out
}
