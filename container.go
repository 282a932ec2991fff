package attributex

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

type attributeValue struct {
	base    float64
	current float64
}

// ValuePair is the persisted form of one attribute.
type ValuePair struct {
	Base    float64 `json:"base" yaml:"base"`
	Current float64 `json:"current" yaml:"current"`
}

// Snapshot is the serializable state of a Container.
type Snapshot struct {
	ContainerID string               `json:"containerID" yaml:"containerID"`
	Class       string               `json:"class" yaml:"class"`
	Values      map[string]ValuePair `json:"values" yaml:"values"`
	Timestamp   time.Time            `json:"timestamp" yaml:"timestamp"`
}

// Container owns a set of attributes, their Notifier and an ordered list of
// rules. Every base/current value write goes through it:
//
//	propose -> pre-base fold (base writes only) -> pre fold -> commit -> post broadcast
//
// Changes started from inside a callback run as their own complete pass.
// Rules that keep changing each other forever are an authoring error; use
// WithMaxChangeDepth to turn that into ErrChangeDepthExceeded.
//
// A Container is not safe for concurrent use. Serialize access externally,
// e.g. with realtime.FrameRunner.
type Container struct {
	id       string
	class    string
	names    []string
	values   map[string]*attributeValue
	notifier *Notifier
	rules    []Rule
	pending  []Rule

	metadata  MetadataTable
	reflector Reflector
	finder    InstanceFinder
	owner     any
	logger    *log.Logger

	changing map[Attribute]int
	depth    int
	maxDepth int
}

// NewContainer creates a container whose attributes live on class, applies
// opts and initializes the configured rules in order.
func NewContainer(class string, opts ...Option) (*Container, error) {
	if class == "" {
		return nil, fmt.Errorf("container class is required")
	}
	c := &Container{
		id:       uuid.NewString(),
		class:    class,
		values:   make(map[string]*attributeValue),
		notifier: NewNotifier(),
		logger:   log.Default(),
		changing: make(map[Attribute]int),
	}
	for _, opt := range opts {
		opt(c)
	}

	pending := c.pending
	c.pending = nil
	for i, r := range pending {
		if err := c.AddRule(r); err != nil {
			return nil, fmt.Errorf("init rule %d (%T): %w", i, r, err)
		}
	}
	return c, nil
}

// ID returns the container identifier.
func (c *Container) ID() string { return c.id }

// Class returns the class locator shared by this container's attributes.
func (c *Container) Class() string { return c.class }

// Owner returns the host object set with WithOwner.
func (c *Container) Owner() any { return c.owner }

// Logger returns the container logger.
func (c *Container) Logger() *log.Logger { return c.logger }

// Metadata returns the metadata table, possibly nil.
func (c *Container) Metadata() MetadataTable { return c.metadata }

// Reflector returns the host reflector, possibly nil.
func (c *Container) Reflector() Reflector { return c.reflector }

// InstanceFinder returns the host instance finder, possibly nil.
func (c *Container) InstanceFinder() InstanceFinder { return c.finder }

// GetNotifier returns the notifier rules subscribe to.
func (c *Container) GetNotifier() *Notifier { return c.notifier }

// Rules returns the rules in evaluation order.
func (c *Container) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Names returns the attribute names in definition order.
func (c *Container) Names() []string {
	return append([]string(nil), c.names...)
}

// Attribute returns the identity of the attribute called name on this
// container's class. The attribute does not need to be defined.
func (c *Container) Attribute(name string) Attribute {
	return Attribute{ClassPath: c.class, Name: name}
}

// Attributes returns the identities of all defined attributes in order.
func (c *Container) Attributes() []Attribute {
	out := make([]Attribute, len(c.names))
	for i, name := range c.names {
		out[i] = c.Attribute(name)
	}
	return out
}

// Define adds an attribute, or resets the values of an existing one, without
// firing notifications.
func (c *Container) Define(name string, base float64) Attribute {
	if v, ok := c.values[name]; ok {
		v.base, v.current = base, base
		return c.Attribute(name)
	}
	c.names = append(c.names, name)
	c.values[name] = &attributeValue{base: base, current: base}
	return c.Attribute(name)
}

// Has reports whether attr is defined on this container.
func (c *Container) Has(attr Attribute) bool {
	_, err := c.lookup(attr)
	return err == nil
}

// AddRule appends r to the rule list and initializes it.
func (c *Container) AddRule(r Rule) error {
	if r == nil {
		return fmt.Errorf("nil rule")
	}
	if err := r.InitRule(c); err != nil {
		return err
	}
	c.rules = append(c.rules, r)
	return nil
}

func (c *Container) lookup(attr Attribute) (*attributeValue, error) {
	if attr.ClassPath == c.class {
		if v, ok := c.values[attr.Name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, attr)
}

// AttributeValue implements AttributeReader.
func (c *Container) AttributeValue(attr Attribute) (float64, bool) {
	v, err := c.lookup(attr)
	if err != nil {
		return 0, false
	}
	return v.current, true
}

// GetValue returns the current value of attr, 0 if it is not defined.
func (c *Container) GetValue(attr Attribute) float64 {
	v, _ := c.AttributeValue(attr)
	return v
}

// GetBaseValue returns the base value of attr, 0 if it is not defined.
func (c *Container) GetBaseValue(attr Attribute) float64 {
	v, err := c.lookup(attr)
	if err != nil {
		return 0
	}
	return v.base
}

// IsChanging reports whether a change of attr is in flight on the call stack.
func (c *Container) IsChanging(attr Attribute) bool {
	return c.changing[attr] > 0
}

// SetBaseValue proposes a new base value. The pre-base-change fold runs first
// and its result becomes both the new base and the candidate current value.
func (c *Container) SetBaseValue(attr Attribute, value float64) error {
	v, err := c.lookup(attr)
	if err != nil {
		return err
	}
	if err := c.enter(attr); err != nil {
		return err
	}
	defer c.leave(attr)

	value = c.notifier.NotifyPreAttributeBaseChange(attr, value)
	v.base = value
	c.commitCurrent(attr, v, value)
	return nil
}

// SetValue proposes a new current value. The base value is left untouched.
func (c *Container) SetValue(attr Attribute, value float64) error {
	v, err := c.lookup(attr)
	if err != nil {
		return err
	}
	if err := c.enter(attr); err != nil {
		return err
	}
	defer c.leave(attr)

	c.commitCurrent(attr, v, value)
	return nil
}

func (c *Container) commitCurrent(attr Attribute, v *attributeValue, value float64) {
	value = c.notifier.NotifyPreAttributeChange(attr, value)
	old := v.current
	v.current = value
	c.notifier.NotifyPostAttributeChange(attr, old, value)
}

func (c *Container) enter(attr Attribute) error {
	if c.maxDepth > 0 && c.depth >= c.maxDepth {
		c.Logf("change of %s refused at depth %d", attr, c.depth)
		return fmt.Errorf("%w: %s at depth %d", ErrChangeDepthExceeded, attr, c.depth)
	}
	c.depth++
	c.changing[attr]++
	return nil
}

func (c *Container) leave(attr Attribute) {
	c.depth--
	c.changing[attr]--
	if c.changing[attr] <= 0 {
		delete(c.changing, attr)
	}
}

// InitFromMetadata seeds every defined attribute that has a row in table with
// the row's default, then fires the init notification for it. All rows are
// seeded before the first notification, and notifications follow definition
// order. The table becomes the container's metadata table if none was
// configured.
func (c *Container) InitFromMetadata(table MetadataTable) error {
	if table == nil {
		table = c.metadata
	}
	if table == nil {
		return fmt.Errorf("%w: no metadata table", ErrMissingMetadata)
	}
	if c.metadata == nil {
		c.metadata = table
	}
	type row struct {
		attr Attribute
		md   MetaData
	}
	var seeded []row
	for _, name := range c.names {
		md, ok := table.Lookup(name)
		if !ok {
			continue
		}
		v := c.values[name]
		v.base, v.current = md.Default, md.Default
		seeded = append(seeded, row{attr: c.Attribute(name), md: md})
	}
	c.resync()
	for _, r := range seeded {
		c.notifier.NotifyInitAttribute(r.attr, r.md)
	}
	return nil
}

func (c *Container) resync() {
	for _, r := range c.rules {
		if rs, ok := r.(Resyncer); ok {
			rs.Resync()
		}
	}
}

// SourceContext returns the context for reading a value source on behalf of
// attr.
func (c *Container) SourceContext(attr Attribute, field MetaField) SourceContext {
	return SourceContext{
		Values:    c,
		Metadata:  c.metadata,
		Attribute: attr,
		Field:     field,
	}
}

// Snapshot returns the current values for persistence.
func (c *Container) Snapshot() Snapshot {
	values := make(map[string]ValuePair, len(c.names))
	for _, name := range c.names {
		v := c.values[name]
		values[name] = ValuePair{Base: v.base, Current: v.current}
	}
	return Snapshot{
		ContainerID: c.id,
		Class:       c.class,
		Values:      values,
		Timestamp:   time.Now(),
	}
}

// Restore loads values from snap without firing notifications. Values for
// attributes the container does not define are ignored. Rules implementing
// Resyncer are resynced afterwards.
func (c *Container) Restore(snap Snapshot) error {
	if snap.Class != c.class {
		return fmt.Errorf("class mismatch: have %q, snapshot %q", c.class, snap.Class)
	}
	for name, pair := range snap.Values {
		if v, ok := c.values[name]; ok {
			v.base, v.current = pair.Base, pair.Current
		}
	}
	c.resync()
	return nil
}

// Logf logs through the container logger, prefixed with the container ID.
func (c *Container) Logf(format string, args ...any) {
	c.logger.Printf("attributex[%s]: "+format, append([]any{c.id}, args...)...)
}
