package attributex

import "log"

// Option applies configuration to a Container via the functional options pattern.
type Option func(*Container)

// AttributeDef declares an attribute and its initial base value.
type AttributeDef struct {
	Name string  `json:"name" yaml:"name"`
	Base float64 `json:"base" yaml:"base"`
}

// WithID overrides the generated container ID.
func WithID(id string) Option {
	return func(c *Container) {
		c.id = id
	}
}

// WithLogger configures the logger used by the container and its rules.
func WithLogger(l *log.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetadata configures the metadata table used by metadata value sources.
func WithMetadata(t MetadataTable) Option {
	return func(c *Container) {
		c.metadata = t
	}
}

// WithReflector configures host reflection for binding rules and refs.
func WithReflector(r Reflector) Option {
	return func(c *Container) {
		c.reflector = r
	}
}

// WithInstanceFinder configures how binding rules find target instances.
func WithInstanceFinder(f InstanceFinder) Option {
	return func(c *Container) {
		c.finder = f
	}
}

// WithOwner sets the owning host object (the actor the container belongs to).
func WithOwner(owner any) Option {
	return func(c *Container) {
		c.owner = owner
	}
}

// WithAttributes defines attributes in the given order.
func WithAttributes(defs ...AttributeDef) Option {
	return func(c *Container) {
		for _, d := range defs {
			c.Define(d.Name, d.Base)
		}
	}
}

// WithRules appends rules. They are initialized in order once all options
// have been applied.
func WithRules(rules ...Rule) Option {
	return func(c *Container) {
		c.pending = append(c.pending, rules...)
	}
}

// WithMaxChangeDepth limits how deeply changes may nest inside change
// callbacks. Zero means unlimited.
func WithMaxChangeDepth(n int) Option {
	return func(c *Container) {
		c.maxDepth = n
	}
}
