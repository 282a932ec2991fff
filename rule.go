package attributex

// Rule is a unit of attribute behaviour attached to a Container.
//
// InitRule is called once when the rule is added to a container. A rule only
// receives notifications for what it subscribes to there; a rule that never
// subscribes stays inert.
type Rule interface {
	InitRule(c *Container) error
}

// RuleBase holds the non-owning back reference every rule needs. Embed it and
// call Bind first thing in InitRule.
type RuleBase struct {
	container *Container
}

// Bind records c as the owning container. A rule subscribes once, so binding
// it again fails, to the same container or another one.
func (b *RuleBase) Bind(c *Container) error {
	if b.container != nil {
		return ErrRuleAlreadyBound
	}
	b.container = c
	return nil
}

// Container returns the owning container, nil before InitRule.
func (b *RuleBase) Container() *Container {
	return b.container
}

// Resyncer is implemented by rules that cache values derived from attributes.
// The container calls Resync after writing values without notifications
// (Restore, InitFromMetadata) so the cache matches the new state. Resync must
// not change attribute values.
type Resyncer interface {
	Resync()
}
