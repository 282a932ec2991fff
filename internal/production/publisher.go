package production

import (
	"sync/atomic"
	"time"

	"github.com/comalice/attributex"
)

// ChangeEvent describes one committed attribute change.
type ChangeEvent struct {
	ContainerID string
	Attribute   attributex.Attribute
	Old         float64
	New         float64
	At          time.Time
}

// PublisherRule forwards post-change notifications to a channel. It never
// blocks the change pipeline: when the channel is full the event is dropped
// and counted.
type PublisherRule struct {
	attributex.RuleBase

	// Attributes to publish. Empty means every attribute defined when the
	// rule is initialized.
	Attributes []attributex.Attribute

	ch      chan<- ChangeEvent
	dropped atomic.Uint64
}

// NewPublisherRule returns a rule publishing changes of attrs to ch.
func NewPublisherRule(ch chan<- ChangeEvent, attrs ...attributex.Attribute) *PublisherRule {
	return &PublisherRule{ch: ch, Attributes: attrs}
}

// InitRule implements attributex.Rule.
func (r *PublisherRule) InitRule(c *attributex.Container) error {
	if err := r.Bind(c); err != nil {
		return err
	}
	if len(r.Attributes) == 0 {
		r.Attributes = c.Attributes()
	}
	n := c.GetNotifier()
	for _, attr := range r.Attributes {
		attr := attr
		n.OnPostAttributeChange(attr).Add(func(oldValue, newValue float64) {
			r.publish(ChangeEvent{
				ContainerID: c.ID(),
				Attribute:   attr,
				Old:         oldValue,
				New:         newValue,
				At:          time.Now(),
			})
		})
	}
	return nil
}

func (r *PublisherRule) publish(ev ChangeEvent) {
	select {
	case r.ch <- ev:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many events were dropped on a full channel.
func (r *PublisherRule) Dropped() uint64 {
	return r.dropped.Load()
}
