package realtime

import (
	"sort"

	"github.com/comalice/attributex"
)

// ChangeRequest proposes a value for one attribute. Base selects
// SetBaseValue instead of SetValue.
type ChangeRequest struct {
	Attribute attributex.Attribute
	Value     float64
	Base      bool
}

// Applied is a request after its tick ran.
type Applied struct {
	ChangeRequest
	SequenceNum uint64
	Priority    int
	Err         error
}

// Frame reports what one tick did.
type Frame struct {
	Tick    uint64
	Applied []Applied
}

type requestWithMeta struct {
	req         ChangeRequest
	sequenceNum uint64
	priority    int
}

// sortRequests orders by priority (higher first), then sequence number.
func sortRequests(reqs []requestWithMeta) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].priority != reqs[j].priority {
			return reqs[i].priority > reqs[j].priority
		}
		return reqs[i].sequenceNum < reqs[j].sequenceNum
	})
}
