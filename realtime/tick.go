package realtime

import "fmt"

// Step runs one tick synchronously and returns what it applied.
func (r *FrameRunner) Step() Frame {
	reqs := r.collectRequests()
	sortRequests(reqs)

	r.mu.Lock()
	defer r.mu.Unlock()

	applied := r.applyRequests(reqs)

	r.batchMu.Lock()
	r.tickNum++
	frame := Frame{Tick: r.tickNum, Applied: applied}
	r.batchMu.Unlock()

	if r.onFrame != nil {
		r.onFrame(r.container, frame)
	}
	return frame
}

// collectRequests atomically takes and clears the batch.
func (r *FrameRunner) collectRequests() []requestWithMeta {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()

	reqs := r.batch
	r.batch = make([]requestWithMeta, 0, cap(r.batch))
	return reqs
}

func (r *FrameRunner) applyRequests(reqs []requestWithMeta) []Applied {
	applied := make([]Applied, 0, len(reqs))
	for _, m := range reqs {
		applied = append(applied, Applied{
			ChangeRequest: m.req,
			SequenceNum:   m.sequenceNum,
			Priority:      m.priority,
			Err:           r.apply(m.req),
		})
	}
	return applied
}

// apply runs one request; a panicking rule fails the request, not the runner.
func (r *FrameRunner) apply(req ChangeRequest) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.container.Logf("change of %s panicked: %v", req.Attribute, p)
			err = fmt.Errorf("change of %s panicked: %v", req.Attribute, p)
		}
	}()
	if req.Base {
		return r.container.SetBaseValue(req.Attribute, req.Value)
	}
	return r.container.SetValue(req.Attribute, req.Value)
}
