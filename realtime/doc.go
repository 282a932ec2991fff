// Package realtime serializes attribute changes coming from many goroutines
// into one container.
//
// A Container is single-threaded. FrameRunner owns one and applies queued
// change requests at fixed tick boundaries:
//   - Submit never blocks; it fails with ErrQueueFull when the per-tick queue
//     is full
//   - requests are applied by priority (higher first), then in submission
//     order
//   - each request runs through the full change pipeline, including every
//     change it triggers, before the next one starts
//
// # Example Usage
//
//	r := realtime.NewFrameRunner(c, realtime.Config{TickRate: 16667 * time.Microsecond})
//	r.Start(ctx)
//	r.Submit(realtime.ChangeRequest{Attribute: health, Value: 80})
//	...
//	r.Stop()
//
// Given the same submissions in the same order, the container ends every
// tick in the same state regardless of goroutine scheduling. Step runs one
// tick synchronously, which is what tests and replays use.
package realtime
