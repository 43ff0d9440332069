package meshroute

import "sync/atomic"

// Version is the local monotone generation counter of the Route Table. It
// is used only for equality-based reply-suppression hand-shaking, never to
// establish happens-before across data, so relaxed atomic access suffices.
type Version struct {
	v atomic.Uint32
}

// Get returns the current version.
func (v *Version) Get() uint32 {
	return v.v.Load()
}

// Inc advances the version by one. Wraparound after 2^32 increments is
// accepted: equality comparisons used for reply-suppression remain correct
// under modular wraparound.
func (v *Version) Inc() {
	v.v.Add(1)
}
