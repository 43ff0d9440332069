package meshroute

import (
	"sync"
	"time"
)

// VersionVector is the sender-side bookkeeping kept per directly-connected
// peer in a LastSendMap (SPEC_FULL.md §3).
type VersionVector struct {
	MyVersionWhenSent uint32

	HasTheirVersionWeAcked bool
	TheirVersionWeAcked    uint32

	LastSend time.Time
}

// LastSendMap is the shared, mutex-guarded map the Advertiser and Ingress
// both read and write (SPEC_FULL.md §5: "a plain map ... guarded by a
// sync.Mutex; only the Advertiser and Ingress touch it, and both serialize
// through the same mutex").
type LastSendMap struct {
	mu sync.Mutex
	m  map[PeerId]VersionVector
}

// NewLastSendMap returns an empty map.
func NewLastSendMap() *LastSendMap {
	return &LastSendMap{m: make(map[PeerId]VersionVector)}
}

// Get returns the current entry for peer, if any.
func (l *LastSendMap) Get(peer PeerId) (VersionVector, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.m[peer]
	return v, ok
}

// Set records v as the entry for peer.
func (l *LastSendMap) Set(peer PeerId, v VersionVector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[peer] = v
}

// Replace swaps the entire map contents, dropping entries for peers no
// longer present in next (Advertiser step 4).
func (l *LastSendMap) Replace(next map[PeerId]VersionVector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m = next
}

// Mutate applies fn to the current entry for peer and stores the result,
// all under the same lock, so Ingress's fast-reply arming can read-then-
// write atomically with respect to a concurrent Advertiser pass.
func (l *LastSendMap) Mutate(peer PeerId, fn func(v VersionVector, ok bool) VersionVector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.m[peer]
	l.m[peer] = fn(v, ok)
}

// Snapshot returns a shallow copy of the full map.
func (l *LastSendMap) Snapshot() map[PeerId]VersionVector {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[PeerId]VersionVector, len(l.m))
	for k, v := range l.m {
		out[k] = v
	}
	return out
}
