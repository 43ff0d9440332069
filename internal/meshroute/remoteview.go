package meshroute

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// RemoteView is the most recent Advertisement received from a given
// directly-connected peer, plus when it was received.
type RemoteView struct {
	Advertisement Advertisement
	LastUpdate    time.Time
}

// RemoteViewStore holds the last-received Advertisement per
// directly-connected peer. It is backed by a ttlcache.Cache so the "aged
// out" half of SPEC_FULL.md §3 invariant 6 (a RemoteView older than
// RouteExpiry is dropped) rides on a well-tested TTL implementation; the
// "peer no longer connected" half is still the Reaper's job, since
// liveness of the underlying tunnel has nothing to do with elapsed time.
type RemoteViewStore struct {
	log   *slog.Logger
	cache *ttlcache.Cache[PeerId, *RemoteView]

	// onExpired is invoked (outside the cache's internal lock) whenever an
	// entry ages out, so Engine can trigger the same
	// rebuild-Version.Inc-notify sequence the Reaper uses for explicit
	// disconnection removals.
	onExpired func(PeerId)
}

// NewRemoteViewStore creates a store that evicts entries after expiry has
// elapsed since their last update. onExpired, if non-nil, fires for every
// TTL-driven eviction (not for explicit Remove calls).
func NewRemoteViewStore(log *slog.Logger, expiry time.Duration, onExpired func(PeerId)) *RemoteViewStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[PeerId, *RemoteView](expiry),
	)
	s := &RemoteViewStore{log: log, cache: cache, onExpired: onExpired}
	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[PeerId, *RemoteView]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		log.Warn("remote view expired", "peer", item.Key())
		if s.onExpired != nil {
			s.onExpired(item.Key())
		}
	})
	return s
}

// Start runs the cache's background TTL janitor until ctx is canceled.
func (s *RemoteViewStore) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.cache.Stop()
	}()
	go s.cache.Start()
}

// Upsert records adv as the latest view from sender and reports whether the
// material content (Myself or Neighbors) changed relative to what was
// stored before. Version/PeerVersion are always updated but never count as
// material on their own (SPEC_FULL.md §4.3).
func (s *RemoteViewStore) Upsert(sender PeerId, adv Advertisement) bool {
	item := s.cache.Get(sender, ttlcache.WithDisableTouchOnHit[PeerId, *RemoteView]())
	now := time.Now()

	if item == nil {
		s.cache.Set(sender, &RemoteView{Advertisement: adv, LastUpdate: now}, ttlcache.DefaultTTL)
		return true
	}

	prev := item.Value()
	material := !sameNeighborhood(prev.Advertisement, adv)
	s.cache.Set(sender, &RemoteView{Advertisement: adv, LastUpdate: now}, ttlcache.DefaultTTL)
	return material
}

// sameNeighborhood compares two advertisements' Myself and Neighbors for
// material equality, sorting each Neighbors slice by PeerID first so mere
// reordering of an unchanged neighbor set never registers as a change
// (DESIGN.md Open Question 1).
func sameNeighborhood(a, b Advertisement) bool {
	if !a.Myself.Equal(b.Myself) {
		return false
	}
	if len(a.Neighbors) != len(b.Neighbors) {
		return false
	}
	an := sortedByPeerID(a.Neighbors)
	bn := sortedByPeerID(b.Neighbors)
	for i := range an {
		if !an[i].Equal(bn[i]) || an[i].Cost != bn[i].Cost {
			return false
		}
	}
	return true
}

func sortedByPeerID(attrs []PeerAttributes) []PeerAttributes {
	out := append([]PeerAttributes(nil), attrs...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].PeerID.String() < out[j].PeerID.String()
	})
	return out
}

// Remove deletes the view for sender, if present, without invoking
// onExpired (this is the Reaper's "no longer connected" path, distinct
// from TTL-driven expiry).
func (s *RemoteViewStore) Remove(sender PeerId) {
	s.cache.Delete(sender)
}

// Get returns the stored view for sender, if any.
func (s *RemoteViewStore) Get(sender PeerId) (RemoteView, bool) {
	item := s.cache.Get(sender, ttlcache.WithDisableTouchOnHit[PeerId, *RemoteView]())
	if item == nil {
		return RemoteView{}, false
	}
	return *item.Value(), true
}

// Snapshot returns a copy of every currently stored view, keyed by sender.
func (s *RemoteViewStore) Snapshot() map[PeerId]RemoteView {
	items := s.cache.Items()
	out := make(map[PeerId]RemoteView, len(items))
	for k, item := range items {
		out[k] = *item.Value()
	}
	return out
}

// Keys returns the set of senders currently tracked.
func (s *RemoteViewStore) Keys() []PeerId {
	items := s.cache.Items()
	out := make([]PeerId, 0, len(items))
	for k := range items {
		out = append(out, k)
	}
	return out
}
