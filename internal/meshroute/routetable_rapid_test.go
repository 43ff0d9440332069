package meshroute

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

// TestRebuild_Rapid exercises invariants I1 (hop ceiling) and the
// determinism property established by sorted-sender iteration, over
// randomly generated mesh snapshots.
func TestRebuild_Rapid(t *testing.T) {
	t.Parallel()

	pool := make([]PeerId, 6)
	for i := range pool {
		pool[i] = uuid.New()
	}
	me := pool[0]
	senders := pool[1:]

	rapid.Check(t, func(t *rapid.T) {
		views := make(map[PeerId]RemoteView)

		for _, s := range senders {
			if !rapid.Bool().Draw(t, "connected") {
				continue
			}
			numNeighbors := rapid.IntRange(0, len(pool)-1).Draw(t, "numNeighbors")
			neighbors := make([]PeerAttributes, 0, numNeighbors)
			for i := 0; i < numNeighbors; i++ {
				peerIdx := rapid.IntRange(0, len(pool)-1).Draw(t, "neighborIdx")
				cost := rapid.IntRange(0, MaxHops+2).Draw(t, "neighborCost")
				neighbors = append(neighbors, PeerAttributes{PeerID: pool[peerIdx], Cost: cost})
			}
			views[s] = RemoteView{Advertisement: Advertisement{
				Myself:    PeerAttributes{PeerID: s},
				Neighbors: neighbors,
			}}
		}

		rt := Rebuild(me, views)

		for _, entry := range rt.Snapshot() {
			if entry.Cost > MaxHops {
				t.Fatalf("I1 violated: destination %s installed at cost %d > MaxHops", entry.Destination, entry.Cost)
			}
			if entry.Destination == me {
				t.Fatalf("self must never be a route table entry")
			}
		}

		// Rebuilding again from the same views must be byte-identical
		// (DESIGN.md Open Question 2).
		rt2 := Rebuild(me, views)
		s1, s2 := rt.Snapshot(), rt2.Snapshot()
		if len(s1) != len(s2) {
			t.Fatalf("nondeterministic rebuild: got %d and %d entries", len(s1), len(s2))
		}
		for i := range s1 {
			if !reflect.DeepEqual(s1[i], s2[i]) {
				t.Fatalf("nondeterministic rebuild at entry %d: %+v vs %+v", i, s1[i], s2[i])
			}
		}
	})
}
