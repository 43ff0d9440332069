package meshroute

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRemoteViewStore_UpsertReportsFirstInsertAsMaterial(t *testing.T) {
	t.Parallel()

	s := NewRemoteViewStore(discardLogger(), time.Minute, nil)
	sender := uuid.New()

	require.True(t, s.Upsert(sender, Advertisement{Myself: PeerAttributes{PeerID: sender}}))
}

func TestRemoteViewStore_UpsertIgnoresVersionOnlyChange(t *testing.T) {
	t.Parallel()

	s := NewRemoteViewStore(discardLogger(), time.Minute, nil)
	sender := uuid.New()
	myself := PeerAttributes{PeerID: sender}

	require.True(t, s.Upsert(sender, Advertisement{Myself: myself, Version: 1}))
	require.False(t, s.Upsert(sender, Advertisement{Myself: myself, Version: 2}))
}

func TestRemoteViewStore_UpsertDetectsNeighborChange(t *testing.T) {
	t.Parallel()

	s := NewRemoteViewStore(discardLogger(), time.Minute, nil)
	sender := uuid.New()
	myself := PeerAttributes{PeerID: sender}
	n1 := PeerAttributes{PeerID: uuid.New()}
	n2 := PeerAttributes{PeerID: uuid.New()}

	require.True(t, s.Upsert(sender, Advertisement{Myself: myself, Neighbors: []PeerAttributes{n1}}))
	require.True(t, s.Upsert(sender, Advertisement{Myself: myself, Neighbors: []PeerAttributes{n1, n2}}))
}

func TestRemoteViewStore_UpsertIgnoresNeighborReorder(t *testing.T) {
	t.Parallel()

	s := NewRemoteViewStore(discardLogger(), time.Minute, nil)
	sender := uuid.New()
	myself := PeerAttributes{PeerID: sender}
	n1 := PeerAttributes{PeerID: uuid.New()}
	n2 := PeerAttributes{PeerID: uuid.New()}

	require.True(t, s.Upsert(sender, Advertisement{Myself: myself, Neighbors: []PeerAttributes{n1, n2}}))
	require.False(t, s.Upsert(sender, Advertisement{Myself: myself, Neighbors: []PeerAttributes{n2, n1}}))
}

func TestRemoteViewStore_RemoveDoesNotInvokeOnExpired(t *testing.T) {
	t.Parallel()

	called := false
	s := NewRemoteViewStore(discardLogger(), time.Minute, func(PeerId) { called = true })
	sender := uuid.New()
	s.Upsert(sender, Advertisement{Myself: PeerAttributes{PeerID: sender}})

	s.Remove(sender)
	_, ok := s.Get(sender)
	require.False(t, ok)
	require.False(t, called)
}
