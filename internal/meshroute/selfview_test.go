package meshroute

import (
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeSelfContext struct {
	id         PeerId
	hasIPv4    bool
	ipv4       netip.Addr
	cidrs      []netip.Prefix
	hasHost    bool
	host       string
	udpNATType int8
}

func (f fakeSelfContext) GetID() PeerId                  { return f.id }
func (f fakeSelfContext) GetIPv4() (netip.Addr, bool)    { return f.ipv4, f.hasIPv4 }
func (f fakeSelfContext) GetProxyCIDRs() []netip.Prefix  { return f.cidrs }
func (f fakeSelfContext) GetHostname() (string, bool)    { return f.host, f.hasHost }
func (f fakeSelfContext) GetUDPNATType() int8            { return f.udpNATType }

func TestSelfView_RefreshDetectsChange(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	sv := NewSelfView(id)

	ctx := fakeSelfContext{id: id, hasIPv4: true, ipv4: netip.MustParseAddr("10.0.0.1")}
	require.True(t, sv.Refresh(ctx))
	require.Equal(t, ctx.ipv4, sv.Snapshot().IPv4)

	// Re-running Refresh with identical attributes reports no change.
	require.False(t, sv.Refresh(ctx))

	ctx.ipv4 = netip.MustParseAddr("10.0.0.2")
	require.True(t, sv.Refresh(ctx))
	require.Equal(t, ctx.ipv4, sv.Snapshot().IPv4)
}

func TestSelfView_RefreshIgnoresCIDROrdering(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	sv := NewSelfView(id)

	a := netip.MustParsePrefix("10.0.0.0/24")
	b := netip.MustParsePrefix("10.0.1.0/24")

	require.True(t, sv.Refresh(fakeSelfContext{id: id, cidrs: []netip.Prefix{a, b}}))
	require.False(t, sv.Refresh(fakeSelfContext{id: id, cidrs: []netip.Prefix{b, a}}))
}
