// Package wire implements the on-the-wire encoding of Advertisement
// messages exchanged between directly-connected peers. See SPEC_FULL.md §6.
package wire

import (
	"fmt"
	"net/netip"

	"github.com/google/uuid"
	"github.com/near/borsh-go"

	"github.com/meshroute/routeengine/internal/meshroute"
)

// MaxAdvertisementBytes bounds the encoded payload so it fits inside a
// tunnel MTU after envelope overhead. Advertisements with more neighbors
// than fit are truncated (with a warning logged by the caller) rather than
// split across multiple packets; see SPEC_FULL.md §6 for why chunking is
// avoided.
const MaxAdvertisementBytes = 1280

// wirePeerAttributes is the Borsh-level shape of PeerAttributes. Optional
// fields use pointers, which borsh-go encodes as a one-byte presence flag
// followed by the value when non-nil, the Go analogue of Rust's
// Option<T> under Borsh.
type wirePeerAttributes struct {
	PeerID     [16]byte
	IPv4       *[4]byte
	ProxyCIDRs []string
	Hostname   *string
	UDPNATType int8
	Cost       uint32
}

type wireAdvertisement struct {
	Myself      wirePeerAttributes
	Neighbors   []wirePeerAttributes
	Version     uint32
	PeerVersion *uint32
	NeedReply   bool
}

func toWireAttrs(a meshroute.PeerAttributes) wirePeerAttributes {
	w := wirePeerAttributes{
		PeerID:     a.PeerID,
		UDPNATType: a.UDPNATType,
		Cost:       uint32(a.Cost),
	}
	if a.HasIPv4 {
		b := a.IPv4.As4()
		w.IPv4 = &b
	}
	if a.HasHostname {
		h := a.Hostname
		w.Hostname = &h
	}
	w.ProxyCIDRs = make([]string, len(a.ProxyCIDRs))
	for i, p := range a.ProxyCIDRs {
		w.ProxyCIDRs[i] = p.String()
	}
	return w
}

// fromWireAttrs converts a decoded wire struct back into PeerAttributes.
// A proxy CIDR that fails to parse is skipped with a warning returned via
// droppedCIDRs, per SPEC_FULL.md §7's "skip and log" handling of
// UnparseableCIDR: the caller is expected to log them at the call site
// where it has a logger.
func fromWireAttrs(w wirePeerAttributes) (meshroute.PeerAttributes, []string) {
	a := meshroute.PeerAttributes{
		PeerID:     uuid.UUID(w.PeerID),
		UDPNATType: w.UDPNATType,
		Cost:       int(w.Cost),
	}
	if w.IPv4 != nil {
		a.HasIPv4 = true
		a.IPv4 = netip.AddrFrom4(*w.IPv4)
	}
	if w.Hostname != nil {
		a.HasHostname = true
		a.Hostname = *w.Hostname
	}
	var dropped []string
	for _, s := range w.ProxyCIDRs {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			dropped = append(dropped, s)
			continue
		}
		a.ProxyCIDRs = append(a.ProxyCIDRs, p)
	}
	return a, dropped
}

// Encode serializes an Advertisement to its wire form. Neighbors beyond
// what fits in MaxAdvertisementBytes are dropped from the tail; the bool
// return reports whether truncation occurred so the caller can warn-log it.
func Encode(adv meshroute.Advertisement) (data []byte, truncated bool, err error) {
	w := wireAdvertisement{
		Myself:    toWireAttrs(adv.Myself),
		Neighbors: make([]wirePeerAttributes, len(adv.Neighbors)),
		Version:   adv.Version,
		NeedReply: adv.NeedReply,
	}
	if adv.HasPeerVersion {
		v := adv.PeerVersion
		w.PeerVersion = &v
	}
	for i, n := range adv.Neighbors {
		w.Neighbors[i] = toWireAttrs(n)
	}

	data, err = borsh.Serialize(w)
	if err != nil {
		return nil, false, fmt.Errorf("wire: serialize advertisement: %w", err)
	}

	for len(data) > MaxAdvertisementBytes && len(w.Neighbors) > 0 {
		w.Neighbors = w.Neighbors[:len(w.Neighbors)-1]
		truncated = true
		data, err = borsh.Serialize(w)
		if err != nil {
			return nil, false, fmt.Errorf("wire: re-serialize truncated advertisement: %w", err)
		}
	}

	return data, truncated, nil
}

// Decode deserializes raw bytes into an Advertisement. A malformed payload
// returns a wrapped meshroute.ErrMalformedAdvertisement. droppedCIDRs lists
// any proxy CIDR strings (across Myself and Neighbors) that failed to
// parse and were skipped.
func Decode(data []byte) (adv meshroute.Advertisement, droppedCIDRs []string, err error) {
	var w wireAdvertisement
	if err := borsh.Deserialize(&w, data); err != nil {
		return meshroute.Advertisement{}, nil, fmt.Errorf("%w: %v", meshroute.ErrMalformedAdvertisement, err)
	}

	myself, dropped := fromWireAttrs(w.Myself)
	droppedCIDRs = append(droppedCIDRs, dropped...)

	neighbors := make([]meshroute.PeerAttributes, len(w.Neighbors))
	for i, n := range w.Neighbors {
		attrs, dropped := fromWireAttrs(n)
		neighbors[i] = attrs
		droppedCIDRs = append(droppedCIDRs, dropped...)
	}

	adv = meshroute.Advertisement{
		Myself:    myself,
		Neighbors: neighbors,
		Version:   w.Version,
		NeedReply: w.NeedReply,
	}
	if w.PeerVersion != nil {
		adv.HasPeerVersion = true
		adv.PeerVersion = *w.PeerVersion
	}
	return adv, droppedCIDRs, nil
}
