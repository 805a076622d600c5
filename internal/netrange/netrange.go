// Package netrange canonicalizes player addresses into the fixed-size
// blocks ban records match against.
package netrange

import "net/netip"

const (
	PrefixLenIPv4 = 32
	PrefixLenIPv6 = 64
)

// Normalize maps an address onto the block a ban on that address covers:
// /32 for IPv4 and /64 for native IPv6. IPv4-mapped IPv6 addresses are
// unmapped first so a client connecting over a dual-stack listener gets the
// IPv4 policy. An invalid (zero) address yields ok=false; the ban then
// matches on its other criteria only.
//
// The returned prefix keeps the original address as its base; host bits are
// not cleared. Containment checks mask them as needed.
func Normalize(addr netip.Addr) (netip.Prefix, bool) {
	if !addr.IsValid() {
		return netip.Prefix{}, false
	}
	addr = addr.Unmap()
	bits := PrefixLenIPv6
	if addr.Is4() {
		bits = PrefixLenIPv4
	}
	// PrefixFrom keeps the address as the base; host bits stay intact.
	return netip.PrefixFrom(addr, bits), true
}

// Contains reports whether addr falls inside the given block, unmapping
// IPv4-mapped forms so both sides compare in the same family.
func Contains(block netip.Prefix, addr netip.Addr) bool {
	if !block.IsValid() || !addr.IsValid() {
		return false
	}
	return block.Masked().Contains(addr.Unmap())
}
