package netaddr

import "fmt"

// IPv6 is a 128-bit IPv6 address, kept as a pair of 64-bit halves since
// Go has no native 128-bit integer.
type IPv6 struct {
	hi, lo uint64 // hi = bits [127:64], lo = bits [63:0]
}

// IPv6FromArray builds an IPv6 from its sixteen octets in network order.
func IPv6FromArray(arr [16]byte) IPv6 {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(arr[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(arr[i])
	}
	return IPv6{hi: hi, lo: lo}
}

// Array returns the address as sixteen octets in network order.
func (a IPv6) Array() [16]byte {
	var out [16]byte
	for i := 0; i < 8; i++ {
		out[7-i] = byte(a.hi >> (8 * i))
	}
	for i := 0; i < 8; i++ {
		out[15-i] = byte(a.lo >> (8 * i))
	}
	return out
}

// Masked zeros all bits of prefix position >= p, keeping the top p bits
// of the 128-bit address. p must be in [0, 128].
func (a IPv6) Masked(p uint) IPv6 {
	if p >= 128 {
		return a
	}
	if p >= 64 {
		keep := p - 64
		var loMask uint64
		if keep > 0 {
			loMask = uint64(0xffffffffffffffff) << (64 - keep)
		}
		return IPv6{hi: a.hi, lo: a.lo & loMask}
	}
	var hiMask uint64
	if p > 0 {
		hiMask = uint64(0xffffffffffffffff) << (64 - p)
	}
	return IPv6{hi: a.hi & hiMask, lo: 0}
}

// Less gives a total order over IPv6 addresses.
func (a IPv6) Less(other IPv6) bool {
	if a.hi != other.hi {
		return a.hi < other.hi
	}
	return a.lo < other.lo
}

// Equal reports address equality.
func (a IPv6) Equal(other IPv6) bool {
	return a.hi == other.hi && a.lo == other.lo
}

// String renders the address as plain (non-compressed) colon-hex groups.
func (a IPv6) String() string {
	arr := a.Array()
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x:%02x%02x:%02x%02x:%02x%02x:%02x%02x:%02x%02x",
		arr[0], arr[1], arr[2], arr[3], arr[4], arr[5], arr[6], arr[7],
		arr[8], arr[9], arr[10], arr[11], arr[12], arr[13], arr[14], arr[15])
}
