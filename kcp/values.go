package kcp

// Seq is a KCP sequence number (segment sn/una) or 32-bit timestamp (seg ts).
// Arithmetic and comparisons on Seq wrap around at 2^32 using signed
// wraparound subtraction, following the upstream `_itimediff` convention: the
// difference of any two Seq values is taken in a 32-bit-wrapping signed type,
// never widened, so that e.g. Seq(0xFFFFFFFF).LessThan(Seq(0)) is true.
type Seq uint32

// timediff returns later-earlier as a signed 32-bit wraparound difference.
func timediff(later, earlier Seq) int32 {
	return int32(later - earlier)
}

// LessThan reports whether s comes before other in wraparound sequence order.
func (s Seq) LessThan(other Seq) bool {
	return timediff(s, other) < 0
}

// LessThanEq reports whether s comes before or at other in wraparound order.
func (s Seq) LessThanEq(other Seq) bool {
	return timediff(s, other) <= 0
}

// Add returns s+n wrapped to 32 bits.
func (s Seq) Add(n uint32) Seq { return s + Seq(n) }

// Window is a count of segments or bytes, always small relative to the
// 32-bit sequence space; plain unsigned arithmetic, no wraparound semantics.
type Window uint32
