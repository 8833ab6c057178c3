package kcp

import (
	"encoding/binary"

	"github.com/rs/xid"
)

// NewConv mints a conversation id for [NewControlBlock] when the caller has
// no out-of-band handshake of its own to agree on one. It derives the id
// from a freshly generated [xid.ID] rather than a bare counter or
// math/rand, so ids stay unique across process restarts without the caller
// needing to persist a seed.
func NewConv() uint32 {
	id := xid.New()
	b := id.Bytes()
	// Bytes 9-11 are xid's per-process counter, which starts at a random
	// value; byte 8 is the low byte of the process id. Bytes 0-3 are a
	// seconds timestamp and would repeat for every id minted in one second.
	return binary.BigEndian.Uint32(b[8:12])
}
