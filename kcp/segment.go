package kcp

import "encoding/binary"

// Command identifies the purpose of a [Segment] on the wire.
type Command uint8

// Wire command constants, bit-compatible with upstream KCP.
const (
	CmdPush Command = 81 // carries a fragment of application data.
	CmdAck  Command = 82 // acknowledges a single sn, echoes its send timestamp.
	CmdWask Command = 83 // window probe: "tell me your free window".
	CmdWins Command = 84 // window probe reply: "here is my free window".
)

func (c Command) valid() bool {
	return c == CmdPush || c == CmdAck || c == CmdWask || c == CmdWins
}

func (c Command) String() string {
	switch c {
	case CmdPush:
		return "PUSH"
	case CmdAck:
		return "ACK"
	case CmdWask:
		return "WASK"
	case CmdWins:
		return "WINS"
	default:
		return "CMD?"
	}
}

// Overhead is the fixed size in bytes of an encoded [Segment] header.
const Overhead = 24

// Segment is the unit of wire transfer: a 24-byte little-endian header
// followed by Data. Multiple segments may be packed back to back in one
// datagram up to the path MTU. See §3.1 and §6.
//
// A Segment held in a queue owns its Data; it is never shared across queues.
// Send and Input copy payloads into a fresh slice before queueing them; a
// Segment returned by [DecodeSegment] instead aliases the decoded buffer.
type Segment struct {
	Conv uint32
	Cmd  Command
	Frg  uint8
	Wnd  uint16
	Ts   uint32
	Sn   uint32
	Una  uint32
	Data []byte
}

// Len returns the encoded size of the segment: header plus payload.
func (s *Segment) Len() int { return Overhead + len(s.Data) }

// Encode appends the wire encoding of s to dst and returns the result.
// It never allocates beyond what append requires.
func (s *Segment) Encode(dst []byte) []byte {
	var hdr [Overhead]byte
	binary.LittleEndian.PutUint32(hdr[0:4], s.Conv)
	hdr[4] = byte(s.Cmd)
	hdr[5] = s.Frg
	binary.LittleEndian.PutUint16(hdr[6:8], s.Wnd)
	binary.LittleEndian.PutUint32(hdr[8:12], s.Ts)
	binary.LittleEndian.PutUint32(hdr[12:16], s.Sn)
	binary.LittleEndian.PutUint32(hdr[16:20], s.Una)
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(len(s.Data)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, s.Data...)
	return dst
}

// DecodeSegment decodes a single segment header (and its payload, re-sliced
// from buf, not copied) from the front of buf. It returns the number of
// bytes consumed and an error if the header is short or declares a payload
// longer than what remains in buf.
func DecodeSegment(buf []byte) (seg Segment, consumed int, err error) {
	if len(buf) < Overhead {
		return Segment{}, 0, errShortBuffer
	}
	dataLen := binary.LittleEndian.Uint32(buf[20:24])
	if dataLen > uint32(len(buf)-Overhead) {
		return Segment{}, 0, errTruncatedPayload
	}
	seg.Conv = binary.LittleEndian.Uint32(buf[0:4])
	seg.Cmd = Command(buf[4])
	seg.Frg = buf[5]
	seg.Wnd = binary.LittleEndian.Uint16(buf[6:8])
	seg.Ts = binary.LittleEndian.Uint32(buf[8:12])
	seg.Sn = binary.LittleEndian.Uint32(buf[12:16])
	seg.Una = binary.LittleEndian.Uint32(buf[16:20])
	n := Overhead + int(dataLen)
	seg.Data = buf[Overhead:n]
	return seg, n, nil
}

// PeekConv decodes only the conversation id from the head of a datagram,
// for demultiplexing incoming datagrams to a [ControlBlock] before one has
// necessarily been matched. See §4.8.
func PeekConv(buf []byte) (conv uint32, ok bool) {
	if len(buf) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[0:4]), true
}
