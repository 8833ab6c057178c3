package kcp

import (
	"bytes"
	"testing"
)

func TestSegmentEncodeDecodeRoundtrip(t *testing.T) {
	cases := []Segment{
		{Conv: 1, Cmd: CmdPush, Frg: 3, Wnd: 128, Ts: 1000, Sn: 5, Una: 2, Data: []byte("hello")},
		{Conv: 0xdeadbeef, Cmd: CmdAck, Wnd: 32, Ts: 9999, Sn: 0xffffffff, Una: 0, Data: nil},
		{Conv: 42, Cmd: CmdWask},
		{Conv: 42, Cmd: CmdWins, Wnd: 1},
	}

	for _, seg := range cases {
		buf := seg.Encode(nil)
		if len(buf) != seg.Len() {
			t.Fatalf("encoded length %d, want %d", len(buf), seg.Len())
		}
		got, n, err := DecodeSegment(buf)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if n != len(buf) {
			t.Fatalf("consumed %d, want %d", n, len(buf))
		}
		if got.Conv != seg.Conv || got.Cmd != seg.Cmd || got.Frg != seg.Frg ||
			got.Wnd != seg.Wnd || got.Ts != seg.Ts || got.Sn != seg.Sn || got.Una != seg.Una {
			t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, seg)
		}
		if !bytes.Equal(got.Data, seg.Data) {
			t.Fatalf("data mismatch: got %q, want %q", got.Data, seg.Data)
		}
	}
}

func TestSegmentEncodeAppendsToExisting(t *testing.T) {
	a := Segment{Conv: 1, Cmd: CmdPush, Data: []byte("a")}
	b := Segment{Conv: 2, Cmd: CmdAck, Data: []byte("bb")}

	buf := a.Encode(nil)
	buf = b.Encode(buf)

	first, n, err := DecodeSegment(buf)
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if first.Conv != 1 {
		t.Fatalf("first.Conv = %d, want 1", first.Conv)
	}
	second, _, err := DecodeSegment(buf[n:])
	if err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if second.Conv != 2 {
		t.Fatalf("second.Conv = %d, want 2", second.Conv)
	}
}

func TestDecodeSegmentShortBuffer(t *testing.T) {
	_, _, err := DecodeSegment(make([]byte, Overhead-1))
	if err != errShortBuffer {
		t.Fatalf("err = %v, want errShortBuffer", err)
	}
}

func TestDecodeSegmentTruncatedPayload(t *testing.T) {
	seg := Segment{Conv: 1, Cmd: CmdPush, Data: []byte("hello world")}
	buf := seg.Encode(nil)
	_, _, err := DecodeSegment(buf[:len(buf)-1])
	if err != errTruncatedPayload {
		t.Fatalf("err = %v, want errTruncatedPayload", err)
	}
}

func TestCommandValidAndString(t *testing.T) {
	valid := []Command{CmdPush, CmdAck, CmdWask, CmdWins}
	for _, c := range valid {
		if !c.valid() {
			t.Errorf("Command(%d).valid() = false, want true", c)
		}
		if c.String() == "CMD?" {
			t.Errorf("Command(%d).String() = %q, want a real name", c, c.String())
		}
	}
	if Command(0).valid() {
		t.Errorf("Command(0).valid() = true, want false")
	}
}

func TestPeekConv(t *testing.T) {
	seg := Segment{Conv: 0x01020304, Cmd: CmdPush}
	buf := seg.Encode(nil)
	conv, ok := PeekConv(buf)
	if !ok || conv != 0x01020304 {
		t.Fatalf("PeekConv = (%#x, %v), want (0x01020304, true)", conv, ok)
	}
	if _, ok := PeekConv(buf[:3]); ok {
		t.Fatalf("PeekConv on short buffer reported ok")
	}
}
