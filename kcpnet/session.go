// Package kcpnet wraps a [kcp.ControlBlock] in a socket-shaped API over a
// [net.PacketConn]: one background goroutine reads datagrams into Input and
// another drives Update (and so Flush) on a fixed tick, while Read and Write present the
// blocking, deadline-aware semantics of [net.Conn]. The kcp package itself
// stays free of goroutines, timers, and net.Conn; this package is the
// convenience layer built on top of it.
package kcpnet

import (
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/arqcore/kcp/internal"
	"github.com/arqcore/kcp/kcp"
)

var (
	errDeadlineExceeded = os.ErrDeadlineExceeded
	errClosed           = net.ErrClosed
)

// Session is one KCP conversation running over pc, addressed to remote.
// Its zero value is not usable; construct with [Dial] or [NewSession].
type Session struct {
	mu      sync.Mutex
	cb      *kcp.ControlBlock
	pc      net.PacketConn
	remote  net.Addr
	closed  bool
	closeCh chan struct{}
	closeWG sync.WaitGroup

	rdead time.Time
	wdead time.Time

	tickInterval time.Duration

	// rxRing stages bytes drained whole from the control block's receive
	// queue (one KCP message at a time) so Read can hand them out in
	// caller-sized pieces, the way a byte-stream net.Conn does.
	rxRing  internal.Ring
	rxStage []byte
}

// Config tunes a Session's underlying ControlBlock and tick cadence.
type Config struct {
	MTU           int
	SndWnd, RcvWnd int
	Nodelay       int
	IntervalMS    int
	Resend        int
	NoCwnd        bool
	Stream        bool
	TickInterval  time.Duration // how often the background goroutine drives Update; default 10ms.
}

// DefaultConfig matches upstream KCP's "turbo" preset: nodelay, a 10ms
// internal interval, fast resend after 2 duplicate acks, congestion window
// throttling disabled.
func DefaultConfig() Config {
	return Config{
		MTU: kcp.DefaultMTU, SndWnd: kcp.DefaultSndWnd, RcvWnd: kcp.DefaultRcvWnd,
		Nodelay: 1, IntervalMS: 10, Resend: 2, NoCwnd: true,
		TickInterval: 10 * time.Millisecond,
	}
}

// NewSession wraps an already-established packet conn/remote pair with a
// fresh ControlBlock for conv, and starts the background read/tick loop.
func NewSession(pc net.PacketConn, remote net.Addr, conv uint32, cfg Config) *Session {
	cb := kcp.NewControlBlock(conv)
	if cfg.MTU > 0 {
		cb.SetMTU(cfg.MTU)
	}
	cb.SetWndSize(cfg.SndWnd, cfg.RcvWnd)
	cb.SetNodelay(cfg.Nodelay, cfg.IntervalMS, cfg.Resend, cfg.NoCwnd)
	cb.SetStream(cfg.Stream)

	s := &Session{
		cb:           cb,
		pc:           pc,
		remote:       remote,
		closeCh:      make(chan struct{}),
		tickInterval: cfg.TickInterval,
	}
	if s.tickInterval <= 0 {
		s.tickInterval = 10 * time.Millisecond
	}
	ringSize := cfg.MTU
	if ringSize <= 0 {
		ringSize = kcp.DefaultMTU
	}
	s.rxRing.Buf = make([]byte, ringSize*2)
	cb.SetOutput(s.output)

	s.closeWG.Add(2)
	go s.readLoop()
	go s.tickLoop()
	return s
}

// Dial opens a UDP socket to addr and wraps it in a Session using conv.
func Dial(network, addr string, conv uint32, cfg Config) (*Session, error) {
	pc, err := net.ListenPacket(network, ":0")
	if err != nil {
		return nil, err
	}
	raddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		pc.Close()
		return nil, err
	}
	return NewSession(pc, raddr, conv, cfg), nil
}

func (s *Session) output(buf []byte) error {
	_, err := s.pc.WriteTo(buf, s.remote)
	return err
}

func (s *Session) readLoop() {
	defer s.closeWG.Done()
	buf := make([]byte, 65535)
	for {
		select {
		case <-s.closeCh:
			return
		default:
		}
		s.pc.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, _, err := s.pc.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-s.closeCh:
				return
			default:
				continue
			}
		}
		s.mu.Lock()
		s.cb.Input(buf[:n])
		s.mu.Unlock()
	}
}

func (s *Session) tickLoop() {
	defer s.closeWG.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-s.closeCh:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			s.cb.Update(uint32(now.Sub(start).Milliseconds()))
			s.mu.Unlock()
		}
	}
}

// Write enqueues b as one or more KCP fragments and returns once they're all
// accepted into the send queue; actual transmission happens on the next
// tick. Write does not wait for send-window space: the send queue is
// unbounded, so Send accepts b whenever it fits the fragment limit. Write
// only loops, with backoff, while Send rejects b, and stops when the session
// closes or the write deadline passes.
func (s *Session) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	backoff := internal.NewBackoff(internal.BackoffTCPConn)
	for {
		if s.isClosed() {
			return 0, errClosed
		}
		if s.deadlineExceeded(&s.wdead) {
			return 0, errDeadlineExceeded
		}
		s.mu.Lock()
		err := s.cb.Send(b)
		s.mu.Unlock()
		if err == nil {
			return len(b), nil
		}
		backoff.Miss()
	}
}

// Read copies up to len(b) bytes into b, blocking until at least one byte is
// available, the session closes, or the read deadline passes. Read presents
// byte-stream semantics like [net.Conn.Read]: a message larger than b is
// handed out across several Read calls, staged in rxRing between them, and a
// caller doesn't need to size b to the largest message the peer might send.
func (s *Session) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	backoff := internal.NewBackoff(internal.BackoffTCPConn)
	for {
		s.mu.Lock()
		if s.rxRing.Buffered() > 0 {
			n, _ := s.rxRing.Read(b)
			s.mu.Unlock()
			return n, nil
		}
		fillErr := s.fillRxRing()
		s.mu.Unlock()
		if fillErr == nil {
			continue
		}
		if s.isClosed() {
			return 0, errClosed
		}
		if s.deadlineExceeded(&s.rdead) {
			return 0, errDeadlineExceeded
		}
		backoff.Miss()
		runtime.Gosched()
	}
}

// fillRxRing drains the next complete message from the control block into
// rxRing, growing both the decode-staging slice and the ring itself if the
// message outgrows what's currently allocated. Caller holds s.mu and must
// only call this while rxRing is empty.
func (s *Session) fillRxRing() error {
	size, err := s.cb.Peeksize()
	if err != nil {
		return err
	}
	if size > len(s.rxStage) {
		s.rxStage = make([]byte, size)
	}
	n, err := s.cb.Recv(s.rxStage)
	if err != nil {
		return err
	}
	if n > s.rxRing.Size() {
		s.rxRing.Buf = make([]byte, n)
	}
	s.rxRing.Reset()
	_, err = s.rxRing.Write(s.rxStage[:n])
	return err
}

// Close stops the background loops and releases the ControlBlock. It does
// not close the underlying PacketConn, which the caller may own jointly
// with other sessions.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.closeCh)
	s.closeWG.Wait()

	s.mu.Lock()
	s.cb.Release()
	s.mu.Unlock()
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) LocalAddr() net.Addr  { return s.pc.LocalAddr() }
func (s *Session) RemoteAddr() net.Addr { return s.remote }

func (s *Session) SetDeadline(t time.Time) error {
	if err := s.SetReadDeadline(t); err != nil {
		return err
	}
	return s.SetWriteDeadline(t)
}

func (s *Session) SetReadDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rdead = t
	return nil
}

func (s *Session) SetWriteDeadline(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wdead = t
	return nil
}

func (s *Session) deadlineExceeded(deadline *time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !deadline.IsZero() && time.Since(*deadline) > 0
}
