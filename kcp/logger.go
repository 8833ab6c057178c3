package kcp

import (
	"context"
	"log/slog"

	"github.com/arqcore/kcp/internal"
)

// logger is an embeddable logging helper embedded in [ControlBlock],
// mirroring the `logger` embed used throughout the
// teacher's tcp package (tcp.ControlBlock, tcp.Conn, tcp.Listener): a bare
// *slog.Logger plus level-tagged helpers so call sites read as
// `cb.trace(...)`/`cb.debug(...)` instead of threading a logger through
// every method signature.
type logger struct {
	log  *slog.Logger
	mask LogMask
}

func (l *logger) enabled(lvl slog.Level) bool {
	return internal.HeapAllocDebugging || (l.log != nil && l.log.Handler().Enabled(context.Background(), lvl))
}

func (l *logger) logattrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, lvl, msg, attrs...)
}

func (l *logger) debug(msg string, attrs ...slog.Attr) {
	l.logattrs(slog.LevelDebug, msg, attrs...)
}

func (l *logger) trace(bit LogMask, msg string, attrs ...slog.Attr) {
	if l.mask != 0 && !l.mask.has(bit) {
		return
	}
	l.logattrs(internal.LevelTrace, msg, attrs...)
}

func (l *logger) logerr(msg string, attrs ...slog.Attr) {
	l.logattrs(slog.LevelError, msg, attrs...)
}

func segAttrs(seg *Segment) []slog.Attr {
	return []slog.Attr{
		slog.Uint64("seg.sn", uint64(seg.Sn)),
		slog.Uint64("seg.una", uint64(seg.Una)),
		slog.String("seg.cmd", seg.Cmd.String()),
		slog.Uint64("seg.frg", uint64(seg.Frg)),
		slog.Uint64("seg.len", uint64(len(seg.Data))),
	}
}
