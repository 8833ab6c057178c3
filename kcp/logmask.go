package kcp

// LogMask selects which trace call sites actually format and emit attributes
// in a [ControlBlock]'s log output, matching the upstream log-mask bit flags
// from §6. Tracing is otherwise only gated by the logger's configured
// [log/slog.Level]; LogMask lets a caller further narrow a Debug/Trace level
// logger to just the subsystems they're chasing.
type LogMask uint32

const (
	LogOutput   LogMask = 1 << iota // any call to the output callback
	LogInput                        // any call to Input
	LogSend                         // calls to Send
	LogRecv                         // calls to Recv
	LogInData                       // PUSH segments accepted on input
	LogInAck                        // ACK segments accepted on input
	LogInProbe                      // WASK segments accepted on input
	LogInWins                       // WINS segments accepted on input
	LogOutData                      // PUSH segments emitted by flush
	LogOutAck                       // ACK segments emitted by flush
	LogOutProbe                     // WASK segments emitted by flush
	LogOutWins                      // WINS segments emitted by flush
)

// LogMaskAll enables every traced subsystem.
const LogMaskAll = LogOutput | LogInput | LogSend | LogRecv |
	LogInData | LogInAck | LogInProbe | LogInWins |
	LogOutData | LogOutAck | LogOutProbe | LogOutWins

func (m LogMask) has(bit LogMask) bool { return m&bit != 0 }
