// Package transport moves encoded packets between nodes. Implementations
// deliver whole frames; they never interpret header fields beyond the
// length prefix used for stream framing. Ordering, retransmission, and
// backpressure live here and in the session layer, not in the codec.
package transport

import (
    "context"
    "net"
)

// Kind identifies a link type for config wiring and policy decisions.
type Kind int

const (
    KindUnknown Kind = iota
    KindTCP
    KindQUIC
    KindMem
)

func (k Kind) String() string {
    switch k {
    case KindTCP:
        return "tcp"
    case KindQUIC:
        return "quic"
    case KindMem:
        return "mem"
    default:
        return "unknown"
    }
}

// KindFromString parses a config transport kind.
func KindFromString(s string) Kind {
    switch s {
    case "tcp":
        return KindTCP
    case "quic":
        return KindQUIC
    case "mem":
        return KindMem
    default:
        return KindUnknown
    }
}

// Conn is one bidirectional packet channel. Send writes one encoded
// packet as a frame; Recv returns the next whole frame. Exactly one
// reader and one writer goroutine are expected.
type Conn interface {
    Send(frame []byte) error
    Recv() ([]byte, error)
    LocalAddr() net.Addr
    RemoteAddr() net.Addr
    Close() error
}

// Listener accepts inbound connections.
type Listener interface {
    // Accept blocks until an inbound conn is available or ctx is done.
    Accept(ctx context.Context) (Conn, error)
    Addr() net.Addr
    Close() error
}

// Transport provides dialing and listening for one link kind.
type Transport interface {
    Kind() Kind
    Listen(ctx context.Context, address string) (Listener, error)
    Dial(ctx context.Context, address string) (Conn, error)
}
