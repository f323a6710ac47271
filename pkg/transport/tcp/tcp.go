// Package tcp is a stream transport carrying length-prefixed packet
// frames over plain TCP.
package tcp

import (
    "bufio"
    "context"
    "errors"
    "net"
    "sync"

    "github.com/H-strangeone/serv-fdpk/pkg/transport"
)

type Transport struct{}

func New() *Transport { return &Transport{} }

func (t *Transport) Kind() transport.Kind { return transport.KindTCP }

func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
    l, err := net.Listen("tcp", address)
    if err != nil {
        return nil, err
    }
    tl := &listener{l: l, newCh: make(chan *conn, 8), closeCh: make(chan struct{})}
    go tl.acceptLoop()
    go func() { <-ctx.Done(); _ = tl.Close() }()
    return tl, nil
}

func (t *Transport) Dial(ctx context.Context, address string) (transport.Conn, error) {
    d := &net.Dialer{}
    c, err := d.DialContext(ctx, "tcp", address)
    if err != nil {
        return nil, err
    }
    cc := newConn(c)
    go func() { <-ctx.Done(); _ = cc.Close() }()
    return cc, nil
}

type listener struct {
    l       net.Listener
    newCh   chan *conn
    closeCh chan struct{}
}

func (l *listener) Addr() net.Addr { return l.l.Addr() }

func (l *listener) Accept(ctx context.Context) (transport.Conn, error) {
    select {
    case <-ctx.Done():
        return nil, ctx.Err()
    case <-l.closeCh:
        return nil, errors.New("tcp listener closed")
    case c := <-l.newCh:
        return c, nil
    }
}

func (l *listener) Close() error {
    select {
    case <-l.closeCh:
    default:
        close(l.closeCh)
    }
    return l.l.Close()
}

func (l *listener) acceptLoop() {
    for {
        c, err := l.l.Accept()
        if err != nil {
            return
        }
        cc := newConn(c)
        select {
        case l.newCh <- cc:
        default:
            _ = cc.Close()
        }
    }
}

type conn struct {
    wmu sync.Mutex
    rmu sync.Mutex
    c   net.Conn
    br  *bufio.Reader
    bw  *bufio.Writer
}

func newConn(c net.Conn) *conn {
    return &conn{c: c, br: bufio.NewReader(c), bw: bufio.NewWriter(c)}
}

func (c *conn) Send(frame []byte) error {
    c.wmu.Lock()
    defer c.wmu.Unlock()
    return transport.WriteFrame(c.bw, frame)
}

func (c *conn) Recv() ([]byte, error) {
    c.rmu.Lock()
    defer c.rmu.Unlock()
    return transport.ReadFrame(c.br)
}

func (c *conn) LocalAddr() net.Addr  { return c.c.LocalAddr() }
func (c *conn) RemoteAddr() net.Addr { return c.c.RemoteAddr() }
func (c *conn) Close() error         { return c.c.Close() }
