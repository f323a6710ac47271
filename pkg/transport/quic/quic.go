// Package quic carries length-prefixed packet frames over a single
// bidirectional QUIC stream per connection. TLS uses an ephemeral
// self-signed certificate; peer identity is verified by the protocol
// handshake, not by the certificate chain.
package quic

import (
    "bufio"
    "context"
    "crypto/rand"
    "crypto/rsa"
    "crypto/tls"
    "crypto/x509"
    "errors"
    "math/big"
    "net"
    "sync"
    "time"

    quicgo "github.com/quic-go/quic-go"

    "github.com/H-strangeone/serv-fdpk/pkg/transport"
)

const alpn = "fdp/1"

type Transport struct {
    tlsConf  *tls.Config
    quicConf *quicgo.Config
}

func New() (*Transport, error) {
    cert, err := selfSignedCert()
    if err != nil {
        return nil, err
    }
    return &Transport{
        tlsConf: &tls.Config{
            Certificates: []tls.Certificate{cert},
            NextProtos:   []string{alpn},
            MinVersion:   tls.VersionTLS13,
        },
        quicConf: &quicgo.Config{},
    }, nil
}

func (t *Transport) Kind() transport.Kind { return transport.KindQUIC }

func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
    l, err := quicgo.ListenAddr(address, t.tlsConf, t.quicConf)
    if err != nil {
        return nil, err
    }
    ql := &listener{l: l, newCh: make(chan *conn, 8), closeCh: make(chan struct{})}
    go ql.acceptLoop(ctx)
    go func() { <-ctx.Done(); _ = ql.Close() }()
    return ql, nil
}

func (t *Transport) Dial(ctx context.Context, address string) (transport.Conn, error) {
    tlsClient := &tls.Config{
        InsecureSkipVerify: true, // identity is proven by the handshake hello
        NextProtos:         []string{alpn},
        MinVersion:         tls.VersionTLS13,
    }
    qc, err := quicgo.DialAddr(ctx, address, tlsClient, t.quicConf)
    if err != nil {
        return nil, err
    }
    st, err := qc.OpenStreamSync(ctx)
    if err != nil {
        _ = qc.CloseWithError(0, "open stream failed")
        return nil, err
    }
    cc := newConn(qc, st)
    go func() { <-ctx.Done(); _ = cc.Close() }()
    return cc, nil
}

type listener struct {
    l       *quicgo.Listener
    newCh   chan *conn
    closeCh chan struct{}
}

func (l *listener) Addr() net.Addr { return l.l.Addr() }

func (l *listener) Accept(ctx context.Context) (transport.Conn, error) {
    select {
    case <-ctx.Done():
        return nil, ctx.Err()
    case <-l.closeCh:
        return nil, errors.New("quic: listener closed")
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

func (l *listener) acceptLoop(ctx context.Context) {
    for {
        qc, err := l.l.Accept(ctx)
        if err != nil {
            return
        }
        go func() {
            // the dialer opens the stream; accepting it may take a round trip
            st, err := qc.AcceptStream(ctx)
            if err != nil {
                _ = qc.CloseWithError(0, "accept stream failed")
                return
            }
            cc := newConn(qc, st)
            select {
            case l.newCh <- cc:
            case <-l.closeCh:
                _ = cc.Close()
            }
        }()
    }
}

type conn struct {
    wmu sync.Mutex
    rmu sync.Mutex
    qc  quicgo.Connection
    st  quicgo.Stream
    br  *bufio.Reader
    bw  *bufio.Writer
}

func newConn(qc quicgo.Connection, st quicgo.Stream) *conn {
    return &conn{qc: qc, st: st, br: bufio.NewReader(st), bw: bufio.NewWriter(st)}
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

func (c *conn) LocalAddr() net.Addr  { return c.qc.LocalAddr() }
func (c *conn) RemoteAddr() net.Addr { return c.qc.RemoteAddr() }

func (c *conn) Close() error {
    _ = c.st.Close()
    return c.qc.CloseWithError(0, "")
}

// selfSignedCert generates a short-lived self-signed certificate for
// local QUIC use.
func selfSignedCert() (tls.Certificate, error) {
    priv, err := rsa.GenerateKey(rand.Reader, 2048)
    if err != nil {
        return tls.Certificate{}, err
    }
    tmpl := x509.Certificate{
        SerialNumber:          big.NewInt(time.Now().UnixNano()),
        NotBefore:             time.Now().Add(-time.Minute),
        NotAfter:              time.Now().Add(24 * time.Hour),
        KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
        ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
        BasicConstraintsValid: true,
        DNSNames:              []string{"localhost"},
    }
    der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
    if err != nil {
        return tls.Certificate{}, err
    }
    return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
