// fdp-client dials a node, performs the handshake, and sends a Ping.
package main

import (
    "context"
    "flag"
    "fmt"
    "log"
    "time"

    "github.com/H-strangeone/serv-fdpk/pkg/config"
    "github.com/H-strangeone/serv-fdpk/pkg/identity"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol/codec"
    "github.com/H-strangeone/serv-fdpk/pkg/session"
    "github.com/H-strangeone/serv-fdpk/pkg/transport"
    quictransport "github.com/H-strangeone/serv-fdpk/pkg/transport/quic"
    tcptransport "github.com/H-strangeone/serv-fdpk/pkg/transport/tcp"
)

func main() {
    addr := flag.String("addr", "127.0.0.1:7440", "node address")
    kind := flag.String("transport", "tcp", "transport kind: tcp or quic")
    payload := flag.String("payload", "hello fdp", "ping payload")
    timeout := flag.Duration("timeout", 5*time.Second, "dial/response timeout")
    flag.Parse()

    ctx, cancel := context.WithTimeout(context.Background(), *timeout)
    defer cancel()

    mgr := transport.NewManager()
    mgr.Register(tcptransport.New())
    if q, err := quictransport.New(); err == nil {
        mgr.Register(q)
    }

    conn, err := mgr.Dial(ctx, *kind, *addr)
    if err != nil {
        log.Fatalf("dial %s/%s: %v", *kind, *addr, err)
    }
    defer conn.Close()

    reg := codec.NewRegistry()
    ident, err := identity.LoadOrGen("fdp-client", config.IdentityConfig{Alg: "ed25519"})
    if err != nil {
        log.Fatalf("identity: %v", err)
    }

    sessions := session.NewManager(session.Options{})
    s, err := sessions.Open(*addr)
    if err != nil {
        log.Fatalf("open session: %v", err)
    }

    hello, err := session.Hello(s, ident, reg)
    if err != nil {
        log.Fatalf("build hello: %v", err)
    }
    if err := conn.Send(hello.Encode()); err != nil {
        log.Fatalf("send hello: %v", err)
    }
    ackFrame, err := conn.Recv()
    if err != nil {
        log.Fatalf("recv handshake ack: %v", err)
    }
    ack, err := protocol.Decode(ackFrame)
    if err != nil {
        log.Fatalf("decode handshake ack: %v", err)
    }
    if err := session.ConfirmAck(s, reg, ack); err != nil {
        log.Fatalf("handshake: %v", err)
    }
    comp, enc := s.Negotiated()
    fmt.Printf("session %s established (compression=%s encryption=%s)\n", s.ID(), comp, enc)

    ping, err := protocol.New(s.ID(), protocol.IntentPing, []byte(*payload))
    if err != nil {
        log.Fatalf("build ping: %v", err)
    }
    if err := s.Stamp(ping); err != nil {
        log.Fatalf("stamp: %v", err)
    }
    if err := conn.Send(ping.Encode()); err != nil {
        log.Fatalf("send ping: %v", err)
    }
    pongFrame, err := conn.Recv()
    if err != nil {
        log.Fatalf("recv pong: %v", err)
    }
    pong, err := protocol.Decode(pongFrame)
    if err != nil {
        log.Fatalf("decode pong: %v", err)
    }
    if err := s.Accept(pong); err != nil {
        log.Fatalf("accept pong: %v", err)
    }
    fmt.Printf("%s seq=%d payload=%q\n", pong.Intent, pong.Sequence, pong.Payload)
}
