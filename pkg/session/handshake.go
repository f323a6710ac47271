package session

import (
    "errors"
    "fmt"

    "github.com/H-strangeone/serv-fdpk/pkg/identity"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol/codec"
)

// Handshake flow: the dialer opens a session, sends HandshakeInit with a
// HandshakeHello body (node name, public key, ed25519 signature over the
// raw session id, preferred compression/encryption); the acceptor
// verifies the signature, adopts the session, and replies HandshakeAck
// with the negotiated preferences.

// ErrHandshakeRejected means the acceptor refused the hello.
var ErrHandshakeRejected = errors.New("handshake rejected")

// Hello builds the HandshakeInit packet for a freshly opened session and
// moves it to the handshaking state.
func Hello(s *Session, ident *identity.Identity, reg *codec.Registry) (*protocol.Packet, error) {
    id := s.ID()
    body, err := protocol.EncodeBody(reg, protocol.FormatCBOR, protocol.HandshakeHello{
        Node:        ident.Node,
        PublicKey:   ident.Public,
        Signature:   ident.Sign(id[:]),
        Compression: protocol.CompressionLz4.Byte(),
        Encryption:  protocol.EncryptionChaCha20.Byte(),
    })
    if err != nil {
        return nil, fmt.Errorf("encode hello: %w", err)
    }
    p, err := protocol.New(id, protocol.IntentHandshakeInit, body)
    if err != nil {
        return nil, err
    }
    p.Flags.SetAckRequired(true)
    if err := s.Stamp(p); err != nil {
        return nil, err
    }
    s.setState(StateHandshaking)
    return p, nil
}

// AcceptHello verifies an inbound HandshakeInit, adopts the session, and
// returns it with the HandshakeAck reply. A bad signature yields a
// refusal packet and an error; the caller may still send the refusal.
func AcceptHello(m *Manager, ident *identity.Identity, reg *codec.Registry, p *protocol.Packet, peer string) (*Session, *protocol.Packet, error) {
    if p.Intent != protocol.IntentHandshakeInit {
        return nil, nil, fmt.Errorf("unexpected intent %v in handshake", p.Intent)
    }
    var hello protocol.HandshakeHello
    if _, err := protocol.DecodeBody(reg, p.Payload, &hello); err != nil {
        return nil, nil, fmt.Errorf("decode hello: %w", err)
    }
    id := p.Session
    if !identity.Verify(hello.PublicKey, id[:], hello.Signature) {
        refusal, err := ackPacket(ident, reg, id, protocol.HandshakeAccept{
            Accepted: false,
            Node:     ident.Node,
            Reason:   "signature verification failed",
        })
        if err != nil {
            return nil, nil, err
        }
        return nil, refusal, ErrHandshakeRejected
    }

    s := m.Adopt(id, peer)
    comp, enc := negotiate(hello.Compression, hello.Encryption)
    s.setNegotiated(comp, enc)
    s.setState(StateEstablished)

    ack, err := ackPacket(ident, reg, id, protocol.HandshakeAccept{
        Accepted:    true,
        Node:        ident.Node,
        Compression: comp.Byte(),
        Encryption:  enc.Byte(),
    })
    if err != nil {
        return nil, nil, err
    }
    return s, ack, nil
}

// ConfirmAck finishes the dialer side: parse the HandshakeAck, record the
// negotiated preferences, and mark the session established.
func ConfirmAck(s *Session, reg *codec.Registry, p *protocol.Packet) error {
    if p.Intent != protocol.IntentHandshakeAck {
        return fmt.Errorf("unexpected intent %v in handshake ack", p.Intent)
    }
    if err := s.Accept(p); err != nil {
        return err
    }
    var accept protocol.HandshakeAccept
    if _, err := protocol.DecodeBody(reg, p.Payload, &accept); err != nil {
        return fmt.Errorf("decode handshake ack: %w", err)
    }
    if !accept.Accepted {
        s.Close()
        return fmt.Errorf("%w: %s", ErrHandshakeRejected, accept.Reason)
    }
    comp, enc := negotiate(accept.Compression, accept.Encryption)
    s.setNegotiated(comp, enc)
    s.setState(StateEstablished)
    return nil
}

func ackPacket(ident *identity.Identity, reg *codec.Registry, id protocol.SessionID, body protocol.HandshakeAccept) (*protocol.Packet, error) {
    b, err := protocol.EncodeBody(reg, protocol.FormatCBOR, body)
    if err != nil {
        return nil, fmt.Errorf("encode handshake ack: %w", err)
    }
    return protocol.New(id, protocol.IntentHandshakeAck, b)
}

// negotiate clamps a declared preference to what this node understands,
// falling back to none for unknown codes.
func negotiate(comp, enc uint8) (protocol.Compression, protocol.EncryptionLevel) {
    c, ok := protocol.CompressionFromByte(comp)
    if !ok {
        c = protocol.CompressionNone
    }
    e, ok := protocol.EncryptionFromByte(enc)
    if !ok {
        e = protocol.EncryptionNone
    }
    return c, e
}
