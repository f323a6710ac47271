package protocol

import (
    "bytes"
    "errors"
    "testing"
)

func mustPacket(t *testing.T, payload []byte) *Packet {
    t.Helper()
    id, err := NewSessionID(nil)
    if err != nil {
        t.Fatalf("session id: %v", err)
    }
    p, err := New(id, IntentDataPush, payload)
    if err != nil {
        t.Fatalf("new packet: %v", err)
    }
    return p
}

func TestNewDefaults(t *testing.T) {
    p := mustPacket(t, []byte("hi"))
    if p.Version != Version {
        t.Fatalf("version = %d", p.Version)
    }
    if p.Priority != PriorityNormal {
        t.Fatalf("priority = %d", p.Priority)
    }
    if p.Sequence != 0 {
        t.Fatalf("sequence should stay 0 until assigned, got %d", p.Sequence)
    }
    if p.Flags.Compression() != CompressionLz4 || p.Flags.Encryption() != EncryptionChaCha20 {
        t.Fatalf("declared preference flags wrong: %08b", p.Flags)
    }
    if p.Timestamp == 0 {
        t.Fatalf("timestamp not stamped")
    }
}

func TestNewPayloadTooLarge(t *testing.T) {
    id, _ := NewSessionID(nil)
    if _, err := New(id, IntentDataPush, make([]byte, MaxPayloadSize+1)); !errors.Is(err, ErrPayloadTooLarge) {
        t.Fatalf("want ErrPayloadTooLarge, got %v", err)
    }
    // exactly at the limit is fine
    if _, err := New(id, IntentDataPush, make([]byte, MaxPayloadSize)); err != nil {
        t.Fatalf("max-size payload rejected: %v", err)
    }
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
    for _, n := range []int{0, 1, 5, 1024, 65536} {
        payload := bytes.Repeat([]byte{0x5A}, n)
        p := mustPacket(t, payload)
        p.Sequence = 42
        p.Priority = PriorityHigh
        p.Flags.SetFragmented(true)
        p.Flags.SetAckRequired(true)

        frame := p.Encode()
        if len(frame) != HeaderSize+n+HashSize {
            t.Fatalf("payload %d: frame len = %d", n, len(frame))
        }

        d, err := Decode(frame)
        if err != nil {
            t.Fatalf("payload %d: decode: %v", n, err)
        }
        if d.Version != p.Version || d.Session != p.Session || d.Intent != p.Intent ||
            d.Priority != p.Priority || d.Flags != p.Flags || d.Sequence != p.Sequence ||
            d.Timestamp != p.Timestamp || !bytes.Equal(d.Payload, p.Payload) || d.Hash != p.Hash {
            t.Fatalf("payload %d: decoded packet differs:\n%#v\n%#v", n, d, p)
        }
        if !d.Verify() {
            t.Fatalf("payload %d: decoded packet fails verification", n)
        }
    }
}

func TestPingScenario(t *testing.T) {
    var zero SessionID
    p, err := New(zero, IntentPing, nil)
    if err != nil {
        t.Fatalf("new: %v", err)
    }
    frame := p.Encode()
    if len(frame) != 68 {
        t.Fatalf("empty ping frame = %d bytes, want 68", len(frame))
    }
    d, err := Decode(frame)
    if err != nil {
        t.Fatalf("decode: %v", err)
    }
    if d.Intent != IntentPing {
        t.Fatalf("intent = %v", d.Intent)
    }
    if len(d.Payload) != 0 {
        t.Fatalf("payload = %d bytes", len(d.Payload))
    }
    if d.Session != zero {
        t.Fatalf("session = %s", d.Session)
    }
    if !d.Verify() {
        t.Fatalf("integrity check failed")
    }
}

func TestTamperSensitivity(t *testing.T) {
    p := mustPacket(t, []byte("integrity matters"))
    frame := p.Encode()
    for i := range frame {
        corrupt := append([]byte(nil), frame...)
        corrupt[i] ^= 0xFF
        _, err := Decode(corrupt)
        if err == nil {
            t.Fatalf("flip at offset %d went undetected", i)
        }
        switch i {
        case 0:
            var uv *UnsupportedVersionError
            if !errors.As(err, &uv) {
                t.Fatalf("offset 0: want UnsupportedVersionError, got %v", err)
            }
        case 17:
            var ii *InvalidIntentError
            if !errors.As(err, &ii) && !errors.Is(err, ErrInvalidHash) {
                t.Fatalf("offset 17: want InvalidIntentError or hash error, got %v", err)
            }
        case 24, 25, 26, 27:
            if !errors.Is(err, ErrLengthMismatch) {
                t.Fatalf("offset %d: want ErrLengthMismatch, got %v", i, err)
            }
        default:
            if !errors.Is(err, ErrInvalidHash) {
                t.Fatalf("offset %d: want ErrInvalidHash, got %v", i, err)
            }
        }
    }
}

func TestDecodeSizeBounds(t *testing.T) {
    if _, err := Decode(nil); !errors.Is(err, ErrTooSmall) {
        t.Fatalf("nil buffer: %v", err)
    }
    if _, err := Decode(make([]byte, MinPacketSize-1)); !errors.Is(err, ErrTooSmall) {
        t.Fatalf("67-byte buffer: %v", err)
    }
    if _, err := Decode(make([]byte, MaxPacketSize+1)); !errors.Is(err, ErrTooLarge) {
        t.Fatalf("oversized buffer: %v", err)
    }
}

func TestDecodeVersionGate(t *testing.T) {
    p := mustPacket(t, []byte("x"))
    frame := p.Encode()
    frame[0] = 9
    _, err := Decode(frame)
    var uv *UnsupportedVersionError
    if !errors.As(err, &uv) {
        t.Fatalf("want UnsupportedVersionError, got %v", err)
    }
    if uv.Version != 9 {
        t.Fatalf("error carries version %d", uv.Version)
    }
}

func TestDecodeUnknownIntent(t *testing.T) {
    p := mustPacket(t, []byte("x"))
    frame := p.Encode()
    frame[17] = 0x7F
    _, err := Decode(frame)
    var ii *InvalidIntentError
    if !errors.As(err, &ii) {
        t.Fatalf("want InvalidIntentError, got %v", err)
    }
    if ii.Code != 0x7F {
        t.Fatalf("error carries code 0x%02x", ii.Code)
    }
}

func TestDecodeLengthMismatch(t *testing.T) {
    p := mustPacket(t, []byte("abcdef"))
    frame := p.Encode()
    // truncate the payload but leave the declared length alone
    _, err := Decode(frame[:len(frame)-3])
    if !errors.Is(err, ErrLengthMismatch) {
        t.Fatalf("want ErrLengthMismatch, got %v", err)
    }
}

func TestVerifyDetectsMutation(t *testing.T) {
    p := mustPacket(t, []byte("original"))
    frame := p.Encode()
    d, err := Decode(frame)
    if err != nil {
        t.Fatalf("decode: %v", err)
    }
    if !d.Verify() {
        t.Fatalf("fresh packet should verify")
    }
    d.Payload[0] ^= 1
    if d.Verify() {
        t.Fatalf("mutated payload should fail verification")
    }
    d.Payload[0] ^= 1
    d.Priority = PriorityCritical
    if d.Verify() {
        t.Fatalf("mutated header field should fail verification")
    }
}
