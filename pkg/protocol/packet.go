package protocol

import (
    "crypto/sha256"
    "encoding/binary"
    "time"
)

// Fixed wire layout. All multi-byte integers are big-endian.
//
//  0        Version    u8
//  1  ..16  SessionID  [16]byte
//  17       Intent     u8
//  18       Priority   u8
//  19       Flags      u8
//  20 ..23  Sequence   u32
//  24 ..27  PayloadLen u32
//  28 ..35  Timestamp  u64, ms since epoch
//  36 ..    Payload    PayloadLen bytes
//  last 32  Hash       sha256 over everything before it
const (
    HeaderSize     = 36
    HashSize       = sha256.Size
    MinPacketSize  = HeaderSize + HashSize
    MaxPayloadSize = 10 * 1024 * 1024
    MaxPacketSize  = HeaderSize + MaxPayloadSize + HashSize
)

// Packet is the in-memory form of one wire message. It is a transient
// value: built by a producer, encoded, moved by a transport, decoded and
// handed to a dispatcher.
type Packet struct {
    Version   uint8
    Session   SessionID
    Intent    Intent
    Priority  Priority
    Flags     Flags
    Sequence  uint32
    Timestamp uint64 // ms since epoch
    Payload   []byte
    Hash      [HashSize]byte
}

// New builds a packet with default priority and the declared compression/
// encryption preference. Sequence stays 0 until the session layer assigns
// one; the timestamp is stamped now. An oversized payload is rejected
// here, not deferred to Encode.
func New(session SessionID, intent Intent, payload []byte) (*Packet, error) {
    if len(payload) > MaxPayloadSize {
        return nil, ErrPayloadTooLarge
    }
    var fl Flags
    fl.SetCompression(CompressionLz4)
    fl.SetEncryption(EncryptionChaCha20)
    return &Packet{
        Version:   Version,
        Session:   session,
        Intent:    intent,
        Priority:  PriorityNormal,
        Flags:     fl,
        Timestamp: uint64(time.Now().UnixMilli()),
        Payload:   payload,
    }, nil
}

// putHeader writes the 36-byte header into dst.
func (p *Packet) putHeader(dst []byte) {
    dst[0] = p.Version
    copy(dst[1:17], p.Session[:])
    dst[17] = p.Intent.Byte()
    dst[18] = byte(p.Priority)
    dst[19] = byte(p.Flags)
    binary.BigEndian.PutUint32(dst[20:24], p.Sequence)
    binary.BigEndian.PutUint32(dst[24:28], uint32(len(p.Payload)))
    binary.BigEndian.PutUint64(dst[28:36], p.Timestamp)
}

// digest hashes the header fields in wire order followed by the payload:
// every field except the hash itself.
func (p *Packet) digest() [HashSize]byte {
    var hdr [HeaderSize]byte
    p.putHeader(hdr[:])
    h := sha256.New()
    h.Write(hdr[:])
    h.Write(p.Payload)
    var sum [HashSize]byte
    h.Sum(sum[:0])
    return sum
}

// EncodedSize is the exact length Encode will produce.
func (p *Packet) EncodedSize() int { return HeaderSize + len(p.Payload) + HashSize }

// Encode serializes the packet and stamps its integrity hash, computed
// over the final field values at this moment. Encoding a packet built by
// New cannot fail.
func (p *Packet) Encode() []byte {
    buf := make([]byte, p.EncodedSize())
    p.putHeader(buf)
    copy(buf[HeaderSize:], p.Payload)
    p.Hash = p.digest()
    copy(buf[HeaderSize+len(p.Payload):], p.Hash[:])
    return buf
}

// Verify recomputes the digest from the current field values and compares
// it to the stored hash. Decode calls this internally; callers use it to
// detect in-memory tampering after the fact.
func (p *Packet) Verify() bool { return p.digest() == p.Hash }

// Decode parses and validates one encoded packet. Checks run in a fixed
// order and the first failure wins, so a short buffer is rejected before
// any field is read:
//
//  1. size bounds (ErrTooSmall / ErrTooLarge)
//  2. version byte (UnsupportedVersionError)
//  3. intent byte (InvalidIntentError)
//  4. declared vs actual length (ErrLengthMismatch)
//  5. integrity hash (ErrInvalidHash)
//
// A returned packet has already passed verification.
func Decode(buf []byte) (*Packet, error) {
    if len(buf) < MinPacketSize {
        return nil, ErrTooSmall
    }
    if len(buf) > MaxPacketSize {
        return nil, ErrTooLarge
    }
    if buf[0] != Version {
        return nil, &UnsupportedVersionError{Version: buf[0]}
    }
    intent, ok := IntentFromByte(buf[17])
    if !ok {
        return nil, &InvalidIntentError{Code: buf[17]}
    }
    payloadLen := binary.BigEndian.Uint32(buf[24:28])
    if int(payloadLen) != len(buf)-MinPacketSize {
        return nil, ErrLengthMismatch
    }

    p := &Packet{
        Version:   buf[0],
        Intent:    intent,
        Priority:  Priority(buf[18]),
        Flags:     Flags(buf[19]),
        Sequence:  binary.BigEndian.Uint32(buf[20:24]),
        Timestamp: binary.BigEndian.Uint64(buf[28:36]),
    }
    copy(p.Session[:], buf[1:17])
    if payloadLen > 0 {
        p.Payload = append([]byte(nil), buf[HeaderSize:HeaderSize+int(payloadLen)]...)
    }
    copy(p.Hash[:], buf[HeaderSize+int(payloadLen):])

    if !p.Verify() {
        return nil, ErrInvalidHash
    }
    return p, nil
}
