package protocol

import (
    "crypto/rand"
    "encoding/hex"
    "io"

    "github.com/google/uuid"
)

// Version is the single wire version this codec speaks. Decode rejects
// anything else; negotiation of future versions belongs to the handshake.
const Version uint8 = 1

// Intent is the semantic operation code carried by a packet. One byte on
// the wire; codes are grouped by range (control, search, data sync,
// ranking, cache, status).
type Intent uint8

const (
    // Control
    IntentPing          Intent = 0x01
    IntentPong          Intent = 0x02
    IntentHandshakeInit Intent = 0x03
    IntentHandshakeAck  Intent = 0x04
    IntentClose         Intent = 0x05

    // Search
    IntentSearch        Intent = 0x10
    IntentSearchSuggest Intent = 0x11
    IntentFetchDocument Intent = 0x12
    IntentSearchStream  Intent = 0x13

    // Data sync
    IntentDataRequest Intent = 0x20
    IntentDataPush    Intent = 0x21
    IntentDataDelta   Intent = 0x22
    IntentDataVerify  Intent = 0x23

    // Ranking
    IntentRankingUpdate  Intent = 0x30
    IntentRankingRequest Intent = 0x31

    // Edge cache
    IntentCacheQuery      Intent = 0x40
    IntentCacheInvalidate Intent = 0x41

    // Status
    IntentError   Intent = 0xF0
    IntentSuccess Intent = 0xF1
)

// IntentFromByte maps a wire byte back to an Intent. The mapping is a
// partial bijection: undefined bytes return ok=false, never a made-up
// value.
func IntentFromByte(b byte) (Intent, bool) {
    switch Intent(b) {
    case IntentPing, IntentPong, IntentHandshakeInit, IntentHandshakeAck, IntentClose,
        IntentSearch, IntentSearchSuggest, IntentFetchDocument, IntentSearchStream,
        IntentDataRequest, IntentDataPush, IntentDataDelta, IntentDataVerify,
        IntentRankingUpdate, IntentRankingRequest,
        IntentCacheQuery, IntentCacheInvalidate,
        IntentError, IntentSuccess:
        return Intent(b), true
    }
    return 0, false
}

// Byte returns the wire code.
func (i Intent) Byte() byte { return byte(i) }

func (i Intent) String() string {
    switch i {
    case IntentPing:
        return "ping"
    case IntentPong:
        return "pong"
    case IntentHandshakeInit:
        return "handshake-init"
    case IntentHandshakeAck:
        return "handshake-ack"
    case IntentClose:
        return "close"
    case IntentSearch:
        return "search"
    case IntentSearchSuggest:
        return "search-suggest"
    case IntentFetchDocument:
        return "fetch-document"
    case IntentSearchStream:
        return "search-stream"
    case IntentDataRequest:
        return "data-request"
    case IntentDataPush:
        return "data-push"
    case IntentDataDelta:
        return "data-delta"
    case IntentDataVerify:
        return "data-verify"
    case IntentRankingUpdate:
        return "ranking-update"
    case IntentRankingRequest:
        return "ranking-request"
    case IntentCacheQuery:
        return "cache-query"
    case IntentCacheInvalidate:
        return "cache-invalidate"
    case IntentError:
        return "error"
    case IntentSuccess:
        return "success"
    default:
        return "unknown"
    }
}

// Compression is a declared payload compression preference. The codec
// records it in the flag byte; it never runs the transform itself.
type Compression uint8

const (
    CompressionNone   Compression = 0x00
    CompressionLz4    Compression = 0x01
    CompressionZstd   Compression = 0x02
    CompressionBrotli Compression = 0x03
)

// CompressionFromByte decodes a compression code. Only 4 of the 8
// representable flag patterns are defined; callers that need a fallback
// use Flags.Compression instead.
func CompressionFromByte(b byte) (Compression, bool) {
    switch Compression(b) {
    case CompressionNone, CompressionLz4, CompressionZstd, CompressionBrotli:
        return Compression(b), true
    }
    return 0, false
}

func (c Compression) Byte() byte { return byte(c) }

func (c Compression) String() string {
    switch c {
    case CompressionNone:
        return "none"
    case CompressionLz4:
        return "lz4"
    case CompressionZstd:
        return "zstd"
    case CompressionBrotli:
        return "brotli"
    default:
        return "unknown"
    }
}

// EncryptionLevel is a declared payload encryption preference, two bits
// on the wire.
type EncryptionLevel uint8

const (
    EncryptionNone     EncryptionLevel = 0x00
    EncryptionChaCha20 EncryptionLevel = 0x01
    EncryptionAes256   EncryptionLevel = 0x02
)

// EncryptionFromByte decodes an encryption code; the fourth 2-bit
// pattern is undefined and returns ok=false.
func EncryptionFromByte(b byte) (EncryptionLevel, bool) {
    switch EncryptionLevel(b) {
    case EncryptionNone, EncryptionChaCha20, EncryptionAes256:
        return EncryptionLevel(b), true
    }
    return 0, false
}

func (e EncryptionLevel) Byte() byte { return byte(e) }

func (e EncryptionLevel) String() string {
    switch e {
    case EncryptionNone:
        return "none"
    case EncryptionChaCha20:
        return "chacha20"
    case EncryptionAes256:
        return "aes256"
    default:
        return "unknown"
    }
}

// Priority orders packets for an external scheduler. All 256 values are
// legal; the named points are reference levels, comparison is on the raw
// byte.
type Priority uint8

const (
    PriorityLowest   Priority = 0
    PriorityLow      Priority = 64
    PriorityNormal   Priority = 128
    PriorityHigh     Priority = 192
    PriorityCritical Priority = 255
)

// SessionID scopes a logical connection across packets. 128 opaque bits;
// equality is byte equality.
type SessionID [16]byte

// NewSessionID draws a session id from r, or from crypto/rand when r is
// nil. Tests pass a deterministic reader; production uses the default.
func NewSessionID(r io.Reader) (id SessionID, err error) {
    if r == nil {
        r = rand.Reader
    }
    _, err = io.ReadFull(r, id[:])
    return
}

// SessionIDFromBytes reconstructs an id from 16 stored bytes.
func SessionIDFromBytes(b []byte) (SessionID, bool) {
    var id SessionID
    if len(b) != len(id) {
        return id, false
    }
    copy(id[:], b)
    return id, true
}

// UUID views the id as a UUID for logs and external tooling.
func (id SessionID) UUID() uuid.UUID { return uuid.UUID(id) }

// String renders the id as 32 lowercase hex digits.
func (id SessionID) String() string { return hex.EncodeToString(id[:]) }
