package protocol

import (
    "bytes"
    "testing"
)

func TestIntentRoundtrip(t *testing.T) {
    codes := []Intent{
        IntentPing, IntentPong, IntentHandshakeInit, IntentHandshakeAck, IntentClose,
        IntentSearch, IntentSearchSuggest, IntentFetchDocument, IntentSearchStream,
        IntentDataRequest, IntentDataPush, IntentDataDelta, IntentDataVerify,
        IntentRankingUpdate, IntentRankingRequest,
        IntentCacheQuery, IntentCacheInvalidate,
        IntentError, IntentSuccess,
    }
    for _, in := range codes {
        out, ok := IntentFromByte(in.Byte())
        if !ok || out != in {
            t.Fatalf("intent 0x%02x did not roundtrip: got 0x%02x ok=%v", in.Byte(), out.Byte(), ok)
        }
    }
}

func TestIntentUndefinedBytes(t *testing.T) {
    defined := make(map[byte]bool)
    for b := 0; b < 256; b++ {
        if _, ok := IntentFromByte(byte(b)); ok {
            defined[byte(b)] = true
        }
    }
    if len(defined) != 19 {
        t.Fatalf("want 19 defined intents, got %d", len(defined))
    }
    for _, b := range []byte{0x00, 0x06, 0x14, 0x2F, 0x42, 0xF2, 0xFF} {
        if _, ok := IntentFromByte(b); ok {
            t.Fatalf("byte 0x%02x should not map to an intent", b)
        }
    }
}

func TestCompressionEncryptionCodes(t *testing.T) {
    if CompressionLz4.Byte() != 0x01 {
        t.Fatalf("lz4 code = 0x%02x", CompressionLz4.Byte())
    }
    if c, ok := CompressionFromByte(0x02); !ok || c != CompressionZstd {
        t.Fatalf("zstd decode failed: %v %v", c, ok)
    }
    if _, ok := CompressionFromByte(0x04); ok {
        t.Fatalf("compression 0x04 should be undefined")
    }
    if e, ok := EncryptionFromByte(0x02); !ok || e != EncryptionAes256 {
        t.Fatalf("aes256 decode failed: %v %v", e, ok)
    }
    if _, ok := EncryptionFromByte(0x03); ok {
        t.Fatalf("encryption 0x03 should be undefined")
    }
}

func TestPriorityOrdering(t *testing.T) {
    if !(PriorityCritical > PriorityHigh && PriorityHigh > PriorityNormal &&
        PriorityNormal > PriorityLow && PriorityLow > PriorityLowest) {
        t.Fatalf("priority reference points out of order")
    }
    // every raw byte is a legal priority
    _ = Priority(17)
}

func TestSessionIDRandom(t *testing.T) {
    a, err := NewSessionID(nil)
    if err != nil {
        t.Fatalf("new: %v", err)
    }
    b, err := NewSessionID(nil)
    if err != nil {
        t.Fatalf("new: %v", err)
    }
    if a == b {
        t.Fatalf("two random session ids collided: %s", a)
    }
}

func TestSessionIDDeterministic(t *testing.T) {
    src := bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15})
    id, err := NewSessionID(src)
    if err != nil {
        t.Fatalf("new: %v", err)
    }
    if id.String() != "000102030405060708090a0b0c0d0e0f" {
        t.Fatalf("hex display mismatch: %s", id)
    }
    back, ok := SessionIDFromBytes(id[:])
    if !ok || back != id {
        t.Fatalf("from-bytes reconstruction failed")
    }
    if _, ok := SessionIDFromBytes([]byte{1, 2, 3}); ok {
        t.Fatalf("short byte slice should be rejected")
    }
}

func TestSessionIDUUID(t *testing.T) {
    id, err := NewSessionID(nil)
    if err != nil {
        t.Fatalf("new: %v", err)
    }
    u := id.UUID()
    if !bytes.Equal(u[:], id[:]) {
        t.Fatalf("uuid view changed the bytes")
    }
}
