package protocol

import (
    "bytes"
    "testing"

    "github.com/H-strangeone/serv-fdpk/pkg/protocol/codec"
)

func TestEncodeDecodeBodyJSON(t *testing.T) {
    reg := codec.NewRegistry()
    in := SearchQuery{Terms: "fast decentralized search", Limit: 10}
    b, err := EncodeBody(reg, FormatJSON, in)
    if err != nil {
        t.Fatalf("encode: %v", err)
    }
    if b[0] != byte(FormatJSON) {
        t.Fatalf("format prefix = %d", b[0])
    }
    var out SearchQuery
    f, err := DecodeBody(reg, b, &out)
    if err != nil {
        t.Fatalf("decode: %v", err)
    }
    if f != FormatJSON || out.Terms != in.Terms || out.Limit != in.Limit {
        t.Fatalf("roundtrip mismatch: %v %#v", f, out)
    }
}

func TestEncodeDecodeBodyCBOR(t *testing.T) {
    reg := codec.NewRegistry()
    in := DataChunk{Key: "doc/42", Data: bytes.Repeat([]byte{0xAA}, 16)}
    b, err := EncodeBody(reg, FormatCBOR, in)
    if err != nil {
        t.Fatalf("encode: %v", err)
    }
    var out DataChunk
    if _, err := DecodeBody(reg, b, &out); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if out.Key != in.Key || !bytes.Equal(out.Data, in.Data) {
        t.Fatalf("roundtrip mismatch: %#v", out)
    }
}

func TestDecodeBodyRejectsGarbage(t *testing.T) {
    reg := codec.NewRegistry()
    var out SearchQuery
    if _, err := DecodeBody(reg, nil, &out); err == nil {
        t.Fatalf("empty payload should fail")
    }
    if _, err := DecodeBody(reg, []byte{0xEE, 0x01}, &out); err == nil {
        t.Fatalf("unknown format byte should fail")
    }
}

func TestBodyInsidePacket(t *testing.T) {
    reg := codec.NewRegistry()
    id, _ := NewSessionID(nil)
    body, err := EncodeBody(reg, FormatCBOR, CacheKey{Key: "hot/item"})
    if err != nil {
        t.Fatalf("encode body: %v", err)
    }
    p, err := New(id, IntentCacheQuery, body)
    if err != nil {
        t.Fatalf("new: %v", err)
    }
    d, err := Decode(p.Encode())
    if err != nil {
        t.Fatalf("decode packet: %v", err)
    }
    var key CacheKey
    if _, err := DecodeBody(reg, d.Payload, &key); err != nil {
        t.Fatalf("decode body: %v", err)
    }
    if key.Key != "hot/item" {
        t.Fatalf("key = %q", key.Key)
    }
}
