package cache

import (
    "bytes"
    "context"
    "testing"
    "time"

    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol/codec"
)

func TestSetGetDelete(t *testing.T) {
    c := New(Options{})
    defer c.Close()

    c.Set("k1", []byte("abc"), 0)
    v, ok := c.Get("k1")
    if !ok || string(v) != "abc" {
        t.Fatalf("get: ok=%v v=%q", ok, v)
    }
    // mutating the returned copy must not touch the stored value
    v[0] = 'X'
    v2, _ := c.Get("k1")
    if string(v2) != "abc" {
        t.Fatalf("stored value mutated: %q", v2)
    }
    if !c.Delete("k1") {
        t.Fatalf("delete reported missing key")
    }
    if _, ok := c.Get("k1"); ok {
        t.Fatalf("key survived delete")
    }
}

func TestExpiry(t *testing.T) {
    c := New(Options{})
    defer c.Close()

    c.Set("k", []byte("v"), 10*time.Millisecond)
    if _, ok := c.Get("k"); !ok {
        t.Fatalf("entry expired immediately")
    }
    // move the clock instead of sleeping
    c.nowFn = func() time.Time { return time.Now().Add(time.Second) }
    if _, ok := c.Get("k"); ok {
        t.Fatalf("entry should have expired")
    }
    _, _, expired := c.Stats()
    if expired == 0 {
        t.Fatalf("expiry not counted")
    }
}

func TestSweepRemovesExpired(t *testing.T) {
    c := New(Options{SweepEvery: time.Hour})
    defer c.Close()

    c.Set("a", []byte("1"), time.Millisecond)
    c.Set("b", []byte("2"), 0) // no expiry
    c.nowFn = func() time.Time { return time.Now().Add(time.Minute) }
    c.sweep()
    if c.Len() != 1 {
        t.Fatalf("len after sweep = %d", c.Len())
    }
    if _, ok := c.Get("b"); !ok {
        t.Fatalf("unexpired entry swept")
    }
}

func TestMaxBytesRejectsNewKey(t *testing.T) {
    c := New(Options{MaxBytes: 64})
    defer c.Close()

    if !c.Set("a", bytes.Repeat([]byte{'x'}, 50), 0) {
        t.Fatalf("initial set rejected")
    }
    if c.Set("b", bytes.Repeat([]byte{'y'}, 20), 0) {
        t.Fatalf("set past the byte cap accepted")
    }
    if _, ok := c.Get("b"); ok {
        t.Fatalf("rejected key present")
    }
    if c.Bytes() != 50 || c.Len() != 1 {
        t.Fatalf("bytes=%d len=%d after rejection", c.Bytes(), c.Len())
    }
}

func TestMaxBytesRejectsGrowingReplace(t *testing.T) {
    c := New(Options{MaxBytes: 50})
    defer c.Close()

    c.Set("a", bytes.Repeat([]byte{'x'}, 40), 0)
    if c.Set("a", bytes.Repeat([]byte{'z'}, 60), 0) {
        t.Fatalf("oversized replace accepted")
    }
    v, ok := c.Get("a")
    if !ok || len(v) != 40 {
        t.Fatalf("value after rejected replace: ok=%v len=%d", ok, len(v))
    }
    // shrinking the value frees budget for another key
    if !c.Set("a", []byte("xy"), 0) {
        t.Fatalf("shrinking replace rejected")
    }
    if !c.Set("b", bytes.Repeat([]byte{'y'}, 40), 0) {
        t.Fatalf("set rejected after budget was freed")
    }
}

func TestMaxBytesFreedByDeleteAndExpiry(t *testing.T) {
    c := New(Options{MaxBytes: 32})
    defer c.Close()

    c.Set("a", bytes.Repeat([]byte{'a'}, 30), 0)
    c.Delete("a")
    if c.Bytes() != 0 {
        t.Fatalf("bytes=%d after delete", c.Bytes())
    }
    c.Set("b", bytes.Repeat([]byte{'b'}, 30), time.Millisecond)
    c.nowFn = func() time.Time { return time.Now().Add(time.Minute) }
    c.sweep()
    if c.Bytes() != 0 {
        t.Fatalf("bytes=%d after sweep", c.Bytes())
    }
    if !c.Set("c", bytes.Repeat([]byte{'c'}, 30), 0) {
        t.Fatalf("set rejected after expiry freed the budget")
    }
}

func TestQueryAndInvalidateHandlers(t *testing.T) {
    reg := codec.NewRegistry()
    c := New(Options{})
    defer c.Close()
    c.Set("doc/1", []byte("cached bytes"), 0)

    id, _ := protocol.NewSessionID(nil)
    body, _ := protocol.EncodeBody(reg, protocol.FormatCBOR, protocol.CacheKey{Key: "doc/1"})
    q, _ := protocol.New(id, protocol.IntentCacheQuery, body)

    reply, err := QueryHandler(c, reg)(context.Background(), q)
    if err != nil {
        t.Fatalf("query: %v", err)
    }
    var val protocol.CacheValue
    if _, err := protocol.DecodeBody(reg, reply.Payload, &val); err != nil {
        t.Fatalf("decode value: %v", err)
    }
    if !val.Found || string(val.Data) != "cached bytes" {
        t.Fatalf("cache value = %#v", val)
    }

    inv, _ := protocol.New(id, protocol.IntentCacheInvalidate, body)
    if _, err := InvalidateHandler(c, reg)(context.Background(), inv); err != nil {
        t.Fatalf("invalidate: %v", err)
    }
    reply2, err := QueryHandler(c, reg)(context.Background(), q)
    if err != nil {
        t.Fatalf("second query: %v", err)
    }
    var val2 protocol.CacheValue
    if _, err := protocol.DecodeBody(reg, reply2.Payload, &val2); err != nil {
        t.Fatalf("decode second value: %v", err)
    }
    if val2.Found {
        t.Fatalf("key survived invalidation")
    }
}
