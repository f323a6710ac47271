// Package cache is the in-memory edge cache behind the CacheQuery and
// CacheInvalidate intents: a sharded map with per-entry TTL and a
// background sweeper.
package cache

import (
    "hash/fnv"
    "sync"
    "sync/atomic"
    "time"
)

// Options configures a Cache.
type Options struct {
    Shards     int           // default 64
    DefaultTTL time.Duration // applied when Set gets ttl <= 0; 0 means no expiry
    SweepEvery time.Duration // default 30s
    MaxBytes   uint64        // hard cap on total stored value bytes; 0 = unlimited
}

func (o Options) withDefaults() Options {
    if o.Shards <= 0 {
        o.Shards = 64
    }
    if o.SweepEvery <= 0 {
        o.SweepEvery = 30 * time.Second
    }
    return o
}

type entry struct {
    val      []byte
    expireAt int64 // unix nano; 0 = never
}

type shard struct {
    mu sync.RWMutex
    m  map[string]entry
}

// Cache is safe for concurrent use.
type Cache struct {
    opts    Options
    shards  []shard
    closeCh chan struct{}
    closed  sync.Once
    nowFn   func() time.Time

    bytes   atomic.Uint64
    hits    atomic.Uint64
    misses  atomic.Uint64
    expired atomic.Uint64
}

func New(opts Options) *Cache {
    opts = opts.withDefaults()
    c := &Cache{
        opts:    opts,
        shards:  make([]shard, opts.Shards),
        closeCh: make(chan struct{}),
        nowFn:   time.Now,
    }
    for i := range c.shards {
        c.shards[i].m = make(map[string]entry)
    }
    go c.sweepLoop()
    return c
}

// Close stops the sweeper.
func (c *Cache) Close() { c.closed.Do(func() { close(c.closeCh) }) }

func (c *Cache) shardFor(key string) *shard {
    h := fnv.New32a()
    _, _ = h.Write([]byte(key))
    return &c.shards[h.Sum32()%uint32(len(c.shards))]
}

// tryAddBytes reserves a positive byte delta against MaxBytes.
func (c *Cache) tryAddBytes(delta uint64) bool {
    if c.opts.MaxBytes == 0 {
        c.bytes.Add(delta)
        return true
    }
    for {
        cur := c.bytes.Load()
        next := cur + delta
        if next > c.opts.MaxBytes {
            return false
        }
        if c.bytes.CompareAndSwap(cur, next) {
            return true
        }
    }
}

// releaseBytes returns freed bytes to the budget, clamping at zero.
func (c *Cache) releaseBytes(n uint64) {
    for {
        cur := c.bytes.Load()
        var next uint64
        if cur > n {
            next = cur - n
        }
        if c.bytes.CompareAndSwap(cur, next) {
            return
        }
    }
}

// Set stores a copy of val under key. ttl <= 0 falls back to the
// configured default. Returns false when storing the value would push
// the cache past MaxBytes; an existing value stays untouched then.
func (c *Cache) Set(key string, val []byte, ttl time.Duration) bool {
    if ttl <= 0 {
        ttl = c.opts.DefaultTTL
    }
    var expireAt int64
    if ttl > 0 {
        expireAt = c.nowFn().Add(ttl).UnixNano()
    }
    cp := append([]byte(nil), val...)
    s := c.shardFor(key)
    s.mu.Lock()
    defer s.mu.Unlock()
    old, exists := s.m[key]
    newLen, oldLen := uint64(len(cp)), uint64(0)
    if exists {
        oldLen = uint64(len(old.val))
    }
    if newLen > oldLen {
        if !c.tryAddBytes(newLen - oldLen) {
            return false
        }
    } else {
        c.releaseBytes(oldLen - newLen)
    }
    s.m[key] = entry{val: cp, expireAt: expireAt}
    return true
}

// Get returns a copy of the value, or ok=false on miss or expiry.
func (c *Cache) Get(key string) ([]byte, bool) {
    s := c.shardFor(key)
    s.mu.RLock()
    e, ok := s.m[key]
    s.mu.RUnlock()
    if !ok {
        c.misses.Add(1)
        return nil, false
    }
    if e.expireAt != 0 && c.nowFn().UnixNano() > e.expireAt {
        s.mu.Lock()
        if cur, ok := s.m[key]; ok {
            c.releaseBytes(uint64(len(cur.val)))
            delete(s.m, key)
        }
        s.mu.Unlock()
        c.expired.Add(1)
        c.misses.Add(1)
        return nil, false
    }
    c.hits.Add(1)
    return append([]byte(nil), e.val...), true
}

// Delete removes key, reporting whether it existed.
func (c *Cache) Delete(key string) bool {
    s := c.shardFor(key)
    s.mu.Lock()
    e, ok := s.m[key]
    if ok {
        c.releaseBytes(uint64(len(e.val)))
        delete(s.m, key)
    }
    s.mu.Unlock()
    return ok
}

// Bytes reports the total stored value bytes.
func (c *Cache) Bytes() uint64 { return c.bytes.Load() }

// Len counts live entries across shards.
func (c *Cache) Len() int {
    n := 0
    for i := range c.shards {
        c.shards[i].mu.RLock()
        n += len(c.shards[i].m)
        c.shards[i].mu.RUnlock()
    }
    return n
}

// Stats reports hit/miss/expired counters.
func (c *Cache) Stats() (hits, misses, expired uint64) {
    return c.hits.Load(), c.misses.Load(), c.expired.Load()
}

func (c *Cache) sweepLoop() {
    t := time.NewTicker(c.opts.SweepEvery)
    defer t.Stop()
    for {
        select {
        case <-c.closeCh:
            return
        case <-t.C:
            c.sweep()
        }
    }
}

func (c *Cache) sweep() {
    now := c.nowFn().UnixNano()
    for i := range c.shards {
        s := &c.shards[i]
        s.mu.Lock()
        for k, e := range s.m {
            if e.expireAt != 0 && now > e.expireAt {
                c.releaseBytes(uint64(len(e.val)))
                delete(s.m, k)
                c.expired.Add(1)
            }
        }
        s.mu.Unlock()
    }
}
