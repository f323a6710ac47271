// Package queue schedules encoded packets for egress: strict priority
// between bands derived from the packet Priority byte, deficit
// round-robin across destination flows within a band. The codec never
// enforces priority; this is the external scheduler the header field
// exists for.
package queue

import (
    "sync"
    "time"

    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
)

// Band is a coarse scheduling class.
type Band int

const (
    BandUrgent Band = iota // Priority >= High
    BandNormal             // Priority >= Normal
    BandBulk               // everything below
    numBands
)

// BandFor maps the 0-255 priority space onto scheduling bands.
func BandFor(p protocol.Priority) Band {
    switch {
    case p >= protocol.PriorityHigh:
        return BandUrgent
    case p >= protocol.PriorityNormal:
        return BandNormal
    default:
        return BandBulk
    }
}

// Item is one encoded packet awaiting egress.
type Item struct {
    Frame    []byte
    Dest     string
    Priority protocol.Priority
    Enqueued time.Time
}

// flow is a DRR queue for one destination within a band.
type flow struct {
    q       []Item
    deficit int
    quantum int
}

type band struct {
    flows map[string]*flow
    order []string
    idx   int
}

// Queue is a multi-band packet scheduler. Safe for concurrent use.
type Queue struct {
    mu     sync.Mutex
    cond   *sync.Cond
    bands  [numBands]*band
    closed bool
}

func New() *Queue {
    q := &Queue{}
    q.cond = sync.NewCond(&q.mu)
    for i := range q.bands {
        q.bands[i] = &band{flows: make(map[string]*flow)}
    }
    return q
}

func quantumFor(b Band) int {
    switch b {
    case BandUrgent:
        return 2048 // small control packets, quick turn
    case BandNormal:
        return 8192
    default:
        return 65536
    }
}

// Enqueue adds an item to its band/flow and wakes one waiter.
func (q *Queue) Enqueue(it Item) {
    if it.Enqueued.IsZero() {
        it.Enqueued = time.Now()
    }
    b := q.bands[BandFor(it.Priority)]
    q.mu.Lock()
    if q.closed {
        q.mu.Unlock()
        return
    }
    f := b.flows[it.Dest]
    if f == nil {
        f = &flow{quantum: quantumFor(BandFor(it.Priority))}
        b.flows[it.Dest] = f
        b.order = append(b.order, it.Dest)
    }
    f.q = append(f.q, it)
    q.cond.Signal()
    q.mu.Unlock()
}

// Dequeue blocks for the next item in strict band order, DRR within a
// band. Returns ok=false once the queue is closed and drained.
func (q *Queue) Dequeue() (Item, bool) {
    q.mu.Lock()
    defer q.mu.Unlock()
    for {
        if it, ok := q.pop(); ok {
            return it, true
        }
        if q.closed {
            return Item{}, false
        }
        q.cond.Wait()
    }
}

// TryDequeue is the non-blocking variant.
func (q *Queue) TryDequeue() (Item, bool) {
    q.mu.Lock()
    defer q.mu.Unlock()
    return q.pop()
}

// Close unblocks all waiters; already-queued items can still be drained.
func (q *Queue) Close() {
    q.mu.Lock()
    q.closed = true
    q.cond.Broadcast()
    q.mu.Unlock()
}

// pop runs under q.mu. Deficits accumulate one quantum per round until
// some flow's head frame fits, so even a frame larger than the quantum
// eventually drains.
func (q *Queue) pop() (Item, bool) {
    for bi := range q.bands {
        b := q.bands[bi]
        n := len(b.order)
        if n == 0 {
            continue
        }
        for {
            anyQueued := false
            for i := 0; i < n; i++ {
                j := (b.idx + i) % n
                f := b.flows[b.order[j]]
                if f == nil || len(f.q) == 0 {
                    continue
                }
                anyQueued = true
                f.deficit += f.quantum
                sz := len(f.q[0].Frame)
                if sz > f.deficit {
                    continue
                }
                it := f.q[0]
                copy(f.q, f.q[1:])
                f.q = f.q[:len(f.q)-1]
                f.deficit -= sz
                if len(f.q) == 0 {
                    // drained: drop the flow so dead peers do not pile
                    // up in the rotation
                    delete(b.flows, b.order[j])
                    b.order = append(b.order[:j], b.order[j+1:]...)
                    if len(b.order) == 0 {
                        b.idx = 0
                    } else {
                        b.idx = j % len(b.order)
                    }
                } else {
                    b.idx = (j + 1) % n
                }
                return it, true
            }
            if !anyQueued {
                break
            }
        }
    }
    return Item{}, false
}
