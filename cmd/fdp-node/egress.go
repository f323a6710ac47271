package main

import (
    "context"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/H-strangeone/serv-fdpk/pkg/config"
    "github.com/H-strangeone/serv-fdpk/pkg/queue"
    "github.com/H-strangeone/serv-fdpk/pkg/transport"
)

// egress drains the priority queue onto live connections, shaped by a
// token bucket.
type egress struct {
    q      *queue.Queue
    bucket *queue.TokenBucket

    mu    sync.RWMutex
    conns map[string]transport.Conn
}

func newEgress(cfg config.QueueConfig) *egress {
    rate := cfg.RateBytesPerSec
    if rate <= 0 {
        rate = 8 << 20
    }
    return &egress{
        q:      queue.New(),
        bucket: queue.NewTokenBucket(rate, cfg.BurstBytes),
        conns:  make(map[string]transport.Conn),
    }
}

func (e *egress) Start(ctx context.Context) {
    for i := 0; i < 2; i++ {
        go e.worker(ctx)
    }
    go func() { <-ctx.Done(); e.q.Close() }()
}

func (e *egress) Close() { e.q.Close() }

func (e *egress) Attach(dest string, c transport.Conn) {
    e.mu.Lock()
    e.conns[dest] = c
    e.mu.Unlock()
}

func (e *egress) Detach(dest string) {
    e.mu.Lock()
    delete(e.conns, dest)
    e.mu.Unlock()
}

func (e *egress) Enqueue(it queue.Item) { e.q.Enqueue(it) }

func (e *egress) worker(ctx context.Context) {
    for {
        it, ok := e.q.Dequeue()
        if !ok {
            return
        }
        for {
            ok, wait := e.bucket.Allow(int64(len(it.Frame)))
            if ok {
                break
            }
            select {
            case <-ctx.Done():
                return
            case <-time.After(wait):
            }
        }
        e.mu.RLock()
        c := e.conns[it.Dest]
        e.mu.RUnlock()
        if c == nil {
            zap.L().Debug("dropping frame for vanished peer", zap.String("dest", it.Dest))
            continue
        }
        if err := c.Send(it.Frame); err != nil {
            zap.L().Warn("send failed", zap.String("dest", it.Dest), zap.Error(err))
        }
    }
}
