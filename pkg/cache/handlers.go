package cache

import (
    "context"
    "fmt"

    "github.com/H-strangeone/serv-fdpk/pkg/dispatch"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol/codec"
)

// QueryHandler serves IntentCacheQuery: the body names a key, the reply
// is Success with a CacheValue body (found or not).
func QueryHandler(c *Cache, reg *codec.Registry) dispatch.Handler {
    return func(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
        var key protocol.CacheKey
        if _, err := protocol.DecodeBody(reg, p.Payload, &key); err != nil {
            return nil, fmt.Errorf("decode cache key: %w", err)
        }
        val, found := c.Get(key.Key)
        body, err := protocol.EncodeBody(reg, protocol.FormatCBOR, protocol.CacheValue{
            Key:   key.Key,
            Found: found,
            Data:  val,
        })
        if err != nil {
            return nil, err
        }
        return protocol.New(p.Session, protocol.IntentSuccess, body)
    }
}

// InvalidateHandler serves IntentCacheInvalidate.
func InvalidateHandler(c *Cache, reg *codec.Registry) dispatch.Handler {
    return func(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
        var key protocol.CacheKey
        if _, err := protocol.DecodeBody(reg, p.Payload, &key); err != nil {
            return nil, fmt.Errorf("decode cache key: %w", err)
        }
        c.Delete(key.Key)
        return protocol.New(p.Session, protocol.IntentSuccess, nil)
    }
}
