package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"

    "github.com/H-strangeone/serv-fdpk/pkg/cache"
    "github.com/H-strangeone/serv-fdpk/pkg/config"
    "github.com/H-strangeone/serv-fdpk/pkg/dispatch"
    "github.com/H-strangeone/serv-fdpk/pkg/identity"
    "github.com/H-strangeone/serv-fdpk/pkg/observability"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol/codec"
    "github.com/H-strangeone/serv-fdpk/pkg/queue"
    "github.com/H-strangeone/serv-fdpk/pkg/session"
    "github.com/H-strangeone/serv-fdpk/pkg/transport"
    memtransport "github.com/H-strangeone/serv-fdpk/pkg/transport/mem"
    quictransport "github.com/H-strangeone/serv-fdpk/pkg/transport/quic"
    tcptransport "github.com/H-strangeone/serv-fdpk/pkg/transport/tcp"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()

    zap.L().Info("fdp-node started", zap.String("app", cfg.AppName))

    ident, err := identity.LoadOrGen(cfg.NodeID, cfg.Identity)
    if err != nil {
        zap.L().Error("failed to init identity", zap.Error(err))
        return 1
    }

    ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer cancel()

    node, err := newNode(cfg, ident)
    if err != nil {
        zap.L().Error("failed to build node", zap.Error(err))
        return 1
    }
    defer node.Close()

    if err := node.Start(ctx); err != nil {
        zap.L().Error("failed to start transports", zap.Error(err))
        return 1
    }

    zap.L().Info("node is running; press Ctrl+C to exit")
    <-ctx.Done()
    return 0
}

// node wires together the session manager, dispatcher, cache, and
// egress queue on top of the configured transports.
type node struct {
    cfg      *config.Config
    ident    *identity.Identity
    reg      *codec.Registry
    sessions *session.Manager
    router   *dispatch.Router
    store    *cache.Cache
    egress   *egress
    mgr      *transport.Manager
}

func newNode(cfg *config.Config, ident *identity.Identity) (*node, error) {
    reg := codec.NewRegistry()
    store := cache.New(cache.Options{
        Shards:     cfg.Cache.Shards,
        DefaultTTL: time.Duration(cfg.Cache.DefaultTTLSec) * time.Second,
        MaxBytes:   cfg.Cache.MaxBytes,
    })
    sessions := session.NewManager(session.Options{
        IdleTimeout:      time.Duration(cfg.Session.IdleTimeoutSec) * time.Second,
        HandshakeTimeout: time.Duration(cfg.Session.HandshakeTimeoutSec) * time.Second,
    })

    n := &node{
        cfg:      cfg,
        ident:    ident,
        reg:      reg,
        sessions: sessions,
        store:    store,
        egress:   newEgress(cfg.Queue),
        mgr:      transport.NewManager(),
    }

    router := dispatch.NewRouter(reg)
    router.Handle(protocol.IntentCacheQuery, cache.QueryHandler(store, reg))
    router.Handle(protocol.IntentCacheInvalidate, cache.InvalidateHandler(store, reg))
    router.Handle(protocol.IntentDataPush, n.handleDataPush)
    router.Handle(protocol.IntentDataDelta, n.handleDataPush)
    router.Handle(protocol.IntentDataRequest, n.handleDataRequest)
    router.Handle(protocol.IntentSearch, n.handleSearch)
    router.Handle(protocol.IntentRankingUpdate, n.handleRankingUpdate)
    router.Handle(protocol.IntentRankingRequest, n.handleRankingRequest)
    router.Handle(protocol.IntentClose, n.handleClose)
    n.router = router

    n.mgr.Register(tcptransport.New())
    n.mgr.Register(memtransport.New())
    q, err := quictransport.New()
    if err != nil {
        return nil, err
    }
    n.mgr.Register(q)
    return n, nil
}

// Start brings up listeners for every configured transport and the
// egress workers, plus a periodic idle-session sweep.
func (n *node) Start(ctx context.Context) error {
    n.egress.Start(ctx)

    for _, tc := range n.cfg.Transports {
        for _, addr := range tc.Listen {
            l, err := n.mgr.Listen(ctx, tc.Kind, addr)
            if err != nil {
                return err
            }
            zap.L().Info("listening", zap.String("kind", tc.Kind), zap.String("addr", l.Addr().String()))
            go n.acceptLoop(ctx, l)
        }
    }

    go func() {
        t := time.NewTicker(time.Minute)
        defer t.Stop()
        for {
            select {
            case <-ctx.Done():
                return
            case <-t.C:
                if expired := n.sessions.Sweep(); expired > 0 {
                    zap.L().Info("expired idle sessions", zap.Int("count", expired))
                }
            }
        }
    }()
    return nil
}

func (n *node) Close() {
    n.store.Close()
    n.egress.Close()
}

func (n *node) acceptLoop(ctx context.Context, l transport.Listener) {
    for {
        conn, err := l.Accept(ctx)
        if err != nil {
            return
        }
        go n.serveConn(ctx, conn)
    }
}

// serveConn reads frames off one connection, decodes and dispatches
// them, and queues replies for egress.
func (n *node) serveConn(ctx context.Context, conn transport.Conn) {
    dest := conn.RemoteAddr().String()
    n.egress.Attach(dest, conn)
    defer func() {
        n.egress.Detach(dest)
        _ = conn.Close()
    }()

    for {
        frame, err := conn.Recv()
        if err != nil {
            zap.L().Debug("recv", zap.String("peer", dest), zap.Error(err))
            return
        }
        p, err := protocol.Decode(frame)
        if err != nil {
            // the codec reports the exact reason; drop and log
            zap.L().Warn("dropping undecodable packet",
                zap.String("peer", dest), zap.Int("bytes", len(frame)), zap.Error(err))
            continue
        }

        reply, err := n.handlePacket(ctx, p, dest)
        if err != nil {
            zap.L().Warn("packet handling failed",
                zap.String("peer", dest),
                zap.String("intent", p.Intent.String()),
                zap.Error(err))
            continue
        }
        if reply == nil {
            continue
        }
        if s, ok := n.sessions.Get(reply.Session); ok {
            if err := s.Stamp(reply); err != nil {
                zap.L().Warn("stamp reply", zap.Error(err))
                continue
            }
        }
        n.egress.Enqueue(queue.Item{Frame: reply.Encode(), Dest: dest, Priority: reply.Priority})
    }
}

func (n *node) handlePacket(ctx context.Context, p *protocol.Packet, peer string) (*protocol.Packet, error) {
    if p.Intent == protocol.IntentHandshakeInit {
        _, ack, err := session.AcceptHello(n.sessions, n.ident, n.reg, p, peer)
        if err != nil {
            // still send the refusal so the dialer learns why
            return ack, nil
        }
        zap.L().Info("session established",
            zap.String("session", p.Session.String()), zap.String("peer", peer))
        return ack, nil
    }

    if s, ok := n.sessions.Get(p.Session); ok {
        if err := s.Accept(p); err != nil {
            return nil, err
        }
    }
    return n.router.Dispatch(ctx, p)
}

// handleDataPush stores pushed chunks in the edge cache so later
// CacheQuery packets can serve them.
func (n *node) handleDataPush(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
    var chunk protocol.DataChunk
    if _, err := protocol.DecodeBody(n.reg, p.Payload, &chunk); err != nil {
        return nil, err
    }
    if !n.store.Set(chunk.Key, chunk.Data, 0) {
        return n.capacityReply(p)
    }
    return protocol.New(p.Session, protocol.IntentSuccess, nil)
}

// capacityReply tells the peer the cache byte budget is exhausted.
func (n *node) capacityReply(p *protocol.Packet) (*protocol.Packet, error) {
    body, err := protocol.EncodeBody(n.reg, protocol.FormatCBOR, protocol.ErrorBody{
        Code: 507, Message: "cache capacity exceeded",
    })
    if err != nil {
        return nil, err
    }
    return protocol.New(p.Session, protocol.IntentError, body)
}

// handleDataRequest serves a previously pushed chunk back out of the
// cache.
func (n *node) handleDataRequest(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
    var key protocol.CacheKey
    if _, err := protocol.DecodeBody(n.reg, p.Payload, &key); err != nil {
        return nil, err
    }
    data, found := n.store.Get(key.Key)
    if !found {
        body, err := protocol.EncodeBody(n.reg, protocol.FormatCBOR, protocol.ErrorBody{
            Code: 404, Message: "no data for key " + key.Key,
        })
        if err != nil {
            return nil, err
        }
        return protocol.New(p.Session, protocol.IntentError, body)
    }
    body, err := protocol.EncodeBody(n.reg, protocol.FormatCBOR, protocol.DataChunk{Key: key.Key, Data: data})
    if err != nil {
        return nil, err
    }
    return protocol.New(p.Session, protocol.IntentSuccess, body)
}

// Ranking vectors live in the cache under a per-user key so updates
// survive until the TTL sweeps them.
func (n *node) handleRankingUpdate(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
    var vec protocol.RankingVector
    if _, err := protocol.DecodeBody(n.reg, p.Payload, &vec); err != nil {
        return nil, err
    }
    body, err := protocol.EncodeBody(n.reg, protocol.FormatCBOR, vec)
    if err != nil {
        return nil, err
    }
    if !n.store.Set("ranking:"+vec.User, body, 0) {
        return n.capacityReply(p)
    }
    return protocol.New(p.Session, protocol.IntentSuccess, nil)
}

func (n *node) handleRankingRequest(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
    var key protocol.CacheKey
    if _, err := protocol.DecodeBody(n.reg, p.Payload, &key); err != nil {
        return nil, err
    }
    body, found := n.store.Get("ranking:" + key.Key)
    if !found {
        eb, err := protocol.EncodeBody(n.reg, protocol.FormatCBOR, protocol.ErrorBody{
            Code: 404, Message: "no ranking vector for " + key.Key,
        })
        if err != nil {
            return nil, err
        }
        return protocol.New(p.Session, protocol.IntentError, eb)
    }
    return protocol.New(p.Session, protocol.IntentSuccess, body)
}

// handleSearch serves cached results only; a real index is a separate
// service behind this intent.
func (n *node) handleSearch(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
    var q protocol.SearchQuery
    if _, err := protocol.DecodeBody(n.reg, p.Payload, &q); err != nil {
        return nil, err
    }
    result := protocol.SearchResult{}
    if data, ok := n.store.Get("search:" + q.Terms); ok {
        result.Hits = append(result.Hits, protocol.SearchHit{DocID: q.Terms, Snippet: string(data), Score: 1})
        result.Total = 1
    }
    body, err := protocol.EncodeBody(n.reg, protocol.FormatCBOR, result)
    if err != nil {
        return nil, err
    }
    return protocol.New(p.Session, protocol.IntentSuccess, body)
}

func (n *node) handleClose(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
    n.sessions.Remove(p.Session)
    zap.L().Info("session closed", zap.String("session", p.Session.String()))
    return nil, nil
}
