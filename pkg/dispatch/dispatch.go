// Package dispatch routes decoded packets to intent handlers. It is the
// seam between the pure codec and the domain logic: handlers receive a
// verified packet and may return a reply packet for the transport to
// send back.
package dispatch

import (
    "context"
    "fmt"
    "sync"

    "go.uber.org/zap"

    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
    "github.com/H-strangeone/serv-fdpk/pkg/protocol/codec"
)

// Handler processes one packet. A nil reply with nil error means the
// intent needs no response.
type Handler func(ctx context.Context, p *protocol.Packet) (*protocol.Packet, error)

// Router maps intents to handlers. Safe for concurrent use; handlers
// are expected to be registered at startup.
type Router struct {
    mu       sync.RWMutex
    handlers map[protocol.Intent]Handler
    reg      *codec.Registry
}

func NewRouter(reg *codec.Registry) *Router {
    r := &Router{handlers: make(map[protocol.Intent]Handler), reg: reg}
    r.Handle(protocol.IntentPing, r.handlePing)
    r.Handle(protocol.IntentDataVerify, r.handleDataVerify)
    return r
}

// Handle registers h for intent i, replacing any previous handler.
func (r *Router) Handle(i protocol.Intent, h Handler) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.handlers[i] = h
}

// Dispatch runs the handler for p's intent. A missing handler produces
// an IntentError reply; a handler error is logged and also turned into
// an IntentError reply so the peer learns something went wrong.
func (r *Router) Dispatch(ctx context.Context, p *protocol.Packet) (*protocol.Packet, error) {
    r.mu.RLock()
    h := r.handlers[p.Intent]
    r.mu.RUnlock()
    if h == nil {
        zap.L().Debug("no handler for intent",
            zap.String("intent", p.Intent.String()),
            zap.String("session", p.Session.String()))
        return r.errorReply(p, 404, fmt.Sprintf("no handler for intent %s", p.Intent))
    }
    reply, err := h(ctx, p)
    if err != nil {
        zap.L().Warn("handler failed",
            zap.String("intent", p.Intent.String()),
            zap.String("session", p.Session.String()),
            zap.Error(err))
        return r.errorReply(p, 500, err.Error())
    }
    return reply, nil
}

// errorReply builds an IntentError packet scoped to the same session.
func (r *Router) errorReply(p *protocol.Packet, code int, msg string) (*protocol.Packet, error) {
    body, err := protocol.EncodeBody(r.reg, protocol.FormatCBOR, protocol.ErrorBody{Code: code, Message: msg})
    if err != nil {
        return nil, err
    }
    return protocol.New(p.Session, protocol.IntentError, body)
}

// handlePing answers with a Pong carrying the same payload.
func (r *Router) handlePing(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
    return protocol.New(p.Session, protocol.IntentPong, p.Payload)
}

// handleDataVerify re-checks the packet's integrity and reports the
// verdict. Decode already verified it once, so this answers Success
// unless the packet was mutated after decode.
func (r *Router) handleDataVerify(_ context.Context, p *protocol.Packet) (*protocol.Packet, error) {
    if !p.Verify() {
        return r.errorReply(p, 409, "integrity check failed")
    }
    return protocol.New(p.Session, protocol.IntentSuccess, nil)
}
