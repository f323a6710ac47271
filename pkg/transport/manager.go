package transport

import (
    "context"
    "fmt"
    "sync"
)

// Manager holds the registered transports and resolves them by kind.
type Manager struct {
    mu         sync.RWMutex
    transports map[Kind]Transport
}

func NewManager() *Manager {
    return &Manager{transports: make(map[Kind]Transport)}
}

// Register adds a transport; the last registration per kind wins.
func (m *Manager) Register(t Transport) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.transports[t.Kind()] = t
}

// Get returns the transport for a kind, or nil.
func (m *Manager) Get(k Kind) Transport {
    m.mu.RLock()
    defer m.mu.RUnlock()
    return m.transports[k]
}

// Listen starts a listener on the named kind.
func (m *Manager) Listen(ctx context.Context, kind, address string) (Listener, error) {
    t := m.Get(KindFromString(kind))
    if t == nil {
        return nil, fmt.Errorf("no transport registered for kind %q", kind)
    }
    return t.Listen(ctx, address)
}

// Dial opens an outbound conn on the named kind.
func (m *Manager) Dial(ctx context.Context, kind, address string) (Conn, error) {
    t := m.Get(KindFromString(kind))
    if t == nil {
        return nil, fmt.Errorf("no transport registered for kind %q", kind)
    }
    return t.Dial(ctx, address)
}
