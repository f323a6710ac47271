// Package session tracks logical connections across packets: sequence
// assignment, handshake negotiation, staleness checks, and idle expiry.
// The packet codec stays pure; everything stateful lives here.
package session

import (
    "errors"
    "fmt"
    "io"
    "sync"
    "time"

    "github.com/H-strangeone/serv-fdpk/pkg/protocol"
)

// State is the lifecycle phase of a session.
type State int

const (
    StateNew State = iota
    StateHandshaking
    StateEstablished
    StateClosed
)

func (s State) String() string {
    switch s {
    case StateNew:
        return "new"
    case StateHandshaking:
        return "handshaking"
    case StateEstablished:
        return "established"
    case StateClosed:
        return "closed"
    default:
        return "unknown"
    }
}

var (
    // ErrStaleSequence means a packet's sequence is not newer than the
    // last one accepted for its session.
    ErrStaleSequence = errors.New("stale or duplicate sequence")

    // ErrSessionMismatch means a packet carries a different session id
    // than the session it was handed to.
    ErrSessionMismatch = errors.New("packet belongs to a different session")

    // ErrClosed means the session is closed.
    ErrClosed = errors.New("session closed")
)

// Session is one logical connection. Safe for concurrent use.
type Session struct {
    mu sync.Mutex

    id    protocol.SessionID
    state State
    peer  string // transport address, informational

    nextSeq  uint32 // next outbound sequence to assign
    lastRecv uint32 // highest inbound sequence accepted

    compression protocol.Compression
    encryption  protocol.EncryptionLevel

    created    time.Time
    lastActive time.Time
}

// ID returns the session identifier.
func (s *Session) ID() protocol.SessionID { return s.id }

// Peer returns the transport address recorded at creation.
func (s *Session) Peer() string { return s.peer }

// State returns the current lifecycle phase.
func (s *Session) State() State {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.state
}

// Negotiated returns the compression/encryption preference agreed at
// handshake time.
func (s *Session) Negotiated() (protocol.Compression, protocol.EncryptionLevel) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.compression, s.encryption
}

// Stamp assigns the next outbound sequence to p and marks activity. The
// codec leaves Sequence at 0; this is the one place it gets set.
func (s *Session) Stamp(p *protocol.Packet) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.state == StateClosed {
        return ErrClosed
    }
    if p.Session != s.id {
        return ErrSessionMismatch
    }
    s.nextSeq++
    p.Sequence = s.nextSeq
    s.lastActive = time.Now()
    return nil
}

// Accept validates an inbound packet against the session: id match and
// monotonic sequence. Sequence 0 (never assigned) always passes; it is
// used by pre-handshake traffic.
func (s *Session) Accept(p *protocol.Packet) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.state == StateClosed {
        return ErrClosed
    }
    if p.Session != s.id {
        return ErrSessionMismatch
    }
    if p.Sequence != 0 {
        if p.Sequence <= s.lastRecv {
            return fmt.Errorf("%w: got %d, last %d", ErrStaleSequence, p.Sequence, s.lastRecv)
        }
        s.lastRecv = p.Sequence
    }
    s.lastActive = time.Now()
    return nil
}

// Close marks the session closed.
func (s *Session) Close() {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.state = StateClosed
}

func (s *Session) setState(st State) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.state = st
}

func (s *Session) setNegotiated(c protocol.Compression, e protocol.EncryptionLevel) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.compression = c
    s.encryption = e
}

func (s *Session) idleSince(now time.Time) time.Duration {
    s.mu.Lock()
    defer s.mu.Unlock()
    return now.Sub(s.lastActive)
}

// Manager owns all live sessions. Safe for concurrent use.
type Manager struct {
    mu       sync.RWMutex
    sessions map[protocol.SessionID]*Session

    idleTimeout      time.Duration
    handshakeTimeout time.Duration
    entropy          io.Reader // nil means crypto/rand
    nowFn            func() time.Time
}

// Options configures a Manager.
type Options struct {
    IdleTimeout time.Duration
    // HandshakeTimeout bounds how long a session may sit without
    // reaching the established state before Sweep expires it.
    HandshakeTimeout time.Duration
    // Entropy overrides the session id source; tests pass a
    // deterministic reader. Nil uses crypto/rand.
    Entropy io.Reader
}

func NewManager(opts Options) *Manager {
    if opts.IdleTimeout <= 0 {
        opts.IdleTimeout = 5 * time.Minute
    }
    if opts.HandshakeTimeout <= 0 {
        opts.HandshakeTimeout = 10 * time.Second
    }
    return &Manager{
        sessions:         make(map[protocol.SessionID]*Session),
        idleTimeout:      opts.IdleTimeout,
        handshakeTimeout: opts.HandshakeTimeout,
        entropy:          opts.Entropy,
        nowFn:            time.Now,
    }
}

// Open creates a session with a fresh id; used by the dialing side.
func (m *Manager) Open(peer string) (*Session, error) {
    id, err := protocol.NewSessionID(m.entropy)
    if err != nil {
        return nil, fmt.Errorf("generate session id: %w", err)
    }
    s := &Session{
        id:         id,
        state:      StateNew,
        peer:       peer,
        created:    m.nowFn(),
        lastActive: m.nowFn(),
    }
    m.mu.Lock()
    m.sessions[id] = s
    m.mu.Unlock()
    return s, nil
}

// Adopt registers a session whose id was created by the remote side;
// used by the accepting side during handshake.
func (m *Manager) Adopt(id protocol.SessionID, peer string) *Session {
    m.mu.Lock()
    defer m.mu.Unlock()
    if s, ok := m.sessions[id]; ok {
        return s
    }
    s := &Session{
        id:         id,
        state:      StateHandshaking,
        peer:       peer,
        created:    m.nowFn(),
        lastActive: m.nowFn(),
    }
    m.sessions[id] = s
    return s
}

// Get looks up a live session.
func (m *Manager) Get(id protocol.SessionID) (*Session, bool) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    s, ok := m.sessions[id]
    return s, ok
}

// Remove closes and forgets a session.
func (m *Manager) Remove(id protocol.SessionID) {
    m.mu.Lock()
    s := m.sessions[id]
    delete(m.sessions, id)
    m.mu.Unlock()
    if s != nil {
        s.Close()
    }
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
    m.mu.RLock()
    defer m.mu.RUnlock()
    return len(m.sessions)
}

// Sweep closes and removes timed-out sessions, returning how many were
// expired. Established sessions get the idle timeout; sessions still
// short of established get the tighter handshake timeout so a stalled
// handshake cannot linger.
func (m *Manager) Sweep() int {
    now := m.nowFn()
    m.mu.Lock()
    var expired []*Session
    for id, s := range m.sessions {
        limit := m.idleTimeout
        if s.State() != StateEstablished {
            limit = m.handshakeTimeout
        }
        if s.idleSince(now) > limit {
            expired = append(expired, s)
            delete(m.sessions, id)
        }
    }
    m.mu.Unlock()
    for _, s := range expired {
        s.Close()
    }
    return len(expired)
}
