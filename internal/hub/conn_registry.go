package hub

import (
	"context"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Connection lifecycle states.
const (
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
)

// Connection lifecycle events.
const (
	eventEstablish = "establish"
	eventDrop      = "drop"
)

// Sender delivers marshaled frames to one transport session. Send must not
// block; it reports false when the client's buffer is full.
type Sender interface {
	Send(frame []byte) bool
	Close()
}

// Connection is one live transport session tracked by the hub. Binding to a
// plate is not a connection state; ownership lives in the location registry.
type Connection struct {
	ID        string
	CreatedAt time.Time

	sender Sender
	fsm    *fsm.FSM
}

func newConnection(id string, sender Sender) *Connection {
	return &Connection{
		ID:        id,
		CreatedAt: time.Now(),
		sender:    sender,
		fsm: fsm.NewFSM(
			StateConnecting,
			fsm.Events{
				{Name: eventEstablish, Src: []string{StateConnecting}, Dst: StateConnected},
				{Name: eventDrop, Src: []string{StateConnecting, StateConnected}, Dst: StateDisconnected},
			},
			fsm.Callbacks{},
		),
	}
}

// State returns the connection's lifecycle state.
func (c *Connection) State() string {
	return c.fsm.Current()
}

func (c *Connection) establish() error {
	return c.fsm.Event(context.Background(), eventEstablish)
}

func (c *Connection) drop() error {
	return c.fsm.Event(context.Background(), eventDrop)
}

// ConnRegistry tracks live transport sessions. Pure bookkeeping: it knows
// nothing about plates or positions. Mutation happens only on the hub's
// dispatch goroutine; the mutex exists for concurrent reads from HTTP
// handlers (Count, Lookup).
type ConnRegistry struct {
	logger *zap.Logger

	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewConnRegistry creates an empty connection registry.
func NewConnRegistry(logger *zap.Logger) *ConnRegistry {
	return &ConnRegistry{
		logger: logger,
		conns:  make(map[string]*Connection),
	}
}

// Register adds a connection. Registering an id that is already present is a
// no-op with a warning, not an error.
func (r *ConnRegistry) Register(conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID]; ok {
		r.logger.Warn("duplicate connection register ignored", zap.String("conn_id", conn.ID))
		return false
	}
	r.conns[conn.ID] = conn
	return true
}

// Unregister removes a connection and returns it. The second call for the
// same id finds nothing and reports false, which is what makes the
// disconnect cascade idempotent.
func (r *ConnRegistry) Unregister(connID string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	delete(r.conns, connID)
	return conn, true
}

// Lookup returns the connection for id, if present. Never errors.
func (r *ConnRegistry) Lookup(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connID]
	return conn, ok
}

// Count returns the number of live connections.
func (r *ConnRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// each calls fn for every live connection. Called only from the dispatch
// goroutine; fn must not mutate the registry.
func (r *ConnRegistry) each(fn func(*Connection)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conn := range r.conns {
		fn(conn)
	}
}
