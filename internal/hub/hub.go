// Package hub implements the real-time fleet location broadcast hub: it
// accepts streamed position updates from buses, maintains the authoritative
// "where is each bus right now" view, and fans updates out to every
// connected viewer.
//
// Transport goroutines never touch the registries. Every inbound transport
// event is translated into a command on one intake channel consumed by a
// single dispatch goroutine, so all mutation across both registries is
// serialized and per-connection arrival order is preserved.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bucarabus/fleethub/internal/models"
)

// Publisher mirrors authoritative location updates to an external feed
// (e.g. a NATS subject). Implementations must not block.
type Publisher interface {
	PublishLocation(update LocationUpdate)
}

type command interface{ isCommand() }

type connectCmd struct{ conn *Connection }

type disconnectCmd struct {
	connID string
	reason string
}

type frameCmd struct {
	connID string
	env    Envelope
}

func (connectCmd) isCommand()    {}
func (disconnectCmd) isCommand() {}
func (frameCmd) isCommand()      {}

// Stats is the hub's aggregate view for health and live endpoints.
type Stats struct {
	ConnectedClients int `json:"connectedClients"`
	ActiveBuses      int `json:"activeBuses"`
	ActiveShifts     int `json:"activeShifts"`
}

// Hub owns the connection and location registries and performs fan-out.
type Hub struct {
	logger    *zap.Logger
	conns     *ConnRegistry
	locations *LocationRegistry
	validate  *validator.Validate
	intake    chan command
	done      chan struct{}

	// publisher is optional; set before Run.
	publisher Publisher

	// shifts maps plate → shift start. Derived, informational state:
	// deliberately decoupled from location-record existence. Mutated only
	// on the dispatch goroutine; the mutex covers reads from Stats.
	shiftMu sync.RWMutex
	shifts  map[string]time.Time
}

// New creates a hub. Call Run to start dispatching.
func New(logger *zap.Logger) *Hub {
	conns := NewConnRegistry(logger)
	return &Hub{
		logger:    logger,
		conns:     conns,
		locations: NewLocationRegistry(conns),
		validate:  validator.New(),
		intake:    make(chan command, 256),
		done:      make(chan struct{}),
		shifts:    make(map[string]time.Time),
	}
}

// SetPublisher attaches an external feed mirror. Must be called before Run.
func (h *Hub) SetPublisher(p Publisher) {
	h.publisher = p
}

// Run consumes the intake channel until ctx is cancelled, then closes every
// session. Run should be called in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case cmd := <-h.intake:
			h.dispatch(cmd)
		case <-ctx.Done():
			h.shutdown()
			close(h.done)
			h.logger.Info("hub stopped")
			return
		}
	}
}

// Connect announces a new transport session to the hub.
func (h *Hub) Connect(connID string, sender Sender) {
	h.enqueue(connectCmd{conn: newConnection(connID, sender)})
}

// Disconnect announces that a session is gone. Idempotent; safe to call on
// any transport error path.
func (h *Hub) Disconnect(connID, reason string) {
	h.enqueue(disconnectCmd{connID: connID, reason: reason})
}

// HandleFrame feeds one raw inbound frame from a session into the hub.
// Malformed frames are dropped with a log entry.
func (h *Hub) HandleFrame(connID string, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		h.logger.Warn("dropping malformed frame",
			zap.String("conn_id", connID), zap.Error(err))
		return
	}
	h.enqueue(frameCmd{connID: connID, env: env})
}

// Locations returns a consistent snapshot of every live position.
func (h *Hub) Locations() []models.LocationRecord {
	return h.locations.Snapshot()
}

// Location returns the live position of one bus.
func (h *Hub) Location(plate string) (models.LocationRecord, bool) {
	return h.locations.Get(plate)
}

// Stats returns the hub's aggregate counters.
func (h *Hub) Stats() Stats {
	h.shiftMu.RLock()
	activeShifts := len(h.shifts)
	h.shiftMu.RUnlock()
	return Stats{
		ConnectedClients: h.conns.Count(),
		ActiveBuses:      h.locations.Len(),
		ActiveShifts:     activeShifts,
	}
}

func (h *Hub) enqueue(cmd command) {
	select {
	case h.intake <- cmd:
	case <-h.done:
		// Hub already stopped; the transport pumps are on their way down.
	}
}

func (h *Hub) dispatch(cmd command) {
	switch c := cmd.(type) {
	case connectCmd:
		h.handleConnect(c.conn)
	case disconnectCmd:
		h.handleDisconnect(c.connID, c.reason)
	case frameCmd:
		h.handleFrame(c.connID, c.env)
	}
}

func (h *Hub) handleConnect(conn *Connection) {
	if !h.conns.Register(conn) {
		return
	}
	if err := conn.establish(); err != nil {
		h.logger.Warn("connection state transition failed",
			zap.String("conn_id", conn.ID), zap.Error(err))
	}
	h.logger.Info("client connected",
		zap.String("conn_id", conn.ID),
		zap.Int("total_clients", h.conns.Count()))

	h.unicast(conn, EvWelcome, WelcomePayload{
		Message:          "Connected to the fleet tracking server",
		Timestamp:        time.Now(),
		ActiveBuses:      h.locations.Len(),
		ConnectedClients: h.conns.Count(),
	})
	h.unicast(conn, EvAllLocations, h.locations.Snapshot())
}

func (h *Hub) handleDisconnect(connID, reason string) {
	conn, ok := h.conns.Unregister(connID)
	if !ok {
		h.logger.Debug("duplicate disconnect ignored", zap.String("conn_id", connID))
		return
	}
	if err := conn.drop(); err != nil {
		h.logger.Warn("connection state transition failed",
			zap.String("conn_id", connID), zap.Error(err))
	}

	removed := h.locations.RemoveByOwner(connID)
	for _, rec := range removed {
		h.logger.Info("bus dropped with its connection",
			zap.String("plate", rec.PlateNumber), zap.String("conn_id", connID))
		h.broadcast(EvBusDisconnected, BusDisconnected{PlateNumber: rec.PlateNumber})
	}

	conn.sender.Close()
	h.logger.Info("client disconnected",
		zap.String("conn_id", connID),
		zap.String("reason", reason),
		zap.Int("total_clients", h.conns.Count()))
}

func (h *Hub) handleFrame(connID string, env Envelope) {
	conn, ok := h.conns.Lookup(connID)
	if !ok {
		h.logger.Warn("dropping frame from unknown connection",
			zap.String("conn_id", connID), zap.String("event", env.Event))
		return
	}

	switch env.Event {
	case EvBusLocation:
		h.handleLocation(conn, env.Data)
	case EvGetAllLocations:
		h.unicast(conn, EvAllLocations, h.locations.Snapshot())
	case EvGetBusLocation:
		h.handleGetBusLocation(conn, env.Data)
	case EvBusStartShift:
		h.handleStartShift(conn, env.Data)
	case EvBusEndShift:
		h.handleEndShift(conn, env.Data)
	default:
		h.logger.Debug("ignoring unknown event",
			zap.String("conn_id", connID), zap.String("event", env.Event))
	}
}

func (h *Hub) handleLocation(conn *Connection, data json.RawMessage) {
	var p LocationPayload
	if err := h.decode(data, &p); err != nil {
		h.logger.Warn("dropping malformed location event",
			zap.String("conn_id", conn.ID), zap.Error(err))
		return
	}

	rec, err := h.locations.Upsert(p, conn.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrphanUpdate):
			h.logger.Warn("dropping orphan location update",
				zap.String("plate", p.PlateNumber), zap.Error(err))
		default:
			h.logger.Warn("dropping invalid location update",
				zap.String("conn_id", conn.ID), zap.Error(err))
		}
		return
	}

	update := updateFromRecord(rec)

	// Uniform consistency over echo suppression: everyone, including the
	// sender, sees the same authoritative update. The legacy bus-moved
	// event keeps older clients working and excludes the sender, as the
	// old server did.
	h.broadcast(EvLocationUpdate, update)
	h.broadcastExcept(EvBusMoved, update, conn.ID)
	h.unicast(conn, EvLocationReceived, LocationAck{Success: true, PlateNumber: rec.PlateNumber})

	if h.publisher != nil {
		h.publisher.PublishLocation(update)
	}
}

func (h *Hub) handleGetBusLocation(conn *Connection, data json.RawMessage) {
	var p PlatePayload
	if err := h.decode(data, &p); err != nil {
		h.logger.Warn("dropping malformed location lookup",
			zap.String("conn_id", conn.ID), zap.Error(err))
		return
	}

	resp := LocationResponse{PlateNumber: NormalizePlate(p.PlateNumber)}
	if rec, ok := h.locations.Get(p.PlateNumber); ok {
		resp.Found = true
		resp.Location = &rec
	}
	h.unicast(conn, EvLocationResponse, resp)
}

func (h *Hub) handleStartShift(conn *Connection, data json.RawMessage) {
	var p StartShiftPayload
	if err := h.decode(data, &p); err != nil {
		h.logger.Warn("dropping malformed start-shift event",
			zap.String("conn_id", conn.ID), zap.Error(err))
		return
	}

	plate := NormalizePlate(p.PlateNumber)
	now := time.Now()

	h.shiftMu.Lock()
	h.shifts[plate] = now
	h.shiftMu.Unlock()

	h.logger.Info("shift started",
		zap.String("plate", plate), zap.Int64("route_id", p.RouteID))

	// Notification only: no location record is created until the bus
	// actually reports a position.
	h.broadcast(EvShiftStarted, ShiftStarted{
		PlateNumber: plate,
		RouteID:     p.RouteID,
		DriverName:  p.DriverName,
		StartTime:   now,
	})
}

func (h *Hub) handleEndShift(conn *Connection, data json.RawMessage) {
	var p EndShiftPayload
	if err := h.decode(data, &p); err != nil {
		h.logger.Warn("dropping malformed end-shift event",
			zap.String("conn_id", conn.ID), zap.Error(err))
		return
	}

	plate := NormalizePlate(p.PlateNumber)

	h.shiftMu.Lock()
	delete(h.shifts, plate)
	h.shiftMu.Unlock()

	if _, removed := h.locations.Remove(plate); removed {
		h.logger.Info("shift ended, location cleared", zap.String("plate", plate))
	} else {
		h.logger.Info("shift ended", zap.String("plate", plate))
	}

	h.broadcast(EvShiftEnded, ShiftEnded{PlateNumber: plate, EndTime: time.Now()})
}

func (h *Hub) decode(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}

func (h *Hub) marshalFrame(event string, data any) ([]byte, bool) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("marshal event payload", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: body})
	if err != nil {
		h.logger.Error("marshal event envelope", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return frame, true
}

func (h *Hub) unicast(conn *Connection, event string, data any) {
	frame, ok := h.marshalFrame(event, data)
	if !ok {
		return
	}
	if !conn.sender.Send(frame) {
		h.logger.Warn("send buffer full on unicast", zap.String("conn_id", conn.ID))
	}
}

func (h *Hub) broadcast(event string, data any) {
	h.broadcastExcept(event, data, "")
}

// broadcastExcept fans a frame out to every connection except exceptID.
// Slow consumers are dropped through the regular disconnect cascade, as the
// rest of the fleet must keep moving.
func (h *Hub) broadcastExcept(event string, data any, exceptID string) {
	frame, ok := h.marshalFrame(event, data)
	if !ok {
		return
	}

	var slow []string
	h.conns.each(func(conn *Connection) {
		if conn.ID == exceptID {
			return
		}
		if !conn.sender.Send(frame) {
			slow = append(slow, conn.ID)
		}
	})
	for _, id := range slow {
		h.handleDisconnect(id, "send buffer full")
	}
}

func (h *Hub) shutdown() {
	var ids []string
	h.conns.each(func(conn *Connection) { ids = append(ids, conn.ID) })
	for _, id := range ids {
		conn, ok := h.conns.Unregister(id)
		if !ok {
			continue
		}
		_ = conn.drop()
		conn.sender.Close()
	}
}
