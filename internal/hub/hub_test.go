package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bucarabus/fleethub/internal/models"
)

// fakeSession records every frame the hub sends it. With full set it refuses
// all sends, imitating a client whose buffer never drains.
type fakeSession struct {
	mu     sync.Mutex
	frames []Envelope
	closed bool
	full   bool
}

func (s *fakeSession) Send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		panic("hub sent an unparseable frame: " + err.Error())
	}
	s.frames = append(s.frames, env)
	return true
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, env := range s.frames {
		if env.Event == event {
			n++
		}
	}
	return n
}

// last decodes the payload of the most recent frame with the given event
// name into v.
func (s *fakeSession) last(t *testing.T, event string, v any) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Event == event {
			if err := json.Unmarshal(s.frames[i].Data, v); err != nil {
				t.Fatalf("decode %s payload: %v", event, err)
			}
			return
		}
	}
	t.Fatalf("no %s frame received", event)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

// connect attaches a fresh session and waits for its welcome frame, so every
// later assertion starts from a settled hub.
func connect(t *testing.T, h *Hub, id string) *fakeSession {
	t.Helper()
	s := &fakeSession{}
	h.Connect(id, s)
	waitFor(t, id+" welcome", func() bool { return s.count(EvWelcome) == 1 })
	return s
}

func frame(t *testing.T, event string, payload any) []byte {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: body})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

// barrier round-trips a get-all-locations request, guaranteeing that every
// command enqueued before it has been dispatched.
func barrier(t *testing.T, h *Hub, connID string, s *fakeSession) {
	t.Helper()
	before := s.count(EvAllLocations)
	h.HandleFrame(connID, frame(t, EvGetAllLocations, struct{}{}))
	waitFor(t, "barrier response", func() bool { return s.count(EvAllLocations) > before })
}

func TestConnectReceivesWelcomeAndSnapshot(t *testing.T) {
	h := newTestHub(t)

	c1 := connect(t, h, "c1")
	h.HandleFrame("c1", frame(t, EvBusLocation, validPayload("BUS1")))
	waitFor(t, "location ack", func() bool { return c1.count(EvLocationReceived) == 1 })

	c2 := connect(t, h, "c2")

	var welcome WelcomePayload
	c2.last(t, EvWelcome, &welcome)
	if welcome.ActiveBuses != 1 || welcome.ConnectedClients != 2 {
		t.Fatalf("unexpected welcome stats: %+v", welcome)
	}

	var snapshot []models.LocationRecord
	c2.last(t, EvAllLocations, &snapshot)
	if len(snapshot) != 1 || snapshot[0].PlateNumber != "BUS1" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestLocationBroadcastReachesEveryone(t *testing.T) {
	h := newTestHub(t)
	c1 := connect(t, h, "c1")
	c2 := connect(t, h, "c2")
	c3 := connect(t, h, "c3")

	p := validPayload("BUS1")
	p.Heading = floatPtr(135)
	h.HandleFrame("c1", frame(t, EvBusLocation, p))

	waitFor(t, "broadcast delivery", func() bool {
		return c2.count(EvLocationUpdate) == 1 && c3.count(EvLocationUpdate) == 1
	})

	var update LocationUpdate
	c2.last(t, EvLocationUpdate, &update)
	if update.PlateNumber != "BUS1" || update.BusID != "BUS1" {
		t.Fatalf("unexpected plate in update: %+v", update)
	}
	if update.Latitude != 7.12 || update.Longitude != -73.12 || update.Speed != 30 {
		t.Fatalf("unexpected coordinates in update: %+v", update)
	}
	if update.Heading == nil || *update.Heading != 135 {
		t.Fatalf("heading not forwarded: %+v", update)
	}

	// The sender sees the authoritative update and the ack, but not the
	// legacy sender-exclusive event.
	if c1.count(EvLocationUpdate) != 1 {
		t.Fatalf("sender must receive the uniform broadcast, got %d", c1.count(EvLocationUpdate))
	}
	if c1.count(EvLocationReceived) != 1 {
		t.Fatalf("sender must receive exactly one ack, got %d", c1.count(EvLocationReceived))
	}
	if c1.count(EvBusMoved) != 0 {
		t.Fatalf("sender must not receive bus-moved")
	}
	if c2.count(EvBusMoved) != 1 || c3.count(EvBusMoved) != 1 {
		t.Fatalf("viewers must receive bus-moved: c2=%d c3=%d", c2.count(EvBusMoved), c3.count(EvBusMoved))
	}
}

func TestStartShiftCreatesNoLocationRecord(t *testing.T) {
	h := newTestHub(t)
	c1 := connect(t, h, "c1")
	c2 := connect(t, h, "c2")

	h.HandleFrame("c1", frame(t, EvBusStartShift, StartShiftPayload{
		PlateNumber: "bus2",
		RouteID:     5,
		DriverName:  "Maria",
	}))

	waitFor(t, "shift-started broadcast", func() bool {
		return c1.count(EvShiftStarted) == 1 && c2.count(EvShiftStarted) == 1
	})

	var started ShiftStarted
	c2.last(t, EvShiftStarted, &started)
	if started.PlateNumber != "BUS2" || started.RouteID != 5 || started.DriverName != "Maria" {
		t.Fatalf("unexpected shift-started payload: %+v", started)
	}

	if got := h.Locations(); len(got) != 0 {
		t.Fatalf("start-shift must not create a location record, got %+v", got)
	}
	if stats := h.Stats(); stats.ActiveShifts != 1 || stats.ActiveBuses != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestEndShiftClearsShiftAndLocation(t *testing.T) {
	h := newTestHub(t)
	c1 := connect(t, h, "c1")

	h.HandleFrame("c1", frame(t, EvBusStartShift, StartShiftPayload{PlateNumber: "BUS1", RouteID: 1}))
	h.HandleFrame("c1", frame(t, EvBusLocation, validPayload("BUS1")))
	h.HandleFrame("c1", frame(t, EvBusEndShift, EndShiftPayload{PlateNumber: "BUS1"}))

	waitFor(t, "shift-ended broadcast", func() bool { return c1.count(EvShiftEnded) == 1 })

	if got := h.Locations(); len(got) != 0 {
		t.Fatalf("end-shift must clear the location record, got %+v", got)
	}
	if stats := h.Stats(); stats.ActiveShifts != 0 {
		t.Fatalf("shift still counted after ending: %+v", stats)
	}
}

func TestDisconnectCascade(t *testing.T) {
	h := newTestHub(t)
	c1 := connect(t, h, "c1")
	c2 := connect(t, h, "c2")

	h.HandleFrame("c1", frame(t, EvBusLocation, validPayload("BUS3")))
	waitFor(t, "location ack", func() bool { return c1.count(EvLocationReceived) == 1 })

	h.Disconnect("c1", "read error")
	waitFor(t, "bus-disconnected broadcast", func() bool { return c2.count(EvBusDisconnected) == 1 })

	var gone BusDisconnected
	c2.last(t, EvBusDisconnected, &gone)
	if gone.PlateNumber != "BUS3" {
		t.Fatalf("unexpected plate: %+v", gone)
	}
	waitFor(t, "session close", c1.isClosed)
	if got := h.Locations(); len(got) != 0 {
		t.Fatalf("cascade must clear the owned record, got %+v", got)
	}

	// A second disconnect for the same session must change nothing.
	h.Disconnect("c1", "read error")
	barrier(t, h, "c2", c2)
	if n := c2.count(EvBusDisconnected); n != 1 {
		t.Fatalf("duplicate disconnect produced %d bus-disconnected events, want 1", n)
	}
	if stats := h.Stats(); stats.ConnectedClients != 1 {
		t.Fatalf("unexpected client count: %+v", stats)
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	h := newTestHub(t)
	c1 := connect(t, h, "c1")
	c2 := connect(t, h, "c2")

	h.HandleFrame("c1", []byte(`{"event": "bus-location", "data": {`))
	h.HandleFrame("c1", frame(t, EvBusLocation, map[string]any{"plateNumber": "BUS1"})) // no coordinates
	h.HandleFrame("c1", frame(t, "telemetry", struct{}{}))                              // unknown event
	barrier(t, h, "c1", c1)

	if c2.count(EvLocationUpdate) != 0 {
		t.Fatal("malformed location must not be broadcast")
	}
	if got := h.Locations(); len(got) != 0 {
		t.Fatalf("malformed location must not be stored, got %+v", got)
	}

	// The session survives its own bad frames.
	h.HandleFrame("c1", frame(t, EvBusLocation, validPayload("BUS1")))
	waitFor(t, "recovery ack", func() bool { return c1.count(EvLocationReceived) == 1 })
}

func TestOrphanFramesAreDropped(t *testing.T) {
	h := newTestHub(t)
	c1 := connect(t, h, "c1")

	h.HandleFrame("ghost", frame(t, EvBusLocation, validPayload("BUS1")))
	barrier(t, h, "c1", c1)

	if c1.count(EvLocationUpdate) != 0 {
		t.Fatal("frames from unregistered connections must be dropped")
	}
	if got := h.Locations(); len(got) != 0 {
		t.Fatalf("orphan location stored: %+v", got)
	}
}

func TestGetBusLocation(t *testing.T) {
	h := newTestHub(t)
	c1 := connect(t, h, "c1")
	c2 := connect(t, h, "c2")

	h.HandleFrame("c1", frame(t, EvBusLocation, validPayload("BUS1")))
	waitFor(t, "location ack", func() bool { return c1.count(EvLocationReceived) == 1 })

	h.HandleFrame("c2", frame(t, EvGetBusLocation, PlatePayload{PlateNumber: "bus1"}))
	waitFor(t, "lookup response", func() bool { return c2.count(EvLocationResponse) == 1 })

	var resp LocationResponse
	c2.last(t, EvLocationResponse, &resp)
	if !resp.Found || resp.Location == nil || resp.Location.PlateNumber != "BUS1" {
		t.Fatalf("unexpected lookup response: %+v", resp)
	}

	h.HandleFrame("c2", frame(t, EvGetBusLocation, PlatePayload{PlateNumber: "BUS9"}))
	waitFor(t, "miss response", func() bool { return c2.count(EvLocationResponse) == 2 })

	c2.last(t, EvLocationResponse, &resp)
	if resp.Found || resp.Location != nil || resp.PlateNumber != "BUS9" {
		t.Fatalf("unexpected miss response: %+v", resp)
	}
}

func TestSlowConsumerIsDropped(t *testing.T) {
	h := newTestHub(t)
	c1 := connect(t, h, "c1")

	slow := &fakeSession{full: true}
	h.Connect("c-slow", slow)
	barrier(t, h, "c1", c1)
	if h.Stats().ConnectedClients != 2 {
		t.Fatalf("slow session should still be registered, stats: %+v", h.Stats())
	}

	// First broadcast that fails to reach the slow session evicts it.
	h.HandleFrame("c1", frame(t, EvBusLocation, validPayload("BUS1")))
	waitFor(t, "slow session eviction", slow.isClosed)

	if stats := h.Stats(); stats.ConnectedClients != 1 {
		t.Fatalf("slow session still counted: %+v", stats)
	}
	if c1.count(EvLocationReceived) != 1 {
		t.Fatal("healthy sender must still get its ack")
	}
}

func TestShutdownClosesEverySession(t *testing.T) {
	h := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	c1 := connect(t, h, "c1")
	c2 := connect(t, h, "c2")

	cancel()
	waitFor(t, "sessions closed", func() bool { return c1.isClosed() && c2.isClosed() })

	// Commands after shutdown must not block.
	done := make(chan struct{})
	go func() {
		h.Disconnect("c1", "late")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked after shutdown")
	}
}
