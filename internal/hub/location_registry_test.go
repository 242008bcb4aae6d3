package hub

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type nopSender struct{}

func (nopSender) Send([]byte) bool { return true }
func (nopSender) Close()           {}

func newTestRegistries(t *testing.T, connIDs ...string) (*ConnRegistry, *LocationRegistry) {
	t.Helper()
	conns := NewConnRegistry(zap.NewNop())
	for _, id := range connIDs {
		if !conns.Register(newConnection(id, nopSender{})) {
			t.Fatalf("register %s failed", id)
		}
	}
	return conns, NewLocationRegistry(conns)
}

func floatPtr(v float64) *float64 { return &v }

func validPayload(plate string) LocationPayload {
	return LocationPayload{
		PlateNumber: plate,
		Lat:         floatPtr(7.12),
		Lng:         floatPtr(-73.12),
		Speed:       floatPtr(30),
	}
}

func TestUpsertValidation(t *testing.T) {
	_, locations := newTestRegistries(t, "c1")

	tests := []struct {
		name    string
		mutate  func(*LocationPayload)
		owner   string
		wantErr error
	}{
		{"empty plate", func(p *LocationPayload) { p.PlateNumber = "  " }, "c1", ErrInvalidLocation},
		{"missing lat", func(p *LocationPayload) { p.Lat = nil }, "c1", ErrInvalidLocation},
		{"lat too high", func(p *LocationPayload) { p.Lat = floatPtr(90.5) }, "c1", ErrInvalidLocation},
		{"lat too low", func(p *LocationPayload) { p.Lat = floatPtr(-91) }, "c1", ErrInvalidLocation},
		{"lng too high", func(p *LocationPayload) { p.Lng = floatPtr(181) }, "c1", ErrInvalidLocation},
		{"negative speed", func(p *LocationPayload) { p.Speed = floatPtr(-1) }, "c1", ErrInvalidLocation},
		{"heading at 360", func(p *LocationPayload) { p.Heading = floatPtr(360) }, "c1", ErrInvalidLocation},
		{"unknown owner", func(p *LocationPayload) {}, "ghost", ErrOrphanUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload("BUS1")
			tt.mutate(&p)
			_, err := locations.Upsert(p, tt.owner)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}
			if locations.Len() != 0 {
				t.Fatalf("rejected upsert must not store a record")
			}
		})
	}
}

func TestUpsertLastWriteWins(t *testing.T) {
	_, locations := newTestRegistries(t, "c1", "c2")

	p1 := validPayload("BUS1")
	first, err := locations.Upsert(p1, "c1")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	p2 := validPayload("bus1") // same plate, different case and writer
	p2.Lat = floatPtr(7.5)
	p2.Lng = floatPtr(-73.5)
	p2.Speed = floatPtr(45)
	second, err := locations.Upsert(p2, "c2")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if locations.Len() != 1 {
		t.Fatalf("expected a single record per plate, got %d", locations.Len())
	}
	rec, ok := locations.Get("BUS1")
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Latitude != 7.5 || rec.Longitude != -73.5 || rec.Speed != 45 {
		t.Fatalf("last write did not win: %+v", rec)
	}
	if rec.OwnerConnID != "c2" {
		t.Fatalf("ownership must transfer to the newest writer, got %s", rec.OwnerConnID)
	}
	if second.Seq <= first.Seq {
		t.Fatalf("arrival sequence must increase: %d then %d", first.Seq, second.Seq)
	}
}

func TestPlateNormalization(t *testing.T) {
	_, locations := newTestRegistries(t, "c1")

	if _, err := locations.Upsert(validPayload("  bus1  "), "c1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rec, ok := locations.Get("bus1")
	if !ok {
		t.Fatal("lookup with different case failed")
	}
	if rec.PlateNumber != "BUS1" {
		t.Fatalf("plate not normalized: %q", rec.PlateNumber)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	_, locations := newTestRegistries(t, "c1")

	if _, err := locations.Upsert(validPayload("BUS1"), "c1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, ok := locations.Remove("BUS1"); !ok {
		t.Fatal("first remove should report the record")
	}
	if _, ok := locations.Remove("BUS1"); ok {
		t.Fatal("second remove must be a no-op")
	}
}

func TestRemoveByOwner(t *testing.T) {
	_, locations := newTestRegistries(t, "c1", "c2")

	for _, plate := range []string{"BUS1", "BUS2"} {
		if _, err := locations.Upsert(validPayload(plate), "c1"); err != nil {
			t.Fatalf("upsert %s: %v", plate, err)
		}
	}
	if _, err := locations.Upsert(validPayload("BUS3"), "c2"); err != nil {
		t.Fatalf("upsert BUS3: %v", err)
	}

	removed := locations.RemoveByOwner("c1")
	if len(removed) != 2 || removed[0].PlateNumber != "BUS1" || removed[1].PlateNumber != "BUS2" {
		t.Fatalf("unexpected cascade result: %+v", removed)
	}
	for _, rec := range locations.Snapshot() {
		if rec.OwnerConnID == "c1" {
			t.Fatalf("record still owned by removed connection: %+v", rec)
		}
	}
	if locations.Len() != 1 {
		t.Fatalf("expected only c2's record to survive, got %d", locations.Len())
	}

	if again := locations.RemoveByOwner("c1"); len(again) != 0 {
		t.Fatalf("repeat cascade must remove nothing, got %+v", again)
	}
}

// Snapshots taken while writers are racing must never expose a record whose
// fields come from two different writes. Writers keep lng == -lat as the
// consistency witness.
func TestSnapshotConsistencyUnderConcurrentWrites(t *testing.T) {
	conns := NewConnRegistry(zap.NewNop())
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		conns.Register(newConnection(id, nopSender{}))
	}
	locations := NewLocationRegistry(conns)

	const writesPerWriter = 500
	var wg sync.WaitGroup

	for w, connID := range []string{"c1", "c2", "c3", "c4"} {
		wg.Add(1)
		go func(w int, connID string) {
			defer wg.Done()
			for i := 0; i < writesPerWriter; i++ {
				lat := float64(i%90) + float64(w)/10
				p := LocationPayload{
					PlateNumber: "BUS1",
					Lat:         floatPtr(lat),
					Lng:         floatPtr(-lat),
					Speed:       floatPtr(float64(i % 100)),
				}
				if _, err := locations.Upsert(p, connID); err != nil {
					t.Errorf("upsert: %v", err)
					return
				}
			}
		}(w, connID)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writesPerWriter; i++ {
			for _, rec := range locations.Snapshot() {
				if rec.Longitude != -rec.Latitude {
					t.Errorf("half-applied record observed: lat=%v lng=%v", rec.Latitude, rec.Longitude)
					return
				}
			}
		}
	}()

	wg.Wait()
}
