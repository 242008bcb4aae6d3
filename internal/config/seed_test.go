package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func TestLoadRouteSeed(t *testing.T) {
	path := writeSeed(t, `
routes:
  - name: Ruta 1
    description: Centro - Norte
    color: "#3b82f6"
    fare: 2800
    stops:
      - name: Parque Santander
        lat: 7.1139
        lng: -73.1198
      - name: Terminal Norte
        lat: 7.1412
        lng: -73.1254
  - name: Ruta 2
    fare: 2500
`)

	routes, err := LoadRouteSeed(path)
	if err != nil {
		t.Fatalf("LoadRouteSeed: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("got %d routes, want 2", len(routes))
	}

	r := routes[0].Route()
	if r.Name != "Ruta 1" || r.Color != "#3b82f6" || r.Fare != 2800 {
		t.Fatalf("unexpected route: %+v", r)
	}
	if len(r.Stops) != 2 || r.Stops[0].Name != "Parque Santander" || r.Stops[1].Longitude != -73.1254 {
		t.Fatalf("unexpected stops: %+v", r.Stops)
	}
	if routes[1].Color != "" {
		t.Fatalf("color should be optional, got %q", routes[1].Color)
	}
}

func TestLoadRouteSeedRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing routes key", `other: []`},
		{"nameless route", "routes:\n  - fare: 2500\n"},
		{"bad color", "routes:\n  - name: Ruta 1\n    color: reddish\n"},
		{"negative fare", "routes:\n  - name: Ruta 1\n    fare: -5\n"},
		{"not yaml", `{{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadRouteSeed(writeSeed(t, tt.content)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadRouteSeedMissingFile(t *testing.T) {
	if _, err := LoadRouteSeed(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
