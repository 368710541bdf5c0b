package portal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultWiring(t *testing.T) {
	p := Default()

	assertStrings(t, p.Listen, "localhost:8765")
	assertInts(t, len(p.Inputs), 4)
	if p.Led == nil || p.Led.Pin != DefaultPinLed {
		t.Error("default config must place the led on the reference pin")
	}
	if p.Gpio == nil {
		t.Error("default config must include the gpio driver")
	}
	if p.Ads1115 == nil {
		t.Error("default config must include the analog converter")
	}

	for _, cfg := range p.Inputs {
		if err := cfg.validate(); err != nil {
			t.Errorf("default input %s invalid: %v", cfg.Name, err)
		}
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	assertStrings(t, p.Listen, "localhost:8765")
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"Name": "test-portal", "Listen": "0.0.0.0:9000", "ChangeThreshold": 0.05}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	assertStrings(t, p.Name, "test-portal")
	assertStrings(t, p.Listen, "0.0.0.0:9000")
	assertFloats(t, p.ChangeThreshold, 0.05)

	// untouched fields keep their defaults
	assertInts(t, len(p.Inputs), 4)
}

func TestLoadRejectsInvalidJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{broken`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid json config")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEventPayloadShape(t *testing.T) {
	cases := []struct {
		name  string
		event Event
		want  string
	}{
		{"bare", Event{Type: EventLikeButton}, `{"type":"LIKE_BUTTON"}`},
		{"toggle", Event{Type: EventMapToggle, Value: SwitchOn}, `{"type":"MAP_TOGGLE","value":"ON"}`},
		{"dial", Event{Type: EventZoomDial, Value: 0.42}, `{"type":"ZOOM_DIAL","value":0.42}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := json.Marshal(tc.event)
			if err != nil {
				t.Fatal(err)
			}
			assertStrings(t, string(payload), tc.want)
		})
	}
}
