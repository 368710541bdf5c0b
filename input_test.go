package portal

import (
	"testing"
)

func TestToggleEmitsOnEveryEdge(t *testing.T) {
	p := newTestPortal(t)
	p.bridge.Start()

	toggle := mockInput(t, p, testPinMap)
	toggle.Set(true)
	toggle.Set(false)
	toggle.Set(true)

	wantStates := []string{SwitchOn, SwitchOff, SwitchOn}
	for i, want := range wantStates {
		event := nextEvent(t, p.bridge)
		if event.Type != EventMapToggle {
			t.Fatalf("event %d: got type %s want %s", i, event.Type, EventMapToggle)
		}
		assertStrings(t, event.Value.(string), want)
	}

	state, _ := p.SwitchState("MAP_TOGGLE")
	assertStrings(t, state, SwitchOn)
}

func TestToggleWithoutStateReporting(t *testing.T) {
	p := newTestPortal(t)
	p.bridge.Start()

	mockInput(t, p, testPinMeta).Set(true)

	event := nextEvent(t, p.bridge)
	if event.Type != EventMetadataToggle {
		t.Fatalf("got type %s want %s", event.Type, EventMetadataToggle)
	}
	if event.Value != nil {
		t.Errorf("metadata toggle should not carry a value, got %v", event.Value)
	}

	// the table still tracks it for /status even though events carry no value
	state, known := p.SwitchState("METADATA_TOGGLE")
	assertBools(t, known, true)
	assertStrings(t, state, SwitchOn)
}

func TestMomentaryEmitsBareEventsOnBothEdges(t *testing.T) {
	p := newTestPortal(t)
	p.bridge.Start()

	button := mockInput(t, p, testPinLike)
	button.Set(true)
	button.Set(false)

	for i := 0; i < 2; i++ {
		event := nextEvent(t, p.bridge)
		if event.Type != EventLikeButton {
			t.Fatalf("event %d: got type %s want %s", i, event.Type, EventLikeButton)
		}
		if event.Value != nil {
			t.Errorf("momentary event should carry no value, got %v", event.Value)
		}
	}

	// buttons never enter the switch table
	if _, known := p.SwitchState("LIKE_BUTTON"); known {
		t.Error("momentary input must not appear in the switch state table")
	}
}

func TestHoldPulseDrivesLedFade(t *testing.T) {
	p := newTestPortal(t)
	p.bridge.Start()

	button := mockInput(t, p, testPinMessage)

	button.Set(true)
	assertBools(t, p.led.Fading(), true)

	button.Set(false)
	assertBools(t, p.led.Fading(), false)
}

func TestInputConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     InputConfig
		wantErr bool
	}{
		{"valid momentary", InputConfig{Name: "A", Kind: KindMomentary, Event: "A"}, false},
		{"valid toggle", InputConfig{Name: "B", Kind: "Toggle", Event: "B", ReportState: true}, false},
		{"missing name", InputConfig{Kind: KindMomentary, Event: "C"}, true},
		{"missing event", InputConfig{Name: "D", Kind: KindMomentary}, true},
		{"unknown kind", InputConfig{Name: "E", Kind: "tristate", Event: "E"}, true},
		{"momentary reporting state", InputConfig{Name: "F", Kind: KindMomentary, Event: "F", ReportState: true}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
