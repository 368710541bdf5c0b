package portal

import (
	"context"
	"testing"
	"time"

	"github.com/ahadik/photo-portal-device/drivers"
)

func newTestLed(t *testing.T, steps int) (*LedController, drivers.PwmOutput) {
	t.Helper()

	driver := &drivers.MockIoDriver{}
	driver.Setup(context.Background(), nil, []uint16{testPinLed})
	out, err := driver.GetPwmOutput(testPinLed)
	if err != nil {
		t.Fatalf("failed to get mock pwm output: %v", err)
	}

	return newLedController(out, 2*time.Second, steps, testLogger()), out
}

func TestLedSetCaseInsensitiveAndIdempotent(t *testing.T) {
	led, out := newTestLed(t, 4)

	for _, value := range []string{"on", "ON", "On"} {
		if err := led.Set(value); err != nil {
			t.Fatalf("Set(%q) returned error: %v", value, err)
		}
		assertFloats(t, out.GetDuty(), 1.0)
	}

	if err := led.Set("off"); err != nil {
		t.Fatalf("Set(off) returned error: %v", err)
	}
	assertFloats(t, out.GetDuty(), 0.0)
}

func TestLedSetRejectsUnknownValue(t *testing.T) {
	led, out := newTestLed(t, 4)

	if err := led.Set("MAYBE"); err == nil {
		t.Error("expected error for invalid led value")
	}
	assertFloats(t, out.GetDuty(), 0.0)
}

func TestLedFadeTriangle(t *testing.T) {
	led, _ := newTestLed(t, 2)
	led.BeginPulse()

	wasFading := false
	wantDuties := []float64{0.5, 1.0, 0.5, 0.0, 0.5, 1.0}
	for i, want := range wantDuties {
		duty, write := led.step(&wasFading)
		assertBools(t, write, true)
		if duty != want {
			t.Fatalf("step %d: got duty %f want %f", i, duty, want)
		}
	}
}

func TestLedModeSwitchOnStepBoundary(t *testing.T) {
	led, out := newTestLed(t, 2)

	if err := led.Set("ON"); err != nil {
		t.Fatal(err)
	}

	// fading starts at the next step, not immediately
	led.BeginPulse()
	assertFloats(t, out.GetDuty(), 1.0)

	wasFading := false
	duty, write := led.step(&wasFading)
	assertBools(t, write, true)
	assertFloats(t, duty, 0.5)

	// leaving fade mode restores the last static duty on the next step
	led.EndPulse()
	duty, write = led.step(&wasFading)
	assertBools(t, write, true)
	assertFloats(t, duty, 1.0)

	// steady static mode writes nothing
	_, write = led.step(&wasFading)
	assertBools(t, write, false)
}

func TestLedDirectCommandDuringFadeWins(t *testing.T) {
	led, out := newTestLed(t, 2)
	led.BeginPulse()

	wasFading := false
	led.step(&wasFading)

	// last writer within the step wins until the stepper runs again
	if err := led.Set("OFF"); err != nil {
		t.Fatal(err)
	}
	assertFloats(t, out.GetDuty(), 0.0)
}

func TestLedCloseForcesZero(t *testing.T) {
	led, out := newTestLed(t, 4)

	if err := led.Set("ON"); err != nil {
		t.Fatal(err)
	}
	led.BeginPulse()

	if err := led.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	assertFloats(t, out.GetDuty(), 0.0)
	assertBools(t, led.Fading(), false)
}
