package drivers

import (
	"context"
	"strings"
	"testing"
)

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertPinSlices(t testing.TB, got, want []uint16) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("len(got) = %d len(want) = %d", len(got), len(want))
		return
	}

	for key, val := range got {
		if want[key] != val {
			t.Errorf("for key [%d] got: %d want: %d", key, val, want[key])
		}
	}
}

func TestMockIoSetup(t *testing.T) {
	md := MockIoDriver{}

	assertBools(t, md.IsReady(), false)

	md.Setup(context.Background(), []uint16{1, 3, 5}, []uint16{2, 4})
	assertBools(t, md.IsReady(), true)
}

func TestMockIoGetAllIo(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{1, 3, 5}, []uint16{2, 4})

	inputs, outputs := md.GetAllIo()
	assertPinSlices(t, inputs, []uint16{1, 3, 5})
	assertPinSlices(t, outputs, []uint16{2, 4})
}

func TestMockInputEdgeSubscription(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), []uint16{7}, nil)

	input, err := md.GetMockInput(7)
	if err != nil {
		t.Fatalf("GetMockInput returned err: %v", err)
	}

	var edges []bool
	err = input.SubscribeToEdges(EdgeFunc(func(pin uint16, active bool) {
		if pin != 7 {
			t.Errorf("edge reported wrong pin: %d", pin)
		}
		edges = append(edges, active)
	}))
	if err != nil {
		t.Fatalf("SubscribeToEdges returned err: %v", err)
	}

	input.Set(true)
	input.Set(true) // no edge without a change
	input.Set(false)

	if len(edges) != 2 || edges[0] != true || edges[1] != false {
		t.Errorf("got edges %v want [true false]", edges)
	}

	state, _ := input.GetState()
	assertBools(t, state, false)
}

func TestMockInputRejectsNilListener(t *testing.T) {
	in := &MockInput{}
	if err := in.SubscribeToEdges(nil); err == nil {
		t.Error("expected error for nil listener")
	}
}

func TestMockOutputDuty(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), nil, []uint16{3})

	output, err := md.GetPwmOutput(3)
	if err != nil {
		t.Fatalf("GetPwmOutput returned err: %v", err)
	}

	if err := output.SetDuty(0.75); err != nil {
		t.Fatalf("SetDuty returned err: %v", err)
	}
	if output.GetDuty() != 0.75 {
		t.Errorf("got duty %f want 0.75", output.GetDuty())
	}

	if err := output.SetDuty(1.5); err == nil {
		t.Error("expected error for duty out of range")
	}
}

func TestMockOutputSetState(t *testing.T) {
	out := &MockOutput{}

	want := true
	out.Set(want)
	got, _ := out.GetState()
	assertBools(t, got, want)

	want = false
	out.Set(want)
	got, _ = out.GetState()
	assertBools(t, got, want)
}

func TestMockMonitorStateChanges(t *testing.T) {
	md := MockIoDriver{}
	md.Setup(context.Background(), nil, []uint16{2})

	var buf strings.Builder
	md.MonitorStateChanges(&buf)

	out, _ := md.GetOutput(2)
	out.Set(true)
	out.Set(true)

	if !strings.Contains(buf.String(), "[pin 2]") {
		t.Errorf("expected state change report, got %q", buf.String())
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("repeated identical writes must not report twice: %q", buf.String())
	}
}
