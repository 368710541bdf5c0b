package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ahadik/photo-portal-device/drivers"
)

func startTestServer(t *testing.T, p *Portal) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(p.routes())
	t.Cleanup(srv.Close)
	return srv
}

func dialWs(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("invalid event payload %q: %v", payload, err)
	}
	return event
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no further messages, got %q", payload)
	}
}

func TestConnectSnapshotConvergesLateJoiner(t *testing.T) {
	p := newTestPortal(t)
	p.bridge.Start()

	// settle hardware state before anyone connects
	mockInput(t, p, testPinMap).Set(true)
	nextEvent(t, p.bridge)
	p.acceptAnalog(0.42)

	srv := startTestServer(t, p)
	conn := dialWs(t, srv)

	first := readEvent(t, conn)
	assertStrings(t, string(first.Type), string(EventMapToggle))
	assertStrings(t, first.Value.(string), SwitchOn)

	second := readEvent(t, conn)
	assertStrings(t, string(second.Type), string(EventZoomDial))
	assertFloats(t, second.Value.(float64), 0.42)

	expectSilence(t, conn)
}

func TestConnectSnapshotCarriesAnalogDefault(t *testing.T) {
	p := &Portal{
		Inputs: []InputConfig{
			{Name: "MAP_TOGGLE", Pin: testPinMap, Kind: KindToggle, Event: EventMapToggle, ReportState: true, DriverName: "mock_driver"},
		},
		FakeDriver: &drivers.MockIoDriver{},
	}
	analog := &drivers.MockAnalogInput{}

	p.Setup(testLogger())
	p.InitDrivers(context.Background())
	if err := analog.Setup(context.Background()); err != nil {
		t.Fatalf("analog setup failed: %v", err)
	}
	p.SetAnalogInput(analog)
	if err := p.InitInputs(); err != nil {
		t.Fatalf("InitInputs failed: %v", err)
	}

	// the poller never runs: the snapshot still reports the power-on default
	srv := startTestServer(t, p)
	conn := dialWs(t, srv)

	first := readEvent(t, conn)
	assertStrings(t, string(first.Type), string(EventMapToggle))

	second := readEvent(t, conn)
	assertStrings(t, string(second.Type), string(EventZoomDial))
	assertFloats(t, second.Value.(float64), 0.0)

	expectSilence(t, conn)
}

func TestConnectSnapshotWithoutAnalog(t *testing.T) {
	p := newTestPortal(t)
	srv := startTestServer(t, p)
	conn := dialWs(t, srv)

	// only the toggle's power-on default arrives
	event := readEvent(t, conn)
	assertStrings(t, string(event.Type), string(EventMapToggle))
	assertStrings(t, event.Value.(string), SwitchOff)

	expectSilence(t, conn)
}

func TestBroadcastSurvivesDeadSubscriber(t *testing.T) {
	p := newTestPortal(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.hub.RunBroadcast(ctx, p.bridge)

	srv := startTestServer(t, p)
	connA := dialWs(t, srv)
	connB := dialWs(t, srv)
	readEvent(t, connA)
	readEvent(t, connB)

	connA.Close()

	// keep broadcasting until the dead subscriber's send fails and it is
	// dropped from the registry
	deadline := time.Now().Add(2 * time.Second)
	for p.hub.Count() > 1 && time.Now().Before(deadline) {
		p.bridge.Submit(Event{Type: EventLikeButton})
		time.Sleep(20 * time.Millisecond)
	}
	assertInts(t, p.hub.Count(), 1)

	// the surviving subscriber still receives broadcasts
	p.bridge.Submit(Event{Type: EventLikeButton})
	event := readEvent(t, connB)
	assertStrings(t, string(event.Type), string(EventLikeButton))
}

func TestCommandOverWebsocket(t *testing.T) {
	p := newTestPortal(t)
	srv := startTestServer(t, p)
	conn := dialWs(t, srv)
	readEvent(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"LED","value":"on"}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for p.led.Duty() != 1.0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assertFloats(t, p.led.Duty(), 1.0)

	// malformed input leaves the connection usable
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`garbage`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"LED","value":"off"}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline = time.Now().Add(time.Second)
	for p.led.Duty() != 0.0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assertFloats(t, p.led.Duty(), 0.0)
}

func TestStatusEndpoint(t *testing.T) {
	p := newTestPortal(t)
	srv := startTestServer(t, p)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()
	assertInts(t, resp.StatusCode, http.StatusOK)

	var report StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("invalid status payload: %v", err)
	}

	assertInts(t, report.Clients, 0)
	assertBools(t, report.Drivers["mock_driver"], true)
	assertInts(t, len(report.Inputs), 4)
	assertStrings(t, report.Switches["MAP_TOGGLE"], SwitchOff)
	if report.Led == nil {
		t.Fatal("status should report the led line")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	p := newTestPortal(t)
	srv := startTestServer(t, p)
	dialWs(t, srv)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	assertInts(t, resp.StatusCode, http.StatusOK)
}
