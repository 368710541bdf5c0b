package portal

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the service sits on the device LAN; clients are the local webapp
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (p *Portal) routes() http.Handler {
	router := httprouter.New()
	router.GET("/ws", p.handleWs)
	router.GET("/status", p.handleStatus)
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(p.metrics.registry, promhttp.HandlerOpts{}))
	return router
}

// handleWs runs the lifecycle of one subscriber: upgrade, register, send the
// initial-state snapshot, then read commands until the stream ends.
func (p *Portal) handleWs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	sub := p.hub.attach(conn)

	// a failed snapshot is logged but the subscriber stays registered for
	// future broadcasts
	if err := p.sendSnapshot(sub); err != nil {
		p.logger.Warn("failed to send initial state snapshot", "err", err)
	}

	defer p.hub.remove(sub)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				p.logger.Warn("client read error", "err", err)
			}
			return
		}
		p.dispatchCommand(raw)
	}
}

// sendSnapshot converges a late joiner to current truth: the state of every
// value-reporting toggle, then the accepted analog value when that producer
// is up. Runs before any live events reach this subscriber.
func (p *Portal) sendSnapshot(sub *subscriber) error {
	for _, line := range p.inputs {
		if !line.cfg.isToggle() || !line.cfg.ReportState || !line.Available() {
			continue
		}
		state, known := p.SwitchState(line.cfg.Name)
		if !known {
			continue
		}
		if err := sub.sendEvent(Event{Type: line.cfg.Event, Value: state}); err != nil {
			return err
		}
	}

	if value, _, available := p.analogState(); available {
		if err := sub.sendEvent(Event{Type: EventZoomDial, Value: value}); err != nil {
			return err
		}
	}

	return nil
}

// StatusReport is the diagnostic surface served on /status.
type StatusReport struct {
	Name     string            `json:"name,omitempty"`
	Clients  int               `json:"clients"`
	Drivers  map[string]bool   `json:"drivers"`
	Inputs   []InputStatus     `json:"inputs"`
	Switches map[string]string `json:"switches"`
	Analog   *AnalogStatus     `json:"analog,omitempty"`
	Led      *LedStatus        `json:"led,omitempty"`
}

type InputStatus struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
}

type AnalogStatus struct {
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LedStatus struct {
	Duty   float64 `json:"duty"`
	Fading bool    `json:"fading"`
}

// Status assembles the current service state.
func (p *Portal) Status() StatusReport {
	report := StatusReport{
		Name:     p.Name,
		Clients:  p.hub.Count(),
		Drivers:  make(map[string]bool),
		Switches: make(map[string]string),
	}

	for name, driver := range p.ioDrivers {
		report.Drivers[name] = driver.IsReady()
	}

	for _, line := range p.inputs {
		report.Inputs = append(report.Inputs, InputStatus{
			Name:      line.cfg.Name,
			Kind:      line.cfg.Kind,
			Available: line.Available(),
		})
		if line.cfg.isToggle() {
			if state, known := p.SwitchState(line.cfg.Name); known {
				report.Switches[line.cfg.Name] = state
			}
		}
	}

	if value, at, available := p.analogState(); available {
		report.Analog = &AnalogStatus{Value: value, UpdatedAt: at}
	}

	if p.led != nil {
		report.Led = &LedStatus{Duty: p.led.Duty(), Fading: p.led.Fading()}
	}

	return report
}

func (p *Portal) handleStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p.Status()); err != nil {
		p.logger.Warn("failed to encode status", "err", err)
	}
}
