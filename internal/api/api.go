// internal/api/api.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tamzrod/clinostat/internal/control"
	"github.com/tamzrod/clinostat/internal/link"
	"github.com/tamzrod/clinostat/internal/motion"
	"github.com/tamzrod/clinostat/internal/state"
	"github.com/tamzrod/clinostat/internal/status"
	"github.com/tamzrod/clinostat/internal/telemetry"
)

// Controller is the operator surface. *control.Controller implements it.
type Controller interface {
	State() state.Snapshot
	ToggleMotor(id state.MotorID) (state.Snapshot, error)
	ToggleDirection(id state.MotorID) (state.Snapshot, error)
	SetSpeed(id state.MotorID, rpm float64) (state.Snapshot, error)
	ToggleLink() (bool, error)
	Beep(ms int) error
	SetOffset(name string, value float64) (state.Offsets, error)

	SendLED(cmd link.LEDCommand) error
	ShowLEDs() error
	TurnOffAllLights() error
	ResetLEDs() error
	LEDCommands() []link.LEDCommand
	SavePreset(n int) error
	LoadPreset(n int) error
	PresetMinutes() (float64, float64)
	ToggleLightingCycle(p1, p2 float64) (bool, error)
	LightingCycle() control.CycleStatus

	ExportSettings() ([]byte, error)
	ImportSettings(raw []byte) error
}

// Sampler is one telemetry stream. *telemetry.Sampler implements it.
type Sampler interface {
	Schema() telemetry.Schema
	Toggle() (bool, error)
	Status() status.Snapshot
	Recent() []telemetry.Sample
	Export(w io.Writer) (telemetry.ExportResult, error)
	ClearChunks(paths []string)
}

// Server routes HTTP requests onto the controller and samplers.
type Server struct {
	ctl      Controller
	samplers map[telemetry.Kind]Sampler
	log      *zap.Logger

	// spoolDir holds exports while they are built; empty is os.TempDir.
	spoolDir string
}

func New(ctl Controller, samplers []Sampler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{ctl: ctl, samplers: make(map[telemetry.Kind]Sampler, len(samplers)), log: log}
	for _, smp := range samplers {
		s.samplers[smp.Schema().Kind] = smp
	}
	return s
}

// Handler returns a router with every endpoint registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.LoadAPI(r)
	return r
}

// LoadAPI registers all REST endpoints under /api.
func (s *Server) LoadAPI(r *mux.Router) {
	sr := r.PathPrefix("/api").Subrouter()

	sr.HandleFunc("/state", s.getState).Methods("GET")
	sr.HandleFunc("/motors/{id}/toggle", s.toggleMotor).Methods("POST")
	sr.HandleFunc("/motors/{id}/direction", s.toggleDirection).Methods("POST")
	sr.HandleFunc("/motors/{id}/speed", s.setSpeed).Methods("PUT").Queries("rpm", "{rpm}")
	sr.HandleFunc("/link/toggle", s.toggleLink).Methods("POST")
	sr.HandleFunc("/offsets/{name}", s.setOffset).Methods("PUT").Queries("value", "{value}")
	sr.HandleFunc("/beep", s.beep).Methods("POST").Queries("ms", "{ms}")

	sr.HandleFunc("/leds", s.listLEDs).Methods("GET")
	sr.HandleFunc("/leds", s.sendLED).Methods("POST")
	sr.HandleFunc("/leds/show", s.showLEDs).Methods("POST")
	sr.HandleFunc("/leds/off", s.ledsOff).Methods("POST")
	sr.HandleFunc("/leds/reset", s.resetLEDs).Methods("POST")
	sr.HandleFunc("/presets/{n:[0-9]+}/save", s.savePreset).Methods("POST")
	sr.HandleFunc("/presets/{n:[0-9]+}/load", s.loadPreset).Methods("POST")
	sr.HandleFunc("/lighting/cycle", s.getCycle).Methods("GET")
	sr.HandleFunc("/lighting/cycle", s.toggleCycle).Methods("POST")

	sr.HandleFunc("/config", s.getConfig).Methods("GET")
	sr.HandleFunc("/config", s.putConfig).Methods("PUT")

	sr.HandleFunc("/samplers", s.listSamplers).Methods("GET")
	sr.HandleFunc("/samplers/{kind}", s.samplerStatus).Methods("GET")
	sr.HandleFunc("/samplers/{kind}/recent", s.samplerRecent).Methods("GET")
	sr.HandleFunc("/samplers/{kind}/toggle", s.toggleSampler).Methods("POST")
	sr.HandleFunc("/samplers/{kind}/export", s.exportSampler).Methods("GET")
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, control.ErrUnknownMotor),
		errors.Is(err, control.ErrUnknownOffset),
		errors.Is(err, control.ErrUnknownPreset),
		errors.Is(err, control.ErrNoPreset):
		code = http.StatusNotFound
	case errors.Is(err, motion.ErrSpeedOutOfRange),
		errors.Is(err, control.ErrInvalidDuration),
		errors.Is(err, link.ErrFraming):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, control.ErrCycleRunning):
		code = http.StatusConflict
	case errors.Is(err, link.ErrTransport):
		code = http.StatusBadGateway
	}
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), code)
}

func parseMotor(r *http.Request) (state.MotorID, bool) {
	switch v := mux.Vars(r)["id"]; v {
	case "frame":
		return state.FrameMotor, true
	case "core":
		return state.CoreMotor, true
	default:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		id := state.MotorID(n)
		return id, id.Valid()
	}
}

func queryFloat(r *http.Request, key string) (float64, bool) {
	v, err := strconv.ParseFloat(mux.Vars(r)[key], 64)
	return v, err == nil
}

func (s *Server) sampler(w http.ResponseWriter, r *http.Request) (Sampler, bool) {
	smp, ok := s.samplers[telemetry.Kind(mux.Vars(r)["kind"])]
	if !ok {
		http.Error(w, "Unknown sampler", http.StatusNotFound)
	}
	return smp, ok
}
