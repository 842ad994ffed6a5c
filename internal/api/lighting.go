// internal/api/lighting.go
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tamzrod/clinostat/internal/link"
)

// maxSettings bounds an imported settings document.
const maxSettings = 1 << 20

func (s *Server) listLEDs(w http.ResponseWriter, r *http.Request) {
	cmds := s.ctl.LEDCommands()
	if cmds == nil {
		cmds = []link.LEDCommand{}
	}
	writeJSON(w, cmds)
}

func (s *Server) sendLED(w http.ResponseWriter, r *http.Request) {
	var cmd link.LEDCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.End < cmd.Start {
		http.Error(w, "end_led before start_led", http.StatusBadRequest)
		return
	}
	if err := s.ctl.SendLED(cmd); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) showLEDs(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, s.ctl.ShowLEDs())
}

func (s *Server) ledsOff(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, s.ctl.TurnOffAllLights())
}

func (s *Server) resetLEDs(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, s.ctl.ResetLEDs())
}

func (s *Server) savePreset(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(mux.Vars(r)["n"])
	s.noContent(w, s.ctl.SavePreset(n))
}

func (s *Server) loadPreset(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(mux.Vars(r)["n"])
	s.noContent(w, s.ctl.LoadPreset(n))
}

func (s *Server) getCycle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctl.LightingCycle())
}

// toggleCycle starts or stops the preset cycle. preset_1 and preset_2
// are minutes; a missing one falls back to the stored duration.
func (s *Server) toggleCycle(w http.ResponseWriter, r *http.Request) {
	p1, p2 := s.ctl.PresetMinutes()
	q := r.URL.Query()
	for key, dst := range map[string]*float64{"preset_1": &p1, "preset_2": &p2} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, key+" must be a number of minutes", http.StatusBadRequest)
			return
		}
		*dst = f
	}

	running, err := s.ctl.ToggleLightingCycle(p1, p2)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"running": running})
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	raw, err := s.ctl.ExportSettings()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSettings))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !json.Valid(raw) {
		http.Error(w, "settings must be a JSON object", http.StatusBadRequest)
		return
	}
	s.noContent(w, s.ctl.ImportSettings(raw))
}

func (s *Server) noContent(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
