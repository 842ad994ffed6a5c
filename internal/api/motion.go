// internal/api/motion.go
package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tamzrod/clinostat/internal/state"
)

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctl.State())
}

func (s *Server) motorOp(w http.ResponseWriter, r *http.Request, op func(state.MotorID) (state.Snapshot, error)) {
	id, ok := parseMotor(r)
	if !ok {
		http.Error(w, "Unknown motor", http.StatusNotFound)
		return
	}
	snap, err := op(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) toggleMotor(w http.ResponseWriter, r *http.Request) {
	s.motorOp(w, r, s.ctl.ToggleMotor)
}

func (s *Server) toggleDirection(w http.ResponseWriter, r *http.Request) {
	s.motorOp(w, r, s.ctl.ToggleDirection)
}

func (s *Server) setSpeed(w http.ResponseWriter, r *http.Request) {
	rpm, ok := queryFloat(r, "rpm")
	if !ok || rpm < 0 {
		http.Error(w, "rpm must be a non-negative number", http.StatusBadRequest)
		return
	}
	s.motorOp(w, r, func(id state.MotorID) (state.Snapshot, error) {
		return s.ctl.SetSpeed(id, rpm)
	})
}

func (s *Server) toggleLink(w http.ResponseWriter, r *http.Request) {
	linked, err := s.ctl.ToggleLink()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"linked": linked})
}

func (s *Server) setOffset(w http.ResponseWriter, r *http.Request) {
	v, ok := queryFloat(r, "value")
	if !ok {
		http.Error(w, "value must be a number", http.StatusBadRequest)
		return
	}
	off, err := s.ctl.SetOffset(mux.Vars(r)["name"], v)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, off)
}

func (s *Server) beep(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.Atoi(mux.Vars(r)["ms"])
	if err != nil {
		http.Error(w, "ms must be an integer", http.StatusBadRequest)
		return
	}
	if err := s.ctl.Beep(ms); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
