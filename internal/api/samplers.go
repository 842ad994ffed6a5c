// internal/api/samplers.go
package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/clinostat/internal/status"
)

func (s *Server) listSamplers(w http.ResponseWriter, r *http.Request) {
	out := make([]status.Snapshot, 0, len(s.samplers))
	for _, smp := range s.samplers {
		out = append(out, smp.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	writeJSON(w, out)
}

func (s *Server) samplerStatus(w http.ResponseWriter, r *http.Request) {
	smp, ok := s.sampler(w, r)
	if !ok {
		return
	}
	writeJSON(w, smp.Status())
}

func (s *Server) samplerRecent(w http.ResponseWriter, r *http.Request) {
	smp, ok := s.sampler(w, r)
	if !ok {
		return
	}
	schema := smp.Schema()
	recent := smp.Recent()

	out := make([]map[string]float64, len(recent))
	for i, sample := range recent {
		out[i] = schema.Record(sample)
	}
	writeJSON(w, out)
}

func (s *Server) toggleSampler(w http.ResponseWriter, r *http.Request) {
	smp, ok := s.sampler(w, r)
	if !ok {
		return
	}
	running, err := smp.Toggle()
	if err != nil {
		// sensor missing at start
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]bool{"sampling": running})
}

// exportSampler streams the merged CSV. The export is spooled to a temp
// file first so a failure never leaves a truncated download, and only
// the chunks it covered are forgotten afterwards.
func (s *Server) exportSampler(w http.ResponseWriter, r *http.Request) {
	smp, ok := s.sampler(w, r)
	if !ok {
		return
	}
	kind := smp.Schema().Kind

	f, err := os.CreateTemp(s.spoolDir, string(kind)+"-export-*.csv")
	if err != nil {
		s.writeError(w, fmt.Errorf("api: export spool: %w", err))
		return
	}
	defer func() {
		f.Close()
		os.Remove(f.Name())
	}()

	res, err := smp.Export(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	size, err := f.Seek(0, io.SeekCurrent)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		s.writeError(w, fmt.Errorf("api: export spool: %w", err))
		return
	}

	name := fmt.Sprintf("%s_sensor_data_%s.csv", kind, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, f); err != nil {
		s.log.Warn("export write failed", zap.String("kind", string(kind)), zap.Error(err))
		return
	}

	smp.ClearChunks(res.Chunks)
	s.log.Info("exported",
		zap.String("kind", string(kind)),
		zap.Int("rows", res.Rows),
		zap.Int("chunks", len(res.Chunks)),
	)
}
