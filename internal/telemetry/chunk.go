// internal/telemetry/chunk.go
package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// chunk is one archive batch on its way to disk. done closes once the
// write has finished; err and batch are valid after that. batch is only
// kept when the write failed, so the samples can still be exported.
type chunk struct {
	path  string
	done  chan struct{}
	err   error
	batch []Sample
}

func newChunk(path string) *chunk {
	return &chunk{path: path, done: make(chan struct{})}
}

func (c *chunk) wait() error {
	<-c.done
	return c.err
}

func (s *Sampler) chunkPrefix() string {
	return string(s.schema.Kind) + "_sensor_data_"
}

// chunkPath names a chunk by kind, flush instant and session sequence.
func (s *Sampler) chunkPath(seq int) string {
	name := fmt.Sprintf("%s%d_%04d.csv", s.chunkPrefix(), s.clock.Now().Unix(), seq)
	return filepath.Join(s.cfg.ChunkDir, name)
}

// purgeChunks removes chunk files left by earlier sessions of this kind.
func (s *Sampler) purgeChunks() {
	stale, err := filepath.Glob(filepath.Join(s.cfg.ChunkDir, s.chunkPrefix()+"*.csv"))
	if err != nil {
		return
	}
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.log.Warn("remove stale chunk", zap.String("path", p), zap.Error(err))
		}
	}
	if len(stale) > 0 {
		s.log.Debug("stale chunks removed", zap.Int("count", len(stale)))
	}
}

// flush writes batch to c.path. It owns batch; nothing else references it.
func (s *Sampler) flush(c *chunk, batch []Sample) {
	defer close(c.done)

	c.err = writeChunk(c.path, s.schema, batch)
	if c.err != nil {
		c.batch = batch
		s.log.Error("chunk flush failed, batch kept in memory",
			zap.String("path", c.path),
			zap.Int("samples", len(batch)),
			zap.Error(c.err),
		)
		s.mu.Lock()
		s.lastErr = c.err
		s.mu.Unlock()
		return
	}
	s.log.Info("chunk flushed", zap.String("path", c.path), zap.Int("samples", len(batch)))
}

func writeChunk(path string, schema Schema, batch []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("telemetry: create chunk: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(schema.ChunkHeader); err != nil {
		f.Close()
		return fmt.Errorf("telemetry: write chunk: %w", err)
	}
	for _, smp := range batch {
		if err := w.Write(schema.ChunkRow(smp)); err != nil {
			f.Close()
			return fmt.Errorf("telemetry: write chunk: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("telemetry: write chunk: %w", err)
	}
	return f.Close()
}
