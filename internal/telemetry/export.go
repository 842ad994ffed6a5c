// internal/telemetry/export.go
package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"go.uber.org/zap"
)

// ExportResult describes what one export consumed.
type ExportResult struct {
	Rows   int
	Chunks []string
}

// Export writes every sample of the session as CSV: chunk files in
// creation order, then the archive window, then the recent window.
// Chunks still being flushed are waited for; a chunk whose write failed
// is exported from the batch it kept. Export clears nothing; pass the
// result to ClearChunks once the output is safe.
func (s *Sampler) Export(w io.Writer) (ExportResult, error) {
	s.mu.Lock()
	chunks := slices.Clone(s.chunks)
	archived := slices.Clone(s.archived)
	recent := s.recent.items()
	s.mu.Unlock()

	out := newExportWriter(w, s.schema)
	if err := out.header(); err != nil {
		return ExportResult{}, err
	}

	res := ExportResult{Chunks: make([]string, 0, len(chunks))}
	for _, c := range chunks {
		if c.wait() != nil {
			s.log.Warn("chunk not on disk, exported from memory", zap.String("path", c.path))
			if err := out.samples(c.batch); err != nil {
				return res, err
			}
			res.Chunks = append(res.Chunks, c.path)
			continue
		}
		err := out.chunk(c.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			s.log.Warn("chunk missing, skipped", zap.String("path", c.path))
		case err != nil:
			return res, err
		}
		res.Chunks = append(res.Chunks, c.path)
	}

	if err := out.samples(archived); err != nil {
		return res, err
	}
	if err := out.samples(recent); err != nil {
		return res, err
	}
	if err := out.flush(); err != nil {
		return res, err
	}

	res.Rows = out.rows
	return res, nil
}

// ClearChunks drops the listed chunks from the session's chunk list.
// Chunks created after the export that produced paths are kept.
func (s *Sampler) ClearChunks(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = slices.DeleteFunc(s.chunks, func(c *chunk) bool {
		return slices.Contains(paths, c.path)
	})
}

// Merge concatenates chunk files of one kind into a single export.
func Merge(w io.Writer, schema Schema, paths ...string) (int, error) {
	out := newExportWriter(w, schema)
	if err := out.header(); err != nil {
		return 0, err
	}
	for _, p := range paths {
		if err := out.chunk(p); err != nil {
			return out.rows, err
		}
	}
	return out.rows, out.flush()
}

// ---- CSV plumbing ----

type exportWriter struct {
	w      *csv.Writer
	schema Schema
	rows   int
}

func newExportWriter(w io.Writer, schema Schema) *exportWriter {
	return &exportWriter{w: csv.NewWriter(w), schema: schema}
}

func (e *exportWriter) header() error {
	if err := e.w.Write(e.schema.ExportHeader()); err != nil {
		return fmt.Errorf("telemetry: export: %w", err)
	}
	return nil
}

func (e *exportWriter) samples(ss []Sample) error {
	for _, smp := range ss {
		if err := e.w.Write(e.schema.ExportRow(smp)); err != nil {
			return fmt.Errorf("telemetry: export: %w", err)
		}
		e.rows++
	}
	return nil
}

func (e *exportWriter) chunk(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telemetry: open chunk: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	head, err := r.Read()
	if err != nil {
		return fmt.Errorf("telemetry: chunk %s header: %w", path, err)
	}
	if !slices.Equal(head, e.schema.ChunkHeader) {
		return fmt.Errorf("telemetry: chunk %s does not match the %s schema", path, e.schema.Kind)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("telemetry: chunk %s: %w", path, err)
		}
		smp, err := e.schema.ParseChunkRow(row)
		if err != nil {
			return fmt.Errorf("telemetry: chunk %s: %w", path, err)
		}
		if err := e.samples([]Sample{smp}); err != nil {
			return err
		}
	}
}

func (e *exportWriter) flush() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return fmt.Errorf("telemetry: export: %w", err)
	}
	return nil
}
