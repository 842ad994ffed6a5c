// internal/telemetry/schema.go
package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// Schema fixes the columns of one sample kind in chunk files and exports.
type Schema struct {
	Kind   Kind
	Fields []string

	// ChunkHeader is written at the top of every chunk file.
	ChunkHeader []string

	chunkRow   func(Sample) []string
	parseChunk func([]string) (Sample, error)
}

// ExportHeader is timestamp followed by one column per field.
func (s Schema) ExportHeader() []string {
	return append([]string{"timestamp"}, s.Fields...)
}

// ExportRow flattens a sample in ExportHeader order.
func (s Schema) ExportRow(smp Sample) []string { return flatRow(smp) }

// Record maps field names to values, timestamp included.
func (s Schema) Record(smp Sample) map[string]float64 {
	m := make(map[string]float64, len(s.Fields)+1)
	m["timestamp"] = smp.Elapsed
	for i, f := range s.Fields {
		if i < len(smp.Values) {
			m[f] = smp.Values[i]
		}
	}
	return m
}

func (s Schema) ChunkRow(smp Sample) []string { return s.chunkRow(smp) }

func (s Schema) ParseChunkRow(row []string) (Sample, error) {
	if len(row) != len(s.ChunkHeader) {
		return Sample{}, fmt.Errorf("telemetry: %s row has %d columns, want %d", s.Kind, len(row), len(s.ChunkHeader))
	}
	return s.parseChunk(row)
}

// SchemaFor returns the schema of a known kind.
func SchemaFor(k Kind) (Schema, error) {
	switch k {
	case KindAmbient:
		return AmbientSchema, nil
	case KindMotion:
		return MotionSchema, nil
	default:
		return Schema{}, fmt.Errorf("telemetry: unknown kind %q", k)
	}
}

// ---- AMBIENT ----

var AmbientSchema = Schema{
	Kind:        KindAmbient,
	Fields:      []string{"temperature", "humidity", "pressure"},
	ChunkHeader: []string{"timestamp", "temperature", "humidity", "pressure"},

	chunkRow: flatRow,
	parseChunk: func(row []string) (Sample, error) {
		vals, err := parseFloats(row)
		if err != nil {
			return Sample{}, err
		}
		return Sample{Elapsed: vals[0], Values: vals[1:]}, nil
	},
}

// ---- MOTION ----

// Chunk files keep each vector in one "(x, y, z)" column; exports flatten
// them into one column per axis.
var MotionSchema = Schema{
	Kind:        KindMotion,
	Fields:      []string{"x_acc", "y_acc", "z_acc", "x_gyro", "y_gyro", "z_gyro"},
	ChunkHeader: []string{"timestamp", "acceleration", "gyro"},

	chunkRow: func(s Sample) []string {
		return []string{
			formatFloat(s.Elapsed),
			formatTriple(s.Values[0:3]),
			formatTriple(s.Values[3:6]),
		}
	},
	parseChunk: func(row []string) (Sample, error) {
		ts, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			return Sample{}, fmt.Errorf("telemetry: timestamp %q: %w", row[0], err)
		}
		acc, err := parseTriple(row[1])
		if err != nil {
			return Sample{}, err
		}
		gyro, err := parseTriple(row[2])
		if err != nil {
			return Sample{}, err
		}
		return Sample{Elapsed: ts, Values: append(acc, gyro...)}, nil
	},
}

// ------------

func flatRow(s Sample) []string {
	row := make([]string, 0, 1+len(s.Values))
	row = append(row, formatFloat(s.Elapsed))
	for _, v := range s.Values {
		row = append(row, formatFloat(v))
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTriple(v []float64) string {
	return fmt.Sprintf("(%s, %s, %s)", formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]))
}

func parseTriple(s string) ([]float64, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "("), ")")
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("telemetry: vector %q does not have 3 components", s)
	}
	return parseFloats(parts)
}

func parseFloats(ss []string) ([]float64, error) {
	out := make([]float64, len(ss))
	for i, s := range ss {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("telemetry: value %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
