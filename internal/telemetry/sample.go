// internal/telemetry/sample.go
package telemetry

import "math"

// Kind names a sampler instance.
type Kind string

const (
	KindAmbient Kind = "ambient"
	KindMotion  Kind = "motion"
)

// Sample is one reading stamped with seconds since the session started.
// Values are ordered as the kind's Schema.Fields.
type Sample struct {
	Elapsed float64
	Values  []float64
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
