// internal/status/snapshot.go
package status

import "fmt"

// Health is the coarse sampler condition.
type Health uint16

func (h Health) String() string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	case HealthDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("health(%d)", uint16(h))
	}
}

func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Snapshot is what a sampler reports about itself.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Kind                string `json:"kind"`
	State               string `json:"state"`
	Health              Health `json:"health"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Recent              int    `json:"recent"`
	Archived            int    `json:"archived"`
	Chunks              int    `json:"chunks"`
	LastError           string `json:"last_error,omitempty"`
	FreeBytes           uint64 `json:"free_bytes,omitempty"`
	LowStorage          bool   `json:"low_storage"`
}
