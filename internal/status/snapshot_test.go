// internal/status/snapshot_test.go
package status

import (
	"encoding/json"
	"testing"
)

func TestHealthString(t *testing.T) {
	cases := map[Health]string{
		HealthUnknown:  "unknown",
		HealthOK:       "ok",
		HealthError:    "error",
		HealthStale:    "stale",
		HealthDisabled: "disabled",
		Health(9):      "health(9)",
	}
	for h, want := range cases {
		if got := h.String(); got != want {
			t.Fatalf("Health(%d).String() = %q, want %q", h, got, want)
		}
	}
}

func TestSnapshotJSON(t *testing.T) {
	b, err := json.Marshal(Snapshot{Kind: "ambient", State: "faulted", Health: HealthError})
	if err != nil {
		t.Fatalf("marshal err=%v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal err=%v", err)
	}
	if m["health"] != "error" {
		t.Fatalf("expected health=error, got %v", m["health"])
	}
	if _, ok := m["last_error"]; ok {
		t.Fatalf("empty last_error should be omitted")
	}
}
