// internal/telemetry/storage_unix.go
//go:build unix

package telemetry

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeSpace asks statfs for the blocks available to unprivileged users.
func FreeSpace(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, fmt.Errorf("telemetry: statfs %s: %w", dir, err)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
