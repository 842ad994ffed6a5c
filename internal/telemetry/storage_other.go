// internal/telemetry/storage_other.go
//go:build !unix

package telemetry

import "errors"

func FreeSpace(string) (uint64, error) {
	return 0, errors.New("telemetry: free space not supported on this platform")
}
