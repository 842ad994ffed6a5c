// internal/telemetry/storage.go
package telemetry

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrLowStorage = errors.New("telemetry: storage below critical level")

// FreeSpaceFunc reports the bytes available to unprivileged writers on
// the file system holding dir.
type FreeSpaceFunc func(dir string) (uint64, error)

const mib = 1 << 20

// checkStorage refuses a session when the chunk file system is nearly
// full. A failed free-space lookup is logged and ignored. Caller holds mu.
func (s *Sampler) checkStorage() error {
	if s.cfg.MinFreeBytes == 0 {
		return nil
	}
	free, err := s.free(s.cfg.ChunkDir)
	if err != nil {
		s.log.Warn("free space unknown", zap.String("dir", s.cfg.ChunkDir), zap.Error(err))
		return nil
	}
	if free < s.cfg.MinFreeBytes {
		s.log.Error("storage below critical level",
			zap.Uint64("free_mb", free/mib),
			zap.Uint64("critical_mb", s.cfg.MinFreeBytes/mib),
		)
		return fmt.Errorf("%w: %d MB free in %s, need %d MB",
			ErrLowStorage, free/mib, s.cfg.ChunkDir, s.cfg.MinFreeBytes/mib)
	}
	return nil
}
