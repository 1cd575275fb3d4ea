package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StartStaleFileCleaner removes staging files older than retention every
// interval. A non-positive interval disables it.
func StartStaleFileCleaner(
	ctx context.Context,
	area *Area,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := area.RemoveStale(time.Now().Add(-retention))
				if err != nil {
					log.Error("failed to clean stale staging files", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("cleaned stale staging files", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// RemoveStale deletes staging files last modified before cutoff and
// returns how many were removed.
func (a *Area) RemoveStale(cutoff time.Time) (int, error) {
	removed := 0
	for _, dir := range []string{a.RawDir, a.WavDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), stagingSuffix) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return removed, err
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
