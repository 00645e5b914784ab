package usecase

import (
	"fmt"
	"sync"
	"time"

	"NSSaDS/ftp/internal/domain"
)

// PerformanceMonitor follows a single transfer attempt. Bytes are counted from
// the offset the attempt started at, not from zero.
type PerformanceMonitor struct {
	mu          sync.RWMutex
	now         func() time.Time
	startTime   time.Time
	filename    string
	direction   domain.TransferDirection
	totalBytes  int64
	startOffset int64
	transferred int64
}

func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{now: time.Now}
}

func (pm *PerformanceMonitor) StartTransfer(filename string, direction domain.TransferDirection, totalBytes, startOffset int64) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.filename = filename
	pm.direction = direction
	pm.totalBytes = totalBytes
	pm.startOffset = startOffset
	pm.transferred = startOffset
	pm.startTime = pm.now()
}

func (pm *PerformanceMonitor) UpdateProgress(transferred int64) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.transferred = transferred
}

func (pm *PerformanceMonitor) GetProgress() *domain.TransferProgress {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return &domain.TransferProgress{
		FileName:    pm.filename,
		TotalBytes:  pm.totalBytes,
		Transferred: pm.transferred,
		StartTime:   pm.startTime,
		Percentage:  domain.Percent(pm.transferred, pm.totalBytes),
	}
}

func (pm *PerformanceMonitor) Stats() domain.TransferStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	elapsed := pm.now().Sub(pm.startTime)
	if elapsed < domain.MinElapsed {
		elapsed = domain.MinElapsed
	}
	moved := pm.transferred - pm.startOffset

	return domain.TransferStats{
		FileName:   pm.filename,
		Direction:  pm.direction,
		Bytes:      moved,
		Elapsed:    elapsed,
		Throughput: float64(moved) / elapsed.Seconds(),
	}
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

func FormatSize(size int64) string {
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}

func FormatStats(s domain.TransferStats) string {
	return fmt.Sprintf("%s: %s in %.2fs (%.2f KB/s)",
		s.FileName, FormatSize(s.Bytes), s.Elapsed.Seconds(), s.KBPerSecond())
}
