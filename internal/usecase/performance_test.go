package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"NSSaDS/ftp/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestPerformanceMonitorCountsFromOffset(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	pm := NewPerformanceMonitor()
	pm.now = clock.Now

	pm.StartTransfer("a.txt", domain.Download, 100, 40)
	progress := pm.GetProgress()
	assert.Equal(t, int64(40), progress.Transferred)
	assert.Equal(t, 40, progress.Percentage)

	pm.UpdateProgress(100)
	clock.now = clock.now.Add(2 * time.Second)

	stats := pm.Stats()
	assert.Equal(t, "a.txt", stats.FileName)
	assert.Equal(t, domain.Download, stats.Direction)
	assert.Equal(t, int64(60), stats.Bytes)
	assert.Equal(t, 2*time.Second, stats.Elapsed)
	assert.InDelta(t, 30.0, stats.Throughput, 1e-9)
}

func TestPerformanceMonitorFloorsElapsed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	pm := NewPerformanceMonitor()
	pm.now = clock.Now

	pm.StartTransfer("b.bin", domain.Upload, 1024, 0)
	pm.UpdateProgress(1024)

	stats := pm.Stats()
	assert.Equal(t, domain.MinElapsed, stats.Elapsed)
	assert.InDelta(t, 102400.0, stats.Throughput, 1e-6)
	assert.InDelta(t, 100.0, stats.KBPerSecond(), 1e-6)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0.00 B", FormatSize(0))
	assert.Equal(t, "1023.00 B", FormatSize(1023))
	assert.Equal(t, "1.00 KB", FormatSize(1024))
	assert.Equal(t, "1.50 MB", FormatSize(1024*1024*3/2))
	assert.Equal(t, "2.00 GB", FormatSize(2<<30))
	assert.Equal(t, "1024.00 TB", FormatSize(1<<50))
}

func TestFormatStats(t *testing.T) {
	s := domain.TransferStats{FileName: "a.txt", Bytes: 2048, Elapsed: time.Second, Throughput: 2048}
	assert.Equal(t, "a.txt: 2.00 KB in 1.00s (2.00 KB/s)", FormatStats(s))
}
