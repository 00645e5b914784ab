package domain

import (
	"time"
)

type TransferDirection uint8

const (
	Download TransferDirection = iota
	Upload
)

func (d TransferDirection) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// TransferState is the bookkeeping for one in-flight or interrupted transfer.
// Transferred never decreases within an attempt and starts at RestartOffset.
type TransferState struct {
	Direction     TransferDirection
	Filename      string
	LocalPath     string
	TotalSize     int64
	Transferred   int64
	RestartOffset int64
}

// Begin prepares the state for a new attempt, keeping the negotiated offset.
func (s *TransferState) Begin(dir TransferDirection, filename, localPath string, total int64) {
	s.Direction = dir
	s.Filename = filename
	s.LocalPath = localPath
	s.TotalSize = total
	s.Transferred = s.RestartOffset
}

func (s *TransferState) Pending() bool {
	return s.Filename != ""
}

func (s *TransferState) Complete() bool {
	return s.Transferred == s.TotalSize
}

func (s *TransferState) Percent() int {
	return Percent(s.Transferred, s.TotalSize)
}

// Reset clears everything, including the restart offset.
func (s *TransferState) Reset() {
	*s = TransferState{}
}

// Percent is floor(done*100/total); an empty file counts as finished.
func Percent(done, total int64) int {
	if total <= 0 {
		return 100
	}
	return int(done * 100 / total)
}

type TransferProgress struct {
	FileName    string
	TotalBytes  int64
	Transferred int64
	StartTime   time.Time
	Percentage  int
}

// TransferStats summarises one attempt: bytes moved since the attempt began
// and the throughput over an elapsed time floored at MinElapsed.
type TransferStats struct {
	FileName   string
	Direction  TransferDirection
	Bytes      int64
	Elapsed    time.Duration
	Throughput float64
}

const MinElapsed = 10 * time.Millisecond

func (s TransferStats) KBPerSecond() float64 {
	return s.Throughput / 1024
}

type EventKind uint8

const (
	EventProgress EventKind = iota
	EventDrainProgress
	EventDestinationRequest
	EventCompleted
	EventCancelled
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventDrainProgress:
		return "drain"
	case EventDestinationRequest:
		return "destination"
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TransferEvent is what the transfer worker reports to whoever drives the client.
type TransferEvent struct {
	Kind      EventKind
	Direction TransferDirection
	FileName  string
	Percent   int
	Stats     *TransferStats
	Err       error
}
