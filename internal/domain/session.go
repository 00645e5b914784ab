package domain

import (
	"time"

	"github.com/google/uuid"
)

// VolumeRoot is the directory value meaning "above every volume root".
// Listing it yields volumes instead of files.
const VolumeRoot = `\`

type Session struct {
	ID            string
	ClientAddr    string
	CurrentDir    string
	RestartOffset int64
	ConnectedAt   time.Time
}

func NewSession(clientAddr, root string) *Session {
	return &Session{
		ID:          uuid.New().String(),
		ClientAddr:  clientAddr,
		CurrentDir:  root,
		ConnectedAt: time.Now(),
	}
}

func (s *Session) AtVolumeRoot() bool {
	return s.CurrentDir == VolumeRoot
}
