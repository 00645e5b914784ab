package domain

import (
	"context"
	"net"
	"os"
	"time"
)

type Server interface {
	Start(ctx context.Context, addr string) error
	Stop() error
	SetHandler(handler CommandHandler)
}

type Client interface {
	Connect(ctx context.Context, addr string) (string, error)
	Disconnect() error
	SendCommand(ctx context.Context, line string) (string, error)
	Get(ctx context.Context, remoteName, localPath string) error
	Put(ctx context.Context, localPath string) error
	Events() <-chan TransferEvent
}

type ConnectionManager interface {
	HandleConnection(ctx context.Context, conn net.Conn) error
	SetKeepAlive(conn net.Conn) error
}

type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
	Path    string
	IsDir   bool
}

// FileStore is the served filesystem as seen by a session.
type FileStore interface {
	Root() string
	List(dir string) (*Listing, error)
	ResolveDir(current, target string) (string, error)
	Stat(dir, name string) (*FileInfo, error)
	OpenRead(dir, name string) (*os.File, *FileInfo, error)
	CreateExclusive(dir, name string) (*os.File, error)
	OpenResume(dir, name string, offset int64) (*os.File, error)
}

type VolumeLister interface {
	Volumes() ([]string, error)
}

// CredentialStore reports failures as false; the error is for storage faults only.
type CredentialStore interface {
	Authenticate(ctx context.Context, username, password string) (bool, error)
	Register(ctx context.Context, username, password string) (bool, error)
	Close() error
}
