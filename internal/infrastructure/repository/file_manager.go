package repository

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"NSSaDS/ftp/internal/domain"
)

var _ domain.FileStore = (*FileManager)(nil)

// FileManager serves the local filesystem to sessions. Paths are not confined
// to the root; sessions may walk anywhere the process can read.
type FileManager struct {
	root    string
	volumes domain.VolumeLister
}

func NewFileManager(root string, volumes domain.VolumeLister) (*FileManager, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}

	if volumes == nil {
		volumes = SystemVolumes{}
	}

	return &FileManager{
		root:    abs,
		volumes: volumes,
	}, nil
}

func (fm *FileManager) Root() string {
	return fm.root
}

func (fm *FileManager) List(dir string) (*domain.Listing, error) {
	if dir == domain.VolumeRoot {
		return fm.listVolumes()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrDirectoryNotFound
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	listing := &domain.Listing{Directory: dir}
	for _, entry := range entries {
		// Stat follows symlinks so linked directories are listed as directories.
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil {
			info, err = entry.Info()
			if err != nil {
				continue
			}
		}

		if info.IsDir() {
			listing.Entries = append(listing.Entries, domain.ListEntry{Name: entry.Name(), Kind: domain.EntryDir})
		} else {
			listing.Entries = append(listing.Entries, domain.ListEntry{Name: entry.Name(), Size: info.Size(), Kind: domain.EntryFile})
		}
	}

	return listing, nil
}

func (fm *FileManager) listVolumes() (*domain.Listing, error) {
	volumes, err := fm.volumes.Volumes()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate volumes: %w", err)
	}
	sort.Strings(volumes)

	listing := &domain.Listing{Directory: domain.VolumeRoot}
	for _, v := range volumes {
		listing.Entries = append(listing.Entries, domain.ListEntry{Name: v, Kind: domain.EntryVolume})
	}
	return listing, nil
}

// ResolveDir applies a cd target to current. ".." from a volume root leads to
// domain.VolumeRoot; from there any target names a volume.
func (fm *FileManager) ResolveDir(current, target string) (string, error) {
	var next string

	switch {
	case target == "..":
		if current == domain.VolumeRoot || isVolumeRoot(current) {
			return domain.VolumeRoot, nil
		}
		next = filepath.Dir(current)
	case current == domain.VolumeRoot || filepath.IsAbs(target):
		next = filepath.Clean(target)
		if vol := filepath.VolumeName(next); vol != "" && vol == next {
			next += string(filepath.Separator)
		}
	default:
		next = filepath.Join(current, target)
	}

	info, err := os.Stat(next)
	if err != nil || !info.IsDir() {
		return "", domain.ErrDirectoryNotFound
	}

	return next, nil
}

func isVolumeRoot(dir string) bool {
	return filepath.Dir(dir) == dir
}

func (fm *FileManager) Stat(dir, name string) (*domain.FileInfo, error) {
	if dir == domain.VolumeRoot || name == "" {
		return nil, domain.ErrFileNotFound
	}

	path := filepath.Join(dir, name)
	stat, err := os.Stat(path)
	if err != nil || stat.IsDir() {
		return nil, domain.ErrFileNotFound
	}

	return &domain.FileInfo{
		Name:    name,
		Size:    stat.Size(),
		ModTime: stat.ModTime(),
		Path:    path,
	}, nil
}

func (fm *FileManager) OpenRead(dir, name string) (*os.File, *domain.FileInfo, error) {
	info, err := fm.Stat(dir, name)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(info.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, info, nil
}

func (fm *FileManager) CreateExclusive(dir, name string) (*os.File, error) {
	if dir == domain.VolumeRoot {
		return nil, domain.ErrDirectoryNotFound
	}

	file, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, domain.ErrFileExists
		}
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return file, nil
}

// OpenResume opens an existing partial upload, cuts it back to offset and
// positions the write cursor there.
func (fm *FileManager) OpenResume(dir, name string, offset int64) (*os.File, error) {
	info, err := fm.Stat(dir, name)
	if err != nil {
		return nil, err
	}
	if info.Size < offset {
		return nil, fmt.Errorf("%w: restart offset %d is beyond file size %d", domain.ErrInvalidArgument, offset, info.Size)
	}

	file, err := os.OpenFile(info.Path, os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	if err := file.Truncate(offset); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to truncate to offset: %w", err)
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek to offset: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "OpenResume",
		"path":     info.Path,
		"offset":   offset,
	}).Debug("Resuming upload into existing file")

	return file, nil
}
