package usecase

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ChunkSize is the most a transfer loop reads from its source per iteration.
const ChunkSize = 1024

type ProgressFunc func(transferred int64)

// Pump copies from src to dst until transferred reaches total, reading at most
// ChunkSize bytes at a time and never past total, so whatever follows the
// payload on a shared stream stays unread. It returns the counter it stopped at.
func Pump(dst io.Writer, src io.Reader, transferred, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, ChunkSize)

	for transferred < total {
		want := total - transferred
		if want > ChunkSize {
			want = ChunkSize
		}

		n, err := src.Read(buf[:want])
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return transferred, fmt.Errorf("write error: %w", werr)
			}
			transferred += int64(n)
			if progress != nil {
				progress(transferred)
			}
		}

		if err != nil {
			if transferred == total {
				break
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return transferred, fmt.Errorf("read error: %w", err)
		}
	}

	return transferred, nil
}

// Drain reads and throws away exactly total bytes.
func Drain(src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	return Pump(io.Discard, src, 0, total, progress)
}

// Skip discards the next n bytes of src.
func Skip(src io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, src, n); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("skip error: %w", err)
	}
	return nil
}

// BaseName strips a client path down to its file name, accepting either
// separator since the client may run on another OS.
func BaseName(clientPath string) string {
	name := strings.TrimRight(clientPath, `/\`)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
