package usecase

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestPumpStopsAtTotal(t *testing.T) {
	data := payload(3000)
	trailer := []byte("next command")
	src := bytes.NewReader(append(append([]byte(nil), data...), trailer...))

	var dst bytes.Buffer
	var seen []int64
	n, err := Pump(&dst, src, 0, int64(len(data)), func(transferred int64) {
		seen = append(seen, transferred)
	})

	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, dst.Bytes())
	assert.Equal(t, []int64{1024, 2048, 3000}, seen)

	rest, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, trailer, rest)
}

func TestPumpStartsFromOffset(t *testing.T) {
	data := payload(60)

	var dst bytes.Buffer
	n, err := Pump(&dst, bytes.NewReader(data), 40, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
	assert.Equal(t, data, dst.Bytes())
}

func TestPumpProgressIsMonotonic(t *testing.T) {
	data := payload(5000)

	last := int64(-1)
	_, err := Pump(io.Discard, iotest.OneByteReader(bytes.NewReader(data)), 0, int64(len(data)), func(transferred int64) {
		assert.Greater(t, transferred, last)
		last = transferred
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), last)
}

func TestPumpShortSource(t *testing.T) {
	n, err := Pump(io.Discard, strings.NewReader("abc"), 0, 10, nil)
	assert.Equal(t, int64(3), n)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPumpDataWithEOF(t *testing.T) {
	n, err := Pump(io.Discard, iotest.DataErrReader(strings.NewReader("abcd")), 0, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestPumpWriteError(t *testing.T) {
	_, err := Pump(failingWriter{}, strings.NewReader("abcd"), 0, 4, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write error")
}

func TestPumpNothingToDo(t *testing.T) {
	n, err := Pump(io.Discard, strings.NewReader("ignored"), 0, 0, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainLeavesTrailer(t *testing.T) {
	src := strings.NewReader(strings.Repeat("x", 2500) + "tail")

	n, err := Drain(src, 2500, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), n)

	rest, _ := io.ReadAll(src)
	assert.Equal(t, "tail", string(rest))
}

func TestSkip(t *testing.T) {
	src := strings.NewReader("0123456789")

	require.NoError(t, Skip(src, 4))
	rest, _ := io.ReadAll(src)
	assert.Equal(t, "456789", string(rest))

	require.NoError(t, Skip(strings.NewReader(""), 0))
	assert.ErrorIs(t, Skip(strings.NewReader("ab"), 5), io.ErrUnexpectedEOF)
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"missing.bin":              "missing.bin",
		"/home/user/missing.bin":   "missing.bin",
		`C:\Users\me\missing.bin`:  "missing.bin",
		"relative/dir/file name.x": "file name.x",
		"dir/":                     "dir",
		"":                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, BaseName(in), "input %q", in)
	}
}
