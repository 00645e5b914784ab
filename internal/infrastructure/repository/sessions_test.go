package repository

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"NSSaDS/ftp/internal/domain"
)

type countingCloser struct {
	closed atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closed.Add(1)
	return nil
}

func TestSessionRegistry(t *testing.T) {
	registry := NewSessionRegistry()
	a := domain.NewSession("10.0.0.1:5000", "/srv")
	b := domain.NewSession("10.0.0.2:5000", "/srv")
	ca, cb := &countingCloser{}, &countingCloser{}

	assert.True(t, registry.Add(a, ca))
	assert.True(t, registry.Add(b, cb))
	assert.Equal(t, 2, registry.Count())

	got, ok := registry.Get(a.ID)
	assert.True(t, ok)
	assert.Same(t, a, got)

	registry.Remove(a.ID)
	_, ok = registry.Get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Count())

	registry.CloseAll()
	assert.Equal(t, int32(0), ca.closed.Load())
	assert.Equal(t, int32(1), cb.closed.Load())
}

func TestSessionRegistryRefusesAddAfterCloseAll(t *testing.T) {
	registry := NewSessionRegistry()
	registry.CloseAll()

	late := domain.NewSession("10.0.0.3:5000", "/srv")
	assert.False(t, registry.Add(late, &countingCloser{}))
	assert.Zero(t, registry.Count())
}
