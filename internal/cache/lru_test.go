package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsLeastRecent(t *testing.T) {
	c := New[string, int](2, 0)
	c.Add("a", 1)
	c.Add("b", 2)
	_, _ = c.Get("a") // a is now MRU
	c.Add("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	c.Add("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)

	c.Remove("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string, string](4, time.Minute).WithClock(func() time.Time { return now })

	c.Add("h", "app")
	now = now.Add(59 * time.Second)
	_, ok := c.Get("h")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("h")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestLRUPanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int, int](0, 0) })
}
