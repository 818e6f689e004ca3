package slidingwindow

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAdd_SecondCallFails(t *testing.T) {
	c := New(time.Second)
	first := c.TryAdd("x")
	second := c.TryAdd("x")

	assert.True(t, first)
	assert.False(t, second)
	assert.EqualValues(t, 1, c.Count())
}

func TestAddRemoveCount_RoundTrip(t *testing.T) {
	c := New(time.Second)
	preCount := c.Count()

	c.Add("x")
	c.Remove("x")

	assert.Equal(t, preCount, c.Count())
	assert.False(t, c.Contains("x"))
}

func TestLiveness_ExpiresAfterWindow(t *testing.T) {
	now := time.Now()
	c := New(50 * time.Millisecond)
	c.now = func() time.Time { return now }

	c.Add("x")
	assert.True(t, c.Contains("x"))
	assert.EqualValues(t, 1, c.Count())

	now = now.Add(100 * time.Millisecond)
	assert.False(t, c.Contains("x"))
	assert.EqualValues(t, 0, c.Count())
}

func TestAdd_RefreshesTimestamp(t *testing.T) {
	now := time.Now()
	c := New(50 * time.Millisecond)
	c.now = func() time.Time { return now }

	c.Add("x")
	now = now.Add(30 * time.Millisecond)
	c.Add("x") // refresh before expiry
	now = now.Add(30 * time.Millisecond)

	// 60ms since first add but only 30ms since refresh: still live.
	assert.True(t, c.Contains("x"))
	assert.EqualValues(t, 1, c.Count())
}

func TestRemoveThenReAdd_WithinWindow(t *testing.T) {
	c := New(time.Second)
	c.Add("x")
	c.Remove("x")
	added := c.TryAdd("x")

	assert.True(t, added)
	assert.True(t, c.Contains("x"))
	assert.EqualValues(t, 1, c.Count())
}

func TestExpiredIdentifier_CanBeReAdded(t *testing.T) {
	now := time.Now()
	c := New(50 * time.Millisecond)
	c.now = func() time.Time { return now }

	c.Add("x")
	now = now.Add(100 * time.Millisecond)

	added := c.TryAdd("x")
	assert.True(t, added)
	assert.EqualValues(t, 1, c.Count())
}

func TestClear(t *testing.T) {
	c := New(time.Second)
	c.Add("x")
	c.Add("y")
	c.Clear()

	assert.EqualValues(t, 0, c.Count())
	assert.False(t, c.Contains("x"))
}

func TestConcurrentMutators_DoNotRace(t *testing.T) {
	c := New(100 * time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "id"
			c.TryAdd(id)
			c.Contains(id)
			c.Count()
		}(i)
	}
	wg.Wait()

	count := c.Count()
	require.GreaterOrEqual(t, count, int64(1))
}
