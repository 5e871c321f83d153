package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koiX69420/scanner-sub000/pkg/config"
	"github.com/koiX69420/scanner-sub000/pkg/scanner"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "MINT_quick", Key("MINT", config.ModeQuick))
}

func TestGetReturnsSameReportWithinTTL(t *testing.T) {
	c := New(time.Minute)
	r := &scanner.Report{Mint: "MINT", CreatedAt: time.Now()}
	c.Put("MINT_quick", r)

	got, ok := c.Get("MINT_quick")
	require.True(t, ok)
	assert.Same(t, r, got, "a hit returns the original report untouched")

	_, ok = c.Get("OTHER_quick")
	assert.False(t, ok)
}

func TestGetEvictsExpired(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Put("k", &scanner.Report{})
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "stale entry is evicted on read")
}

func TestSweep(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Put("old", &scanner.Report{})
	time.Sleep(20 * time.Millisecond)
	c.Put("new", &scanner.Report{})

	c.Sweep()
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("new")
	assert.True(t, ok)
}
