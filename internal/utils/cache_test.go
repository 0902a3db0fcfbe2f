package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_SetGetExpire(t *testing.T) {
	c, err := NewTTLCache(4)
	require.NoError(t, err)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, -time.Second)

	assert.Equal(t, 1, c.Get("a"))
	assert.Nil(t, c.Get("b"))
	assert.Nil(t, c.Get("missing"))
	assert.Equal(t, 1, c.Len())
}

func TestTTLCache_DeletePrefix(t *testing.T) {
	c, err := NewTTLCache(8)
	require.NoError(t, err)

	c.Set("comments:tree:1:0:10", "x", time.Minute)
	c.Set("comments:tree:1:5:10", "y", time.Minute)
	c.Set("comments:tree:12:0:10", "z", time.Minute)

	assert.Equal(t, 2, c.DeletePrefix("comments:tree:1:"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "z", c.Get("comments:tree:12:0:10"))
}

func TestTTLCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewTTLCache(2)
	require.NoError(t, err)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Get("a")
	c.Set("c", 3, time.Minute)

	assert.Equal(t, 1, c.Get("a"))
	assert.Nil(t, c.Get("b"))
}
