package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAcquire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m := NewMemory().WithClock(func() time.Time { return now })

	free, err := m.Acquire(ctx, "CELEBRATION:c1:SERVICE/BOMBE", time.Hour)
	require.NoError(t, err)
	assert.True(t, free)

	t.Run("held slot refuses", func(t *testing.T) {
		free, err := m.Acquire(ctx, "CELEBRATION:c1:SERVICE/BOMBE", time.Hour)
		require.NoError(t, err)
		assert.False(t, free)
	})

	t.Run("distinct slots are independent", func(t *testing.T) {
		free, err := m.Acquire(ctx, "PROGRESS:c1:SERVICE/BOMBE", time.Hour)
		require.NoError(t, err)
		assert.True(t, free)
	})

	t.Run("expiry frees the slot", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		free, err := m.Acquire(ctx, "CELEBRATION:c1:SERVICE/BOMBE", time.Hour)
		require.NoError(t, err)
		assert.True(t, free)
	})
}
