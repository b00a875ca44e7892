package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mosolo/pkg/domain-errors"
)

func TestParseTarget(t *testing.T) {
	t.Run("account", func(t *testing.T) {
		target, err := ParseTarget("ACCOUNT", "S03")
		require.NoError(t, err)
		assert.Equal(t, Target{Type: TargetAccount, Code: AccountS03}, target)
		assert.Equal(t, "Epargne Plus", target.DisplayName())
	})

	t.Run("service", func(t *testing.T) {
		target, err := ParseTarget("SERVICE", "LIKELEMBA")
		require.NoError(t, err)
		assert.Equal(t, "Likelemba", target.DisplayName())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := ParseTarget("WALLET", "S01")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := ParseTarget("ACCOUNT", "S99")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("code under the wrong type", func(t *testing.T) {
		_, err := ParseTarget("SERVICE", "S01")
		require.Error(t, err)
	})
}

func TestTargetRegistry(t *testing.T) {
	assert.Len(t, AccountTargets(), 6)
	assert.Len(t, ServiceTargets(), 5)
	assert.Len(t, AllTargets(), 11)

	for _, target := range AllTargets() {
		assert.True(t, target.Known(), target.String())
		assert.NotEmpty(t, target.DisplayName())
	}

	t.Run("unregistered target falls back to code", func(t *testing.T) {
		target := Target{Type: TargetAccount, Code: "S99"}
		assert.False(t, target.Known())
		assert.Equal(t, "S99", target.DisplayName())
	})

	t.Run("string form", func(t *testing.T) {
		assert.Equal(t, "SERVICE/BOMBE", Target{Type: TargetService, Code: ServiceBombe}.String())
	})
}
