package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_ClaimExhaustsThenBlocksUntilDone(t *testing.T) {
	c := NewCoordinator(2, 1)

	k0, ok := c.Claim()
	require.True(t, ok)
	k1, ok := c.Claim()
	require.True(t, ok)
	assert.ElementsMatch(t, []int{0, 1}, []int{k0, k1})

	done := make(chan struct{})
	go func() {
		_, ok := c.Claim() // nothing claimable yet, but not done either: blocks
		assert.False(t, ok)
		close(done)
	}()

	c.MarkConsumed(k0)
	c.MarkConsumed(k1)

	<-done
}

func TestCoordinator_RequeueWithinBudgetIsReclaimable(t *testing.T) {
	c := NewCoordinator(1, 2)

	k, ok := c.Claim()
	require.True(t, ok)
	c.Requeue(k)

	k2, ok := c.Claim()
	require.True(t, ok)
	assert.Equal(t, k, k2)
	assert.Empty(t, c.MissingSequences())
}

func TestCoordinator_RequeueExhaustedIsPermanentlyMissing(t *testing.T) {
	c := NewCoordinator(1, 0) // zero retry budget: first failure is terminal

	k, ok := c.Claim()
	require.True(t, ok)
	c.Requeue(k)

	assert.True(t, c.IsDoneConsuming())
	assert.Equal(t, []int{k}, c.MissingSequences())

	_, ok = c.Claim()
	assert.False(t, ok)
}

func TestCoordinator_MarkConsumedTwiceIsIdempotent(t *testing.T) {
	c := NewCoordinator(1, 0)
	k, _ := c.Claim()

	first := c.MarkConsumed(k)
	second := c.MarkConsumed(k)
	assert.False(t, first)
	assert.True(t, second)

	_, consumed := c.Counts()
	assert.Equal(t, 1, consumed)
}
