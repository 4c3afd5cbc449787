package sync_test

import (
	"testing"

	"github.com/buildbarn/bb-virtual-checkout/pkg/sync"
	"github.com/stretchr/testify/require"
)

func TestTeardownGuard(t *testing.T) {
	t.Run("EnterAfterTeardown", func(t *testing.T) {
		var g sync.TeardownGuard
		require.True(t, g.Enter())
		g.Leave()

		g.Teardown()
		require.False(t, g.Enter())
	})

	t.Run("TeardownWaitsForReaders", func(t *testing.T) {
		var g sync.TeardownGuard
		require.True(t, g.Enter())
		require.True(t, g.Enter())

		// Teardown must block until both readers have left.
		tornDown := make(chan struct{})
		go func() {
			g.Teardown()
			close(tornDown)
		}()

		g.Leave()
		select {
		case <-tornDown:
			t.Fatal("Teardown completed while a reader was still active")
		default:
		}

		g.Leave()
		<-tornDown
	})

	t.Run("TeardownWithoutReaders", func(t *testing.T) {
		var g sync.TeardownGuard
		g.Teardown()
	})

	t.Run("LeaveWithoutEnter", func(t *testing.T) {
		var g sync.TeardownGuard
		require.Panics(t, func() { g.Leave() })
	})

	t.Run("DoubleTeardown", func(t *testing.T) {
		var g sync.TeardownGuard
		g.Teardown()
		require.Panics(t, func() { g.Teardown() })
	})
}
