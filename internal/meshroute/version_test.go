package meshroute

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersion_IncMonotone(t *testing.T) {
	t.Parallel()

	var v Version
	require.Equal(t, uint32(0), v.Get())

	for i := uint32(1); i <= 5; i++ {
		v.Inc()
		require.Equal(t, i, v.Get())
	}
}

func TestVersion_ConcurrentInc(t *testing.T) {
	t.Parallel()

	var v Version
	var wg sync.WaitGroup
	const n = 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			v.Inc()
		}()
	}
	wg.Wait()
	require.Equal(t, uint32(n), v.Get())
}
