package syssched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	mu := NewKeyMutex()

	var (
		wg      sync.WaitGroup
		counter int
		active  int
		maxSeen int
		guard   sync.Mutex
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			unlock := mu.Lock("0xABCD")
			defer unlock()

			guard.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			guard.Unlock()

			counter++
			time.Sleep(time.Millisecond)

			guard.Lock()
			active--
			guard.Unlock()
		}()
	}

	wg.Wait()

	require.Equal(t, 20, counter)
	require.Equal(t, 1, maxSeen)
	require.Equal(t, 0, mu.Len())
}

func TestKeyMutexDifferentKeysIndependent(t *testing.T) {
	mu := NewKeyMutex()

	unlockA := mu.Lock("0xA")

	doneCh := make(chan struct{})

	go func() {
		unlockB := mu.Lock("0xB")
		unlockB()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(time.Second * 5):
		require.FailNow(t, "different key was blocked")
	}

	require.Equal(t, 1, mu.Len())
	unlockA()
	require.Equal(t, 0, mu.Len())
}
