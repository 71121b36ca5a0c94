package locker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	l := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("room-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := New()

	unlockA := l.Lock("room-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("room-b")
		unlockB()
		close(done)
	}()

	<-done
}

func TestKeyedLocker_CleansUpEntries(t *testing.T) {
	l := New()

	unlock := l.Lock("room-x")
	unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}
