package locks

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	k := NewKeyed()

	const workers = 32
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("room:1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestLockDifferentKeysDoNotBlock(t *testing.T) {
	k := NewKeyed()

	unlockA := k.Lock("room:1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("room:2")
		unlockB()
		close(done)
	}()

	<-done // would hang if keys shared a mutex
}

func TestEntriesDroppedAfterRelease(t *testing.T) {
	k := NewKeyed()

	unlock := k.Lock("offer:9")
	unlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.entries) != 0 {
		t.Errorf("entries = %d, want 0 after release", len(k.entries))
	}
}

func TestResourceKey(t *testing.T) {
	if got := ResourceKey("room", 42); got != "room:42" {
		t.Errorf("ResourceKey = %q, want %q", got, "room:42")
	}
}
