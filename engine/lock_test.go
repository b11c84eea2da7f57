package engine

import (
	"testing"
	"time"
)

func TestReentrantMutexDepth(t *testing.T) {
	var m reentrantMutex

	m.Lock()
	m.Lock() // owner re-acquires by depth
	m.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
		m.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second goroutine acquired a held lock")
	case <-time.After(20 * time.Millisecond):
	}

	m.Unlock() // depth reaches zero, lock released
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock never handed off to the waiting goroutine")
	}
}

func TestGoroutineIDIdentity(t *testing.T) {
	if goroutineID() != goroutineID() {
		t.Fatal("id changed between calls on one goroutine")
	}

	other := make(chan int64, 1)
	go func() { other <- goroutineID() }()
	if <-other == goroutineID() {
		t.Fatal("distinct goroutines reported the same id")
	}
}
