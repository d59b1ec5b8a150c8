package isolate

import (
	"sync"
	"testing"
)

func TestLockHeldByCaller(t *testing.T) {
	var l ExecutorLock

	if l.HeldByCaller() {
		t.Fatal("unheld lock reported as held")
	}

	l.Lock()
	if !l.HeldByCaller() {
		t.Fatal("holder not recognized")
	}
	l.Unlock()

	if l.HeldByCaller() {
		t.Fatal("released lock reported as held")
	}
}

func TestLockHolderIsPerGoroutine(t *testing.T) {
	var l ExecutorLock
	l.Lock()
	defer l.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if l.HeldByCaller() {
			t.Error("other goroutine reported as holder")
		}
	}()
	wg.Wait()
}

func TestLockExcludes(t *testing.T) {
	var l ExecutorLock
	var counter int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	if counter != 800 {
		t.Fatalf("counter = %d, want 800", counter)
	}
}

func TestCurGIDStable(t *testing.T) {
	a, b := curGID(), curGID()
	if a == 0 {
		t.Fatal("goroutine id is zero")
	}
	if a != b {
		t.Fatalf("goroutine id changed: %d then %d", a, b)
	}

	got := make(chan uint64, 1)
	go func() { got <- curGID() }()
	if other := <-got; other == a {
		t.Fatal("two goroutines share an id")
	}
}
