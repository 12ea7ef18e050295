package useragent

import (
	"sync"
	"testing"
)

func TestPool_GetSequential(t *testing.T) {
	p := NewPool([]string{"A", "B", "C"})

	// Should round robin
	for _, want := range []string{"A", "B", "C", "A"} {
		if got := p.GetSequential(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestPool_Default(t *testing.T) {
	// Passing an empty slice falls back to the default pool
	p := NewPool(nil)
	if len(p.GetAll()) != len(DefaultPool) {
		t.Errorf("expected pool length %d, got %d", len(DefaultPool), len(p.GetAll()))
	}
	if got := p.GetSequential(); got != DefaultPool[0] {
		t.Errorf("expected %s, got %s", DefaultPool[0], got)
	}
}

func TestPool_GetRandom(t *testing.T) {
	p := NewPool([]string{"A", "B"})

	seenA := false
	seenB := false

	// Try 100 times, highly likely we see both A and B
	for i := 0; i < 100; i++ {
		switch p.GetRandom() {
		case "A":
			seenA = true
		case "B":
			seenB = true
		default:
			t.Fatal("unexpected user agent")
		}
	}

	if !seenA || !seenB {
		t.Errorf("expected to see both agents, seenA=%v seenB=%v", seenA, seenB)
	}
}

func TestPool_ConcurrentAccess(t *testing.T) {
	p := NewPool([]string{"A", "B", "C"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if ua := p.GetSequential(); ua == "" {
					t.Error("got empty user agent")
					return
				}
			}
		}()
	}
	wg.Wait()
}
