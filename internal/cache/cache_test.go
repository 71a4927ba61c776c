package cache

import (
	"sync"
	"testing"
)

func TestSetGet(t *testing.T) {
	c := New[int]()
	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = (%v,%v), want (1,true)", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) should report absent")
	}
}

func TestClear(t *testing.T) {
	c := New[int]()
	c.Set("a", 1)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestCloneSharesUnderlyingStore(t *testing.T) {
	c := New[int]()
	clone := c
	clone.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("original cache did not observe clone's write: (%v,%v)", v, ok)
	}
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	c := New[int]()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Set("k", i)
		}(i)
		go func() {
			defer wg.Done()
			c.Get("k")
		}()
	}
	wg.Wait()
}
