package threads

import (
	"testing"
	"time"
)

func TestConcurrentQueueFIFO(t *testing.T) {
	q := NewConcurrentQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("expected %d, got %d (ok=%v)", i, v, ok)
		}
	}
}

func TestConcurrentQueueTakeAllClearsSize(t *testing.T) {
	q := NewConcurrentQueue[string]()
	q.Push("a")
	q.Push("b")
	q.Push("c")
	items := q.TakeAll()
	if len(items) != 3 || items[0] != "a" || items[2] != "c" {
		t.Fatalf("unexpected TakeAll result: %v", items)
	}
	if q.Size() != 0 {
		t.Fatal("queue should be empty after TakeAll")
	}
}

func TestConcurrentQueueTryPopEmpty(t *testing.T) {
	q := NewConcurrentQueue[int]()
	if _, ok := q.TryPop(); ok {
		t.Fatal("expected TryPop to fail on empty queue")
	}
	if _, err := q.TryPopThrow(); err != ErrQueueEmpty {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestConcurrentQueueTimedPopTimeout(t *testing.T) {
	q := NewConcurrentQueue[int]()
	start := time.Now()
	_, ok := q.TimedPop(20 * time.Millisecond)
	if ok {
		t.Fatal("expected timeout")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("returned too early")
	}
}

func TestConcurrentQueueTrySteal(t *testing.T) {
	q := NewConcurrentQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)
	v, ok := q.TrySteal()
	if !ok || v != 3 {
		t.Fatalf("expected to steal 3, got %d (ok=%v)", v, ok)
	}
}

func TestConcurrentQueuePeek(t *testing.T) {
	q := NewConcurrentQueue[int]()
	q.Push(10)
	q.Push(20)
	v, ok := q.Peek(1)
	if !ok || v != 20 {
		t.Fatalf("expected peek(1)==20, got %d (ok=%v)", v, ok)
	}
	if _, ok := q.Peek(5); ok {
		t.Fatal("expected out-of-range peek to fail")
	}
}

func TestConcurrentQueueBreakPopWaitUnblocks(t *testing.T) {
	q := NewConcurrentQueue[int]()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	q.BreakPopWait()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected Pop to report false after BreakPopWait on an empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock after BreakPopWait")
	}
}

func TestConcurrentQueueClearInvokesDeleter(t *testing.T) {
	q := NewConcurrentQueue[int]()
	q.Push(1)
	q.Push(2)
	var deleted []int
	q.Clear(func(v int) { deleted = append(deleted, v) })
	if len(deleted) != 2 {
		t.Fatalf("expected deleter called for both items, got %v", deleted)
	}
	if q.Size() != 0 {
		t.Fatal("queue should be empty after Clear")
	}
}
