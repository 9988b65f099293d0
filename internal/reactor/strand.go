package reactor

import "sync"

// Poster is the capability a Strand needs from its backing executor: post a
// task, don't block the caller on it. *Pool satisfies this, and tests can
// substitute a mock to observe Strand's scheduling decisions in isolation.
type Poster interface {
	Post(Task)
}

// Strand is a per-connection logical single-threaded executor: it serializes
// every task posted to it so that, even though the owning Pool has many
// worker goroutines, at most one task for a given connection runs at a time.
//
// Grounded on original_source/Include/Asio/TcpConnection.h's
// io_service::strand member; implemented here as a single-consumer task
// queue fed by a multi-producer Post, with no global lock.
type Strand struct {
	pool Poster

	mu      sync.Mutex
	pending []Task
	running bool
}

// NewStrand creates a strand that executes its tasks on pool's workers.
func NewStrand(pool Poster) *Strand {
	return &Strand{pool: pool}
}

// Post enqueues fn to run after every previously posted task on this strand
// has completed, never concurrently with another task on the same strand.
func (s *Strand) Post(fn Task) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	alreadyRunning := s.running
	s.running = true
	s.mu.Unlock()

	if !alreadyRunning {
		s.pool.Post(s.drainLoop)
	}
}

// drainLoop runs on a pool worker and keeps pulling tasks off the strand's
// pending queue until it is empty, so a burst of Post calls on an idle
// strand does not spawn one pool task per posted closure.
func (s *Strand) drainLoop() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		fn := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		runTask(fn)
	}
}
