package threads

import (
	"errors"
	"fmt"
	"sync"
)

// ErrHandlerAlreadyRegistered is returned by RegisterHandler for a duplicate id.
var ErrHandlerAlreadyRegistered = errors.New("threads: handler already registered")

// ErrWorkerStartFailed is returned (wrapped) by NewMessageQueueWorker when it
// is given a nil decoder; starting the worker goroutine itself cannot fail.
var ErrWorkerStartFailed = errors.New("threads: worker failed to start")

// DestroyPolicy selects what happens to items still queued at Stop time.
type DestroyPolicy int

const (
	// IgnoreRemainingItems drops queued items untouched (no deleter call).
	IgnoreRemainingItems DestroyPolicy = iota
	// ProcessRemainingItems hands every remaining item to its handler (or the
	// deleter, if no handler is registered) before the worker fully stops.
	ProcessRemainingItems
)

// Handler processes one message and reports whether the worker may delete it
// afterwards (via the configured deleter).
type Handler[Msg any] func(msg Msg) (canDelete bool)

// MessageQueueWorker is a dedicated consumer goroutine that dispatches queued
// messages to per-id handlers, decoupling receipt from application handling.
//
// Grounded on original_source/Include/Threads/MessageQueueThread.h: handlers
// are looked up by a decoded id, a missing handler defaults to "deletable",
// and decode/handler/deleter failures are isolated so they cannot kill the
// worker goroutine.
type MessageQueueWorker[ID comparable, Msg any] struct {
	decode  func(Msg) (ID, error)
	deleter func(Msg)
	policy  DestroyPolicy

	mu       sync.Mutex
	handlers map[ID]Handler[Msg]

	queue *ConcurrentQueue[Msg]
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewMessageQueueWorker constructs and starts a worker. decode maps a queued
// message to its dispatch id; deleter, if non-nil, is invoked on messages the
// active handler (or the destroy policy) marks as deletable.
func NewMessageQueueWorker[ID comparable, Msg any](decode func(Msg) (ID, error), policy DestroyPolicy, deleter func(Msg)) (*MessageQueueWorker[ID, Msg], error) {
	if decode == nil {
		return nil, fmt.Errorf("%w: nil decoder", ErrWorkerStartFailed)
	}
	w := &MessageQueueWorker[ID, Msg]{
		decode:   decode,
		deleter:  deleter,
		policy:   policy,
		handlers: make(map[ID]Handler[Msg]),
		queue:    NewConcurrentQueue[Msg](),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// RegisterHandler binds a handler to id. Registering the same id twice fails.
func (w *MessageQueueWorker[ID, Msg]) RegisterHandler(id ID, handler Handler[Msg]) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.handlers[id]; exists {
		return fmt.Errorf("%w: %v", ErrHandlerAlreadyRegistered, id)
	}
	w.handlers[id] = handler
	return nil
}

// Push enqueues a message for processing in FIFO order.
func (w *MessageQueueWorker[ID, Msg]) Push(msg Msg) { w.queue.Push(msg) }

func (w *MessageQueueWorker[ID, Msg]) handlerFor(id ID) (Handler[Msg], bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h, ok := w.handlers[id]
	return h, ok
}

func (w *MessageQueueWorker[ID, Msg]) processOne(msg Msg) {
	canDelete := true
	id, err := func() (id ID, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("threads: decoder panicked: %v", r)
			}
		}()
		return w.decode(msg)
	}()
	if err == nil {
		if h, ok := w.handlerFor(id); ok {
			canDelete = w.safeInvoke(h, msg)
		}
	}
	if canDelete && w.deleter != nil {
		w.safeDelete(msg)
	}
}

func (w *MessageQueueWorker[ID, Msg]) safeInvoke(h Handler[Msg], msg Msg) (canDelete bool) {
	canDelete = true
	defer func() {
		if r := recover(); r != nil {
			canDelete = true
		}
	}()
	return h(msg)
}

func (w *MessageQueueWorker[ID, Msg]) safeDelete(msg Msg) {
	defer func() { recover() }()
	w.deleter(msg)
}

func (w *MessageQueueWorker[ID, Msg]) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			w.drain()
			return
		default:
		}
		msg, ok := w.queue.Pop()
		if !ok {
			select {
			case <-w.done:
				w.drain()
				return
			default:
				continue
			}
		}
		w.processOne(msg)
	}
}

func (w *MessageQueueWorker[ID, Msg]) drain() {
	remaining := w.queue.TakeAll()
	for _, msg := range remaining {
		switch w.policy {
		case ProcessRemainingItems:
			w.processOne(msg)
		case IgnoreRemainingItems:
			// leave untouched, per configured policy
		}
	}
}

// Stop breaks the consumer out of its wait and drains remaining items per
// the configured DestroyPolicy, then waits for the goroutine to exit.
func (w *MessageQueueWorker[ID, Msg]) Stop() {
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	w.queue.BreakPopWait()
	w.wg.Wait()
}
