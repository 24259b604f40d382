package playback

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry tracks observers and fans committed states out to them.
//
// Every observer has its own delivery goroutine fed by a single-slot
// mailbox, so a slow or failing observer never blocks the writer or delays
// the others. The handle set is only reachable through Add, Remove and Len.
type Registry struct {
	mu       sync.Mutex
	nextID   ObserverID
	handles  map[ObserverID]*handle
	snapshot func() State
	logger   *zap.Logger
	closed   bool
}

type handle struct {
	id      ObserverID
	name    string
	deliver DeliverFunc
	mailbox chan State
	done    chan struct{}
	once    sync.Once
}

// NewRegistry creates a registry. snapshot supplies the catch-up state
// delivered to new observers.
func NewRegistry(snapshot func() State, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		handles:  make(map[ObserverID]*handle),
		snapshot: snapshot,
		logger:   logger,
	}
}

// Add registers deliver and immediately queues the current snapshot to it.
// name is only used in logs.
func (r *Registry) Add(name string, deliver DeliverFunc) ObserverID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	h := &handle{
		id:      r.nextID,
		name:    name,
		deliver: deliver,
		mailbox: make(chan State, 1),
		done:    make(chan struct{}),
	}
	if r.closed {
		h.stop()
		return h.id
	}

	h.offer(r.snapshot())
	r.handles[h.id] = h
	go r.run(h)

	r.logger.Info("observer registered",
		zap.Uint64("id", uint64(h.id)),
		zap.String("name", name))
	return h.id
}

// AddObserver registers an Observer behind a facet filter.
func (r *Registry) AddObserver(name string, o Observer) ObserverID {
	f := &facetFilter{obs: o}
	return r.Add(name, f.deliver)
}

// Remove unregisters id. Unknown ids are ignored.
func (r *Registry) Remove(id ObserverID) {
	r.mu.Lock()
	h, ok := r.handles[id]
	if ok {
		delete(r.handles, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	h.stop()
	r.logger.Info("observer unregistered",
		zap.Uint64("id", uint64(id)),
		zap.String("name", h.name))
}

// Len returns the number of registered observers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// OnCommit queues s to every registered observer. It never blocks.
func (r *Registry) OnCommit(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.handles {
		h.offer(s)
	}
}

// Close unregisters every observer.
func (r *Registry) Close() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[ObserverID]*handle)
	r.closed = true
	r.mu.Unlock()

	for _, h := range handles {
		h.stop()
	}
}

func (r *Registry) run(h *handle) {
	for {
		select {
		case <-h.done:
			return
		case s := <-h.mailbox:
			err := r.safeDeliver(h, s)
			if err == nil {
				continue
			}
			if errors.Is(err, ErrObserverGone) {
				r.logger.Info("observer gone, removing",
					zap.Uint64("id", uint64(h.id)),
					zap.String("name", h.name),
					zap.Error(err))
				r.Remove(h.id)
				return
			}
			r.logger.Warn("observer delivery failed",
				zap.Uint64("id", uint64(h.id)),
				zap.String("name", h.name),
				zap.Error(err))
		}
	}
}

// safeDeliver converts a panic in the observer into a terminal error.
func (r *Registry) safeDeliver(h *handle, s State) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", ErrObserverGone, p)
		}
	}()
	return h.deliver(s)
}

// offer replaces any undelivered state with s.
func (h *handle) offer(s State) {
	select {
	case <-h.mailbox:
	default:
	}
	select {
	case h.mailbox <- s:
	default:
	}
}

func (h *handle) stop() {
	h.once.Do(func() { close(h.done) })
}
