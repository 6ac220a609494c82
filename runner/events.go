package runner

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Handler receives one notification per completed test
type Handler func(types.TestEvent)

// Emitter fans test notifications out to subscribers. The runner is its only
// producer and calls emit serially, so handlers never run concurrently with
// each other.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewEmitter creates an emitter with no subscribers
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]Handler)}
}

// On registers handler for event. Subscribe before the run starts;
// handlers added during a run may miss notifications.
func (e *Emitter) On(event string, handler Handler) error {
	if event != EventTest {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if handler == nil {
		return fmt.Errorf("handler for %q must not be nil", event)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], handler)
	return nil
}

// Subscribers returns the number of handlers registered for event
func (e *Emitter) Subscribers(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}

// emit delivers payload to every handler of event in subscription order.
// A panicking handler is reported and does not stop the others.
func (e *Emitter) emit(event string, payload types.TestEvent) []error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers[event]))
	copy(handlers, e.handlers[event])
	e.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		if err := deliver(h, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s handler %d: %w", event, i, err))
		}
	}
	return errs
}

func deliver(h Handler, payload types.TestEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	h(payload)
	return nil
}
