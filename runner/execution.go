package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/metrics"
	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/ethereum/go-ethereum/log"
)

// execution implements types.TB for a single hook or test body
type execution struct {
	title    string
	callback bool
	log      log.Logger

	mu    sync.Mutex
	errs  []error
	ended bool
	done  chan struct{}
}

var _ types.TB = (*execution)(nil)

func newExecution(title string, callback bool, logger log.Logger) *execution {
	return &execution{
		title:    title,
		callback: callback,
		log:      logger,
		done:     make(chan struct{}),
	}
}

func (e *execution) Title() string {
	return e.title
}

func (e *execution) Fail(err error) {
	if err == nil {
		err = errors.New("failed")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

func (e *execution) Failed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs) > 0
}

func (e *execution) End() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.callback {
		e.errs = append(e.errs, ErrEndNotSupported)
		return
	}
	if e.ended {
		e.errs = append(e.errs, ErrEndCalledTwice)
		return
	}
	e.ended = true
	close(e.done)
}

func (e *execution) Log(msg string, ctx ...any) {
	e.log.Info(msg, append([]any{"title", e.title}, ctx...)...)
}

// run invokes fn and, in callback mode, waits for End or ctx cancellation.
// The returned error joins every recorded failure.
func (e *execution) run(ctx context.Context, fn types.Func) error {
	if fn == nil {
		return ErrNoImplementation
	}

	if err := e.invoke(ctx, fn); err != nil {
		e.Fail(err)
	} else if e.callback {
		select {
		case <-e.done:
		case <-ctx.Done():
			e.Fail(fmt.Errorf("waiting for End: %w", ctx.Err()))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Join(e.errs...)
}

func (e *execution) invoke(ctx context.Context, fn types.Func) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error("Panic in body", "title", e.title, "error", rec)
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, e)
}

// execute runs one declaration under title and turns the result into an outcome
func (r *Runner) execute(ctx context.Context, decl types.Declaration, title string) types.Outcome {
	start := time.Now()
	e := newExecution(title, decl.Metadata.Callback, r.log)
	err := e.run(ctx, decl.Fn)

	outcome := types.Outcome{
		Title:    title,
		Type:     decl.Type,
		Status:   types.TestStatusPass,
		Duration: time.Since(start),
	}
	if err != nil {
		outcome.Status = types.TestStatusFail
		outcome.Err = &BodyError{Title: title, Type: decl.Type, Err: err}
		r.log.Debug("Body failed", "title", title, "type", decl.Type, "error", err)
	}

	metrics.RecordOutcome(outcome)
	return outcome
}

// skipped builds the outcome of a test that is reported without running
func skipped(decl types.Declaration, title string) types.Outcome {
	return types.Outcome{
		Title:  title,
		Type:   decl.Type,
		Status: types.TestStatusSkip,
	}
}
