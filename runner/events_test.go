package runner

import (
	"testing"

	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_On(t *testing.T) {
	e := NewEmitter()

	err := e.On("hook", func(types.TestEvent) {})
	require.ErrorIs(t, err, ErrUnknownEvent)
	assert.Contains(t, err.Error(), `"hook"`)

	require.Error(t, e.On(EventTest, nil))
	assert.Equal(t, 0, e.Subscribers(EventTest))

	require.NoError(t, e.On(EventTest, func(types.TestEvent) {}))
	assert.Equal(t, 1, e.Subscribers(EventTest))
}

func TestEmitter_EmitInSubscriptionOrder(t *testing.T) {
	e := NewEmitter()
	var calls []string
	require.NoError(t, e.On(EventTest, func(ev types.TestEvent) { calls = append(calls, "first:"+ev.Result.Title) }))
	require.NoError(t, e.On(EventTest, func(ev types.TestEvent) { calls = append(calls, "second:"+ev.Result.Title) }))

	e.emit(EventTest, types.NewTestEvent(types.Outcome{Title: "t1", Type: types.TypeTest, Status: types.TestStatusPass}))
	e.emit(EventTest, types.NewTestEvent(types.Outcome{Title: "t2", Type: types.TypeTest, Status: types.TestStatusFail}))

	assert.Equal(t, []string{"first:t1", "second:t1", "first:t2", "second:t2"}, calls)
}

func TestEmitter_NoSubscribers(t *testing.T) {
	e := NewEmitter()
	assert.NotPanics(t, func() {
		e.emit(EventTest, types.NewTestEvent(types.Outcome{Title: "lonely"}))
	})
}

func TestRunner_SharedEmitter(t *testing.T) {
	events := NewEmitter()
	var got []string
	require.NoError(t, events.On(EventTest, func(ev types.TestEvent) { got = append(got, ev.Result.Title) }))

	r := newTestRunner(Config{Events: events})
	assert.Same(t, events, r.Events())

	emitted := types.NewTestEvent(types.Outcome{Title: "via-runner", Type: types.TypeTest, Status: types.TestStatusPass})
	r.Events().emit(EventTest, emitted)
	assert.Equal(t, []string{"via-runner"}, got)
}

func TestEmitter_PanickingHandler(t *testing.T) {
	e := NewEmitter()
	var calls []string
	require.NoError(t, e.On(EventTest, func(types.TestEvent) { panic("boom") }))
	require.NoError(t, e.On(EventTest, func(ev types.TestEvent) { calls = append(calls, ev.Result.Title) }))

	var errs []error
	require.NotPanics(t, func() {
		errs = e.emit(EventTest, types.NewTestEvent(types.Outcome{Title: "t1", Type: types.TypeTest}))
	})
	require.Len(t, errs, 1)
	assert.True(t, IsPanicError(errs[0]))
	assert.Contains(t, errs[0].Error(), "test handler 0")
	assert.Equal(t, []string{"t1"}, calls, "later handlers still run")
}
