package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustJSON(t *testing.T) {
	t.Run("valid json", func(t *testing.T) {
		data := map[string]string{"key": "value"}
		expected, _ := json.Marshal(data)
		assert.Equal(t, expected, mustJSON(data))
	})

	t.Run("panic on invalid json", func(t *testing.T) {
		assert.Panics(t, func() {
			mustJSON(make(chan int))
		})
	})
}

type recordingHook struct {
	mu         sync.Mutex
	components []Component
	layouts    []Layout
	types      []Types
	completes  []Complete
	failures   []Error
	order      []string
}

func (h *recordingHook) OnComponent(ctx context.Context, ev Component) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components = append(h.components, ev)
	h.order = append(h.order, Kind(ev))
}

func (h *recordingHook) OnLayout(ctx context.Context, ev Layout) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layouts = append(h.layouts, ev)
	h.order = append(h.order, Kind(ev))
}

func (h *recordingHook) OnTypes(ctx context.Context, ev Types) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.types = append(h.types, ev)
	h.order = append(h.order, Kind(ev))
}

func (h *recordingHook) OnComplete(ctx context.Context, ev Complete) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completes = append(h.completes, ev)
	h.order = append(h.order, Kind(ev))
}

func (h *recordingHook) OnError(ctx context.Context, ev Error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, ev)
	h.order = append(h.order, Kind(ev))
}

func TestCompositeHook(t *testing.T) {
	ctx := context.Background()
	recorder1 := &recordingHook{}
	recorder2 := &recordingHook{}
	composite := NewCompositeHook(recorder1, recorder2)

	t.Run("forwards components", func(t *testing.T) {
		ev, err := NewComponent("Header", "<div/>", 20)
		require.NoError(t, err)
		composite.OnComponent(ctx, ev)
		assert.Equal(t, []Component{ev}, recorder1.components)
		assert.Equal(t, []Component{ev}, recorder2.components)
	})

	t.Run("forwards layouts", func(t *testing.T) {
		ev, err := NewLayout(`{"rows":1}`, 50)
		require.NoError(t, err)
		composite.OnLayout(ctx, ev)
		assert.Equal(t, []Layout{ev}, recorder1.layouts)
		assert.Equal(t, []Layout{ev}, recorder2.layouts)
	})

	t.Run("forwards types", func(t *testing.T) {
		ev, err := NewTypes(75)
		require.NoError(t, err)
		composite.OnTypes(ctx, ev)
		assert.Equal(t, []Types{ev}, recorder1.types)
		assert.Equal(t, []Types{ev}, recorder2.types)
	})

	t.Run("forwards complete", func(t *testing.T) {
		ev := NewComplete()
		composite.OnComplete(ctx, ev)
		assert.Equal(t, []Complete{ev}, recorder1.completes)
		assert.Equal(t, []Complete{ev}, recorder2.completes)
	})

	t.Run("forwards errors", func(t *testing.T) {
		ev, err := NewError("boom")
		require.NoError(t, err)
		composite.OnError(ctx, ev)
		assert.Equal(t, []Error{ev}, recorder1.failures)
		assert.Equal(t, []Error{ev}, recorder2.failures)
	})
}

func TestHookFunc(t *testing.T) {
	ctx := context.Background()

	var received []Event
	hook := HookFunc(func(_ context.Context, ev Event) {
		received = append(received, ev)
	})

	component, err := NewComponent("Header", "<div/>", 20)
	require.NoError(t, err)
	layout, err := NewLayout(`{"rows":1}`, 50)
	require.NoError(t, err)
	failure, err := NewError("boom")
	require.NoError(t, err)
	typesEv, err := NewTypes(10)
	require.NoError(t, err)
	complete := NewComplete()

	hook.OnComponent(ctx, component)
	hook.OnLayout(ctx, layout)
	hook.OnTypes(ctx, typesEv)
	hook.OnComplete(ctx, complete)
	hook.OnError(ctx, failure)

	require.Len(t, received, 5)
	assert.Equal(t, component, received[0])
	assert.Equal(t, layout, received[1])
	assert.Equal(t, typesEv, received[2])
	assert.Equal(t, complete, received[3])
	assert.Equal(t, failure, received[4])
}

func TestLoggingHook(t *testing.T) {
	// The logging hook only writes to slog, so this is a smoke test that no
	// event kind panics on the way through.
	ctx := context.Background()
	hook := LoggingHook()

	component, err := NewComponent("Header", "<div/>", 20)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		hook.OnComponent(ctx, component)
		hook.OnLayout(ctx, Layout{Code: "{}", Progress: 10})
		hook.OnTypes(ctx, Types{Progress: 40})
		hook.OnComplete(ctx, NewComplete())
		hook.OnError(ctx, Error{Message: "boom"})
	})
}
