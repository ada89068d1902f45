package broker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/casualjim/preview/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type panickyHook struct{}

func (panickyHook) OnComponent(context.Context, events.Component) { panic("hook exploded") }
func (panickyHook) OnLayout(context.Context, events.Layout)       { panic("hook exploded") }
func (panickyHook) OnTypes(context.Context, events.Types)         { panic("hook exploded") }
func (panickyHook) OnComplete(context.Context, events.Complete)   { panic("hook exploded") }
func (panickyHook) OnError(context.Context, events.Error)         { panic("hook exploded") }

func TestPanickingSubscriberIsolation(t *testing.T) {
	ctx := context.Background()
	broker := Local().WithLogger(quietLogger())
	topic := broker.Topic(ctx, "conv-1")

	recorder1 := newRecordingHook()
	recorder2 := newRecordingHook()

	subBad, err := topic.Subscribe(ctx, panickyHook{})
	require.NoError(t, err)
	defer subBad.Unsubscribe()
	sub1, err := topic.Subscribe(ctx, recorder1)
	require.NoError(t, err)
	defer sub1.Unsubscribe()
	sub2, err := topic.Subscribe(ctx, recorder2)
	require.NoError(t, err)
	defer sub2.Unsubscribe()

	ev := mustComponent(t, "Header", "<div/>", 20)
	assert.NotPanics(t, func() {
		require.NoError(t, topic.Publish(ctx, ev))
	}, "a panicking hook must not reach the publisher")

	assert.Equal(t, []events.Event{ev}, recorder1.snapshot(), "other subscribers still receive the event")
	assert.Equal(t, []events.Event{ev}, recorder2.snapshot())
}

func TestHighWatermarkIsSoft(t *testing.T) {
	ctx := context.Background()
	broker := Local().WithHighWatermark(3).WithLogger(quietLogger())
	topic := broker.Topic(ctx, "crowded")

	recorders := make([]*recordingHook, 5)
	for i := range recorders {
		recorders[i] = newRecordingHook()
		sub, err := topic.Subscribe(ctx, recorders[i])
		require.NoError(t, err, "subscribing past the high-watermark must not fail")
		defer sub.Unsubscribe()
	}
	assert.Equal(t, 5, topic.Subscribers())

	ev := mustComponent(t, "Header", "<div/>", 20)
	require.NoError(t, topic.Publish(ctx, ev))

	for i, recorder := range recorders {
		assert.Equal(t, []events.Event{ev}, recorder.snapshot(), "subscriber %d should receive the event", i)
	}
}

func TestSubscribeDuringFanOut(t *testing.T) {
	ctx := context.Background()
	broker := Local().WithLogger(quietLogger())
	topic := broker.Topic(ctx, "conv-1")

	late := newRecordingHook()

	// The first hook attaches another subscriber while a fan-out is in
	// flight. The in-flight event was snapshotted before the attach, so the
	// late subscriber must only see subsequent events.
	var attached bool
	hooked := events.HookFunc(func(context.Context, events.Event) {
		if !attached {
			attached = true
			_, err := topic.Subscribe(ctx, late)
			assert.NoError(t, err)
		}
	})

	sub, err := topic.Subscribe(ctx, hooked)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	first := mustComponent(t, "First", "<div/>", 10)
	second := mustComponent(t, "Second", "<div/>", 60)

	require.NoError(t, topic.Publish(ctx, first))
	assert.Empty(t, late.snapshot(), "a subscriber attached mid-fan-out misses the in-flight event")

	require.NoError(t, topic.Publish(ctx, second))
	assert.Equal(t, []events.Event{second}, late.snapshot())
}

func TestPublishHonorsCallerContext(t *testing.T) {
	broker := Local().WithLogger(quietLogger())
	topic := broker.Topic(context.Background(), "conv-1")

	recorder := newRecordingHook()
	sub, err := topic.Subscribe(context.Background(), recorder)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	pubCtx, cancel := context.WithCancel(context.Background())
	cancel()

	err = topic.Publish(pubCtx, mustComponent(t, "Header", "<div/>", 20))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recorder.snapshot())
}

func TestBuilderIgnoresInvalidValues(t *testing.T) {
	broker := Local().WithHighWatermark(0).WithLogger(nil)
	assert.Equal(t, DefaultHighWatermark, broker.highWatermark)
	assert.NotNil(t, broker.log)
}
