package events

import (
	"context"
	"log/slog"
	"slices"

	"github.com/casualjim/preview/pkg/slogx"
	json "github.com/goccy/go-json"
)

// Hook is the interface consumers implement to observe a conversation's
// preview stream. There is one method per event kind.
//
// Design decisions:
//  1. All methods must be implemented: when a new event kind is added every
//     implementation breaks at compile time instead of silently ignoring
//     the new kind.
//  2. No provided no-op implementation: a NoOpHook would undermine the
//     point of forcing a conscious decision per kind. Implementations that
//     genuinely do not care about a kind should say so with an empty method
//     body, or log that the event was ignored.
//  3. Methods receive the concrete event type, not the Event union, so
//     implementations never need a type switch.
//
// Hooks attached to the same conversation are invoked synchronously during
// publish. Implementations that do slow work should hand the event off to
// their own goroutine or channel rather than blocking the fan-out.
type Hook interface {
	OnComponent(context.Context, Component)

	OnLayout(context.Context, Layout)

	OnTypes(context.Context, Types)

	OnComplete(context.Context, Complete)

	OnError(context.Context, Error)
}

// HookFunc adapts a plain callback to the Hook interface, forwarding every
// kind to the same function. It is the bridge for consumers that want one
// stream of Event values instead of per-kind methods.
type HookFunc func(context.Context, Event)

func (f HookFunc) OnComponent(ctx context.Context, ev Component) { f(ctx, ev) }

func (f HookFunc) OnLayout(ctx context.Context, ev Layout) { f(ctx, ev) }

func (f HookFunc) OnTypes(ctx context.Context, ev Types) { f(ctx, ev) }

func (f HookFunc) OnComplete(ctx context.Context, ev Complete) { f(ctx, ev) }

func (f HookFunc) OnError(ctx context.Context, ev Error) { f(ctx, ev) }

// LoggingHook returns a hook that writes every received event to the
// default slog logger. Handy as a debugging subscriber and as the always-on
// second hook in a CompositeHook.
func LoggingHook() Hook {
	return loggingHook{}
}

type loggingHook struct{}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func (loggingHook) OnComponent(ctx context.Context, ev Component) {
	slog.InfoContext(ctx, "component update", slogx.ByteString("event", mustJSON(ev)))
}

func (loggingHook) OnLayout(ctx context.Context, ev Layout) {
	slog.InfoContext(ctx, "layout update", slogx.ByteString("event", mustJSON(ev)))
}

func (loggingHook) OnTypes(ctx context.Context, ev Types) {
	slog.InfoContext(ctx, "types update", slogx.ByteString("event", mustJSON(ev)))
}

func (loggingHook) OnComplete(ctx context.Context, ev Complete) {
	slog.InfoContext(ctx, "generation complete", slogx.ByteString("event", mustJSON(ev)))
}

func (loggingHook) OnError(ctx context.Context, ev Error) {
	slog.ErrorContext(ctx, "generation failed", slogx.Error(ev))
}

// NewCompositeHook combines multiple hooks into one. Hooks are invoked in
// the order they were passed in.
func NewCompositeHook(hooks ...Hook) Hook {
	return CompositeHook(hooks)
}

// CompositeHook fans one event out to a list of hooks. It is a utility for
// combining hooks, not a way to avoid implementing the full interface.
type CompositeHook []Hook

func (c CompositeHook) OnComponent(ctx context.Context, ev Component) {
	for h := range slices.Values(c) {
		h.OnComponent(ctx, ev)
	}
}

func (c CompositeHook) OnLayout(ctx context.Context, ev Layout) {
	for h := range slices.Values(c) {
		h.OnLayout(ctx, ev)
	}
}

func (c CompositeHook) OnTypes(ctx context.Context, ev Types) {
	for h := range slices.Values(c) {
		h.OnTypes(ctx, ev)
	}
}

func (c CompositeHook) OnComplete(ctx context.Context, ev Complete) {
	for h := range slices.Values(c) {
		h.OnComplete(ctx, ev)
	}
}

func (c CompositeHook) OnError(ctx context.Context, ev Error) {
	for h := range slices.Values(c) {
		h.OnError(ctx, ev)
	}
}
