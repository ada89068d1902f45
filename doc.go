/*
Package preview streams live UI generation progress from producers to
in-process consumers, one broadcast stream per conversation.

The package sits between the code generator and whatever watches it: the
generator publishes typed events as components, layout and type definitions
take shape, and any number of consumers observe the same ordered stream for
the conversations they care about. Everything stays inside the process,
there is no persistence and no delivery across process boundaries.

The core abstractions:

  - Channel: the conversation-keyed registry. Publish and Subscribe are
    both addressed by conversation ID.
  - Session: the producer handle for one generation run. It enforces the
    event lifecycle, progress events followed by exactly one terminal
    event.
  - Subscription: the consumer handle, detach with Unsubscribe.
  - events.Event: the sealed event union, see the events package.

# Basic Usage

A consumer subscribes before the run starts, the producer publishes through
a session:

	channel := preview.New()

	stop, err := channel.Listen(ctx, conversationID, func(ctx context.Context, ev events.Event) {
		// render ev
	})
	if err != nil {
		// Handle error
	}
	defer stop()

	session := channel.Session(conversationID)
	session.Component(ctx, "UserCard", code, 30)
	session.Layout(ctx, layoutCode, 60)
	session.Complete(ctx)

# Delivery Semantics

1. Ordering (channel.go)
  - One publish delivers to every subscriber before the next publish to the
    same conversation begins
  - All subscribers of a conversation observe the same order

2. No retention (channel.go)
  - Publishing to a conversation without subscribers drops the event
  - Subscribers observe events published after they attach, never before

3. Isolation (internal/broker)
  - A panicking subscriber callback is recovered and logged, delivery to
    the remaining subscribers continues
  - Distinct conversations never share a stream

# Integration

The repository ships supporting pieces around the core:

  - events for the typed event union and its wire format
  - state for folding a stream into the latest-known preview snapshot
  - internal/httpapi for the SSE and WebSocket fan-out server
  - cmd/previewd and cmd/previewtail for running and watching it

# Thread Safety

Channels, sessions and subscriptions are safe for concurrent use. Hooks are
invoked synchronously on the publisher's goroutine, so slow or blocking
hooks stall the producer; keep callbacks short and hand heavy work to a
goroutine of your own.
*/
package preview
