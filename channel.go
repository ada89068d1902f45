package preview

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casualjim/preview/events"
	"github.com/casualjim/preview/internal/broker"
	"github.com/fogfish/opts"
)

// Subscription is the handle returned by Subscribe. Unsubscribe detaches
// the hook, takes effect for every event published after it returns, and is
// safe to call more than once.
type Subscription interface {
	ID() string
	Unsubscribe()
}

// Channel is the conversation-keyed broadcast registry. Producers publish
// typed events against a conversation ID, consumers attach hooks for the
// conversations they watch. Construct one per process, or one per test,
// and hand it to both sides explicitly; there is deliberately no package
// level default instance.
type Channel struct {
	registry      broker.Broker
	log           *slog.Logger
	highWatermark int
}

var (
	// WithHighWatermark configures the per-conversation subscriber count
	// above which subscribing logs a warning. The bound is soft, extra
	// subscribers are always accepted.
	WithHighWatermark = opts.ForName[Channel, int]("highWatermark")

	// WithLogger configures the logger used for dropped events, watermark
	// warnings and subscriber panics.
	WithLogger = opts.ForName[Channel, *slog.Logger]("log")
)

// New creates a channel backed by the in-process broker.
func New(options ...opts.Option[Channel]) *Channel {
	c := &Channel{
		log:           slog.Default(),
		highWatermark: broker.DefaultHighWatermark,
	}
	if err := opts.Apply(c, options); err != nil {
		panic(err)
	}
	c.registry = broker.Local().WithHighWatermark(c.highWatermark).WithLogger(c.log)
	return c
}

// Publish delivers event synchronously to every subscriber currently
// attached to the conversation, in the same order for each of them. When
// nobody has ever subscribed to the conversation there is no topic and the
// event is dropped without error: the channel keeps no state for unwatched
// conversations, so consumers must attach before generation starts or
// tolerate missing the earliest events.
func (c *Channel) Publish(ctx context.Context, conversationID string, event events.Event) error {
	if conversationID == "" {
		return errors.New("conversation id is required")
	}
	if event == nil {
		return errors.New("event is required")
	}

	topic, ok := c.registry.Lookup(conversationID)
	if !ok {
		c.log.DebugContext(ctx, "dropping event for unwatched conversation",
			slog.String("conversation_id", conversationID),
			slog.String("kind", events.Kind(event)),
		)
		return nil
	}

	return topic.Publish(ctx, event)
}

// Subscribe attaches hook to the conversation, creating its topic on first
// use. The hook observes every event published after this call returns and
// none published before. When ctx ends the subscription is detached lazily,
// an explicit Unsubscribe detaches immediately.
func (c *Channel) Subscribe(ctx context.Context, conversationID string, hook events.Hook) (Subscription, error) {
	if conversationID == "" {
		return nil, errors.New("conversation id is required")
	}
	return c.registry.Topic(ctx, conversationID).Subscribe(ctx, hook)
}

// Listen attaches a single callback for all event kinds and returns the
// detach function. It is the ergonomic form of Subscribe for consumers that
// want one stream instead of per-kind methods.
func (c *Channel) Listen(ctx context.Context, conversationID string, fn func(context.Context, events.Event)) (func(), error) {
	if fn == nil {
		return nil, errors.New("callback is required")
	}
	sub, err := c.Subscribe(ctx, conversationID, events.HookFunc(fn))
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// Subscribers reports how many hooks are currently attached to the
// conversation. A conversation nobody ever subscribed to reports zero.
func (c *Channel) Subscribers(conversationID string) int {
	topic, ok := c.registry.Lookup(conversationID)
	if !ok {
		return 0
	}
	return topic.Subscribers()
}
