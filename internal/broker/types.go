package broker

import (
	"context"

	"github.com/casualjim/preview/events"
)

// Broker owns the mapping from conversation ID to broadcast topic. There is
// at most one topic per conversation at any time.
type Broker interface {
	// Topic returns the conversation's topic, creating it when absent.
	Topic(context.Context, string) Topic

	// Lookup returns the conversation's topic only if it already exists.
	// Publish paths use this so a conversation nobody watches never
	// allocates a topic.
	Lookup(string) (Topic, bool)
}

// Topic is the broadcast group for one conversation.
type Topic interface {
	Publish(context.Context, events.Event) error
	Subscribe(context.Context, events.Hook) (Subscription, error)

	// Subscribers reports how many hooks are currently attached.
	Subscribers() int
}

// Subscription is the handle returned by Subscribe. Unsubscribe is
// idempotent.
type Subscription interface {
	ID() string
	Unsubscribe()
}
