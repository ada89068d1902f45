// Package broker implements the per-conversation broadcast mechanism that
// carries preview events from a code-generation producer to every consumer
// currently watching the conversation.
//
// Design decisions:
//   - Topic per conversation: every conversation ID maps to exactly one
//     topic, created lazily and never explicitly destroyed. An abandoned
//     topic is unreachable once its last subscriber detaches and gets
//     collected with the broker.
//   - Synchronous fan-out, no buffering: Publish runs every hook inline and
//     returns when the last one has. There is no queue, no replay and no
//     backpressure; an event published while nobody is attached is gone,
//     and late consumers render from the next event onward.
//   - Per-topic delivery order: fan-outs for one conversation are
//     serialized, so every subscriber observes events in the same order
//     publishers submitted them. Different conversations share nothing and
//     have no relative ordering.
//   - Hook isolation: a panicking subscriber is logged and skipped, the
//     remaining subscribers and the publisher are unaffected.
//   - Soft capacity: subscriber counts above the high-watermark log a
//     warning but never reject the subscription, so a burst of legitimate
//     viewers degrades loudly instead of failing.
//
// Example usage:
//
//	broker := broker.Local()
//	topic := broker.Topic(ctx, "conv-1")
//
//	sub, err := topic.Subscribe(ctx, hook)
//	if err != nil {
//	    return err
//	}
//	defer sub.Unsubscribe()
//
//	event, err := events.NewComponent("Header", "<div/>", 20)
//	if err != nil {
//	    return err
//	}
//	if err := topic.Publish(ctx, event); err != nil {
//	    return err
//	}
//
// The package is internal: collaborators go through the preview.Channel
// facade, which layers the publish-side drop semantics on top and keeps
// the broker swappable.
package broker
