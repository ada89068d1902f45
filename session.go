package preview

import (
	"context"
	"errors"
	"sync"

	"github.com/casualjim/preview/events"
)

// ErrTerminated is returned by session publishing methods once the session
// has delivered its terminal event.
var ErrTerminated = errors.New("preview session already terminated")

// Session is the producer side of one conversation. It enforces the
// lifecycle the channel itself does not track: any number of progress
// events, then exactly one terminal event, then nothing. Construct one per
// generation run via Channel.Session.
//
// All methods are safe for concurrent use. The terminal check and the
// publish happen under one lock, so a racing progress event can never land
// behind complete or error.
type Session struct {
	channel        *Channel
	conversationID string

	mu   sync.Mutex
	done bool
}

// Session returns a producer handle for the conversation. The handle keeps
// no reference to any topic, so creating one does not make the channel
// retain events for the conversation.
func (c *Channel) Session(conversationID string) *Session {
	return &Session{channel: c, conversationID: conversationID}
}

// ConversationID returns the conversation this session publishes to.
func (s *Session) ConversationID() string { return s.conversationID }

// Done reports whether the session has published its terminal event.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Component publishes a component update. Validation failures are returned
// without publishing anything and without ending the session.
func (s *Session) Component(ctx context.Context, name, code string, progress int) error {
	ev, err := events.NewComponent(name, code, progress)
	if err != nil {
		return err
	}
	return s.publish(ctx, ev)
}

// Layout publishes a layout update.
func (s *Session) Layout(ctx context.Context, code string, progress int) error {
	ev, err := events.NewLayout(code, progress)
	if err != nil {
		return err
	}
	return s.publish(ctx, ev)
}

// Types publishes a type definition update.
func (s *Session) Types(ctx context.Context, progress int) error {
	ev, err := events.NewTypes(progress)
	if err != nil {
		return err
	}
	return s.publish(ctx, ev)
}

// Complete ends the session successfully.
func (s *Session) Complete(ctx context.Context) error {
	return s.publish(ctx, events.NewComplete())
}

// Fail ends the session with a failure message.
func (s *Session) Fail(ctx context.Context, message string) error {
	ev, err := events.NewError(message)
	if err != nil {
		return err
	}
	return s.publish(ctx, ev)
}

func (s *Session) publish(ctx context.Context, ev events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return ErrTerminated
	}
	if events.IsTerminal(ev) {
		// The session ends on the attempt, not on successful delivery. A
		// canceled publish still terminates the run.
		s.done = true
	}

	return s.channel.Publish(ctx, s.conversationID, ev)
}
