package httpapi

import (
	"context"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/preview"
	"github.com/casualjim/preview/pkg/stdx"
	"github.com/casualjim/preview/state"
)

// tracker keeps one state aggregator per conversation the API was asked
// about. Aggregators subscribe like any other consumer, so they only
// observe events published after the first state request for their
// conversation, and they stay attached for the life of the server.
type tracker struct {
	ctx      context.Context
	channel  *preview.Channel
	previews *haxmap.Map[string, *state.Preview]
}

func newTracker(ctx context.Context, channel *preview.Channel) *tracker {
	return &tracker{
		ctx:      ctx,
		channel:  channel,
		previews: haxmap.New[string, *state.Preview](),
	}
}

// ensure returns the aggregator for the conversation, attaching a fresh one
// on first use. Callers pass route-matched ids, which are never empty, so
// the subscribe cannot fail.
func (t *tracker) ensure(conversationID string) *state.Preview {
	pre, _ := t.previews.GetOrCompute(conversationID, func() *state.Preview {
		p := state.New(conversationID)
		stdx.Must1(t.channel.Subscribe(t.ctx, conversationID, p))
		return p
	})
	return pre
}
