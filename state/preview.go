// Package state folds a conversation's event stream into the latest known
// shape of the generated preview. It exists for surfaces that open late or
// re-render from scratch: the channel itself never buffers, so anything that
// needs "current state" keeps a Preview subscribed from the start and asks
// it for snapshots.
package state

import (
	"context"
	"maps"
	"sync"

	"github.com/casualjim/preview/events"
	"github.com/go-openapi/strfmt"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Component is the latest known state of one generated component.
type Component struct {
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	Progress  int             `json:"progress"`
	UpdatedAt strfmt.DateTime `json:"updated_at,omitempty"`
}

// Snapshot is an immutable copy of a conversation's preview state.
// Components appear in the order they were first seen, re-publishing a
// component updates it in place.
type Snapshot struct {
	ConversationID string          `json:"conversation_id"`
	Components     []Component     `json:"components"`
	Layout         string          `json:"layout,omitempty"`
	Progress       map[string]int  `json:"progress,omitempty"`
	Done           bool            `json:"done"`
	Failed         bool            `json:"failed,omitempty"`
	Failure        string          `json:"failure,omitempty"`
	UpdatedAt      strfmt.DateTime `json:"updated_at,omitempty"`
}

var _ events.Hook = (*Preview)(nil)

// Preview aggregates the event stream of a single conversation. It
// implements events.Hook, so it attaches to a channel subscription
// directly.
//
// Progress is tracked per event kind and never merged into a single
// counter, the kinds report independent pipelines and their numbers are
// not comparable.
type Preview struct {
	mu sync.Mutex

	conversationID string
	components     *orderedmap.OrderedMap[string, Component]
	layout         string
	hasLayout      bool
	progress       map[string]int
	done           bool
	failed         bool
	failure        string
	updatedAt      strfmt.DateTime
}

// New creates an empty aggregator for the conversation.
func New(conversationID string) *Preview {
	return &Preview{
		conversationID: conversationID,
		components:     orderedmap.New[string, Component](),
		progress:       make(map[string]int),
	}
}

// ConversationID returns the conversation this aggregator tracks.
func (p *Preview) ConversationID() string {
	return p.conversationID
}

// Done reports whether the conversation reached a terminal event.
func (p *Preview) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Snapshot returns a copy of the current state. The copy does not change
// when later events arrive.
func (p *Preview) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	components := make([]Component, 0, p.components.Len())
	for pair := p.components.Oldest(); pair != nil; pair = pair.Next() {
		components = append(components, pair.Value)
	}

	return Snapshot{
		ConversationID: p.conversationID,
		Components:     components,
		Layout:         p.layout,
		Progress:       maps.Clone(p.progress),
		Done:           p.done,
		Failed:         p.failed,
		Failure:        p.failure,
		UpdatedAt:      p.updatedAt,
	}
}

func (p *Preview) OnComponent(_ context.Context, ev events.Component) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.components.Set(ev.Name, Component{
		Name:      ev.Name,
		Code:      ev.Code,
		Progress:  ev.Progress,
		UpdatedAt: ev.Timestamp,
	})
	p.progress["component"] = ev.Progress
	p.touch(ev.Timestamp)
}

func (p *Preview) OnLayout(_ context.Context, ev events.Layout) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.layout = ev.Code
	p.hasLayout = true
	p.progress["layout"] = ev.Progress
	p.touch(ev.Timestamp)
}

func (p *Preview) OnTypes(_ context.Context, ev events.Types) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress["types"] = ev.Progress
	p.touch(ev.Timestamp)
}

func (p *Preview) OnComplete(_ context.Context, ev events.Complete) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = true
	p.progress["complete"] = ev.Progress
	p.touch(ev.Timestamp)
}

func (p *Preview) OnError(_ context.Context, ev events.Error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = true
	p.failed = true
	p.failure = ev.Message
	p.progress["error"] = ev.Progress
	p.touch(ev.Timestamp)
}

// HasLayout reports whether a layout event has been observed. The zero
// layout code is valid, so presence is tracked separately.
func (p *Preview) HasLayout() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasLayout
}

func (p *Preview) touch(ts strfmt.DateTime) {
	p.updatedAt = ts
}
