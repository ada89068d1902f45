package state

import (
	"context"
	"testing"

	"github.com/casualjim/preview/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewAggregatesComponents(t *testing.T) {
	pre := New("conv-1")
	ctx := context.Background()

	first, err := events.NewComponent("UserCard", "<UserCard />", 20)
	require.NoError(t, err)
	second, err := events.NewComponent("Sidebar", "<Sidebar />", 40)
	require.NoError(t, err)
	updated, err := events.NewComponent("UserCard", "<UserCard avatar />", 60)
	require.NoError(t, err)

	pre.OnComponent(ctx, first)
	pre.OnComponent(ctx, second)
	pre.OnComponent(ctx, updated)

	snap := pre.Snapshot()
	assert.Equal(t, "conv-1", snap.ConversationID)
	require.Len(t, snap.Components, 2)

	// Re-publishing UserCard updates it in place, first-seen order holds.
	assert.Equal(t, "UserCard", snap.Components[0].Name)
	assert.Equal(t, "<UserCard avatar />", snap.Components[0].Code)
	assert.Equal(t, 60, snap.Components[0].Progress)
	assert.Equal(t, "Sidebar", snap.Components[1].Name)

	assert.Equal(t, 60, snap.Progress["component"])
	assert.False(t, snap.Done)
}

func TestPreviewTracksLayoutAndTypes(t *testing.T) {
	pre := New("conv-1")
	ctx := context.Background()

	assert.False(t, pre.HasLayout())

	layout, err := events.NewLayout("<Grid cols=2 />", 55)
	require.NoError(t, err)
	types, err := events.NewTypes(80)
	require.NoError(t, err)

	pre.OnLayout(ctx, layout)
	pre.OnTypes(ctx, types)

	assert.True(t, pre.HasLayout())
	snap := pre.Snapshot()
	assert.Equal(t, "<Grid cols=2 />", snap.Layout)
	assert.Equal(t, 55, snap.Progress["layout"])
	assert.Equal(t, 80, snap.Progress["types"])
	assert.Equal(t, types.Timestamp, snap.UpdatedAt)
}

func TestPreviewTerminalStates(t *testing.T) {
	t.Run("complete marks the preview done", func(t *testing.T) {
		pre := New("conv-1")
		pre.OnComplete(context.Background(), events.NewComplete())

		assert.True(t, pre.Done())
		snap := pre.Snapshot()
		assert.True(t, snap.Done)
		assert.False(t, snap.Failed)
		assert.Equal(t, 100, snap.Progress["complete"])
	})

	t.Run("error records the failure", func(t *testing.T) {
		pre := New("conv-1")
		failure, err := events.NewError("model returned malformed code")
		require.NoError(t, err)
		pre.OnError(context.Background(), failure)

		assert.True(t, pre.Done())
		snap := pre.Snapshot()
		assert.True(t, snap.Done)
		assert.True(t, snap.Failed)
		assert.Equal(t, "model returned malformed code", snap.Failure)
		assert.Equal(t, 0, snap.Progress["error"])
	})
}

func TestSnapshotIsACopy(t *testing.T) {
	pre := New("conv-1")
	ctx := context.Background()

	component, err := events.NewComponent("Widget", "<Widget />", 10)
	require.NoError(t, err)
	pre.OnComponent(ctx, component)

	before := pre.Snapshot()

	updated, err := events.NewComponent("Widget", "<Widget v2 />", 90)
	require.NoError(t, err)
	pre.OnComponent(ctx, updated)
	pre.OnComplete(ctx, events.NewComplete())

	assert.Equal(t, "<Widget />", before.Components[0].Code)
	assert.Equal(t, 10, before.Progress["component"])
	assert.False(t, before.Done)

	after := pre.Snapshot()
	assert.Equal(t, "<Widget v2 />", after.Components[0].Code)
	assert.True(t, after.Done)
}
