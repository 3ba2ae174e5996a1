package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kinds(actions []Action) []ActionKind {
	out := make([]ActionKind, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

func TestActionsAreEdgeTriggered(t *testing.T) {
	c := NewControls()

	intent, actions := c.Aggregate(NewHeldSet(KeyR, KeyW))
	assert.Equal(t, []ActionKind{ActionReset}, kinds(actions))
	assert.True(t, intent.ResetRequested)
	assert.True(t, intent.MoveForward)

	for i := 0; i < 3; i++ {
		intent, actions = c.Aggregate(NewHeldSet(KeyR, KeyW))
		assert.Empty(t, actions)
		assert.False(t, intent.ResetRequested)
		assert.True(t, intent.MoveForward)
	}

	_, actions = c.Aggregate(NewHeldSet())
	assert.Empty(t, actions)
	_, actions = c.Aggregate(NewHeldSet(KeyR, KeyV, KeyM))
	assert.Equal(t, []ActionKind{ActionReset, ActionCycleEnvironment, ActionToggleRecording}, kinds(actions))
}

func TestShiftResetRequestsSessionReset(t *testing.T) {
	c := NewControls()
	intent, actions := c.Aggregate(NewHeldSet(KeyShift, KeyR))
	assert.Equal(t, []ActionKind{ActionResetSession}, kinds(actions))
	assert.True(t, intent.ResetRequested)
	assert.True(t, intent.Descend)
}

func TestFocusLostRearmsEdges(t *testing.T) {
	c := NewControls()
	_, actions := c.Aggregate(NewHeldSet(KeyC))
	assert.Len(t, actions, 1)

	c.FocusLost()
	_, actions = c.Aggregate(NewHeldSet(KeyC))
	assert.Equal(t, []ActionKind{ActionToggleDroneCam}, kinds(actions))
}

func TestIntentMapping(t *testing.T) {
	c := NewControls()

	intent, _ := c.Aggregate(NewHeldSet(KeyUp, KeyLeft, KeyQ, KeySpace))
	x, z := intent.Direction()
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 1.0, z)
	assert.Equal(t, 1.0, intent.Turn())
	assert.True(t, intent.Ascend)
	assert.True(t, intent.Thrusting())

	// opposing keys cancel
	intent, _ = c.Aggregate(NewHeldSet(KeyW, KeyS, KeyA, KeyD, KeyQ, KeyE))
	x, z = intent.Direction()
	assert.Zero(t, x)
	assert.Zero(t, z)
	assert.Zero(t, intent.Turn())
	assert.False(t, intent.Thrusting())

	intent, _ = c.Aggregate(HeldSet{KeyShift: true, KeyW: false})
	assert.True(t, intent.Descend)
	assert.False(t, intent.MoveForward)
	assert.True(t, intent.Thrusting())
}

func TestDispatcherRunsHandlersInOrder(t *testing.T) {
	q := NewActionQueue()
	d := NewDispatcher(q)

	var got []string
	d.Register(ActionReset, func(Action) { got = append(got, "reset-1") })
	d.Register(ActionReset, func(Action) { got = append(got, "reset-2") })
	d.Register(ActionToggleHUD, func(Action) { got = append(got, "hud") })

	q.Push(Action{Kind: ActionToggleHUD}, Action{Kind: ActionReset}, Action{Kind: ActionToggleHeadlight})
	assert.Equal(t, 2, d.Dispatch())
	assert.Equal(t, []string{"hud", "reset-1", "reset-2"}, got)
	assert.Zero(t, q.Len())
	assert.Zero(t, d.Dispatch())
}
