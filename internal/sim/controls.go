package sim

// Key is a backend-neutral key identifier. The glfw and tcell sources
// translate their native codes into these.
type Key int

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	KeyR
	KeyC
	KeyL
	KeyM
	KeyV
	KeyH
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
	KeyShift
	KeyEscape
)

// HeldSet is the set of keys held down this tick.
type HeldSet map[Key]bool

// NewHeldSet builds a set from a key list.
func NewHeldSet(keys ...Key) HeldSet {
	h := make(HeldSet, len(keys))
	for _, k := range keys {
		h[k] = true
	}
	return h
}

func (h HeldSet) any(keys ...Key) bool {
	for _, k := range keys {
		if h[k] {
			return true
		}
	}
	return false
}

// ControlIntent is rebuilt every tick and never persisted.
type ControlIntent struct {
	MoveForward    bool
	MoveBackward   bool
	StrafeLeft     bool
	StrafeRight    bool
	YawLeft        bool
	YawRight       bool
	Ascend         bool
	Descend        bool
	ResetRequested bool
}

// Direction returns the local thrust direction: x is +1 for left strafe,
// z is +1 for forward. Opposing keys cancel.
func (c ControlIntent) Direction() (x, z float64) {
	if c.MoveForward {
		z++
	}
	if c.MoveBackward {
		z--
	}
	if c.StrafeLeft {
		x++
	}
	if c.StrafeRight {
		x--
	}
	return x, z
}

// Turn is +1 for yaw left, -1 for yaw right.
func (c ControlIntent) Turn() float64 {
	t := 0.0
	if c.YawLeft {
		t++
	}
	if c.YawRight {
		t--
	}
	return t
}

// Thrusting reports whether translational or vertical thrust is requested.
func (c ControlIntent) Thrusting() bool {
	x, z := c.Direction()
	return x != 0 || z != 0 || c.Ascend || c.Descend
}

// edgeBindings are keys that fire once per key-down edge.
var edgeBindings = []struct {
	key  Key
	kind ActionKind
}{
	{KeyR, ActionReset},
	{KeyC, ActionToggleDroneCam},
	{KeyL, ActionToggleHeadlight},
	{KeyM, ActionCycleEnvironment},
	{KeyV, ActionToggleRecording},
	{KeyH, ActionToggleHUD},
}

// Controls turns held keys into intents and edge-triggered actions.
type Controls struct {
	prev HeldSet
}

func NewControls() *Controls {
	return &Controls{prev: HeldSet{}}
}

// Aggregate maps the held set to this tick's intent and the actions whose
// key went down since the previous call.
func (c *Controls) Aggregate(held HeldSet) (ControlIntent, []Action) {
	intent := ControlIntent{
		MoveForward:  held.any(KeyW, KeyUp),
		MoveBackward: held.any(KeyS, KeyDown),
		StrafeLeft:   held.any(KeyA, KeyLeft),
		StrafeRight:  held.any(KeyD, KeyRight),
		YawLeft:      held[KeyQ],
		YawRight:     held[KeyE],
		Ascend:       held[KeySpace],
		Descend:      held[KeyShift],
	}

	var actions []Action
	for _, b := range edgeBindings {
		if held[b.key] && !c.prev[b.key] {
			kind := b.kind
			if kind == ActionReset {
				intent.ResetRequested = true
				// Shift+R also recharges the battery.
				if held[KeyShift] {
					kind = ActionResetSession
				}
			}
			actions = append(actions, Action{Kind: kind})
		}
	}

	next := make(HeldSet, len(held))
	for k, v := range held {
		if v {
			next[k] = true
		}
	}
	c.prev = next
	return intent, actions
}

// FocusLost forgets held keys so nothing stays stuck down and the next
// press is seen as a fresh edge.
func (c *Controls) FocusLost() {
	c.prev = HeldSet{}
}
