package sim

import (
	"sync"
)

type ActionKind int

const (
	ActionReset ActionKind = iota + 1
	ActionToggleDroneCam
	ActionToggleHeadlight
	ActionCycleEnvironment
	ActionToggleRecording
	ActionToggleHUD
	ActionResetSession
)

func (k ActionKind) String() string {
	switch k {
	case ActionReset:
		return "reset"
	case ActionToggleDroneCam:
		return "toggle_drone_cam"
	case ActionToggleHeadlight:
		return "toggle_headlight"
	case ActionCycleEnvironment:
		return "cycle_environment"
	case ActionToggleRecording:
		return "toggle_recording"
	case ActionToggleHUD:
		return "toggle_hud"
	case ActionResetSession:
		return "reset_session"
	default:
		return "unknown"
	}
}

// Action is a discrete event emitted by the input aggregator.
type Action struct {
	Kind ActionKind
}

// ActionQueue is a thread-safe FIFO. Key callbacks may push from the
// windowing thread while the tick drains it.
type ActionQueue struct {
	mu    sync.Mutex
	items []Action
}

func NewActionQueue() *ActionQueue {
	return &ActionQueue{items: make([]Action, 0, 8)}
}

func (q *ActionQueue) Push(items ...Action) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

func (q *ActionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// GetAndEmpty returns all queued actions and clears the queue.
func (q *ActionQueue) GetAndEmpty() []Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]Action, 0, cap(q.items))
	return result
}

type ActionHandler func(Action)

// Dispatcher routes queued actions to the components that own them.
type Dispatcher struct {
	queue    *ActionQueue
	handlers map[ActionKind][]ActionHandler
}

func NewDispatcher(q *ActionQueue) *Dispatcher {
	return &Dispatcher{queue: q, handlers: make(map[ActionKind][]ActionHandler)}
}

// Register adds a handler for kind. Several handlers may share a kind; they
// run in registration order.
func (d *Dispatcher) Register(kind ActionKind, h ActionHandler) {
	d.handlers[kind] = append(d.handlers[kind], h)
}

// Dispatch drains the queue and returns how many actions were handled.
// Actions without a handler are dropped.
func (d *Dispatcher) Dispatch() int {
	handled := 0
	for _, a := range d.queue.GetAndEmpty() {
		hs := d.handlers[a.Kind]
		for _, h := range hs {
			h(a)
		}
		if len(hs) > 0 {
			handled++
		}
	}
	return handled
}
