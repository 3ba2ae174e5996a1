package sim

import (
	"sort"
	"strconv"
	"sync"
)

// HUD names published every tick.
const (
	HUDAltitude        = "altitude"
	HUDSpeed           = "speed"
	HUDPositionX       = "pos_x"
	HUDPositionZ       = "pos_z"
	HUDHeading         = "heading"
	HUDBattery         = "battery"
	HUDWindSpeed       = "wind"
	HUDRecorder        = "recorder"
	HUDRecordedFrames  = "rec_frames"
	HUDEnvironment     = "environment"
	HUDDetectionStatus = "detection"
	HUDDetectionCount  = "detections"
	HUDNotice          = "notice"
)

// HUD receives named values once per tick. Values are float64 or string.
type HUD interface {
	Publish(name string, value any)
}

// HUDValues keeps the latest value per name. Safe to read from another
// goroutine while the tick publishes.
type HUDValues struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewHUDValues() *HUDValues {
	return &HUDValues{values: make(map[string]any)}
}

func (h *HUDValues) Publish(name string, value any) {
	h.mu.Lock()
	h.values[name] = value
	h.mu.Unlock()
}

func (h *HUDValues) Float(name string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.values[name].(float64)
	return v, ok
}

func (h *HUDValues) String(name string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.values[name].(string)
	return v, ok
}

// Snapshot copies all values.
func (h *HUDValues) Snapshot() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]any, len(h.values))
	for k, v := range h.values {
		out[k] = v
	}
	return out
}

// Names returns the published names in sorted order.
func (h *HUDValues) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.values))
	for k := range h.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// multiHUD fans a publish out to several sinks.
type multiHUD []HUD

func (m multiHUD) Publish(name string, value any) {
	for _, h := range m {
		h.Publish(name, value)
	}
}

// MultiHUD combines HUD sinks, skipping nil entries.
func MultiHUD(sinks ...HUD) HUD {
	out := make(multiHUD, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Simple integer to string without fmt to avoid allocation overhead in UI loop
func itoa(v int) string { return strconv.FormatInt(int64(v), 10) }

// Format with 1 decimal place without fmt.
func fmt1(x float64) string {
	return strconv.FormatFloat(x, 'f', 1, 64)
}
