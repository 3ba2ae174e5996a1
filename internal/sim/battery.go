package sim

type BatteryParams struct {
	DrainRate           float64 `mapstructure:"drainRate"` // percent per second
	SpeedDrainFactor    float64 `mapstructure:"speedDrainFactor"`
	ThrottleDrainFactor float64 `mapstructure:"throttleDrainFactor"`
	LowThreshold        float64 `mapstructure:"lowThreshold"`
	MinFactor           float64 `mapstructure:"minFactor"`
}

func DefaultBatteryParams() BatteryParams {
	return BatteryParams{
		DrainRate:           0.05,
		SpeedDrainFactor:    1.5,
		ThrottleDrainFactor: 0.5,
		LowThreshold:        20,
		MinFactor:           0.35,
	}
}

// BatteryState tracks charge in percent. Level only goes up through
// NewBatteryState (a session reset).
type BatteryState struct {
	Level           float64
	DrainRate       float64
	DrainMultiplier float64

	params BatteryParams
}

func NewBatteryState(p BatteryParams) BatteryState {
	return BatteryState{
		Level:           100,
		DrainRate:       p.DrainRate,
		DrainMultiplier: 1,
		params:          p,
	}
}

// Drain consumes charge for dt seconds. speedRatio is horizontal speed over
// max speed.
func (b *BatteryState) Drain(speedRatio float64, throttle bool, dt float64) {
	if dt <= 0 {
		return
	}
	if speedRatio < 0 {
		speedRatio = 0
	}
	b.DrainMultiplier = 1 + speedRatio*b.params.SpeedDrainFactor
	if throttle {
		b.DrainMultiplier += b.params.ThrottleDrainFactor
	}
	b.Level -= b.DrainRate * dt * b.DrainMultiplier
	if b.Level < 0 {
		b.Level = 0
	}
}

// Factor scales control forces. Above the low threshold it is 1; below it
// degrades linearly down to MinFactor at empty.
func (b BatteryState) Factor() float64 {
	low := b.params.LowThreshold
	if low <= 0 || b.Level >= low {
		return 1
	}
	return b.params.MinFactor + (1-b.params.MinFactor)*(b.Level/low)
}

// Low reports whether the battery is below the warning threshold.
func (b BatteryState) Low() bool { return b.Level < b.params.LowThreshold }
