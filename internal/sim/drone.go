package sim

import (
	"math"

	"drone-city-sim/internal/geom"
)

// FlightParams holds the arcade flight model constants. Rates are per second
// and are applied through geom.Blend/geom.Decay.
type FlightParams struct {
	MaxStep float64 `mapstructure:"maxStep"`

	MaxSpeed             float64 `mapstructure:"maxSpeed"`
	MaxVerticalSpeed     float64 `mapstructure:"maxVerticalSpeed"`
	Acceleration         float64 `mapstructure:"acceleration"`
	StrafeFactor         float64 `mapstructure:"strafeFactor"`
	VerticalAcceleration float64 `mapstructure:"verticalAcceleration"`
	RotationSpeed        float64 `mapstructure:"rotationSpeed"`
	YawDampingRate       float64 `mapstructure:"yawDampingRate"`

	Gravity              float64 `mapstructure:"gravity"`
	ThrottleGravityScale float64 `mapstructure:"throttleGravityScale"`
	DragRate             float64 `mapstructure:"dragRate"`
	SpeedDragRate        float64 `mapstructure:"speedDragRate"`
	VerticalDampingRate  float64 `mapstructure:"verticalDampingRate"`
	StopSpeed            float64 `mapstructure:"stopSpeed"`

	MinAltitude   float64   `mapstructure:"minAltitude"`
	MaxAltitude   float64   `mapstructure:"maxAltitude"`
	Bounce        float64   `mapstructure:"bounce"`
	BounceCutoff  float64   `mapstructure:"bounceCutoff"`
	ResetPosition geom.Vec3 `mapstructure:"resetPosition"`

	MaxTilt          float64 `mapstructure:"maxTilt"`
	TiltRate         float64 `mapstructure:"tiltRate"`
	TiltRecoveryRate float64 `mapstructure:"tiltRecoveryRate"`

	PropellerIdle     float64 `mapstructure:"propellerIdle"`
	PropellerAirborne float64 `mapstructure:"propellerAirborne"`
	PropellerThrottle float64 `mapstructure:"propellerThrottle"`
	PropellerRate     float64 `mapstructure:"propellerRate"`

	Battery BatteryParams `mapstructure:"battery"`
}

// DefaultFlightParams returns the tuned arcade model. The smoothing rates
// reproduce the per-frame factors of a 60 Hz loop (tilt 0.12, recovery 0.03,
// propeller 0.15, yaw damping 0.9).
func DefaultFlightParams() FlightParams {
	return FlightParams{
		MaxStep: 0.05,

		MaxSpeed:             60,
		MaxVerticalSpeed:     25,
		Acceleration:         40,
		StrafeFactor:         0.8,
		VerticalAcceleration: 35,
		RotationSpeed:        2.5,
		YawDampingRate:       geom.RateFromTickFactor(0.1, 60),

		Gravity:              12,
		ThrottleGravityScale: 0.3,
		DragRate:             0.3,
		SpeedDragRate:        0.3,
		VerticalDampingRate:  geom.RateFromTickFactor(0.05, 60),
		StopSpeed:            0.01,

		MinAltitude:   2,
		MaxAltitude:   500,
		Bounce:        0.3,
		BounceCutoff:  1,
		ResetPosition: geom.Vec3{X: 0, Y: 30, Z: 0},

		MaxTilt:          0.5,
		TiltRate:         geom.RateFromTickFactor(0.12, 60),
		TiltRecoveryRate: geom.RateFromTickFactor(0.03, 60),

		PropellerIdle:     20,
		PropellerAirborne: 40,
		PropellerThrottle: 20,
		PropellerRate:     geom.RateFromTickFactor(0.15, 60),

		Battery: DefaultBatteryParams(),
	}
}

// Pose is a read-only snapshot of the drone state for the camera, recorder
// and HUD. Pitch and Roll are visual tilt only.
type Pose struct {
	Position       geom.Vec3
	Velocity       geom.Vec3
	Yaw            float64
	Pitch          float64
	Roll           float64
	YawRate        float64
	PropellerSpeed float64
}

// HorizontalSpeed is the XZ speed.
func (p Pose) HorizontalSpeed() float64 { return p.Velocity.HorizontalLength() }

// Heading is yaw in degrees normalized to [0,360).
func (p Pose) Heading() float64 { return geom.WrapDegrees(geom.RadToDeg(p.Yaw)) }

type Drone struct {
	Position geom.Vec3
	Velocity geom.Vec3
	Rotation geom.Vec3 // Pitch (X), Yaw (Y), Roll (Z) in radians
	YawRate  float64

	PropellerSpeed float64
	PropellerAngle float64

	Battery BatteryState
	Params  FlightParams

	// Previous state for render interpolation
	PrevPosition geom.Vec3
	PrevRotation geom.Vec3

	Rig *DroneRig

	throttleActive bool
	batteryFactor  float64
}

func NewDrone(params FlightParams) *Drone {
	d := &Drone{
		Position:      params.ResetPosition,
		PrevPosition:  params.ResetPosition,
		Battery:       NewBatteryState(params.Battery),
		Params:        params,
		Rig:           NewDroneRig(),
		batteryFactor: 1,
	}
	d.Rig.Sync(d)
	return d
}

// Step advances the flight model by one tick.
func (d *Drone) Step(intent ControlIntent, wind geom.Vec3, dt float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}
	if dt > d.Params.MaxStep {
		dt = d.Params.MaxStep
	}
	d.PrevPosition = d.Position
	d.PrevRotation = d.Rotation

	// Thrust flag reflects this tick's intent so drain and gravity see it.
	d.throttleActive = intent.Thrusting()

	d.batteryFactor = d.updateBattery(dt)

	gravity := d.Params.Gravity * d.batteryFactor * dt
	if d.throttleActive {
		gravity *= d.Params.ThrottleGravityScale
	}
	d.Velocity.Y -= gravity
	if wind.IsFinite() {
		d.Velocity = d.Velocity.Add(wind)
	}

	d.applyDrag(dt)

	d.Position = d.Position.Add(d.Velocity.Mul(dt))

	d.handleGroundCollision()
	d.enforceFlightEnvelope()

	d.applyIntent(intent, dt)
	d.updateYaw(intent, dt)
	d.applyVerticalThrust(intent, dt)

	d.updateTilt(dt)
	d.updatePropellers(dt)

	d.sanitize()
	d.Rig.Sync(d)

	d.throttleActive = false
}

// Reset teleports to the reset pose and clears motion state. Battery is kept.
func (d *Drone) Reset() {
	d.Position = d.Params.ResetPosition
	d.Velocity = geom.Vec3{}
	d.Rotation = geom.Vec3{}
	d.YawRate = 0
	d.PropellerSpeed = 0
	d.PropellerAngle = 0
	d.PrevPosition = d.Position
	d.PrevRotation = d.Rotation
	d.throttleActive = false
	d.Rig.Sync(d)
}

// ResetSession resets the pose and recharges the battery.
func (d *Drone) ResetSession() {
	d.Reset()
	d.Battery = NewBatteryState(d.Params.Battery)
	d.batteryFactor = 1
}

func (d *Drone) Pose() Pose {
	return Pose{
		Position:       d.Position,
		Velocity:       d.Velocity,
		Yaw:            d.Rotation.Y,
		Pitch:          d.Rotation.X,
		Roll:           d.Rotation.Z,
		YawRate:        d.YawRate,
		PropellerSpeed: d.PropellerSpeed,
	}
}

// BatteryFactor is the force multiplier from the last tick.
func (d *Drone) BatteryFactor() float64 { return d.batteryFactor }

func (d *Drone) airborne() bool {
	return d.Position.Y > d.Params.MinAltitude+0.5
}

func (d *Drone) updateBattery(dt float64) float64 {
	speedRatio := 0.0
	if d.Params.MaxSpeed > 0 {
		speedRatio = d.Velocity.HorizontalLength() / d.Params.MaxSpeed
	}
	if d.airborne() || d.throttleActive {
		d.Battery.Drain(speedRatio, d.throttleActive, dt)
	}
	return d.Battery.Factor()
}

// applyDrag decays horizontal velocity faster as speed grows; vertical
// velocity uses a fixed damping rate.
func (d *Drone) applyDrag(dt float64) {
	speedRatio := 0.0
	if d.Params.MaxSpeed > 0 {
		speedRatio = d.Velocity.Length() / d.Params.MaxSpeed
	}
	h := geom.Decay(d.Params.DragRate+d.Params.SpeedDragRate*speedRatio, dt)
	d.Velocity.X *= h
	d.Velocity.Z *= h
	d.Velocity.Y *= geom.Decay(d.Params.VerticalDampingRate, dt)

	if math.Abs(d.Velocity.X) < d.Params.StopSpeed {
		d.Velocity.X = 0
	}
	if math.Abs(d.Velocity.Z) < d.Params.StopSpeed {
		d.Velocity.Z = 0
	}
}

// Ground collision bounces a fraction of the downward speed and kills
// residual bounces below the cutoff; the ceiling only stops upward motion.
func (d *Drone) handleGroundCollision() {
	if d.Position.Y < d.Params.MinAltitude {
		d.Position.Y = d.Params.MinAltitude
		if d.Velocity.Y < 0 {
			d.Velocity.Y = -d.Velocity.Y * d.Params.Bounce
			if d.Velocity.Y < d.Params.BounceCutoff {
				d.Velocity.Y = 0
			}
		}
	}

	if d.Position.Y > d.Params.MaxAltitude {
		d.Position.Y = d.Params.MaxAltitude
		if d.Velocity.Y > 0 {
			d.Velocity.Y = 0
		}
	}
}

// Flight envelope enforcement
func (d *Drone) enforceFlightEnvelope() {
	d.clampHorizontalSpeed()

	if d.Velocity.Y > d.Params.MaxVerticalSpeed {
		d.Velocity.Y = d.Params.MaxVerticalSpeed
	}
	if d.Velocity.Y < -d.Params.MaxVerticalSpeed {
		d.Velocity.Y = -d.Params.MaxVerticalSpeed
	}
}

func (d *Drone) clampHorizontalSpeed() {
	h := d.Velocity.HorizontalLength()
	if h > d.Params.MaxSpeed && h > 0 {
		scale := d.Params.MaxSpeed / h
		d.Velocity.X *= scale
		d.Velocity.Z *= scale
	}
}

// altitudeFactor reduces control authority in thinner air.
func (d *Drone) altitudeFactor() float64 {
	if d.Params.MaxAltitude <= 0 {
		return 1
	}
	return math.Max(0.5, 1-d.Position.Y/d.Params.MaxAltitude*0.5)
}

func (d *Drone) applyIntent(intent ControlIntent, dt float64) {
	dirX, dirZ := intent.Direction()
	if dirX == 0 && dirZ == 0 {
		return
	}
	accel := d.Params.Acceleration * d.altitudeFactor() * d.batteryFactor * dt
	local := geom.Vec3{
		X: dirX * accel * d.Params.StrafeFactor,
		Z: dirZ * accel,
	}
	d.Velocity = d.Velocity.Add(local.RotateY(d.Rotation.Y))
	d.clampHorizontalSpeed()
}

func (d *Drone) updateYaw(intent ControlIntent, dt float64) {
	if turn := intent.Turn(); turn != 0 {
		d.YawRate += turn * d.Params.RotationSpeed * d.batteryFactor * dt
	}
	d.YawRate *= geom.Decay(d.Params.YawDampingRate, dt)
	d.Rotation.Y += d.YawRate * dt

	// Wrap yaw to [-pi, pi] to avoid unbounded growth
	for d.Rotation.Y > math.Pi {
		d.Rotation.Y -= 2 * math.Pi
	}
	for d.Rotation.Y < -math.Pi {
		d.Rotation.Y += 2 * math.Pi
	}
}

func (d *Drone) applyVerticalThrust(intent ControlIntent, dt float64) {
	thrust := d.Params.VerticalAcceleration * d.batteryFactor * dt
	if intent.Ascend {
		d.Velocity.Y = math.Min(d.Velocity.Y+thrust, d.Params.MaxVerticalSpeed)
	}
	if intent.Descend {
		d.Velocity.Y = math.Max(d.Velocity.Y-thrust, -d.Params.MaxVerticalSpeed)
	}
}

// LocalVelocity is the velocity expressed in the drone's yaw frame
// (Z forward, X left).
func (d *Drone) LocalVelocity() geom.Vec3 {
	return d.Velocity.RotateY(-d.Rotation.Y)
}

func (d *Drone) updateTilt(dt float64) {
	local := d.LocalVelocity()
	horizontal := local.HorizontalLength()
	speedRatio := 0.0
	if d.Params.MaxSpeed > 0 {
		speedRatio = math.Min(horizontal/d.Params.MaxSpeed, 1)
	}

	intensity := 0.015 + speedRatio*0.01
	targetPitch := local.Z * intensity
	targetRoll := -local.X * intensity
	if d.throttleActive {
		targetPitch *= 1.3
		targetRoll *= 1.3
	}
	targetPitch = geom.Clamp(targetPitch, -d.Params.MaxTilt, d.Params.MaxTilt)
	targetRoll = geom.Clamp(targetRoll, -d.Params.MaxTilt, d.Params.MaxTilt)

	k := geom.Blend(d.Params.TiltRate, dt)
	d.Rotation.X += (targetPitch - d.Rotation.X) * k
	d.Rotation.Z += (targetRoll - d.Rotation.Z) * k

	if d.Velocity.Length() < 1 {
		r := geom.Decay(d.Params.TiltRecoveryRate, dt)
		d.Rotation.X *= r
		d.Rotation.Z *= r
	}
}

func (d *Drone) updatePropellers(dt float64) {
	base := d.Params.PropellerIdle
	if d.Position.Y > d.Params.MinAltitude+1 {
		base = d.Params.PropellerAirborne
	}
	target := base + d.Velocity.HorizontalLength()*1.5
	if d.throttleActive {
		target += d.Params.PropellerThrottle
	}
	d.PropellerSpeed += (target - d.PropellerSpeed) * geom.Blend(d.Params.PropellerRate, dt)
	d.PropellerAngle = math.Mod(d.PropellerAngle+d.PropellerSpeed*dt, 2*math.Pi)
}

// sanitize guards against NaN/Inf creeping in from a bad collaborator.
func (d *Drone) sanitize() {
	if !d.Position.IsFinite() {
		d.Position = d.Params.ResetPosition
	}
	d.Velocity.X = sanitizeFinite(d.Velocity.X)
	d.Velocity.Y = sanitizeFinite(d.Velocity.Y)
	d.Velocity.Z = sanitizeFinite(d.Velocity.Z)
	d.YawRate = sanitizeFinite(d.YawRate)
	d.Rotation.X = sanitizeFinite(d.Rotation.X)
	d.Rotation.Y = sanitizeFinite(d.Rotation.Y)
	d.Rotation.Z = sanitizeFinite(d.Rotation.Z)
}

func sanitizeFinite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// TransformMatrix interpolates between the previous and current tick.
func (d *Drone) TransformMatrix(alpha float64) geom.Mat4 {
	alpha = geom.Clamp(alpha, 0, 1)
	p := d.PrevPosition.Lerp(d.Position, alpha)
	r := d.PrevRotation.Lerp(d.Rotation, alpha)
	// Yaw wraps at +-pi; avoid sweeping the long way round.
	if math.Abs(d.Rotation.Y-d.PrevRotation.Y) > math.Pi {
		r.Y = d.Rotation.Y
	}
	return geom.ComposeTRS(p, r.Y, r.X, r.Z, geom.Vec3{X: 1, Y: 1, Z: 1})
}
