package sim

import (
	"drone-city-sim/internal/geom"
)

// CameraView is everything a renderer needs to draw from one viewpoint.
type CameraView struct {
	Eye    geom.Vec3
	Target geom.Vec3
	Up     geom.Vec3
	FOV    float64 // vertical, degrees
	Near   float64
	Far    float64
	Width  int
	Height int
}

func (v CameraView) View() geom.Mat4 {
	return geom.LookAtMat4(v.Eye, v.Target, v.Up)
}

func (v CameraView) Projection() geom.Mat4 {
	w, h := v.Width, v.Height
	// Ensure minimum dimensions to avoid division by zero
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return geom.PerspectiveMat4(v.FOV, float64(w)/float64(h), v.Near, v.Far)
}

// ViewProjection is Projection * View.
func (v CameraView) ViewProjection() geom.Mat4 {
	return v.Projection().Mul(v.View())
}

type CameraParams struct {
	Offset    geom.Vec3 `mapstructure:"offset"`
	LookAhead geom.Vec3 `mapstructure:"lookAhead"`
	Smoothing float64   `mapstructure:"smoothing"` // per second
	FOV       float64   `mapstructure:"fov"`
	Near      float64   `mapstructure:"near"`
	Far       float64   `mapstructure:"far"`
}

func DefaultCameraParams() CameraParams {
	return CameraParams{
		Offset:    geom.Vec3{X: 0, Y: 12, Z: -35},
		LookAhead: geom.Vec3{X: 0, Y: 0, Z: 10},
		Smoothing: geom.RateFromTickFactor(0.08, 60),
		FOV:       60,
		Near:      0.1,
		Far:       5000,
	}
}

// ChaseCamera trails the drone from behind and above, looking at a point
// ahead of it.
type ChaseCamera struct {
	Position geom.Vec3
	LookAt   geom.Vec3
	Up       geom.Vec3
	Params   CameraParams
}

func NewChaseCamera(p CameraParams) *ChaseCamera {
	return &ChaseCamera{Up: geom.Vec3{Y: 1}, Params: p}
}

func (c *ChaseCamera) target(pose Pose) geom.Vec3 {
	return pose.Position.Add(c.Params.Offset.RotateY(pose.Yaw))
}

func (c *ChaseCamera) lookAt(pose Pose) geom.Vec3 {
	return pose.Position.Add(c.Params.LookAhead.RotateY(pose.Yaw))
}

// Update moves the camera toward its target behind the drone. Only yaw is
// followed so tilt jitter never reaches the camera.
func (c *ChaseCamera) Update(pose Pose, dt float64) {
	k := geom.Blend(c.Params.Smoothing, dt)
	c.Position = c.Position.Lerp(c.target(pose), k)
	c.LookAt = c.lookAt(pose)
}

// Snap places the camera on its target immediately.
func (c *ChaseCamera) Snap(pose Pose) {
	c.Position = c.target(pose)
	c.LookAt = c.lookAt(pose)
}

func (c *ChaseCamera) View(width, height int) CameraView {
	return CameraView{
		Eye:    c.Position,
		Target: c.LookAt,
		Up:     c.Up,
		FOV:    c.Params.FOV,
		Near:   c.Params.Near,
		Far:    c.Params.Far,
		Width:  width,
		Height: height,
	}
}

type DroneCamParams struct {
	Mount  geom.Vec3 `mapstructure:"mount"`
	Pitch  float64   `mapstructure:"pitch"`
	FOV    float64   `mapstructure:"fov"`
	Width  int       `mapstructure:"width"`
	Height int       `mapstructure:"height"`
	Far    float64   `mapstructure:"far"`
}

func DefaultDroneCamParams() DroneCamParams {
	return DroneCamParams{
		Mount:  geom.Vec3{X: 0, Y: -0.3, Z: 1.3},
		Pitch:  -0.15,
		FOV:    75,
		Width:  320,
		Height: 240,
		Far:    2000,
	}
}

// CameraView derives the nose camera view from the rig's camera node.
func (r *DroneRig) CameraView() CameraView {
	p := r.camParams
	world := r.Tree.World(r.Camera)
	eye := world.Translation()
	forward := world.MulDirection(geom.Vec3{Z: 1}).NormalizeSafe(1e-9)
	up := world.MulDirection(geom.Vec3{Y: 1}).NormalizeSafe(1e-9)
	return CameraView{
		Eye:    eye,
		Target: eye.Add(forward.Mul(10)),
		Up:     up,
		FOV:    p.FOV,
		Near:   0.1,
		Far:    p.Far,
		Width:  p.Width,
		Height: p.Height,
	}
}
