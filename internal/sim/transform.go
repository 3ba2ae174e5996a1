package sim

import (
	"math"

	"drone-city-sim/internal/geom"
)

// Transform is a local translation, yaw/pitch/roll rotation and scale.
type Transform struct {
	Translation geom.Vec3
	Yaw         float64
	Pitch       float64
	Roll        float64
	Scale       geom.Vec3
}

func IdentityTransform() Transform {
	return Transform{Scale: geom.Vec3{X: 1, Y: 1, Z: 1}}
}

func (t Transform) Matrix() geom.Mat4 {
	return geom.ComposeTRS(t.Translation, t.Yaw, t.Pitch, t.Roll, t.Scale)
}

type TransformNode struct {
	Name   string
	Local  Transform
	Parent int // -1 for a root
}

// TransformTree stores nodes in a flat slice; a parent always precedes its
// children.
type TransformTree struct {
	Nodes []TransformNode
}

// Add appends a node and returns its index. The parent must already exist.
func (t *TransformTree) Add(name string, parent int, local Transform) int {
	if parent >= len(t.Nodes) {
		parent = -1
	}
	t.Nodes = append(t.Nodes, TransformNode{Name: name, Local: local, Parent: parent})
	return len(t.Nodes) - 1
}

func (t *TransformTree) SetLocal(i int, local Transform) {
	if i < 0 || i >= len(t.Nodes) {
		return
	}
	t.Nodes[i].Local = local
}

// World composes the parent chain for node i.
func (t *TransformTree) World(i int) geom.Mat4 {
	m := geom.IdentityMat4()
	for i >= 0 && i < len(t.Nodes) {
		m = t.Nodes[i].Local.Matrix().Mul(m)
		i = t.Nodes[i].Parent
	}
	return m
}

// Find returns the index of the first node with the given name, or -1.
func (t *TransformTree) Find(name string) int {
	for i, n := range t.Nodes {
		if n.Name == name {
			return i
		}
	}
	return -1
}

// Quad arm mounts, X configuration.
var propellerMounts = [4]geom.Vec3{
	{X: 1.2, Y: 0.25, Z: 1.2},
	{X: -1.2, Y: 0.25, Z: 1.2},
	{X: -1.2, Y: 0.25, Z: -1.2},
	{X: 1.2, Y: 0.25, Z: -1.2},
}

// DroneRig is the drone's transform hierarchy: body, four propellers and
// the nose camera.
type DroneRig struct {
	Tree       TransformTree
	Body       int
	Propellers [4]int
	Camera     int

	camParams DroneCamParams
}

func NewDroneRig() *DroneRig {
	return NewDroneRigWithCamera(DefaultDroneCamParams())
}

func NewDroneRigWithCamera(cam DroneCamParams) *DroneRig {
	r := &DroneRig{camParams: cam}
	r.Body = r.Tree.Add("body", -1, IdentityTransform())
	for i, m := range propellerMounts {
		local := IdentityTransform()
		local.Translation = m
		r.Propellers[i] = r.Tree.Add(propellerName(i), r.Body, local)
	}
	camLocal := IdentityTransform()
	camLocal.Translation = cam.Mount
	// Positive pitch dips +Z; a negative mount pitch means look down.
	camLocal.Pitch = -cam.Pitch
	r.Camera = r.Tree.Add("camera", r.Body, camLocal)
	return r
}

func propellerName(i int) string {
	return "propeller" + itoa(i)
}

// Sync copies the drone pose into the body node and spins the propellers,
// adjacent rotors in opposite directions.
func (r *DroneRig) Sync(d *Drone) {
	body := IdentityTransform()
	body.Translation = d.Position
	body.Yaw = d.Rotation.Y
	body.Pitch = d.Rotation.X
	body.Roll = d.Rotation.Z
	r.Tree.SetLocal(r.Body, body)

	for i, idx := range r.Propellers {
		local := r.Tree.Nodes[idx].Local
		spin := d.PropellerAngle
		if i%2 == 1 {
			spin = -spin
		}
		local.Yaw = math.Mod(spin, 2*math.Pi)
		r.Tree.SetLocal(idx, local)
	}
}
