package sim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/sim"
)

func assertVecNear(t *testing.T, want, got geom.Vec3, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func TestTransformTreeComposesParents(t *testing.T) {
	var tree sim.TransformTree
	rootLocal := sim.IdentityTransform()
	rootLocal.Translation = geom.Vec3{X: 10}
	rootLocal.Yaw = math.Pi / 2
	root := tree.Add("root", -1, rootLocal)

	childLocal := sim.IdentityTransform()
	childLocal.Translation = geom.Vec3{Z: 5}
	child := tree.Add("child", root, childLocal)

	leafLocal := sim.IdentityTransform()
	leafLocal.Translation = geom.Vec3{Y: 2}
	leaf := tree.Add("leaf", child, leafLocal)

	want := geom.Vec3{X: 10}.Add(geom.Vec3{Z: 5}.RotateY(math.Pi / 2)).Add(geom.Vec3{Y: 2})
	assertVecNear(t, want, tree.World(leaf).Translation(), 1e-9)

	// moving the root moves every descendant
	rootLocal.Translation = geom.Vec3{X: -4, Y: 1}
	tree.SetLocal(root, rootLocal)
	want = geom.Vec3{X: -4, Y: 1}.Add(geom.Vec3{Z: 5}.RotateY(math.Pi / 2)).Add(geom.Vec3{Y: 2})
	assertVecNear(t, want, tree.World(leaf).Translation(), 1e-9)

	assert.Equal(t, child, tree.Find("child"))
	assert.Equal(t, -1, tree.Find("missing"))

	orphan := tree.Add("orphan", 99, sim.IdentityTransform())
	assert.Equal(t, -1, tree.Nodes[orphan].Parent)
}

func TestDroneRigFollowsDrone(t *testing.T) {
	p := sim.DefaultFlightParams()
	p.ResetPosition = geom.Vec3{X: 5, Y: 20, Z: -3}
	d := sim.NewDrone(p)
	d.Rotation.Y = 0.7
	d.PropellerAngle = 0.3
	d.Rig.Sync(d)

	rig := d.Rig
	require.Equal(t, rig.Camera, rig.Tree.Find("camera"))
	assert.Equal(t, rig.Propellers[0], rig.Tree.Find("propeller0"))

	front := rig.Tree.World(rig.Propellers[0]).Translation()
	assertVecNear(t, d.Position.Add(geom.Vec3{X: 1.2, Y: 0.25, Z: 1.2}.RotateY(0.7)), front, 1e-9)

	// adjacent rotors spin in opposite directions
	assert.InDelta(t, 0.3, rig.Tree.Nodes[rig.Propellers[0]].Local.Yaw, 1e-12)
	assert.InDelta(t, -0.3, rig.Tree.Nodes[rig.Propellers[1]].Local.Yaw, 1e-12)

	view := rig.CameraView()
	mount := sim.DefaultDroneCamParams().Mount
	assertVecNear(t, d.Position.Add(mount.RotateY(0.7)), view.Eye, 1e-9)

	forward := view.Target.Sub(view.Eye).Normalize()
	assert.Less(t, forward.Y, 0.0, "nose camera looks slightly down")
	level := geom.Vec3{Z: 1}.RotateY(0.7)
	assert.Greater(t, forward.Dot(level), 0.95)
	assert.Equal(t, 320, view.Width)
	assert.Equal(t, 240, view.Height)
}

func TestChaseCameraConvergesFrameRateIndependently(t *testing.T) {
	pose := sim.Pose{Position: geom.Vec3{X: 100, Y: 40, Z: 100}, Yaw: 1.2}

	run := func(hz int) geom.Vec3 {
		c := sim.NewChaseCamera(sim.DefaultCameraParams())
		for i := 0; i < hz; i++ {
			c.Update(pose, 1/float64(hz))
		}
		return c.Position
	}
	assertVecNear(t, run(60), run(144), 1e-9)

	c := sim.NewChaseCamera(sim.DefaultCameraParams())
	for i := 0; i < 60*30; i++ {
		c.Update(pose, dt)
	}
	offset := sim.DefaultCameraParams().Offset.RotateY(pose.Yaw)
	assertVecNear(t, pose.Position.Add(offset), c.Position, 1e-6)
	ahead := sim.DefaultCameraParams().LookAhead.RotateY(pose.Yaw)
	assertVecNear(t, pose.Position.Add(ahead), c.LookAt, 1e-12)
}

func TestChaseCameraSnap(t *testing.T) {
	c := sim.NewChaseCamera(sim.DefaultCameraParams())
	pose := sim.Pose{Position: geom.Vec3{Y: 30}}
	c.Snap(pose)
	assertVecNear(t, geom.Vec3{Y: 42, Z: -35}, c.Position, 1e-12)

	view := c.View(0, 0)
	proj := view.Projection()
	for _, v := range proj {
		assert.False(t, math.IsNaN(v))
	}
}
