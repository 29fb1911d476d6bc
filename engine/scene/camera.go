package scene

import "github.com/go-gl/mathgl/mgl32"

// Camera is a perspective camera orbiting Target.
type Camera struct {
	FovY     float32 // degrees
	Aspect   float32
	Near     float32
	Far      float32
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
}

func NewPerspectiveCamera(fovY, aspect, near, far float32) *Camera {
	return &Camera{
		FovY:   fovY,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Up:     mgl32.Vec3{0, 1, 0},
	}
}

// SetAspect updates the aspect ratio from a framebuffer size. A zero height
// (minimized window) is ignored.
func (c *Camera) SetAspect(width, height uint32) {
	if height == 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

// Orbit rotates the camera position around Target by yaw (around Up) and
// changes the distance by zoom (1 keeps it).
func (c *Camera) Orbit(yawDeg float32, zoom float32) {
	offset := c.Position.Sub(c.Target)
	rot := mgl32.QuatRotate(mgl32.DegToRad(yawDeg), c.Up)
	offset = rot.Rotate(offset)
	if zoom > 0 {
		offset = offset.Mul(zoom)
	}
	c.Position = c.Target.Add(offset)
}
