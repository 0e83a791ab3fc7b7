package geometry

import "github.com/Faultbox/navbake/pkg/math"

// Basis converts scene space (Z up) to build space (Y up):
// (x, y, z) -> (x, z, -y), a -90 degree turn about X.
var Basis = math.Mat4{
	1, 0, 0, 0,
	0, 0, -1, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
}

// ComposeTransform returns the matrix placing local geometry in build space:
// rotate about X, then Y, then Z, translate to position, then apply Basis.
func ComposeTransform(position, rotationDeg [3]float32) math.Mat4 {
	return Basis.
		Mul(math.Translate(position[0], position[1], position[2])).
		Mul(math.RotateEulerDeg(rotationDeg))
}

// ShapeTransform composes the transform of one physics shape: the shape's
// local pose, then the actor pose, then the prop's world scale, then the
// entity transform.
func ShapeTransform(entity math.Mat4, worldScale float32, actorPose, localPose math.Mat4) math.Mat4 {
	return entity.
		Mul(math.UniformScale(worldScale)).
		Mul(actorPose).
		Mul(localPose)
}
