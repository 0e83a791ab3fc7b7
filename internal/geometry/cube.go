package geometry

import "github.com/Faultbox/navbake/pkg/math"

// DefaultVolumeExtent is the generated volume size used when an entity's
// dimension is the zero vector.
var DefaultVolumeExtent = [3]float32{1, 1, 1}

// cubeCorners are the corners of [-1, 1]^3; bit 0 of the index selects +X,
// bit 1 +Y and bit 2 +Z.
var cubeCorners = [8][3]float32{
	{-1, -1, -1}, {1, -1, -1}, {-1, 1, -1}, {1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {-1, 1, 1}, {1, 1, 1},
}

// cubeTriangles wind counter-clockwise seen from outside. The bottom cap is
// split along its 0-3 diagonal.
var cubeTriangles = [12][3]int32{
	{0, 3, 1}, {0, 2, 3}, // bottom -Z
	{4, 5, 7}, {4, 7, 6}, // top +Z
	{0, 1, 5}, {0, 5, 4}, // front -Y
	{2, 7, 3}, {2, 6, 7}, // back +Y
	{0, 4, 6}, {0, 6, 2}, // left -X
	{1, 3, 7}, {1, 7, 5}, // right +X
}

// WhiteboxLocal returns the local matrix of a whitebox cube: scaled by the
// half extents with the bottom face at the origin.
func WhiteboxLocal(halfExtents [3]float32) math.Mat4 {
	return math.Translate(0, 0, halfExtents[2]).
		Mul(math.Scale(halfExtents[0], halfExtents[1], halfExtents[2]))
}

// VolumeLocal returns the local matrix of a generated volume cube: centred,
// with full extents dimension, or DefaultVolumeExtent when dimension is zero.
func VolumeLocal(dimension [3]float32) math.Mat4 {
	if dimension == [3]float32{} {
		dimension = DefaultVolumeExtent
	}
	return math.Scale(dimension[0]/2, dimension[1]/2, dimension[2]/2)
}

// appendCube appends the 8-vertex cube through m and returns the index of
// its first triangle.
func appendCube(soup *Soup, m math.Mat4, area AreaTag) int {
	first := soup.TriangleCount()
	base := int32(soup.VertexCount())
	for _, c := range cubeCorners {
		soup.AddVertex(m.TransformPoint(c))
	}
	for _, t := range cubeTriangles {
		soup.AddTriangle(base+t[0], base+t[1], base+t[2], area)
	}
	return first
}
