package geometry

import "github.com/Faultbox/navbake/pkg/math"

// Ceiling duplication constants, in build space.
const (
	// CeilingNormalThreshold is the unit normal Y below which a face
	// counts as facing down.
	CeilingNormalThreshold float32 = -0.1
)

// CeilingOffset is added to every vertex of a ceiling duplicate.
var CeilingOffset = [3]float32{0, 0.25, 0}

// minDoubleArea is the cross product length below which a face is degenerate.
const minDoubleArea = 1e-12

// FaceNormal returns the unit normal of a counter-clockwise triangle and
// false when the triangle is degenerate.
func FaceNormal(a, b, c [3]float32) (math.Vec3, bool) {
	va, vb, vc := math.FromArray(a), math.FromArray(b), math.FromArray(c)
	n := vb.Sub(va).Cross(vc.Sub(va))
	l := n.Length()
	if l < minDoubleArea {
		return math.Vec3{}, false
	}
	return n.Scale(1 / l), true
}

// IsCeiling reports whether a face with unit normal n faces down.
func IsCeiling(n math.Vec3) bool {
	return n.Y < CeilingNormalThreshold
}

// Classify appends an AreaCeiling duplicate, offset by CeilingOffset, for
// every downward AreaDefault triangle at index from or later. Originals keep
// their tag. It returns the number of duplicates added.
func Classify(soup *Soup, from int) int {
	end := soup.TriangleCount()
	added := 0
	for t := from; t < end; t++ {
		if soup.Areas[t] != AreaDefault {
			continue
		}
		tri := soup.TriangleVertices(t)
		n, ok := FaceNormal(tri[0], tri[1], tri[2])
		if !ok || !IsCeiling(n) {
			continue
		}

		var idx [3]int32
		for i, v := range tri {
			idx[i] = soup.AddVertex([3]float32{
				v[0] + CeilingOffset[0],
				v[1] + CeilingOffset[1],
				v[2] + CeilingOffset[2],
			})
		}
		soup.AddTriangle(idx[0], idx[1], idx[2], AreaCeiling)
		added++
	}
	return added
}
