// Package recast builds a polygon mesh from an indexed triangle soup.
//
// It is a solo-mesh voxel pipeline: the triangles are rasterized into a span
// heightfield, filtered, compacted, partitioned into watershed regions, traced
// into contours and finally triangulated and merged into convex polygons. All
// coordinates inside the pipeline are in cell units; the resulting PolyMesh
// carries the origin and cell sizes needed to convert back to world space.
package recast

import (
	"errors"
	"fmt"
	"math"
)

// Area ids. Any non-null area is walkable; ids must stay below 64.
const (
	NullArea     uint8 = 0
	WalkableArea uint8 = 63
)

// MeshNullIdx marks an unused vertex or neighbour slot in PolyMesh.Polys.
const MeshNullIdx = 0xffff

// Contour tessellation flags for BuildContours.
const (
	ContourTessWallEdges = 0x01
	ContourTessAreaEdges = 0x02
)

const (
	spanMaxHeight     = (1 << 13) - 1
	maxHeight         = 0xffff
	notConnected      = 0x3f
	maxLayers         = notConnected - 1
	borderReg         = 0x8000
	borderVertex      = 0x10000
	areaBorder        = 0x20000
	contourRegMask    = 0xffff
	multipleRegs      = 0
	vertexBucketCount = 1 << 12
	nbStacks          = 8
	maxContourWalk    = 40000
)

// Pipeline errors.
var (
	ErrInvalidConfig   = errors.New("invalid recast config")
	ErrEmptyInput      = errors.New("empty input geometry")
	ErrTooManyVertices = errors.New("too many vertices")
	ErrTooManyPolygons = errors.New("too many polygons")
	ErrBadContour      = errors.New("bad contour")
)

// Config holds the build parameters in cell units.
type Config struct {
	Width      int // Grid size along x
	Height     int // Grid size along z
	BorderSize int
	CellSize   float32
	CellHeight float32
	BMin       [3]float32
	BMax       [3]float32

	WalkableSlopeAngle float32 // Degrees
	WalkableHeight     int
	WalkableClimb      int
	WalkableRadius     int

	MaxEdgeLen             int
	MaxSimplificationError float32
	MinRegionArea          int
	MergeRegionArea        int
	MaxVertsPerPoly        int

	DetailSampleDist     float32 // World units; zero skips the detail pass
	DetailSampleMaxError float32 // World units
}

// Validate checks the configuration can drive a build.
func (c *Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: grid size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.CellSize <= 0 || c.CellHeight <= 0:
		return fmt.Errorf("%w: cell size %v/%v", ErrInvalidConfig, c.CellSize, c.CellHeight)
	case c.WalkableHeight < 3:
		return fmt.Errorf("%w: walkable height %d < 3", ErrInvalidConfig, c.WalkableHeight)
	case c.WalkableClimb < 0 || c.WalkableRadius < 0:
		return fmt.Errorf("%w: negative climb or radius", ErrInvalidConfig)
	case c.MaxVertsPerPoly < 3:
		return fmt.Errorf("%w: verts per poly %d < 3", ErrInvalidConfig, c.MaxVertsPerPoly)
	case c.DetailSampleDist < 0 || c.DetailSampleMaxError < 0:
		return fmt.Errorf("%w: negative detail sampling", ErrInvalidConfig)
	}
	return nil
}

// CalcBounds returns the axis-aligned bounds of a flat xyz vertex array.
func CalcBounds(verts []float32) (bmin, bmax [3]float32) {
	if len(verts) < 3 {
		return bmin, bmax
	}
	copy(bmin[:], verts[:3])
	copy(bmax[:], verts[:3])
	for i := 3; i+2 < len(verts); i += 3 {
		for k := 0; k < 3; k++ {
			bmin[k] = min(bmin[k], verts[i+k])
			bmax[k] = max(bmax[k], verts[i+k])
		}
	}
	return bmin, bmax
}

// CalcGridSize returns the grid dimensions covering the bounds at cell size
// cs. Each dimension is at least one cell.
func CalcGridSize(bmin, bmax [3]float32, cs float32) (w, h int) {
	w = int((bmax[0]-bmin[0])/cs + 0.5)
	h = int((bmax[2]-bmin[2])/cs + 0.5)
	return max(w, 1), max(h, 1)
}

var (
	dirOffsetX = [4]int{-1, 0, 1, 0}
	dirOffsetY = [4]int{0, 1, 0, -1}
)

func setCon(s *CompactSpan, dir, i int) {
	shift := uint(dir * 6)
	s.con = (s.con &^ (0x3f << shift)) | ((i & 0x3f) << shift)
}

func getCon(s *CompactSpan, dir int) int {
	return (s.con >> uint(dir*6)) & 0x3f
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func triNormal(v0, v1, v2 []float32) [3]float32 {
	e0 := [3]float32{v1[0] - v0[0], v1[1] - v0[1], v1[2] - v0[2]}
	e1 := [3]float32{v2[0] - v0[0], v2[1] - v0[1], v2[2] - v0[2]}
	n := [3]float32{
		e0[1]*e1[2] - e0[2]*e1[1],
		e0[2]*e1[0] - e0[0]*e1[2],
		e0[0]*e1[1] - e0[1]*e1[0],
	}
	d := float32(math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])))
	if d > 0 {
		n[0] /= d
		n[1] /= d
		n[2] /= d
	}
	return n
}

// WalkableThreshold returns the minimum normal Y component of a walkable
// triangle for the given slope in degrees.
func WalkableThreshold(slopeDeg float32) float32 {
	return float32(math.Cos(float64(slopeDeg) / 180 * math.Pi))
}

// MarkWalkableTriangles sets areas[i] to WalkableArea for every triangle whose
// slope is below slopeDeg. Other entries are left untouched.
func MarkWalkableTriangles(slopeDeg float32, verts []float32, tris []int32, areas []uint8) {
	thr := WalkableThreshold(slopeDeg)
	for i := 0; i*3+2 < len(tris) && i < len(areas); i++ {
		a, b, c := int(tris[i*3])*3, int(tris[i*3+1])*3, int(tris[i*3+2])*3
		n := triNormal(verts[a:a+3], verts[b:b+3], verts[c:c+3])
		if n[1] > thr {
			areas[i] = WalkableArea
		}
	}
}
