// Package geometry turns placed map entities into a triangle soup in build
// space, tagged per triangle for the mesh builder.
package geometry

import (
	"errors"
	"fmt"
	gomath "math"
)

// ErrInvalidSoup is returned by Soup.Validate.
var ErrInvalidSoup = errors.New("invalid triangle soup")

// AreaTag classifies a soup triangle for the mesh builder.
type AreaTag uint8

const (
	AreaNone    AreaTag = 0 // Never produced by extraction
	AreaDefault AreaTag = 1 // Walkable if the slope allows
	AreaFluid   AreaTag = 2 // Swimmable, never walkable
	AreaCeiling AreaTag = 3 // Offset duplicate of a downward face
)

// String returns a human-readable area name.
func (a AreaTag) String() string {
	switch a {
	case AreaNone:
		return "None"
	case AreaDefault:
		return "Default"
	case AreaFluid:
		return "Fluid"
	case AreaCeiling:
		return "Ceiling"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// Soup accumulates the triangles of one map block.
// len(Triangles) == 3*len(Areas) and every index is below len(Vertices)/3.
type Soup struct {
	Vertices  []float32 // x, y, z per vertex
	Triangles []int32   // vertex index triples
	Areas     []AreaTag // one per triangle
}

// NewSoup returns an empty soup.
func NewSoup() *Soup {
	return &Soup{}
}

// VertexCount returns the number of vertices.
func (s *Soup) VertexCount() int { return len(s.Vertices) / 3 }

// TriangleCount returns the number of triangles.
func (s *Soup) TriangleCount() int { return len(s.Areas) }

// Empty reports whether the soup has neither vertices nor triangles.
func (s *Soup) Empty() bool {
	return len(s.Vertices) == 0 && len(s.Triangles) == 0
}

// AddVertex appends a vertex and returns its index.
func (s *Soup) AddVertex(v [3]float32) int32 {
	idx := int32(len(s.Vertices) / 3)
	s.Vertices = append(s.Vertices, v[0], v[1], v[2])
	return idx
}

// AddTriangle appends a triangle over existing vertices.
func (s *Soup) AddTriangle(a, b, c int32, area AreaTag) {
	s.Triangles = append(s.Triangles, a, b, c)
	s.Areas = append(s.Areas, area)
}

// Vertex returns vertex i.
func (s *Soup) Vertex(i int32) [3]float32 {
	return [3]float32{s.Vertices[i*3], s.Vertices[i*3+1], s.Vertices[i*3+2]}
}

// Triangle returns the vertex indices of triangle t.
func (s *Soup) Triangle(t int) (a, b, c int32) {
	return s.Triangles[t*3], s.Triangles[t*3+1], s.Triangles[t*3+2]
}

// TriangleVertices returns the three corner positions of triangle t.
func (s *Soup) TriangleVertices(t int) [3][3]float32 {
	a, b, c := s.Triangle(t)
	return [3][3]float32{s.Vertex(a), s.Vertex(b), s.Vertex(c)}
}

// AreaCounts returns the number of triangles per area tag.
func (s *Soup) AreaCounts() map[AreaTag]int {
	counts := make(map[AreaTag]int)
	for _, a := range s.Areas {
		counts[a]++
	}
	return counts
}

// Bounds returns the axis-aligned bounds of all vertices. It returns zero
// vectors for an empty soup.
func (s *Soup) Bounds() (bmin, bmax [3]float32) {
	if len(s.Vertices) < 3 {
		return bmin, bmax
	}
	for i := 0; i < 3; i++ {
		bmin[i] = s.Vertices[i]
		bmax[i] = s.Vertices[i]
	}
	for v := 3; v < len(s.Vertices); v += 3 {
		for i := 0; i < 3; i++ {
			bmin[i] = min(bmin[i], s.Vertices[v+i])
			bmax[i] = max(bmax[i], s.Vertices[v+i])
		}
	}
	return bmin, bmax
}

// Validate checks the soup invariants.
func (s *Soup) Validate() error {
	if len(s.Vertices)%3 != 0 {
		return fmt.Errorf("%w: %d vertex components", ErrInvalidSoup, len(s.Vertices))
	}
	if len(s.Triangles) != 3*len(s.Areas) {
		return fmt.Errorf("%w: %d indices for %d area tags", ErrInvalidSoup, len(s.Triangles), len(s.Areas))
	}
	n := int32(s.VertexCount())
	for i, idx := range s.Triangles {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: index %d at %d out of range [0, %d)", ErrInvalidSoup, idx, i, n)
		}
	}
	for i, v := range s.Vertices {
		if gomath.IsNaN(float64(v)) || gomath.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: non-finite vertex component at %d", ErrInvalidSoup, i)
		}
	}
	return nil
}
