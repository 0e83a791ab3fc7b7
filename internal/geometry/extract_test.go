package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/navbake/pkg/formats"
	"github.com/Faultbox/navbake/pkg/math"
)

type mapResolver map[uint32]*formats.AssetDocument

func (m mapResolver) Lookup(id uint32) (*formats.AssetDocument, bool) {
	doc, ok := m[id]
	return doc, ok
}

// Scene-space unit quad at z=0 facing up, plus a face pointing down.
var (
	quadVertices = [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	floorFaces   = [][3]uint32{{0, 1, 2}, {0, 2, 3}}
	ceilingFace  = [3]uint32{0, 2, 1}
)

func encodeMesh(t *testing.T, vertices [][3]float32, faces [][3]uint32) []byte {
	t.Helper()
	data, err := (&formats.TriangleMesh{Vertices: vertices, Faces: faces}).MarshalBinary()
	require.NoError(t, err)
	return data
}

func meshDoc(id uint32, scale float32, shapes ...formats.Shape) *formats.AssetDocument {
	return &formats.AssetDocument{
		ID: id,
		Props: []formats.PhysicsProp{{
			WorldScale: scale,
			Actors: []formats.Actor{{
				Poses:  []math.Mat4{math.Identity()},
				Shapes: shapes,
			}},
		}},
	}
}

func meshShape(data []byte) formats.Shape {
	return formats.Shape{LocalPose: math.Identity(), Kind: formats.ShapeTriangleMesh, MeshData: data}
}

func entity(kind formats.EntityKind, assetID uint32) formats.Entity {
	return formats.Entity{
		Kind:       kind,
		Name:       "test",
		Mesh:       formats.FormatAssetRef(assetID),
		Navigation: true,
	}
}

func TestExtractFiltering(t *testing.T) {
	floor := meshDoc(1, 1, meshShape(encodeMesh(t, quadVertices, floorFaces)))
	assets := mapResolver{1: floor}

	tests := []struct {
		name   string
		mutate func(*formats.Entity)
	}{
		{"navigation disabled", func(e *formats.Entity) { e.Navigation = false }},
		{"empty reference", func(e *formats.Entity) { e.Mesh = "" }},
		{"wrong prefix", func(e *formats.Entity) { e.Mesh = "asset:00000001" }},
		{"bad hex", func(e *formats.Entity) { e.Mesh = "urn:llid:0000000g" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entity(formats.KindWhitebox, 1)
			e.HalfExtents = [3]float32{1, 1, 1}
			tt.mutate(&e)

			x := NewExtractor(assets, nil)
			soup := NewSoup()
			x.Extract(&e, soup)

			assert.True(t, soup.Empty())
			assert.Equal(t, 0, soup.VertexCount())
			assert.Equal(t, 0, soup.TriangleCount())
			assert.Equal(t, Stats{Entities: 1, Rejected: 1}, x.Stats())
		})
	}
}

func TestExtractNonNavigationIsQuiet(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	x := NewExtractor(mapResolver{}, zap.New(core))

	// Decorative entities often carry no mesh reference at all.
	e := entity(formats.KindModel, 1)
	e.Navigation = false
	e.Mesh = "not-a-ref"
	x.Extract(&e, NewSoup())

	assert.Equal(t, Stats{Entities: 1, Rejected: 1}, x.Stats())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("skipping non-navigation entity").Len())

	// A navigation entity with the same reference is worth a warning.
	e.Navigation = true
	x.Extract(&e, NewSoup())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestExtractModelWithCeiling(t *testing.T) {
	faces := append(append([][3]uint32{}, floorFaces...), ceilingFace)
	assets := mapResolver{1: meshDoc(1, 1, meshShape(encodeMesh(t, quadVertices, faces)))}

	x := NewExtractor(assets, nil)
	soup := NewSoup()
	e := entity(formats.KindModel, 1)
	x.Extract(&e, soup)

	require.NoError(t, soup.Validate())
	assert.Equal(t, 4, soup.TriangleCount())
	assert.Equal(t, map[AreaTag]int{AreaDefault: 3, AreaCeiling: 1}, soup.AreaCounts())

	stats := x.Stats()
	assert.Equal(t, 1, stats.Shapes)
	assert.Equal(t, 1, stats.Ceilings)
	assert.Equal(t, 4, stats.Triangles)
	assert.Equal(t, 0, stats.Cubes)

	// The duplicate is the downward face lifted by CeilingOffset.
	orig := soup.TriangleVertices(2)
	dup := soup.TriangleVertices(3)
	for i := range orig {
		assertPoint(t, [3]float32{
			orig[i][0] + CeilingOffset[0],
			orig[i][1] + CeilingOffset[1],
			orig[i][2] + CeilingOffset[2],
		}, dup[i])
	}
}

func TestExtractWhiteboxUnresolvedKeepsCube(t *testing.T) {
	x := NewExtractor(mapResolver{}, nil)
	soup := NewSoup()
	e := entity(formats.KindWhitebox, 99)
	e.HalfExtents = [3]float32{1, 1, 1}
	x.Extract(&e, soup)

	require.NoError(t, soup.Validate())
	assert.Equal(t, 8, soup.VertexCount())
	assert.Equal(t, 12, soup.TriangleCount())
	// Cube bottoms face down but cubes are never classified.
	assert.Equal(t, map[AreaTag]int{AreaDefault: 12}, soup.AreaCounts())
	assert.Equal(t, 1, x.Stats().Unresolved)
	assert.Equal(t, 1, x.Stats().Cubes)
}

func TestExtractVolume(t *testing.T) {
	faces := append(append([][3]uint32{}, floorFaces...), ceilingFace)
	assets := mapResolver{1: meshDoc(1, 1, meshShape(encodeMesh(t, quadVertices, faces)))}

	tests := []struct {
		name      string
		generate  bool
		fluid     bool
		wantAreas map[AreaTag]int
	}{
		{"fluid generated", true, true, map[AreaTag]int{AreaDefault: 12, AreaFluid: 3}},
		{"fluid not generated", false, true, map[AreaTag]int{AreaFluid: 3}},
		{"solid generated", true, false, map[AreaTag]int{AreaDefault: 15, AreaCeiling: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entity(formats.KindVolume, 1)
			e.Generate = tt.generate
			e.Fluid = tt.fluid

			x := NewExtractor(assets, nil)
			soup := NewSoup()
			x.Extract(&e, soup)

			require.NoError(t, soup.Validate())
			assert.Equal(t, tt.wantAreas, soup.AreaCounts())
		})
	}
}

func TestExtractBadShapes(t *testing.T) {
	good := meshShape(encodeMesh(t, quadVertices, floorFaces))
	outOfRange := meshShape(encodeMesh(t, quadVertices, [][3]uint32{{0, 1, 2}, {0, 1, 9}}))
	garbage := meshShape([]byte("not a mesh"))
	analytic := formats.Shape{LocalPose: math.Identity(), Kind: formats.ShapeBox}
	degenerate := meshShape(encodeMesh(t, quadVertices, [][3]uint32{{0, 1, 2}, {0, 0, 1}}))

	assets := mapResolver{1: meshDoc(1, 1, outOfRange, garbage, analytic, good, degenerate)}

	x := NewExtractor(assets, nil)
	soup := NewSoup()
	e := entity(formats.KindModel, 1)
	x.Extract(&e, soup)

	require.NoError(t, soup.Validate())
	assert.Equal(t, 3, soup.TriangleCount(), "two from the good shape, one from the degenerate shape")

	stats := x.Stats()
	assert.Equal(t, 2, stats.BadShapes)
	assert.Equal(t, 2, stats.Shapes)
	assert.Equal(t, 1, stats.Degenerate)
}

func TestExtractShapeTransform(t *testing.T) {
	shape := meshShape(encodeMesh(t, [][3]float32{{1, 0, 0}, {1, 1, 0}, {0, 0, 0}}, [][3]uint32{{2, 0, 1}}))
	shape.LocalPose = math.Translate(0, 0, 1)
	doc := meshDoc(1, 2, shape)
	doc.Props[0].Actors[0].Poses = []math.Mat4{math.Translate(1, 0, 0), math.Translate(50, 50, 50)}

	x := NewExtractor(mapResolver{1: doc}, nil)
	soup := NewSoup()
	e := entity(formats.KindModel, 1)
	e.Position = [3]float32{10, 20, 0}
	x.Extract(&e, soup)

	require.Equal(t, 1, soup.TriangleCount())
	// (0,0,0) -> local (0,0,1) -> first actor pose (1,0,1) -> scale 2 (2,0,2)
	// -> position (12,20,2) -> build (12,2,-20)
	tri := soup.TriangleVertices(0)
	assertPoint(t, [3]float32{12, 2, -20}, tri[0])
}

func TestExtractZeroWorldScaleIsUnit(t *testing.T) {
	assets := mapResolver{1: meshDoc(1, 0, meshShape(encodeMesh(t, quadVertices, floorFaces)))}
	x := NewExtractor(assets, nil)
	soup := NewSoup()
	e := entity(formats.KindModel, 1)
	x.Extract(&e, soup)

	require.Equal(t, 2, soup.TriangleCount())
	bmin, bmax := soup.Bounds()
	assertPoint(t, [3]float32{0, 0, -1}, bmin)
	assertPoint(t, [3]float32{1, 0, 0}, bmax)
}

func TestExtractAccumulatesAcrossEntities(t *testing.T) {
	assets := mapResolver{1: meshDoc(1, 1, meshShape(encodeMesh(t, quadVertices, floorFaces)))}
	x := NewExtractor(assets, nil)
	soup := NewSoup()

	a := entity(formats.KindModel, 1)
	b := entity(formats.KindModel, 1)
	b.Position = [3]float32{5, 0, 0}
	off := entity(formats.KindModel, 1)
	off.Navigation = false

	for _, e := range []*formats.Entity{&a, &off, &b} {
		x.Extract(e, soup)
	}

	require.NoError(t, soup.Validate())
	assert.Equal(t, 4, soup.TriangleCount())
	assert.Equal(t, 8, soup.VertexCount())

	stats := x.Stats()
	assert.Equal(t, 3, stats.Entities)
	assert.Equal(t, 1, stats.Rejected)

	x.Reset()
	assert.Equal(t, Stats{}, x.Stats())
}
