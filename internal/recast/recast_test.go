package recast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(verts []float32) Config {
	cfg := Config{
		CellSize:               0.3,
		CellHeight:             0.2,
		WalkableSlopeAngle:     45,
		WalkableHeight:         10,
		WalkableClimb:          4,
		WalkableRadius:         2,
		MaxEdgeLen:             40,
		MaxSimplificationError: 1.3,
		MinRegionArea:          8 * 8,
		MergeRegionArea:        20 * 20,
		MaxVertsPerPoly:        6,
	}
	cfg.BMin, cfg.BMax = CalcBounds(verts)
	cfg.Width, cfg.Height = CalcGridSize(cfg.BMin, cfg.BMax, cfg.CellSize)
	return cfg
}

func flatQuad(size float32) ([]float32, []int32) {
	verts := []float32{
		0, 0, 0,
		size, 0, 0,
		size, 0, size,
		0, 0, size,
	}
	tris := []int32{0, 2, 1, 0, 3, 2}
	return verts, tris
}

func TestBuildFlatQuad(t *testing.T) {
	verts, tris := flatQuad(10)
	areas := make([]uint8, len(tris)/3)
	MarkWalkableTriangles(45, verts, tris, areas)
	require.Equal(t, []uint8{WalkableArea, WalkableArea}, areas)

	cfg := testConfig(verts)
	mesh, _, err := Build(context.Background(), cfg, verts, tris, areas)
	require.NoError(t, err)

	assert.Greater(t, mesh.NPolys, 0)
	assert.Len(t, mesh.Areas, mesh.NPolys)
	assert.Len(t, mesh.Flags, mesh.NPolys)
	for i, a := range mesh.Areas {
		assert.Equalf(t, WalkableArea, a, "poly %d", i)
	}
	for i := 0; i < mesh.NPolys; i++ {
		nv := mesh.PolyVertCount(i)
		assert.GreaterOrEqual(t, nv, 3)
		assert.LessOrEqual(t, nv, cfg.MaxVertsPerPoly)
	}
	for i := 0; i < mesh.NVerts; i++ {
		assert.GreaterOrEqual(t, mesh.Verts[i*3], 0)
		assert.LessOrEqual(t, mesh.Verts[i*3], cfg.Width)
		assert.GreaterOrEqual(t, mesh.Verts[i*3+2], 0)
		assert.LessOrEqual(t, mesh.Verts[i*3+2], cfg.Height)
	}
}

func TestBuildDeterministic(t *testing.T) {
	verts, tris := flatQuad(12)
	areas := []uint8{WalkableArea, WalkableArea}
	cfg := testConfig(verts)

	a, _, err := Build(context.Background(), cfg, verts, tris, areas)
	require.NoError(t, err)
	b, _, err := Build(context.Background(), cfg, verts, tris, areas)
	require.NoError(t, err)

	assert.Equal(t, a.Verts, b.Verts)
	assert.Equal(t, a.Polys, b.Polys)
	assert.Equal(t, a.Areas, b.Areas)
}

func TestBuildWallHasNoPolys(t *testing.T) {
	verts := []float32{
		0, 0, 5,
		10, 0, 5,
		10, 10, 5,
		0, 10, 5,
	}
	tris := []int32{0, 1, 2, 0, 2, 3}
	areas := make([]uint8, 2)
	MarkWalkableTriangles(45, verts, tris, areas)
	assert.Equal(t, []uint8{NullArea, NullArea}, areas)

	cfg := testConfig(verts)
	cfg.BMin[2], cfg.BMax[2] = 0, 10
	cfg.Width, cfg.Height = CalcGridSize(cfg.BMin, cfg.BMax, cfg.CellSize)

	mesh, _, err := Build(context.Background(), cfg, verts, tris, areas)
	require.NoError(t, err)
	assert.Equal(t, 0, mesh.NPolys)
}

func TestBuildCancelled(t *testing.T) {
	verts, tris := flatQuad(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Build(ctx, testConfig(verts), verts, tris, []uint8{WalkableArea, WalkableArea})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildRejectsBadInput(t *testing.T) {
	verts, tris := flatQuad(10)
	cfg := testConfig(verts)

	_, _, err := Build(context.Background(), cfg, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, _, err = Build(context.Background(), cfg, verts, tris, []uint8{WalkableArea})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, _, err = Build(context.Background(), cfg, verts, []int32{0, 1, 9}, []uint8{WalkableArea})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	base := testConfig([]float32{0, 0, 0, 10, 0, 10})
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"zero cell size", func(c *Config) { c.CellSize = 0 }},
		{"low walkable height", func(c *Config) { c.WalkableHeight = 2 }},
		{"negative climb", func(c *Config) { c.WalkableClimb = -1 }},
		{"too few verts per poly", func(c *Config) { c.MaxVertsPerPoly = 2 }},
		{"negative detail sampling", func(c *Config) { c.DetailSampleDist = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestCalcGridSizeThinBounds(t *testing.T) {
	// A strip thinner than half a cell still gets one row.
	w, h := CalcGridSize([3]float32{0, 0, 0}, [3]float32{10, 0, 0.05}, 0.3)
	assert.Equal(t, 33, w)
	assert.Equal(t, 1, h)

	w, h = CalcGridSize([3]float32{1, 0, 1}, [3]float32{1, 0, 1}, 0.3)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)

	verts := []float32{0, 0, 0, 10, 0, 0, 10, 0, 0.05}
	cfg := testConfig(verts)
	assert.NoError(t, cfg.Validate())
}

func TestAddSpanMerge(t *testing.T) {
	hf := NewHeightfield(1, 1, [3]float32{}, [3]float32{1, 1, 1}, 1, 1)

	hf.addSpan(0, 0, 0, 2, 8, 1)
	hf.addSpan(0, 0, 10, 12, 8, 1)
	require.Equal(t, 2, hf.SpanCount())

	// Overlaps the lower span with a top within the merge threshold.
	hf.addSpan(0, 0, 1, 3, WalkableArea, 1)
	require.Equal(t, 2, hf.SpanCount())
	s := hf.spans[0]
	assert.Equal(t, 0, s.smin)
	assert.Equal(t, 3, s.smax)
	assert.Equal(t, WalkableArea, s.area)

	// Bridges both spans; the top is far from the lower span.
	hf.addSpan(0, 0, 2, 11, NullArea, 1)
	require.Equal(t, 1, hf.SpanCount())
	s = hf.spans[0]
	assert.Equal(t, 0, s.smin)
	assert.Equal(t, 12, s.smax)
	assert.Equal(t, uint8(8), s.area)
}

func TestTriangulateSquare(t *testing.T) {
	verts := []int{
		0, 0, 0, 0,
		0, 0, 4, 0,
		4, 0, 4, 0,
		4, 0, 0, 0,
	}
	indices := []int{0, 1, 2, 3}
	tris := make([]int, 12)
	n := triangulate(4, verts, indices, tris)
	assert.Equal(t, 2, n)
}

func TestCalcAreaOfPolygon2D(t *testing.T) {
	outline := []int{0, 0, 0, 0, 0, 0, 4, 0, 4, 0, 4, 0, 4, 0, 0, 0}
	assert.Equal(t, 16, calcAreaOfPolygon2D(outline, 4))

	hole := []int{0, 0, 0, 0, 4, 0, 0, 0, 4, 0, 4, 0, 0, 0, 4, 0}
	assert.Negative(t, calcAreaOfPolygon2D(hole, 4))
}
