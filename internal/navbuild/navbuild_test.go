package navbuild

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/navbake/internal/config"
	"github.com/Faultbox/navbake/internal/detour"
	"github.com/Faultbox/navbake/internal/geometry"
	"github.com/Faultbox/navbake/internal/recast"
)

func quadSoup(size, y float32, area geometry.AreaTag) *geometry.Soup {
	s := geometry.NewSoup()
	addQuad(s, 0, y, size, area)
	return s
}

func addQuad(s *geometry.Soup, x0, y, size float32, area geometry.AreaTag) {
	a := s.AddVertex([3]float32{x0, y, 0})
	b := s.AddVertex([3]float32{x0 + size, y, 0})
	c := s.AddVertex([3]float32{x0 + size, y, size})
	d := s.AddVertex([3]float32{x0, y, size})
	s.AddTriangle(a, c, b, area)
	s.AddTriangle(a, d, c, area)
}

func defaultParams() Params {
	return FromConfig(config.DefaultBuild())
}

func buildStats(t *testing.T, soup *geometry.Soup) detour.Stats {
	t.Helper()
	mesh, err := NewRecastBackend(nil).Build(context.Background(), soup, defaultParams())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = mesh.WriteTo(&buf)
	require.NoError(t, err)
	nav, err := detour.ReadNavMeshSet(&buf)
	require.NoError(t, err)
	return nav.Stats()
}

func TestBuildGroundIsWalkable(t *testing.T) {
	s := buildStats(t, quadSoup(10, 0, geometry.AreaDefault))
	assert.Equal(t, 1, s.Tiles)
	assert.Greater(t, s.Polys, 0)
	assert.Equal(t, s.Polys, s.Walk)
	assert.Zero(t, s.Swim)
	assert.Zero(t, s.Disabled)
	assert.Equal(t, s.Polys, s.Areas[AreaGround])
}

func TestBuildFluidIsSwimmable(t *testing.T) {
	s := buildStats(t, quadSoup(10, 0, geometry.AreaFluid))
	assert.Greater(t, s.Polys, 0)
	assert.Equal(t, s.Polys, s.Swim)
	assert.Zero(t, s.Walk)
	assert.Equal(t, s.Polys, s.Areas[AreaWater])
}

func TestBuildMixedAreas(t *testing.T) {
	soup := geometry.NewSoup()
	addQuad(soup, 0, 0, 10, geometry.AreaDefault)
	addQuad(soup, 20, 0, 10, geometry.AreaFluid)

	s := buildStats(t, soup)
	assert.Greater(t, s.Walk, 0)
	assert.Greater(t, s.Swim, 0)
	assert.Equal(t, s.Polys, s.Walk+s.Swim)
}

func TestBuildCeilingOnlyFails(t *testing.T) {
	_, err := NewRecastBackend(nil).Build(context.Background(), quadSoup(10, 0, geometry.AreaCeiling), defaultParams())
	assert.ErrorIs(t, err, detour.ErrEmptyMesh)
}

func TestBuildDeterministic(t *testing.T) {
	b := NewRecastBackend(nil)
	write := func() []byte {
		mesh, err := b.Build(context.Background(), quadSoup(12, 1, geometry.AreaDefault), defaultParams())
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = mesh.WriteTo(&buf)
		require.NoError(t, err)
		return buf.Bytes()
	}
	assert.Equal(t, write(), write())
}

func TestBuildRejectsInvalidSoup(t *testing.T) {
	soup := quadSoup(10, 0, geometry.AreaDefault)
	soup.Triangles[0] = 99
	_, err := NewRecastBackend(nil).Build(context.Background(), soup, defaultParams())
	assert.ErrorIs(t, err, geometry.ErrInvalidSoup)
}

func TestMarkAreas(t *testing.T) {
	soup := geometry.NewSoup()
	addQuad(soup, 0, 0, 1, geometry.AreaDefault)
	addQuad(soup, 0, 0, 1, geometry.AreaFluid)
	addQuad(soup, 0, 0, 1, geometry.AreaCeiling)
	// A vertical default face fails the slope test.
	a := soup.AddVertex([3]float32{0, 0, 0})
	b := soup.AddVertex([3]float32{1, 0, 0})
	c := soup.AddVertex([3]float32{1, 1, 0})
	soup.AddTriangle(a, b, c, geometry.AreaDefault)

	got := MarkAreas(soup, 45)
	want := []uint8{
		AreaGround, AreaGround,
		AreaWater, AreaWater,
		recast.NullArea, recast.NullArea,
		recast.NullArea,
	}
	assert.Equal(t, want, got)
}

func TestAreaFlags(t *testing.T) {
	tests := []struct {
		area uint8
		want uint16
	}{
		{AreaGround, detour.FlagWalk},
		{AreaWater, detour.FlagSwim},
		{recast.NullArea, detour.FlagDisabled},
		{17, detour.FlagDisabled},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AreaFlags(tt.area), "area %d", tt.area)
	}
}

func TestRecastConfig(t *testing.T) {
	p := defaultParams()
	cfg := p.RecastConfig([3]float32{0, 0, 0}, [3]float32{30, 5, 15})

	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
	assert.Equal(t, 10, cfg.WalkableHeight)  // ceil(2.0/0.2)
	assert.Equal(t, 4, cfg.WalkableClimb)    // floor(0.9/0.2)
	assert.Equal(t, 2, cfg.WalkableRadius)   // ceil(0.6/0.3)
	assert.InDelta(t, 40, cfg.MaxEdgeLen, 1) // 12/0.3
	assert.Equal(t, 64, cfg.MinRegionArea)
	assert.Equal(t, 400, cfg.MergeRegionArea)
	assert.Equal(t, 6, cfg.MaxVertsPerPoly)
	assert.InDelta(t, 1.8, cfg.DetailSampleDist, 1e-5)     // 6*0.3
	assert.InDelta(t, 0.2, cfg.DetailSampleMaxError, 1e-5) // 1*0.2
	assert.NoError(t, cfg.Validate())

	p.DetailSampleDist = 0
	cfg = p.RecastConfig([3]float32{0, 0, 0}, [3]float32{30, 5, 15})
	assert.Zero(t, cfg.DetailSampleDist)
	assert.Zero(t, cfg.DetailSampleMaxError)
}

func TestBuildRejectsOversizedGrid(t *testing.T) {
	// 21000 / 0.3 cells cannot be encoded in 16-bit vertex coordinates.
	_, err := NewRecastBackend(nil).Build(context.Background(), quadSoup(21000, 0, geometry.AreaDefault), defaultParams())
	assert.ErrorIs(t, err, ErrGridTooLarge)
}

func TestCheckGrid(t *testing.T) {
	p := defaultParams()
	tests := []struct {
		name    string
		bmax    [3]float32
		wantErr bool
	}{
		{"small", [3]float32{30, 5, 15}, false},
		{"near the limit", [3]float32{65000 * 0.3, 5, 15}, false},
		{"too wide", [3]float32{21000, 5, 15}, true},
		{"too deep", [3]float32{30, 5, 21000}, true},
		{"too tall", [3]float32{30, 14000, 15}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkGrid(p.RecastConfig([3]float32{}, tt.bmax))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrGridTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateParamsRejectsOverflow(t *testing.T) {
	m := &recast.PolyMesh{Verts: []int{0, 0, 0, 70000, 0, 0}, NVerts: 2, NVP: 6, CellSize: 0.3, CellHeight: 0.2}
	_, err := createParams(m, nil, defaultParams())
	assert.ErrorIs(t, err, ErrGridTooLarge)
}

// hillSoup is a square of side 12 whose center is raised by 2.
func hillSoup() *geometry.Soup {
	s := geometry.NewSoup()
	c := [4]int32{
		s.AddVertex([3]float32{0, 0, 0}),
		s.AddVertex([3]float32{12, 0, 0}),
		s.AddVertex([3]float32{12, 0, 12}),
		s.AddVertex([3]float32{0, 0, 12}),
	}
	apex := s.AddVertex([3]float32{6, 2, 6})
	for i := range c {
		s.AddTriangle(c[i], apex, c[(i+1)%4], geometry.AreaDefault)
	}
	return s
}

func TestBuildDetailMesh(t *testing.T) {
	detail := buildStats(t, hillSoup())
	assert.Greater(t, detail.Polys, 0)

	p := defaultParams()
	p.DetailSampleDist = 0
	mesh, err := NewRecastBackend(nil).Build(context.Background(), hillSoup(), p)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = mesh.WriteTo(&buf)
	require.NoError(t, err)
	nav, err := detour.ReadNavMeshSet(&buf)
	require.NoError(t, err)
	fan := nav.Stats()

	data := nav.Tile(0).Data
	assert.Zero(t, data.Header.DetailVertCount)
	// The sampled surface needs more triangles than the polygon fans.
	assert.Greater(t, detail.Detail, fan.Detail)
}

func TestParamsFingerprint(t *testing.T) {
	a, err := defaultParams().Fingerprint()
	require.NoError(t, err)
	b, err := defaultParams().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	p := defaultParams()
	p.AgentRadius = 0.5
	c, err := p.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestBackendVersion(t *testing.T) {
	var b Backend = NewRecastBackend(nil)
	assert.Equal(t, RecastVersion, b.Version())
	assert.Contains(t, b.Version(), "dnav/7")
}
