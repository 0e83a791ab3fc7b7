package recast

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pyramid returns a square of side 12 with its center raised by 2.
func pyramid() ([]float32, []int32) {
	verts := []float32{
		0, 0, 0,
		12, 0, 0,
		12, 0, 12,
		0, 0, 12,
		6, 2, 6,
	}
	tris := []int32{0, 4, 1, 1, 4, 2, 2, 4, 3, 3, 4, 0}
	return verts, tris
}

func detailConfig(verts []float32) Config {
	cfg := testConfig(verts)
	cfg.DetailSampleDist = 6 * cfg.CellSize
	cfg.DetailSampleMaxError = cfg.CellHeight
	return cfg
}

func checkDetail(t *testing.T, mesh *PolyMesh, dmesh *PolyMeshDetail) {
	t.Helper()
	require.Equal(t, mesh.NPolys, dmesh.MeshCount())
	for i := 0; i < dmesh.MeshCount(); i++ {
		vb, nv, tb, nt := dmesh.Meshes[i*4], dmesh.Meshes[i*4+1], dmesh.Meshes[i*4+2], dmesh.Meshes[i*4+3]
		require.GreaterOrEqualf(t, nv, mesh.PolyVertCount(i), "mesh %d", i)
		require.Positivef(t, nt, "mesh %d", i)
		require.LessOrEqual(t, vb+nv, dmesh.VertCount())
		require.LessOrEqual(t, tb+nt, dmesh.TriCount())

		// The sub-mesh starts with the polygon vertices.
		for j := 0; j < mesh.PolyVertCount(i); j++ {
			pv := mesh.Verts[mesh.Polys[i*mesh.NVP*2+j]*3:]
			dv := dmesh.Verts[(vb+j)*3:]
			assert.InDelta(t, mesh.BMin[0]+float32(pv[0])*mesh.CellSize, dv[0], 1e-3)
			assert.InDelta(t, mesh.BMin[1]+float32(pv[1])*mesh.CellHeight, dv[1], 1e-3)
			assert.InDelta(t, mesh.BMin[2]+float32(pv[2])*mesh.CellSize, dv[2], 1e-3)
		}
		for j := tb; j < tb+nt; j++ {
			for k := 0; k < 3; k++ {
				assert.Lessf(t, int(dmesh.Tris[j*4+k]), nv, "mesh %d tri %d", i, j)
			}
		}
	}
}

func TestBuildDetailFlat(t *testing.T) {
	verts, tris := flatQuad(10)
	areas := []uint8{WalkableArea, WalkableArea}

	mesh, dmesh, err := Build(context.Background(), detailConfig(verts), verts, tris, areas)
	require.NoError(t, err)
	require.NotNil(t, dmesh)
	checkDetail(t, mesh, dmesh)

	y := dmesh.Verts[1]
	boundary := 0
	for i := 0; i < dmesh.VertCount(); i++ {
		assert.InDelta(t, y, dmesh.Verts[i*3+1], 1e-4)
	}
	for i := 0; i < dmesh.TriCount(); i++ {
		if dmesh.Tris[i*4+3] != 0 {
			boundary++
		}
	}
	assert.Positive(t, boundary)
}

func TestBuildDetailFollowsHeight(t *testing.T) {
	verts, tris := pyramid()
	areas := make([]uint8, len(tris)/3)
	MarkWalkableTriangles(45, verts, tris, areas)

	mesh, dmesh, err := Build(context.Background(), detailConfig(verts), verts, tris, areas)
	require.NoError(t, err)
	require.NotNil(t, dmesh)
	checkDetail(t, mesh, dmesh)

	lo, hi := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for i := 0; i < dmesh.VertCount(); i++ {
		lo = min(lo, dmesh.Verts[i*3+1])
		hi = max(hi, dmesh.Verts[i*3+1])
	}
	assert.Greater(t, hi-lo, float32(1))
}

func TestBuildDetailDisabled(t *testing.T) {
	verts, tris := flatQuad(10)
	mesh, dmesh, err := Build(context.Background(), testConfig(verts), verts, tris, []uint8{WalkableArea, WalkableArea})
	require.NoError(t, err)
	assert.Positive(t, mesh.NPolys)
	assert.Nil(t, dmesh)
}

func TestBuildDetailDeterministic(t *testing.T) {
	verts, tris := pyramid()
	areas := []uint8{WalkableArea, WalkableArea, WalkableArea, WalkableArea}
	cfg := detailConfig(verts)

	_, a, err := Build(context.Background(), cfg, verts, tris, areas)
	require.NoError(t, err)
	_, b, err := Build(context.Background(), cfg, verts, tris, areas)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildPolyMeshDetailEmpty(t *testing.T) {
	_, err := BuildPolyMeshDetail(&PolyMesh{}, &CompactHeightfield{}, 1, 1)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestTriangulateHull(t *testing.T) {
	verts := []float32{0, 0, 0, 0, 0, 4, 4, 0, 4, 4, 0, 0}
	tris := triangulateHull(verts, []int{0, 1, 2, 3}, 4, nil)
	assert.Len(t, tris, 8)
}

func TestDelaunayHullCenterPoint(t *testing.T) {
	pts := []float32{
		0, 0, 0,
		0, 0, 4,
		4, 0, 4,
		4, 0, 0,
		2, 0, 2,
	}
	tris, _ := delaunayHull(pts, []int{0, 1, 2, 3}, nil, nil)
	require.Len(t, tris, 4*4)
	for i := 0; i < 4; i++ {
		assert.Contains(t, tris[i*4:i*4+3], 4)
	}
}

func TestCircumCircle(t *testing.T) {
	c, r := circumCircle([]float32{0, 1, 0}, []float32{4, 0, 0}, []float32{0, 0, 4})
	assert.InDelta(t, 2, c[0], 1e-5)
	assert.InDelta(t, 2, c[2], 1e-5)
	assert.InDelta(t, math.Sqrt(8), r, 1e-5)

	_, r = circumCircle([]float32{0, 0, 0}, []float32{1, 0, 0}, []float32{2, 0, 0})
	assert.Zero(t, r)
}

func TestPolyMinExtent(t *testing.T) {
	rect := []float32{0, 0, 0, 0, 0, 2, 4, 0, 2, 4, 0, 0}
	assert.InDelta(t, 2, polyMinExtent(rect), 1e-5)
}

func TestTriEdgeFlags(t *testing.T) {
	square := []float32{0, 0, 0, 0, 0, 4, 4, 0, 4, 4, 0, 0}
	flags := triEdgeFlags([]float32{0, 0, 0}, []float32{4, 0, 0}, []float32{2, 0, 2}, square)
	assert.Equal(t, uint8(1), flags)
}

func TestJitterRange(t *testing.T) {
	for i := 0; i < 64; i++ {
		assert.InDelta(t, 0, jitterX(i), 1)
		assert.InDelta(t, 0, jitterY(i), 1)
	}
}
