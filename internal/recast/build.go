package recast

import (
	"context"
	"fmt"
)

// Build runs the full pipeline over a triangle soup. areas holds one area id
// per triangle; NullArea triangles block but are never walkable. The detail
// mesh is nil when cfg.DetailSampleDist is zero.
func Build(ctx context.Context, cfg Config, verts []float32, tris []int32, areas []uint8) (*PolyMesh, *PolyMeshDetail, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if len(verts) < 9 || len(tris) < 3 {
		return nil, nil, ErrEmptyInput
	}
	if len(areas) != len(tris)/3 {
		return nil, nil, fmt.Errorf("%w: %d areas for %d triangles", ErrInvalidConfig, len(areas), len(tris)/3)
	}

	hf := NewHeightfield(cfg.Width, cfg.Height, cfg.BMin, cfg.BMax, cfg.CellSize, cfg.CellHeight)
	if err := RasterizeTriangles(verts, tris, areas, hf, cfg.WalkableClimb); err != nil {
		return nil, nil, err
	}

	FilterLowHangingWalkableObstacles(cfg.WalkableClimb, hf)
	FilterLedgeSpans(cfg.WalkableHeight, cfg.WalkableClimb, hf)
	FilterWalkableLowHeightSpans(cfg.WalkableHeight, hf)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	chf := BuildCompactHeightfield(cfg.WalkableHeight, cfg.WalkableClimb, hf)
	ErodeWalkableArea(cfg.WalkableRadius, chf)
	BuildDistanceField(chf)
	BuildRegions(chf, cfg.BorderSize, cfg.MinRegionArea, cfg.MergeRegionArea)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	cset, err := BuildContours(chf, cfg.MaxSimplificationError, cfg.MaxEdgeLen, ContourTessWallEdges)
	if err != nil {
		return nil, nil, fmt.Errorf("build contours: %w", err)
	}
	mesh, err := BuildPolyMesh(cset, cfg.MaxVertsPerPoly)
	if err != nil {
		return nil, nil, fmt.Errorf("build poly mesh: %w", err)
	}
	if cfg.DetailSampleDist <= 0 || mesh.NPolys == 0 {
		return mesh, nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	dmesh, err := BuildPolyMeshDetail(mesh, chf, cfg.DetailSampleDist, cfg.DetailSampleMaxError)
	if err != nil {
		return nil, nil, fmt.Errorf("build detail mesh: %w", err)
	}
	return mesh, dmesh, nil
}
