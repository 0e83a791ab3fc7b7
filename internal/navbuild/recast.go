package navbuild

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/navbake/internal/detour"
	"github.com/Faultbox/navbake/internal/geometry"
	"github.com/Faultbox/navbake/internal/logger"
	"github.com/Faultbox/navbake/internal/recast"
)

// Area ids written to the navmesh. Coincident spans keep the higher id, so
// ground wins over water.
const (
	AreaGround = recast.WalkableArea
	AreaWater  = uint8(8)
)

// RecastVersion identifies the artifact produced by RecastBackend.
var RecastVersion = fmt.Sprintf("recast-solo/2 dnav/%d mset/%d", detour.NavMeshVersion, detour.NavMeshSetVersion)

// RecastBackend builds single-tile navmeshes with the recast pipeline.
type RecastBackend struct {
	log *zap.Logger
}

// NewRecastBackend creates the backend. A nil logger uses the global one.
func NewRecastBackend(log *zap.Logger) *RecastBackend {
	return &RecastBackend{log: logger.Or(log).Named("recast")}
}

// Version implements Backend.
func (b *RecastBackend) Version() string { return RecastVersion }

// Build implements Backend.
func (b *RecastBackend) Build(ctx context.Context, soup *geometry.Soup, p Params) (Mesh, error) {
	if err := soup.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	bmin, bmax := recast.CalcBounds(soup.Vertices)
	cfg := p.RecastConfig(bmin, bmax)
	if err := checkGrid(cfg); err != nil {
		return nil, err
	}
	areas := MarkAreas(soup, p.AgentMaxSlope)

	pmesh, dmesh, err := recast.Build(ctx, cfg, soup.Vertices, soup.Triangles, areas)
	if err != nil {
		return nil, fmt.Errorf("recast: %w", err)
	}
	fields := []zap.Field{
		zap.Int("grid_width", cfg.Width),
		zap.Int("grid_height", cfg.Height),
		zap.Int("verts", pmesh.NVerts),
		zap.Int("polys", pmesh.NPolys),
		logger.Elapsed(time.Since(start)),
	}
	if dmesh != nil {
		fields = append(fields, zap.Int("detail_verts", dmesh.VertCount()), zap.Int("detail_tris", dmesh.TriCount()))
	}
	b.log.Debug("poly mesh built", fields...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, a := range pmesh.Areas {
		pmesh.Flags[i] = AreaFlags(a)
	}

	params, err := createParams(pmesh, dmesh, p)
	if err != nil {
		return nil, err
	}
	data, err := detour.CreateNavMeshData(params)
	if err != nil {
		return nil, fmt.Errorf("create navmesh data: %w", err)
	}
	nav, err := detour.NewSingleTileNavMesh(data)
	if err != nil {
		return nil, fmt.Errorf("init navmesh: %w", err)
	}
	return nav, nil
}

// MarkAreas assigns a recast area id to every soup triangle. Default
// triangles are ground when their slope allows, fluid triangles are water
// whatever their slope, and everything else is null.
func MarkAreas(soup *geometry.Soup, maxSlope float32) []uint8 {
	areas := make([]uint8, len(soup.Areas))
	recast.MarkWalkableTriangles(maxSlope, soup.Vertices, soup.Triangles, areas)
	for i, tag := range soup.Areas {
		switch tag {
		case geometry.AreaDefault:
		case geometry.AreaFluid:
			areas[i] = AreaWater
		default:
			areas[i] = recast.NullArea
		}
	}
	return areas
}

// AreaFlags maps an area id to polygon flags.
func AreaFlags(area uint8) uint16 {
	switch area {
	case AreaGround:
		return detour.FlagWalk
	case AreaWater:
		return detour.FlagSwim
	default:
		return detour.FlagDisabled
	}
}

// maxCoord is the largest cell coordinate a navmesh vertex can hold.
const maxCoord = 0xffff

// checkGrid rejects bounds whose cell coordinates overflow the 16-bit
// vertex encoding.
func checkGrid(cfg recast.Config) error {
	layers := int((cfg.BMax[1]-cfg.BMin[1])/cfg.CellHeight) + 1
	if cfg.Width > maxCoord || cfg.Height > maxCoord || layers > maxCoord {
		return fmt.Errorf("%w: grid %dx%dx%d cells exceeds %d", ErrGridTooLarge, cfg.Width, layers, cfg.Height, maxCoord)
	}
	return nil
}

func createParams(m *recast.PolyMesh, d *recast.PolyMeshDetail, p Params) (*detour.CreateParams, error) {
	verts := make([]uint16, len(m.Verts))
	for i, v := range m.Verts {
		if v < 0 || v > maxCoord {
			return nil, fmt.Errorf("%w: vertex %d coordinate %d", ErrGridTooLarge, i/3, v)
		}
		verts[i] = uint16(v)
	}
	polys := make([]uint16, len(m.Polys))
	for i, v := range m.Polys {
		polys[i] = uint16(v)
	}
	cp := &detour.CreateParams{
		Verts:          verts,
		VertCount:      m.NVerts,
		Polys:          polys,
		PolyFlags:      m.Flags,
		PolyAreas:      m.Areas,
		PolyCount:      m.NPolys,
		NVP:            m.NVP,
		BMin:           m.BMin,
		BMax:           m.BMax,
		WalkableHeight: p.AgentHeight,
		WalkableRadius: p.AgentRadius,
		WalkableClimb:  p.AgentMaxClimb,
		CellSize:       m.CellSize,
		CellHeight:     m.CellHeight,
		BuildBVTree:    true,
	}
	if d != nil {
		cp.DetailMeshes = make([]uint32, len(d.Meshes))
		for i, v := range d.Meshes {
			cp.DetailMeshes[i] = uint32(v)
		}
		cp.DetailVerts = d.Verts
		cp.DetailTris = d.Tris
	}
	return cp, nil
}
