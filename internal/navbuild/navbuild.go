// Package navbuild turns a triangle soup into a runtime navmesh. It defines
// the Backend contract used by the bake orchestrator and ships the recast and
// detour implementation of it.
package navbuild

import (
	"context"
	"errors"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Faultbox/navbake/internal/config"
	"github.com/Faultbox/navbake/internal/geometry"
	"github.com/Faultbox/navbake/internal/recast"
)

// ErrGridTooLarge reports bounds that cannot be encoded in a navmesh tile.
var ErrGridTooLarge = errors.New("grid too large")

// Mesh is a built navmesh ready to be serialized.
type Mesh interface {
	io.WriterTo
	PolyCount() int
}

// Backend builds a navmesh from a triangle soup.
type Backend interface {
	Build(ctx context.Context, soup *geometry.Soup, p Params) (Mesh, error)
	// Version identifies the artifact format. A change invalidates every
	// cached build hash.
	Version() string
}

// Params are the build parameters in world units and degrees.
type Params struct {
	CellSize             float32 `msgpack:"cell_size"`
	CellHeight           float32 `msgpack:"cell_height"`
	AgentHeight          float32 `msgpack:"agent_height"`
	AgentRadius          float32 `msgpack:"agent_radius"`
	AgentMaxClimb        float32 `msgpack:"agent_max_climb"`
	AgentMaxSlope        float32 `msgpack:"agent_max_slope"`
	RegionMinSize        int     `msgpack:"region_min_size"`
	RegionMergeSize      int     `msgpack:"region_merge_size"`
	EdgeMaxLen           float32 `msgpack:"edge_max_len"`
	EdgeMaxError         float32 `msgpack:"edge_max_error"`
	VertsPerPoly         int     `msgpack:"verts_per_poly"`
	DetailSampleDist     float32 `msgpack:"detail_sample_dist"`
	DetailSampleMaxError float32 `msgpack:"detail_sample_max_error"`
}

// FromConfig copies the build section of the configuration.
func FromConfig(b config.BuildConfig) Params {
	return Params{
		CellSize:             b.CellSize,
		CellHeight:           b.CellHeight,
		AgentHeight:          b.AgentHeight,
		AgentRadius:          b.AgentRadius,
		AgentMaxClimb:        b.AgentMaxClimb,
		AgentMaxSlope:        b.AgentMaxSlope,
		RegionMinSize:        b.RegionMinSize,
		RegionMergeSize:      b.RegionMergeSize,
		EdgeMaxLen:           b.EdgeMaxLen,
		EdgeMaxError:         b.EdgeMaxError,
		VertsPerPoly:         b.VertsPerPoly,
		DetailSampleDist:     b.DetailSampleDist,
		DetailSampleMaxError: b.DetailSampleMaxError,
	}
}

// Fingerprint returns the msgpack encoding of the parameters.
func (p Params) Fingerprint() ([]byte, error) {
	return msgpack.Marshal(p)
}

// RecastConfig converts the parameters to cell units over the given bounds.
func (p Params) RecastConfig(bmin, bmax [3]float32) recast.Config {
	cfg := recast.Config{
		CellSize:               p.CellSize,
		CellHeight:             p.CellHeight,
		BMin:                   bmin,
		BMax:                   bmax,
		WalkableSlopeAngle:     p.AgentMaxSlope,
		WalkableHeight:         int(math.Ceil(float64(p.AgentHeight / p.CellHeight))),
		WalkableClimb:          int(math.Floor(float64(p.AgentMaxClimb / p.CellHeight))),
		WalkableRadius:         int(math.Ceil(float64(p.AgentRadius / p.CellSize))),
		MaxEdgeLen:             int(p.EdgeMaxLen / p.CellSize),
		MaxSimplificationError: p.EdgeMaxError,
		MinRegionArea:          p.RegionMinSize * p.RegionMinSize,
		MergeRegionArea:        p.RegionMergeSize * p.RegionMergeSize,
		MaxVertsPerPoly:        p.VertsPerPoly,
	}
	// Detail sampling is given in cells.
	if p.DetailSampleDist > 0 {
		cfg.DetailSampleDist = p.DetailSampleDist * p.CellSize
		cfg.DetailSampleMaxError = p.DetailSampleMaxError * p.CellHeight
	}
	cfg.Width, cfg.Height = recast.CalcGridSize(bmin, bmax, p.CellSize)
	return cfg
}
