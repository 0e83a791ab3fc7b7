package geometry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/navbake/internal/logger"
	"github.com/Faultbox/navbake/pkg/formats"
	"github.com/Faultbox/navbake/pkg/math"
)

// Resolver looks up asset documents by id.
type Resolver interface {
	Lookup(id uint32) (*formats.AssetDocument, bool)
}

// Stats counts what an Extractor did.
type Stats struct {
	Entities   int // Entities seen
	Rejected   int // Filtered out before any geometry
	Unresolved int // Asset id not found in the index
	Cubes      int // Whitebox and generated volume cubes
	Shapes     int // Physics mesh shapes appended
	BadShapes  int // Shapes skipped for undecodable or out-of-range data
	Degenerate int // Zero-area faces skipped
	Triangles  int // Triangles appended, ceiling duplicates included
	Ceilings   int // Ceiling duplicates appended
}

// Add returns the sum of two stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Entities:   s.Entities + o.Entities,
		Rejected:   s.Rejected + o.Rejected,
		Unresolved: s.Unresolved + o.Unresolved,
		Cubes:      s.Cubes + o.Cubes,
		Shapes:     s.Shapes + o.Shapes,
		BadShapes:  s.BadShapes + o.BadShapes,
		Degenerate: s.Degenerate + o.Degenerate,
		Triangles:  s.Triangles + o.Triangles,
		Ceilings:   s.Ceilings + o.Ceilings,
	}
}

// Fields returns the stats as log fields.
func (s Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("entities", s.Entities),
		zap.Int("rejected", s.Rejected),
		zap.Int("unresolved", s.Unresolved),
		zap.Int("cubes", s.Cubes),
		zap.Int("shapes", s.Shapes),
		zap.Int("bad_shapes", s.BadShapes),
		zap.Int("degenerate", s.Degenerate),
		zap.Int("triangles", s.Triangles),
		zap.Int("ceilings", s.Ceilings),
	}
}

// Extractor appends entity geometry to a soup. It never fails: bad input is
// logged and skipped at entity or shape granularity.
type Extractor struct {
	assets Resolver
	log    *zap.Logger
	stats  Stats
}

// NewExtractor creates an extractor resolving assets through r.
// A nil logger uses the global one.
func NewExtractor(r Resolver, log *zap.Logger) *Extractor {
	return &Extractor{
		assets: r,
		log:    logger.Or(log).Named("extract"),
	}
}

// Stats returns the counters accumulated since the last Reset.
func (x *Extractor) Stats() Stats { return x.stats }

// Reset clears the counters.
func (x *Extractor) Reset() { x.stats = Stats{} }

// Extract appends the geometry of e to soup.
func (x *Extractor) Extract(e *formats.Entity, soup *Soup) {
	x.stats.Entities++
	before := soup.TriangleCount()
	defer func() { x.stats.Triangles += soup.TriangleCount() - before }()

	log := x.log.With(zap.String("entity", e.Name), zap.String("kind", string(e.Kind)))

	if !e.Navigation {
		x.stats.Rejected++
		log.Debug("skipping non-navigation entity")
		return
	}
	assetID, err := formats.ParseAssetRef(e.Mesh)
	if err != nil {
		x.stats.Rejected++
		log.Warn("skipping entity with malformed asset reference", zap.Error(err))
		return
	}

	world := ComposeTransform(e.Position, e.Rotation)

	switch e.Kind {
	case formats.KindWhitebox:
		appendCube(soup, world.Mul(WhiteboxLocal(e.HalfExtents)), AreaDefault)
		x.stats.Cubes++
	case formats.KindVolume:
		if e.Generate {
			appendCube(soup, world.Mul(VolumeLocal(e.Dimension)), AreaDefault)
			x.stats.Cubes++
		}
	case formats.KindModel:
	default:
		x.stats.Rejected++
		log.Warn("skipping entity of unknown kind")
		return
	}

	doc, ok := x.assets.Lookup(assetID)
	if !ok {
		x.stats.Unresolved++
		log.Warn("asset not found", logger.Asset(assetID))
		return
	}

	area := AreaDefault
	if e.IsFluidVolume() {
		area = AreaFluid
	}

	first := soup.TriangleCount()
	for p := range doc.Props {
		prop := &doc.Props[p]
		scale := prop.WorldScale
		if scale == 0 {
			scale = 1
		}
		for a := range prop.Actors {
			actor := &prop.Actors[a]
			for s := range actor.Shapes {
				shape := &actor.Shapes[s]
				if !shape.HasMesh() {
					continue
				}
				m := ShapeTransform(world, scale, actor.Pose(), shape.LocalPose)
				if err := x.appendShape(soup, shape, m, area); err != nil {
					x.stats.BadShapes++
					log.Warn("skipping shape", logger.Asset(assetID),
						zap.String("shape", shapeLabel(p, a, s, shape)), zap.Error(err))
					continue
				}
				x.stats.Shapes++
			}
		}
	}

	if area == AreaDefault {
		x.stats.Ceilings += Classify(soup, first)
	}
}

// appendShape decodes one shape mesh and appends its faces through m.
// Nothing is appended when the mesh fails to decode or has an index out of
// range.
func (x *Extractor) appendShape(soup *Soup, shape *formats.Shape, m math.Mat4, area AreaTag) error {
	mesh, err := formats.ParseTriangleMesh(shape.MeshData)
	if err != nil {
		return err
	}

	n := uint32(len(mesh.Vertices))
	for i, f := range mesh.Faces {
		if f[0] >= n || f[1] >= n || f[2] >= n {
			return fmt.Errorf("face %d index out of range (%d vertices)", i, n)
		}
	}

	transformed := make([][3]float32, n)
	for i, v := range mesh.Vertices {
		transformed[i] = m.TransformPoint(v)
	}

	base := int32(-1)
	for _, f := range mesh.Faces {
		if _, ok := FaceNormal(transformed[f[0]], transformed[f[1]], transformed[f[2]]); !ok {
			x.stats.Degenerate++
			continue
		}
		if base < 0 {
			base = int32(soup.VertexCount())
			for _, v := range transformed {
				soup.AddVertex(v)
			}
		}
		soup.AddTriangle(base+int32(f[0]), base+int32(f[1]), base+int32(f[2]), area)
	}
	return nil
}

func shapeLabel(prop, actor, shape int, s *formats.Shape) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%d/%d/%d", prop, actor, shape)
}
