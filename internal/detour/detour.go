// Package detour holds the runtime navigation mesh: tile data built from a
// recast polygon mesh, a tiled NavMesh that links polygons together, and the
// navmesh-set file format used for baked artifacts.
package detour

import "errors"

// Tile data format.
const (
	NavMeshMagic   int32 = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'
	NavMeshVersion int32 = 7

	NavMeshSetMagic   int32 = 'M'<<24 | 'S'<<16 | 'E'<<8 | 'T'
	NavMeshSetVersion int32 = 1
)

// VertsPerPolygon is the maximum number of vertices per navmesh polygon.
const VertsPerPolygon = 6

// Polygon flags written by the navmesh builder.
const (
	FlagWalk     uint16 = 0x01
	FlagSwim     uint16 = 0x02
	FlagDisabled uint16 = 0x10
)

// Polygon types.
const (
	PolyTypeGround            uint8 = 0
	PolyTypeOffMeshConnection uint8 = 1
)

const (
	extLink  = 0x8000
	nullLink = 0xffffffff

	offMeshConBidir = 1
)

// Errors returned while building, linking or decoding navmesh data.
var (
	ErrInvalidParams  = errors.New("invalid navmesh params")
	ErrEmptyMesh      = errors.New("polygon mesh is empty")
	ErrTooManyVerts   = errors.New("too many vertices")
	ErrWrongMagic     = errors.New("wrong magic number")
	ErrWrongVersion   = errors.New("wrong version")
	ErrTruncatedData  = errors.New("truncated navmesh data")
	ErrTileExists     = errors.New("tile already exists at location")
	ErrOutOfTiles     = errors.New("no free tile slots")
	ErrInvalidTileRef = errors.New("invalid tile reference")
)

// PolyRef identifies a polygon: salt | tile index | polygon index.
type PolyRef uint32

// TileRef identifies a tile; it is the PolyRef of the tile's polygon 0.
type TileRef uint32

// Poly is one convex navmesh polygon.
type Poly struct {
	FirstLink   uint32
	Verts       [VertsPerPolygon]uint16
	Neis        [VertsPerPolygon]uint16 // 0 border, idx+1 internal, extLink|dir portal
	Flags       uint16
	VertCount   uint8
	AreaAndType uint8
}

// Area returns the user area id.
func (p *Poly) Area() uint8 { return p.AreaAndType & 0x3f }

// Type returns the polygon type.
func (p *Poly) Type() uint8 { return p.AreaAndType >> 6 }

// SetArea sets the user area id, keeping the type.
func (p *Poly) SetArea(a uint8) { p.AreaAndType = p.AreaAndType&0xc0 | a&0x3f }

// SetType sets the polygon type, keeping the area.
func (p *Poly) SetType(t uint8) { p.AreaAndType = p.AreaAndType&0x3f | t<<6 }

// Link connects a polygon edge to a neighbouring polygon.
type Link struct {
	Ref  PolyRef
	Next uint32
	Edge uint8
	Side uint8
	BMin uint8
	BMax uint8
}

// PolyDetail locates the detail triangles of a polygon.
type PolyDetail struct {
	VertBase  uint32
	TriBase   uint32
	VertCount uint8
	TriCount  uint8
	_         [2]uint8
}

// BVNode is a node of the quantized bounding volume tree. I is the polygon
// index for leaves and the negated escape index otherwise.
type BVNode struct {
	BMin [3]uint16
	BMax [3]uint16
	I    int32
}

// OffMeshConnection is a jump or teleport link between two points.
type OffMeshConnection struct {
	Pos    [6]float32
	Rad    float32
	Poly   uint16
	Flags  uint8
	Side   uint8
	UserID uint32
}

// MeshHeader describes one tile.
type MeshHeader struct {
	Magic           int32
	Version         int32
	X               int32
	Y               int32
	Layer           int32
	UserID          uint32
	PolyCount       int32
	VertCount       int32
	MaxLinkCount    int32
	DetailMeshCount int32
	DetailVertCount int32
	DetailTriCount  int32
	BVNodeCount     int32
	OffMeshConCount int32
	OffMeshBase     int32
	WalkableHeight  float32
	WalkableRadius  float32
	WalkableClimb   float32
	BMin            [3]float32
	BMax            [3]float32
	BVQuantFactor   float32
}

// MeshData is the content of one tile.
type MeshData struct {
	Header       MeshHeader
	Verts        []float32
	Polys        []Poly
	DetailMeshes []PolyDetail
	DetailVerts  []float32
	DetailTris   []uint8
	BVTree       []BVNode
	OffMeshCons  []OffMeshConnection
}
