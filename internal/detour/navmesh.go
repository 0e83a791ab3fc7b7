package detour

import (
	"fmt"
	"math/bits"
)

// NavMeshParams configures the tile grid of a NavMesh.
type NavMeshParams struct {
	Orig       [3]float32
	TileWidth  float32
	TileHeight float32
	MaxTiles   int32
	MaxPolys   int32 // Per tile
}

// MeshTile is one slot of the tile pool.
type MeshTile struct {
	Salt          uint32
	LinksFreeList uint32
	Data          *MeshData
	Links         []Link

	index int
	next  *MeshTile
}

// NavMesh is a tiled navigation mesh.
type NavMesh struct {
	params      NavMeshParams
	tileLutMask int
	posLookup   []*MeshTile
	nextFree    *MeshTile
	tiles       []MeshTile

	saltBits uint
	tileBits uint
	polyBits uint
}

// NewNavMesh allocates an empty navmesh with room for params.MaxTiles tiles.
func NewNavMesh(params NavMeshParams) (*NavMesh, error) {
	if params.MaxTiles <= 0 || params.MaxPolys <= 0 {
		return nil, fmt.Errorf("%w: max tiles %d, max polys %d", ErrInvalidParams, params.MaxTiles, params.MaxPolys)
	}

	m := &NavMesh{params: params}

	lutSize := nextPow2(uint32(params.MaxTiles / 4))
	if lutSize == 0 {
		lutSize = 1
	}
	m.tileLutMask = int(lutSize - 1)
	m.posLookup = make([]*MeshTile, lutSize)

	m.tiles = make([]MeshTile, params.MaxTiles)
	for i := len(m.tiles) - 1; i >= 0; i-- {
		t := &m.tiles[i]
		t.index = i
		t.Salt = 1
		t.next = m.nextFree
		m.nextFree = t
	}

	m.tileBits = ilog2(nextPow2(uint32(params.MaxTiles)))
	m.polyBits = ilog2(nextPow2(uint32(params.MaxPolys)))
	if m.tileBits+m.polyBits > 32-10 {
		return nil, fmt.Errorf("%w: %d tile bits and %d poly bits leave too few salt bits", ErrInvalidParams, m.tileBits, m.polyBits)
	}
	m.saltBits = min(31, 32-m.tileBits-m.polyBits)
	return m, nil
}

// NewSingleTileNavMesh creates a navmesh sized to hold exactly data.
func NewSingleTileNavMesh(data *MeshData) (*NavMesh, error) {
	h := &data.Header
	m, err := NewNavMesh(NavMeshParams{
		Orig:       h.BMin,
		TileWidth:  h.BMax[0] - h.BMin[0],
		TileHeight: h.BMax[2] - h.BMin[2],
		MaxTiles:   1,
		MaxPolys:   h.PolyCount,
	})
	if err != nil {
		return nil, err
	}
	if _, err := m.AddTile(data, 0); err != nil {
		return nil, err
	}
	return m, nil
}

// Params returns the navmesh parameters.
func (m *NavMesh) Params() NavMeshParams { return m.params }

// MaxTiles returns the size of the tile pool.
func (m *NavMesh) MaxTiles() int { return len(m.tiles) }

// Tile returns the tile in pool slot i. Its Data is nil when unused.
func (m *NavMesh) Tile(i int) *MeshTile { return &m.tiles[i] }

// TileCount returns the number of tiles holding data.
func (m *NavMesh) TileCount() int {
	n := 0
	for i := range m.tiles {
		if m.tiles[i].Data != nil {
			n++
		}
	}
	return n
}

// AddTile links data into the navmesh. A non-zero lastRef restores the tile
// into the slot and salt it was saved with.
func (m *NavMesh) AddTile(data *MeshData, lastRef TileRef) (TileRef, error) {
	h := &data.Header
	if h.Magic != NavMeshMagic {
		return 0, ErrWrongMagic
	}
	if h.Version != NavMeshVersion {
		return 0, fmt.Errorf("%w: tile version %d", ErrWrongVersion, h.Version)
	}
	if h.PolyCount > m.params.MaxPolys {
		return 0, fmt.Errorf("%w: tile has %d polys, navmesh allows %d", ErrInvalidParams, h.PolyCount, m.params.MaxPolys)
	}
	if m.TileAt(h.X, h.Y, h.Layer) != nil {
		return 0, fmt.Errorf("%w: (%d, %d, %d)", ErrTileExists, h.X, h.Y, h.Layer)
	}

	var tile *MeshTile
	if lastRef == 0 {
		if m.nextFree != nil {
			tile = m.nextFree
			m.nextFree = tile.next
			tile.next = nil
		}
	} else {
		// Relocate the tile to its saved slot and salt.
		idx := m.decodeTile(PolyRef(lastRef))
		if idx >= len(m.tiles) {
			return 0, fmt.Errorf("%w: tile index %d", ErrInvalidTileRef, idx)
		}
		target := &m.tiles[idx]
		var prev *MeshTile
		tile = m.nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.next
		}
		if tile != target {
			return 0, fmt.Errorf("%w: tile slot %d is in use", ErrInvalidTileRef, idx)
		}
		if prev == nil {
			m.nextFree = tile.next
		} else {
			prev.next = tile.next
		}
		tile.Salt = m.decodeSalt(PolyRef(lastRef))
	}
	if tile == nil {
		return 0, ErrOutOfTiles
	}

	hash := computeTileHash(int(h.X), int(h.Y), m.tileLutMask)
	tile.next = m.posLookup[hash]
	m.posLookup[hash] = tile

	tile.Data = data
	tile.Links = make([]Link, h.MaxLinkCount)
	tile.LinksFreeList = 0
	if len(tile.Links) == 0 {
		tile.LinksFreeList = nullLink
	}
	for i := range tile.Links {
		tile.Links[i].Next = uint32(i + 1)
	}
	if n := len(tile.Links); n > 0 {
		tile.Links[n-1].Next = nullLink
	}

	m.connectIntLinks(tile)
	return m.TileRefOf(tile), nil
}

// TileAt returns the tile at grid location (x, y, layer), or nil.
func (m *NavMesh) TileAt(x, y, layer int32) *MeshTile {
	hash := computeTileHash(int(x), int(y), m.tileLutMask)
	for t := m.posLookup[hash]; t != nil; t = t.next {
		if h := &t.Data.Header; h.X == x && h.Y == y && h.Layer == layer {
			return t
		}
	}
	return nil
}

// TileRefOf returns the reference of tile, or 0 for nil.
func (m *NavMesh) TileRefOf(tile *MeshTile) TileRef {
	if tile == nil {
		return 0
	}
	return TileRef(m.EncodePolyID(tile.Salt, tile.index, 0))
}

// PolyRefBase returns the reference of the tile's polygon 0.
func (m *NavMesh) PolyRefBase(tile *MeshTile) PolyRef {
	if tile == nil {
		return 0
	}
	return m.EncodePolyID(tile.Salt, tile.index, 0)
}

// EncodePolyID packs a salt, tile index and polygon index into a reference.
func (m *NavMesh) EncodePolyID(salt uint32, tile, poly int) PolyRef {
	return PolyRef(salt)<<(m.polyBits+m.tileBits) | PolyRef(tile)<<m.polyBits | PolyRef(poly)
}

// DecodePolyID splits a reference into salt, tile index and polygon index.
func (m *NavMesh) DecodePolyID(ref PolyRef) (salt uint32, tile, poly int) {
	return m.decodeSalt(ref), m.decodeTile(ref), int(ref & (1<<m.polyBits - 1))
}

func (m *NavMesh) decodeSalt(ref PolyRef) uint32 {
	return uint32(ref>>(m.polyBits+m.tileBits)) & (1<<m.saltBits - 1)
}

func (m *NavMesh) decodeTile(ref PolyRef) int {
	return int(ref>>m.polyBits) & (1<<m.tileBits - 1)
}

// IsValidPolyRef reports whether ref points at a polygon of a live tile.
func (m *NavMesh) IsValidPolyRef(ref PolyRef) bool {
	if ref == 0 {
		return false
	}
	salt, it, ip := m.DecodePolyID(ref)
	if it >= len(m.tiles) {
		return false
	}
	t := &m.tiles[it]
	return t.Data != nil && t.Salt == salt && ip < int(t.Data.Header.PolyCount)
}

func (m *NavMesh) allocLink(tile *MeshTile) uint32 {
	if tile.LinksFreeList == nullLink {
		return nullLink
	}
	link := tile.LinksFreeList
	tile.LinksFreeList = tile.Links[link].Next
	return link
}

// connectIntLinks links every internal polygon edge to its neighbour.
func (m *NavMesh) connectIntLinks(tile *MeshTile) {
	base := m.PolyRefBase(tile)
	polys := tile.Data.Polys
	for i := range polys {
		poly := &polys[i]
		poly.FirstLink = nullLink
		if poly.Type() == PolyTypeOffMeshConnection {
			continue
		}
		// Build edge links backwards so the list ends up in edge order.
		for j := int(poly.VertCount) - 1; j >= 0; j-- {
			if poly.Neis[j] == 0 || poly.Neis[j]&extLink != 0 {
				continue
			}
			idx := m.allocLink(tile)
			if idx == nullLink {
				continue
			}
			tile.Links[idx] = Link{
				Ref:  base | PolyRef(poly.Neis[j]-1),
				Edge: uint8(j),
				Side: 0xff,
				Next: poly.FirstLink,
			}
			poly.FirstLink = idx
		}
	}
}

// PolyLinks returns the references linked from polygon ip of tile, in link
// order.
func (m *NavMesh) PolyLinks(tile *MeshTile, ip int) []PolyRef {
	var refs []PolyRef
	for l := tile.Data.Polys[ip].FirstLink; l != nullLink; l = tile.Links[l].Next {
		refs = append(refs, tile.Links[l].Ref)
	}
	return refs
}

func computeTileHash(x, y, mask int) int {
	const (
		h1 = 0x8da6b343
		h2 = 0xd8163841
	)
	n := uint32(h1*x + h2*y)
	return int(n) & mask
}

func nextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

func ilog2(v uint32) uint {
	if v == 0 {
		return 0
	}
	return uint(bits.Len32(v) - 1)
}
