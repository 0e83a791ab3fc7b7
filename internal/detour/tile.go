package detour

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Section sizes of the tile layout. Every section is a multiple of 4 bytes
// so no alignment padding is needed between them.
const (
	headerSize      = 100
	polySize        = 32
	linkSize        = 12
	polyDetailSize  = 12
	bvNodeSize      = 16
	offMeshConSize  = 36
	vertSize        = 12
	detailTriSize   = 4
	setHeaderSize   = 40
	tileHeaderSize  = 8
	maxTileDataSize = 1 << 28
)

// DataSize returns the encoded size of the tile in bytes.
func (d *MeshData) DataSize() int {
	h := &d.Header
	return headerSize +
		int(h.VertCount)*vertSize +
		int(h.PolyCount)*polySize +
		int(h.MaxLinkCount)*linkSize +
		int(h.DetailMeshCount)*polyDetailSize +
		int(h.DetailVertCount)*vertSize +
		int(h.DetailTriCount)*detailTriSize +
		int(h.BVNodeCount)*bvNodeSize +
		int(h.OffMeshConCount)*offMeshConSize
}

// MarshalBinary encodes the tile with an empty link space.
func (d *MeshData) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(d.DataSize())
	if err := d.encode(&buf, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encode writes the tile. links fills the link space and is padded with
// zero links up to MaxLinkCount.
func (d *MeshData) encode(w io.Writer, links []Link) error {
	h := &d.Header
	if len(d.Verts) != int(h.VertCount)*3 ||
		len(d.Polys) != int(h.PolyCount) ||
		len(d.DetailMeshes) != int(h.DetailMeshCount) ||
		len(d.DetailVerts) != int(h.DetailVertCount)*3 ||
		len(d.DetailTris) != int(h.DetailTriCount)*4 ||
		len(d.BVTree) != int(h.BVNodeCount) ||
		len(d.OffMeshCons) != int(h.OffMeshConCount) {
		return fmt.Errorf("%w: section lengths disagree with header", ErrInvalidParams)
	}
	if len(links) > int(h.MaxLinkCount) {
		return fmt.Errorf("%w: %d links exceed link space %d", ErrInvalidParams, len(links), h.MaxLinkCount)
	}

	space := make([]Link, h.MaxLinkCount)
	copy(space, links)

	sections := []any{h, d.Verts, d.Polys, space, d.DetailMeshes, d.DetailVerts, d.DetailTris, d.BVTree, d.OffMeshCons}
	for _, s := range sections {
		if err := binary.Write(w, binary.LittleEndian, s); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMeshData parses tile data. The link space is skipped; links are
// rebuilt when the tile is added to a NavMesh.
func DecodeMeshData(data []byte) (*MeshData, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedData, len(data))
	}

	r := bytes.NewReader(data)
	d := &MeshData{}
	h := &d.Header
	if err := binary.Read(r, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedData)
	}
	if h.Magic != NavMeshMagic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrWrongMagic, uint32(h.Magic))
	}
	if h.Version != NavMeshVersion {
		return nil, fmt.Errorf("%w: tile version %d", ErrWrongVersion, h.Version)
	}
	counts := []int32{h.PolyCount, h.VertCount, h.MaxLinkCount, h.DetailMeshCount, h.DetailVertCount,
		h.DetailTriCount, h.BVNodeCount, h.OffMeshConCount}
	for _, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative section count", ErrTruncatedData)
		}
	}
	if d.DataSize() > len(data) {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedData, d.DataSize(), len(data))
	}

	d.Verts = make([]float32, h.VertCount*3)
	d.Polys = make([]Poly, h.PolyCount)
	d.DetailMeshes = make([]PolyDetail, h.DetailMeshCount)
	d.DetailVerts = make([]float32, h.DetailVertCount*3)
	d.DetailTris = make([]uint8, h.DetailTriCount*4)
	d.BVTree = make([]BVNode, h.BVNodeCount)
	d.OffMeshCons = make([]OffMeshConnection, h.OffMeshConCount)

	read := func(name string, v any) error {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("%w: reading %s", ErrTruncatedData, name)
		}
		return nil
	}
	if err := read("verts", d.Verts); err != nil {
		return nil, err
	}
	if err := read("polys", d.Polys); err != nil {
		return nil, err
	}
	if _, err := r.Seek(int64(h.MaxLinkCount)*linkSize, io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("%w: skipping links", ErrTruncatedData)
	}
	if err := read("detail meshes", d.DetailMeshes); err != nil {
		return nil, err
	}
	if err := read("detail verts", d.DetailVerts); err != nil {
		return nil, err
	}
	if err := read("detail tris", d.DetailTris); err != nil {
		return nil, err
	}
	if err := read("bv tree", d.BVTree); err != nil {
		return nil, err
	}
	if err := read("off-mesh connections", d.OffMeshCons); err != nil {
		return nil, err
	}

	for i := range d.Polys {
		p := &d.Polys[i]
		if int(p.VertCount) > VertsPerPolygon {
			return nil, fmt.Errorf("%w: poly %d has %d verts", ErrInvalidParams, i, p.VertCount)
		}
		for j := 0; j < int(p.VertCount); j++ {
			if int32(p.Verts[j]) >= h.VertCount {
				return nil, fmt.Errorf("%w: poly %d vertex index %d", ErrInvalidParams, i, p.Verts[j])
			}
		}
	}
	return d, nil
}
