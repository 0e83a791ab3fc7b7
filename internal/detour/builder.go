package detour

import (
	"fmt"
	"math"
	"sort"
)

const meshNullIdx = 0xffff

// CreateParams is the polygon mesh input of CreateNavMeshData. Vertices and
// polygons use the recast layout in cell units.
type CreateParams struct {
	Verts     []uint16 // (x, y, z) per vertex
	VertCount int
	Polys     []uint16 // 2*NVP entries per polygon
	PolyFlags []uint16
	PolyAreas []uint8
	PolyCount int
	NVP       int

	// Optional detail mesh in the recast layout. Without it every polygon is
	// fan-triangulated.
	DetailMeshes []uint32 // (vert base, vert count, tri base, tri count) per polygon
	DetailVerts  []float32
	DetailTris   []uint8

	UserID    uint32
	TileX     int32
	TileY     int32
	TileLayer int32
	BMin      [3]float32
	BMax      [3]float32

	WalkableHeight float32
	WalkableRadius float32
	WalkableClimb  float32
	CellSize       float32
	CellHeight     float32

	BuildBVTree bool
}

// CreateNavMeshData converts a polygon mesh into tile data. The first
// vertices of each detail sub-mesh repeat the polygon vertices and are not
// stored. No off-mesh connections are generated.
func CreateNavMeshData(p *CreateParams) (*MeshData, error) {
	nvp := p.NVP
	switch {
	case nvp < 3 || nvp > VertsPerPolygon:
		return nil, fmt.Errorf("%w: %d verts per polygon", ErrInvalidParams, nvp)
	case p.VertCount >= 0xffff:
		return nil, fmt.Errorf("%w: %d", ErrTooManyVerts, p.VertCount)
	case p.VertCount == 0 || p.PolyCount == 0:
		return nil, ErrEmptyMesh
	case len(p.Verts) < p.VertCount*3 || len(p.Polys) < p.PolyCount*nvp*2:
		return nil, fmt.Errorf("%w: short vertex or polygon data", ErrInvalidParams)
	case len(p.PolyFlags) < p.PolyCount || len(p.PolyAreas) < p.PolyCount:
		return nil, fmt.Errorf("%w: missing polygon flags or areas", ErrInvalidParams)
	case p.CellSize <= 0 || p.CellHeight <= 0:
		return nil, fmt.Errorf("%w: cell size %v/%v", ErrInvalidParams, p.CellSize, p.CellHeight)
	case p.DetailMeshes != nil && len(p.DetailMeshes) < p.PolyCount*4:
		return nil, fmt.Errorf("%w: %d detail meshes for %d polygons", ErrInvalidParams, len(p.DetailMeshes)/4, p.PolyCount)
	}

	hasDetail := p.DetailMeshes != nil
	edgeCount, portalCount, detailVertCount, detailTriCount := 0, 0, 0, 0
	for i := 0; i < p.PolyCount; i++ {
		src := p.Polys[i*nvp*2 : (i+1)*nvp*2]
		nv := 0
		for j := 0; j < nvp && src[j] != meshNullIdx; j++ {
			edgeCount++
			nv++
			if src[nvp+j]&0x8000 != 0 && src[nvp+j]&0xf != 0xf {
				portalCount++
			}
		}
		if !hasDetail {
			detailTriCount += nv - 2
			continue
		}
		dm := p.DetailMeshes[i*4 : i*4+4]
		vb, ndv, tb, nt := int(dm[0]), int(dm[1]), int(dm[2]), int(dm[3])
		switch {
		case ndv < nv || ndv-nv > 0xff || nt > 0xff:
			return nil, fmt.Errorf("%w: detail mesh %d has %d verts and %d tris", ErrInvalidParams, i, ndv, nt)
		case (vb+ndv)*3 > len(p.DetailVerts) || (tb+nt)*4 > len(p.DetailTris):
			return nil, fmt.Errorf("%w: detail mesh %d out of range", ErrInvalidParams, i)
		}
		detailVertCount += ndv - nv
	}
	if hasDetail {
		detailTriCount = len(p.DetailTris) / 4
	}
	maxLinkCount := edgeCount + portalCount*2

	bvNodeCount := 0
	if p.BuildBVTree {
		bvNodeCount = p.PolyCount*2 - 1
	}

	data := &MeshData{
		Header: MeshHeader{
			Magic:           NavMeshMagic,
			Version:         NavMeshVersion,
			X:               p.TileX,
			Y:               p.TileY,
			Layer:           p.TileLayer,
			UserID:          p.UserID,
			PolyCount:       int32(p.PolyCount),
			VertCount:       int32(p.VertCount),
			MaxLinkCount:    int32(maxLinkCount),
			DetailMeshCount: int32(p.PolyCount),
			DetailVertCount: int32(detailVertCount),
			DetailTriCount:  int32(detailTriCount),
			OffMeshBase:     int32(p.PolyCount),
			WalkableHeight:  p.WalkableHeight,
			WalkableRadius:  p.WalkableRadius,
			WalkableClimb:   p.WalkableClimb,
			BMin:            p.BMin,
			BMax:            p.BMax,
			BVQuantFactor:   1 / p.CellSize,
		},
		Verts:        make([]float32, p.VertCount*3),
		Polys:        make([]Poly, p.PolyCount),
		DetailMeshes: make([]PolyDetail, p.PolyCount),
		DetailVerts:  make([]float32, detailVertCount*3),
		DetailTris:   make([]uint8, detailTriCount*4),
		BVTree:       make([]BVNode, bvNodeCount),
	}

	for i := 0; i < p.VertCount; i++ {
		iv := p.Verts[i*3 : i*3+3]
		data.Verts[i*3+0] = p.BMin[0] + float32(iv[0])*p.CellSize
		data.Verts[i*3+1] = p.BMin[1] + float32(iv[1])*p.CellHeight
		data.Verts[i*3+2] = p.BMin[2] + float32(iv[2])*p.CellSize
	}

	for i := 0; i < p.PolyCount; i++ {
		src := p.Polys[i*nvp*2 : (i+1)*nvp*2]
		poly := &data.Polys[i]
		poly.Flags = p.PolyFlags[i]
		poly.SetArea(p.PolyAreas[i])
		poly.SetType(PolyTypeGround)
		for j := 0; j < nvp && src[j] != meshNullIdx; j++ {
			poly.Verts[j] = src[j]
			if src[nvp+j]&0x8000 != 0 {
				switch src[nvp+j] & 0xf {
				case 0xf: // Border
					poly.Neis[j] = 0
				case 0: // Portal x-
					poly.Neis[j] = extLink | 4
				case 1: // Portal z+
					poly.Neis[j] = extLink | 2
				case 2: // Portal x+
					poly.Neis[j] = extLink | 0
				case 3: // Portal z-
					poly.Neis[j] = extLink | 6
				}
			} else {
				// Internal edge, store index+1.
				poly.Neis[j] = src[nvp+j] + 1
			}
			poly.VertCount++
		}
	}

	if hasDetail {
		storeDetail(p, data)
	} else {
		fanDetail(data)
	}

	if p.BuildBVTree {
		n := createBVTree(p, data.BVTree)
		data.BVTree = data.BVTree[:n]
		data.Header.BVNodeCount = int32(n)
	}
	return data, nil
}

func storeDetail(p *CreateParams, data *MeshData) {
	vbase := 0
	for i := range data.Polys {
		dm := p.DetailMeshes[i*4 : i*4+4]
		vb, ndv := int(dm[0]), int(dm[1])
		nv := int(data.Polys[i].VertCount)
		data.DetailMeshes[i] = PolyDetail{
			VertBase:  uint32(vbase),
			TriBase:   dm[2],
			VertCount: uint8(ndv - nv),
			TriCount:  uint8(dm[3]),
		}
		copy(data.DetailVerts[vbase*3:], p.DetailVerts[(vb+nv)*3:(vb+ndv)*3])
		vbase += ndv - nv
	}
	copy(data.DetailTris, p.DetailTris)
}

// fanDetail triangulates each polygon as its own detail mesh. The edge flags
// mark triangle edges on the polygon boundary.
func fanDetail(data *MeshData) {
	tbase := 0
	for i := range data.Polys {
		nv := int(data.Polys[i].VertCount)
		data.DetailMeshes[i] = PolyDetail{
			TriBase:  uint32(tbase),
			TriCount: uint8(nv - 2),
		}
		for j := 2; j < nv; j++ {
			t := data.DetailTris[tbase*4 : tbase*4+4]
			t[0] = 0
			t[1] = uint8(j - 1)
			t[2] = uint8(j)
			t[3] = 1 << 2
			if j == 2 {
				t[3] |= 1 << 0
			}
			if j == nv-1 {
				t[3] |= 1 << 4
			}
			tbase++
		}
	}
}

type bvItem struct {
	bmin [3]uint16
	bmax [3]uint16
	i    int
}

func createBVTree(p *CreateParams, nodes []BVNode) int {
	nvp := p.NVP
	items := make([]bvItem, p.PolyCount)
	for i := range items {
		it := &items[i]
		it.i = i
		src := p.Polys[i*nvp*2:]
		copy(it.bmin[:], p.Verts[int(src[0])*3:int(src[0])*3+3])
		it.bmax = it.bmin
		for j := 1; j < nvp && src[j] != meshNullIdx; j++ {
			v := p.Verts[int(src[j])*3 : int(src[j])*3+3]
			for k := 0; k < 3; k++ {
				it.bmin[k] = min(it.bmin[k], v[k])
				it.bmax[k] = max(it.bmax[k], v[k])
			}
		}
		// Remap y into the xz quantization.
		it.bmin[1] = uint16(math.Floor(float64(float32(it.bmin[1]) * p.CellHeight / p.CellSize)))
		it.bmax[1] = uint16(math.Ceil(float64(float32(it.bmax[1]) * p.CellHeight / p.CellSize)))
	}

	curNode := 0
	subdivide(items, 0, len(items), &curNode, nodes)
	return curNode
}

func subdivide(items []bvItem, imin, imax int, curNode *int, nodes []BVNode) {
	inum := imax - imin
	icur := *curNode
	node := &nodes[*curNode]
	*curNode++

	if inum == 1 {
		node.BMin = items[imin].bmin
		node.BMax = items[imin].bmax
		node.I = int32(items[imin].i)
		return
	}

	node.BMin, node.BMax = calcExtents(items, imin, imax)
	axis := longestAxis(
		int(node.BMax[0])-int(node.BMin[0]),
		int(node.BMax[1])-int(node.BMin[1]),
		int(node.BMax[2])-int(node.BMin[2]),
	)
	span := items[imin:imax]
	sort.SliceStable(span, func(a, b int) bool { return span[a].bmin[axis] < span[b].bmin[axis] })

	isplit := imin + inum/2
	subdivide(items, imin, isplit, curNode, nodes)
	subdivide(items, isplit, imax, curNode, nodes)

	node.I = -int32(*curNode - icur)
}

func calcExtents(items []bvItem, imin, imax int) (bmin, bmax [3]uint16) {
	bmin = items[imin].bmin
	bmax = items[imin].bmax
	for i := imin + 1; i < imax; i++ {
		for k := 0; k < 3; k++ {
			bmin[k] = min(bmin[k], items[i].bmin[k])
			bmax[k] = max(bmax[k], items[i].bmax[k])
		}
	}
	return bmin, bmax
}

func longestAxis(x, y, z int) int {
	axis, maxVal := 0, x
	if y > maxVal {
		axis, maxVal = 1, y
	}
	if z > maxVal {
		axis = 2
	}
	return axis
}
