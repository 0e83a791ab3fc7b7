package recast

import "fmt"

// PolyMesh is a mesh of convex polygons in cell units.
//
// Polys holds 2*NVP entries per polygon: NVP vertex indices followed by NVP
// neighbour entries. Unused slots are MeshNullIdx. A neighbour entry is either
// the adjacent polygon index, MeshNullIdx for a solid border, or 0x8000|dir
// for a tile portal.
type PolyMesh struct {
	Verts        []int // (x, y, z) per vertex
	Polys        []int
	Regs         []int
	Areas        []uint8
	Flags        []uint16 // Filled by the caller
	NVerts       int
	NPolys       int
	MaxPolys     int
	NVP          int
	BMin         [3]float32
	BMax         [3]float32
	CellSize     float32
	CellHeight   float32
	BorderSize   int
	MaxEdgeError float32
}

// PolyVertCount returns the number of vertices of polygon i.
func (m *PolyMesh) PolyVertCount(i int) int {
	return countPolyVerts(m.Polys, i*m.NVP*2, m.NVP)
}

const indexMask = 0x0fffffff

// BuildPolyMesh triangulates every contour and merges the triangles into
// convex polygons of at most nvp vertices.
func BuildPolyMesh(cset *ContourSet, nvp int) (*PolyMesh, error) {
	mesh := &PolyMesh{
		BMin:         cset.bmin,
		BMax:         cset.bmax,
		CellSize:     cset.cs,
		CellHeight:   cset.ch,
		BorderSize:   cset.borderSize,
		MaxEdgeError: cset.maxError,
		NVP:          nvp,
	}

	maxVertices, maxTris, maxVertsPerCont := 0, 0, 0
	for _, c := range cset.conts {
		if c.nverts < 3 {
			continue
		}
		maxVertices += c.nverts
		maxTris += c.nverts - 2
		maxVertsPerCont = max(maxVertsPerCont, c.nverts)
	}
	if maxVertices >= 0xfffe {
		return nil, fmt.Errorf("%w: %d", ErrTooManyVertices, maxVertices)
	}

	vflags := make([]bool, maxVertices)
	mesh.Verts = make([]int, maxVertices*3)
	mesh.Polys = make([]int, maxTris*nvp*2)
	fillNull(mesh.Polys)
	mesh.Regs = make([]int, maxTris)
	mesh.Areas = make([]uint8, maxTris)
	mesh.MaxPolys = maxTris

	nextVert := make([]int, maxVertices)
	firstVert := make([]int, vertexBucketCount)
	for i := range firstVert {
		firstVert[i] = -1
	}

	indices := make([]int, maxVertsPerCont)
	tris := make([]int, maxVertsPerCont*3)
	polys := make([]int, (maxVertsPerCont+1)*nvp)
	tmpPoly := maxVertsPerCont * nvp

	for ci, cont := range cset.conts {
		if cont.nverts < 3 {
			continue
		}

		for j := 0; j < cont.nverts; j++ {
			indices[j] = j
		}
		ntris := triangulate(cont.nverts, cont.verts, indices, tris)
		if ntris <= 0 {
			return nil, fmt.Errorf("%w: cannot triangulate contour %d", ErrBadContour, ci)
		}

		for j := 0; j < cont.nverts; j++ {
			v := cont.verts[j*4 : j*4+4]
			indices[j], mesh.NVerts = addVertex(v[0], v[1], v[2], mesh.Verts, firstVert, nextVert, mesh.NVerts)
			if v[3]&borderVertex != 0 {
				vflags[indices[j]] = true
			}
		}

		npolys := 0
		fillNull(polys)
		for j := 0; j < ntris; j++ {
			t := tris[j*3 : j*3+3]
			if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
				polys[npolys*nvp+0] = indices[t[0]]
				polys[npolys*nvp+1] = indices[t[1]]
				polys[npolys*nvp+2] = indices[t[2]]
				npolys++
			}
		}
		if npolys == 0 {
			continue
		}

		if nvp > 3 {
			npolys = mergePolys(polys, npolys, nvp, tmpPoly, mesh.Verts, nil)
		}

		for j := 0; j < npolys; j++ {
			if mesh.NPolys >= maxTris {
				return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyPolygons, mesh.NPolys+1, maxTris)
			}
			p := mesh.NPolys * nvp * 2
			copy(mesh.Polys[p:p+nvp], polys[j*nvp:j*nvp+nvp])
			mesh.Regs[mesh.NPolys] = cont.reg
			mesh.Areas[mesh.NPolys] = cont.area
			mesh.NPolys++
		}
	}

	// Remove edge vertices.
	for i := 0; i < mesh.NVerts; i++ {
		if !vflags[i] || !canRemoveVertex(mesh, i) {
			continue
		}
		if err := removeVertex(mesh, i, maxTris); err != nil {
			return nil, err
		}
		// removeVertex already decremented NVerts.
		copy(vflags[i:], vflags[i+1:mesh.NVerts+1])
		i--
	}

	buildMeshAdjacency(mesh.Polys, mesh.NPolys, mesh.NVerts, nvp)

	if mesh.BorderSize > 0 {
		markPortalEdges(mesh, cset.width, cset.height)
	}

	mesh.Verts = mesh.Verts[:mesh.NVerts*3]
	mesh.Polys = mesh.Polys[:mesh.NPolys*nvp*2]
	mesh.Regs = mesh.Regs[:mesh.NPolys]
	mesh.Areas = mesh.Areas[:mesh.NPolys]
	mesh.Flags = make([]uint16, mesh.NPolys)

	if mesh.NVerts > 0xffff {
		return nil, fmt.Errorf("%w: mesh has %d vertices", ErrTooManyVertices, mesh.NVerts)
	}
	if mesh.NPolys > 0xffff {
		return nil, fmt.Errorf("%w: mesh has %d polygons", ErrTooManyPolygons, mesh.NPolys)
	}
	return mesh, nil
}

func fillNull(s []int) {
	for i := range s {
		s[i] = MeshNullIdx
	}
}

// mergePolys greedily merges the pair of polygons sharing the longest edge
// until no convex merge remains. regs, when non-nil, tracks region ids
// alongside the polygons. It returns the new polygon count.
func mergePolys(polys []int, npolys, nvp, tmpPoly int, verts []int, regs *holeAttrs) int {
	for {
		bestMergeVal := 0
		bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0
		for j := 0; j < npolys-1; j++ {
			for k := j + 1; k < npolys; k++ {
				v, ea, eb := getPolyMergeValue(polys, j*nvp, k*nvp, verts, nvp)
				if v > bestMergeVal {
					bestMergeVal = v
					bestPa, bestPb = j, k
					bestEa, bestEb = ea, eb
				}
			}
		}
		if bestMergeVal <= 0 {
			return npolys
		}

		pa := bestPa * nvp
		pb := bestPb * nvp
		mergePolyVerts(polys, pa, pb, bestEa, bestEb, tmpPoly, nvp)
		last := (npolys - 1) * nvp
		if pb != last {
			copy(polys[pb:pb+nvp], polys[last:last+nvp])
		}
		if regs != nil {
			if regs.regs[bestPa] != regs.regs[bestPb] {
				regs.regs[bestPa] = multipleRegs
			}
			regs.regs[bestPb] = regs.regs[npolys-1]
			regs.areas[bestPb] = regs.areas[npolys-1]
		}
		npolys--
	}
}

type holeAttrs struct {
	regs  []int
	areas []uint8
}

func markPortalEdges(mesh *PolyMesh, w, h int) {
	nvp := mesh.NVP
	for i := 0; i < mesh.NPolys; i++ {
		p := i * 2 * nvp
		for j := 0; j < nvp; j++ {
			if mesh.Polys[p+j] == MeshNullIdx {
				break
			}
			if mesh.Polys[p+nvp+j] != MeshNullIdx {
				continue
			}
			nj := j + 1
			if nj >= nvp || mesh.Polys[p+nj] == MeshNullIdx {
				nj = 0
			}
			va := mesh.Verts[mesh.Polys[p+j]*3:]
			vb := mesh.Verts[mesh.Polys[p+nj]*3:]
			switch {
			case va[0] == 0 && vb[0] == 0:
				mesh.Polys[p+nvp+j] = 0x8000 | 0
			case va[2] == h && vb[2] == h:
				mesh.Polys[p+nvp+j] = 0x8000 | 1
			case va[0] == w && vb[0] == w:
				mesh.Polys[p+nvp+j] = 0x8000 | 2
			case va[2] == 0 && vb[2] == 0:
				mesh.Polys[p+nvp+j] = 0x8000 | 3
			}
		}
	}
}

type meshEdge struct {
	vert     [2]int
	polyEdge [2]int
	poly     [2]int
}

// buildMeshAdjacency fills the neighbour half of each polygon by matching
// shared edges.
func buildMeshAdjacency(polys []int, npolys, nverts, nvp int) {
	maxEdgeCount := npolys * nvp
	firstEdge := make([]int, nverts)
	nextEdge := make([]int, maxEdgeCount)
	fillNull(firstEdge)
	edges := make([]meshEdge, 0, maxEdgeCount)

	edgeVerts := func(t, j int) (int, int) {
		v0 := polys[t+j]
		v1 := polys[t]
		if j+1 < nvp && polys[t+j+1] != MeshNullIdx {
			v1 = polys[t+j+1]
		}
		return v0, v1
	}

	for i := 0; i < npolys; i++ {
		t := i * nvp * 2
		for j := 0; j < nvp && polys[t+j] != MeshNullIdx; j++ {
			v0, v1 := edgeVerts(t, j)
			if v0 < v1 {
				edges = append(edges, meshEdge{
					vert:     [2]int{v0, v1},
					poly:     [2]int{i, i},
					polyEdge: [2]int{j, 0},
				})
				e := len(edges) - 1
				nextEdge[e] = firstEdge[v0]
				firstEdge[v0] = e
			}
		}
	}

	for i := 0; i < npolys; i++ {
		t := i * nvp * 2
		for j := 0; j < nvp && polys[t+j] != MeshNullIdx; j++ {
			v0, v1 := edgeVerts(t, j)
			if v0 <= v1 {
				continue
			}
			for e := firstEdge[v1]; e != MeshNullIdx; e = nextEdge[e] {
				edge := &edges[e]
				if edge.vert[1] == v0 && edge.poly[0] == edge.poly[1] {
					edge.poly[1] = i
					edge.polyEdge[1] = j
					break
				}
			}
		}
	}

	for _, e := range edges {
		if e.poly[0] != e.poly[1] {
			p0 := e.poly[0] * nvp * 2
			p1 := e.poly[1] * nvp * 2
			polys[p0+nvp+e.polyEdge[0]] = e.poly[1]
			polys[p1+nvp+e.polyEdge[1]] = e.poly[0]
		}
	}
}

func canRemoveVertex(mesh *PolyMesh, rem int) bool {
	nvp := mesh.NVP

	numTouchedVerts := 0
	numRemainingEdges := 0
	for i := 0; i < mesh.NPolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(mesh.Polys, p, nvp)
		numRemoved := 0
		for j := 0; j < nv; j++ {
			if mesh.Polys[p+j] == rem {
				numTouchedVerts++
				numRemoved++
			}
		}
		if numRemoved != 0 {
			numRemainingEdges += nv - (numRemoved + 1)
		}
	}
	// Too few edges would remain to build a polygon.
	if numRemainingEdges <= 2 {
		return false
	}

	// Edges sharing the removed vertex, as (a, b, share count).
	edges := make([]int, 0, numTouchedVerts*2*3)
	for i := 0; i < mesh.NPolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(mesh.Polys, p, nvp)
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			if mesh.Polys[p+j] != rem && mesh.Polys[p+k] != rem {
				continue
			}
			a, b := mesh.Polys[p+j], mesh.Polys[p+k]
			if b == rem {
				a, b = b, a
			}
			exists := false
			for m := 0; m < len(edges); m += 3 {
				if edges[m+1] == b {
					edges[m+2]++
					exists = true
				}
			}
			if !exists {
				edges = append(edges, a, b, 1)
			}
		}
	}

	// More than two open edges means two non-adjacent polygons share the
	// vertex.
	numOpenEdges := 0
	for m := 0; m < len(edges); m += 3 {
		if edges[m+2] < 2 {
			numOpenEdges++
		}
	}
	return numOpenEdges <= 2
}

func removeVertex(mesh *PolyMesh, rem, maxTris int) error {
	nvp := mesh.NVP

	// Edges of the removed polygons that do not touch rem, as
	// (a, b, region, area).
	var edges []int
	for i := 0; i < mesh.NPolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(mesh.Polys, p, nvp)
		hasRem := false
		for j := 0; j < nv; j++ {
			if mesh.Polys[p+j] == rem {
				hasRem = true
			}
		}
		if !hasRem {
			continue
		}
		for j, k := 0, nv-1; j < nv; k, j = j, j+1 {
			if mesh.Polys[p+j] != rem && mesh.Polys[p+k] != rem {
				edges = append(edges, mesh.Polys[p+k], mesh.Polys[p+j], mesh.Regs[i], int(mesh.Areas[i]))
			}
		}
		// Remove the polygon.
		p2 := (mesh.NPolys - 1) * nvp * 2
		if p != p2 {
			copy(mesh.Polys[p:p+nvp], mesh.Polys[p2:p2+nvp])
		}
		fillNull(mesh.Polys[p+nvp : p+nvp*2])
		mesh.Regs[i] = mesh.Regs[mesh.NPolys-1]
		mesh.Areas[i] = mesh.Areas[mesh.NPolys-1]
		mesh.NPolys--
		i--
	}

	// Remove the vertex.
	copy(mesh.Verts[rem*3:mesh.NVerts*3-3], mesh.Verts[rem*3+3:mesh.NVerts*3])
	mesh.NVerts--

	for i := 0; i < mesh.NPolys; i++ {
		p := i * nvp * 2
		nv := countPolyVerts(mesh.Polys, p, nvp)
		for j := 0; j < nv; j++ {
			if mesh.Polys[p+j] > rem {
				mesh.Polys[p+j]--
			}
		}
	}
	for e := 0; e < len(edges); e += 4 {
		if edges[e] > rem {
			edges[e]--
		}
		if edges[e+1] > rem {
			edges[e+1]--
		}
	}
	if len(edges) == 0 {
		return nil
	}

	// Grow the hole boundary from the first edge by appending connected
	// segments to either end.
	hole := []int{edges[0]}
	hreg := []int{edges[2]}
	harea := []uint8{uint8(edges[3])}
	for len(edges) > 0 {
		match := false
		for e := 0; e < len(edges); e += 4 {
			ea, eb, r, a := edges[e], edges[e+1], edges[e+2], uint8(edges[e+3])
			add := false
			switch {
			case hole[0] == eb:
				hole = append([]int{ea}, hole...)
				hreg = append([]int{r}, hreg...)
				harea = append([]uint8{a}, harea...)
				add = true
			case hole[len(hole)-1] == ea:
				hole = append(hole, eb)
				hreg = append(hreg, r)
				harea = append(harea, a)
				add = true
			}
			if add {
				last := len(edges) - 4
				copy(edges[e:e+4], edges[last:last+4])
				edges = edges[:last]
				match = true
				e -= 4
			}
		}
		if !match {
			break
		}
	}

	nhole := len(hole)
	tverts := make([]int, nhole*4)
	thole := make([]int, nhole)
	for i, pi := range hole {
		copy(tverts[i*4:i*4+3], mesh.Verts[pi*3:pi*3+3])
		thole[i] = i
	}
	tris := make([]int, nhole*3)
	ntris := triangulate(nhole, tverts, thole, tris)
	if ntris < 0 {
		ntris = -ntris
	}

	polys := make([]int, (ntris+1)*nvp)
	fillNull(polys)
	attrs := &holeAttrs{regs: make([]int, ntris), areas: make([]uint8, ntris)}
	npolys := 0
	for j := 0; j < ntris; j++ {
		t := tris[j*3 : j*3+3]
		if t[0] == t[1] || t[0] == t[2] || t[1] == t[2] {
			continue
		}
		polys[npolys*nvp+0] = hole[t[0]]
		polys[npolys*nvp+1] = hole[t[1]]
		polys[npolys*nvp+2] = hole[t[2]]
		// A polygon spanning several regions is marked as such.
		if hreg[t[0]] != hreg[t[1]] || hreg[t[1]] != hreg[t[2]] {
			attrs.regs[npolys] = multipleRegs
		} else {
			attrs.regs[npolys] = hreg[t[0]]
		}
		attrs.areas[npolys] = harea[t[0]]
		npolys++
	}
	if npolys == 0 {
		return nil
	}

	if nvp > 3 {
		npolys = mergePolys(polys, npolys, nvp, ntris*nvp, mesh.Verts, attrs)
	}

	for i := 0; i < npolys; i++ {
		if mesh.NPolys >= maxTris {
			return fmt.Errorf("%w: %d (max %d) while removing vertex", ErrTooManyPolygons, mesh.NPolys+1, maxTris)
		}
		p := mesh.NPolys * nvp * 2
		fillNull(mesh.Polys[p : p+nvp*2])
		copy(mesh.Polys[p:p+nvp], polys[i*nvp:i*nvp+nvp])
		mesh.Regs[mesh.NPolys] = attrs.regs[i]
		mesh.Areas[mesh.NPolys] = attrs.areas[i]
		mesh.NPolys++
	}
	return nil
}

func mergePolyVerts(polys []int, pa, pb, ea, eb, tmp, nvp int) {
	na := countPolyVerts(polys, pa, nvp)
	nb := countPolyVerts(polys, pb, nvp)
	fillNull(polys[tmp : tmp+nvp])
	n := 0
	for i := 0; i < na-1; i++ {
		polys[tmp+n] = polys[pa+(ea+1+i)%na]
		n++
	}
	for i := 0; i < nb-1; i++ {
		polys[tmp+n] = polys[pb+(eb+1+i)%nb]
		n++
	}
	copy(polys[pa:pa+nvp], polys[tmp:tmp+nvp])
}

// getPolyMergeValue returns the squared length of the shared edge of two
// polygons, or -1 when merging them would exceed nvp or break convexity.
func getPolyMergeValue(polys []int, pa, pb int, verts []int, nvp int) (val, ea, eb int) {
	ea, eb = -1, -1
	na := countPolyVerts(polys, pa, nvp)
	nb := countPolyVerts(polys, pb, nvp)
	if na+nb-2 > nvp {
		return -1, ea, eb
	}

	for i := 0; i < na; i++ {
		va0 := polys[pa+i]
		va1 := polys[pa+(i+1)%na]
		if va0 > va1 {
			va0, va1 = va1, va0
		}
		for j := 0; j < nb; j++ {
			vb0 := polys[pb+j]
			vb1 := polys[pb+(j+1)%nb]
			if vb0 > vb1 {
				vb0, vb1 = vb1, vb0
			}
			if va0 == vb0 && va1 == vb1 {
				ea, eb = i, j
				break
			}
		}
	}
	if ea == -1 || eb == -1 {
		return -1, ea, eb
	}

	va, vb, vc := polys[pa+(ea+na-1)%na], polys[pa+ea], polys[pb+(eb+2)%nb]
	if !uleft(verts[va*3:], verts[vb*3:], verts[vc*3:]) {
		return -1, ea, eb
	}
	va, vb, vc = polys[pb+(eb+nb-1)%nb], polys[pb+eb], polys[pa+(ea+2)%na]
	if !uleft(verts[va*3:], verts[vb*3:], verts[vc*3:]) {
		return -1, ea, eb
	}

	va, vb = polys[pa+ea], polys[pa+(ea+1)%na]
	dx := verts[va*3] - verts[vb*3]
	dz := verts[va*3+2] - verts[vb*3+2]
	return dx*dx + dz*dz, ea, eb
}

func uleft(a, b, c []int) bool {
	return (b[0]-a[0])*(c[2]-a[2])-(c[0]-a[0])*(b[2]-a[2]) < 0
}

func countPolyVerts(polys []int, p, nvp int) int {
	for i := 0; i < nvp; i++ {
		if polys[p+i] == MeshNullIdx {
			return i
		}
	}
	return nvp
}

// addVertex returns the index of an existing vertex at (x, z) within two
// cells of y, or appends a new one. It also returns the new vertex count.
func addVertex(x, y, z int, verts, firstVert, nextVert []int, nv int) (int, int) {
	bucket := vertexHash(x, 0, z)
	for i := firstVert[bucket]; i != -1; i = nextVert[i] {
		v := verts[i*3 : i*3+3]
		if v[0] == x && absInt(v[1]-y) <= 2 && v[2] == z {
			return i, nv
		}
	}
	i := nv
	verts[i*3], verts[i*3+1], verts[i*3+2] = x, y, z
	nextVert[i] = firstVert[bucket]
	firstVert[bucket] = i
	return i, nv + 1
}

func vertexHash(x, y, z int) int {
	const (
		h1 = 0x8da6b343
		h2 = 0xd8163841
		h3 = 0xcb1ab31f
	)
	n := uint32(h1*x + h2*y + h3*z)
	return int(n & (vertexBucketCount - 1))
}

// triangulate ear-clips the polygon described by indices into verts (stride
// 4). It returns the triangle count, negated when the outline is broken.
func triangulate(n int, verts, indices, tris []int) int {
	ntris := 0

	// The top bit of an index marks a removable ear.
	for i := 0; i < n; i++ {
		i1 := next(i, n)
		i2 := next(i1, n)
		if diagonal(i, i2, n, verts, indices) {
			indices[i1] |= 0x80000000
		}
	}

	vert := func(i int) []int {
		k := (indices[i] & indexMask) * 4
		return verts[k : k+4]
	}

	for n > 3 {
		minLen, mini := -1, -1
		for i := 0; i < n; i++ {
			i1 := next(i, n)
			if indices[i1]&0x80000000 == 0 {
				continue
			}
			p0, p2 := vert(i), vert(next(i1, n))
			dx, dz := p2[0]-p0[0], p2[2]-p0[2]
			if l := dx*dx + dz*dz; minLen < 0 || l < minLen {
				minLen, mini = l, i
			}
		}

		if mini == -1 {
			// Overlapping segments; retry with a looser cone test.
			for i := 0; i < n; i++ {
				i1 := next(i, n)
				i2 := next(i1, n)
				if !diagonalLoose(i, i2, n, verts, indices) {
					continue
				}
				p0, p2 := vert(i), vert(next(i2, n))
				dx, dz := p2[0]-p0[0], p2[2]-p0[2]
				if l := dx*dx + dz*dz; minLen < 0 || l < minLen {
					minLen, mini = l, i
				}
			}
			if mini == -1 {
				return -ntris
			}
		}

		i := mini
		i1 := next(i, n)
		i2 := next(i1, n)
		tris[ntris*3] = indices[i] & indexMask
		tris[ntris*3+1] = indices[i1] & indexMask
		tris[ntris*3+2] = indices[i2] & indexMask
		ntris++

		// Remove P[i1].
		n--
		copy(indices[i1:n], indices[i1+1:n+1])
		if i1 >= n {
			i1 = 0
		}
		i = prev(i1, n)

		if diagonal(prev(i, n), i1, n, verts, indices) {
			indices[i] |= 0x80000000
		} else {
			indices[i] &= indexMask
		}
		if diagonal(i, next(i1, n), n, verts, indices) {
			indices[i1] |= 0x80000000
		} else {
			indices[i1] &= indexMask
		}
	}

	tris[ntris*3] = indices[0] & indexMask
	tris[ntris*3+1] = indices[1] & indexMask
	tris[ntris*3+2] = indices[2] & indexMask
	ntris++
	return ntris
}

func polyVert(verts, indices []int, i int) []int {
	k := (indices[i] & indexMask) * 4
	return verts[k : k+4]
}

// diagonalie reports whether (v_i, v_j) is a proper internal or external
// diagonal, ignoring edges incident to v_i and v_j.
func diagonalie(i, j, n int, verts, indices []int, test func(a, b, c, d []int) bool) bool {
	d0 := polyVert(verts, indices, i)
	d1 := polyVert(verts, indices, j)
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := polyVert(verts, indices, k)
		p1 := polyVert(verts, indices, k1)
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if test(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

func diagonal(i, j, n int, verts, indices []int) bool {
	return inCone(i, j, n, verts, indices, left) && diagonalie(i, j, n, verts, indices, intersect)
}

func diagonalLoose(i, j, n int, verts, indices []int) bool {
	return inCone(i, j, n, verts, indices, leftOn) && diagonalie(i, j, n, verts, indices, intersectProp)
}

// inCone reports whether the diagonal i-j lies in the cone at vertex i. side
// is the convex-vertex test, strict or loose.
func inCone(i, j, n int, verts, indices []int, side func(a, b, c []int) bool) bool {
	pi := polyVert(verts, indices, i)
	pj := polyVert(verts, indices, j)
	pi1 := polyVert(verts, indices, next(i, n))
	pin1 := polyVert(verts, indices, prev(i, n))

	if leftOn(pin1, pi, pi1) {
		return side(pi, pj, pin1) && side(pj, pi, pi1)
	}
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

func next(i, n int) int {
	if i+1 < n {
		return i + 1
	}
	return 0
}

func prev(i, n int) int {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}

func vequal(a, b []int) bool {
	return a[0] == b[0] && a[2] == b[2]
}

func intersect(a, b, c, d []int) bool {
	if intersectProp(a, b, c, d) {
		return true
	}
	return between(a, b, c) || between(a, b, d) || between(c, d, a) || between(c, d, b)
}

// intersectProp reports a proper intersection, one sharing no endpoints.
func intersectProp(a, b, c, d []int) bool {
	if collinear(a, b, c) || collinear(a, b, d) || collinear(c, d, a) || collinear(c, d, b) {
		return false
	}
	return left(a, b, c) != left(a, b, d) && left(c, d, a) != left(c, d, b)
}

func between(a, b, c []int) bool {
	if !collinear(a, b, c) {
		return false
	}
	if a[0] != b[0] {
		return (a[0] <= c[0] && c[0] <= b[0]) || (a[0] >= c[0] && c[0] >= b[0])
	}
	return (a[2] <= c[2] && c[2] <= b[2]) || (a[2] >= c[2] && c[2] >= b[2])
}

func collinear(a, b, c []int) bool { return area2(a, b, c) == 0 }

func area2(a, b, c []int) int {
	return (b[0]-a[0])*(c[2]-a[2]) - (c[0]-a[0])*(b[2]-a[2])
}

func left(a, b, c []int) bool { return area2(a, b, c) < 0 }

func leftOn(a, b, c []int) bool { return area2(a, b, c) <= 0 }
