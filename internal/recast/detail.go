package recast

import (
	"errors"
	"fmt"
	"math"
)

const (
	unsetHeight     = 0xffff
	detailMaxVerts  = 127
	detailMaxTris   = 255
	maxVertsPerEdge = 32
	edgeUndef       = -1
	edgeHull        = -2
)

// ErrBadDetailMesh reports a polygon the detail pass could not triangulate.
var ErrBadDetailMesh = errors.New("bad detail mesh")

// PolyMeshDetail holds the height detail of a PolyMesh in world units. Each
// polygon owns a sub-mesh whose first vertices repeat the polygon vertices.
type PolyMeshDetail struct {
	Meshes []int     // (vert base, vert count, tri base, tri count) per polygon
	Verts  []float32 // (x, y, z) per vertex
	Tris   []uint8   // (a, b, c, edge flags) per triangle, indices local to the sub-mesh
}

// MeshCount returns the number of sub-meshes.
func (d *PolyMeshDetail) MeshCount() int { return len(d.Meshes) / 4 }

// VertCount returns the number of detail vertices.
func (d *PolyMeshDetail) VertCount() int { return len(d.Verts) / 3 }

// TriCount returns the number of detail triangles.
func (d *PolyMeshDetail) TriCount() int { return len(d.Tris) / 4 }

type heightPatch struct {
	data   []int
	xmin   int
	ymin   int
	width  int
	height int
}

type detailBuilder struct {
	chf            *CompactHeightfield
	hp             heightPatch
	sampleDist     float32
	sampleMaxError float32
	searchRadius   int

	verts   []float32
	tris    []int
	edges   []int
	samples []int
	queue   []int
	hull    [detailMaxVerts]int
	edge    [(maxVertsPerEdge + 1) * 3]float32
	idx     [maxVertsPerEdge + 1]int
}

// BuildPolyMeshDetail samples the compact heightfield over every polygon of
// mesh and triangulates the samples that deviate more than sampleMaxError
// from the polygon plane. sampleDist and sampleMaxError are in world units; a
// zero sampleDist keeps the polygon outlines only.
func BuildPolyMeshDetail(mesh *PolyMesh, chf *CompactHeightfield, sampleDist, sampleMaxError float32) (*PolyMeshDetail, error) {
	if mesh.NVerts == 0 || mesh.NPolys == 0 {
		return nil, ErrEmptyInput
	}
	nvp := mesh.NVP
	cs, ch := mesh.CellSize, mesh.CellHeight
	orig := mesh.BMin
	bs := mesh.BorderSize

	bounds := make([]int, mesh.NPolys*4)
	maxhw, maxhh := 0, 0
	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2:]
		xmin, xmax, ymin, ymax := chf.width, 0, chf.height, 0
		for j := 0; j < nvp && p[j] != MeshNullIdx; j++ {
			v := mesh.Verts[p[j]*3:]
			xmin, xmax = min(xmin, v[0]), max(xmax, v[0])
			ymin, ymax = min(ymin, v[2]), max(ymax, v[2])
		}
		xmin, xmax = max(0, xmin-1), min(chf.width, xmax+1)
		ymin, ymax = max(0, ymin-1), min(chf.height, ymax+1)
		bounds[i*4+0], bounds[i*4+1], bounds[i*4+2], bounds[i*4+3] = xmin, xmax, ymin, ymax
		if xmin >= xmax || ymin >= ymax {
			continue
		}
		maxhw = max(maxhw, xmax-xmin)
		maxhh = max(maxhh, ymax-ymin)
	}

	b := &detailBuilder{
		chf:            chf,
		hp:             heightPatch{data: make([]int, maxhw*maxhh)},
		sampleDist:     sampleDist,
		sampleMaxError: sampleMaxError,
		searchRadius:   max(1, int(math.Ceil(float64(mesh.MaxEdgeError)))),
		verts:          make([]float32, detailMaxVerts*3),
	}
	dmesh := &PolyMeshDetail{Meshes: make([]int, 0, mesh.NPolys*4)}
	poly := make([]float32, nvp*3)

	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2 : i*nvp*2+nvp]
		npoly := 0
		for ; npoly < nvp && p[npoly] != MeshNullIdx; npoly++ {
			v := mesh.Verts[p[npoly]*3:]
			poly[npoly*3+0] = float32(v[0]) * cs
			poly[npoly*3+1] = float32(v[1]) * ch
			poly[npoly*3+2] = float32(v[2]) * cs
		}

		b.hp.xmin = bounds[i*4+0]
		b.hp.ymin = bounds[i*4+2]
		b.hp.width = bounds[i*4+1] - bounds[i*4+0]
		b.hp.height = bounds[i*4+3] - bounds[i*4+2]
		if b.hp.width <= 0 || b.hp.height <= 0 {
			return nil, fmt.Errorf("%w: polygon %d has empty bounds", ErrBadDetailMesh, i)
		}
		if err := b.heightData(p[:npoly], mesh.Verts, bs, mesh.Regs[i]); err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}

		nverts, err := b.polyDetail(poly[:npoly*3])
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}

		vbase, tbase := dmesh.VertCount(), dmesh.TriCount()
		verts := b.verts
		for j := 0; j < len(b.tris); j += 4 {
			ta, tb, tc := b.tris[j], b.tris[j+1], b.tris[j+2]
			flags := triEdgeFlags(verts[ta*3:], verts[tb*3:], verts[tc*3:], poly[:npoly*3])
			dmesh.Tris = append(dmesh.Tris, uint8(ta), uint8(tb), uint8(tc), flags)
		}
		for j := 0; j < nverts; j++ {
			dmesh.Verts = append(dmesh.Verts, verts[j*3]+orig[0], verts[j*3+1]+orig[1], verts[j*3+2]+orig[2])
		}
		dmesh.Meshes = append(dmesh.Meshes, vbase, nverts, tbase, len(b.tris)/4)
	}
	return dmesh, nil
}

// polyDetail tessellates one polygon given in local world units. The result
// is left in b.verts and b.tris.
func (b *detailBuilder) polyDetail(in []float32) (int, error) {
	nin := len(in) / 3
	verts := b.verts
	copy(verts, in)
	nverts := nin
	nhull := 0
	cs := b.chf.cs
	ch := b.chf.ch
	sampleDist := b.sampleDist

	minExtent := polyMinExtent(verts[:nverts*3])

	// Outlines first, in a canonical order so shared edges get the same samples.
	if sampleDist > 0 {
		edge := b.edge[:]
		idx := b.idx[:]
		for i, j := 0, nin-1; i < nin; j, i = i, i+1 {
			vj, vi := in[j*3:j*3+3], in[i*3:i*3+3]
			swapped := false
			if absf(vj[0]-vi[0]) < 1e-6 {
				if vj[2] > vi[2] {
					vi, vj = vj, vi
					swapped = true
				}
			} else if vj[0] > vi[0] {
				vi, vj = vj, vi
				swapped = true
			}

			dx, dy, dz := vi[0]-vj[0], vi[1]-vj[1], vi[2]-vj[2]
			d := float32(math.Sqrt(float64(dx*dx + dz*dz)))
			nn := 1 + int(math.Floor(float64(d/sampleDist)))
			nn = min(nn, maxVertsPerEdge-1)
			if nverts+nn >= detailMaxVerts {
				nn = detailMaxVerts - 1 - nverts
			}
			nn = max(nn, 1)
			for k := 0; k <= nn; k++ {
				u := float32(k) / float32(nn)
				pos := edge[k*3 : k*3+3]
				pos[0] = vj[0] + dx*u
				pos[1] = vj[1] + dy*u
				pos[2] = vj[2] + dz*u
				pos[1] = float32(b.height(pos[0], pos[1], pos[2])) * ch
			}

			idx[0], idx[1] = 0, nn
			nidx := 2
			for k := 0; k < nidx-1; {
				a, c := idx[k], idx[k+1]
				maxd := float32(0)
				maxi := -1
				for m := a + 1; m < c; m++ {
					if dev := distPtSeg(edge[m*3:], edge[a*3:], edge[c*3:]); dev > maxd {
						maxd, maxi = dev, m
					}
				}
				if maxi != -1 && maxd > b.sampleMaxError*b.sampleMaxError {
					for m := nidx; m > k; m-- {
						idx[m] = idx[m-1]
					}
					idx[k+1] = maxi
					nidx++
				} else {
					k++
				}
			}

			b.hull[nhull] = j
			nhull++
			if swapped {
				for k := nidx - 2; k > 0; k-- {
					copy(verts[nverts*3:nverts*3+3], edge[idx[k]*3:])
					b.hull[nhull] = nverts
					nhull++
					nverts++
				}
			} else {
				for k := 1; k < nidx-1; k++ {
					copy(verts[nverts*3:nverts*3+3], edge[idx[k]*3:])
					b.hull[nhull] = nverts
					nhull++
					nverts++
				}
			}
		}
	}
	if nhull == 0 {
		for i := 0; i < nin; i++ {
			b.hull[i] = i
		}
		nhull = nin
	}
	hull := b.hull[:nhull]

	b.tris = triangulateHull(verts, hull, nin, b.tris[:0])
	if len(b.tris) == 0 {
		return 0, fmt.Errorf("%w: cannot triangulate %d verts", ErrBadDetailMesh, nverts)
	}
	// Slivers get no interior samples.
	if sampleDist <= 0 || minExtent < sampleDist*2 {
		return nverts, nil
	}

	bmin := [3]float32{in[0], in[1], in[2]}
	bmax := bmin
	for i := 1; i < nin; i++ {
		for k := 0; k < 3; k++ {
			bmin[k] = min(bmin[k], in[i*3+k])
			bmax[k] = max(bmax[k], in[i*3+k])
		}
	}
	x0 := int(math.Floor(float64(bmin[0] / sampleDist)))
	x1 := int(math.Ceil(float64(bmax[0] / sampleDist)))
	z0 := int(math.Floor(float64(bmin[2] / sampleDist)))
	z1 := int(math.Ceil(float64(bmax[2] / sampleDist)))
	b.samples = b.samples[:0]
	for z := z0; z < z1; z++ {
		for x := x0; x < x1; x++ {
			pt := [3]float32{float32(x) * sampleDist, (bmax[1] + bmin[1]) * 0.5, float32(z) * sampleDist}
			if distToPoly(in, pt[:]) > -sampleDist/2 {
				continue
			}
			b.samples = append(b.samples, x, b.height(pt[0], pt[1], pt[2]), z, 0)
		}
	}

	// Add the sample with the largest error until every sample is within
	// sampleMaxError of the triangulation.
	nsamples := len(b.samples) / 4
	for iter := 0; iter < nsamples && nverts < detailMaxVerts; iter++ {
		var bestpt [3]float32
		bestd := float32(0)
		besti := -1
		for i := 0; i < nsamples; i++ {
			s := b.samples[i*4 : i*4+4]
			if s[3] != 0 {
				continue
			}
			// Jitter breaks the symmetry of the sample grid.
			pt := [3]float32{
				float32(s[0])*sampleDist + jitterX(i)*cs*0.1,
				float32(s[1]) * ch,
				float32(s[2])*sampleDist + jitterY(i)*cs*0.1,
			}
			d := distToTriMesh(pt[:], verts, b.tris)
			if d < 0 {
				continue
			}
			if d > bestd {
				bestd, besti, bestpt = d, i, pt
			}
		}
		if bestd <= b.sampleMaxError || besti == -1 {
			break
		}
		b.samples[besti*4+3] = 1
		copy(verts[nverts*3:nverts*3+3], bestpt[:])
		nverts++
		b.tris, b.edges = delaunayHull(verts[:nverts*3], hull, b.edges, b.tris)
	}

	switch ntris := len(b.tris) / 4; {
	case ntris == 0:
		return 0, fmt.Errorf("%w: empty triangulation of %d verts", ErrBadDetailMesh, nverts)
	case ntris > detailMaxTris:
		return 0, fmt.Errorf("%w: %d triangles, max %d", ErrBadDetailMesh, ntris, detailMaxTris)
	}
	return nverts, nil
}

// height returns the patch height in cells under (fx, fz). Unset cells are
// resolved by a spiral search limited to the nearest ring holding data.
func (b *detailBuilder) height(fx, fy, fz float32) int {
	hp := &b.hp
	ics := 1 / b.chf.cs
	ch := b.chf.ch
	ix := int(math.Floor(float64(fx*ics + 0.01)))
	iz := int(math.Floor(float64(fz*ics + 0.01)))
	ix = clampInt(ix-hp.xmin, 0, hp.width-1)
	iz = clampInt(iz-hp.ymin, 0, hp.height-1)
	h := hp.data[ix+iz*hp.width]
	if h != unsetHeight {
		return h
	}

	x, z, dx, dz := 1, 0, 1, 0
	size := b.searchRadius*2 + 1
	maxIter := size*size - 1
	nextRingStart, ringIters := 8, 16
	dmin := float32(math.MaxFloat32)
	for i := 0; i < maxIter; i++ {
		nx, nz := ix+x, iz+z
		if nx >= 0 && nz >= 0 && nx < hp.width && nz < hp.height {
			if nh := hp.data[nx+nz*hp.width]; nh != unsetHeight {
				if d := absf(float32(nh)*ch - fy); d < dmin {
					h, dmin = nh, d
				}
			}
		}
		if i+1 == nextRingStart {
			if h != unsetHeight {
				break
			}
			nextRingStart += ringIters
			ringIters += 8
		}
		if x == z || (x < 0 && x == -z) || (x > 0 && x == 1-z) {
			dx, dz = -dz, dx
		}
		x += dx
		z += dz
	}
	if h == unsetHeight {
		return int(fy/ch + 0.5)
	}
	return h
}

// heightData fills the height patch from the spans of region under the
// polygon, flooding outwards from the region border.
func (b *detailBuilder) heightData(poly, verts []int, bs, region int) error {
	chf := b.chf
	hp := &b.hp
	data := hp.data[:hp.width*hp.height]
	for i := range data {
		data[i] = unsetHeight
	}
	queue := b.queue[:0]

	// Merged polygons may overlap polygons of other regions and cannot sample
	// by region.
	empty := true
	if region != multipleRegs {
		for hy := 0; hy < hp.height; hy++ {
			y := hp.ymin + hy + bs
			for hx := 0; hx < hp.width; hx++ {
				x := hp.xmin + hx + bs
				c := &chf.cells[x+y*chf.width]
				for i := c.index; i < c.index+c.count; i++ {
					s := &chf.spans[i]
					if s.reg != region {
						continue
					}
					data[hx+hy*hp.width] = s.y
					empty = false
					for dir := 0; dir < 4; dir++ {
						if getCon(s, dir) == notConnected {
							continue
						}
						if _, _, ai := chf.neighbour(x, y, s, dir); chf.spans[ai].reg != region {
							queue = append(queue, x, y, i)
							break
						}
					}
					break
				}
			}
		}
	}
	if empty {
		var err error
		if queue, err = b.seedPolyCenter(poly, verts, bs, queue); err != nil {
			b.queue = queue
			return err
		}
	}

	for head := 0; head*3 < len(queue); head++ {
		cx, cy, ci := queue[head*3], queue[head*3+1], queue[head*3+2]
		s := &chf.spans[ci]
		for dir := 0; dir < 4; dir++ {
			if getCon(s, dir) == notConnected {
				continue
			}
			ax, ay, ai := chf.neighbour(cx, cy, s, dir)
			hx, hy := ax-hp.xmin-bs, ay-hp.ymin-bs
			if hx < 0 || hy < 0 || hx >= hp.width || hy >= hp.height {
				continue
			}
			if data[hx+hy*hp.width] != unsetHeight {
				continue
			}
			data[hx+hy*hp.width] = chf.spans[ai].y
			queue = append(queue, ax, ay, ai)
		}
	}
	b.queue = queue
	return nil
}

var seedOffsets = [9 * 2]int{0, 0, -1, -1, 0, -1, 1, -1, 1, 0, 1, 1, 0, 1, -1, 1, -1, 0}

// seedPolyCenter walks from the span closest to a polygon vertex to the
// polygon center and returns it as the single flood seed.
func (b *detailBuilder) seedPolyCenter(poly, verts []int, bs int, stack []int) ([]int, error) {
	chf := b.chf
	hp := &b.hp

	startX, startY, startI := 0, 0, -1
	dmin := unsetHeight
	for j := 0; j < len(poly) && dmin > 0; j++ {
		v := verts[poly[j]*3:]
		for k := 0; k < 9 && dmin > 0; k++ {
			ax := v[0] + seedOffsets[k*2]
			ay := v[1]
			az := v[2] + seedOffsets[k*2+1]
			if ax < hp.xmin || ax >= hp.xmin+hp.width || az < hp.ymin || az >= hp.ymin+hp.height {
				continue
			}
			c := &chf.cells[(ax+bs)+(az+bs)*chf.width]
			for i := c.index; i < c.index+c.count && dmin > 0; i++ {
				if d := absInt(ay - chf.spans[i].y); d < dmin {
					startX, startY, startI, dmin = ax, az, i, d
				}
			}
		}
	}
	if startI == -1 {
		return stack, fmt.Errorf("%w: no span under polygon", ErrBadDetailMesh)
	}

	pcx, pcy := 0, 0
	for _, pv := range poly {
		pcx += verts[pv*3]
		pcy += verts[pv*3+2]
	}
	pcx /= len(poly)
	pcy /= len(poly)

	data := hp.data[:hp.width*hp.height]
	clear(data)
	stack = append(stack[:0], startX, startY, startI)
	dirs := [4]int{0, 1, 2, 3}
	cx, cy, ci := startX, startY, startI
	for len(stack) >= 3 {
		n := len(stack)
		cx, cy, ci = stack[n-3], stack[n-2], stack[n-1]
		stack = stack[:n-3]
		if cx == pcx && cy == pcy {
			break
		}

		// Try the direction towards the center first.
		var direct int
		switch {
		case pcx > cx:
			direct = 2
		case cx != pcx:
			direct = 0
		case pcy > cy:
			direct = 1
		default:
			direct = 3
		}
		dirs[direct], dirs[3] = dirs[3], dirs[direct]
		s := &chf.spans[ci]
		for _, dir := range dirs {
			if getCon(s, dir) == notConnected {
				continue
			}
			nx, ny := cx+dirOffsetX[dir], cy+dirOffsetY[dir]
			hx, hy := nx-hp.xmin, ny-hp.ymin
			if hx < 0 || hx >= hp.width || hy < 0 || hy >= hp.height {
				continue
			}
			if data[hx+hy*hp.width] != 0 {
				continue
			}
			data[hx+hy*hp.width] = 1
			stack = append(stack, nx, ny, chf.cells[(nx+bs)+(ny+bs)*chf.width].index+getCon(s, dir))
		}
		dirs[direct], dirs[3] = dirs[3], dirs[direct]
	}

	for i := range data {
		data[i] = unsetHeight
	}
	data[(cx-hp.xmin)+(cy-hp.ymin)*hp.width] = chf.spans[ci].y
	return append(stack[:0], cx+bs, cy+bs, ci), nil
}

// triangulateHull fans the hull starting from the original vertex ear with
// the shortest perimeter, advancing along the shorter side each step.
func triangulateHull(verts []float32, hull []int, nin int, tris []int) []int {
	nhull := len(hull)
	start, left, right := 0, 1, nhull-1
	dmin := float32(math.MaxFloat32)
	for i := 0; i < nhull; i++ {
		// Inserted edge vertices are not ears.
		if hull[i] >= nin {
			continue
		}
		pi, ni := prev(i, nhull), next(i, nhull)
		pv, cv, nv := verts[hull[pi]*3:], verts[hull[i]*3:], verts[hull[ni]*3:]
		if d := vdist2(pv, cv) + vdist2(cv, nv) + vdist2(nv, pv); d < dmin {
			start, left, right, dmin = i, ni, pi, d
		}
	}

	tris = append(tris, hull[start], hull[left], hull[right], 0)
	for next(left, nhull) != right {
		nleft, nright := next(left, nhull), prev(right, nhull)
		cvleft, nvleft := verts[hull[left]*3:], verts[hull[nleft]*3:]
		cvright, nvright := verts[hull[right]*3:], verts[hull[nright]*3:]
		dleft := vdist2(cvleft, nvleft) + vdist2(nvleft, cvright)
		dright := vdist2(cvright, nvright) + vdist2(cvleft, nvright)
		if dleft < dright {
			tris = append(tris, hull[left], hull[nleft], hull[right], 0)
			left = nleft
		} else {
			tris = append(tris, hull[left], hull[nright], hull[right], 0)
			right = nright
		}
	}
	return tris
}

// delaunay is an edge based Delaunay triangulation of points bounded by a
// hull. Each edge is (s, t, left face, right face).
type delaunay struct {
	pts      []float32
	npts     int
	edges    []int
	maxEdges int
	nfaces   int
}

func delaunayHull(pts []float32, hull []int, edges, tris []int) ([]int, []int) {
	dt := &delaunay{pts: pts, npts: len(pts) / 3, edges: edges[:0], maxEdges: len(pts) / 3 * 10}
	for i, j := 0, len(hull)-1; i < len(hull); j, i = i, i+1 {
		dt.addEdge(hull[j], hull[i], edgeHull, edgeUndef)
	}
	for e := 0; e < len(dt.edges)/4; e++ {
		if dt.edges[e*4+2] == edgeUndef {
			dt.completeFacet(e)
		}
		if dt.edges[e*4+3] == edgeUndef {
			dt.completeFacet(e)
		}
	}

	tris = tris[:0]
	for i := 0; i < dt.nfaces; i++ {
		tris = append(tris, -1, -1, -1, 0)
	}
	for i := 0; i < len(dt.edges)/4; i++ {
		e := dt.edges[i*4 : i*4+4]
		if e[3] >= 0 {
			t := tris[e[3]*4:]
			switch {
			case t[0] == -1:
				t[0], t[1] = e[0], e[1]
			case t[0] == e[1]:
				t[2] = e[0]
			case t[1] == e[0]:
				t[2] = e[1]
			}
		}
		if e[2] >= 0 {
			t := tris[e[2]*4:]
			switch {
			case t[0] == -1:
				t[0], t[1] = e[1], e[0]
			case t[0] == e[0]:
				t[2] = e[1]
			case t[1] == e[1]:
				t[2] = e[0]
			}
		}
	}

	// Drop dangling faces.
	for i := 0; i < len(tris)/4; {
		t := tris[i*4 : i*4+4]
		if t[0] == -1 || t[1] == -1 || t[2] == -1 {
			n := len(tris)
			copy(t, tris[n-4:])
			tris = tris[:n-4]
			continue
		}
		i++
	}
	return tris, dt.edges
}

func (dt *delaunay) completeFacet(e int) {
	const eps = 1e-5
	const tol = 0.001

	var s, t int
	switch edge := dt.edges[e*4 : e*4+4]; {
	case edge[2] == edgeUndef:
		s, t = edge[0], edge[1]
	case edge[3] == edgeUndef:
		s, t = edge[1], edge[0]
	default:
		return
	}

	pts := dt.pts
	pt := dt.npts
	var c [3]float32
	r := float32(-1)
	for u := 0; u < dt.npts; u++ {
		if u == s || u == t {
			continue
		}
		if vcross2(pts[s*3:], pts[t*3:], pts[u*3:]) <= eps {
			continue
		}
		if r >= 0 {
			d := vdist2(c[:], pts[u*3:])
			switch {
			case d > r*(1+tol):
				continue
			case d < r*(1-tol):
			default:
				// On the circle: only accept u if its edges cross nothing.
				if dt.overlapEdges(s, u) || dt.overlapEdges(t, u) {
					continue
				}
			}
		}
		pt = u
		c, r = circumCircle(pts[s*3:], pts[t*3:], pts[u*3:])
	}

	if pt == dt.npts {
		dt.updateLeftFace(e, s, t, edgeHull)
		return
	}
	dt.updateLeftFace(e, s, t, dt.nfaces)
	if f := dt.findEdge(pt, s); f == edgeUndef {
		dt.addEdge(pt, s, dt.nfaces, edgeUndef)
	} else {
		dt.updateLeftFace(f, pt, s, dt.nfaces)
	}
	if f := dt.findEdge(t, pt); f == edgeUndef {
		dt.addEdge(t, pt, dt.nfaces, edgeUndef)
	} else {
		dt.updateLeftFace(f, t, pt, dt.nfaces)
	}
	dt.nfaces++
}

func (dt *delaunay) addEdge(s, t, l, r int) {
	if len(dt.edges)/4 >= dt.maxEdges {
		return
	}
	if dt.findEdge(s, t) == edgeUndef {
		dt.edges = append(dt.edges, s, t, l, r)
	}
}

func (dt *delaunay) findEdge(s, t int) int {
	for i := 0; i < len(dt.edges)/4; i++ {
		e := dt.edges[i*4:]
		if (e[0] == s && e[1] == t) || (e[0] == t && e[1] == s) {
			return i
		}
	}
	return edgeUndef
}

func (dt *delaunay) updateLeftFace(e, s, t, f int) {
	edge := dt.edges[e*4 : e*4+4]
	if edge[0] == s && edge[1] == t && edge[2] == edgeUndef {
		edge[2] = f
	} else if edge[1] == s && edge[0] == t && edge[3] == edgeUndef {
		edge[3] = f
	}
}

func (dt *delaunay) overlapEdges(s1, t1 int) bool {
	for i := 0; i < len(dt.edges)/4; i++ {
		s0, t0 := dt.edges[i*4], dt.edges[i*4+1]
		if s0 == s1 || s0 == t1 || t0 == s1 || t0 == t1 {
			continue
		}
		if overlapSegSeg2d(dt.pts[s0*3:], dt.pts[t0*3:], dt.pts[s1*3:], dt.pts[t1*3:]) {
			return true
		}
	}
	return false
}

func overlapSegSeg2d(a, b, c, d []float32) bool {
	a1 := vcross2(a, b, d)
	a2 := vcross2(a, b, c)
	if a1*a2 < 0 {
		a3 := vcross2(c, d, a)
		a4 := a3 + a2 - a1
		return a3*a4 < 0
	}
	return false
}

// circumCircle returns the xz circumcircle of the triangle, computed
// relative to p1.
func circumCircle(p1, p2, p3 []float32) (c [3]float32, r float32) {
	const eps = 1e-6
	v2 := [3]float32{p2[0] - p1[0], p2[1] - p1[1], p2[2] - p1[2]}
	v3 := [3]float32{p3[0] - p1[0], p3[1] - p1[1], p3[2] - p1[2]}
	cp := v2[0]*v3[2] - v2[2]*v3[0]
	if absf(cp) <= eps {
		copy(c[:], p1[:3])
		return c, 0
	}
	v2Sq := v2[0]*v2[0] + v2[2]*v2[2]
	v3Sq := v3[0]*v3[0] + v3[2]*v3[2]
	c[0] = (v2Sq*v3[2] - v3Sq*v2[2]) / (2 * cp)
	c[2] = (v3Sq*v2[0] - v2Sq*v3[0]) / (2 * cp)
	r = float32(math.Sqrt(float64(c[0]*c[0] + c[2]*c[2])))
	c[0] += p1[0]
	c[1] = p1[1]
	c[2] += p1[2]
	return c, r
}

// triEdgeFlags marks the triangle edges lying on the polygon boundary, two
// bits per edge.
func triEdgeFlags(va, vb, vc, poly []float32) uint8 {
	return edgeFlag(va, vb, poly) | edgeFlag(vb, vc, poly)<<2 | edgeFlag(vc, va, poly)<<4
}

func edgeFlag(va, vb, poly []float32) uint8 {
	const thrSqr = 0.001 * 0.001
	n := len(poly) / 3
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if distPtSeg2d(va, poly[j*3:], poly[i*3:]) < thrSqr && distPtSeg2d(vb, poly[j*3:], poly[i*3:]) < thrSqr {
			return 1
		}
	}
	return 0
}

// polyMinExtent returns the smallest polygon width over all edges.
func polyMinExtent(verts []float32) float32 {
	n := len(verts) / 3
	minDist := float32(math.MaxFloat32)
	for i := 0; i < n; i++ {
		ni := next(i, n)
		maxEdgeDist := float32(0)
		for j := 0; j < n; j++ {
			if j == i || j == ni {
				continue
			}
			maxEdgeDist = max(maxEdgeDist, distPtSeg2d(verts[j*3:], verts[i*3:], verts[ni*3:]))
		}
		minDist = min(minDist, maxEdgeDist)
	}
	return float32(math.Sqrt(float64(minDist)))
}

// distToPoly returns the squared xz distance from p to the polygon outline,
// negative when p is inside.
func distToPoly(poly, p []float32) float32 {
	n := len(poly) / 3
	dmin := float32(math.MaxFloat32)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := poly[i*3:], poly[j*3:]
		if (vi[2] > p[2]) != (vj[2] > p[2]) && p[0] < (vj[0]-vi[0])*(p[2]-vi[2])/(vj[2]-vi[2])+vi[0] {
			inside = !inside
		}
		dmin = min(dmin, distPtSeg2d(p, vj, vi))
	}
	if inside {
		return -dmin
	}
	return dmin
}

// distToTriMesh returns the vertical distance from p to the triangles under
// it, or -1 when no triangle covers p.
func distToTriMesh(p, verts []float32, tris []int) float32 {
	dmin := float32(math.MaxFloat32)
	for i := 0; i+2 < len(tris); i += 4 {
		d := distPtTri(p, verts[tris[i]*3:], verts[tris[i+1]*3:], verts[tris[i+2]*3:])
		dmin = min(dmin, d)
	}
	if dmin == math.MaxFloat32 {
		return -1
	}
	return dmin
}

func distPtTri(p, a, b, c []float32) float32 {
	v0 := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	v1 := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	v2 := [3]float32{p[0] - a[0], p[1] - a[1], p[2] - a[2]}
	dot00 := v0[0]*v0[0] + v0[2]*v0[2]
	dot01 := v0[0]*v1[0] + v0[2]*v1[2]
	dot02 := v0[0]*v2[0] + v0[2]*v2[2]
	dot11 := v1[0]*v1[0] + v1[2]*v1[2]
	dot12 := v1[0]*v2[0] + v1[2]*v2[2]

	invDenom := 1 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	const eps = 1e-4
	if u >= -eps && v >= -eps && u+v <= 1+eps {
		y := a[1] + v0[1]*u + v1[1]*v
		return absf(y - p[1])
	}
	return math.MaxFloat32
}

// distPtSeg returns the squared distance from pt to segment pq.
func distPtSeg(pt, p, q []float32) float32 {
	pqx, pqy, pqz := q[0]-p[0], q[1]-p[1], q[2]-p[2]
	dx, dy, dz := pt[0]-p[0], pt[1]-p[1], pt[2]-p[2]
	d := pqx*pqx + pqy*pqy + pqz*pqz
	t := pqx*dx + pqy*dy + pqz*dz
	if d > 0 {
		t /= d
	}
	t = min(max(t, 0), 1)
	dx = p[0] + t*pqx - pt[0]
	dy = p[1] + t*pqy - pt[1]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dy*dy + dz*dz
}

// distPtSeg2d returns the squared xz distance from pt to segment pq.
func distPtSeg2d(pt, p, q []float32) float32 {
	pqx, pqz := q[0]-p[0], q[2]-p[2]
	dx, dz := pt[0]-p[0], pt[2]-p[2]
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = min(max(t, 0), 1)
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz
}

func vcross2(p1, p2, p3 []float32) float32 {
	u1, v1 := p2[0]-p1[0], p2[2]-p1[2]
	u2, v2 := p3[0]-p1[0], p3[2]-p1[2]
	return u1*v2 - v1*u2
}

func vdist2(a, b []float32) float32 {
	dx, dz := b[0]-a[0], b[2]-a[2]
	return float32(math.Sqrt(float64(dx*dx + dz*dz)))
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func jitterX(i int) float32 {
	return float32((uint32(i)*0x8da6b343)&0xffff)/65535*2 - 1
}

func jitterY(i int) float32 {
	return float32((uint32(i)*0xd8163841)&0xffff)/65535*2 - 1
}
