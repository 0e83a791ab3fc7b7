package recast

import (
	"fmt"
	"sort"
)

// Contour is the simplified outline of one region. Vertices are stored as
// (x, y, z, flags) in cell units; flags carry the neighbour region id.
type Contour struct {
	verts  []int
	nverts int
	rverts []int
	reg    int
	area   uint8
}

// ContourSet holds the contours of every region.
type ContourSet struct {
	conts      []*Contour
	bmin       [3]float32
	bmax       [3]float32
	cs         float32
	ch         float32
	width      int
	height     int
	borderSize int
	maxError   float32
}

// Len returns the number of contours.
func (cset *ContourSet) Len() int { return len(cset.conts) }

type contourHole struct {
	contour  *Contour
	minx     int
	minz     int
	leftmost int
}

type contourRegion struct {
	outline *Contour
	holes   []contourHole
}

type potentialDiagonal struct {
	vert int
	dist int
}

// BuildContours traces and simplifies the boundary of every region. Holes are
// merged into the outline of their region.
func BuildContours(chf *CompactHeightfield, maxError float32, maxEdgeLen int, buildFlags int) (*ContourSet, error) {
	w, h := chf.width, chf.height
	borderSize := chf.borderSize

	cset := &ContourSet{
		bmin:       chf.bmin,
		bmax:       chf.bmax,
		cs:         chf.cs,
		ch:         chf.ch,
		width:      chf.width - borderSize*2,
		height:     chf.height - borderSize*2,
		borderSize: borderSize,
		maxError:   maxError,
	}
	if borderSize > 0 {
		pad := float32(borderSize) * chf.cs
		cset.bmin[0] += pad
		cset.bmin[2] += pad
		cset.bmax[0] -= pad
		cset.bmax[2] -= pad
	}

	// Mark the edges of each span that face another region.
	flags := make([]int, chf.spanCount)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				if s.reg == 0 || s.reg&borderReg != 0 {
					flags[i] = 0
					continue
				}
				res := 0
				for dir := 0; dir < 4; dir++ {
					r := 0
					if getCon(s, dir) != notConnected {
						_, _, ai := chf.neighbour(x, y, s, dir)
						r = chf.spans[ai].reg
					}
					if r == s.reg {
						res |= 1 << uint(dir)
					}
				}
				flags[i] = res ^ 0xf
			}
		}
	}

	var verts, simplified []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				if flags[i] == 0 || flags[i] == 0xf {
					flags[i] = 0
					continue
				}
				reg := chf.spans[i].reg
				if reg == 0 || reg&borderReg != 0 {
					continue
				}
				area := chf.areas[i]

				verts = traceContour(x, y, i, chf, flags, verts[:0])
				simplified = simplifyContour(verts, simplified[:0], maxError, maxEdgeLen, buildFlags)
				simplified = removeDegenerateSegments(simplified)

				if len(simplified)/4 < 3 {
					continue
				}
				cont := &Contour{
					verts:  append([]int(nil), simplified...),
					nverts: len(simplified) / 4,
					rverts: append([]int(nil), verts...),
					reg:    reg,
					area:   area,
				}
				if borderSize > 0 {
					for j := 0; j < cont.nverts; j++ {
						cont.verts[j*4] -= borderSize
						cont.verts[j*4+2] -= borderSize
					}
					for j := 0; j < len(cont.rverts)/4; j++ {
						cont.rverts[j*4] -= borderSize
						cont.rverts[j*4+2] -= borderSize
					}
				}
				cset.conts = append(cset.conts, cont)
			}
		}
	}

	if err := mergeHoles(cset, chf.maxRegions); err != nil {
		return nil, err
	}
	return cset, nil
}

// mergeHoles attaches backwards-wound contours to the outline of their region.
func mergeHoles(cset *ContourSet, maxRegions int) error {
	if len(cset.conts) == 0 {
		return nil
	}

	winding := make([]int, len(cset.conts))
	nholes := 0
	for i, cont := range cset.conts {
		winding[i] = 1
		if calcAreaOfPolygon2D(cont.verts, cont.nverts) < 0 {
			winding[i] = -1
			nholes++
		}
	}
	if nholes == 0 {
		return nil
	}

	regions := make([]contourRegion, maxRegions+1)
	for i, cont := range cset.conts {
		if cont.reg >= len(regions) {
			return fmt.Errorf("%w: region %d out of range", ErrBadContour, cont.reg)
		}
		reg := &regions[cont.reg]
		if winding[i] > 0 {
			if reg.outline != nil {
				return fmt.Errorf("%w: multiple outlines for region %d", ErrBadContour, cont.reg)
			}
			reg.outline = cont
		} else {
			reg.holes = append(reg.holes, contourHole{contour: cont})
		}
	}

	for i := range regions {
		reg := &regions[i]
		if len(reg.holes) == 0 {
			continue
		}
		if reg.outline == nil {
			return fmt.Errorf("%w: region %d has holes but no outline, simplification is likely too aggressive", ErrBadContour, i)
		}
		mergeRegionHoles(reg)
	}
	return nil
}

func traceContour(x, y, i int, chf *CompactHeightfield, flags []int, points []int) []int {
	dir := 0
	for flags[i]&(1<<uint(dir)) == 0 {
		dir++
	}
	startDir, starti := dir, i
	area := chf.areas[i]

	for iter := 1; iter < maxContourWalk; iter++ {
		if flags[i]&(1<<uint(dir)) != 0 {
			py, isBorderVertex := getCornerHeight(x, y, i, dir, chf)
			px, pz := x, y
			switch dir {
			case 0:
				pz++
			case 1:
				px++
				pz++
			case 2:
				px++
			}

			r := 0
			isAreaBorder := false
			s := &chf.spans[i]
			if getCon(s, dir) != notConnected {
				_, _, ai := chf.neighbour(x, y, s, dir)
				r = chf.spans[ai].reg
				if area != chf.areas[ai] {
					isAreaBorder = true
				}
			}
			if isBorderVertex {
				r |= borderVertex
			}
			if isAreaBorder {
				r |= areaBorder
			}
			points = append(points, px, py, pz, r)

			flags[i] &^= 1 << uint(dir) // Remove visited edges
			dir = (dir + 1) & 0x3       // Rotate CW
		} else {
			s := &chf.spans[i]
			if getCon(s, dir) == notConnected {
				return points
			}
			nx, ny, ni := chf.neighbour(x, y, s, dir)
			x, y, i = nx, ny, ni
			dir = (dir + 3) & 0x3 // Rotate CCW
		}
		if starti == i && startDir == dir {
			break
		}
	}
	return points
}

// getCornerHeight returns the corner height of a span edge and whether the
// corner is a tile border vertex that should be removed later.
func getCornerHeight(x, y, i, dir int, chf *CompactHeightfield) (int, bool) {
	s := &chf.spans[i]
	ch := s.y
	dirp := (dir + 1) & 0x3

	// Combine region and area codes so border vertices between areas survive.
	var regs [4]int
	regs[0] = s.reg | int(chf.areas[i])<<16

	if getCon(s, dir) != notConnected {
		ax, ay, ai := chf.neighbour(x, y, s, dir)
		as := &chf.spans[ai]
		ch = max(ch, as.y)
		regs[1] = as.reg | int(chf.areas[ai])<<16
		if getCon(as, dirp) != notConnected {
			_, _, ai2 := chf.neighbour(ax, ay, as, dirp)
			as2 := &chf.spans[ai2]
			ch = max(ch, as2.y)
			regs[2] = as2.reg | int(chf.areas[ai2])<<16
		}
	}
	if getCon(s, dirp) != notConnected {
		ax, ay, ai := chf.neighbour(x, y, s, dirp)
		as := &chf.spans[ai]
		ch = max(ch, as.y)
		regs[3] = as.reg | int(chf.areas[ai])<<16
		if getCon(as, dir) != notConnected {
			_, _, ai2 := chf.neighbour(ax, ay, as, dir)
			as2 := &chf.spans[ai2]
			ch = max(ch, as2.y)
			regs[2] = as2.reg | int(chf.areas[ai2])<<16
		}
	}

	for j := 0; j < 4; j++ {
		a := j
		b := (j + 1) & 0x3
		c := (j + 2) & 0x3
		d := (j + 3) & 0x3

		// Two same exterior cells in a row followed by two interior cells.
		twoSameExts := regs[a]&regs[b]&borderReg != 0 && regs[a] == regs[b]
		twoInts := (regs[c]|regs[d])&borderReg == 0
		intsSameArea := regs[c]>>16 == regs[d]>>16
		noZeros := regs[a] != 0 && regs[b] != 0 && regs[c] != 0 && regs[d] != 0
		if twoSameExts && twoInts && intsSameArea && noZeros {
			return ch, true
		}
	}
	return ch, false
}

func simplifyContour(points, simplified []int, maxError float32, maxEdgeLen, buildFlags int) []int {
	hasConnections := false
	for i := 0; i < len(points); i += 4 {
		if points[i+3]&contourRegMask != 0 {
			hasConnections = true
			break
		}
	}

	pn := len(points) / 4
	if hasConnections {
		// Add a point wherever the neighbour region or area changes.
		for i := 0; i < pn; i++ {
			ii := (i + 1) % pn
			differentRegs := points[i*4+3]&contourRegMask != points[ii*4+3]&contourRegMask
			areaBorders := points[i*4+3]&areaBorder != points[ii*4+3]&areaBorder
			if differentRegs || areaBorders {
				simplified = append(simplified, points[i*4], points[i*4+1], points[i*4+2], i)
			}
		}
	}

	if len(simplified) == 0 {
		// Seed with the lower-left and upper-right vertices.
		llx, lly, llz, lli := points[0], points[1], points[2], 0
		urx, ury, urz, uri := points[0], points[1], points[2], 0
		for i := 0; i < len(points); i += 4 {
			x, y, z := points[i], points[i+1], points[i+2]
			if x < llx || (x == llx && z < llz) {
				llx, lly, llz, lli = x, y, z, i/4
			}
			if x > urx || (x == urx && z > urz) {
				urx, ury, urz, uri = x, y, z, i/4
			}
		}
		simplified = append(simplified, llx, lly, llz, lli, urx, ury, urz, uri)
	}

	// Add points until every raw point is within maxError of the outline.
	for i := 0; i < len(simplified)/4; {
		ii := (i + 1) % (len(simplified) / 4)

		ax, az, ai := simplified[i*4], simplified[i*4+2], simplified[i*4+3]
		bx, bz, bi := simplified[ii*4], simplified[ii*4+2], simplified[ii*4+3]

		maxd := float32(0)
		maxi := -1
		var ci, cinc, endi int

		// Traverse in lexicographic order so opposite segments agree.
		if bx > ax || (bx == ax && bz > az) {
			cinc = 1
			ci = (ai + cinc) % pn
			endi = bi
		} else {
			cinc = pn - 1
			ci = (bi + cinc) % pn
			endi = ai
			ax, bx = bx, ax
			az, bz = bz, az
		}

		// Tessellate only outer edges or edges between areas.
		if points[ci*4+3]&contourRegMask == 0 || points[ci*4+3]&areaBorder != 0 {
			for ci != endi {
				d := distancePtSeg(points[ci*4], points[ci*4+2], ax, az, bx, bz)
				if d > maxd {
					maxd = d
					maxi = ci
				}
				ci = (ci + cinc) % pn
			}
		}

		if maxi != -1 && maxd > maxError*maxError {
			simplified = insertVertex(simplified, i+1, points[maxi*4], points[maxi*4+1], points[maxi*4+2], maxi)
		} else {
			i++
		}
	}

	// Split too long edges.
	if maxEdgeLen > 0 && buildFlags&(ContourTessWallEdges|ContourTessAreaEdges) != 0 {
		for i := 0; i < len(simplified)/4; {
			ii := (i + 1) % (len(simplified) / 4)

			ax, az, ai := simplified[i*4], simplified[i*4+2], simplified[i*4+3]
			bx, bz, bi := simplified[ii*4], simplified[ii*4+2], simplified[ii*4+3]

			maxi := -1
			ci := (ai + 1) % pn

			tess := false
			if buildFlags&ContourTessWallEdges != 0 && points[ci*4+3]&contourRegMask == 0 {
				tess = true
			}
			if buildFlags&ContourTessAreaEdges != 0 && points[ci*4+3]&areaBorder != 0 {
				tess = true
			}

			if tess {
				dx := bx - ax
				dz := bz - az
				if dx*dx+dz*dz > maxEdgeLen*maxEdgeLen {
					n := bi - ai
					if bi < ai {
						n = bi + pn - ai
					}
					if n > 1 {
						if bx > ax || (bx == ax && bz > az) {
							maxi = (ai + n/2) % pn
						} else {
							maxi = (ai + (n+1)/2) % pn
						}
					}
				}
			}

			if maxi != -1 {
				simplified = insertVertex(simplified, i+1, points[maxi*4], points[maxi*4+1], points[maxi*4+2], maxi)
			} else {
				i++
			}
		}
	}

	for i := 0; i < len(simplified)/4; i++ {
		// The edge vertex flag comes from the current raw point and the
		// neighbour region from the next one.
		ai := (simplified[i*4+3] + 1) % pn
		bi := simplified[i*4+3]
		simplified[i*4+3] = points[ai*4+3]&(contourRegMask|areaBorder) | points[bi*4+3]&borderVertex
	}
	return simplified
}

func insertVertex(s []int, at int, x, y, z, idx int) []int {
	s = append(s, 0, 0, 0, 0)
	copy(s[(at+1)*4:], s[at*4:len(s)-4])
	s[at*4], s[at*4+1], s[at*4+2], s[at*4+3] = x, y, z, idx
	return s
}

func distancePtSeg(x, z, px, pz, qx, qz int) float32 {
	pqx := float32(qx - px)
	pqz := float32(qz - pz)
	dx := float32(x - px)
	dz := float32(z - pz)
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = max(0, min(t, 1))
	dx = float32(px) + t*pqx - float32(x)
	dz = float32(pz) + t*pqz - float32(z)
	return dx*dx + dz*dz
}

// removeDegenerateSegments drops adjacent vertices that are equal on the xz
// plane.
func removeDegenerateSegments(simplified []int) []int {
	npts := len(simplified) / 4
	for i := 0; i < npts; i++ {
		ni := next(i, npts)
		if simplified[i*4] == simplified[ni*4] && simplified[i*4+2] == simplified[ni*4+2] {
			simplified = append(simplified[:i*4], simplified[i*4+4:]...)
			npts--
		}
	}
	return simplified
}

func calcAreaOfPolygon2D(verts []int, nverts int) int {
	area := 0
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := verts[i*4:]
		vj := verts[j*4:]
		area += vi[0]*vj[2] - vj[0]*vi[2]
	}
	return (area + 1) / 2
}

func mergeRegionHoles(reg *contourRegion) {
	for i := range reg.holes {
		h := &reg.holes[i]
		h.minx, h.minz, h.leftmost = findLeftMostVertex(h.contour)
	}
	sort.SliceStable(reg.holes, func(a, b int) bool {
		ha, hb := reg.holes[a], reg.holes[b]
		if ha.minx == hb.minx {
			return ha.minz < hb.minz
		}
		return ha.minx < hb.minx
	})

	maxVerts := reg.outline.nverts
	for _, h := range reg.holes {
		maxVerts += h.contour.nverts
	}
	diags := make([]potentialDiagonal, 0, maxVerts)

	outline := reg.outline
	for i := range reg.holes {
		hole := reg.holes[i].contour
		index := -1
		bestVertex := reg.holes[i].leftmost

		for iter := 0; iter < hole.nverts; iter++ {
			// The best vertex must lie in the cone of three consecutive
			// outline vertices.
			diags = diags[:0]
			corner := hole.verts[bestVertex*4 : bestVertex*4+4]
			for j := 0; j < outline.nverts; j++ {
				if inConeContour(j, outline.nverts, outline.verts, corner) {
					dx := outline.verts[j*4] - corner[0]
					dz := outline.verts[j*4+2] - corner[2]
					diags = append(diags, potentialDiagonal{vert: j, dist: dx*dx + dz*dz})
				}
			}
			// Prefer the shortest connection.
			sort.SliceStable(diags, func(a, b int) bool { return diags[a].dist < diags[b].dist })

			index = -1
			for _, dg := range diags {
				pt := outline.verts[dg.vert*4 : dg.vert*4+4]
				intersect := intersectSegContour(pt, corner, dg.vert, outline.nverts, outline.verts)
				for k := i; k < len(reg.holes) && !intersect; k++ {
					hc := reg.holes[k].contour
					intersect = intersectSegContour(pt, corner, -1, hc.nverts, hc.verts)
				}
				if !intersect {
					index = dg.vert
					break
				}
			}
			if index != -1 {
				break
			}
			bestVertex = (bestVertex + 1) % hole.nverts
		}

		if index == -1 {
			// No diagonal found; leave this hole unmerged.
			continue
		}
		mergeContours(outline, hole, index, bestVertex)
	}
}

func findLeftMostVertex(c *Contour) (minx, minz, leftmost int) {
	minx, minz = c.verts[0], c.verts[2]
	for i := 1; i < c.nverts; i++ {
		x, z := c.verts[i*4], c.verts[i*4+2]
		if x < minx || (x == minx && z < minz) {
			minx, minz, leftmost = x, z, i
		}
	}
	return minx, minz, leftmost
}

// intersectSegContour reports whether segment d0-d1 crosses any edge of the
// contour, skipping the edges incident to vertex skip.
func intersectSegContour(d0, d1 []int, skip, n int, verts []int) bool {
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		if skip == k || skip == k1 {
			continue
		}
		p0 := verts[k*4 : k*4+4]
		p1 := verts[k1*4 : k1*4+4]
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if intersect(d0, d1, p0, p1) {
			return true
		}
	}
	return false
}

func inConeContour(i, n int, verts []int, pj []int) bool {
	pi := verts[i*4 : i*4+4]
	pi1 := verts[next(i, n)*4 : next(i, n)*4+4]
	pin1 := verts[prev(i, n)*4 : prev(i, n)*4+4]

	// If P[i] is a convex vertex [ i+1 left or on (i-1,i) ].
	if leftOn(pin1, pi, pi1) {
		return left(pi, pj, pin1) && left(pj, pi, pi1)
	}
	// else P[i] is reflex.
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

func mergeContours(ca, cb *Contour, ia, ib int) {
	verts := make([]int, 0, (ca.nverts+cb.nverts+2)*4)
	for i := 0; i <= ca.nverts; i++ {
		src := ((ia + i) % ca.nverts) * 4
		verts = append(verts, ca.verts[src:src+4]...)
	}
	for i := 0; i <= cb.nverts; i++ {
		src := ((ib + i) % cb.nverts) * 4
		verts = append(verts, cb.verts[src:src+4]...)
	}
	ca.verts = verts
	ca.nverts = len(verts) / 4
	cb.verts = nil
	cb.nverts = 0
}
