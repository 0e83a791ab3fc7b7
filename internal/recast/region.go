package recast

type region struct {
	spanCount   int
	id          int
	areaType    uint8
	remap       bool
	visited     bool
	overlap     bool
	connections []int
	floors      []int
}

// BuildDistanceField computes each span's distance to the nearest area
// boundary, then smooths it with a box blur.
func BuildDistanceField(chf *CompactHeightfield) {
	src := make([]int, chf.spanCount)
	chf.maxDistance = calculateDistanceField(chf, src)
	chf.dist = boxBlur(chf, 1, src)
}

func calculateDistanceField(chf *CompactHeightfield, src []int) int {
	w, h := chf.width, chf.height
	for i := range src {
		src[i] = 0xffff
	}

	// Spans missing a same-area neighbour are on the boundary.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				area := chf.areas[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if getCon(s, dir) == notConnected {
						continue
					}
					_, _, ai := chf.neighbour(x, y, s, dir)
					if area == chf.areas[ai] {
						nc++
					}
				}
				if nc != 4 {
					src[i] = 0
				}
			}
		}
	}

	chamferDistance(chf, func(i, j, cost int) {
		if src[j]+cost < src[i] {
			src[i] = src[j] + cost
		}
	})

	maxDist := 0
	for _, d := range src {
		maxDist = max(maxDist, d)
	}
	return maxDist
}

func boxBlur(chf *CompactHeightfield, thr int, src []int) []int {
	w, h := chf.width, chf.height
	dst := make([]int, chf.spanCount)
	thr *= 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				cd := src[i]
				if cd <= thr {
					dst[i] = cd
					continue
				}
				d := cd
				for dir := 0; dir < 4; dir++ {
					if getCon(s, dir) == notConnected {
						d += cd * 2
						continue
					}
					ax, ay, ai := chf.neighbour(x, y, s, dir)
					d += src[ai]
					as := &chf.spans[ai]
					dir2 := (dir + 1) & 0x3
					if getCon(as, dir2) != notConnected {
						_, _, ai2 := chf.neighbour(ax, ay, as, dir2)
						d += src[ai2]
					} else {
						d += cd
					}
				}
				dst[i] = (d + 5) / 9
			}
		}
	}
	return dst
}

// BuildRegions partitions the walkable surface into watershed regions.
// Regions smaller than minRegionArea spans are removed and regions smaller
// than mergeRegionArea are merged into a neighbour where possible.
func BuildRegions(chf *CompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) {
	w, h := chf.width, chf.height

	lvlStacks := make([][]int, nbStacks)
	var stack []int
	srcReg := make([]int, chf.spanCount)
	srcDist := make([]int, chf.spanCount)

	regionID := 1
	level := (chf.maxDistance + 1) &^ 1
	const expandIters = 8

	if borderSize > 0 {
		bw := min(w, borderSize)
		bh := min(h, borderSize)
		paintRectRegion(0, bw, 0, h, regionID|borderReg, chf, srcReg)
		regionID++
		paintRectRegion(w-bw, w, 0, h, regionID|borderReg, chf, srcReg)
		regionID++
		paintRectRegion(0, w, 0, bh, regionID|borderReg, chf, srcReg)
		regionID++
		paintRectRegion(0, w, h-bh, h, regionID|borderReg, chf, srcReg)
		regionID++
	}
	chf.borderSize = borderSize

	sID := -1
	for level > 0 {
		level = max(level-2, 0)
		sID = (sID + 1) & (nbStacks - 1)

		if sID == 0 {
			sortCellsByLevel(level, chf, srcReg, lvlStacks, 1)
		} else {
			lvlStacks[sID] = appendStacks(lvlStacks[sID-1], lvlStacks[sID], srcReg)
		}

		expandRegions(expandIters, level, chf, srcReg, srcDist, &lvlStacks[sID], false)

		// Mark new regions with ids.
		cur := lvlStacks[sID]
		for j := 0; j < len(cur); j += 3 {
			x, y, i := cur[j], cur[j+1], cur[j+2]
			if i >= 0 && srcReg[i] == 0 {
				if floodRegion(x, y, i, level, regionID, chf, srcReg, srcDist, &stack) {
					regionID++
				}
			}
		}
	}

	// Expand into any cells still left without a region.
	expandRegions(expandIters*8, 0, chf, srcReg, srcDist, &stack, true)

	chf.maxRegions = mergeAndFilterRegions(minRegionArea, mergeRegionArea, regionID, chf, srcReg)

	for i := 0; i < chf.spanCount; i++ {
		chf.spans[i].reg = srcReg[i]
	}
}

func paintRectRegion(minx, maxx, miny, maxy, regID int, chf *CompactHeightfield, srcReg []int) {
	for y := miny; y < maxy; y++ {
		for x := minx; x < maxx; x++ {
			c := &chf.cells[x+y*chf.width]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] != NullArea {
					srcReg[i] = regID
				}
			}
		}
	}
}

func sortCellsByLevel(startLevel int, chf *CompactHeightfield, srcReg []int, stacks [][]int, logLevelsPerStack uint) {
	w, h := chf.width, chf.height
	startLevel >>= logLevelsPerStack
	for j := range stacks {
		stacks[j] = stacks[j][:0]
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] == NullArea || srcReg[i] != 0 {
					continue
				}
				level := chf.dist[i] >> logLevelsPerStack
				sID := startLevel - level
				if sID >= len(stacks) {
					continue
				}
				sID = max(sID, 0)
				stacks[sID] = append(stacks[sID], x, y, i)
			}
		}
	}
}

func appendStacks(src, dst []int, srcReg []int) []int {
	for j := 0; j < len(src); j += 3 {
		i := src[j+2]
		if i < 0 || srcReg[i] != 0 {
			continue
		}
		dst = append(dst, src[j], src[j+1], src[j+2])
	}
	return dst
}

// expandRegions grows existing regions into unassigned cells of the stack,
// updating srcReg and srcDist in place.
func expandRegions(maxIter, level int, chf *CompactHeightfield, srcReg, srcDist []int, stack *[]int, fillStack bool) {
	w, h := chf.width, chf.height

	if fillStack {
		*stack = (*stack)[:0]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := &chf.cells[x+y*w]
				for i := c.index; i < c.index+c.count; i++ {
					if chf.dist[i] >= level && srcReg[i] == 0 && chf.areas[i] != NullArea {
						*stack = append(*stack, x, y, i)
					}
				}
			}
		}
	} else {
		for j := 0; j < len(*stack); j += 3 {
			if i := (*stack)[j+2]; i >= 0 && srcReg[i] != 0 {
				(*stack)[j+2] = -1
			}
		}
	}

	var dirty []int
	iter := 0
	for len(*stack) > 0 {
		failed := 0
		dirty = dirty[:0]

		st := *stack
		for j := 0; j < len(st); j += 3 {
			x, y, i := st[j], st[j+1], st[j+2]
			if i < 0 {
				failed++
				continue
			}

			r := srcReg[i]
			d2 := 0xffff
			area := chf.areas[i]
			s := &chf.spans[i]
			for dir := 0; dir < 4; dir++ {
				if getCon(s, dir) == notConnected {
					continue
				}
				_, _, ai := chf.neighbour(x, y, s, dir)
				if chf.areas[ai] != area {
					continue
				}
				if srcReg[ai] > 0 && srcReg[ai]&borderReg == 0 && srcDist[ai]+2 < d2 {
					r = srcReg[ai]
					d2 = srcDist[ai] + 2
				}
			}
			if r != 0 {
				st[j+2] = -1
				dirty = append(dirty, i, r, d2)
			} else {
				failed++
			}
		}

		for k := 0; k < len(dirty); k += 3 {
			srcReg[dirty[k]] = dirty[k+1]
			srcDist[dirty[k]] = dirty[k+2]
		}

		if failed*3 == len(st) {
			break
		}
		if level > 0 {
			iter++
			if iter >= maxIter {
				break
			}
		}
	}
}

func floodRegion(x, y, i, level, r int, chf *CompactHeightfield, srcReg, srcDist []int, stack *[]int) bool {
	w := chf.width
	area := chf.areas[i]

	*stack = append((*stack)[:0], x, y, i)
	srcReg[i] = r
	srcDist[i] = 0

	lev := max(level-2, 0)
	count := 0

	for len(*stack) > 0 {
		st := *stack
		n := len(st)
		cx, cy, ci := st[n-3], st[n-2], st[n-1]
		*stack = st[:n-3]

		cs := &chf.spans[ci]

		// Stop if any 8-neighbour already belongs to another region.
		ar := 0
		for dir := 0; dir < 4 && ar == 0; dir++ {
			if getCon(cs, dir) == notConnected {
				continue
			}
			ax, ay, ai := chf.neighbour(cx, cy, cs, dir)
			if chf.areas[ai] != area {
				continue
			}
			nr := srcReg[ai]
			if nr&borderReg != 0 {
				continue
			}
			if nr != 0 && nr != r {
				ar = nr
				break
			}
			as := &chf.spans[ai]
			dir2 := (dir + 1) & 0x3
			if getCon(as, dir2) != notConnected {
				_, _, ai2 := chf.neighbour(ax, ay, as, dir2)
				if chf.areas[ai2] != area {
					continue
				}
				if nr2 := srcReg[ai2]; nr2 != 0 && nr2 != r {
					ar = nr2
				}
			}
		}
		if ar != 0 {
			srcReg[ci] = 0
			continue
		}

		count++

		for dir := 0; dir < 4; dir++ {
			if getCon(cs, dir) == notConnected {
				continue
			}
			ax := cx + dirOffsetX[dir]
			ay := cy + dirOffsetY[dir]
			ai := chf.cells[ax+ay*w].index + getCon(cs, dir)
			if chf.areas[ai] != area {
				continue
			}
			if chf.dist[ai] >= lev && srcReg[ai] == 0 {
				srcReg[ai] = r
				srcDist[ai] = 0
				*stack = append(*stack, ax, ay, ai)
			}
		}
	}
	return count > 0
}

func mergeAndFilterRegions(minRegionArea, mergeRegionSize, maxRegionID int, chf *CompactHeightfield, srcReg []int) int {
	w, h := chf.width, chf.height
	nreg := maxRegionID + 1
	regions := make([]*region, nreg)
	for i := range regions {
		regions[i] = &region{id: i}
	}

	// Find region edges and walk their contours to collect connections.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				r := srcReg[i]
				if r == 0 || r >= nreg {
					continue
				}
				reg := regions[r]
				reg.spanCount++

				// Spans stacked in the same column are floors of each other.
				for j := c.index; j < c.index+c.count; j++ {
					if i == j {
						continue
					}
					floorID := srcReg[j]
					if floorID == 0 || floorID >= nreg {
						continue
					}
					if floorID == r {
						reg.overlap = true
					}
					reg.addUniqueFloor(floorID)
				}

				if len(reg.connections) > 0 {
					continue
				}
				reg.areaType = chf.areas[i]

				ndir := -1
				for dir := 0; dir < 4; dir++ {
					if isSolidEdge(chf, srcReg, x, y, i, dir) {
						ndir = dir
						break
					}
				}
				if ndir != -1 {
					reg.connections = walkRegionContour(x, y, i, ndir, chf, srcReg, reg.connections)
				}
			}
		}
	}

	// Remove too small regions, counting connected regions together.
	var stack, trace []int
	for i := 0; i < nreg; i++ {
		reg := regions[i]
		if reg.id == 0 || reg.id&borderReg != 0 || reg.spanCount == 0 || reg.visited {
			continue
		}

		connectsToBorder := false
		spanCount := 0
		stack = append(stack[:0], i)
		trace = trace[:0]
		reg.visited = true

		for len(stack) > 0 {
			ri := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			creg := regions[ri]
			spanCount += creg.spanCount
			trace = append(trace, ri)

			for _, conn := range creg.connections {
				if conn&borderReg != 0 {
					connectsToBorder = true
					continue
				}
				nei := regions[conn]
				if nei.visited || nei.id == 0 || nei.id&borderReg != 0 {
					continue
				}
				stack = append(stack, nei.id)
				nei.visited = true
			}
		}

		// Regions touching a tile border cannot be sized reliably.
		if spanCount < minRegionArea && !connectsToBorder {
			for _, t := range trace {
				regions[t].spanCount = 0
				regions[t].id = 0
			}
		}
	}

	// Merge too small regions into neighbours.
	for mergeCount := 1; mergeCount > 0; {
		mergeCount = 0
		for i := 0; i < nreg; i++ {
			reg := regions[i]
			if reg.id == 0 || reg.id&borderReg != 0 || reg.overlap || reg.spanCount == 0 {
				continue
			}
			if reg.spanCount > mergeRegionSize && reg.connectedToBorder() {
				continue
			}

			smallest := 0xfffffff
			mergeID := reg.id
			for _, conn := range reg.connections {
				if conn&borderReg != 0 {
					continue
				}
				mreg := regions[conn]
				if mreg.id == 0 || mreg.id&borderReg != 0 || mreg.overlap {
					continue
				}
				if mreg.spanCount < smallest && reg.canMergeWith(mreg) && mreg.canMergeWith(reg) {
					smallest = mreg.spanCount
					mergeID = mreg.id
				}
			}

			if mergeID == reg.id {
				continue
			}
			oldID := reg.id
			target := regions[mergeID]
			if !target.merge(reg) {
				continue
			}
			for _, other := range regions {
				if other.id == 0 || other.id&borderReg != 0 {
					continue
				}
				if other.id == oldID {
					other.id = mergeID
				}
				other.replaceNeighbour(oldID, mergeID)
			}
			mergeCount++
		}
	}

	// Compress region ids.
	for _, reg := range regions {
		reg.remap = reg.id != 0 && reg.id&borderReg == 0
	}
	regIDGen := 0
	for i := 0; i < nreg; i++ {
		if !regions[i].remap {
			continue
		}
		oldID := regions[i].id
		regIDGen++
		for j := i; j < nreg; j++ {
			if regions[j].id == oldID {
				regions[j].id = regIDGen
				regions[j].remap = false
			}
		}
	}

	for i := 0; i < chf.spanCount; i++ {
		if srcReg[i]&borderReg == 0 {
			srcReg[i] = regions[srcReg[i]].id
		}
	}
	return regIDGen
}

func (reg *region) addUniqueFloor(n int) {
	for _, f := range reg.floors {
		if f == n {
			return
		}
	}
	reg.floors = append(reg.floors, n)
}

func (reg *region) connectedToBorder() bool {
	for _, c := range reg.connections {
		if c == 0 {
			return true
		}
	}
	return false
}

func (reg *region) canMergeWith(other *region) bool {
	if reg.areaType != other.areaType {
		return false
	}
	n := 0
	for _, c := range reg.connections {
		if c == other.id {
			n++
		}
	}
	if n > 1 {
		return false
	}
	for _, f := range reg.floors {
		if f == other.id {
			return false
		}
	}
	return true
}

func (reg *region) merge(other *region) bool {
	aid, bid := reg.id, other.id

	acon := append([]int(nil), reg.connections...)
	bcon := other.connections

	insa := indexOf(acon, bid)
	if insa == -1 {
		return false
	}
	insb := indexOf(bcon, aid)
	if insb == -1 {
		return false
	}

	reg.connections = reg.connections[:0]
	for i, n := 0, len(acon); i < n-1; i++ {
		reg.connections = append(reg.connections, acon[(insa+1+i)%n])
	}
	for i, n := 0, len(bcon); i < n-1; i++ {
		reg.connections = append(reg.connections, bcon[(insb+1+i)%n])
	}
	reg.removeAdjacentNeighbours()

	for _, f := range other.floors {
		reg.addUniqueFloor(f)
	}
	reg.spanCount += other.spanCount
	other.spanCount = 0
	other.connections = nil
	return true
}

func (reg *region) removeAdjacentNeighbours() {
	for i := 0; i < len(reg.connections) && len(reg.connections) > 1; {
		ni := (i + 1) % len(reg.connections)
		if reg.connections[i] == reg.connections[ni] {
			reg.connections = append(reg.connections[:i], reg.connections[i+1:]...)
		} else {
			i++
		}
	}
}

func (reg *region) replaceNeighbour(oldID, newID int) {
	changed := false
	for i, c := range reg.connections {
		if c == oldID {
			reg.connections[i] = newID
			changed = true
		}
	}
	for i, f := range reg.floors {
		if f == oldID {
			reg.floors[i] = newID
		}
	}
	if changed {
		reg.removeAdjacentNeighbours()
	}
}

func isSolidEdge(chf *CompactHeightfield, srcReg []int, x, y, i, dir int) bool {
	s := &chf.spans[i]
	r := 0
	if getCon(s, dir) != notConnected {
		_, _, ai := chf.neighbour(x, y, s, dir)
		r = srcReg[ai]
	}
	return r != srcReg[i]
}

// walkRegionContour follows the region boundary clockwise from (x, y, i) and
// appends the sequence of neighbouring region ids to cont.
func walkRegionContour(x, y, i, dir int, chf *CompactHeightfield, srcReg []int, cont []int) []int {
	startDir, starti := dir, i

	ss := &chf.spans[i]
	curReg := 0
	if getCon(ss, dir) != notConnected {
		_, _, ai := chf.neighbour(x, y, ss, dir)
		curReg = srcReg[ai]
	}
	cont = append(cont, curReg)

	for iter := 1; iter < maxContourWalk; iter++ {
		s := &chf.spans[i]
		if isSolidEdge(chf, srcReg, x, y, i, dir) {
			r := 0
			if getCon(s, dir) != notConnected {
				_, _, ai := chf.neighbour(x, y, s, dir)
				r = srcReg[ai]
			}
			if r != curReg {
				curReg = r
				cont = append(cont, curReg)
			}
			dir = (dir + 1) & 0x3 // Rotate CW
		} else {
			if getCon(s, dir) == notConnected {
				return cont
			}
			nx, ny, ni := chf.neighbour(x, y, s, dir)
			x, y, i = nx, ny, ni
			dir = (dir + 3) & 0x3 // Rotate CCW
		}
		if starti == i && startDir == dir {
			break
		}
	}

	// Remove adjacent duplicates.
	if len(cont) > 1 {
		for j := 0; j < len(cont); {
			nj := (j + 1) % len(cont)
			if cont[j] == cont[nj] && len(cont) > 1 {
				cont = append(cont[:j], cont[j+1:]...)
			} else {
				j++
			}
		}
	}
	return cont
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
