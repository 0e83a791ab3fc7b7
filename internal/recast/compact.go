package recast

// CompactCell indexes the spans of one grid column.
type CompactCell struct {
	index int
	count int
}

// CompactSpan is the open space above a solid span.
type CompactSpan struct {
	y   int // Floor height
	reg int
	con int // Packed 6-bit neighbour layer index per direction
	h   int // Clearance
}

// CompactHeightfield stores the walkable open space of a heightfield.
type CompactHeightfield struct {
	width          int
	height         int
	spanCount      int
	walkableHeight int
	walkableClimb  int
	borderSize     int
	maxDistance    int
	maxRegions     int
	bmin           [3]float32
	bmax           [3]float32
	cs             float32
	ch             float32
	cells          []CompactCell
	spans          []CompactSpan
	dist           []int
	areas          []uint8
}

// SpanCount returns the number of walkable spans.
func (chf *CompactHeightfield) SpanCount() int { return chf.spanCount }

// MaxRegions returns the highest region id after BuildRegions.
func (chf *CompactHeightfield) MaxRegions() int { return chf.maxRegions }

func (chf *CompactHeightfield) neighbour(x, y int, s *CompactSpan, dir int) (ax, ay, ai int) {
	ax = x + dirOffsetX[dir]
	ay = y + dirOffsetY[dir]
	ai = chf.cells[ax+ay*chf.width].index + getCon(s, dir)
	return ax, ay, ai
}

// BuildCompactHeightfield converts the walkable spans of hf into open-space
// spans and links each to the neighbours an agent can step to.
func BuildCompactHeightfield(walkableHeight, walkableClimb int, hf *Heightfield) *CompactHeightfield {
	w, h := hf.width, hf.height
	spanCount := hf.walkableSpanCount()

	chf := &CompactHeightfield{
		width:          w,
		height:         h,
		spanCount:      spanCount,
		walkableHeight: walkableHeight,
		walkableClimb:  walkableClimb,
		bmin:           hf.bmin,
		bmax:           hf.bmax,
		cs:             hf.cs,
		ch:             hf.ch,
		cells:          make([]CompactCell, w*h),
		spans:          make([]CompactSpan, spanCount),
		areas:          make([]uint8, spanCount),
	}
	chf.bmax[1] += float32(walkableHeight) * hf.ch

	idx := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := hf.spans[x+y*w]
			if s == nil {
				continue
			}
			c := &chf.cells[x+y*w]
			c.index = idx
			for ; s != nil; s = s.next {
				if s.area == NullArea {
					continue
				}
				bot := s.smax
				top := maxHeight
				if s.next != nil {
					top = s.next.smin
				}
				chf.spans[idx].y = clampInt(bot, 0, 0xffff)
				chf.spans[idx].h = clampInt(top-bot, 0, 0xff)
				chf.areas[idx] = s.area
				idx++
				c.count++
			}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				for dir := 0; dir < 4; dir++ {
					setCon(s, dir, notConnected)
					nx := x + dirOffsetX[dir]
					ny := y + dirOffsetY[dir]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					nc := &chf.cells[nx+ny*w]
					for k := nc.index; k < nc.index+nc.count; k++ {
						ns := &chf.spans[k]
						bot := max(s.y, ns.y)
						top := min(s.y+s.h, ns.y+ns.h)
						if top-bot >= walkableHeight && absInt(ns.y-s.y) <= walkableClimb {
							lidx := k - nc.index
							if lidx > maxLayers {
								continue
							}
							setCon(s, dir, lidx)
							break
						}
					}
				}
			}
		}
	}
	return chf
}

// ErodeWalkableArea clears spans closer than radius cells to an obstruction.
func ErodeWalkableArea(radius int, chf *CompactHeightfield) {
	w, h := chf.width, chf.height
	dist := make([]int, chf.spanCount)
	for i := range dist {
		dist[i] = 255
	}

	// Mark boundary cells.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				if chf.areas[i] == NullArea {
					dist[i] = 0
					continue
				}
				s := &chf.spans[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if getCon(s, dir) == notConnected {
						continue
					}
					_, _, ni := chf.neighbour(x, y, s, dir)
					if chf.areas[ni] != NullArea {
						nc++
					}
				}
				if nc != 4 {
					dist[i] = 0
				}
			}
		}
	}

	relax := func(i, j, cost int) {
		if nd := min(dist[j]+cost, 255); nd < dist[i] {
			dist[i] = nd
		}
	}
	chamferDistance(chf, relax)

	thr := radius * 2
	for i := range dist {
		if dist[i] < thr {
			chf.areas[i] = NullArea
		}
	}
}

// chamferDistance runs the two-pass 2/3 chamfer sweep. relax(i, j, cost)
// lowers span i's distance from neighbour j.
func chamferDistance(chf *CompactHeightfield, relax func(i, j, cost int)) {
	w, h := chf.width, chf.height

	// Pass 1: (-1,0), (-1,-1), (0,-1), (1,-1).
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				if getCon(s, 0) != notConnected {
					ax, ay, ai := chf.neighbour(x, y, s, 0)
					relax(i, ai, 2)
					as := &chf.spans[ai]
					if getCon(as, 3) != notConnected {
						_, _, aai := chf.neighbour(ax, ay, as, 3)
						relax(i, aai, 3)
					}
				}
				if getCon(s, 3) != notConnected {
					ax, ay, ai := chf.neighbour(x, y, s, 3)
					relax(i, ai, 2)
					as := &chf.spans[ai]
					if getCon(as, 2) != notConnected {
						_, _, aai := chf.neighbour(ax, ay, as, 2)
						relax(i, aai, 3)
					}
				}
			}
		}
	}

	// Pass 2: (1,0), (1,1), (0,1), (-1,1).
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			c := &chf.cells[x+y*w]
			for i := c.index; i < c.index+c.count; i++ {
				s := &chf.spans[i]
				if getCon(s, 2) != notConnected {
					ax, ay, ai := chf.neighbour(x, y, s, 2)
					relax(i, ai, 2)
					as := &chf.spans[ai]
					if getCon(as, 1) != notConnected {
						_, _, aai := chf.neighbour(ax, ay, as, 1)
						relax(i, aai, 3)
					}
				}
				if getCon(s, 1) != notConnected {
					ax, ay, ai := chf.neighbour(x, y, s, 1)
					relax(i, ai, 2)
					as := &chf.spans[ai]
					if getCon(as, 0) != notConnected {
						_, _, aai := chf.neighbour(ax, ay, as, 0)
						relax(i, aai, 3)
					}
				}
			}
		}
	}
}
