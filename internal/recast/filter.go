package recast

// FilterLowHangingWalkableObstacles marks non-walkable spans walkable when the
// span below is walkable and the step between them is at most walkableClimb.
func FilterLowHangingWalkableObstacles(walkableClimb int, hf *Heightfield) {
	for y := 0; y < hf.height; y++ {
		for x := 0; x < hf.width; x++ {
			previousWalkable := false
			previousArea := NullArea
			var ps *Span
			for s := hf.spans[x+y*hf.width]; s != nil; ps, s = s, s.next {
				walkable := s.area != NullArea
				if !walkable && previousWalkable && absInt(s.smax-ps.smax) <= walkableClimb {
					s.area = previousArea
				}
				// Copy the flag so it cannot propagate past multiple obstacles.
				previousWalkable = walkable
				previousArea = s.area
			}
		}
	}
}

// FilterLedgeSpans removes walkable spans whose drop to a neighbour exceeds
// walkableClimb, and spans on slopes steeper than the climb.
func FilterLedgeSpans(walkableHeight, walkableClimb int, hf *Heightfield) {
	w, h := hf.width, hf.height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for s := hf.spans[x+y*w]; s != nil; s = s.next {
				if s.area == NullArea {
					continue
				}
				bot := s.smax
				top := maxHeight
				if s.next != nil {
					top = s.next.smin
				}

				minh := maxHeight
				asmin, asmax := s.smax, s.smax

				for dir := 0; dir < 4; dir++ {
					dx := x + dirOffsetX[dir]
					dy := y + dirOffsetY[dir]
					if dx < 0 || dy < 0 || dx >= w || dy >= h {
						minh = min(minh, -walkableClimb-bot)
						continue
					}

					// From minus infinity to the first span.
					ns := hf.spans[dx+dy*w]
					nbot := -walkableClimb
					ntop := maxHeight
					if ns != nil {
						ntop = ns.smin
					}
					if min(top, ntop)-max(bot, nbot) > walkableHeight {
						minh = min(minh, nbot-bot)
					}

					for ; ns != nil; ns = ns.next {
						nbot = ns.smax
						ntop = maxHeight
						if ns.next != nil {
							ntop = ns.next.smin
						}
						if min(top, ntop)-max(bot, nbot) > walkableHeight {
							minh = min(minh, nbot-bot)
							if absInt(nbot-bot) <= walkableClimb {
								asmin = min(asmin, nbot)
								asmax = max(asmax, nbot)
							}
						}
					}
				}

				if minh < -walkableClimb || asmax-asmin > walkableClimb {
					s.area = NullArea
				}
			}
		}
	}
}

// FilterWalkableLowHeightSpans removes walkable spans without walkableHeight
// of clearance above them.
func FilterWalkableLowHeightSpans(walkableHeight int, hf *Heightfield) {
	for _, s := range hf.spans {
		for ; s != nil; s = s.next {
			top := maxHeight
			if s.next != nil {
				top = s.next.smin
			}
			if top-s.smax <= walkableHeight {
				s.area = NullArea
			}
		}
	}
}
