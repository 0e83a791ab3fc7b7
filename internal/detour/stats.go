package detour

// Stats summarizes the content of a navmesh.
type Stats struct {
	Tiles    int
	Polys    int
	Verts    int
	Links    int
	BVNodes  int
	Detail   int // Detail triangles
	Walk     int // Polygons flagged FlagWalk
	Swim     int // Polygons flagged FlagSwim
	Disabled int // Polygons flagged FlagDisabled
	Areas    map[uint8]int
}

// Stats counts tiles, polygons, links and polygon flags over all tiles.
func (m *NavMesh) Stats() Stats {
	s := Stats{Areas: make(map[uint8]int)}
	for i := range m.tiles {
		tile := &m.tiles[i]
		if tile.Data == nil {
			continue
		}
		s.Tiles++
		s.Verts += int(tile.Data.Header.VertCount)
		s.BVNodes += int(tile.Data.Header.BVNodeCount)
		s.Detail += int(tile.Data.Header.DetailTriCount)
		for ip := range tile.Data.Polys {
			p := &tile.Data.Polys[ip]
			s.Polys++
			s.Areas[p.Area()]++
			if p.Flags&FlagWalk != 0 {
				s.Walk++
			}
			if p.Flags&FlagSwim != 0 {
				s.Swim++
			}
			if p.Flags&FlagDisabled != 0 {
				s.Disabled++
			}
			for l := p.FirstLink; l != nullLink; l = tile.Links[l].Next {
				s.Links++
			}
		}
	}
	return s
}

// PolyCount returns the number of polygons over all tiles.
func (m *NavMesh) PolyCount() int {
	n := 0
	for i := range m.tiles {
		if d := m.tiles[i].Data; d != nil {
			n += len(d.Polys)
		}
	}
	return n
}
