package recast

import (
	"fmt"
	"math"
)

// Span is a solid interval in one heightfield column.
type Span struct {
	smin int
	smax int
	area uint8
	next *Span
}

// Heightfield is a column grid of solid spans.
type Heightfield struct {
	width  int
	height int
	bmin   [3]float32
	bmax   [3]float32
	cs     float32
	ch     float32
	spans  []*Span
}

// NewHeightfield allocates an empty heightfield.
func NewHeightfield(width, height int, bmin, bmax [3]float32, cs, ch float32) *Heightfield {
	return &Heightfield{
		width:  width,
		height: height,
		bmin:   bmin,
		bmax:   bmax,
		cs:     cs,
		ch:     ch,
		spans:  make([]*Span, width*height),
	}
}

// SpanCount returns the number of spans in the heightfield.
func (hf *Heightfield) SpanCount() int {
	n := 0
	for _, s := range hf.spans {
		for ; s != nil; s = s.next {
			n++
		}
	}
	return n
}

func (hf *Heightfield) walkableSpanCount() int {
	n := 0
	for _, s := range hf.spans {
		for ; s != nil; s = s.next {
			if s.area != NullArea {
				n++
			}
		}
	}
	return n
}

// RasterizeTriangles voxelizes the triangles into hf. areas holds one id per
// triangle. Spans whose tops are within flagMergeThr of each other keep the
// higher area id when merged.
func RasterizeTriangles(verts []float32, tris []int32, areas []uint8, hf *Heightfield, flagMergeThr int) error {
	nt := len(tris) / 3
	if len(areas) != nt {
		return fmt.Errorf("%w: %d areas for %d triangles", ErrInvalidConfig, len(areas), nt)
	}
	nv := int32(len(verts) / 3)
	ics := 1 / hf.cs
	ich := 1 / hf.ch
	buf := make([]float32, 7*3*4)
	for i := 0; i < nt; i++ {
		a, b, c := tris[i*3], tris[i*3+1], tris[i*3+2]
		if a < 0 || b < 0 || c < 0 || a >= nv || b >= nv || c >= nv {
			return fmt.Errorf("%w: triangle %d index out of range", ErrInvalidConfig, i)
		}
		rasterizeTri(verts[a*3:a*3+3], verts[b*3:b*3+3], verts[c*3:c*3+3], areas[i], hf, ics, ich, flagMergeThr, buf)
	}
	return nil
}

func rasterizeTri(v0, v1, v2 []float32, area uint8, hf *Heightfield, ics, ich float32, flagMergeThr int, buf []float32) {
	w, h := hf.width, hf.height
	bmin, bmax := hf.bmin, hf.bmax
	cs := hf.cs
	by := bmax[1] - bmin[1]

	var tmin, tmax [3]float32
	for k := 0; k < 3; k++ {
		tmin[k] = min(v0[k], v1[k], v2[k])
		tmax[k] = max(v0[k], v1[k], v2[k])
	}
	if !overlapBounds(bmin, bmax, tmin, tmax) {
		return
	}

	y0 := clampInt(int((tmin[2]-bmin[2])*ics), 0, h-1)
	y1 := clampInt(int((tmax[2]-bmin[2])*ics), 0, h-1)

	in := buf[0:21]
	inrow := buf[21:42]
	p1 := buf[42:63]
	p2 := buf[63:84]
	copy(in[0:3], v0)
	copy(in[3:6], v1)
	copy(in[6:9], v2)
	nvIn := 3

	for y := y0; y <= y1; y++ {
		cz := bmin[2] + float32(y)*cs
		var nvrow int
		nvrow, nvIn = dividePoly(in, nvIn, inrow, p1, cz+cs, 2)
		in, p1 = p1, in
		if nvrow < 3 {
			continue
		}

		minX, maxX := inrow[0], inrow[0]
		for i := 1; i < nvrow; i++ {
			minX = min(minX, inrow[i*3])
			maxX = max(maxX, inrow[i*3])
		}
		x0 := clampInt(int((minX-bmin[0])*ics), 0, w-1)
		x1 := clampInt(int((maxX-bmin[0])*ics), 0, w-1)

		nv2 := nvrow
		for x := x0; x <= x1; x++ {
			cx := bmin[0] + float32(x)*cs
			var nv int
			nv, nv2 = dividePoly(inrow, nv2, p1, p2, cx+cs, 0)
			inrow, p2 = p2, inrow
			if nv < 3 {
				continue
			}

			smin, smax := p1[1], p1[1]
			for i := 1; i < nv; i++ {
				smin = min(smin, p1[i*3+1])
				smax = max(smax, p1[i*3+1])
			}
			smin -= bmin[1]
			smax -= bmin[1]
			if smax < 0 || smin > by {
				continue
			}
			smin = max(smin, 0)
			smax = min(smax, by)

			ismin := clampInt(int(math.Floor(float64(smin*ich))), 0, spanMaxHeight)
			ismax := clampInt(int(math.Ceil(float64(smax*ich))), ismin+1, spanMaxHeight)
			hf.addSpan(x, y, ismin, ismax, area, flagMergeThr)
		}
	}
}

func overlapBounds(amin, amax, bmin, bmax [3]float32) bool {
	for k := 0; k < 3; k++ {
		if amin[k] > bmax[k] || amax[k] < bmin[k] {
			return false
		}
	}
	return true
}

// dividePoly splits the polygon in by the plane axis=x. out1 receives the part
// below x, out2 the rest.
func dividePoly(in []float32, nin int, out1, out2 []float32, x float32, axis int) (int, int) {
	var d [12]float32
	for i := 0; i < nin; i++ {
		d[i] = x - in[i*3+axis]
	}
	m, n := 0, 0
	for i, j := 0, nin-1; i < nin; j, i = i, i+1 {
		ina := d[j] >= 0
		inb := d[i] >= 0
		if ina != inb {
			s := d[j] / (d[j] - d[i])
			for k := 0; k < 3; k++ {
				out1[m*3+k] = in[j*3+k] + (in[i*3+k]-in[j*3+k])*s
			}
			copy(out2[n*3:n*3+3], out1[m*3:m*3+3])
			m++
			n++
			// Points on the dividing line were added above.
			if d[i] > 0 {
				copy(out1[m*3:m*3+3], in[i*3:i*3+3])
				m++
			} else if d[i] < 0 {
				copy(out2[n*3:n*3+3], in[i*3:i*3+3])
				n++
			}
			continue
		}
		if d[i] >= 0 {
			copy(out1[m*3:m*3+3], in[i*3:i*3+3])
			m++
			if d[i] != 0 {
				continue
			}
		}
		copy(out2[n*3:n*3+3], in[i*3:i*3+3])
		n++
	}
	return m, n
}

func (hf *Heightfield) addSpan(x, y, smin, smax int, area uint8, flagMergeThr int) {
	idx := x + y*hf.width
	s := &Span{smin: smin, smax: smax, area: area}

	var prev *Span
	cur := hf.spans[idx]
	for cur != nil {
		if cur.smin > s.smax {
			break
		}
		if cur.smax < s.smin {
			prev = cur
			cur = cur.next
			continue
		}
		// Merge overlapping spans.
		s.smin = min(s.smin, cur.smin)
		s.smax = max(s.smax, cur.smax)
		if absInt(s.smax-cur.smax) <= flagMergeThr {
			s.area = max(s.area, cur.area)
		}
		next := cur.next
		if prev != nil {
			prev.next = next
		} else {
			hf.spans[idx] = next
		}
		cur = next
	}

	if prev != nil {
		s.next = prev.next
		prev.next = s
	} else {
		s.next = hf.spans[idx]
		hf.spans[idx] = s
	}
}
