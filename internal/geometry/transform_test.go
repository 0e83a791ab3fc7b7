package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/navbake/pkg/math"
)

func assertPoint(t *testing.T, want, got [3]float32) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-5)
}

func TestBasis(t *testing.T) {
	tests := []struct {
		name string
		in   [3]float32
		want [3]float32
	}{
		{"x stays", [3]float32{1, 0, 0}, [3]float32{1, 0, 0}},
		{"scene up is build up", [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{"scene forward is build -z", [3]float32{0, 1, 0}, [3]float32{0, 0, -1}},
		{"mixed", [3]float32{1, 2, 3}, [3]float32{1, 3, -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertPoint(t, tt.want, Basis.TransformPoint(tt.in))
		})
	}
}

func TestComposeTransform(t *testing.T) {
	tests := []struct {
		name     string
		position [3]float32
		rotation [3]float32
		in       [3]float32
		want     [3]float32
	}{
		{"identity placement", [3]float32{}, [3]float32{}, [3]float32{1, 2, 3}, [3]float32{1, 3, -2}},
		{"translation in scene space", [3]float32{10, 20, 30}, [3]float32{}, [3]float32{}, [3]float32{10, 30, -20}},
		{"yaw 90 about scene z", [3]float32{}, [3]float32{0, 0, 90}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		// X first: (0,1,0) -> (0,0,1), then Z leaves it, then basis lifts it to +Y.
		{"x before z", [3]float32{}, [3]float32{90, 0, 90}, [3]float32{0, 1, 0}, [3]float32{0, 1, 0}},
		{"rotate then translate", [3]float32{5, 0, 0}, [3]float32{0, 0, 90}, [3]float32{1, 0, 0}, [3]float32{5, 0, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComposeTransform(tt.position, tt.rotation)
			assertPoint(t, tt.want, m.TransformPoint(tt.in))
		})
	}
}

func TestComposeTransformIsPure(t *testing.T) {
	a := ComposeTransform([3]float32{1, 2, 3}, [3]float32{10, 20, 30})
	b := ComposeTransform([3]float32{1, 2, 3}, [3]float32{10, 20, 30})
	assert.Equal(t, a, b)
}

func TestShapeTransformOrder(t *testing.T) {
	entity := ComposeTransform([3]float32{100, 0, 0}, [3]float32{})
	actor := math.Translate(0, 0, 1)
	local := math.Translate(1, 0, 0)

	// local first, then actor, then scale 2, then entity:
	// (0,0,0) -> (1,0,0) -> (1,0,1) -> (2,0,2) -> scene (102,0,2) -> build (102,2,0)
	m := ShapeTransform(entity, 2, actor, local)
	assertPoint(t, [3]float32{102, 2, 0}, m.TransformPoint([3]float32{}))
}
