package formats

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/cespare/xxhash/v2"

	"github.com/Faultbox/navbake/pkg/math"
)

// makePXADHeader creates a minimal PXAD document with no props.
func makePXADHeader(magic string, major, minor uint8) []byte {
	data := make([]byte, 14)
	copy(data[0:4], magic)
	data[4] = major
	data[5] = minor
	binary.LittleEndian.PutUint32(data[6:], 0x1234)
	// prop count 0
	return data
}

func sampleDocument(version PXADVersion) *AssetDocument {
	mesh, _ := (&TriangleMesh{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]uint32{{0, 1, 2}},
	}).MarshalBinary()

	return &AssetDocument{
		Version: version,
		ID:      0xdeadbeef,
		Props: []PhysicsProp{{
			WorldScale: 2,
			Actors: []Actor{{
				Poses: []math.Mat4{math.Translate(1, 2, 3), math.Identity()},
				Shapes: []Shape{
					{Name: "floor", LocalPose: math.Identity(), Kind: ShapeTriangleMesh, MeshData: mesh},
					{Name: "post", LocalPose: math.Scale(1, 2, 1), Kind: ShapeBox},
				},
			}},
		}},
	}
}

func TestParseAssetDocument_MagicValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid magic", makePXADHeader("PXAD", 1, 1), nil},
		{"invalid magic", makePXADHeader("XXXX", 1, 1), ErrInvalidPXADMagic},
		{"empty data", []byte{}, ErrTruncatedPXADData},
		{"truncated header", []byte{'P', 'X', 'A'}, ErrTruncatedPXADData},
		{"missing prop count", makePXADHeader("PXAD", 1, 0)[:10], ErrTruncatedPXADData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseAssetDocument(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && doc.ID != 0x1234 {
				t.Errorf("ID = 0x%x, want 0x1234", doc.ID)
			}
		})
	}
}

func TestParseAssetDocument_VersionSupport(t *testing.T) {
	tests := []struct {
		name    string
		major   uint8
		minor   uint8
		wantErr bool
	}{
		{"v1.0", 1, 0, false},
		{"v1.1", 1, 1, false},
		{"v0.9 unsupported", 0, 9, true},
		{"v1.2 unsupported", 1, 2, true},
		{"v2.0 unsupported", 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAssetDocument(makePXADHeader("PXAD", tt.major, tt.minor))
			if (err != nil) != tt.wantErr {
				t.Errorf("version %d.%d: got error=%v, wantErr=%v", tt.major, tt.minor, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedPXADVersion) {
				t.Errorf("error = %v, want ErrUnsupportedPXADVersion", err)
			}
		})
	}
}

func TestParseAssetDocument_Structure(t *testing.T) {
	for _, version := range []PXADVersion{{1, 0}, {1, 1}} {
		t.Run(version.String(), func(t *testing.T) {
			want := sampleDocument(version)
			data, err := want.MarshalBinary()
			if err != nil {
				t.Fatal(err)
			}

			got, err := ParseAssetDocument(data)
			if err != nil {
				t.Fatalf("ParseAssetDocument() error = %v", err)
			}

			if got.ID != want.ID {
				t.Errorf("ID = 0x%x, want 0x%x", got.ID, want.ID)
			}
			if got.Fingerprint == 0 || got.Fingerprint != xxhash.Sum64(data) {
				t.Errorf("Fingerprint = 0x%x, want xxhash of the document", got.Fingerprint)
			}
			if len(got.Props) != 1 || got.Props[0].WorldScale != 2 {
				t.Fatalf("props = %+v", got.Props)
			}
			actor := got.Props[0].Actors[0]
			if len(actor.Poses) != 2 || actor.Pose() != math.Translate(1, 2, 3) {
				t.Errorf("actor pose = %v", actor.Pose())
			}
			if got.ShapeCount() != 2 {
				t.Fatalf("ShapeCount() = %d, want 2", got.ShapeCount())
			}

			floor := actor.Shapes[0]
			if floor.Kind != ShapeTriangleMesh || !floor.HasMesh() {
				t.Errorf("floor shape = kind %s, mesh %d bytes", floor.Kind, len(floor.MeshData))
			}
			if actor.Shapes[1].HasMesh() {
				t.Error("box shape should carry no mesh data")
			}
			if actor.Shapes[1].LocalPose != math.Scale(1, 2, 1) {
				t.Errorf("box local pose = %v", actor.Shapes[1].LocalPose)
			}

			wantName := "floor"
			if !version.AtLeast(1, 1) {
				wantName = ""
			}
			if floor.Name != wantName {
				t.Errorf("shape name = %q, want %q", floor.Name, wantName)
			}
		})
	}
}

func TestParseAssetDocument_Truncated(t *testing.T) {
	data, _ := sampleDocument(PXADVersion{1, 1}).MarshalBinary()

	// Every strict prefix past the magic must fail cleanly.
	for n := 6; n < len(data); n++ {
		if _, err := ParseAssetDocument(data[:n]); !errors.Is(err, ErrTruncatedPXADData) {
			t.Fatalf("prefix %d/%d: error = %v, want ErrTruncatedPXADData", n, len(data), err)
		}
	}
}

func TestParseAssetDocument_HugeCounts(t *testing.T) {
	data := makePXADHeader("PXAD", 1, 0)
	binary.LittleEndian.PutUint32(data[10:], 0xffffffff)
	if _, err := ParseAssetDocument(data); !errors.Is(err, ErrTruncatedPXADData) {
		t.Errorf("error = %v, want ErrTruncatedPXADData", err)
	}
}

func TestShapeKind_String(t *testing.T) {
	tests := []struct {
		kind ShapeKind
		want string
	}{
		{ShapeBox, "Box"},
		{ShapeTriangleMesh, "TriangleMesh"},
		{ShapeKind(42), "Unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ShapeKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
