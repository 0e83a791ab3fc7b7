// Package formats provides parsers for the asset and map export files consumed by the bake.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/Faultbox/navbake/pkg/math"
)

// PXAD format errors.
var (
	ErrInvalidPXADMagic       = errors.New("invalid PXAD magic: expected 'PXAD'")
	ErrUnsupportedPXADVersion = errors.New("unsupported PXAD version")
	ErrTruncatedPXADData      = errors.New("truncated PXAD data")
)

// PXADVersion represents the asset document version.
type PXADVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v PXADVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v PXADVersion) AtLeast(major, minor uint8) bool {
	if v.Major > major {
		return true
	}
	return v.Major == major && v.Minor >= minor
}

// ShapeKind identifies the collision primitive a shape describes.
type ShapeKind uint8

const (
	ShapeBox          ShapeKind = 0
	ShapeSphere       ShapeKind = 1
	ShapeCapsule      ShapeKind = 2
	ShapeConvexMesh   ShapeKind = 3
	ShapeTriangleMesh ShapeKind = 4
)

// String returns a human-readable shape kind name.
func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "Box"
	case ShapeSphere:
		return "Sphere"
	case ShapeCapsule:
		return "Capsule"
	case ShapeConvexMesh:
		return "ConvexMesh"
	case ShapeTriangleMesh:
		return "TriangleMesh"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Shape is one collision shape of an actor.
type Shape struct {
	Name      string    // Shape name (v1.1+)
	LocalPose math.Mat4 // Pose relative to the actor
	Kind      ShapeKind
	MeshData  []byte // Encoded PXTM mesh, empty for analytic shapes
}

// HasMesh reports whether the shape carries mesh data.
func (s *Shape) HasMesh() bool {
	return len(s.MeshData) > 0
}

// Actor groups shapes under one or more poses.
type Actor struct {
	Poses  []math.Mat4
	Shapes []Shape
}

// Pose returns the actor's first pose, or identity when it has none.
func (a *Actor) Pose() math.Mat4 {
	if len(a.Poses) == 0 {
		return math.Identity()
	}
	return a.Poses[0]
}

// PhysicsProp is a block of actors sharing one world scale.
type PhysicsProp struct {
	WorldScale float32
	Actors     []Actor
}

// AssetDocument represents a parsed physics asset document.
type AssetDocument struct {
	Version PXADVersion
	ID      uint32
	Props   []PhysicsProp

	// Fingerprint is the xxhash64 of the document bytes.
	Fingerprint uint64
}

// ShapeCount returns the number of shapes across all props.
func (d *AssetDocument) ShapeCount() int {
	n := 0
	for _, p := range d.Props {
		for _, a := range p.Actors {
			n += len(a.Shapes)
		}
	}
	return n
}

// ParseAssetDocumentFile parses a PXAD file from disk.
func ParseAssetDocumentFile(path string) (*AssetDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseAssetDocument(data)
}

// ParseAssetDocument parses a PXAD document from raw bytes.
func ParseAssetDocument(data []byte) (*AssetDocument, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedPXADData
	}

	if string(data[0:4]) != "PXAD" {
		return nil, ErrInvalidPXADMagic
	}

	version := PXADVersion{Major: data[4], Minor: data[5]}

	// Supported versions: 1.0 - 1.1
	if version.Major != 1 || version.Minor > 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPXADVersion, version)
	}

	doc := &AssetDocument{Version: version, Fingerprint: xxhash.Sum64(data)}
	r := bytes.NewReader(data[6:])

	if err := binary.Read(r, binary.LittleEndian, &doc.ID); err != nil {
		return nil, fmt.Errorf("%w: reading id", ErrTruncatedPXADData)
	}

	var propCount uint32
	if err := binary.Read(r, binary.LittleEndian, &propCount); err != nil {
		return nil, fmt.Errorf("%w: reading prop count", ErrTruncatedPXADData)
	}
	if err := checkCount(r, propCount, 8); err != nil {
		return nil, fmt.Errorf("%w: prop count %d", err, propCount)
	}

	doc.Props = make([]PhysicsProp, 0, propCount)
	for i := uint32(0); i < propCount; i++ {
		prop, err := parsePhysicsProp(r, version)
		if err != nil {
			return nil, fmt.Errorf("parsing prop %d: %w", i, err)
		}
		doc.Props = append(doc.Props, prop)
	}

	return doc, nil
}

func parsePhysicsProp(r *bytes.Reader, version PXADVersion) (PhysicsProp, error) {
	var prop PhysicsProp

	if err := binary.Read(r, binary.LittleEndian, &prop.WorldScale); err != nil {
		return PhysicsProp{}, fmt.Errorf("%w: reading world scale", ErrTruncatedPXADData)
	}

	var actorCount uint32
	if err := binary.Read(r, binary.LittleEndian, &actorCount); err != nil {
		return PhysicsProp{}, fmt.Errorf("%w: reading actor count", ErrTruncatedPXADData)
	}
	if err := checkCount(r, actorCount, 8); err != nil {
		return PhysicsProp{}, fmt.Errorf("%w: actor count %d", err, actorCount)
	}

	prop.Actors = make([]Actor, 0, actorCount)
	for i := uint32(0); i < actorCount; i++ {
		actor, err := parseActor(r, version)
		if err != nil {
			return PhysicsProp{}, fmt.Errorf("actor %d: %w", i, err)
		}
		prop.Actors = append(prop.Actors, actor)
	}

	return prop, nil
}

func parseActor(r *bytes.Reader, version PXADVersion) (Actor, error) {
	var actor Actor

	var poseCount uint32
	if err := binary.Read(r, binary.LittleEndian, &poseCount); err != nil {
		return Actor{}, fmt.Errorf("%w: reading pose count", ErrTruncatedPXADData)
	}
	if err := checkCount(r, poseCount, 64); err != nil {
		return Actor{}, fmt.Errorf("%w: pose count %d", err, poseCount)
	}

	actor.Poses = make([]math.Mat4, poseCount)
	for i := range actor.Poses {
		if err := binary.Read(r, binary.LittleEndian, &actor.Poses[i]); err != nil {
			return Actor{}, fmt.Errorf("%w: reading pose %d", ErrTruncatedPXADData, i)
		}
	}

	var shapeCount uint32
	if err := binary.Read(r, binary.LittleEndian, &shapeCount); err != nil {
		return Actor{}, fmt.Errorf("%w: reading shape count", ErrTruncatedPXADData)
	}
	if err := checkCount(r, shapeCount, 69); err != nil {
		return Actor{}, fmt.Errorf("%w: shape count %d", err, shapeCount)
	}

	actor.Shapes = make([]Shape, 0, shapeCount)
	for i := uint32(0); i < shapeCount; i++ {
		shape, err := parseShape(r, version)
		if err != nil {
			return Actor{}, fmt.Errorf("shape %d: %w", i, err)
		}
		actor.Shapes = append(actor.Shapes, shape)
	}

	return actor, nil
}

func parseShape(r *bytes.Reader, version PXADVersion) (Shape, error) {
	var shape Shape

	// Shape names were added in v1.1
	if version.AtLeast(1, 1) {
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return Shape{}, fmt.Errorf("%w: reading name length", ErrTruncatedPXADData)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return Shape{}, fmt.Errorf("%w: reading name", ErrTruncatedPXADData)
		}
		shape.Name = readNullString(name)
	}

	if err := binary.Read(r, binary.LittleEndian, &shape.LocalPose); err != nil {
		return Shape{}, fmt.Errorf("%w: reading local pose", ErrTruncatedPXADData)
	}

	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return Shape{}, fmt.Errorf("%w: reading shape kind", ErrTruncatedPXADData)
	}
	shape.Kind = ShapeKind(kind)

	var meshLen uint32
	if err := binary.Read(r, binary.LittleEndian, &meshLen); err != nil {
		return Shape{}, fmt.Errorf("%w: reading mesh length", ErrTruncatedPXADData)
	}
	if int64(meshLen) > int64(r.Len()) {
		return Shape{}, fmt.Errorf("%w: mesh length %d exceeds remaining %d", ErrTruncatedPXADData, meshLen, r.Len())
	}
	if meshLen > 0 {
		shape.MeshData = make([]byte, meshLen)
		if _, err := io.ReadFull(r, shape.MeshData); err != nil {
			return Shape{}, fmt.Errorf("%w: reading mesh data", ErrTruncatedPXADData)
		}
	}

	return shape, nil
}

// checkCount rejects element counts that cannot fit in the remaining bytes.
func checkCount(r *bytes.Reader, count uint32, minSize int64) error {
	if int64(count)*minSize > int64(r.Len()) {
		return ErrTruncatedPXADData
	}
	return nil
}

// readNullString reads a null-terminated string from a byte slice.
func readNullString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return string(data[:i])
	}
	return string(data)
}
