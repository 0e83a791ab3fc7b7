package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// PXTM format errors.
var (
	ErrInvalidPXTMMagic  = errors.New("invalid PXTM magic: expected 'PXTM'")
	ErrTruncatedPXTMData = errors.New("truncated PXTM data")
)

// PXTM flags.
const (
	PXTMFlag16BitIndices uint8 = 0x01
)

// TriangleMesh is a decoded physics triangle mesh.
type TriangleMesh struct {
	Vertices [][3]float32
	Faces    [][3]uint32
}

// ParseTriangleMesh decodes PXTM mesh bytes as stored in a shape.
func ParseTriangleMesh(data []byte) (*TriangleMesh, error) {
	if len(data) < 5 {
		return nil, ErrTruncatedPXTMData
	}

	if string(data[0:4]) != "PXTM" {
		return nil, ErrInvalidPXTMMagic
	}
	flags := data[4]

	r := bytes.NewReader(data[5:])

	var vertexCount uint32
	if err := binary.Read(r, binary.LittleEndian, &vertexCount); err != nil {
		return nil, fmt.Errorf("%w: reading vertex count", ErrTruncatedPXTMData)
	}
	if int64(vertexCount)*12 > int64(r.Len()) {
		return nil, fmt.Errorf("%w: vertex count %d", ErrTruncatedPXTMData, vertexCount)
	}

	mesh := &TriangleMesh{
		Vertices: make([][3]float32, vertexCount),
	}
	if err := binary.Read(r, binary.LittleEndian, mesh.Vertices); err != nil {
		return nil, fmt.Errorf("%w: reading vertices", ErrTruncatedPXTMData)
	}

	var faceCount uint32
	if err := binary.Read(r, binary.LittleEndian, &faceCount); err != nil {
		return nil, fmt.Errorf("%w: reading face count", ErrTruncatedPXTMData)
	}

	indexSize := int64(4)
	if flags&PXTMFlag16BitIndices != 0 {
		indexSize = 2
	}
	if int64(faceCount)*3*indexSize > int64(r.Len()) {
		return nil, fmt.Errorf("%w: face count %d", ErrTruncatedPXTMData, faceCount)
	}

	mesh.Faces = make([][3]uint32, faceCount)
	if indexSize == 2 {
		faces := make([][3]uint16, faceCount)
		if err := binary.Read(r, binary.LittleEndian, faces); err != nil {
			return nil, fmt.Errorf("%w: reading faces", ErrTruncatedPXTMData)
		}
		for i, f := range faces {
			mesh.Faces[i] = [3]uint32{uint32(f[0]), uint32(f[1]), uint32(f[2])}
		}
	} else if err := binary.Read(r, binary.LittleEndian, mesh.Faces); err != nil {
		return nil, fmt.Errorf("%w: reading faces", ErrTruncatedPXTMData)
	}

	return mesh, nil
}
