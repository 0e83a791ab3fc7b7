package formats

import (
	"bytes"
	"encoding/binary"
)

// MarshalBinary encodes the document in PXAD format at its version,
// defaulting to 1.1 when the version is unset.
func (d *AssetDocument) MarshalBinary() ([]byte, error) {
	version := d.Version
	if version.Major == 0 {
		version = PXADVersion{Major: 1, Minor: 1}
	}

	var buf bytes.Buffer
	buf.WriteString("PXAD")
	buf.WriteByte(version.Major)
	buf.WriteByte(version.Minor)
	w := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	w(d.ID)
	w(uint32(len(d.Props)))
	for _, prop := range d.Props {
		w(prop.WorldScale)
		w(uint32(len(prop.Actors)))
		for _, actor := range prop.Actors {
			w(uint32(len(actor.Poses)))
			for _, pose := range actor.Poses {
				w(pose)
			}
			w(uint32(len(actor.Shapes)))
			for _, shape := range actor.Shapes {
				if version.AtLeast(1, 1) {
					w(uint16(len(shape.Name)))
					buf.WriteString(shape.Name)
				}
				w(shape.LocalPose)
				w(uint8(shape.Kind))
				w(uint32(len(shape.MeshData)))
				buf.Write(shape.MeshData)
			}
		}
	}
	return buf.Bytes(), nil
}

// MarshalBinary encodes the mesh in PXTM format, using 16-bit indices
// when every index fits.
func (m *TriangleMesh) MarshalBinary() ([]byte, error) {
	var flags uint8
	if len(m.Vertices) <= 0xffff {
		flags |= PXTMFlag16BitIndices
	}

	var buf bytes.Buffer
	buf.WriteString("PXTM")
	buf.WriteByte(flags)
	w := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	w(uint32(len(m.Vertices)))
	w(m.Vertices)
	w(uint32(len(m.Faces)))
	for _, f := range m.Faces {
		if flags&PXTMFlag16BitIndices != 0 {
			w([3]uint16{uint16(f[0]), uint16(f[1]), uint16(f[2])})
		} else {
			w(f)
		}
	}
	return buf.Bytes(), nil
}
