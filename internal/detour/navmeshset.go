package detour

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

type navMeshSetHeader struct {
	Magic    int32
	Version  int32
	NumTiles int32
	Params   NavMeshParams
}

type navMeshTileHeader struct {
	TileRef  TileRef
	DataSize int32
}

// WriteTo writes every tile of the navmesh as a navmesh set. Tiles are
// written in pool order with their live link space.
func (m *NavMesh) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	hdr := navMeshSetHeader{
		Magic:    NavMeshSetMagic,
		Version:  NavMeshSetVersion,
		NumTiles: int32(m.TileCount()),
		Params:   m.params,
	}
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return cw.n, err
	}

	for i := range m.tiles {
		tile := &m.tiles[i]
		if tile.Data == nil {
			continue
		}
		th := navMeshTileHeader{
			TileRef:  m.TileRefOf(tile),
			DataSize: int32(tile.Data.DataSize()),
		}
		if err := binary.Write(cw, binary.LittleEndian, &th); err != nil {
			return cw.n, err
		}
		if err := tile.Data.encode(cw, tile.Links); err != nil {
			return cw.n, fmt.Errorf("tile %d: %w", i, err)
		}
	}
	return cw.n, cw.w.Flush()
}

// ReadNavMeshSet decodes a navmesh set and relinks its tiles.
func ReadNavMeshSet(r io.Reader) (*NavMesh, error) {
	var hdr navMeshSetHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading set header", ErrTruncatedData)
	}
	if hdr.Magic != NavMeshSetMagic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrWrongMagic, uint32(hdr.Magic))
	}
	if hdr.Version != NavMeshSetVersion {
		return nil, fmt.Errorf("%w: set version %d", ErrWrongVersion, hdr.Version)
	}
	if hdr.NumTiles < 0 || hdr.NumTiles > hdr.Params.MaxTiles {
		return nil, fmt.Errorf("%w: %d tiles for %d slots", ErrInvalidParams, hdr.NumTiles, hdr.Params.MaxTiles)
	}

	m, err := NewNavMesh(hdr.Params)
	if err != nil {
		return nil, err
	}

	for i := int32(0); i < hdr.NumTiles; i++ {
		var th navMeshTileHeader
		if err := binary.Read(r, binary.LittleEndian, &th); err != nil {
			return nil, fmt.Errorf("%w: reading tile %d header", ErrTruncatedData, i)
		}
		if th.TileRef == 0 || th.DataSize <= 0 {
			break
		}
		if th.DataSize > maxTileDataSize {
			return nil, fmt.Errorf("%w: tile %d size %d", ErrInvalidParams, i, th.DataSize)
		}

		buf := make([]byte, th.DataSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: reading tile %d data", ErrTruncatedData, i)
		}
		data, err := DecodeMeshData(buf)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
		if _, err := m.AddTile(data, th.TileRef); err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
	}
	return m, nil
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
