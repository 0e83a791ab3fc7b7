package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/hjson/hjson-go/v4"
)

// Map block errors.
var (
	ErrUnknownEntityKind = errors.New("unknown entity kind")
	ErrMissingBlockID    = errors.New("map block has no id")
)

// EntityKind discriminates placed entity variants.
type EntityKind string

const (
	KindModel    EntityKind = "model"    // Mesh + Placeable
	KindWhitebox EntityKind = "whitebox" // Mesh + Placeable + PhysicsVolume
	KindVolume   EntityKind = "volume"   // Mesh + Placeable + GeneratedVolume
)

// Entity is one placed entity of a map block export.
type Entity struct {
	Kind       EntityKind `json:"kind"`
	Name       string     `json:"name"`
	ModelName  string     `json:"model_name"`
	Mesh       string     `json:"mesh"`       // Asset reference, see ParseAssetRef
	Navigation bool       `json:"navigation"` // Contributes to pathfinding geometry
	Position   [3]float32 `json:"position"`
	Rotation   [3]float32 `json:"rotation"` // Degrees about X, Y, Z

	// Whitebox
	HalfExtents [3]float32 `json:"half_extents"`

	// Generated volume
	Generate  bool       `json:"generate"`
	Dimension [3]float32 `json:"dimension"`
	Fluid     bool       `json:"fluid"`
}

// IsFluidVolume reports whether the entity is a fluid-type generated volume.
func (e *Entity) IsFluidVolume() bool {
	return e.Kind == KindVolume && e.Fluid
}

// MapBlock is one exported map block.
type MapBlock struct {
	ID       string   `json:"id"`
	Entities []Entity `json:"entities"`

	// Fingerprint is the xxhash64 of the export file bytes.
	Fingerprint uint64 `json:"-"`
}

// CountByKind returns the count of entities for each kind.
func (b *MapBlock) CountByKind() map[EntityKind]int {
	counts := make(map[EntityKind]int)
	for _, e := range b.Entities {
		counts[e.Kind]++
	}
	return counts
}

// ParseMapBlockFile parses a map block export from disk.
func ParseMapBlockFile(path string) (*MapBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseMapBlock(data)
}

// ParseMapBlock parses an hjson map block export.
func ParseMapBlock(data []byte) (*MapBlock, error) {
	block := &MapBlock{}
	if err := hjson.Unmarshal(data, block); err != nil {
		return nil, fmt.Errorf("parsing map block: %w", err)
	}
	if block.ID == "" {
		return nil, ErrMissingBlockID
	}

	for i := range block.Entities {
		switch block.Entities[i].Kind {
		case KindModel, KindWhitebox, KindVolume:
		default:
			return nil, fmt.Errorf("entity %d (%s): %w: %q", i, block.Entities[i].Name, ErrUnknownEntityKind, block.Entities[i].Kind)
		}
	}

	block.Fingerprint = xxhash.Sum64(data)
	return block, nil
}
