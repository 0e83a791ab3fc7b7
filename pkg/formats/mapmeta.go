package formats

import (
	"fmt"
	"os"

	"github.com/hjson/hjson-go/v4"
)

// MapInfo is one map metadata entry.
type MapInfo struct {
	ID     int32  `json:"id"`
	Name   string `json:"name"`
	XBlock string `json:"xblock"` // Map block id
}

// MapMetadata is the list of maps currently loaded by the server.
type MapMetadata struct {
	Maps []MapInfo
}

// ParseMapMetadataFile parses a map metadata file from disk.
func ParseMapMetadataFile(path string) (*MapMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseMapMetadata(data)
}

// ParseMapMetadata parses an hjson list of map entries.
func ParseMapMetadata(data []byte) (*MapMetadata, error) {
	meta := &MapMetadata{Maps: make([]MapInfo, 0)}
	if err := hjson.Unmarshal(data, &meta.Maps); err != nil {
		return nil, fmt.Errorf("parsing map metadata: %w", err)
	}
	return meta, nil
}

// XBlocks returns the referenced block ids in file order, without
// duplicates or empty ids.
func (m *MapMetadata) XBlocks() []string {
	seen := make(map[string]struct{}, len(m.Maps))
	ids := make([]string, 0, len(m.Maps))
	for _, info := range m.Maps {
		if info.XBlock == "" {
			continue
		}
		if _, ok := seen[info.XBlock]; ok {
			continue
		}
		seen[info.XBlock] = struct{}{}
		ids = append(ids, info.XBlock)
	}
	return ids
}
