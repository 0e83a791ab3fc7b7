package formats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AssetRefPrefix is the URN prefix of entity asset references.
const AssetRefPrefix = "urn:llid:"

// ErrInvalidAssetRef is returned for asset references that do not parse.
var ErrInvalidAssetRef = errors.New("invalid asset reference")

// ParseAssetRef extracts the numeric asset id from "urn:llid:<8 hex>[:suffix]".
func ParseAssetRef(ref string) (uint32, error) {
	if ref == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAssetRef)
	}
	rest, ok := strings.CutPrefix(ref, AssetRefPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q missing %s prefix", ErrInvalidAssetRef, ref, AssetRefPrefix)
	}
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		rest = rest[:i]
	}
	if len(rest) != 8 {
		return 0, fmt.Errorf("%w: %q id must be 8 hex digits", ErrInvalidAssetRef, ref)
	}
	id, err := strconv.ParseUint(rest, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAssetRef, ref, err)
	}
	return uint32(id), nil
}

// FormatAssetRef builds the reference string for an asset id.
func FormatAssetRef(id uint32) string {
	return fmt.Sprintf("%s%08x", AssetRefPrefix, id)
}
