// Package formats reads and writes the mesh and voxel files used by voxtool:
// Wavefront OBJ, STL, the VXG dense grid format and sparse voxel JSON.
package formats

import (
	"path/filepath"
	"strings"
)

// Ext returns the lower-case extension of path without the dot.
func Ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
