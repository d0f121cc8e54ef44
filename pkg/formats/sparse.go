package formats

import (
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"

	"github.com/Faultbox/voxelizer/pkg/math"
	"github.com/Faultbox/voxelizer/pkg/voxel"
)

// SparseDocument is the JSON form of a sparse voxel list.
type SparseDocument struct {
	Unit   float32       `json:"unit"`
	Count  int           `json:"count"`
	Voxels []SparseVoxel `json:"voxels"`
}

// SparseVoxel is one voxel of a SparseDocument.
type SparseVoxel struct {
	Position [3]float32 `json:"position"`
	Size     float32    `json:"size"`
}

// NewSparseDocument wraps voxels for encoding.
func NewSparseDocument(voxels []voxel.Voxel) SparseDocument {
	doc := SparseDocument{Count: len(voxels), Voxels: make([]SparseVoxel, len(voxels))}
	for i, v := range voxels {
		doc.Voxels[i] = SparseVoxel{Position: [3]float32{v.Position.X, v.Position.Y, v.Position.Z}, Size: v.Size}
	}
	if len(voxels) > 0 {
		doc.Unit = voxels[0].Size
	}
	return doc
}

// ToVoxels converts the document back to voxels.
func (d SparseDocument) ToVoxels() []voxel.Voxel {
	out := make([]voxel.Voxel, len(d.Voxels))
	for i, v := range d.Voxels {
		out[i] = voxel.Voxel{Position: math.Vec3{X: v.Position[0], Y: v.Position[1], Z: v.Position[2]}, Size: v.Size}
	}
	return out
}

// WriteSparseJSON encodes voxels as a SparseDocument.
func WriteSparseJSON(w io.Writer, voxels []voxel.Voxel, indent bool) error {
	var (
		data []byte
		err  error
	)
	doc := NewSparseDocument(voxels)
	if indent {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encoding sparse voxels: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing sparse voxels: %w", err)
	}
	return nil
}

// ParseSparseJSON decodes a SparseDocument.
func ParseSparseJSON(data []byte) ([]voxel.Voxel, error) {
	var doc SparseDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding sparse voxels: %w", err)
	}
	if doc.Count != len(doc.Voxels) {
		return nil, fmt.Errorf("decoding sparse voxels: count %d but %d voxels", doc.Count, len(doc.Voxels))
	}
	return doc.ToVoxels(), nil
}
