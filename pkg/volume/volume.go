// Package volume bakes dense voxel grids into 3D RGBA textures.
package volume

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelizer/internal/workpool"
	"github.com/Faultbox/voxelizer/pkg/voxel"
)

// Texture is a W*H*D RGBA volume with one texel per grid cell, stored in
// grid index order: texel i is cell i.
type Texture struct {
	Width, Height, Depth int
	Pix                  []uint8 // 4 bytes per texel
}

// Index returns the texel index of (x, y, z), or -1 outside the volume.
func (t *Texture) Index(x, y, z int) int {
	if x < 0 || y < 0 || z < 0 || x >= t.Width || y >= t.Height || z >= t.Depth {
		return -1
	}
	return x + y*t.Width + z*t.Width*t.Height
}

// At returns the texel at (x, y, z).
func (t *Texture) At(x, y, z int) color.RGBA {
	i := t.Index(x, y, z)
	if i < 0 {
		return color.RGBA{}
	}
	p := t.Pix[i*4 : i*4+4]
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Slice copies layer z into a 2D image. Grid row y maps to image row
// Height-1-y so +Y points up.
func (t *Texture) Slice(z int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	if z < 0 || z >= t.Depth {
		return img
	}
	for y := range t.Height {
		src := (z*t.Width*t.Height + y*t.Width) * 4
		dst := img.PixOffset(0, t.Height-1-y)
		copy(img.Pix[dst:dst+t.Width*4], t.Pix[src:src+t.Width*4])
	}
	return img
}

// Options controls Build.
type Options struct {
	// Lookup colors occupied texels by their UV. UVs wrap and V = 0 is the
	// bottom row of the image. Nil paints occupied texels white.
	Lookup image.Image

	Workers int
}

// Build bakes g into a texture. Occupancy drives alpha: 255 for occupied
// cells, 0 with black RGB for empty ones.
func Build(g *voxel.Grid, opts Options) (*Texture, error) {
	if g.Released() {
		return nil, voxel.ErrGridReleased
	}
	cells := g.Cells()
	t := &Texture{
		Width:  g.Width(),
		Height: g.Height(),
		Depth:  g.Depth(),
		Pix:    make([]uint8, len(cells)*4),
	}

	workpool.Chunks(len(cells), 4096, workpool.Workers(opts.Workers), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			c := cells[i]
			if !c.Flag {
				continue
			}
			rgba := color.RGBA{R: 255, G: 255, B: 255, A: 255}
			if opts.Lookup != nil {
				rgba = sample(opts.Lookup, c.UV.X, c.UV.Y)
				rgba.A = 255
			}
			p := t.Pix[i*4 : i*4+4 : i*4+4]
			p[0], p[1], p[2], p[3] = rgba.R, rgba.G, rgba.B, rgba.A
		}
	})
	return t, nil
}

// sample returns the nearest pixel of img at (u, v).
func sample(img image.Image, u, v float32) color.RGBA {
	b := img.Bounds()
	if b.Empty() {
		return color.RGBA{}
	}
	u -= math32.Floor(u)
	v -= math32.Floor(v)
	x := b.Min.X + min(int(u*float32(b.Dx())), b.Dx()-1)
	y := b.Max.Y - 1 - min(int(v*float32(b.Dy())), b.Dy()-1)
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}
