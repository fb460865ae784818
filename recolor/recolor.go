/*
Package recolor implements exact-match color substitution on decoded images.

A source and a target palette are paired by index, only as far as the
shorter of the two. Any pixel whose RGB value is exactly one of the source
colors has its RGB replaced by the paired target color and keeps its alpha.
If a source color appears more than once the last pairing wins.

Input images of any color model are read as non-premultiplied 8-bit RGBA,
images without an alpha channel being fully opaque. The input is never
modified and the result never shares pixel storage with it.
*/
package recolor

import (
	"image"
	"image/color"
	"runtime"
	"sync"

	"github.com/Erusel/palettegen/palette"
)

// Images with fewer rows than this are processed on the calling goroutine
const minBandHeight = 64

type colorMap map[uint32]palette.Color

func newColorMap(source, target palette.Palette) colorMap {
	n := len(source)
	if len(target) < n {
		n = len(target)
	}
	m := make(colorMap, n)
	for i := 0; i < n; i++ {
		m[source[i].Packed()] = target[i]
	}
	return m
}

func (m colorMap) lookup(p []uint8) (palette.Color, bool) {
	c, ok := m[uint32(p[0])<<16|uint32(p[1])<<8|uint32(p[2])]
	return c, ok
}

// newNRGBA copies m into a new image with its top-left corner at (0, 0)
func newNRGBA(m image.Image) *image.NRGBA {
	b := m.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if src, ok := m.(*image.NRGBA); ok {
		width := b.Dx() * 4
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+width], src.Pix[i:i+width])
		}
		return dst
	}

	bands(b.Dy(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < b.Dx(); x++ {
				dst.SetNRGBA(x, y, color.NRGBAModel.Convert(m.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA))
			}
		}
	})
	return dst
}

// bands splits height rows into contiguous bands and calls fn for each,
// concurrently when the image is tall enough to be worth it
func bands(height int, fn func(y0, y1 int)) {
	splitBands(height, runtime.GOMAXPROCS(0), fn)
}

// splitBands is bands with at most n goroutines
func splitBands(height, n int, fn func(y0, y1 int)) {
	if limit := height / minBandHeight; n > limit {
		n = limit
	}
	if n <= 1 {
		fn(0, height)
		return
	}

	step := (height + n - 1) / n
	var wg sync.WaitGroup
	for y := 0; y < height; y += step {
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y, min(y+step, height))
	}
	wg.Wait()
}

// Recolor returns a copy of m with every pixel matching a color in source
// replaced by the paired color in target. Alpha is carried over unchanged
// and unmatched pixels are copied as they are.
func Recolor(m image.Image, source, target palette.Palette) *image.NRGBA {
	cm := newColorMap(source, target)
	dst := newNRGBA(m)
	if len(cm) == 0 {
		return dst
	}

	width := dst.Rect.Dx()
	bands(dst.Rect.Dy(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := dst.Pix[y*dst.Stride : y*dst.Stride+width*4]
			for i := 0; i < len(row); i += 4 {
				if c, ok := cm.lookup(row[i:]); ok {
					row[i+0] = c.R
					row[i+1] = c.G
					row[i+2] = c.B
				}
			}
		}
	})
	return dst
}

// Emissive is like Recolor except that unmatched pixels are left as
// transparent black, leaving only the recolored pixels visible.
func Emissive(m image.Image, source, target palette.Palette) *image.NRGBA {
	cm := newColorMap(source, target)

	src, ok := m.(*image.NRGBA)
	if !ok {
		src = newNRGBA(m)
	}
	b := src.Rect

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if len(cm) == 0 {
		return dst
	}

	width := b.Dx() * 4
	bands(b.Dy(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			in := src.Pix[i : i+width]
			out := dst.Pix[y*dst.Stride : y*dst.Stride+width]
			for j := 0; j < width; j += 4 {
				if c, ok := cm.lookup(in[j:]); ok {
					out[j+0] = c.R
					out[j+1] = c.G
					out[j+2] = c.B
					out[j+3] = in[j+3]
				}
			}
		}
	})
	return dst
}
