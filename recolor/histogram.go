package recolor

import (
	"image"
	"sort"

	"github.com/Erusel/palettegen/palette"
)

// ColorCount is a color and the number of pixels using it.
type ColorCount struct {
	Color palette.Color
	Count int
}

// Histogram returns every distinct RGB value in m along with how many
// pixels use it, most frequent first. Fully transparent pixels are not
// counted.
func Histogram(m image.Image) []ColorCount {
	src, ok := m.(*image.NRGBA)
	if !ok {
		src = newNRGBA(m)
	}
	b := src.Rect

	counts := make(map[uint32]int)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := src.PixOffset(b.Min.X, y)
		row := src.Pix[i : i+b.Dx()*4]
		for j := 0; j < len(row); j += 4 {
			if row[j+3] == 0 {
				continue
			}
			counts[uint32(row[j])<<16|uint32(row[j+1])<<8|uint32(row[j+2])]++
		}
	}

	h := make([]ColorCount, 0, len(counts))
	for k, n := range counts {
		h = append(h, ColorCount{
			Color: palette.Color{R: uint8(k >> 16), G: uint8(k >> 8), B: uint8(k)},
			Count: n,
		})
	}
	sort.Slice(h, func(i, j int) bool {
		if h[i].Count != h[j].Count {
			return h[i].Count > h[j].Count
		}
		return h[i].Color.Packed() < h[j].Color.Packed()
	})
	return h
}
