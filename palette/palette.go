/*
Package palette implements the color and palette values used to drive a
recolor, along with the JSON document format palettes are imported from and
exported to.

Colors are opaque 8-bit RGB triples written as "#RRGGBB". Parsing accepts
either case and an optional leading '#', formatting is always uppercase.
*/
package palette

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errBadColor = errors.New("palette: invalid color")

// Color is an RGB triple without alpha. Two colors are equal only if all
// three channels are equal.
type Color struct {
	R, G, B uint8
}

// ParseColor parses a "#RRGGBB" or "RRGGBB" string
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("%w: %q", errBadColor, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", errBadColor, s)
	}
	return Color{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// Hex returns the color as an uppercase "#RRGGBB" string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c Color) String() string {
	return c.Hex()
}

// Packed returns the color as a 24-bit 0xRRGGBB value.
func (c Color) Packed() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// MarshalText implements encoding.TextMarshaler
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Palette is an ordered list of colors. A source and a target palette are
// paired by index.
type Palette []Color

// ParsePalette parses each string with ParseColor.
func ParsePalette(s []string) (Palette, error) {
	p := make(Palette, 0, len(s))
	for _, h := range s {
		c, err := ParseColor(h)
		if err != nil {
			return nil, err
		}
		p = append(p, c)
	}
	return p, nil
}

// Hex returns every color in p as a "#RRGGBB" string.
func (p Palette) Hex() []string {
	s := make([]string, len(p))
	for i, c := range p {
		s[i] = c.Hex()
	}
	return s
}

func (p Palette) String() string {
	return strings.Join(p.Hex(), " ")
}
