package format

import "slices"

var defaultColors = []string{"#416D9C", "#70A35E", "#EBB056", "#C74243", "#83548B", "#909291", "#557EAA"}

// Palette is an immutable list of "#RRGGBB" colors indexed by tree depth.
// The zero Palette behaves as DefaultPalette.
type Palette struct {
	colors []string
}

// NewPalette copies colors into a Palette.
func NewPalette(colors ...string) Palette {
	return Palette{colors: slices.Clone(colors)}
}

// DefaultPalette returns the built-in seven-color palette.
func DefaultPalette() Palette {
	return NewPalette(defaultColors...)
}

// IsZero reports whether p was never set.
func (p Palette) IsZero() bool { return p.colors == nil }

// Len returns the number of colors.
func (p Palette) Len() int { return len(p.resolved()) }

// At returns the color for depth, or "" past the end of the palette.
// Colors do not cycle.
func (p Palette) At(depth int) string {
	c := p.resolved()
	if depth < 0 || depth >= len(c) {
		return ""
	}
	return c[depth]
}

// Colors returns a copy of the colors.
func (p Palette) Colors() []string {
	return slices.Clone(p.resolved())
}

func (p Palette) resolved() []string {
	if p.colors == nil {
		return defaultColors
	}
	return p.colors
}
