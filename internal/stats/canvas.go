package stats

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// canvas is a grid of braille cells. Each cell holds 2x4 dots, so a canvas of width w and
// height h addresses dots in [0, 2w) x [0, 4h) with y growing downwards.
type canvas struct {
	width  int
	height int
	cells  [][]uint8
	owner  [][]int
}

func newCanvas(width, height int) *canvas {
	c := &canvas{width: width, height: height}
	c.cells = make([][]uint8, height)
	c.owner = make([][]int, height)
	for y := 0; y < height; y++ {
		c.cells[y] = make([]uint8, width)
		c.owner[y] = make([]int, width)
		for x := range c.owner[y] {
			c.owner[y][x] = -1
		}
	}
	return c
}

// dotRow maps a fraction in [0, 1] (bottom to top) onto a dot row.
func (c *canvas) dotRow(frac float64) int {
	rows := c.height * 4
	if rows <= 1 || math.IsNaN(frac) {
		return rows - 1
	}
	row := int(math.Round((1 - frac) * float64(rows-1)))
	if row < 0 {
		return 0
	}
	if row >= rows {
		return rows - 1
	}
	return row
}

func (c *canvas) set(x, y, series int) {
	if x < 0 || y < 0 {
		return
	}
	cellX, cellY := x/2, y/4
	if cellY >= c.height || cellX >= c.width {
		return
	}
	c.cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
	if c.owner[cellY][cellX] < 0 {
		c.owner[cellY][cellX] = series
	}
}

// fillColumn sets every dot of column x from the bottom edge up to row top.
func (c *canvas) fillColumn(x, top, series int) {
	for y := c.height*4 - 1; y >= top; y-- {
		c.set(x, y, series)
	}
}

func (c *canvas) render(b *strings.Builder, labels []string, useColor bool) {
	labelWidth := 0
	for _, l := range labels {
		if n := utf8.RuneCountInString(l); n > labelWidth {
			labelWidth = n
		}
	}
	for y := 0; y < c.height; y++ {
		label := ""
		if y < len(labels) {
			label = labels[y]
		}
		fmt.Fprintf(b, "%*s%s", labelWidth, label, axisSeparator)
		for x := 0; x < c.width; x++ {
			ch := brailleFromMask(c.cells[y][x])
			if useColor && c.owner[y][x] >= 0 {
				b.WriteString(colorPalette[c.owner[y][x]%len(colorPalette)])
				b.WriteRune(ch)
				b.WriteString(colorReset)
				continue
			}
			b.WriteRune(ch)
		}
		b.WriteByte('\n')
	}
}

func brailleDotMask(x, y int) uint8 {
	// Dots 1-3 and 4-6 run down the left and right columns, dots 7 and 8 sit on the bottom row.
	left := [4]uint8{0x01, 0x02, 0x04, 0x40}
	right := [4]uint8{0x08, 0x10, 0x20, 0x80}
	if y < 0 || y > 3 {
		return 0
	}
	switch x {
	case 0:
		return left[y]
	case 1:
		return right[y]
	default:
		return 0
	}
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
