// compositor.go - Frame composition of scene and overlay

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionHandheld
License: GPLv3 or later
*/

package display

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/intuitionamiga/IntuitionHandheld/kernel"
)

var black = color.RGBA{A: 255}

type textCell struct {
	ch    byte
	color color.RGBA
}

// Compositor rasterizes the text grid over a background into an RGBA frame.
// Scene text and overlay text share the grid; overlay cells win.
type Compositor struct {
	frame  *image.RGBA
	cells  [kernel.OverlayRows][kernel.OverlayCols]textCell
	face   font.Face
	ascent int
}

// NewCompositor allocates a FrameWidth x FrameHeight frame.
func NewCompositor() *Compositor {
	face := basicfont.Face7x13
	return &Compositor{
		frame:  image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight)),
		face:   face,
		ascent: face.Ascent,
	}
}

// ClearText empties the text grid.
func (c *Compositor) ClearText() {
	c.cells = [kernel.OverlayRows][kernel.OverlayCols]textCell{}
}

// PutText writes s into the grid starting at col,row, clipping at the edges.
func (c *Compositor) PutText(s string, col, row int, clr color.RGBA) {
	if row < 0 || row >= kernel.OverlayRows {
		return
	}
	for i := 0; i < len(s); i++ {
		x := col + i
		if x < 0 {
			continue
		}
		if x >= kernel.OverlayCols {
			break
		}
		c.cells[row][x] = textCell{ch: s[i], color: clr}
	}
}

// Compose draws one frame. A full-screen overlay replaces the scene with a
// black screen; otherwise the overlay text lands on top of the game.
func (c *Compositor) Compose(scene Scene, overlay kernel.OverlaySnapshot) *image.RGBA {
	bg := scene.Background
	if overlay.FullScreen {
		bg = black
	} else {
		for _, t := range scene.Texts {
			c.PutText(t.Text, t.Col, t.Row, t.Color)
		}
	}
	if bg.A == 0 {
		bg = black
	}
	draw.Draw(c.frame, c.frame.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for row, line := range overlay.Lines() {
		for col := 0; col < len(line) && col < kernel.OverlayCols; col++ {
			if line[col] == ' ' {
				continue
			}
			if row < kernel.OverlayRows {
				c.cells[row][col] = textCell{ch: line[col], color: overlay.Color}
			}
		}
	}

	d := font.Drawer{Dst: c.frame, Face: c.face}
	for row := range c.cells {
		for col, cell := range c.cells[row] {
			if cell.ch == 0 || cell.ch == ' ' {
				continue
			}
			d.Src = image.NewUniform(cell.color)
			d.Dot = c.cellOrigin(col, row)
			d.DrawString(string(rune(cell.ch)))
		}
	}
	return c.frame
}

// Pixels returns the raw RGBA bytes of the last composed frame.
func (c *Compositor) Pixels() []byte {
	return c.frame.Pix
}

func (c *Compositor) cellOrigin(col, row int) fixed.Point26_6 {
	const glyphW, glyphH = 7, 13
	x := col*CellWidth + (CellWidth-glyphW)/2
	y := row*CellHeight + (CellHeight-glyphH)/2 + c.ascent
	return fixed.P(x, y)
}
