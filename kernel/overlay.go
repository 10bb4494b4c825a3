// overlay.go - Text overlay and banner layout

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

package kernel

import (
	"image/color"
	"strings"
)

// Overlay geometry in character cells.
const (
	OverlayCols = 20
	OverlayRows = 15
)

// Overlay colors. Cyan is informational, red is fatal, green asks for a
// reboot.
var (
	ColorInfo   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	ColorFatal  = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	ColorReboot = color.RGBA{R: 50, G: 205, B: 50, A: 255}
)

const overlayFooter = "INTUITION HANDHELD"

// OverlaySnapshot is the overlay state handed to the render pipeline.
// FullScreen overlays replace the game frame; the others are drawn over it.
type OverlaySnapshot struct {
	Text       string
	Color      color.RGBA
	FullScreen bool
}

// Empty reports whether there is no text to draw.
func (s OverlaySnapshot) Empty() bool {
	return strings.TrimSpace(s.Text) == ""
}

// Lines returns the overlay text split into rows.
func (s OverlaySnapshot) Lines() []string {
	if s.Text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s.Text, "\n"), "\n")
}

// ErrorOverlay is the process-wide status text. It is owned by the
// Supervisor and mutated only from context B.
type ErrorOverlay struct {
	text       string
	color      color.RGBA
	fullScreen bool
}

func newErrorOverlay() *ErrorOverlay {
	return &ErrorOverlay{color: ColorInfo, fullScreen: true}
}

// Set replaces the overlay text and color.
func (o *ErrorOverlay) Set(text string, c color.RGBA, fullScreen bool) {
	o.text = text
	o.color = c
	o.fullScreen = fullScreen
}

// Clear empties the text, keeps c as the color for later messages and
// switches to in-game compositing.
func (o *ErrorOverlay) Clear(c color.RGBA) {
	o.text = ""
	o.color = c
	o.fullScreen = false
}

// Snapshot copies the current state.
func (o *ErrorOverlay) Snapshot() OverlaySnapshot {
	return OverlaySnapshot{Text: o.text, Color: o.color, FullScreen: o.fullScreen}
}

// bannerText lays out a centered message on the middle rows of an otherwise
// blank screen with the footer on the last row.
func bannerText(lines ...string) string {
	rows := make([]string, OverlayRows)
	start := OverlayRows / 2
	for i, line := range lines {
		if start+i >= OverlayRows-1 {
			break
		}
		rows[start+i] = line
	}
	rows[OverlayRows-1] = overlayFooter
	return layoutRows(rows)
}

// wrapText breaks msg into rows of at most OverlayCols characters, keeping
// explicit newlines.
func wrapText(msg string) string {
	var rows []string
	for _, para := range strings.Split(msg, "\n") {
		para = strings.TrimRight(para, " \t\r")
		if para == "" {
			rows = append(rows, "")
			continue
		}
		line := ""
		for _, word := range strings.Fields(para) {
			for len(word) > OverlayCols {
				if line != "" {
					rows = append(rows, line)
					line = ""
				}
				rows = append(rows, word[:OverlayCols])
				word = word[OverlayCols:]
			}
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= OverlayCols:
				line += " " + word
			default:
				rows = append(rows, line)
				line = word
			}
		}
		if line != "" {
			rows = append(rows, line)
		}
	}
	if len(rows) > OverlayRows {
		rows = rows[:OverlayRows]
	}
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(padRight(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func layoutRows(rows []string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(center(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func center(s string) string {
	if len(s) >= OverlayCols {
		return s[:OverlayCols]
	}
	left := (OverlayCols - len(s)) / 2
	return padRight(strings.Repeat(" ", left) + s)
}

func padRight(s string) string {
	if len(s) >= OverlayCols {
		return s[:OverlayCols]
	}
	return s + strings.Repeat(" ", OverlayCols-len(s))
}

var (
	uploadPrompt = bannerText("PLEASE UPLOAD", "A GAME")
	startPrompt  = bannerText("PRESS ANY KEY", "TO RUN")
	rebootPrompt = bannerText("PLEASE REBOOT", "YOUR HANDHELD")
)
