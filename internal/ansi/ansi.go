// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package ansi provides the ANSI escape helpers shared by the transport
// variants: SGR constants for server-generated text, arrow-key sequences
// for clients that send named keys, and ANSI-to-HTML conversion for
// browser clients that render HTML instead of terminal escapes.
package ansi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SGR sequences for server-generated text. Terminal clients render these
// directly; browser clients receive them converted by ToHTML.
const (
	Reset     = "\x1b[0m"
	Bold      = "\x1b[1m"
	Dim       = "\x1b[2m"
	Italic    = "\x1b[3m"
	Underline = "\x1b[4m"

	FgBlack   = "\x1b[30m"
	FgRed     = "\x1b[31m"
	FgGreen   = "\x1b[32m"
	FgYellow  = "\x1b[33m"
	FgBlue    = "\x1b[34m"
	FgMagenta = "\x1b[35m"
	FgCyan    = "\x1b[36m"
	FgWhite   = "\x1b[37m"

	FgBrightBlack   = "\x1b[90m"
	FgBrightRed     = "\x1b[91m"
	FgBrightGreen   = "\x1b[92m"
	FgBrightYellow  = "\x1b[93m"
	FgBrightBlue    = "\x1b[94m"
	FgBrightMagenta = "\x1b[95m"
	FgBrightCyan    = "\x1b[96m"
	FgBrightWhite   = "\x1b[97m"
)

// Arrow-key escape sequences as a VT100 terminal would produce them.
const (
	SeqUp    = "\x1b[A"
	SeqDown  = "\x1b[B"
	SeqRight = "\x1b[C"
	SeqLeft  = "\x1b[D"
)

// SpecialKeySequence translates a named special key into the literal
// escape sequence a terminal would have sent, so upstream input handling
// never needs to know which transport the key arrived on.
func SpecialKeySequence(key string) (string, bool) {
	switch strings.ToLower(key) {
	case "up":
		return SeqUp, true
	case "down":
		return SeqDown, true
	case "right":
		return SeqRight, true
	case "left":
		return SeqLeft, true
	default:
		return "", false
	}
}

var (
	sgrPattern = regexp.MustCompile("\x1b\\[([0-9;]*)m")
	csiPattern = regexp.MustCompile("\x1b\\[[0-9;?]*[A-Za-z]")

	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	// Classic VGA palette, the same mapping browser terminal emulators use.
	sgrColors = map[string]string{
		"30": "#000000", "31": "#aa0000", "32": "#00aa00", "33": "#aa5500",
		"34": "#0000aa", "35": "#aa00aa", "36": "#00aaaa", "37": "#aaaaaa",
		"90": "#555555", "91": "#ff5555", "92": "#55ff55", "93": "#ffff55",
		"94": "#5555ff", "95": "#ff55ff", "96": "#55ffff", "97": "#ffffff",
	}
)

// ToHTML converts a chunk of server output into HTML for browser clients.
// Text is HTML-escaped, newlines become <br>, every SGR reset becomes a
// closing </span>, and color/bold codes open a styled span. Escape
// sequences other than SGR are dropped.
func ToHTML(s string) string {
	out := htmlEscaper.Replace(s)

	out = sgrPattern.ReplaceAllStringFunc(out, func(seq string) string {
		params := sgrPattern.FindStringSubmatch(seq)[1]
		return sgrToHTML(params)
	})

	// Anything else in CSI form (cursor movement, erase) has no HTML
	// equivalent.
	out = csiPattern.ReplaceAllString(out, "")

	out = strings.ReplaceAll(out, "\r\n", "<br>")
	out = strings.ReplaceAll(out, "\n", "<br>")
	out = strings.ReplaceAll(out, "\r", "")
	return out
}

// sgrToHTML renders one SGR parameter list. A bare or zero parameter is a
// reset and yields a closing tag; style parameters accumulate into a
// single opening span.
func sgrToHTML(params string) string {
	if params == "" {
		return "</span>"
	}

	var b strings.Builder
	var styles []string
	parts := strings.Split(params, ";")
	for i := 0; i < len(parts); i++ {
		p := parts[i]
		switch {
		case p == "0" || p == "00":
			b.WriteString("</span>")
		case p == "1":
			styles = append(styles, "font-weight:bold")
		case p == "2":
			styles = append(styles, "opacity:0.67")
		case p == "3":
			styles = append(styles, "font-style:italic")
		case p == "4":
			styles = append(styles, "text-decoration:underline")
		case p == "38" && i+2 < len(parts) && parts[i+1] == "5":
			if hex, ok := xtermColor(parts[i+2]); ok {
				styles = append(styles, "color:"+hex)
			}
			i += 2
		default:
			if hex, ok := sgrColors[p]; ok {
				styles = append(styles, "color:"+hex)
			}
		}
	}
	if len(styles) > 0 {
		b.WriteString(`<span style="` + strings.Join(styles, ";") + `">`)
	}
	return b.String()
}

// xtermColor converts an xterm-256 color index to a hex color. Indices
// 0-15 reuse the VGA palette, 16-231 form a 6x6x6 color cube, and
// 232-255 are a grayscale ramp.
func xtermColor(s string) (string, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return "", false
	}
	switch {
	case n < 8:
		return sgrColors[strconv.Itoa(30+n)], true
	case n < 16:
		return sgrColors[strconv.Itoa(90+n-8)], true
	case n < 232:
		n -= 16
		steps := [6]int{0, 95, 135, 175, 215, 255}
		return fmt.Sprintf("#%02x%02x%02x", steps[n/36], steps[n/6%6], steps[n%6]), true
	default:
		v := 8 + (n-232)*10
		return fmt.Sprintf("#%02x%02x%02x", v, v, v), true
	}
}
