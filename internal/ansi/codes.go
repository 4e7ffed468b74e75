// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package ansi

import (
	"fmt"
	"strconv"
	"strings"
)

// codeToSGR maps MU* format codes to SGR sequences.
// Style codes: n (reset), h (bold), u (underline), i (italic), d (dim)
// Color codes: r/R (red), g/G (green), b/B (blue), c/C (cyan),
//
//	m/M (magenta), y/Y (yellow), w/W (white), x (black)
//
// Lowercase = normal, uppercase = bright
var codeToSGR = map[byte]string{
	// Style codes
	'n': Reset,
	'h': Bold,
	'u': Underline,
	'i': Italic,
	'd': Dim,

	// Normal color codes
	'r': FgRed,
	'g': FgGreen,
	'b': FgBlue,
	'c': FgCyan,
	'm': FgMagenta,
	'y': FgYellow,
	'w': FgWhite,
	'x': FgBlack,

	// Bright color codes
	'R': FgBrightRed,
	'G': FgBrightGreen,
	'B': FgBrightBlue,
	'C': FgBrightCyan,
	'M': FgBrightMagenta,
	'Y': FgBrightYellow,
	'W': FgBrightWhite,
}

// whitespaceCodes maps whitespace shorthands. %r expands to CRLF because
// connection output is CRLF-terminated on every transport.
var whitespaceCodes = map[byte]string{
	'r': "\r\n",
	'b': " ",
	't': "    ",
}

// Expand converts text containing MU* %x format codes to ANSI escapes.
//
// Supported codes:
//   - Style: %xn (reset), %xh (bold), %xu (underline), %xi (italic), %xd (dim)
//   - Colors: %xr/%xR (red), %xg/%xG (green), %xb/%xB (blue), %xc/%xC (cyan),
//     %xm/%xM (magenta), %xy/%xY (yellow), %xw/%xW (white), %xx (black)
//   - 256-color: %x### where ### is a 3-digit color number (000-255)
//   - Whitespace: %r (newline), %b (space), %t (tab)
//
// Unknown codes are preserved as-is. Percent signs not followed by a
// valid code are also preserved.
func Expand(text string) string {
	if !strings.ContainsRune(text, '%') {
		return text
	}

	var result strings.Builder
	result.Grow(len(text))
	i := 0

	for i < len(text) {
		if text[i] == '%' && i+1 < len(text) {
			// Whitespace codes (%r, %b, %t)
			if ws, ok := whitespaceCodes[text[i+1]]; ok {
				result.WriteString(ws)
				i += 2
				continue
			}

			// %x codes
			if text[i+1] == 'x' && i+2 < len(text) {
				// 256-color code (%x###)
				if i+4 < len(text) && isDigit(text[i+2]) && isDigit(text[i+3]) && isDigit(text[i+4]) {
					num, err := strconv.Atoi(text[i+2 : i+5])
					if err == nil && num >= 0 && num <= 255 {
						result.WriteString(fmt.Sprintf("\x1b[38;5;%dm", num))
						i += 5
						continue
					}
				}

				// Single-character code
				if sgr, ok := codeToSGR[text[i+2]]; ok {
					result.WriteString(sgr)
					i += 3
					continue
				}
			}

			// Unknown code, preserve as-is
			result.WriteByte(text[i])
			i++
		} else {
			result.WriteByte(text[i])
			i++
		}
	}

	return result.String()
}

// isDigit returns true if the byte is an ASCII digit.
func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
