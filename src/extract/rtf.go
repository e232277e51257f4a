package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// destinations whose group content is metadata rather than document
// text and must be skipped entirely
var rtfSkipGroups = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"header":     true,
	"footer":     true,
	"themedata":  true,
}

// RTF extracts the plain text of a rich-text document. It walks the
// token stream, drops formatting control words and metadata groups,
// and keeps the visible text, translating \par and \line into
// newlines and hex escapes into their characters.
func RTF(data []byte) (string, error) {
	src := string(data)
	if !strings.HasPrefix(src, `{\rtf`) {
		return "", fmt.Errorf("not an RTF document")
	}

	var out strings.Builder
	skipDepth := 0 // depth of the group being skipped, 0 when not skipping
	depth := 0

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			depth++
		case '}':
			if skipDepth > 0 && depth == skipDepth {
				skipDepth = 0
			}
			depth--
		case '\\':
			if i+1 >= len(src) {
				break
			}
			next := src[i+1]

			// escaped literals
			if next == '\\' || next == '{' || next == '}' {
				if skipDepth == 0 {
					out.WriteByte(next)
				}
				i++
				continue
			}

			// hex escape \'hh
			if next == '\'' && i+3 < len(src) {
				if b, err := strconv.ParseUint(src[i+2:i+4], 16, 8); err == nil {
					if skipDepth == 0 {
						out.WriteByte(byte(b))
					}
					i += 3
					continue
				}
			}

			// \* marks an optional destination; skip its group
			if next == '*' {
				if skipDepth == 0 {
					skipDepth = depth
				}
				i++
				continue
			}

			word, param, width := readControlWord(src[i+1:])
			i += width

			if skipDepth > 0 {
				continue
			}

			switch word {
			case "par", "line":
				out.WriteByte('\n')
			case "tab":
				out.WriteByte('\t')
			case "u":
				// unicode escape with a replacement character after it;
				// code points above 32767 arrive as negative 16-bit values
				if param < 0 {
					param += 65536
				}
				out.WriteRune(rune(param))
				if i+1 < len(src) && src[i+1] == '?' {
					i++
				}
			default:
				if rtfSkipGroups[word] {
					skipDepth = depth
				}
			}
		case '\r', '\n':
			// raw newlines in RTF source are not document text
		default:
			if skipDepth == 0 {
				out.WriteByte(c)
			}
		}
	}

	return strings.TrimSpace(out.String()), nil
}

// readControlWord parses a control word starting right after the
// backslash and returns the word, its numeric parameter and the number
// of bytes consumed (including an optional trailing space delimiter).
func readControlWord(s string) (word string, param int, width int) {
	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	word = s[:i]

	start := i
	if i < len(s) && (s[i] == '-' || isDigit(s[i])) {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		param, _ = strconv.Atoi(s[start:i])
	}

	width = i
	if i < len(s) && s[i] == ' ' {
		width++
	}
	return word, param, width
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
