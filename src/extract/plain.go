package extract

import (
	"bytes"
	"strings"
)

// Plain reads a text or markdown file as UTF-8 and trims surrounding
// whitespace. A UTF-8 BOM is stripped if present.
func Plain(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return strings.TrimSpace(string(data))
}
