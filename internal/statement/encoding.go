package statement

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names accepted in ImportOptions.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode converts raw statement bytes to UTF-8 text. An explicit encoding
// wins; otherwise the byte-order mark, then a UTF-8 validity probe, decide.
// Bank portals commonly serve Windows-1252 exports without any declaration.
func decode(raw []byte, encoding string) (string, error) {
	switch encoding {
	case "":
		return decode(raw, detectEncoding(raw))
	case EncodingUTF8, "utf8":
		return string(bytes.TrimPrefix(raw, utf8BOM)), nil
	case EncodingWindows1252, "latin1", "iso-8859-1":
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("decoding windows-1252: %w", err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// detectEncoding picks utf-8 when a BOM is present or the bytes are valid
// UTF-8; otherwise the high bytes are Latin characters from a single-byte
// Western-European export.
func detectEncoding(raw []byte) string {
	if bytes.HasPrefix(raw, utf8BOM) {
		return EncodingUTF8
	}
	if utf8.Valid(raw) {
		return EncodingUTF8
	}
	return EncodingWindows1252
}
