package ingest

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/agentstation/reconify/pkg/errors"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decode detects the encoding of raw upload bytes, strips any BOM, and
// returns UTF-8 along with the detected encoding name. Uploads come from
// whatever tool exported the panel, so the fallback chain is permissive:
// BOM-marked UTF-16, then valid UTF-8, then Windows-1252 (a superset of
// printable Latin-1, which covers the usual Excel exports).
func decode(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return data, "utf-8", nil
	}

	if bytes.HasPrefix(data, bomUTF8) {
		return data[len(bomUTF8):], "utf-8", nil
	}

	if bytes.HasPrefix(data, bomUTF16LE) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return nil, "", errors.WrapParse("utf-16le", "", err)
		}
		return out, "utf-16le", nil
	}

	if bytes.HasPrefix(data, bomUTF16BE) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return nil, "", errors.WrapParse("utf-16be", "", err)
		}
		return out, "utf-16be", nil
	}

	if utf8.Valid(data) {
		return data, "utf-8", nil
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", errors.WrapParse("windows-1252", "", err)
	}
	return out, "windows-1252", nil
}
