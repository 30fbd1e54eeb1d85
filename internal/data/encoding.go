package data

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeUTF8 normalizes a document payload to UTF-8. The ETL scrapes a
// Chinese documentation site, so payloads occasionally arrive as UTF-16
// or GB18030 instead of plain UTF-8.
func DecodeUTF8(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF8) {
		return data[len(bomUTF8):], nil
	}

	if bytes.HasPrefix(data, bomUTF16LE) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		return out, err
	}
	if bytes.HasPrefix(data, bomUTF16BE) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		return out, err
	}

	if utf8.Valid(data) {
		return data, nil
	}

	decoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
	if err != nil {
		// Leave it to the JSON decoder to report the real failure.
		return data, nil
	}
	return decoded, nil
}
