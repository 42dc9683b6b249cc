package upload

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-enry/go-enry/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrBinaryContent means the file looks like a binary stream.
	ErrBinaryContent = errors.New("binary content")
	// ErrNotText means the file is not valid UTF-8 after BOM handling.
	ErrNotText = errors.New("content is not valid UTF-8 text")
)

// decodeText turns raw file bytes into text. A UTF-8 BOM is stripped and
// UTF-16 content with a BOM is converted; everything else must already be
// valid UTF-8.
func decodeText(raw []byte) (string, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	if enry.IsBinary(decoded) {
		return "", ErrBinaryContent
	}
	if !utf8.Valid(decoded) {
		return "", ErrNotText
	}
	return string(decoded), nil
}
