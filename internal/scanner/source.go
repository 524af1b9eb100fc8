package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SourceExtensions are the file extensions recognised as macro sources.
var SourceExtensions = []string{".stex", ".sex"}

// OutputExtension is the extension of generated files.
const OutputExtension = ".tex"

// IsSourcePath reports whether path carries a source extension.
func IsSourcePath(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range SourceExtensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// OutputPath returns the generated file name for a source path: the source
// extension is swapped for .tex, any other name gets .tex appended.
func OutputPath(path string) string {
	if IsSourcePath(path) {
		return strings.TrimSuffix(path, filepath.Ext(path)) + OutputExtension
	}
	return path + OutputExtension
}

// LoadSource reads a source file and normalises its encoding.
func LoadSource(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeSource(raw)
}

// DecodeSource strips a UTF-8 byte order mark and converts UTF-16 input
// announced by a BOM to UTF-8. Input without a BOM is returned as is.
func DecodeSource(raw []byte) ([]byte, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
