package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/matzehuels/printomat/pkg/errors"
)

// SourceKind is the ingestion path a file takes.
type SourceKind int

const (
	// SourceUnsupported files are skipped.
	SourceUnsupported SourceKind = iota
	// SourceImage files are decoded as rasters.
	SourceImage
	// SourcePaged files are opened as paged documents.
	SourcePaged
)

var extensions = map[string]SourceKind{
	".jpg":  SourceImage,
	".jpeg": SourceImage,
	".png":  SourceImage,
	".gif":  SourceImage,
	".tif":  SourceImage,
	".tiff": SourceImage,
	".bmp":  SourceImage,
	".webp": SourceImage,
	".pdf":  SourcePaged,
}

// KindOf classifies name by its extension, case-insensitively.
func KindOf(name string) SourceKind {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// IsSupported reports whether name has an extension ingestion accepts.
func IsSupported(name string) bool {
	return KindOf(name) != SourceUnsupported
}

// ListSources returns the supported files in dir, sorted by name.
func ListSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "list %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsSupported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// SanitizeFilename reduces name to a safe ASCII basename. It strips accents,
// drops path separators, turns whitespace into underscores and removes every
// character outside [A-Za-z0-9_.-]. The result may be empty.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return ' '
		case r > unicode.MaxASCII:
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), "_")
	name = strings.Map(func(r rune) rune {
		if r == '_' || r == '.' || r == '-' ||
			('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			return r
		}
		return -1
	}, name)
	return strings.Trim(name, "._")
}
