// Package versioning names and writes successive versions of a document.
//
// Every derived file is named <stem>.<n> next to its source. The number only
// ever grows: a version, once issued, is never reused or overwritten. A
// [Path] remembers both the ingested version, which transformations re-read,
// and the latest version written.
package versioning

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Path locates one version in a versioned chain.
type Path struct {
	Dir  string
	Stem string
	// Origin is the version produced by ingestion.
	Origin int
	// Version is the latest version issued.
	Version int
}

// Parse splits path into its directory, stem and numeric version. A name
// without a numeric extension is version 0 and its stem drops the
// extension, so "photo.jpg" yields stem "photo".
func Parse(path string) Path {
	dir, name := filepath.Split(path)
	dir = filepath.Clean(dir)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if n, err := strconv.Atoi(strings.TrimPrefix(ext, ".")); err == nil && n > 0 && ext != "" {
		return Path{Dir: dir, Stem: stem, Origin: n, Version: n}
	}
	return Path{Dir: dir, Stem: stem}
}

// Name returns the file name of the latest version.
func (p Path) Name() string {
	return fmt.Sprintf("%s.%d", p.Stem, p.Version)
}

// Join returns the full path of the latest version.
func (p Path) Join() string {
	return filepath.Join(p.Dir, p.Name())
}

// Ingested returns the full path of the origin version.
func (p Path) Ingested() string {
	return filepath.Join(p.Dir, fmt.Sprintf("%s.%d", p.Stem, p.Origin))
}

// Next returns the path of the following version.
func (p Path) Next() Path {
	p.Version++
	return p
}

// String implements fmt.Stringer.
func (p Path) String() string {
	return p.Join()
}
