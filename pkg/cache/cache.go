// Package cache provides byte caches for rendered previews.
//
// Three implementations share the [Cache] interface:
//   - [NullCache]: never stores anything; the default when caching is off
//   - [FileCache]: one JSON file per entry; used by the CLI
//   - [RedisCache]: shared cache for the kiosk service
//
// Keys are built by a [Keyer] from the digest of the document being
// previewed and the render parameters, so a cached preview is never served
// for a document that has since changed.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources.
	Close() error
}

// PreviewKeyOpts are the render parameters that distinguish previews of the
// same document.
type PreviewKeyOpts struct {
	Page      int  `json:"page"`
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Grayscale bool `json:"grayscale"`
}

// Keyer builds cache keys.
type Keyer interface {
	// PreviewKey returns the key of a rendered preview page.
	PreviewKey(docHash string, opts PreviewKeyOpts) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard Keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PreviewKey implements Keyer. The key is "preview:" followed by the
// SHA-256 of the digest and the JSON-encoded options.
func (DefaultKeyer) PreviewKey(docHash string, opts PreviewKeyOpts) string {
	params, _ := json.Marshal(opts)
	sum := sha256.New()
	sum.Write([]byte(docHash))
	sum.Write([]byte{0})
	sum.Write(params)
	return "preview:" + hex.EncodeToString(sum.Sum(nil))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
