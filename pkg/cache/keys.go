package cache

import (
	"encoding/json"

	"github.com/fbecker/strategraph/pkg/graph"
)

// Keyer derives cache keys for rendered artifacts.
type Keyer interface {
	// ArtifactKey returns the key for one rendered output of the
	// document identified by docHash.
	ArtifactKey(docHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts captures every input that changes rendered bytes.
// Two renders with equal document hash and equal opts are
// interchangeable.
type ArtifactKeyOpts struct {
	View     string  `json:"view,omitempty"`     // canvas or diagram
	Format   string  `json:"format"`             // svg, png, pdf, dot
	Scale    float64 `json:"scale,omitempty"`    // raster scale, png only
	Detailed bool    `json:"detailed,omitempty"` // parameter payloads in labels
}

// DocumentHash returns a content hash of a graph document. Node order,
// positions, connections and parameter payloads all contribute, so any
// edit produces a new hash.
func DocumentHash(doc graph.Document) string {
	raw, _ := json.Marshal(doc)
	return Hash(raw)
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

func NewDefaultKeyer() *DefaultKeyer { return &DefaultKeyer{} }

func (DefaultKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", docHash, opts)
}

// ScopedKeyer namespaces another Keyer's keys under a fixed scope,
// typically a stored document ID. Scoped entries for one document can
// then be invalidated without touching the rest of the cache.
type ScopedKeyer struct {
	inner Keyer
	scope string
}

func NewScopedKeyer(inner Keyer, scope string) *ScopedKeyer {
	return &ScopedKeyer{inner: inner, scope: scope}
}

func (k *ScopedKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	return k.scope + "/" + k.inner.ArtifactKey(docHash, opts)
}

var (
	_ Keyer = (*DefaultKeyer)(nil)
	_ Keyer = (*ScopedKeyer)(nil)
)
