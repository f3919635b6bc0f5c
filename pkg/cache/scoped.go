package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// The API server wraps the default keyer with the single fixed prefix
// "api"; its keys are not scoped per upload session.
//
// Example usage:
//
//	// Session-specific keys for uploaded dumps
//	sessionKeyer := NewScopedKeyer(NewDefaultKeyer(), "session:abc123:")
//
//	// Global keys for shared dumps on disk
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// GraphKey generates a prefixed key for snapshot graph caching.
func (k *ScopedKeyer) GraphKey(dumpHash string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(dumpHash, opts)
}

// ReportKey generates a prefixed key for report caching.
func (k *ScopedKeyer) ReportKey(graphHash string, opts ReportKeyOpts) string {
	return k.prefix + k.inner.ReportKey(graphHash, opts)
}
