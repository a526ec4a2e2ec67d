// Package stmt compiles per-operation statement builders into wire text.
// Builders expose mutators; every mutator bumps a monotonic version counter
// and Compile rebuilds only when its cached version stamp falls behind. A
// builder is single-writer; re-executing an already-compiled, non-dirty
// statement from several goroutines is safe.
package stmt

// Compiled is the cached result of one Compile call: the wire-text
// fragments, the elementary-statement count, and the version stamp the
// build observed.
type Compiled struct {
	Statements []string
	Count      int
	Version    uint64
}

// Statement is the contract shared by builders and aggregates.
type Statement interface {
	// Compile returns the wire text, memoized by version stamp.
	Compile() ([]string, error)
	// Count returns the elementary-statement count, coherent with Compile.
	Count() (int, error)
	// Version returns the current mutator version.
	Version() uint64
	// Invalidate forces recompilation on next Compile. Recursive
	// invalidation descends into an aggregate's members; for elementary
	// builders the flag has no further effect.
	Invalidate(recursive bool)
	// Options returns execution options forwarded opaquely to the session.
	Options() map[string]any
}

// core carries the version counter and compilation cache every builder
// embeds. Mutators call bump; Compile goes through build.
type core struct {
	version uint64
	cache   *Compiled
	options map[string]any
}

func (c *core) bump() { c.version++ }

// Version returns the current mutator version.
func (c *core) Version() uint64 { return c.version }

// Invalidate bumps the version so the next Compile rebuilds.
func (c *core) Invalidate(recursive bool) { c.bump() }

// Options returns the opaque execution options.
func (c *core) Options() map[string]any { return c.options }

func (c *core) setOption(key string, value any) {
	if c.options == nil {
		c.options = make(map[string]any)
	}
	c.options[key] = value
	c.bump()
}

// build memoizes fn's output against the current version.
func (c *core) build(fn func() ([]string, error)) (*Compiled, error) {
	if c.cache != nil && c.cache.Version == c.version {
		return c.cache, nil
	}
	texts, err := fn()
	if err != nil {
		return nil, err
	}
	c.cache = &Compiled{Statements: texts, Count: len(texts), Version: c.version}
	return c.cache, nil
}
