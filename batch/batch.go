// Package batch composes compiled statements into aggregates. Three kinds
// exist with distinct flattening rules: a Batch inlines nested Batches only,
// a Sequence nested Sequences only, a Group nested Groups only. Members of
// another kind, and same-kind members carrying their own options, stay
// opaque, preserving the caller's intended execution granularity.
package batch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cqlforge/cqlforge/exec"
	"github.com/cqlforge/cqlforge/stmt"
)

// Kind selects the aggregate's composition rule and wire keyword.
type Kind int

const (
	KindBatch Kind = iota
	KindSequence
	KindGroup
)

func (k Kind) keyword() string {
	switch k {
	case KindSequence:
		return "SEQUENCE"
	case KindGroup:
		return "GROUP"
	default:
		return "BATCH"
	}
}

// String returns the wire keyword.
func (k Kind) String() string { return k.keyword() }

// Aggregate is a composite statement. It implements stmt.Statement; its
// version stamp covers its own mutations plus every member's, so a member
// edit transparently invalidates the aggregate's cache.
type Aggregate struct {
	kind     Kind
	members  []stmt.Statement
	version  uint64
	cache    *stmt.Compiled
	options  map[string]any
	handlers []func(error)
	logger   *zap.Logger
}

// New builds an aggregate of the given kind.
func New(kind Kind, members ...stmt.Statement) *Aggregate {
	return &Aggregate{kind: kind, members: members, version: 1, logger: zap.NewNop()}
}

// NewBatch builds a Batch aggregate.
func NewBatch(members ...stmt.Statement) *Aggregate { return New(KindBatch, members...) }

// NewSequence builds a Sequence aggregate.
func NewSequence(members ...stmt.Statement) *Aggregate { return New(KindSequence, members...) }

// NewGroup builds a Group aggregate.
func NewGroup(members ...stmt.Statement) *Aggregate { return New(KindGroup, members...) }

// Kind returns the aggregate's composition kind.
func (a *Aggregate) Kind() Kind { return a.kind }

// Add appends members.
func (a *Aggregate) Add(members ...stmt.Statement) *Aggregate {
	a.members = append(a.members, members...)
	a.version++
	return a
}

// WithOption forwards an opaque execution option to the session. An
// aggregate carrying options is never unwrapped, even with a sole member.
func (a *Aggregate) WithOption(key string, value any) *Aggregate {
	if a.options == nil {
		a.options = make(map[string]any)
	}
	a.options[key] = value
	a.version++
	return a
}

// OnError registers an execution-failure handler. Handlers run in reverse
// registration order; a handler's own panic is logged, never propagated.
func (a *Aggregate) OnError(fn func(error)) *Aggregate {
	a.handlers = append(a.handlers, fn)
	return a
}

// WithLogger sets the logger used for handler isolation and member skips.
func (a *Aggregate) WithLogger(logger *zap.Logger) *Aggregate {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Options implements stmt.Statement.
func (a *Aggregate) Options() map[string]any { return a.options }

// Version implements stmt.Statement. The stamp folds in every member's
// version so the cache stays coherent under member mutation.
func (a *Aggregate) Version() uint64 {
	v := a.version
	for _, m := range a.members {
		v += m.Version()
	}
	return v
}

// Invalidate implements stmt.Statement. The recursive flag additionally
// invalidates every member.
func (a *Aggregate) Invalidate(recursive bool) {
	a.version++
	if !recursive {
		return
	}
	for _, m := range a.members {
		m.Invalidate(true)
	}
}

// Compile implements stmt.Statement. All members empty yields no output; a
// sole non-empty member with no aggregate options compiles unwrapped;
// otherwise the flattened statements are wrapped as
// BEGIN <KIND> ... APPLY <KIND>.
func (a *Aggregate) Compile() ([]string, error) {
	c, err := a.build()
	if err != nil {
		return nil, err
	}
	return c.Statements, nil
}

// Count implements stmt.Statement: the live elementary-statement count,
// coherent with the version stamp. Callers poll it to decide when to flush a
// growing aggregate.
func (a *Aggregate) Count() (int, error) {
	c, err := a.build()
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

func (a *Aggregate) build() (*stmt.Compiled, error) {
	stamp := a.Version()
	if a.cache != nil && a.cache.Version == stamp {
		return a.cache, nil
	}
	chunks, err := a.flatten()
	if err != nil {
		return nil, err
	}
	elementary := 0
	for _, chunk := range chunks {
		elementary += len(chunk)
	}
	var out []string
	switch {
	case elementary == 0:
		out = nil
	case len(chunks) == 1 && len(a.options) == 0:
		out = chunks[0]
	default:
		out = []string{a.wrap(chunks)}
	}
	a.cache = &stmt.Compiled{Statements: out, Count: elementary, Version: stamp}
	return a.cache, nil
}

// flatten compiles every member into per-member statement chunks. Nested
// aggregates of the same kind are inlined member by member unless they carry
// options, which inlining would discard; everything else contributes its
// compiled output as one opaque chunk. A member failing with
// EmptyOptionalKeyError is skipped; its siblings still compile.
func (a *Aggregate) flatten() ([][]string, error) {
	var chunks [][]string
	for _, m := range a.members {
		if nested, ok := m.(*Aggregate); ok && nested.kind == a.kind && len(nested.options) == 0 {
			sub, err := nested.flatten()
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, sub...)
			continue
		}
		texts, err := m.Compile()
		if err != nil {
			if stmt.IsEmptyOptionalKey(err) {
				a.logger.Debug("skipping aggregate member", zap.Error(err))
				continue
			}
			return nil, err
		}
		if len(texts) > 0 {
			chunks = append(chunks, texts)
		}
	}
	return chunks, nil
}

func (a *Aggregate) wrap(chunks [][]string) string {
	kw := a.kind.keyword()
	var b strings.Builder
	b.WriteString("BEGIN ")
	b.WriteString(kw)
	for _, chunk := range chunks {
		for _, text := range chunk {
			b.WriteByte(' ')
			b.WriteString(text)
			b.WriteByte(';')
		}
	}
	b.WriteString(" APPLY ")
	b.WriteString(kw)
	return b.String()
}

// Execute compiles the aggregate and runs it through the session. On
// execution failure the registered handlers fire, then the wrapped error is
// returned. Compilation errors do not trigger handlers.
func (a *Aggregate) Execute(ctx context.Context, session exec.Session) ([]*exec.Result, error) {
	runner := exec.NewRunner(session, a.logger)
	h, err := runner.Execute(ctx, a)
	if err != nil {
		return nil, err
	}
	results, err := h.Await(ctx)
	if err != nil {
		a.dispatchError(err)
		return results, err
	}
	return results, nil
}

// dispatchError runs handlers newest-first, each isolated, then recurses
// into member aggregates so nested handlers fire too.
func (a *Aggregate) dispatchError(err error) {
	for i := len(a.handlers) - 1; i >= 0; i-- {
		a.runHandler(a.handlers[i], err)
	}
	for _, m := range a.members {
		if nested, ok := m.(*Aggregate); ok {
			nested.dispatchError(err)
		}
	}
}

func (a *Aggregate) runHandler(fn func(error), err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("error handler panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(err)
}
