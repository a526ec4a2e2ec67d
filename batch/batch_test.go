package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqlforge/cqlforge/exec"
	"github.com/cqlforge/cqlforge/stmt"
)

// fakeStmt is an elementary statement with canned output.
type fakeStmt struct {
	texts   []string
	err     error
	version uint64
	options map[string]any
}

func newFake(texts ...string) *fakeStmt { return &fakeStmt{texts: texts, version: 1} }

func (f *fakeStmt) Compile() ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.texts, nil
}
func (f *fakeStmt) Count() (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.texts), nil
}
func (f *fakeStmt) Version() uint64 { return f.version }

func (f *fakeStmt) Invalidate(bool) { f.version++ }

func (f *fakeStmt) Options() map[string]any { return f.options }

func TestEmptyAggregateCompilesToNothing(t *testing.T) {
	texts, err := NewBatch().Compile()
	require.NoError(t, err)
	assert.Empty(t, texts)

	n, err := NewBatch(newFake()).Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSoleMemberUnwrapped(t *testing.T) {
	texts, err := NewBatch(newFake("INSERT 1")).Compile()
	require.NoError(t, err)
	assert.Equal(t, []string{"INSERT 1"}, texts)
}

func TestSoleMemberWithOptionsStaysWrapped(t *testing.T) {
	agg := NewBatch(newFake("INSERT 1")).WithOption("consistency", "QUORUM")
	texts, err := agg.Compile()
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "BEGIN BATCH INSERT 1; APPLY BATCH", texts[0])
}

func TestWrapKeywordPerKind(t *testing.T) {
	for kind, want := range map[Kind]string{
		KindBatch:    "BEGIN BATCH A; B; APPLY BATCH",
		KindSequence: "BEGIN SEQUENCE A; B; APPLY SEQUENCE",
		KindGroup:    "BEGIN GROUP A; B; APPLY GROUP",
	} {
		texts, err := New(kind, newFake("A"), newFake("B")).Compile()
		require.NoError(t, err)
		require.Len(t, texts, 1)
		assert.Equal(t, want, texts[0])
	}
}

func TestNestedSameKindFlattens(t *testing.T) {
	s1, s2, s3 := newFake("S1"), newFake("S2"), newFake("S3")
	nested := NewBatch(NewBatch(s1, s2), s3)
	flat := NewBatch(s1, s2, s3)

	nestedTexts, err := nested.Compile()
	require.NoError(t, err)
	flatTexts, err := flat.Compile()
	require.NoError(t, err)
	assert.Equal(t, flatTexts, nestedTexts)

	nestedCount, err := nested.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, nestedCount)
}

func TestNestedSameKindWithOptionsStaysOpaque(t *testing.T) {
	inner := NewBatch(newFake("S1"), newFake("S2")).WithOption("consistency", "QUORUM")
	outer := NewBatch(inner, newFake("S3"))

	texts, err := outer.Compile()
	require.NoError(t, err)
	require.Len(t, texts, 1)
	// Inlining would discard the inner options, so the inner batch keeps its
	// own wrapper.
	assert.Equal(t, "BEGIN BATCH BEGIN BATCH S1; S2; APPLY BATCH; S3; APPLY BATCH", texts[0])
}

func TestOtherKindStaysOpaque(t *testing.T) {
	inner := NewSequence(newFake("S1"), newFake("S2"))
	outer := NewBatch(inner, newFake("S3"))

	texts, err := outer.Compile()
	require.NoError(t, err)
	require.Len(t, texts, 1)
	// The sequence keeps its own wrapper inside the batch.
	assert.Equal(t, "BEGIN BATCH BEGIN SEQUENCE S1; S2; APPLY SEQUENCE; S3; APPLY BATCH", texts[0])
}

func TestEmptyOptionalKeyMemberAbsorbed(t *testing.T) {
	skipped := newFake()
	skipped.err = &stmt.EmptyOptionalKeyError{Entity: "tagged", Table: "by_tag", Column: "tag"}
	agg := NewBatch(newFake("S1"), skipped, newFake("S2"))

	texts, err := agg.Compile()
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "BEGIN BATCH S1; S2; APPLY BATCH", texts[0])
}

func TestOtherErrorsPropagate(t *testing.T) {
	broken := newFake()
	broken.err = errors.New("boom")
	_, err := NewBatch(newFake("S1"), broken).Compile()
	require.EqualError(t, err, "boom")
}

func TestMemberMutationInvalidatesCache(t *testing.T) {
	member := newFake("OLD")
	agg := NewBatch(member, newFake("S"))

	texts, err := agg.Compile()
	require.NoError(t, err)
	assert.Contains(t, texts[0], "OLD")

	member.texts = []string{"NEW"}
	member.version++
	texts, err = agg.Compile()
	require.NoError(t, err)
	assert.Contains(t, texts[0], "NEW")
}

func TestInvalidateRecursesOnlyWhenAsked(t *testing.T) {
	member := newFake("S")
	agg := NewBatch(member)

	v := member.Version()
	agg.Invalidate(false)
	assert.Equal(t, v, member.Version())
	agg.Invalidate(true)
	assert.Equal(t, v+1, member.Version())
}

// failSession fails every submission.
type failSession struct{ err error }

func (s failSession) Submit(ctx context.Context, st exec.Statement) exec.Future {
	return failFuture{err: s.err}
}

type failFuture struct{ err error }

func (f failFuture) Await(ctx context.Context) (*exec.Result, error) { return nil, f.err }

func TestErrorHandlersReverseOrderAndIsolated(t *testing.T) {
	var order []string
	inner := NewSequence(newFake("S1")).OnError(func(error) { order = append(order, "inner") })
	agg := NewBatch(newFake("S0"), inner).
		OnError(func(error) { order = append(order, "first") }).
		OnError(func(error) { panic("handler blew up") }).
		OnError(func(error) { order = append(order, "third") })

	_, err := agg.Execute(context.Background(), failSession{err: errors.New("down")})
	require.Error(t, err)
	var execErr *exec.ExecutionError
	require.ErrorAs(t, err, &execErr)

	// Newest handler first, the panicking one swallowed, then nested members.
	assert.Equal(t, []string{"third", "first", "inner"}, order)
}

func TestExecuteSuccessRunsNoHandlers(t *testing.T) {
	called := false
	agg := NewBatch(newFake("S1")).OnError(func(error) { called = true })

	_, err := agg.Execute(context.Background(), okSession{})
	require.NoError(t, err)
	assert.False(t, called)
}

type okSession struct{}

func (okSession) Submit(ctx context.Context, st exec.Statement) exec.Future {
	return okFuture{}
}

type okFuture struct{}

func (okFuture) Await(ctx context.Context) (*exec.Result, error) {
	return &exec.Result{}, nil
}
