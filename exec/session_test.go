package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedFuture struct {
	result *Result
	err    error
}

func (f cannedFuture) Await(ctx context.Context) (*Result, error) { return f.result, f.err }

// recordingSession returns canned results and remembers what was submitted.
type recordingSession struct {
	submitted []Statement
	results   map[string]cannedFuture
	err       error
}

func (s *recordingSession) Submit(ctx context.Context, st Statement) Future {
	s.submitted = append(s.submitted, st)
	if s.err != nil {
		return cannedFuture{err: s.err}
	}
	if f, ok := s.results[st.Text]; ok {
		return f
	}
	return cannedFuture{result: &Result{}}
}

type listStmt struct {
	texts   []string
	options map[string]any
}

func (l listStmt) Compile() ([]string, error) { return l.texts, nil }

func (l listStmt) Count() (int, error) { return len(l.texts), nil }

func (l listStmt) Version() uint64 { return 1 }

func (l listStmt) Invalidate(bool) {}

func (l listStmt) Options() map[string]any { return l.options }

func TestRunnerSubmitsEveryElementaryStatement(t *testing.T) {
	session := &recordingSession{}
	runner := NewRunner(session, nil)

	st := listStmt{
		texts:   []string{"INSERT 1", "INSERT 2"},
		options: map[string]any{"consistency": "QUORUM"},
	}
	h, err := runner.Execute(context.Background(), st)
	require.NoError(t, err)

	require.Len(t, session.submitted, 2)
	assert.Equal(t, "INSERT 1", session.submitted[0].Text)
	assert.Equal(t, "QUORUM", session.submitted[0].Options["consistency"])

	results, err := h.Await(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestAwaitWrapsFailureWithStatement(t *testing.T) {
	session := &recordingSession{err: errors.New("no hosts available")}
	runner := NewRunner(session, nil)

	h, err := runner.Execute(context.Background(), listStmt{texts: []string{"INSERT 1"}})
	require.NoError(t, err)

	_, err = h.Await(context.Background())
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "INSERT 1", execErr.Statement)
	assert.EqualError(t, errors.Unwrap(err), "no hosts available")
}

func TestAwaitChecksAppliedForConditionalStatements(t *testing.T) {
	text := "INSERT INTO ks.t (id) VALUES (1) IF NOT EXISTS"
	session := &recordingSession{
		results: map[string]cannedFuture{
			text: {result: &Result{Rows: []map[string]any{{"[applied]": false, "id": int64(1)}}}},
		},
	}
	runner := NewRunner(session, nil)

	h, err := runner.Execute(context.Background(), listStmt{texts: []string{text}})
	require.NoError(t, err)

	_, err = h.Await(context.Background())
	var notMet *ConditionNotMetError
	require.ErrorAs(t, err, &notMet)
	assert.Equal(t, int64(1), notMet.Row["id"])
}

func TestAwaitSkipsAppliedCheckForGuardedDDL(t *testing.T) {
	texts := []string{
		"CREATE KEYSPACE IF NOT EXISTS app WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}",
		"CREATE TABLE IF NOT EXISTS app.accounts (id uuid, PRIMARY KEY ((id)))",
		"ALTER TABLE app.accounts ADD balance bigint",
		"DROP TABLE IF EXISTS app.legacy",
	}
	// Guarded DDL returns no rows; that must not read as a failed condition.
	session := &recordingSession{}
	runner := NewRunner(session, nil)

	h, err := runner.Execute(context.Background(), listStmt{texts: texts})
	require.NoError(t, err)

	results, err := h.Await(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, len(texts))
}

func TestCheckApplied(t *testing.T) {
	assert.NoError(t, CheckApplied(&Result{Rows: []map[string]any{{"[applied]": true}}}))

	err := CheckApplied(&Result{Rows: []map[string]any{{"[applied]": false}}})
	var notMet *ConditionNotMetError
	require.ErrorAs(t, err, &notMet)

	// Missing row counts as not applied.
	require.ErrorAs(t, CheckApplied(&Result{}), &notMet)
	require.ErrorAs(t, CheckApplied(nil), &notMet)
}
