// Package exec defines the execution collaborator contract: a session
// accepts one finished statement and returns an async handle. Compiling and
// submitting are distinct steps; this layer performs no retries and forwards
// execution options opaquely.
package exec

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cqlforge/cqlforge/stmt"
)

// Statement is one finished elementary statement plus opaque options the
// session may interpret (consistency, retry policy, fetch size, timeout).
type Statement struct {
	Text    string
	Options map[string]any
}

// Result holds the rows a submission returned.
type Result struct {
	Rows []map[string]any
}

// Future is the async handle a submission returns.
type Future interface {
	Await(ctx context.Context) (*Result, error)
}

// Session is the external execution collaborator. It is called exactly once
// per elementary compiled statement.
type Session interface {
	Submit(ctx context.Context, st Statement) Future
}

// Runner compiles statements and feeds them to a session one elementary
// statement at a time.
type Runner struct {
	session Session
	logger  *zap.Logger
}

// NewRunner wraps a session. A nil logger means silent.
func NewRunner(session Session, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{session: session, logger: logger}
}

// Execute compiles st and submits every elementary statement. Submission is
// asynchronous; the returned handle awaits or chains the results.
func (r *Runner) Execute(ctx context.Context, st stmt.Statement) (*Handle, error) {
	texts, err := st.Compile()
	if err != nil {
		return nil, err
	}
	h := &Handle{logger: r.logger}
	for _, text := range texts {
		r.logger.Debug("submitting statement", zap.String("cql", text))
		f := r.session.Submit(ctx, Statement{Text: text, Options: st.Options()})
		h.texts = append(h.texts, text)
		h.futures = append(h.futures, f)
	}
	return h, nil
}

// Handle aggregates the futures of one logical statement's elementary
// submissions.
type Handle struct {
	texts   []string
	futures []Future
	logger  *zap.Logger
}

// Await waits for every submission. Conditional statements have their
// applied-flag inspected; execution failures are wrapped with the logical
// statement that produced them, cause preserved.
func (h *Handle) Await(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, 0, len(h.futures))
	for i, f := range h.futures {
		res, err := f.Await(ctx)
		if err != nil {
			h.logger.Warn("statement failed", zap.String("cql", h.texts[i]), zap.Error(err))
			return results, &ExecutionError{Statement: h.texts[i], Err: err}
		}
		if conditional(h.texts[i]) {
			if err := CheckApplied(res); err != nil {
				return results, err
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// CheckApplied inspects the single returned row's applied flag. A false
// flag or a missing row raises ConditionNotMetError carrying the row.
func CheckApplied(res *Result) error {
	if res == nil || len(res.Rows) == 0 {
		return &ConditionNotMetError{}
	}
	row := res.Rows[0]
	applied, ok := row["[applied]"].(bool)
	if !ok || !applied {
		return &ConditionNotMetError{Row: row}
	}
	return nil
}

// conditional detects the optimistic-condition suffix forms the write
// builders emit. Guarded DDL (CREATE/ALTER/DROP ... IF [NOT] EXISTS) is not
// conditional in this sense: the store returns no applied flag for it.
func conditional(text string) bool {
	if strings.HasPrefix(text, "CREATE ") ||
		strings.HasPrefix(text, "ALTER ") ||
		strings.HasPrefix(text, "DROP ") {
		return false
	}
	return strings.Contains(text, " IF NOT EXISTS") ||
		strings.Contains(text, " IF EXISTS") ||
		strings.Contains(text, " WHERE ") && strings.Contains(text, " IF ")
}
