package exec

import (
	"context"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"go.uber.org/zap"
)

// DriverSession adapts a driver session to the Session contract. Options
// recognized here are consistency (string), page_size (int) and idempotent
// (bool); unknown options are ignored.
type DriverSession struct {
	session *gocql.Session
	logger  *zap.Logger
}

// NewDriverSession wraps a connected session. A nil logger means silent.
func NewDriverSession(session *gocql.Session, logger *zap.Logger) *DriverSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriverSession{session: session, logger: logger}
}

// Submit implements Session. The query runs on its own goroutine; the
// returned future resolves when the iterator drains.
func (s *DriverSession) Submit(ctx context.Context, st Statement) Future {
	q := s.session.Query(st.Text).WithContext(ctx)
	applyOptions(q, st.Options)

	f := &driverFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		iter := q.Iter()
		rows, err := iter.SliceMap()
		if cerr := iter.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			s.logger.Debug("query failed", zap.String("cql", st.Text), zap.Error(err))
			f.err = err
			return
		}
		f.result = &Result{Rows: rows}
	}()
	return f
}

func applyOptions(q *gocql.Query, options map[string]any) {
	for key, value := range options {
		switch key {
		case "consistency":
			if name, ok := value.(string); ok {
				if c, err := gocql.ParseConsistencyWrapper(name); err == nil {
					q.Consistency(c)
				}
			}
		case "page_size":
			if n, ok := value.(int); ok {
				q.PageSize(n)
			}
		case "idempotent":
			if b, ok := value.(bool); ok {
				q.Idempotent(b)
			}
		}
	}
}

type driverFuture struct {
	done   chan struct{}
	result *Result
	err    error
}

// Await implements Future.
func (f *driverFuture) Await(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
