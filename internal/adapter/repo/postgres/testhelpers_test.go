package postgres_test

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowStub implements pgx.Row
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

// poolStub implements postgres.PgxPool for tests. It records executed SQL and
// args; shared here so multiple *_test.go files can reuse it without redefs.
type poolStub struct {
	mu       sync.Mutex
	execSQL  []string
	execArgs [][]any
	execTag  pgconn.CommandTag
	execErr  error
	queryErr error
	row      rowStub
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.execSQL = append(p.execSQL, sql)
	p.execArgs = append(p.execArgs, args)
	return p.execTag, p.execErr
}

func (p *poolStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if p.row.scan == nil {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	return p.row
}

func (p *poolStub) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, p.queryErr
}

func (p *poolStub) lastExec() (string, []any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.execSQL) == 0 {
		return "", nil
	}
	return p.execSQL[len(p.execSQL)-1], p.execArgs[len(p.execArgs)-1]
}
