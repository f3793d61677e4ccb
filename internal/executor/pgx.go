package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxConn implements Conn on top of a pgx connection pool.
type pgxConn struct {
	pool *pgxpool.Pool
}

// NewPgx wraps an open pgx pool.
func NewPgx(pool *pgxpool.Pool) Conn {
	return &pgxConn{pool: pool}
}

func (c *pgxConn) ExecuteSingle(ctx context.Context, query string, args ...any) (*Result, error) {
	if c.pool == nil {
		return nil, ErrClosed
	}
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("execute values: %w", err)
		}
		row := make(Row, len(cols))
		for i, name := range cols {
			row[name] = vals[i]
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execute rows: %w", err)
	}
	return res, nil
}

func (c *pgxConn) Ping(ctx context.Context) error {
	if c.pool == nil {
		return ErrClosed
	}
	return c.pool.Ping(ctx)
}

func (c *pgxConn) Close() error {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	return nil
}
