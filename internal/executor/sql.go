package executor

import (
	"context"
	"database/sql"
	"fmt"
)

// sqlConn implements Conn on top of database/sql.
type sqlConn struct {
	db *sql.DB
}

// NewSQL wraps an open database/sql handle.
func NewSQL(db *sql.DB) Conn {
	return &sqlConn{db: db}
}

func (c *sqlConn) ExecuteSingle(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("execute columns: %w", err)
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("execute scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, name := range cols {
			// Text protocol drivers hand back []byte for most columns.
			if b, ok := vals[i].([]byte); ok {
				row[name] = string(b)
				continue
			}
			row[name] = vals[i]
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execute rows: %w", err)
	}
	return res, nil
}

func (c *sqlConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}
