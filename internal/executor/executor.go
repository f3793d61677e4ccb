package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

var ErrClosed = errors.New("executor is closed")

// Executor runs one statement and returns its single result set.
type Executor interface {
	ExecuteSingle(ctx context.Context, query string, args ...any) (*Result, error)
}

// Conn is an Executor backed by an open connection pool.
type Conn interface {
	Executor
	Ping(ctx context.Context) error
	Close() error
}

// Middleware decorates an Executor, e.g. to audit statements.
type Middleware func(Executor) Executor

// Chain applies middlewares so that the first one is outermost.
func Chain(ex Executor, mws ...Middleware) Executor {
	for i := len(mws) - 1; i >= 0; i-- {
		ex = mws[i](ex)
	}
	return ex
}

// Result holds the rows of one statement.
type Result struct {
	Columns []string
	Rows    []Row
}

// Row is one result row keyed by column name.
type Row map[string]any

// String returns the column as text. Missing and NULL values are "".
func (r Row) String(key string) string {
	return valueToString(r[key])
}

// NullString returns the column as text and whether it was non-NULL.
func (r Row) NullString(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return valueToString(v), true
}

// Bool coerces the column to a boolean. Missing and NULL values are false.
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case nil:
		return false
	case string:
		return parseBool(v)
	case []byte:
		return parseBool(string(v))
	default:
		n, ok := toInt(v)
		return ok && n != 0
	}
}

// Int coerces the column to an int64. Missing, NULL and non-numeric values are 0.
func (r Row) Int(key string) int64 {
	n, _ := toInt(r[key])
	return n
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "yes", "y", "on", "1":
		return true
	}
	return false
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		return parseInt(n)
	case []byte:
		return parseInt(string(n))
	case pgtype.Numeric:
		i, err := n.Int64Value()
		if err != nil || !i.Valid {
			return 0, false
		}
		return i.Int64, true
	}
	return 0, false
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

// valueToString converts a single database value to a string representation.
func valueToString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case bool:
		return strconv.FormatBool(val)
	case int8, int16, int32, int64, int, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case [16]byte:
		// UUID
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []string:
		return "{" + strings.Join(val, ",") + "}"
	case pgtype.Numeric:
		dv, err := val.Value()
		if err != nil || dv == nil {
			return ""
		}
		if s, ok := dv.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", dv)
	default:
		return fmt.Sprintf("%v", v)
	}
}
