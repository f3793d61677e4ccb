package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_Bool(t *testing.T) {
	row := Row{
		"native":   true,
		"text_t":   "t",
		"text_no":  "false",
		"bytes":    []byte("true"),
		"int_one":  int64(1),
		"int_zero": int32(0),
		"null":     nil,
	}

	tests := []struct {
		key  string
		want bool
	}{
		{"native", true},
		{"text_t", true},
		{"text_no", false},
		{"bytes", true},
		{"int_one", true},
		{"int_zero", false},
		{"null", false},
		{"missing", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := row.Bool(tt.key); got != tt.want {
				t.Errorf("Bool(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestRow_Int(t *testing.T) {
	row := Row{
		"int64":   int64(42),
		"int32":   int32(7),
		"float":   float64(3),
		"string":  "12",
		"decimal": "8192.0",
		"bytes":   []byte("5"),
		"garbage": "abc",
	}

	tests := []struct {
		key  string
		want int64
	}{
		{"int64", 42},
		{"int32", 7},
		{"float", 3},
		{"string", 12},
		{"decimal", 8192},
		{"bytes", 5},
		{"garbage", 0},
		{"missing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := row.Int(tt.key); got != tt.want {
				t.Errorf("Int(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestRow_String(t *testing.T) {
	row := Row{
		"text":  "orders",
		"bytes": []byte("users"),
		"int":   int32(23),
		"bool":  false,
		"date":  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		"null":  nil,
	}

	tests := []struct {
		key  string
		want string
	}{
		{"text", "orders"},
		{"bytes", "users"},
		{"int", "23"},
		{"bool", "false"},
		{"date", "2025-03-01"},
		{"null", ""},
		{"missing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := row.String(tt.key); got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	if _, ok := row.NullString("null"); ok {
		t.Error("NullString(null) reported a value")
	}
	if s, ok := row.NullString("text"); !ok || s != "orders" {
		t.Errorf("NullString(text) = %q, %v", s, ok)
	}
}

type recordingExecutor struct {
	tag   string
	trail *[]string
	next  Executor
}

func (r recordingExecutor) ExecuteSingle(ctx context.Context, query string, args ...any) (*Result, error) {
	*r.trail = append(*r.trail, r.tag)
	if r.next == nil {
		return &Result{}, nil
	}
	return r.next.ExecuteSingle(ctx, query, args...)
}

func TestChain_Order(t *testing.T) {
	var trail []string
	mw := func(tag string) Middleware {
		return func(next Executor) Executor {
			return recordingExecutor{tag: tag, trail: &trail, next: next}
		}
	}
	base := recordingExecutor{tag: "base", trail: &trail}

	ex := Chain(base, mw("outer"), mw("inner"))
	_, err := ex.ExecuteSingle(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "base"}, trail)
}

func TestSQLConn_ExecuteSingle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := NewSQL(db)
	defer conn.Close()

	mock.ExpectQuery("SHOW INDEX FROM").
		WillReturnRows(sqlmock.NewRows([]string{"Key_name", "Non_unique", "Seq_in_index"}).
			AddRow([]byte("PRIMARY"), int64(0), int64(1)).
			AddRow([]byte("idx_email"), int64(1), int64(1)))

	res, err := conn.ExecuteSingle(context.Background(), "SHOW INDEX FROM `shop`.`users`")
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"Key_name", "Non_unique", "Seq_in_index"}, res.Columns)

	// []byte values are normalized to strings.
	assert.Equal(t, "PRIMARY", res.Rows[0]["Key_name"])
	assert.False(t, res.Rows[0].Bool("Non_unique"))
	assert.True(t, res.Rows[1].Bool("Non_unique"))
	assert.Equal(t, int64(1), res.Rows[1].Int("Seq_in_index"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConn_ExecuteSingle_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := NewSQL(db)
	defer conn.Close()

	boom := errors.New("permission denied")
	mock.ExpectQuery("SELECT").WillReturnError(boom)

	_, err = conn.ExecuteSingle(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxConn_Closed(t *testing.T) {
	conn := NewPgx(nil)
	_, err := conn.ExecuteSingle(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, conn.Ping(context.Background()), ErrClosed)
	assert.NoError(t, conn.Close())
}
