package dialect

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/sadopc/dbcatalog/internal/catalog"
	"github.com/sadopc/dbcatalog/internal/config"
	"github.com/sadopc/dbcatalog/internal/executor"
	"github.com/sadopc/dbcatalog/internal/pool"
)

var (
	ErrUnknownDialect = errors.New("unknown dialect")
	ErrNotConnected   = errors.New("not connected to database")
)

// Descriptor describes one SQL dialect: its capability vector, how it opens
// connections and the catalog operations it implements. A nil operation means
// the dialect lacks the concept; the Client then returns a typed empty result
// without issuing any query.
type Descriptor struct {
	Name          string
	DefaultPort   int
	DefaultSchema string
	Features      catalog.SupportedFeatures

	// Connection
	ConfigureConnection func(server config.Server, database string, defaults config.Pool) pool.Config
	Open                func(ctx context.Context, cfg pool.Config) (executor.Conn, error)

	// ParseDSN overrides config.ServerFromURL for dialects with a native DSN
	// syntax.
	ParseDSN func(dsn string) (config.Server, error)

	// Introspection
	ListTableIndexes    func(ctx context.Context, ex executor.Executor, table, schema string) ([]catalog.TableIndex, error)
	ListTableTriggers   func(ctx context.Context, ex executor.Executor, table, schema string) ([]catalog.TableTrigger, error)
	ListTablePartitions func(ctx context.Context, ex executor.Executor, table, schema string) (catalog.Partitions, error)
	TableKeys           func(ctx context.Context, ex executor.Executor, db, table, schema string) ([]catalog.TableKey, error)
	TableOwner          func(ctx context.Context, ex executor.Executor, table, schema string) (string, error)
	TableDetails        func(ctx context.Context, ex executor.Executor, table, schema string) (catalog.TableDetails, error)

	// Types
	ListTypes     func(ctx context.Context, ex executor.Executor) (map[uint32]string, error)
	BuiltinTypes  func() map[uint32]string
	TypeOverrides map[uint32]string
}

// Clone returns a shallow copy of d that a derived dialect can override.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	if d.TypeOverrides != nil {
		c.TypeOverrides = make(map[uint32]string, len(d.TypeOverrides))
		for k, v := range d.TypeOverrides {
			c.TypeOverrides[k] = v
		}
	}
	return &c
}

// ParseServer builds a Server for this dialect from a DSN.
func (d *Descriptor) ParseServer(dsn string) (config.Server, error) {
	parse := config.ServerFromURL
	if d.ParseDSN != nil {
		parse = d.ParseDSN
	}
	s, err := parse(dsn)
	if err != nil {
		return config.Server{}, err
	}
	s.Dialect = d.Name
	return s, nil
}

// IntrospectionError reports a failed catalog operation.
type IntrospectionError struct {
	Dialect   string
	Operation string
	Err       error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Dialect, e.Operation, e.Err)
}

func (e *IntrospectionError) Unwrap() error {
	return e.Err
}

// Registry holds registered dialects by name.
var Registry = map[string]*Descriptor{}

// Register adds a dialect to the global registry.
func Register(d *Descriptor) {
	Registry[d.Name] = d
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the dialect registered under name. On a miss the error
// suggests the closest registered name.
func Lookup(name string) (*Descriptor, error) {
	if d, ok := Registry[name]; ok {
		return d, nil
	}
	if alias, ok := aliases[name]; ok {
		if d, ok := Registry[alias]; ok {
			return d, nil
		}
	}
	if s := Suggest(name); s != "" {
		return nil, fmt.Errorf("%w: %s (did you mean %q?)", ErrUnknownDialect, name, s)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, name)
}

var aliases = map[string]string{
	"postgresql":  "postgres",
	"pg":          "postgres",
	"cockroachdb": "cockroach",
	"crdb":        "cockroach",
	"mariadb":     "mysql",
}

// Suggest returns the registered dialect name closest to name, or "".
func Suggest(name string) string {
	if name == "" {
		return ""
	}
	matches := fuzzy.Find(name, Names())
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
