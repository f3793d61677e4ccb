package dialect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sadopc/dbcatalog/internal/catalog"
	"github.com/sadopc/dbcatalog/internal/config"
	"github.com/sadopc/dbcatalog/internal/executor"
	"github.com/sadopc/dbcatalog/internal/pool"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for per-operation debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithPool overrides the pool defaults (size and timeouts).
func WithPool(p config.Pool) Option {
	return func(c *Client) { c.poolDefaults = p }
}

// WithMiddleware wraps the connection's executor, e.g. to audit statements.
func WithMiddleware(mws ...executor.Middleware) Option {
	return func(c *Client) { c.middleware = append(c.middleware, mws...) }
}

// Client runs catalog introspection for one dialect against one database.
// It is safe for concurrent use once connected; concurrent queries beyond the
// pool size queue inside the pool.
type Client struct {
	d            *Descriptor
	server       config.Server
	database     string
	poolDefaults config.Pool
	middleware   []executor.Middleware
	log          *slog.Logger

	mu   sync.RWMutex
	conn executor.Conn
	ex   executor.Executor

	typesMu sync.Mutex
	types   catalog.TypeRegistry
}

// New creates a Client for d. Call Connect before issuing operations.
func New(d *Descriptor, server config.Server, database string, opts ...Option) *Client {
	c := &Client{
		d:            d,
		server:       server,
		database:     database,
		poolDefaults: config.DefaultPool(),
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open looks up the named dialect, connects a client and returns it. It does
// not retry; a failed connect returns no client.
func Open(ctx context.Context, name string, server config.Server, database string, opts ...Option) (*Client, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	c := New(d, server, database, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Dialect returns the dialect name.
func (c *Client) Dialect() string { return c.d.Name }

// Descriptor returns the dialect descriptor.
func (c *Client) Descriptor() *Descriptor { return c.d }

// DatabaseName returns the database the client targets.
func (c *Client) DatabaseName() string {
	if c.database != "" {
		return c.database
	}
	return c.server.Database
}

// SupportedFeatures returns the dialect's capability vector. It performs no I/O.
func (c *Client) SupportedFeatures() catalog.SupportedFeatures {
	return c.d.Features
}

// ConfigureConnection builds the pool configuration this client connects with.
func (c *Client) ConfigureConnection() pool.Config {
	return c.configure(c.server)
}

func (c *Client) configure(server config.Server) pool.Config {
	if server.Port == 0 {
		server.Port = c.d.DefaultPort
	}
	if c.d.ConfigureConnection != nil {
		return c.d.ConfigureConnection(server, c.database, c.poolDefaults)
	}
	return pool.Base(server, c.database, c.poolDefaults)
}

// Connect resolves credentials, builds the pool configuration and opens the
// pool.
func (c *Client) Connect(ctx context.Context) error {
	if c.d.Open == nil {
		return c.fail("connect", errors.New("dialect cannot open connections"))
	}
	server, err := c.server.ResolvePassword()
	if err != nil {
		return c.fail("connect", err)
	}

	cfg := c.configure(server)
	conn, err := c.d.Open(ctx, cfg)
	if err != nil {
		return c.fail("connect", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.ex = executor.Chain(conn, c.middleware...)
	c.mu.Unlock()
	c.log.Debug("connected",
		"dialect", c.d.Name,
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
		"max_connections", cfg.MaxConnections,
	)
	return nil
}

// Ping checks that the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Ping(ctx)
}

// Close closes the connection pool. Operations that already hold the
// executor finish against the closing pool; later ones get ErrNotConnected.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.ex = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) schemaOrDefault(schema string) string {
	if schema == "" {
		return c.d.DefaultSchema
	}
	return schema
}

func (c *Client) fail(op string, err error) error {
	return &IntrospectionError{Dialect: c.d.Name, Operation: op, Err: err}
}

func (c *Client) current() (executor.Executor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ex == nil {
		return nil, ErrNotConnected
	}
	return c.ex, nil
}

// observe runs fn, logs its duration and wraps any error.
func observe[T any](c *Client, op string, fn func(executor.Executor) (T, error)) (T, error) {
	var zero T
	ex, err := c.current()
	if err != nil {
		return zero, c.fail(op, err)
	}

	start := time.Now()
	v, err := fn(ex)
	c.log.Debug("introspection",
		"dialect", c.d.Name,
		"op", op,
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		return zero, c.fail(op, err)
	}
	return v, nil
}

// ListTableIndexes returns the indexes of table. The database argument is
// accepted for contract compatibility and ignored.
func (c *Client) ListTableIndexes(ctx context.Context, _ string, table, schema string) ([]catalog.TableIndex, error) {
	schema = c.schemaOrDefault(schema)
	return observe(c, "listTableIndexes", func(ex executor.Executor) ([]catalog.TableIndex, error) {
		return c.listTableIndexes(ctx, ex, table, schema)
	})
}

func (c *Client) listTableIndexes(ctx context.Context, ex executor.Executor, table, schema string) ([]catalog.TableIndex, error) {
	if c.d.ListTableIndexes == nil {
		return []catalog.TableIndex{}, nil
	}
	return c.d.ListTableIndexes(ctx, ex, table, schema)
}

// ListTableTriggers returns the triggers of table, or an empty slice when the
// dialect has no triggers.
func (c *Client) ListTableTriggers(ctx context.Context, table, schema string) ([]catalog.TableTrigger, error) {
	schema = c.schemaOrDefault(schema)
	return observe(c, "listTableTriggers", func(ex executor.Executor) ([]catalog.TableTrigger, error) {
		return c.listTableTriggers(ctx, ex, table, schema)
	})
}

func (c *Client) listTableTriggers(ctx context.Context, ex executor.Executor, table, schema string) ([]catalog.TableTrigger, error) {
	if c.d.ListTableTriggers == nil {
		return []catalog.TableTrigger{}, nil
	}
	triggers, err := c.d.ListTableTriggers(ctx, ex, table, schema)
	if triggers == nil && err == nil {
		triggers = []catalog.TableTrigger{}
	}
	return triggers, err
}

// ListTablePartitions returns the partitions of table. It returns
// catalog.NotApplicable whenever the dialect does not support partitions.
func (c *Client) ListTablePartitions(ctx context.Context, table, schema string) (catalog.Partitions, error) {
	schema = c.schemaOrDefault(schema)
	return observe(c, "listTablePartitions", func(ex executor.Executor) (catalog.Partitions, error) {
		return c.listTablePartitions(ctx, ex, table, schema)
	})
}

func (c *Client) listTablePartitions(ctx context.Context, ex executor.Executor, table, schema string) (catalog.Partitions, error) {
	if !c.d.Features.Partitions || c.d.ListTablePartitions == nil {
		return catalog.NotApplicable(), nil
	}
	return c.d.ListTablePartitions(ctx, ex, table, schema)
}

// TableKeys returns the foreign key relations of table.
func (c *Client) TableKeys(ctx context.Context, db, table, schema string) ([]catalog.TableKey, error) {
	schema = c.schemaOrDefault(schema)
	return observe(c, "getTableKeys", func(ex executor.Executor) ([]catalog.TableKey, error) {
		return c.tableKeys(ctx, ex, db, table, schema)
	})
}

func (c *Client) tableKeys(ctx context.Context, ex executor.Executor, db, table, schema string) ([]catalog.TableKey, error) {
	if c.d.TableKeys == nil {
		return []catalog.TableKey{}, nil
	}
	return c.d.TableKeys(ctx, ex, db, table, schema)
}

// TableOwner returns the owner of table, or "" when the dialect has no owners.
func (c *Client) TableOwner(ctx context.Context, table, schema string) (string, error) {
	schema = c.schemaOrDefault(schema)
	return observe(c, "getTableOwner", func(ex executor.Executor) (string, error) {
		return c.tableOwner(ctx, ex, table, schema)
	})
}

func (c *Client) tableOwner(ctx context.Context, ex executor.Executor, table, schema string) (string, error) {
	if c.d.TableOwner == nil {
		return "", nil
	}
	return c.d.TableOwner(ctx, ex, table, schema)
}

func (c *Client) tableDetails(ctx context.Context, ex executor.Executor, table, schema string) (catalog.TableDetails, error) {
	if c.d.TableDetails == nil {
		return catalog.TableDetails{}, nil
	}
	return c.d.TableDetails(ctx, ex, table, schema)
}

// GetTableProperties assembles the aggregate properties of table. All
// sub-fetches start before any is awaited; the first failure cancels the rest
// and fails the whole aggregate.
func (c *Client) GetTableProperties(ctx context.Context, table, schema string) (*catalog.TableProperties, error) {
	schema = c.schemaOrDefault(schema)
	return observe(c, "getTableProperties", func(ex executor.Executor) (*catalog.TableProperties, error) {
		if !c.d.Features.Properties {
			return &catalog.TableProperties{
				Indexes:    []catalog.TableIndex{},
				Relations:  []catalog.TableKey{},
				Triggers:   []catalog.TableTrigger{},
				Partitions: catalog.NotApplicable(),
			}, nil
		}
		return c.tableProperties(ctx, ex, table, schema)
	})
}

func (c *Client) tableProperties(ctx context.Context, ex executor.Executor, table, schema string) (*catalog.TableProperties, error) {
	var (
		details    catalog.TableDetails
		indexes    []catalog.TableIndex
		relations  []catalog.TableKey
		triggers   []catalog.TableTrigger
		partitions catalog.Partitions
		owner      string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		details, err = c.tableDetails(gctx, ex, table, schema)
		return annotate("details", err)
	})
	g.Go(func() (err error) {
		indexes, err = c.listTableIndexes(gctx, ex, table, schema)
		return annotate("indexes", err)
	})
	g.Go(func() (err error) {
		relations, err = c.tableKeys(gctx, ex, "", table, schema)
		return annotate("keys", err)
	})
	g.Go(func() (err error) {
		triggers, err = c.listTableTriggers(gctx, ex, table, schema)
		return annotate("triggers", err)
	})
	g.Go(func() (err error) {
		partitions, err = c.listTablePartitions(gctx, ex, table, schema)
		return annotate("partitions", err)
	})
	g.Go(func() (err error) {
		owner, err = c.tableOwner(gctx, ex, table, schema)
		return annotate("owner", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &catalog.TableProperties{
		Description: details.Description,
		IndexSize:   details.IndexSize,
		Size:        details.Size,
		Indexes:     indexes,
		Relations:   relations,
		Triggers:    triggers,
		Partitions:  partitions,
		Owner:       owner,
	}, nil
}

func annotate(part string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", part, err)
}

// GetTypes returns the type registry, building it on first use. A failed
// build is not cached.
func (c *Client) GetTypes(ctx context.Context) (catalog.TypeRegistry, error) {
	return observe(c, "getTypes", func(ex executor.Executor) (catalog.TypeRegistry, error) {
		c.typesMu.Lock()
		defer c.typesMu.Unlock()
		if c.types != nil {
			return c.types, nil
		}

		var fromCatalog map[uint32]string
		if c.d.ListTypes != nil {
			var err error
			fromCatalog, err = c.d.ListTypes(ctx, ex)
			if err != nil {
				return nil, err
			}
		}
		var builtin map[uint32]string
		if c.d.BuiltinTypes != nil {
			builtin = c.d.BuiltinTypes()
		}

		c.types = catalog.MergeTypes(fromCatalog, builtin, c.d.TypeOverrides)
		return c.types, nil
	})
}

// ResolveType returns the display name of a type OID.
func (c *Client) ResolveType(ctx context.Context, oid uint32) (string, error) {
	reg, err := c.GetTypes(ctx)
	if err != nil {
		return "", err
	}
	return reg.Name(oid), nil
}
