// Package cockroach implements the CockroachDB dialect on top of the
// PostgreSQL one. CockroachDB speaks the PostgreSQL wire protocol but has no
// triggers or table partitions, describes indexes with SHOW INDEXES and routes
// connections to a tenant cluster through a startup option.
package cockroach

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sadopc/dbcatalog/internal/catalog"
	"github.com/sadopc/dbcatalog/internal/config"
	"github.com/sadopc/dbcatalog/internal/dialect"
	"github.com/sadopc/dbcatalog/internal/dialect/postgres"
	"github.com/sadopc/dbcatalog/internal/executor"
	"github.com/sadopc/dbcatalog/internal/pool"
)

const (
	Name        = "cockroach"
	DefaultPort = 26257

	// ClusterOption is the server option naming the tenant cluster to route to.
	ClusterOption = "cluster"

	// arrayOID is the OID of _text, which CockroachDB also reports for other
	// array columns.
	arrayOID = 1009
)

func init() {
	dialect.Register(Descriptor())
}

// Descriptor returns the CockroachDB descriptor, derived from PostgreSQL.
func Descriptor() *dialect.Descriptor {
	d := postgres.Descriptor().Clone()
	d.Name = Name
	d.DefaultPort = DefaultPort
	d.Features = catalog.SupportedFeatures{
		CustomRoutines: true,
		Comments:       true,
		Properties:     true,
		Partitions:     false,
		EditPartitions: false,
	}

	d.ConfigureConnection = ConfigureConnection
	d.ListTableIndexes = ListTableIndexes
	d.ListTableTriggers = ListTableTriggers
	d.ListTablePartitions = ListTablePartitions
	// No size or comment lookup; the aggregate reports zero sizes.
	d.TableDetails = nil

	d.TypeOverrides = map[uint32]string{arrayOID: "array"}
	return d
}

// Connect opens a CockroachDB client for database on server. It does not
// retry.
func Connect(ctx context.Context, server config.Server, database string, opts ...dialect.Option) (*dialect.Client, error) {
	c := dialect.New(Descriptor(), server, database, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// ConfigureConnection builds the shared pool configuration and adds the
// cluster routing directive when the server names a cluster.
func ConfigureConnection(server config.Server, database string, defaults config.Pool) pool.Config {
	cfg := pool.Base(server, database, defaults)
	if cluster := server.Option(ClusterOption); cluster != "" {
		cfg.DialectOptions = "--cluster=" + cluster
	}
	return cfg
}

// ListTableTriggers returns no triggers; CockroachDB does not support them.
func ListTableTriggers(context.Context, executor.Executor, string, string) ([]catalog.TableTrigger, error) {
	return []catalog.TableTrigger{}, nil
}

// ListTablePartitions reports that partitions are not applicable.
func ListTablePartitions(context.Context, executor.Executor, string, string) (catalog.Partitions, error) {
	return catalog.NotApplicable(), nil
}

// ListTableIndexes runs SHOW INDEXES and groups its per-column rows.
func ListTableIndexes(ctx context.Context, ex executor.Executor, table, schema string) ([]catalog.TableIndex, error) {
	res, err := ex.ExecuteSingle(ctx, showIndexes(table, schema))
	if err != nil {
		return nil, fmt.Errorf("show indexes: %w", err)
	}
	return dialect.GroupIndexRows(res.Rows, indexSpec, table, schema), nil
}

func showIndexes(table, schema string) string {
	ident := pgx.Identifier{table}
	if schema != "" {
		ident = pgx.Identifier{schema, table}
	}
	return "SHOW INDEXES FROM " + ident.Sanitize()
}

var indexSpec = func() dialect.IndexRowSpec {
	spec := dialect.ShowIndexesSpec
	spec.IsPrimary = IsPrimaryIndex
	return spec
}()

// IsPrimaryIndex reports whether a SHOW INDEXES group is the primary key.
// Before v21.2 the primary index was named "primary"; later versions name it
// <table>_pkey.
func IsPrimaryIndex(first executor.Row) bool {
	name := first.String("index_name")
	return name == "primary" || strings.HasSuffix(name, "pkey")
}
