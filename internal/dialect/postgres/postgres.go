package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sadopc/dbcatalog/internal/catalog"
	"github.com/sadopc/dbcatalog/internal/config"
	"github.com/sadopc/dbcatalog/internal/dialect"
	"github.com/sadopc/dbcatalog/internal/executor"
	"github.com/sadopc/dbcatalog/internal/pool"
)

const (
	Name          = "postgres"
	DefaultPort   = 5432
	DefaultSchema = "public"
)

func init() {
	dialect.Register(Descriptor())
}

// Descriptor returns a fresh PostgreSQL descriptor. Derived dialects clone and
// override it.
func Descriptor() *dialect.Descriptor {
	return &dialect.Descriptor{
		Name:          Name,
		DefaultPort:   DefaultPort,
		DefaultSchema: DefaultSchema,
		Features: catalog.SupportedFeatures{
			CustomRoutines: true,
			Comments:       true,
			Properties:     true,
			Partitions:     true,
			EditPartitions: true,
		},

		ConfigureConnection: pool.Base,
		Open:                Open,

		ListTableIndexes:    ListTableIndexes,
		ListTableTriggers:   ListTableTriggers,
		ListTablePartitions: ListTablePartitions,
		TableKeys:           TableKeys,
		TableOwner:          TableOwner,
		TableDetails:        TableDetails,

		ListTypes:    ListTypes,
		BuiltinTypes: BuiltinTypes,
	}
}

// Connect opens a PostgreSQL client for database on server.
func Connect(ctx context.Context, server config.Server, database string, opts ...dialect.Option) (*dialect.Client, error) {
	c := dialect.New(Descriptor(), server, database, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Open opens a pgx pool for cfg.
func Open(ctx context.Context, cfg pool.Config) (executor.Conn, error) {
	p, err := pool.OpenPgx(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return executor.NewPgx(p), nil
}

// ListTableIndexes reads pg_index and normalizes it like SHOW INDEXES output.
func ListTableIndexes(ctx context.Context, ex executor.Executor, table, schema string) ([]catalog.TableIndex, error) {
	res, err := ex.ExecuteSingle(ctx, indexesQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}
	return dialect.GroupIndexRows(res.Rows, indexSpec, table, schema), nil
}

var indexSpec = func() dialect.IndexRowSpec {
	spec := dialect.ShowIndexesSpec
	spec.IsPrimary = func(first executor.Row) bool {
		return first.Bool("is_primary")
	}
	return spec
}()

// ListTableTriggers returns one trigger per name with its events collected.
func ListTableTriggers(ctx context.Context, ex executor.Executor, table, schema string) ([]catalog.TableTrigger, error) {
	res, err := ex.ExecuteSingle(ctx, triggersQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("triggers: %w", err)
	}

	// information_schema.triggers has one row per event.
	byName := make(map[string]*catalog.TableTrigger)
	var order []string
	for _, row := range res.Rows {
		name := row.String("trigger_name")
		tr, ok := byName[name]
		if !ok {
			tr = &catalog.TableTrigger{
				Name:      name,
				Table:     table,
				Schema:    schema,
				Timing:    row.String("action_timing"),
				Action:    row.String("action_statement"),
				Condition: row.String("action_condition"),
			}
			byName[name] = tr
			order = append(order, name)
		}
		tr.Events = append(tr.Events, row.String("event_manipulation"))
	}

	triggers := make([]catalog.TableTrigger, 0, len(order))
	for _, name := range order {
		triggers = append(triggers, *byName[name])
	}
	return triggers, nil
}

// ListTablePartitions returns the child tables attached to table.
func ListTablePartitions(ctx context.Context, ex executor.Executor, table, schema string) (catalog.Partitions, error) {
	res, err := ex.ExecuteSingle(ctx, partitionsQuery, schema, table)
	if err != nil {
		return catalog.Partitions{}, fmt.Errorf("partitions: %w", err)
	}

	parts := make([]catalog.TablePartition, 0, len(res.Rows))
	for _, row := range res.Rows {
		parts = append(parts, catalog.TablePartition{
			Name:       row.String("name"),
			Schema:     row.String("schema"),
			Expression: row.String("expression"),
			Number:     int(row.Int("number")),
		})
	}
	return catalog.SupportedPartitions(parts), nil
}

// TableKeys returns the foreign keys declared on table, one per column pair.
// The database argument is unused; PostgreSQL only sees the current database.
func TableKeys(ctx context.Context, ex executor.Executor, _, table, schema string) ([]catalog.TableKey, error) {
	res, err := ex.ExecuteSingle(ctx, keysQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}

	keys := make([]catalog.TableKey, 0, len(res.Rows))
	for _, row := range res.Rows {
		keys = append(keys, catalog.TableKey{
			ConstraintName: row.String("constraint_name"),
			FromSchema:     row.String("from_schema"),
			FromTable:      row.String("from_table"),
			FromColumn:     row.String("from_column"),
			ToSchema:       row.String("to_schema"),
			ToTable:        row.String("to_table"),
			ToColumn:       row.String("to_column"),
			OnUpdate:       row.String("on_update"),
			OnDelete:       row.String("on_delete"),
		})
	}
	return keys, nil
}

func TableOwner(ctx context.Context, ex executor.Executor, table, schema string) (string, error) {
	res, err := ex.ExecuteSingle(ctx, ownerQuery, schema, table)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	if len(res.Rows) == 0 {
		return "", nil
	}
	return res.Rows[0].String("owner"), nil
}

// TableDetails returns the comment and on-disk sizes of table.
func TableDetails(ctx context.Context, ex executor.Executor, table, schema string) (catalog.TableDetails, error) {
	res, err := ex.ExecuteSingle(ctx, detailsQuery, schema, table)
	if err != nil {
		return catalog.TableDetails{}, fmt.Errorf("details: %w", err)
	}
	if len(res.Rows) == 0 {
		return catalog.TableDetails{}, nil
	}
	row := res.Rows[0]
	return catalog.TableDetails{
		Description: row.String("description"),
		IndexSize:   row.Int("index_size"),
		Size:        row.Int("table_size"),
	}, nil
}

// ListTypes maps the OIDs of user-visible types to their names.
func ListTypes(ctx context.Context, ex executor.Executor) (map[uint32]string, error) {
	res, err := ex.ExecuteSingle(ctx, TypesQuery)
	if err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}
	types := make(map[uint32]string, len(res.Rows))
	for _, row := range res.Rows {
		types[uint32(row.Int("typeid"))] = row.String("typename")
	}
	return types, nil
}

// maxBuiltinOID bounds the probe of pgx's type map; OIDs below it are
// reserved for system objects.
const maxBuiltinOID = 16384

var builtinTypes = sync.OnceValue(func() map[uint32]string {
	m := pgtype.NewMap()
	types := make(map[uint32]string)
	for oid := uint32(1); oid < maxBuiltinOID; oid++ {
		if t, ok := m.TypeForOID(oid); ok {
			types[oid] = t.Name
		}
	}
	return types
})

// BuiltinTypes returns a copy of the OID to name table the pgx driver knows.
func BuiltinTypes() map[uint32]string {
	src := builtinTypes()
	out := make(map[uint32]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
