package mysql

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/sadopc/dbcatalog/internal/catalog"
	"github.com/sadopc/dbcatalog/internal/config"
	"github.com/sadopc/dbcatalog/internal/dialect"
	"github.com/sadopc/dbcatalog/internal/executor"
	"github.com/sadopc/dbcatalog/internal/pool"
)

const (
	Name        = "mysql"
	DefaultPort = 3306
)

func init() {
	dialect.Register(Descriptor())
}

// Descriptor returns the MySQL descriptor. MySQL has no table owners and no
// type OIDs, so those operations are left unset. A schema is a database; an
// empty schema means the connection's current database.
func Descriptor() *dialect.Descriptor {
	return &dialect.Descriptor{
		Name:        Name,
		DefaultPort: DefaultPort,
		Features: catalog.SupportedFeatures{
			CustomRoutines: true,
			Comments:       true,
			Properties:     true,
			Partitions:     true,
			EditPartitions: false,
		},

		ConfigureConnection: pool.Base,
		Open:                Open,
		ParseDSN:            ServerFromDSN,

		ListTableIndexes:    ListTableIndexes,
		ListTableTriggers:   ListTableTriggers,
		ListTablePartitions: ListTablePartitions,
		TableKeys:           TableKeys,
		TableDetails:        TableDetails,
	}
}

// Connect opens a MySQL client for database on server.
func Connect(ctx context.Context, server config.Server, database string, opts ...dialect.Option) (*dialect.Client, error) {
	c := dialect.New(Descriptor(), server, database, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// DriverConfig maps cfg onto a go-sql-driver configuration. The libpq
// sslmode values are translated to the driver's TLS settings.
func DriverConfig(cfg pool.Config) (*mysql.Config, error) {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectionTimeout
	if err := applyTLS(mc, cfg, host); err != nil {
		return nil, err
	}
	return mc, nil
}

func applyTLS(mc *mysql.Config, cfg pool.Config, host string) error {
	switch cfg.SSLMode {
	case "":
	case "disable":
		mc.TLSConfig = "false"
	case "allow", "prefer":
		mc.TLSConfig = "preferred"
	case "require":
		mc.TLSConfig = "skip-verify"
	case "verify-ca", "verify-full":
		tc := &tls.Config{ServerName: host}
		if cfg.SSLRootCert != "" {
			pem, err := os.ReadFile(cfg.SSLRootCert)
			if err != nil {
				return fmt.Errorf("mysql: read sslrootcert: %w", err)
			}
			tc.RootCAs = x509.NewCertPool()
			if !tc.RootCAs.AppendCertsFromPEM(pem) {
				return fmt.Errorf("mysql: no certificates in %s", cfg.SSLRootCert)
			}
		}
		if cfg.SSLCert != "" && cfg.SSLKey != "" {
			cert, err := tls.LoadX509KeyPair(cfg.SSLCert, cfg.SSLKey)
			if err != nil {
				return fmt.Errorf("mysql: load client certificate: %w", err)
			}
			tc.Certificates = []tls.Certificate{cert}
		}
		mc.TLS = tc
	default:
		return fmt.Errorf("mysql: unsupported sslmode %q", cfg.SSLMode)
	}
	return nil
}

// Open opens a database/sql pool through the MySQL driver.
func Open(ctx context.Context, cfg pool.Config) (executor.Conn, error) {
	mc, err := DriverConfig(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db, err := pool.OpenDB(ctx, connector, cfg)
	if err != nil {
		return nil, err
	}
	return executor.NewSQL(db), nil
}

// ServerFromDSN accepts a mysql:// URL or a go-sql-driver DSN such as
// user:pass@tcp(host:3306)/db.
func ServerFromDSN(dsn string) (config.Server, error) {
	if strings.HasPrefix(dsn, "mysql://") || strings.HasPrefix(dsn, "mariadb://") {
		return config.ServerFromURL(dsn)
	}

	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return config.Server{}, fmt.Errorf("mysql: invalid dsn: %w", err)
	}
	s := config.Server{
		Dialect:  Name,
		User:     mc.User,
		Password: mc.Passwd,
		Database: mc.DBName,
	}
	host, port, err := net.SplitHostPort(mc.Addr)
	if err != nil {
		s.Host = mc.Addr
		return s, nil
	}
	s.Host = host
	s.Port, _ = strconv.Atoi(port)
	return s, nil
}

// quoteIdent quotes an identifier with backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func showIndex(table, schema string) string {
	target := quoteIdent(table)
	if schema != "" {
		target = quoteIdent(schema) + "." + target
	}
	return "SHOW INDEX FROM " + target
}

var indexSpec = dialect.IndexRowSpec{
	Name:      "Key_name",
	NonUnique: "Non_unique",
	Seq:       "Seq_in_index",
	Column:    "Column_name",
	IsPrimary: func(first executor.Row) bool {
		return first.String("Key_name") == "PRIMARY"
	},
	Order: func(row executor.Row) string {
		// Collation is A, D or NULL for unsorted (hash) indexes.
		if row.String("Collation") == "D" {
			return "DESC"
		}
		return "ASC"
	},
}

// ListTableIndexes runs SHOW INDEX and groups its per-column rows.
func ListTableIndexes(ctx context.Context, ex executor.Executor, table, schema string) ([]catalog.TableIndex, error) {
	res, err := ex.ExecuteSingle(ctx, showIndex(table, schema))
	if err != nil {
		return nil, fmt.Errorf("show index: %w", err)
	}
	// Functional key parts have no column name.
	for _, row := range res.Rows {
		if row.String("Column_name") == "" {
			row["Column_name"] = row.String("Expression")
		}
	}
	return dialect.GroupIndexRows(res.Rows, indexSpec, table, schema), nil
}

const triggersQuery = `
SELECT TRIGGER_NAME       AS trigger_name,
       EVENT_MANIPULATION AS event_manipulation,
       ACTION_TIMING      AS action_timing,
       ACTION_STATEMENT   AS action_statement
FROM information_schema.TRIGGERS
WHERE EVENT_OBJECT_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND EVENT_OBJECT_TABLE  = ?
ORDER BY ACTION_ORDER, TRIGGER_NAME`

// ListTableTriggers returns the triggers of table. MySQL triggers fire on a
// single event.
func ListTableTriggers(ctx context.Context, ex executor.Executor, table, schema string) ([]catalog.TableTrigger, error) {
	res, err := ex.ExecuteSingle(ctx, triggersQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("triggers: %w", err)
	}
	triggers := make([]catalog.TableTrigger, 0, len(res.Rows))
	for _, row := range res.Rows {
		triggers = append(triggers, catalog.TableTrigger{
			Name:   row.String("trigger_name"),
			Table:  table,
			Schema: schema,
			Timing: row.String("action_timing"),
			Events: []string{row.String("event_manipulation")},
			Action: row.String("action_statement"),
		})
	}
	return triggers, nil
}

const partitionsQuery = `
SELECT TABLE_SCHEMA                           AS table_schema,
       PARTITION_NAME                         AS partition_name,
       COALESCE(PARTITION_DESCRIPTION, '')    AS description,
       PARTITION_ORDINAL_POSITION             AS position
FROM information_schema.PARTITIONS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND TABLE_NAME   = ?
  AND PARTITION_NAME IS NOT NULL
ORDER BY PARTITION_ORDINAL_POSITION`

// ListTablePartitions returns the partitions of table. An unpartitioned table
// yields an applicable, empty listing.
func ListTablePartitions(ctx context.Context, ex executor.Executor, table, schema string) (catalog.Partitions, error) {
	res, err := ex.ExecuteSingle(ctx, partitionsQuery, schema, table)
	if err != nil {
		return catalog.Partitions{}, fmt.Errorf("partitions: %w", err)
	}
	parts := make([]catalog.TablePartition, 0, len(res.Rows))
	for _, row := range res.Rows {
		parts = append(parts, catalog.TablePartition{
			Name:       row.String("partition_name"),
			Schema:     row.String("table_schema"),
			Expression: row.String("description"),
			Number:     int(row.Int("position")),
		})
	}
	return catalog.SupportedPartitions(parts), nil
}

const keysQuery = `
SELECT kcu.CONSTRAINT_NAME         AS constraint_name,
       kcu.TABLE_SCHEMA            AS from_schema,
       kcu.TABLE_NAME              AS from_table,
       kcu.COLUMN_NAME             AS from_column,
       kcu.REFERENCED_TABLE_SCHEMA AS to_schema,
       kcu.REFERENCED_TABLE_NAME   AS to_table,
       kcu.REFERENCED_COLUMN_NAME  AS to_column,
       rc.UPDATE_RULE              AS on_update,
       rc.DELETE_RULE              AS on_delete
FROM information_schema.KEY_COLUMN_USAGE kcu
JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
	ON  rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
	AND rc.CONSTRAINT_NAME   = kcu.CONSTRAINT_NAME
WHERE kcu.TABLE_SCHEMA          = COALESCE(NULLIF(?, ''), DATABASE())
  AND kcu.TABLE_NAME            = ?
  AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

// TableKeys returns the foreign keys of table. The schema wins over db when
// both are set.
func TableKeys(ctx context.Context, ex executor.Executor, db, table, schema string) ([]catalog.TableKey, error) {
	if schema == "" {
		schema = db
	}
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

const detailsQuery = `
SELECT TABLE_COMMENT AS description,
       INDEX_LENGTH  AS index_size,
       DATA_LENGTH   AS table_size
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND TABLE_NAME   = ?`

// TableDetails returns the comment and the storage engine's size estimates.
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
