package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/dbcatalog/internal/config"
)

// Config holds everything needed to open one connection pool. It is built
// once per connect and consumed exactly once.
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	MaxConnections    int
	ConnectionTimeout time.Duration
	IdleTimeout       time.Duration

	// TLS settings in libpq terms. An empty SSLMode leaves the driver
	// default in place.
	SSLMode     string
	SSLRootCert string
	SSLCert     string
	SSLKey      string

	// DialectOptions is opaque to everything but the dialect that set it,
	// e.g. "--cluster=blue" for CockroachDB.
	DialectOptions string
}

// Server options carrying TLS settings, named as in libpq connection strings.
const (
	OptionSSLMode     = "sslmode"
	OptionSSLRootCert = "sslrootcert"
	OptionSSLCert     = "sslcert"
	OptionSSLKey      = "sslkey"
)

// Base assembles the shared part of a pool configuration from the server
// description, the target database and the process-wide pool defaults. It is
// a pure function of its inputs.
func Base(server config.Server, database string, defaults config.Pool) Config {
	if database == "" {
		database = server.Database
	}

	cfg := Config{
		Host:              server.Host,
		Port:              server.Port,
		User:              server.User,
		Password:          server.Password,
		Database:          database,
		MaxConnections:    defaults.MaxConnections,
		ConnectionTimeout: defaults.ConnectTimeout,
		IdleTimeout:       defaults.IdleTimeout,

		SSLMode:     server.Option(OptionSSLMode),
		SSLRootCert: server.Option(OptionSSLRootCert),
		SSLCert:     server.Option(OptionSSLCert),
		SSLKey:      server.Option(OptionSSLKey),
	}

	if server.SSHTunnel {
		cfg.Host = server.LocalHost
		if cfg.Host == "" {
			cfg.Host = "127.0.0.1"
		}
		// A tunnel without a local port forwards on the server's own port.
		if server.LocalPort != 0 {
			cfg.Port = server.LocalPort
		}
	}
	return cfg
}

// PgxConfig maps cfg onto a pgxpool configuration. Unset fields fall back to
// the libpq environment defaults.
func PgxConfig(cfg Config) (*pgxpool.Config, error) {
	if cfg.Port > 65535 {
		return nil, fmt.Errorf("pool config: invalid port %d", cfg.Port)
	}

	pc, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("pool config: %w", err)
	}

	cc := pc.ConnConfig
	if cfg.ConnectionTimeout > 0 {
		cc.ConnectTimeout = cfg.ConnectionTimeout
	}
	if cfg.DialectOptions != "" {
		cc.RuntimeParams["options"] = cfg.DialectOptions
	}

	if cfg.MaxConnections > 0 {
		pc.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.IdleTimeout > 0 {
		pc.MaxConnIdleTime = cfg.IdleTimeout
	}
	return pc, nil
}

// connString renders cfg as a URL so pgx derives the TLS configuration and
// its fallbacks for the target host from the libpq parameters.
func connString(cfg Config) string {
	q := url.Values{}
	if cfg.Host != "" {
		q.Set("host", cfg.Host)
	}
	if cfg.Port > 0 {
		q.Set("port", strconv.Itoa(cfg.Port))
	}
	if cfg.User != "" {
		q.Set("user", cfg.User)
	}
	if cfg.Password != "" {
		q.Set("password", cfg.Password)
	}
	if cfg.Database != "" {
		q.Set("dbname", cfg.Database)
	}
	for key, v := range map[string]string{
		OptionSSLMode:     cfg.SSLMode,
		OptionSSLRootCert: cfg.SSLRootCert,
		OptionSSLCert:     cfg.SSLCert,
		OptionSSLKey:      cfg.SSLKey,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "postgres:///?" + q.Encode()
}

// OpenPgx opens and pings a pgx pool.
func OpenPgx(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := PgxConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("pool connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool ping: %w", err)
	}
	return pool, nil
}

// OpenDB opens a database/sql pool from connector, applies the limits in cfg
// and pings it.
func OpenDB(ctx context.Context, connector driver.Connector, cfg Config) (*sql.DB, error) {
	db := sql.OpenDB(connector)
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}
	if cfg.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(cfg.IdleTimeout)
	}

	pingCtx := ctx
	if cfg.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectionTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pool ping: %w", err)
	}
	return db, nil
}

// Redacted returns a copy of cfg that is safe to print.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "***"
	}
	return c
}
