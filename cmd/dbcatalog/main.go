package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadopc/dbcatalog/internal/audit"
	"github.com/sadopc/dbcatalog/internal/config"
	"github.com/sadopc/dbcatalog/internal/dialect"
	"github.com/sadopc/dbcatalog/internal/history"
	"github.com/sadopc/dbcatalog/internal/render"

	// Register dialects
	_ "github.com/sadopc/dbcatalog/internal/dialect/cockroach"
	_ "github.com/sadopc/dbcatalog/internal/dialect/mysql"
	_ "github.com/sadopc/dbcatalog/internal/dialect/postgres"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries the state shared by all subcommands. It is populated by the
// root command's PersistentPreRunE.
type cli struct {
	v   *viper.Viper
	cfg *config.Config
	log *slog.Logger
	out *render.Renderer

	hist     *history.History
	auditLog *audit.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "dbcatalog",
		Short: "Inspect database catalogs across SQL dialects",
		Long: `dbcatalog reads catalog metadata (indexes, keys, triggers, partitions,
types, sizes and owners) from PostgreSQL, CockroachDB and MySQL through one
uniform model.

Examples:
  dbcatalog --dsn postgres://root@localhost:26257/shop --dialect cockroach indexes orders
  dbcatalog --server crdb properties orders -o json
  dbcatalog --dialect mysql --dsn 'root:pw@tcp(127.0.0.1:3306)/shop' keys orders
  dbcatalog dialects`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) { c.teardown() },
	}

	f := root.PersistentFlags()
	f.StringP("config", "c", "", "Config file path (default ~/.config/dbcatalog/config.yaml)")
	f.StringP("server", "s", "", "Named server from the config file")
	f.String("dsn", "", "Connection URL or driver DSN")
	f.StringP("dialect", "a", "", "Dialect ("+strings.Join(dialect.Names(), ", ")+")")
	f.StringP("database", "d", "", "Database to inspect")
	f.String("schema", "", "Schema (default: the dialect's default schema)")
	f.StringP("output", "o", "table", "Output format (table, json, yaml, csv)")
	f.Bool("no-color", false, "Disable coloured output")
	f.String("theme", "default", "Colour theme (default, light, monokai)")
	f.BoolP("verbose", "v", false, "Log each catalog operation")

	for key, flag := range map[string]string{
		"server":   "server",
		"dsn":      "dsn",
		"dialect":  "dialect",
		"database": "database",
		"schema":   "schema",
		"output":   "output",
		"no_color": "no-color",
		"theme":    "theme",
		"verbose":  "verbose",
	} {
		_ = c.v.BindPFlag(key, f.Lookup(flag))
	}

	root.AddCommand(
		c.featuresCmd(),
		c.indexesCmd(),
		c.triggersCmd(),
		c.partitionsCmd(),
		c.keysCmd(),
		c.propertiesCmd(),
		c.typesCmd(),
		c.poolCmd(),
		c.dialectsCmd(),
		c.serversCmd(),
		c.historyCmd(),
		c.configCmd(),
		versionCmd(),
	)
	return root
}

// setup loads configuration and opens the logger, renderer, history store
// and audit log.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	if c.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	c.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.log)

	var err error
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		c.cfg, err = config.Load(c.v, path)
	} else {
		c.cfg, err = config.LoadDefault(c.v)
	}
	if err != nil {
		c.log.Warn("could not load config", "error", err)
		c.cfg = config.DefaultConfig()
	}

	format, err := render.ParseFormat(c.v.GetString("output"))
	if err != nil {
		return err
	}
	c.out = render.New(cmd.OutOrStdout(), format,
		render.WithColor(!c.v.GetBool("no_color")),
		render.WithTheme(render.GetTheme(c.v.GetString("theme"))),
	)

	if c.cfg.History.Enabled {
		if c.cfg.History.Path != "" {
			c.hist, err = history.Open(c.cfg.History.Path)
		} else {
			c.hist, err = history.New()
		}
		if err != nil {
			c.log.Warn("could not open history", "error", err)
			c.hist = nil
		}
	}

	if c.cfg.Audit.Enabled {
		auditPath := c.cfg.Audit.Path
		if auditPath == "" {
			if dir, err := config.ConfigDir(); err == nil {
				auditPath = filepath.Join(dir, "audit.jsonl")
			}
		}
		if auditPath != "" {
			c.auditLog, err = audit.New(auditPath, c.cfg.Audit.MaxSizeMB)
			if err != nil {
				c.log.Warn("could not open audit log", "error", err)
				c.auditLog = nil
			}
		}
	}
	return nil
}

func (c *cli) teardown() {
	if c.hist != nil {
		_ = c.hist.Close()
	}
	_ = c.auditLog.Close()
}

// target resolves the server, dialect and database named by the flags.
func (c *cli) target() (*dialect.Descriptor, config.Server, error) {
	var (
		server config.Server
		err    error
	)
	name := c.v.GetString("dialect")

	switch dsn := c.v.GetString("dsn"); {
	case dsn != "":
		if name == "" {
			name = detectDialect(dsn)
		}
		if name == "" {
			return nil, server, fmt.Errorf("cannot tell the dialect of %q; pass --dialect", audit.SanitizeDSN(dsn))
		}
		d, err := dialect.Lookup(name)
		if err != nil {
			return nil, server, err
		}
		server, err = d.ParseServer(dsn)
		if err != nil {
			return nil, server, err
		}
		return d, server, nil

	case c.v.GetString("server") != "":
		server, err = c.cfg.Server(c.v.GetString("server"))
		if err != nil {
			return nil, server, err
		}
		if name == "" {
			name = server.Dialect
		}

	case name != "":
		server = config.Server{Dialect: name, Host: "localhost"}

	default:
		return nil, server, fmt.Errorf("no connection given; pass --dsn, --server or --dialect")
	}

	d, err := dialect.Lookup(name)
	if err != nil {
		return nil, server, err
	}
	server.Dialect = d.Name
	return d, server, nil
}

// client builds an unconnected client for the flags' target.
func (c *cli) client() (*dialect.Client, config.Server, error) {
	d, server, err := c.target()
	if err != nil {
		return nil, server, err
	}
	database := c.v.GetString("database")
	session := audit.Session{
		Dialect:      d.Name,
		DatabaseName: database,
		DSN:          c.v.GetString("dsn"),
	}
	if session.DatabaseName == "" {
		session.DatabaseName = server.Database
	}
	if session.DSN == "" {
		session.DSN = server.DisplayString()
	}

	cl := dialect.New(d, server, database,
		dialect.WithLogger(c.log),
		dialect.WithPool(c.cfg.Pool),
		dialect.WithMiddleware(c.auditLog.Middleware(session)),
	)
	return cl, server, nil
}

// run connects, runs fn and records the run in history. fn returns the number
// of results it rendered.
func (c *cli) run(ctx context.Context, op, target string, fn func(ctx context.Context, cl *dialect.Client) (int, error)) error {
	cl, server, err := c.client()
	if err != nil {
		return err
	}

	start := time.Now()
	count, err := func() (int, error) {
		if err := cl.Connect(ctx); err != nil {
			return 0, err
		}
		defer cl.Close()
		return fn(ctx, cl)
	}()

	c.record(history.Entry{
		Operation:   op,
		Dialect:     cl.Dialect(),
		Server:      serverLabel(server),
		Target:      target,
		ExecutedAt:  start,
		DurationMS:  time.Since(start).Milliseconds(),
		ResultCount: int64(count),
		IsError:     err != nil,
		Error:       errString(err),
	})
	return err
}

func (c *cli) record(e history.Entry) {
	if c.hist == nil {
		return
	}
	if err := c.hist.Add(e); err != nil {
		c.log.Warn("could not record history", "error", err)
	}
}

func serverLabel(s config.Server) string {
	if s.Name != "" {
		return s.Name
	}
	return s.DisplayString()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// detectDialect guesses the dialect of a DSN from its scheme or shape.
func detectDialect(dsn string) string {
	lower := strings.ToLower(dsn)
	if i := strings.Index(lower, "://"); i > 0 {
		if d, err := dialect.Lookup(lower[:i]); err == nil {
			return d.Name
		}
		return ""
	}
	if strings.Contains(lower, "@tcp(") || strings.Contains(lower, "@unix(") {
		return "mysql"
	}
	return ""
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dbcatalog %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nSupported dialects:")
			for _, name := range dialect.Names() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
		},
	}
}
