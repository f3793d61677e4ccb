package render

import (
	"slices"
	"strconv"
	"strings"

	"github.com/sadopc/dbcatalog/internal/catalog"
	"github.com/sadopc/dbcatalog/internal/config"
	"github.com/sadopc/dbcatalog/internal/dialect"
	"github.com/sadopc/dbcatalog/internal/history"
	"github.com/sadopc/dbcatalog/internal/pool"
)

// Features writes a dialect's capability vector.
func (r *Renderer) Features(f catalog.SupportedFeatures) error {
	return r.emit(f, featuresGrid(f))
}

func featuresGrid(f catalog.SupportedFeatures) grid {
	return grid{
		headers: []string{"FEATURE", "SUPPORTED"},
		rows: [][]string{
			{"custom routines", yesNo(f.CustomRoutines)},
			{"comments", yesNo(f.Comments)},
			{"properties", yesNo(f.Properties)},
			{"partitions", yesNo(f.Partitions)},
			{"edit partitions", yesNo(f.EditPartitions)},
		},
	}
}

// Indexes writes an index listing.
func (r *Renderer) Indexes(indexes []catalog.TableIndex) error {
	return r.emit(indexes, indexesGrid(indexes))
}

func indexesGrid(indexes []catalog.TableIndex) grid {
	g := grid{headers: []string{"ID", "NAME", "PRIMARY", "UNIQUE", "COLUMNS"}}
	for _, idx := range indexes {
		cols := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			cols[i] = c.Name + " " + c.Order
		}
		g.rows = append(g.rows, []string{
			idx.ID,
			idx.Name,
			yesNo(idx.Primary),
			yesNo(idx.Unique),
			strings.Join(cols, ", "),
		})
	}
	return g
}

// Triggers writes a trigger listing.
func (r *Renderer) Triggers(triggers []catalog.TableTrigger) error {
	return r.emit(triggers, triggersGrid(triggers))
}

func triggersGrid(triggers []catalog.TableTrigger) grid {
	g := grid{headers: []string{"NAME", "TIMING", "EVENTS", "ACTION", "CONDITION"}}
	for _, t := range triggers {
		g.rows = append(g.rows, []string{
			t.Name,
			t.Timing,
			strings.Join(t.Events, " OR "),
			t.Action,
			t.Condition,
		})
	}
	return g
}

// Partitions writes a partition listing. A not-applicable result is written
// as a notice in table form and as null in JSON and YAML.
func (r *Renderer) Partitions(p catalog.Partitions) error {
	if !p.Applicable() && r.format == FormatTable {
		return r.Notice("partitions are not applicable to this dialect")
	}
	return r.emit(p, partitionsGrid(p))
}

func partitionsGrid(p catalog.Partitions) grid {
	g := grid{headers: []string{"NUMBER", "NAME", "SCHEMA", "EXPRESSION"}}
	for _, part := range p.Items() {
		g.rows = append(g.rows, []string{
			strconv.Itoa(part.Number),
			part.Name,
			part.Schema,
			part.Expression,
		})
	}
	return g
}

// Keys writes a foreign key listing.
func (r *Renderer) Keys(keys []catalog.TableKey) error {
	return r.emit(keys, keysGrid(keys))
}

func keysGrid(keys []catalog.TableKey) grid {
	g := grid{headers: []string{"CONSTRAINT", "FROM", "TO", "ON UPDATE", "ON DELETE"}}
	for _, k := range keys {
		g.rows = append(g.rows, []string{
			k.ConstraintName,
			qualify(k.FromSchema, k.FromTable, k.FromColumn),
			qualify(k.ToSchema, k.ToTable, k.ToColumn),
			k.OnUpdate,
			k.OnDelete,
		})
	}
	return g
}

func qualify(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}

// Properties writes the aggregate properties of a table. Tables get one
// section per part; CSV gets the summary only.
func (r *Renderer) Properties(p *catalog.TableProperties) error {
	summary := grid{
		headers: []string{"PROPERTY", "VALUE"},
		rows: [][]string{
			{"description", p.Description},
			{"owner", p.Owner},
			{"size", itoa(p.Size)},
			{"index size", itoa(p.IndexSize)},
			{"indexes", strconv.Itoa(len(p.Indexes))},
			{"relations", strconv.Itoa(len(p.Relations))},
			{"triggers", strconv.Itoa(len(p.Triggers))},
		},
	}
	if p.Partitions.Applicable() {
		summary.rows = append(summary.rows, []string{"partitions", strconv.Itoa(len(p.Partitions.Items()))})
	} else {
		summary.rows = append(summary.rows, []string{"partitions", "n/a"})
	}
	if r.format != FormatTable {
		return r.emit(p, summary)
	}

	if err := r.section("Properties", summary); err != nil {
		return err
	}
	if err := r.section("Indexes", indexesGrid(p.Indexes)); err != nil {
		return err
	}
	if err := r.section("Relations", keysGrid(p.Relations)); err != nil {
		return err
	}
	if err := r.section("Triggers", triggersGrid(p.Triggers)); err != nil {
		return err
	}
	if p.Partitions.Applicable() {
		return r.section("Partitions", partitionsGrid(p.Partitions))
	}
	return nil
}

// Types writes a type registry ordered by OID.
func (r *Renderer) Types(reg catalog.TypeRegistry) error {
	g := grid{headers: []string{"OID", "NAME"}}
	oids := make([]uint32, 0, len(reg))
	for oid := range reg {
		oids = append(oids, oid)
	}
	slices.Sort(oids)
	for _, oid := range oids {
		g.rows = append(g.rows, []string{strconv.FormatUint(uint64(oid), 10), reg[oid]})
	}
	return r.emit(reg, g)
}

type poolView struct {
	Host              string `json:"host" yaml:"host"`
	Port              int    `json:"port" yaml:"port"`
	User              string `json:"user" yaml:"user"`
	Password          string `json:"password,omitempty" yaml:"password,omitempty"`
	Database          string `json:"database" yaml:"database"`
	MaxConnections    int    `json:"maxConnections" yaml:"max_connections"`
	ConnectionTimeout string `json:"connectionTimeout" yaml:"connection_timeout"`
	IdleTimeout       string `json:"idleTimeout" yaml:"idle_timeout"`
	SSLMode           string `json:"sslMode,omitempty" yaml:"ssl_mode,omitempty"`
	SSLRootCert       string `json:"sslRootCert,omitempty" yaml:"ssl_root_cert,omitempty"`
	DialectOptions    string `json:"dialectOptions,omitempty" yaml:"dialect_options,omitempty"`
}

// Pool writes a pool configuration. The password is masked.
func (r *Renderer) Pool(cfg pool.Config) error {
	cfg = cfg.Redacted()
	v := poolView{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		Database:          cfg.Database,
		MaxConnections:    cfg.MaxConnections,
		ConnectionTimeout: cfg.ConnectionTimeout.String(),
		IdleTimeout:       cfg.IdleTimeout.String(),
		SSLMode:           cfg.SSLMode,
		SSLRootCert:       cfg.SSLRootCert,
		DialectOptions:    cfg.DialectOptions,
	}
	g := grid{
		headers: []string{"SETTING", "VALUE"},
		rows: [][]string{
			{"host", v.Host},
			{"port", strconv.Itoa(v.Port)},
			{"user", v.User},
			{"password", v.Password},
			{"database", v.Database},
			{"max connections", strconv.Itoa(v.MaxConnections)},
			{"connection timeout", v.ConnectionTimeout},
			{"idle timeout", v.IdleTimeout},
			{"ssl mode", v.SSLMode},
			{"ssl root cert", v.SSLRootCert},
			{"dialect options", v.DialectOptions},
		},
	}
	return r.emit(v, g)
}

type dialectView struct {
	Name          string                    `json:"name" yaml:"name"`
	DefaultPort   int                       `json:"defaultPort" yaml:"default_port"`
	DefaultSchema string                    `json:"defaultSchema,omitempty" yaml:"default_schema,omitempty"`
	Features      catalog.SupportedFeatures `json:"features" yaml:"features"`
}

// Dialects writes the registered dialects with their capability vectors.
func (r *Renderer) Dialects(ds []*dialect.Descriptor) error {
	views := make([]dialectView, len(ds))
	g := grid{headers: []string{"NAME", "PORT", "SCHEMA", "ROUTINES", "COMMENTS", "PROPERTIES", "PARTITIONS", "EDIT PARTITIONS"}}
	for i, d := range ds {
		views[i] = dialectView{
			Name:          d.Name,
			DefaultPort:   d.DefaultPort,
			DefaultSchema: d.DefaultSchema,
			Features:      d.Features,
		}
		f := d.Features
		g.rows = append(g.rows, []string{
			d.Name,
			strconv.Itoa(d.DefaultPort),
			d.DefaultSchema,
			yesNo(f.CustomRoutines),
			yesNo(f.Comments),
			yesNo(f.Properties),
			yesNo(f.Partitions),
			yesNo(f.EditPartitions),
		})
	}
	return r.emit(views, g)
}

type historyView struct {
	ID          int64  `json:"id" yaml:"id"`
	Operation   string `json:"operation" yaml:"operation"`
	Dialect     string `json:"dialect" yaml:"dialect"`
	Server      string `json:"server" yaml:"server"`
	Target      string `json:"target" yaml:"target"`
	ExecutedAt  string `json:"executedAt" yaml:"executed_at"`
	DurationMS  int64  `json:"durationMs" yaml:"duration_ms"`
	ResultCount int64  `json:"resultCount" yaml:"result_count"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// History writes introspection history entries.
func (r *Renderer) History(entries []history.Entry) error {
	views := make([]historyView, len(entries))
	g := grid{headers: []string{"WHEN", "OPERATION", "DIALECT", "SERVER", "TARGET", "MS", "RESULTS", "ERROR"}}
	for i, e := range entries {
		views[i] = historyView{
			ID:          e.ID,
			Operation:   e.Operation,
			Dialect:     e.Dialect,
			Server:      e.Server,
			Target:      e.Target,
			ExecutedAt:  e.ExecutedAt.Format("2006-01-02 15:04:05"),
			DurationMS:  e.DurationMS,
			ResultCount: e.ResultCount,
			Error:       e.Error,
		}
		g.rows = append(g.rows, []string{
			views[i].ExecutedAt,
			e.Operation,
			e.Dialect,
			e.Server,
			e.Target,
			itoa(e.DurationMS),
			itoa(e.ResultCount),
			e.Error,
		})
	}
	return r.emit(views, g)
}

type serverView struct {
	Name    string `json:"name" yaml:"name"`
	Dialect string `json:"dialect" yaml:"dialect"`
	Address string `json:"address" yaml:"address"`
	User    string `json:"user,omitempty" yaml:"user,omitempty"`
	Keyring bool   `json:"keyring" yaml:"keyring"`
	Tunnel  bool   `json:"sshTunnel" yaml:"ssh_tunnel"`
}

// Servers writes the configured servers. Passwords are never shown.
func (r *Renderer) Servers(servers []config.Server) error {
	views := make([]serverView, len(servers))
	g := grid{headers: []string{"NAME", "DIALECT", "ADDRESS", "USER", "KEYRING", "TUNNEL"}}
	for i, s := range servers {
		views[i] = serverView{
			Name:    s.Name,
			Dialect: s.Dialect,
			Address: s.DisplayString(),
			User:    s.User,
			Keyring: s.Keyring,
			Tunnel:  s.SSHTunnel,
		}
		g.rows = append(g.rows, []string{
			s.Name,
			s.Dialect,
			views[i].Address,
			s.User,
			yesNo(s.Keyring),
			yesNo(s.SSHTunnel),
		})
	}
	return r.emit(views, g)
}
