// Package render writes catalog results as terminal tables, JSON, YAML or
// CSV.
package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// Formats lists the supported formats in the order they are documented.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatCSV}

// ParseFormat returns the format named s. An empty string selects tables.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatTable, nil
	}
	f := Format(strings.ToLower(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unknown output format %q (want table, json, yaml or csv)", s)
	}
	return f, nil
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithColor enables styled output.
func WithColor(on bool) Option {
	return func(r *Renderer) { r.color = on }
}

// WithTheme selects the theme used when colour is enabled.
func WithTheme(th *Theme) Option {
	return func(r *Renderer) {
		if th != nil {
			r.theme = th
		}
	}
}

// Renderer writes results to w in one format.
type Renderer struct {
	w      io.Writer
	format Format
	color  bool
	theme  *Theme
}

// New creates a Renderer. Colour is off unless WithColor(true) is given.
func New(w io.Writer, format Format, opts ...Option) *Renderer {
	r := &Renderer{w: w, format: format, theme: DefaultTheme()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) activeTheme() *Theme {
	if r.color {
		return r.theme
	}
	return plainTheme
}

// grid is the tabular form of a result.
type grid struct {
	headers []string
	rows    [][]string
}

// emit writes v in the structured formats and g in the tabular ones.
func (r *Renderer) emit(v any, g grid) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(v)
	case FormatYAML:
		return r.writeYAML(v)
	case FormatCSV:
		return r.writeCSV(g)
	default:
		return r.writeTable(g)
	}
}

func (r *Renderer) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	return r.writeHighlighted("json", string(data)+"\n")
}

func (r *Renderer) writeYAML(v any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("render yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("render yaml: %w", err)
	}
	return r.writeHighlighted("yaml", buf.String())
}

func (r *Renderer) writeHighlighted(language, src string) error {
	if r.color {
		src = NewHighlighter(language).Highlight(src, r.theme)
	}
	_, err := io.WriteString(r.w, src)
	return err
}

func (r *Renderer) writeCSV(g grid) error {
	w := csv.NewWriter(r.w)
	if err := w.Write(g.headers); err != nil {
		return err
	}
	if err := w.WriteAll(g.rows); err != nil {
		return err
	}
	return w.Error()
}

func (r *Renderer) writeTable(g grid) error {
	if len(g.rows) == 0 {
		return r.Notice("(no rows)")
	}
	_, err := io.WriteString(r.w, r.table(g)+"\n")
	return err
}

func (r *Renderer) table(g grid) string {
	th := r.activeTheme()
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(th.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return th.Header
			}
			return th.Cell
		}).
		Headers(g.headers...).
		Rows(g.rows...)
	return t.String()
}

// Notice writes a muted one-line message. Structured formats skip it.
func (r *Renderer) Notice(msg string) error {
	if r.format != FormatTable {
		return nil
	}
	_, err := fmt.Fprintln(r.w, r.activeTheme().MutedText.Render(msg))
	return err
}

// Success writes a one-line confirmation. Structured formats skip it.
func (r *Renderer) Success(msg string) error {
	if r.format != FormatTable {
		return nil
	}
	_, err := fmt.Fprintln(r.w, r.activeTheme().SuccessText.Render(msg))
	return err
}

// section writes a titled block of a multi-part table report.
func (r *Renderer) section(title string, g grid) error {
	th := r.activeTheme()
	if _, err := fmt.Fprintln(r.w, th.Title.Render(title)); err != nil {
		return err
	}
	return r.writeTable(g)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
