package catalog

import (
	"encoding/json"
	"fmt"
)

// SupportedFeatures declares which introspection operations are meaningful
// for a dialect. Callers consult it before invoking an operation.
type SupportedFeatures struct {
	CustomRoutines bool `json:"customRoutines" yaml:"custom_routines"`
	Comments       bool `json:"comments" yaml:"comments"`
	Properties     bool `json:"properties" yaml:"properties"`
	Partitions     bool `json:"partitions" yaml:"partitions"`
	EditPartitions bool `json:"editPartitions" yaml:"edit_partitions"`
}

// TableIndex represents an index on a table. ID is a per-result sequence
// number, not a catalog identifier.
type TableIndex struct {
	ID      string        `json:"id" yaml:"id"`
	Name    string        `json:"name" yaml:"name"`
	Table   string        `json:"table" yaml:"table"`
	Schema  string        `json:"schema" yaml:"schema"`
	Primary bool          `json:"primary" yaml:"primary"`
	Unique  bool          `json:"unique" yaml:"unique"`
	Columns []IndexColumn `json:"columns" yaml:"columns"`
}

// IndexColumn is one column of an index, in index column order.
type IndexColumn struct {
	Name  string `json:"name" yaml:"name"`
	Order string `json:"order" yaml:"order"`
}

// TableTrigger represents a trigger defined on a table.
type TableTrigger struct {
	Name      string   `json:"name" yaml:"name"`
	Table     string   `json:"table" yaml:"table"`
	Schema    string   `json:"schema" yaml:"schema"`
	Timing    string   `json:"timing" yaml:"timing"`
	Events    []string `json:"events" yaml:"events"`
	Action    string   `json:"action" yaml:"action"`
	Condition string   `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// TablePartition represents a child partition of a partitioned table.
type TablePartition struct {
	Name       string `json:"name" yaml:"name"`
	Schema     string `json:"schema" yaml:"schema"`
	Expression string `json:"expression" yaml:"expression"`
	Number     int    `json:"number" yaml:"number"`
}

// Partitions is the result of a partition listing. A dialect without a
// partitioning concept returns NotApplicable, which is distinct from a
// supported listing with zero partitions.
type Partitions struct {
	applicable bool
	items      []TablePartition
}

// NotApplicable returns the partition result for dialects that have no
// partitioning concept.
func NotApplicable() Partitions {
	return Partitions{}
}

// SupportedPartitions wraps a partition listing from a dialect that supports
// partitioning. A nil slice is normalized to an empty one.
func SupportedPartitions(items []TablePartition) Partitions {
	if items == nil {
		items = []TablePartition{}
	}
	return Partitions{applicable: true, items: items}
}

// Applicable reports whether the dialect has a partitioning concept.
func (p Partitions) Applicable() bool { return p.applicable }

// Items returns the partitions. It is nil when the result is not applicable.
func (p Partitions) Items() []TablePartition { return p.items }

// MarshalJSON encodes NotApplicable as null and a supported listing as an array.
func (p Partitions) MarshalJSON() ([]byte, error) {
	if !p.applicable {
		return []byte("null"), nil
	}
	return json.Marshal(p.items)
}

// MarshalYAML mirrors MarshalJSON.
func (p Partitions) MarshalYAML() (any, error) {
	if !p.applicable {
		return nil, nil
	}
	return p.items, nil
}

// TableKey describes one column of a foreign key relation.
type TableKey struct {
	ConstraintName string `json:"constraintName" yaml:"constraint_name"`
	FromSchema     string `json:"fromSchema" yaml:"from_schema"`
	FromTable      string `json:"fromTable" yaml:"from_table"`
	FromColumn     string `json:"fromColumn" yaml:"from_column"`
	ToSchema       string `json:"toSchema" yaml:"to_schema"`
	ToTable        string `json:"toTable" yaml:"to_table"`
	ToColumn       string `json:"toColumn" yaml:"to_column"`
	OnUpdate       string `json:"onUpdate" yaml:"on_update"`
	OnDelete       string `json:"onDelete" yaml:"on_delete"`
}

// TableDetails holds the description and size figures of a table. Sizes are
// zero when the engine does not expose them.
type TableDetails struct {
	Description string
	IndexSize   int64
	Size        int64
}

// TableProperties aggregates everything known about a table.
type TableProperties struct {
	Description string         `json:"description" yaml:"description"`
	IndexSize   int64          `json:"indexSize" yaml:"index_size"`
	Size        int64          `json:"size" yaml:"size"`
	Indexes     []TableIndex   `json:"indexes" yaml:"indexes"`
	Relations   []TableKey     `json:"relations" yaml:"relations"`
	Triggers    []TableTrigger `json:"triggers" yaml:"triggers"`
	Partitions  Partitions     `json:"partitions" yaml:"partitions"`
	Owner       string         `json:"owner" yaml:"owner"`
}

// TypeRegistry maps engine type OIDs to type names.
type TypeRegistry map[uint32]string

// Name returns the type name for oid, or "oid:<n>" when it is unknown.
func (r TypeRegistry) Name(oid uint32) string {
	if name, ok := r[oid]; ok {
		return name
	}
	return fmt.Sprintf("oid:%d", oid)
}

// MergeTypes builds a registry from catalog-derived types, the driver's
// builtin table and forced overrides, in that order. Later sources win on
// conflicting OIDs.
func MergeTypes(catalogTypes, builtin, overrides map[uint32]string) TypeRegistry {
	reg := make(TypeRegistry, len(catalogTypes)+len(builtin)+len(overrides))
	for oid, name := range catalogTypes {
		reg[oid] = name
	}
	for oid, name := range builtin {
		reg[oid] = name
	}
	for oid, name := range overrides {
		reg[oid] = name
	}
	return reg
}
