package resource

import (
	"sort"
	"strings"
)

// Resource describes one exposed resource type as declared in YAML.
type Resource struct {
	Name       string               `yaml:"-"` // logical name, from the file name
	Table      string               `yaml:"table"`
	PrimaryKey string               `yaml:"primary_key"` // defaults to "id"
	Actions    []string             `yaml:"actions"`     // enabled actions; empty = all disabled
	Fields     map[string]*Field    `yaml:"fields"`
	Attributes []string             `yaml:"attributes"` // serialized set; defaults to all fields
	Relations  map[string]*Relation `yaml:"relations"`
	Remotes    []string             `yaml:"remotes"`
}

// Field declares one queryable column of a resource.
type Field struct {
	Type     string `yaml:"type"`     // "int", "string", "bool", "float", "time"
	Column   string `yaml:"column"`   // SQL column, defaults to the field name
	Writable bool   `yaml:"writable"` // accepted in create/update bodies
	Required bool   `yaml:"required"` // create must supply it
}

// Relation declares an association edge to another resource.
type Relation struct {
	Type  string `yaml:"type"`     // has_one, has_many, belongs_to
	Res   string `yaml:"resource"` // target resource name
	FK    string `yaml:"fk"`       // ownership key; defaulted by the linker
	PK    string `yaml:"pk"`       // key on the identity side, defaults to "id"
	Where string `yaml:"where"`    // fixed scope condition, e.g. "state = visible"
	Order string `yaml:"order"`    // default child order, e.g. "-id"

	// runtime, set by the linker
	ref *Resource
}

// JoinSpec is one LEFT JOIN produced for a cardinality-one filter path.
// Distinct is set for has_one joins, where a non-unique FK could multiply
// parent rows.
type JoinSpec struct {
	Table    string
	Alias    string
	On       string
	Args     []any // bind values for a parameterized scope predicate in On
	Distinct bool
}

// Many reports whether the relation is cardinality-many.
func (r *Relation) Many() bool { return r.Type == "has_many" }

// One reports whether the relation is cardinality-one.
func (r *Relation) One() bool { return r.Type == "has_one" || r.Type == "belongs_to" }

// Target returns the linked target resource, nil before linking.
func (r *Relation) Target() *Resource { return r.ref }

func (r *Relation) setTarget(res *Resource) { r.ref = res }

// GetPrimaryKey returns the configured primary key field, defaulting to "id".
func (m *Resource) GetPrimaryKey() string {
	if m.PrimaryKey != "" {
		return m.PrimaryKey
	}
	return "id"
}

// Column maps a declared field name to its SQL column.
// Second result is false when the field is not declared.
func (m *Resource) Column(field string) (string, bool) {
	f, ok := m.Fields[field]
	if !ok {
		return "", false
	}
	if f.Column != "" {
		return f.Column, true
	}
	return field, true
}

// GetRelation returns the declared relation, nil when absent.
func (m *Resource) GetRelation(name string) *Relation {
	if m == nil || m.Relations == nil {
		return nil
	}
	return m.Relations[name]
}

// HasRemote reports whether the named remote collection is declared.
func (m *Resource) HasRemote(name string) bool {
	for _, r := range m.Remotes {
		if r == name {
			return true
		}
	}
	return false
}

// ActionEnabled reports whether the action is on the resource's allow-list.
// Default is all disabled.
func (m *Resource) ActionEnabled(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// SerializedAttributes returns the declared attribute set, falling back to
// every declared field in sorted order when none is configured.
func (m *Resource) SerializedAttributes() []string {
	if len(m.Attributes) > 0 {
		return m.Attributes
	}
	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WritableFields returns the declared writable field names, sorted.
func (m *Resource) WritableFields() []string {
	var names []string
	for name, f := range m.Fields {
		if f.Writable {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result = append(result, '_')
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		result = append(result, r)
	}
	return string(result)
}

// singular trims a plural resource name for FK defaulting: "posts" -> "post".
// Declarations with irregular plurals must set fk explicitly.
func singular(name string) string {
	if strings.HasSuffix(name, "ies") {
		return strings.TrimSuffix(name, "ies") + "y"
	}
	if strings.HasSuffix(name, "s") {
		return strings.TrimSuffix(name, "s")
	}
	return name
}
