package resource

import "fmt"

var Registry = map[string]*Resource{}

// Kind classifies what a name means for a resource's whitelist.
type Kind int

const (
	KindNone Kind = iota
	KindField
	KindAssociation
	KindRemote
)

func InitRegistry(dir string) error {
	if err := LoadResourcesFromDir(dir); err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	if err := LinkRelations(); err != nil {
		return fmt.Errorf("link error: %w", err)
	}
	return nil
}

// Register adds a declaration to the registry. Registering the same name
// twice merges the declarations instead of erroring; there is no removal.
func Register(name string, decl *Resource) {
	existing, ok := Registry[name]
	if !ok {
		decl.Name = name
		if decl.Fields == nil {
			decl.Fields = map[string]*Field{}
		}
		if decl.Relations == nil {
			decl.Relations = map[string]*Relation{}
		}
		Registry[name] = decl
		return
	}
	if decl.Table != "" {
		existing.Table = decl.Table
	}
	if decl.PrimaryKey != "" {
		existing.PrimaryKey = decl.PrimaryKey
	}
	for _, a := range decl.Actions {
		if !existing.ActionEnabled(a) {
			existing.Actions = append(existing.Actions, a)
		}
	}
	for fname, f := range decl.Fields {
		existing.Fields[fname] = f
	}
	for rname, r := range decl.Relations {
		existing.Relations[rname] = r
	}
	for _, rm := range decl.Remotes {
		if !existing.HasRemote(rm) {
			existing.Remotes = append(existing.Remotes, rm)
		}
	}
	if len(decl.Attributes) > 0 {
		existing.Attributes = decl.Attributes
	}
}

// Allowed resolves a name against the whitelist of the named resource type.
// Undeclared resource types answer KindNone for everything.
func Allowed(resourceName, name string) Kind {
	m, ok := Registry[resourceName]
	if !ok {
		return KindNone
	}
	return m.Allowed(name)
}

// Allowed resolves a name against this resource's whitelist.
func (m *Resource) Allowed(name string) Kind {
	if m == nil {
		return KindNone
	}
	if _, ok := m.Fields[name]; ok {
		return KindField
	}
	if _, ok := m.Relations[name]; ok {
		return KindAssociation
	}
	if m.HasRemote(name) {
		return KindRemote
	}
	return KindNone
}
