package resource

import (
	"fmt"
	"sort"
	"strings"

	"QrestAPI/internal/logger"
)

// AliasMap maps relation paths to generated join aliases and back.
// Paths are relative to the root resource, e.g. "author" or "author.group".
// Only cardinality-one chains get aliases: has_many paths are eager-load
// nodes, never parent-query joins (joining them would multiply rows).
type AliasMap struct {
	PathToAlias map[string]string `json:"path_to_alias"`
	AliasToPath map[string]string `json:"alias_to_path"`
}

// maxJoinDepth bounds the alias walk so reentrant declarations terminate.
const maxJoinDepth = 3

// BuildAliasMap walks the resource's cardinality-one relation graph and
// assigns aliases t0, t1, ... in depth-first order with relation names
// sorted at each level. The assignment is fully deterministic, so a cached
// map and a freshly built one are interchangeable.
func BuildAliasMap(root *Resource) *AliasMap {
	pathToAlias := map[string]string{}
	aliasToPath := map[string]string{}
	counter := 0

	var walk func(m *Resource, prefix string, depth int)
	walk = func(m *Resource, prefix string, depth int) {
		if depth >= maxJoinDepth {
			return
		}
		names := make([]string, 0, len(m.Relations))
		for name, rel := range m.Relations {
			if rel.One() {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			rel := m.Relations[name]
			path := name
			if prefix != "" {
				path = prefix + "." + name
			}
			if _, seen := pathToAlias[path]; seen {
				continue
			}
			alias := fmt.Sprintf("t%d", counter)
			counter++
			pathToAlias[path] = alias
			aliasToPath[alias] = path
			if rel.Target() != nil {
				walk(rel.Target(), path, depth+1)
			}
		}
	}
	walk(root, "", 0)

	return &AliasMap{PathToAlias: pathToAlias, AliasToPath: aliasToPath}
}

// DetectJoins resolves the relation paths referenced by filters and sorts
// into LEFT JOIN specs, one per distinct path. A path must be a chain of
// declared cardinality-one relations. Paths are visited in sorted order so
// the join list is deterministic.
func (m *Resource) DetectJoins(aliasMap *AliasMap, paths []string) ([]*JoinSpec, error) {
	joinMap := map[string]*JoinSpec{}
	var joins []*JoinSpec

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	for _, p := range sorted {
		cur := m
		parentAlias := "main"
		walked := ""
		for _, seg := range strings.Split(p, ".") {
			rel := cur.GetRelation(seg)
			if rel == nil || rel.Target() == nil {
				return nil, fmt.Errorf("unknown relation path %q in resource %q", p, m.Name)
			}
			if rel.Many() {
				return nil, fmt.Errorf("relation path %q traverses has_many %q", p, seg)
			}
			if walked == "" {
				walked = seg
			} else {
				walked = walked + "." + seg
			}
			alias, ok := aliasMap.PathToAlias[walked]
			if !ok {
				return nil, fmt.Errorf("alias not found for path %q in resource %q", walked, m.Name)
			}
			if _, exists := joinMap[alias]; !exists {
				var on string
				if rel.Type == "belongs_to" {
					// parent holds the FK: parent.author_id = t0.id
					on = fmt.Sprintf("%s.%s = %s.%s", parentAlias, rel.FK, alias, rel.PK)
				} else {
					// has_one: child holds the FK back to the parent
					on = fmt.Sprintf("%s.%s = %s.%s", alias, rel.FK, parentAlias, rel.PK)
				}
				var args []any
				if rel.Where != "" {
					pred, predArgs, ok := scopeJoinPredicate(rel.Target(), alias, rel.Where)
					if ok {
						on = fmt.Sprintf("(%s) AND (%s)", on, pred)
						args = predArgs
					} else {
						logger.Warn("join_scope_skipped", map[string]any{
							"resource": m.Name, "relation": seg, "where": rel.Where,
						})
					}
				}
				joinMap[alias] = &JoinSpec{
					Table:    rel.Target().Table,
					Alias:    alias,
					On:       on,
					Args:     args,
					Distinct: rel.Type == "has_one",
				}
				joins = append(joins, joinMap[alias])
			}
			parentAlias = alias
			cur = rel.Target()
		}
	}

	return joins, nil
}
