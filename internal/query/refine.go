package query

import (
	"fmt"
	"sort"
	"strings"

	"QrestAPI/internal/resource"

	"github.com/Masterminds/squirrel"
)

// EagerNode is one batched eager-load instruction of a Plan.
type EagerNode struct {
	Name string
	Rel  *resource.Relation
	Ref  *Refinement
}

// Plan is the executable representation of a refined request: the parent
// SELECT plus the eager loads to run after it. Request-scoped, never cached.
type Plan struct {
	Res    *resource.Resource
	Select squirrel.SelectBuilder
	Eager  []EagerNode
}

// Refine builds the Plan for a base scope (all rows of the resource) plus a
// refinement. Precedence is fixed: filters, then eager loads, then
// ordering, then limit/offset. Default order is the primary key, so
// repeated calls paginate the same data deterministically.
func Refine(res *resource.Resource, aliasMap *resource.AliasMap, ref *Refinement) (*Plan, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	sb = sb.From(fmt.Sprintf("%s AS main", res.Table))

	eager, err := eagerNodes(res, ref)
	if err != nil {
		return nil, err
	}

	sb = sb.Columns(selectColumns(res, eager, ref.Extras)...)

	joins, err := res.DetectJoins(aliasMap, ref.JoinPaths())
	if err != nil {
		return nil, err
	}
	hasDistinct := false
	for _, join := range joins {
		sb = sb.LeftJoin(fmt.Sprintf("%s AS %s ON %s", join.Table, join.Alias, join.On), join.Args...)
		if join.Distinct {
			hasDistinct = true
		}
	}
	if hasDistinct {
		sb = sb.Distinct()
	}

	where, err := buildWhereClause(res, aliasMap, ref.Filters)
	if err != nil {
		return nil, err
	}
	if where != nil {
		sb = sb.Where(where)
	}

	for _, expr := range orderExprs(res, aliasMap, ref.Order) {
		sb = sb.OrderBy(expr)
	}

	if ref.Limit > 0 {
		sb = sb.Limit(ref.Limit)
	}
	if ref.Offset > 0 {
		sb = sb.Offset(ref.Offset)
	}

	return &Plan{Res: res, Select: sb, Eager: eager}, nil
}

// RefineCount builds a COUNT(*) over the same filtered scope, without
// ordering or pagination.
func RefineCount(res *resource.Resource, aliasMap *resource.AliasMap, ref *Refinement) (squirrel.SelectBuilder, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	sb = sb.From(fmt.Sprintf("%s AS main", res.Table))

	joins, err := res.DetectJoins(aliasMap, ref.JoinPaths())
	if err != nil {
		return sb, err
	}
	countExpr := "COUNT(*)"
	for _, join := range joins {
		sb = sb.LeftJoin(fmt.Sprintf("%s AS %s ON %s", join.Table, join.Alias, join.On), join.Args...)
		if join.Distinct {
			pk, _ := res.Column(res.GetPrimaryKey())
			countExpr = fmt.Sprintf("COUNT(DISTINCT main.%s)", pk)
		}
	}
	sb = sb.Column(countExpr)

	where, err := buildWhereClause(res, aliasMap, ref.Filters)
	if err != nil {
		return sb, err
	}
	if where != nil {
		sb = sb.Where(where)
	}
	return sb, nil
}

// eagerNodes resolves the refinement's association tree against declared
// relations. Nodes for undeclared names cannot exist (the classifier drops
// them), so an unknown name here is an internal inconsistency.
func eagerNodes(res *resource.Resource, ref *Refinement) ([]EagerNode, error) {
	names := make([]string, 0, len(ref.Assocs))
	for name := range ref.Assocs {
		names = append(names, name)
	}
	sort.Strings(names)

	nodes := make([]EagerNode, 0, len(names))
	for _, name := range names {
		rel := res.GetRelation(name)
		if rel == nil || rel.Target() == nil {
			return nil, fmt.Errorf("association node %q not declared on resource %q", name, res.Name)
		}
		nodes = append(nodes, EagerNode{Name: name, Rel: rel, Ref: ref.Assocs[name]})
	}
	return nodes, nil
}

// selectColumns lists the serialized attributes plus whatever keys the
// eager loads need (primary key, belongs_to FKs, the refinement's forced
// extras), each aliased to its field name.
func selectColumns(res *resource.Resource, eager []EagerNode, extras []string) []string {
	fields := res.SerializedAttributes()
	need := map[string]struct{}{res.GetPrimaryKey(): {}}
	for _, n := range eager {
		if n.Rel.Type == "belongs_to" {
			need[n.Rel.FK] = struct{}{}
		} else {
			need[n.Rel.PK] = struct{}{}
		}
	}
	for _, f := range extras {
		need[f] = struct{}{}
	}
	for _, f := range fields {
		delete(need, f)
	}
	extra := make([]string, 0, len(need))
	for f := range need {
		extra = append(extra, f)
	}
	sort.Strings(extra)
	fields = append(fields, extra...)

	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := res.Column(f)
		if !ok {
			continue
		}
		if col == f {
			cols = append(cols, "main."+col)
		} else {
			cols = append(cols, fmt.Sprintf("main.%s AS %s", col, f))
		}
	}
	return cols
}

func orderExprs(res *resource.Resource, aliasMap *resource.AliasMap, terms []OrderTerm) []string {
	if len(terms) == 0 {
		pk, _ := res.Column(res.GetPrimaryKey())
		return []string{"main." + pk + " ASC"}
	}
	exprs := make([]string, 0, len(terms))
	for _, t := range terms {
		alias := "main"
		target := res
		if t.Path != "" {
			a, ok := aliasMap.PathToAlias[t.Path]
			if !ok {
				continue
			}
			alias = a
			target = targetOfPath(res, t.Path)
			if target == nil {
				continue
			}
		}
		col, ok := target.Column(t.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		exprs = append(exprs, fmt.Sprintf("%s.%s %s", alias, col, dir))
	}
	if len(exprs) == 0 {
		pk, _ := res.Column(res.GetPrimaryKey())
		return []string{"main." + pk + " ASC"}
	}
	return exprs
}

// targetOfPath follows a cardinality-one relation path to its final target.
func targetOfPath(res *resource.Resource, path string) *resource.Resource {
	cur := res
	for _, seg := range strings.Split(path, ".") {
		rel := cur.GetRelation(seg)
		if rel == nil || rel.Target() == nil {
			return nil
		}
		cur = rel.Target()
	}
	return cur
}
