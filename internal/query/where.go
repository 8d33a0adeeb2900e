package query

import (
	"fmt"

	"QrestAPI/internal/logger"
	"QrestAPI/internal/resource"

	"github.com/Masterminds/squirrel"
)

// buildWhereClause turns the refinement's filters into one conjunctive
// squirrel expression. Filter order does not matter; the filters slice is
// applied as given.
func buildWhereClause(res *resource.Resource, aliasMap *resource.AliasMap, filters []Filter) (squirrel.Sqlizer, error) {
	var exprs []squirrel.Sqlizer

	for _, f := range filters {
		column, err := resolveColumn(res, aliasMap, f)
		if err != nil {
			return nil, err
		}
		if cond := buildCond(column, f); cond != nil {
			exprs = append(exprs, cond)
		}
	}

	if len(exprs) == 0 {
		return nil, nil
	}
	return squirrel.And(exprs), nil
}

// resolveColumn maps a filter to its qualified SQL column: the root table
// is aliased "main", join targets use the alias map.
func resolveColumn(res *resource.Resource, aliasMap *resource.AliasMap, f Filter) (string, error) {
	target := res
	alias := "main"
	if f.Path != "" {
		var ok bool
		alias, ok = aliasMap.PathToAlias[f.Path]
		if !ok {
			return "", fmt.Errorf("no alias for relation path %q in resource %q", f.Path, res.Name)
		}
		target = targetOfPath(res, f.Path)
		if target == nil {
			return "", fmt.Errorf("unresolvable relation path %q in resource %q", f.Path, res.Name)
		}
	}
	col, ok := target.Column(f.Field)
	if !ok {
		return "", fmt.Errorf("field %q not declared on resource %q", f.Field, target.Name)
	}
	return alias + "." + col, nil
}

func buildCond(column string, f Filter) squirrel.Sqlizer {
	switch f.Op {
	case "eq", "in":
		return squirrel.Eq{column: f.Value} // Eq emits IN for slices
	case "lt":
		return squirrel.Lt{column: f.Value}
	case "lte":
		return squirrel.LtOrEq{column: f.Value}
	case "gt":
		return squirrel.Gt{column: f.Value}
	case "gte":
		return squirrel.GtOrEq{column: f.Value}
	case "start":
		if s, ok := f.Value.(string); ok {
			return squirrel.Like{column: s + "%"}
		}
	case "end":
		if s, ok := f.Value.(string); ok {
			return squirrel.Like{column: "%" + s}
		}
	case "cnt":
		if s, ok := f.Value.(string); ok {
			return squirrel.Like{column: "%" + s + "%"}
		}
	}
	logger.Warn("unknown_filter_operator", map[string]any{
		"op":    f.Op,
		"field": f.Field,
	})
	return nil
}
