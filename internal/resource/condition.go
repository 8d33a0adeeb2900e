package resource

import "strings"

// ParseCondition splits a declared relation scope condition ("state =
// visible", "kind in draft,review") into field, operator and value.
// Operators are matched longest-first. The batched child query and the
// join builder both go through this, so a scope means the same thing on
// either path.
func ParseCondition(cond string) (field, op string, value any, ok bool) {
	cond = strings.TrimSpace(cond)

	ops := []struct {
		token string
		op    string
	}{
		{"<=", "lte"}, {">=", "gte"}, {"<", "lt"}, {">", "gt"},
		{" in ", "in"}, {" cnt ", "cnt"}, {" start ", "start"}, {" end ", "end"},
		{"=", "eq"},
	}
	for _, o := range ops {
		if !strings.Contains(cond, o.token) {
			continue
		}
		parts := strings.SplitN(cond, o.token, 2)
		if len(parts) != 2 {
			return "", "", nil, false
		}
		field = strings.TrimSpace(parts[0])
		raw := strings.Trim(strings.TrimSpace(parts[1]), "'\"")
		if field == "" || raw == "" {
			return "", "", nil, false
		}

		if o.op == "in" {
			items := strings.Split(raw, ",")
			vals := make([]string, 0, len(items))
			for _, it := range items {
				vals = append(vals, strings.Trim(strings.TrimSpace(it), "'\""))
			}
			return field, o.op, vals, true
		}
		return field, o.op, raw, true
	}
	return "", "", nil, false
}

// scopeJoinPredicate renders a parsed scope condition as a parameterized
// SQL fragment against the join alias. Returns false when the condition
// does not parse or names an undeclared field.
func scopeJoinPredicate(target *Resource, alias, cond string) (string, []any, bool) {
	field, op, value, ok := ParseCondition(cond)
	if !ok {
		return "", nil, false
	}
	col, ok := target.Column(field)
	if !ok {
		return "", nil, false
	}
	qualified := alias + "." + col

	switch op {
	case "eq":
		return qualified + " = ?", []any{value}, true
	case "lt":
		return qualified + " < ?", []any{value}, true
	case "lte":
		return qualified + " <= ?", []any{value}, true
	case "gt":
		return qualified + " > ?", []any{value}, true
	case "gte":
		return qualified + " >= ?", []any{value}, true
	case "in":
		items, _ := value.([]string)
		if len(items) == 0 {
			return "", nil, false
		}
		args := make([]any, len(items))
		for i, it := range items {
			args[i] = it
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(items)), ",")
		return qualified + " IN (" + placeholders + ")", args, true
	case "start":
		s, _ := value.(string)
		return qualified + " LIKE ?", []any{s + "%"}, true
	case "end":
		s, _ := value.(string)
		return qualified + " LIKE ?", []any{"%" + s}, true
	case "cnt":
		s, _ := value.(string)
		return qualified + " LIKE ?", []any{"%" + s + "%"}, true
	}
	return "", nil, false
}
