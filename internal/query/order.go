package query

import (
	"strings"

	"QrestAPI/internal/apperr"
	"QrestAPI/internal/resource"
)

// classifyOrder parses the order directive: a comma-separated list of field
// names, each optionally prefixed with -/+ or suffixed with asc/desc.
// Unknown direction tokens fail the directive; fields not resolvable
// against the whitelist are dropped from the ordering, not rejected.
func classifyOrder(res *resource.Resource, ref *Refinement, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return &apperr.InvalidDirective{Key: paramOrder, Value: raw}
		}

		desc := false
		switch token[0] {
		case '-':
			desc = true
			token = token[1:]
		case '+':
			token = token[1:]
		}

		field := token
		if i := strings.IndexAny(token, " \t"); i >= 0 {
			field = token[:i]
			switch strings.ToLower(strings.TrimSpace(token[i+1:])) {
			case "asc":
			case "desc":
				desc = true
			default:
				return &apperr.InvalidDirective{Key: paramOrder, Value: raw}
			}
		}
		if field == "" {
			return &apperr.InvalidDirective{Key: paramOrder, Value: raw}
		}

		term, ok := resolveOrderField(res, field)
		if !ok {
			dropKey(res, paramOrder+":"+field)
			continue
		}
		term.Desc = desc
		ref.Order = append(ref.Order, term)
	}
	return nil
}

// ParseOrder parses an order directive outside of request classification,
// e.g. a relation's declared default order.
func ParseOrder(res *resource.Resource, raw string) ([]OrderTerm, error) {
	ref := &Refinement{}
	if err := classifyOrder(res, ref, raw); err != nil {
		return nil, err
	}
	return ref.Order, nil
}

func resolveOrderField(res *resource.Resource, field string) (OrderTerm, bool) {
	if !strings.Contains(field, ".") {
		if res.Allowed(field) != resource.KindField {
			return OrderTerm{}, false
		}
		return OrderTerm{Field: field}, true
	}
	path, name, ok := splitJoinPath(res, field)
	if !ok {
		return OrderTerm{}, false
	}
	return OrderTerm{Path: path, Field: name}, true
}
