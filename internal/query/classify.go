package query

import (
	"net/url"
	"sort"
	"strings"

	"QrestAPI/internal/logger"
	"QrestAPI/internal/resource"
)

// Reserved parameter names. Everything else is matched against the
// resource's whitelist; unresolvable keys are dropped, never rejected, so
// unknown input can neither abort a valid request nor leak into SQL.
const (
	paramOrder   = "order"
	paramLimit   = "limit"
	paramOffset  = "offset"
	paramPage    = "page"
	paramPerPage = "per_page"
	paramInclude = "include"
)

func isReserved(key string) bool {
	switch key {
	case paramOrder, paramLimit, paramOffset, paramPage, paramPerPage, paramInclude:
		return true
	}
	return false
}

// Classify turns raw query parameters into a Refinement for the resource.
// Malformed reserved directives fail with apperr.InvalidDirective; keys not
// resolvable against the whitelist are dropped silently.
func Classify(res *resource.Resource, params url.Values) (*Refinement, error) {
	ref := &Refinement{Assocs: map[string]*Refinement{}}

	if err := classifyPagination(ref, params); err != nil {
		return nil, err
	}
	if err := classifyOrder(res, ref, params.Get(paramOrder)); err != nil {
		return nil, err
	}
	classifyIncludes(res, ref, params[paramInclude])

	// remaining keys: own-field filters, join-path filters, or nested nodes
	nested := map[string]url.Values{}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if isReserved(key) {
			continue
		}
		values := params[key]
		base, op := splitOperator(key)

		head, tail, dotted := strings.Cut(base, ".")
		if !dotted {
			if res.Allowed(base) != resource.KindField {
				dropKey(res, key)
				continue
			}
			ref.Filters = append(ref.Filters, makeFilter("", base, op, values))
			continue
		}

		rel := res.GetRelation(head)
		switch {
		case rel == nil:
			dropKey(res, key)
		case rel.Many():
			// sub-parameters of an association node, classified recursively
			// against the target whitelist (reserved names keep their role
			// inside the node: comments.limit, comments.order, ...)
			sub := tail
			if op != "" {
				sub += "__" + op
			}
			if nested[head] == nil {
				nested[head] = url.Values{}
			}
			nested[head][sub] = values
		default:
			path, field, ok := splitJoinPath(res, base)
			if !ok {
				dropKey(res, key)
				continue
			}
			ref.Filters = append(ref.Filters, makeFilter(path, field, op, values))
		}
	}

	for relName, sub := range nested {
		child, err := Classify(res.GetRelation(relName).Target(), sub)
		if err != nil {
			return nil, err
		}
		if existing, ok := ref.Assocs[relName]; ok {
			mergeNode(existing, child)
		} else {
			ref.Assocs[relName] = child
		}
	}

	return ref, nil
}

// splitOperator peels a trailing __op suffix off a filter key.
// Unknown suffixes are treated as part of the field name, which then fails
// the whitelist and gets dropped.
func splitOperator(key string) (base, op string) {
	if i := strings.LastIndex(key, "__"); i >= 0 {
		if candidate := key[i+2:]; validOperator(candidate) {
			return key[:i], candidate
		}
	}
	return key, ""
}

func validOperator(op string) bool {
	switch op {
	case "eq", "in", "lt", "lte", "gt", "gte", "start", "end", "cnt":
		return true
	}
	return false
}

func makeFilter(path, field, op string, values []string) Filter {
	f := Filter{Path: path, Field: field, Op: op}
	switch {
	case op == "in":
		// __in accepts a comma-separated list in a single value
		var items []string
		for _, v := range values {
			for _, item := range strings.Split(v, ",") {
				items = append(items, strings.TrimSpace(item))
			}
		}
		f.Value = items
	case len(values) > 1:
		// repeated parameter means set membership
		f.Op = "in"
		f.Value = values
	default:
		if f.Op == "" {
			f.Op = "eq"
		}
		f.Value = values[0]
	}
	return f
}

// splitJoinPath validates a dotted cardinality-one path ending in a
// whitelisted field of the final target: "author.group.name" -> path
// "author.group", field "name".
func splitJoinPath(res *resource.Resource, key string) (path, field string, ok bool) {
	segs := strings.Split(key, ".")
	cur := res
	for i := 0; i < len(segs)-1; i++ {
		rel := cur.GetRelation(segs[i])
		if rel == nil || !rel.One() || rel.Target() == nil {
			return "", "", false
		}
		cur = rel.Target()
	}
	field = segs[len(segs)-1]
	if cur.Allowed(field) != resource.KindField {
		return "", "", false
	}
	return strings.Join(segs[:len(segs)-1], "."), field, true
}

// classifyIncludes adds bare eager-load nodes for include=a,b.c paths.
// Paths not resolvable as declared relations are dropped.
func classifyIncludes(res *resource.Resource, ref *Refinement, values []string) {
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			addIncludePath(res, ref, p)
		}
	}
}

func addIncludePath(res *resource.Resource, ref *Refinement, path string) {
	head, tail, _ := strings.Cut(path, ".")
	rel := res.GetRelation(head)
	if rel == nil || rel.Target() == nil {
		dropKey(res, path)
		return
	}
	node, ok := ref.Assocs[head]
	if !ok {
		node = &Refinement{Assocs: map[string]*Refinement{}}
		ref.Assocs[head] = node
	}
	if tail != "" {
		addIncludePath(rel.Target(), node, tail)
	}
}

func mergeNode(dst, src *Refinement) {
	dst.Filters = append(dst.Filters, src.Filters...)
	if len(dst.Order) == 0 {
		dst.Order = src.Order
	}
	if dst.Limit == 0 && src.Limit > 0 {
		dst.Limit = src.Limit
		dst.Offset = src.Offset
	}
	for name, node := range src.Assocs {
		if existing, ok := dst.Assocs[name]; ok {
			mergeNode(existing, node)
		} else {
			dst.Assocs[name] = node
		}
	}
}

func dropKey(res *resource.Resource, key string) {
	logger.Debug("param_dropped", map[string]any{
		"resource": res.Name,
		"key":      key,
	})
}
