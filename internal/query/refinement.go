package query

// Refinement is the classified, validated form of one request's query
// parameters. Built fresh per request, discarded after execution.
type Refinement struct {
	Filters []Filter
	Order   []OrderTerm
	Limit   uint64
	Offset  uint64

	// Assocs is the association-traversal tree: one node per requested
	// cardinality-many relation (or explicitly included relation), each
	// classified against the target resource's whitelist.
	Assocs map[string]*Refinement

	// Extras are fields the caller needs in the result rows even when the
	// declared attribute set omits them, e.g. the ownership key a batched
	// child query is grouped by. Never client-supplied.
	Extras []string
}

// Filter is one conjunctive predicate. Path is empty for the resource's own
// fields; otherwise it names a chain of cardinality-one relations
// ("author", "author.group") whose target declares Field.
type Filter struct {
	Path  string
	Field string
	Op    string // eq, in, lt, lte, gt, gte, start, end, cnt
	Value any    // string or []string; []string means set membership
}

// OrderTerm is one entry of the ordering specification.
type OrderTerm struct {
	Path  string // cardinality-one relation path, "" for own fields
	Field string
	Desc  bool
}

// JoinPaths returns the distinct relation paths the refinement's filters
// and ordering reference, i.e. the LEFT JOINs the parent query needs.
func (r *Refinement) JoinPaths() []string {
	seen := map[string]struct{}{}
	var paths []string
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	for _, f := range r.Filters {
		add(f.Path)
	}
	for _, o := range r.Order {
		add(o.Path)
	}
	return paths
}

// DropFilter removes every filter on the given own-field name.
// Used by the association resolver to keep ownership keys non-overridable.
func (r *Refinement) DropFilter(field string) {
	kept := r.Filters[:0]
	for _, f := range r.Filters {
		if f.Path == "" && f.Field == field {
			continue
		}
		kept = append(kept, f)
	}
	r.Filters = kept
}
