package resolver

import (
	"QrestAPI/internal/query"
	"QrestAPI/internal/resource"
)

// parseCondition turns a declared relation scope condition ("state = visible",
// "kind in draft,review") into a filter for the batched child query. The
// grammar lives in resource.ParseCondition, shared with the join builder.
func parseCondition(cond string) (query.Filter, bool) {
	field, op, value, ok := resource.ParseCondition(cond)
	if !ok {
		return query.Filter{}, false
	}
	return query.Filter{Field: field, Op: op, Value: value}, true
}
