package resolver

import (
	"context"
	"fmt"

	"QrestAPI/internal/apperr"
	"QrestAPI/internal/query"
	"QrestAPI/internal/resource"
)

// loadAssociation runs one batched child query for an eager-load node and
// attaches the grouped results to the parent items under the node's name.
func loadAssociation(ctx context.Context, node query.EagerNode, items []map[string]any) error {
	rel := node.Rel
	child := rel.Target()
	if child == nil {
		return fmt.Errorf("relation %q has no linked target", node.Name)
	}

	// which key identifies the parent, and which column anchors the child
	parentKey, childKey := rel.PK, rel.FK
	if rel.Type == "belongs_to" {
		parentKey, childKey = rel.FK, rel.PK
	}

	ids := collectIDs(items, parentKey)
	if len(ids) == 0 {
		attachEmpty(node, items)
		return nil
	}

	childRef := childRefinement(node, child, childKey, ids)
	childItems, err := List(ctx, child, childRef)
	if err != nil {
		return err
	}

	grouped := make(map[any][]map[string]any, len(ids))
	for _, row := range childItems {
		key := row[childKeyField(rel)]
		grouped[key] = append(grouped[key], row)
	}

	limit, offset := nodeWindow(node)
	for _, item := range items {
		pid := item[parentKey]
		group := grouped[pid]
		if rel.One() {
			if len(group) == 0 {
				item[node.Name] = nil
			} else {
				item[node.Name] = group[0]
			}
			continue
		}
		item[node.Name] = window(group, limit, offset)
	}
	return nil
}

// childRefinement builds the refinement for the batched child query. For
// cardinality-many nodes the client's nested refinement applies inside the
// child collection; for cardinality-one it is short-circuited entirely.
// Either way the ownership anchor is appended after any client filter on
// the same field has been discarded, so it cannot be overridden.
func childRefinement(node query.EagerNode, child *resource.Resource, childKey string, ids []any) *query.Refinement {
	rel := node.Rel

	ref := &query.Refinement{
		Assocs: node.Ref.Assocs,
		Limit:  maxChildLimit,
		// the grouping key must come back even when the child's attribute
		// set omits it
		Extras: []string{childKeyField(rel)},
	}
	if rel.Many() {
		ref.Filters = append(ref.Filters, node.Ref.Filters...)
		ref.Order = node.Ref.Order
	}
	ref.DropFilter(childKeyField(rel))
	ref.Filters = append(ref.Filters, query.Filter{Field: childKeyField(rel), Op: "in", Value: ids})

	if rel.Where != "" {
		if f, ok := parseCondition(rel.Where); ok {
			ref.Filters = append(ref.Filters, f)
		}
	}
	if len(ref.Order) == 0 && rel.Order != "" {
		if terms, err := query.ParseOrder(child, rel.Order); err == nil {
			ref.Order = terms
		}
	}
	return ref
}

// nodeWindow extracts the per-parent slice window of a cardinality-many
// node. The SQL query is batched across parents, so the node's limit and
// offset are applied per group, after the child rows are grouped.
func nodeWindow(node query.EagerNode) (limit, offset uint64) {
	if !node.Rel.Many() {
		return 0, 0
	}
	return node.Ref.Limit, node.Ref.Offset
}

func window(group []map[string]any, limit, offset uint64) []map[string]any {
	if group == nil {
		return []map[string]any{}
	}
	if offset >= uint64(len(group)) {
		return []map[string]any{}
	}
	group = group[offset:]
	if limit > 0 && limit < uint64(len(group)) {
		group = group[:limit]
	}
	return group
}

// childKeyField is the child-side field the batch anchors on: the FK for
// has_one/has_many, the target's PK for belongs_to.
func childKeyField(rel *resource.Relation) string {
	if rel.Type == "belongs_to" {
		return rel.PK
	}
	return rel.FK
}

func collectIDs(items []map[string]any, key string) []any {
	seen := make(map[any]struct{}, len(items))
	ids := make([]any, 0, len(items))
	for _, item := range items {
		v, ok := item[key]
		if !ok || v == nil {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		ids = append(ids, v)
	}
	return ids
}

func attachEmpty(node query.EagerNode, items []map[string]any) {
	for _, item := range items {
		if node.Rel.One() {
			item[node.Name] = nil
		} else {
			item[node.Name] = []map[string]any{}
		}
	}
}

// Associated serves the associated action: the parent record's named
// association as a collection, refined by the nested request. The child
// scope is always anchored to the parent's identity; a client filter on
// the ownership key is discarded, never merged.
func Associated(ctx context.Context, res *resource.Resource, id any, relName string, ref *query.Refinement) (any, error) {
	rel := res.GetRelation(relName)
	if rel == nil || rel.Target() == nil {
		return nil, &apperr.NotFound{Resource: res.Name, Key: relName}
	}

	parent, err := Find(ctx, res, id)
	if err != nil {
		return nil, err
	}

	node := query.EagerNode{Name: relName, Rel: rel, Ref: ref}
	if err := loadAssociation(ctx, node, []map[string]any{parent}); err != nil {
		return nil, err
	}
	return parent[relName], nil
}
