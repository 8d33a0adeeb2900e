package serialize

// Package serialize shapes resolved records for the wire: declared
// attribute sets only, eager-loaded associations expanded with their own
// resource's attributes, everything else reduced to minimal references.

import (
	"QrestAPI/internal/resource"
)

// Item serializes one record of the resource.
func Item(res *resource.Resource, item map[string]any) map[string]any {
	if item == nil {
		return nil
	}
	out := make(map[string]any, len(item))
	for _, attr := range res.SerializedAttributes() {
		if v, ok := item[attr]; ok {
			out[attr] = v
		}
	}

	for relName, rel := range res.Relations {
		if loaded, ok := item[relName]; ok {
			out[relName] = serializeLoaded(rel, loaded)
			continue
		}
		// not eager-loaded: a belongs_to still gets a minimal reference
		if rel.Type == "belongs_to" {
			if fk, ok := item[rel.FK]; ok && fk != nil {
				out[relName] = map[string]any{rel.PK: fk}
			}
		}
	}
	return out
}

// Collection serializes a list of records.
func Collection(res *resource.Resource, items []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, Item(res, item))
	}
	return out
}

func serializeLoaded(rel *resource.Relation, loaded any) any {
	target := rel.Target()
	switch v := loaded.(type) {
	case nil:
		return nil
	case map[string]any:
		return Item(target, v)
	case []map[string]any:
		return Collection(target, v)
	}
	return loaded
}
