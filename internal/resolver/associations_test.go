package resolver

import (
	"strings"
	"testing"

	"QrestAPI/internal/query"
	"QrestAPI/internal/resource"

	"github.com/google/go-cmp/cmp"
)

func blogRegistry(t *testing.T) *resource.Resource {
	t.Helper()

	resource.Registry = map[string]*resource.Resource{}
	resource.Register("authors", &resource.Resource{
		Table: "authors",
		Fields: map[string]*resource.Field{
			"id":   {Type: "int"},
			"name": {Type: "string"},
		},
	})
	resource.Register("comments", &resource.Resource{
		Table: "comments",
		Fields: map[string]*resource.Field{
			"id":      {Type: "int"},
			"post_id": {Type: "int"},
			"state":   {Type: "string"},
			"text":    {Type: "string"},
		},
		Relations: map[string]*resource.Relation{
			"author": {Type: "belongs_to", Res: "authors", FK: "author_id"},
		},
	})
	// author FK must be declared for the linker
	resource.Register("comments", &resource.Resource{
		Fields: map[string]*resource.Field{"author_id": {Type: "int"}},
	})
	resource.Register("posts", &resource.Resource{
		Table: "posts",
		Fields: map[string]*resource.Field{
			"id":        {Type: "int"},
			"title":     {Type: "string"},
			"author_id": {Type: "int"},
		},
		Relations: map[string]*resource.Relation{
			"author":   {Type: "belongs_to", Res: "authors"},
			"comments": {Type: "has_many", Res: "comments", FK: "post_id", Order: "-id", Where: "state = visible"},
		},
	})
	if err := resource.LinkRelations(); err != nil {
		t.Fatalf("LinkRelations: %v", err)
	}
	return resource.Registry["posts"]
}

func TestChildRefinementOwnershipKeyNotOverridable(t *testing.T) {
	posts := blogRegistry(t)
	rel := posts.GetRelation("comments")

	node := query.EagerNode{
		Name: "comments",
		Rel:  rel,
		Ref: &query.Refinement{
			// crafted input trying to re-anchor the child scope
			Filters: []query.Filter{
				{Field: "post_id", Op: "eq", Value: "999"},
				{Field: "text", Op: "cnt", Value: "hi"},
			},
			Assocs: map[string]*query.Refinement{},
		},
	}
	ids := []any{int64(1), int64(2)}
	ref := childRefinement(node, rel.Target(), "post_id", ids)

	var anchors []query.Filter
	for _, f := range ref.Filters {
		if f.Field == "post_id" {
			anchors = append(anchors, f)
		}
	}
	if len(anchors) != 1 {
		t.Fatalf("expected exactly one ownership predicate, got %+v", anchors)
	}
	if anchors[0].Op != "in" {
		t.Fatalf("anchor op = %q, want in", anchors[0].Op)
	}
	if diff := cmp.Diff(ids, anchors[0].Value); diff != "" {
		t.Fatalf("anchor must equal parent identity regardless of input (-want +got):\n%s", diff)
	}
}

func TestChildRefinementAppliesScopeAndDefaultOrder(t *testing.T) {
	posts := blogRegistry(t)
	rel := posts.GetRelation("comments")

	node := query.EagerNode{
		Name: "comments",
		Rel:  rel,
		Ref:  &query.Refinement{Assocs: map[string]*query.Refinement{}},
	}
	ref := childRefinement(node, rel.Target(), "post_id", []any{int64(1)})

	foundScope := false
	for _, f := range ref.Filters {
		if f.Field == "state" && f.Op == "eq" && f.Value == "visible" {
			foundScope = true
		}
	}
	if !foundScope {
		t.Fatalf("declared scope condition missing: %+v", ref.Filters)
	}
	if len(ref.Order) != 1 || ref.Order[0].Field != "id" || !ref.Order[0].Desc {
		t.Fatalf("default order not applied: %+v", ref.Order)
	}
}

func TestChildRefinementShortCircuitsCardinalityOne(t *testing.T) {
	posts := blogRegistry(t)
	rel := posts.GetRelation("author")

	node := query.EagerNode{
		Name: "author",
		Rel:  rel,
		Ref: &query.Refinement{
			Filters: []query.Filter{{Field: "name", Op: "eq", Value: "Mallory"}},
			Order:   []query.OrderTerm{{Field: "name", Desc: true}},
			Assocs:  map[string]*query.Refinement{},
		},
	}
	ref := childRefinement(node, rel.Target(), "id", []any{int64(7)})

	// no client filtering or ordering applies to a singular relation
	for _, f := range ref.Filters {
		if f.Field == "name" {
			t.Fatalf("nested filter survived short-circuit: %+v", ref.Filters)
		}
	}
	if len(ref.Order) != 0 {
		t.Fatalf("nested order survived short-circuit: %+v", ref.Order)
	}
}

func TestChildQuerySelectsAnchorWhenAttributesOmitIt(t *testing.T) {
	resource.Registry = map[string]*resource.Resource{}
	resource.Register("comments", &resource.Resource{
		Table: "comments",
		Fields: map[string]*resource.Field{
			"id":      {Type: "int"},
			"post_id": {Type: "int"},
			"text":    {Type: "string"},
		},
		Attributes: []string{"id", "text"},
	})
	resource.Register("posts", &resource.Resource{
		Table: "posts",
		Fields: map[string]*resource.Field{
			"id":    {Type: "int"},
			"title": {Type: "string"},
		},
		Relations: map[string]*resource.Relation{
			"comments": {Type: "has_many", Res: "comments", FK: "post_id"},
		},
	})
	if err := resource.LinkRelations(); err != nil {
		t.Fatalf("LinkRelations: %v", err)
	}
	rel := resource.Registry["posts"].GetRelation("comments")

	node := query.EagerNode{
		Name: "comments",
		Rel:  rel,
		Ref:  &query.Refinement{Assocs: map[string]*query.Refinement{}},
	}
	ref := childRefinement(node, rel.Target(), "post_id", []any{int64(1), int64(2)})

	plan, err := query.Refine(rel.Target(), resource.BuildAliasMap(rel.Target()), ref)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	sqlStr, _, err := plan.Select.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.Contains(sqlStr, "main.post_id") {
		t.Fatalf("grouping key missing from child selection: %s", sqlStr)
	}
}

func TestWindowAppliesPerParentSlice(t *testing.T) {
	group := []map[string]any{
		{"id": 1}, {"id": 2}, {"id": 3}, {"id": 4},
	}
	got := window(group, 2, 1)
	want := []map[string]any{{"id": 2}, {"id": 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("window mismatch (-want +got):\n%s", diff)
	}

	if got := window(group, 0, 10); len(got) != 0 {
		t.Fatalf("offset past end should be empty, got %+v", got)
	}
	if got := window(nil, 5, 0); got == nil || len(got) != 0 {
		t.Fatalf("nil group should become empty slice, got %#v", got)
	}
}

func TestCollectIDsDeduplicatesAndSkipsNil(t *testing.T) {
	items := []map[string]any{
		{"author_id": int64(1)},
		{"author_id": int64(2)},
		{"author_id": int64(1)},
		{"author_id": nil},
		{},
	}
	got := collectIDs(items, "author_id")
	want := []any{int64(1), int64(2)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}
