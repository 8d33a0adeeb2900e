package serialize

import (
	"testing"

	"QrestAPI/internal/resource"

	"github.com/google/go-cmp/cmp"
)

func serializeRegistry(t *testing.T) *resource.Resource {
	t.Helper()

	resource.Registry = map[string]*resource.Resource{}
	resource.Register("authors", &resource.Resource{
		Table: "authors",
		Fields: map[string]*resource.Field{
			"id":    {Type: "int"},
			"name":  {Type: "string"},
			"email": {Type: "string"},
		},
		Attributes: []string{"id", "name"},
	})
	resource.Register("comments", &resource.Resource{
		Table: "comments",
		Fields: map[string]*resource.Field{
			"id":      {Type: "int"},
			"post_id": {Type: "int"},
			"text":    {Type: "string"},
		},
	})
	resource.Register("posts", &resource.Resource{
		Table: "posts",
		Fields: map[string]*resource.Field{
			"id":        {Type: "int"},
			"title":     {Type: "string"},
			"author_id": {Type: "int"},
		},
		Attributes: []string{"id", "title"},
		Relations: map[string]*resource.Relation{
			"author":   {Type: "belongs_to", Res: "authors"},
			"comments": {Type: "has_many", Res: "comments", FK: "post_id"},
		},
	})
	if err := resource.LinkRelations(); err != nil {
		t.Fatalf("LinkRelations: %v", err)
	}
	return resource.Registry["posts"]
}

func TestItemDeclaredAttributesOnly(t *testing.T) {
	posts := serializeRegistry(t)

	got := Item(posts, map[string]any{
		"id":       int64(1),
		"title":    "hello",
		"secret":   "nope",
		"password": "hunter2",
	})
	want := map[string]any{
		"id":    int64(1),
		"title": "hello",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("item mismatch (-want +got):\n%s", diff)
	}
}

func TestItemExpandsLoadedAssociations(t *testing.T) {
	posts := serializeRegistry(t)

	got := Item(posts, map[string]any{
		"id":    int64(1),
		"title": "hello",
		"author": map[string]any{
			"id":    int64(7),
			"name":  "Alice",
			"email": "alice@example.com",
		},
		"comments": []map[string]any{
			{"id": int64(10), "post_id": int64(1), "text": "first"},
		},
	})

	author, ok := got["author"].(map[string]any)
	if !ok {
		t.Fatalf("author not expanded: %#v", got["author"])
	}
	// the target's own attribute set applies, so email stays private
	if _, leaked := author["email"]; leaked {
		t.Fatalf("association leaked undeclared attribute: %#v", author)
	}
	if author["name"] != "Alice" {
		t.Fatalf("author attributes wrong: %#v", author)
	}

	comments, ok := got["comments"].([]map[string]any)
	if !ok || len(comments) != 1 || comments[0]["text"] != "first" {
		t.Fatalf("comments not expanded: %#v", got["comments"])
	}
}

func TestItemMinimalReferenceForUnloadedBelongsTo(t *testing.T) {
	posts := serializeRegistry(t)

	got := Item(posts, map[string]any{
		"id":        int64(1),
		"title":     "hello",
		"author_id": int64(7),
	})
	want := map[string]any{"id": int64(7)}
	if diff := cmp.Diff(want, got["author"]); diff != "" {
		t.Fatalf("minimal reference mismatch (-want +got):\n%s", diff)
	}

	// nil FK means no reference at all
	got = Item(posts, map[string]any{"id": int64(2), "title": "x", "author_id": nil})
	if _, ok := got["author"]; ok {
		t.Fatalf("nil fk produced a reference: %#v", got["author"])
	}
}

func TestItemLoadedNilHasOneStaysNil(t *testing.T) {
	posts := serializeRegistry(t)

	got := Item(posts, map[string]any{
		"id":     int64(1),
		"title":  "hello",
		"author": nil,
	})
	v, ok := got["author"]
	if !ok || v != nil {
		t.Fatalf("loaded nil association should serialize as null, got %#v", v)
	}
}

func TestCollectionKeepsOrderAndEmpty(t *testing.T) {
	posts := serializeRegistry(t)

	got := Collection(posts, []map[string]any{
		{"id": int64(2), "title": "b"},
		{"id": int64(1), "title": "a"},
	})
	if len(got) != 2 || got[0]["id"] != int64(2) || got[1]["id"] != int64(1) {
		t.Fatalf("collection order changed: %#v", got)
	}

	if got := Collection(posts, nil); got == nil || len(got) != 0 {
		t.Fatalf("nil input should serialize to empty list, got %#v", got)
	}
}
