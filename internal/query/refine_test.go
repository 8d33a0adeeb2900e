package query

import (
	"net/url"
	"strings"
	"testing"

	"QrestAPI/internal/resource"

	"github.com/google/go-cmp/cmp"
)

func refineFromParams(t *testing.T, res *resource.Resource, params url.Values) (*Plan, string, []any) {
	t.Helper()
	ref, err := Classify(res, params)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	plan, err := Refine(res, resource.BuildAliasMap(res), ref)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	sqlStr, args, err := plan.Select.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	return plan, sqlStr, args
}

func TestRefineFullQueryShape(t *testing.T) {
	posts := setupBlogRegistry(t)

	_, sqlStr, args := refineFromParams(t, posts, url.Values{
		"title":       {"hello"},
		"author.name": {"Alice"},
		"order":       {"-created_at"},
		"per_page":    {"5"},
		"page":        {"3"},
	})

	want := "SELECT main.id, main.title, main.body, main.author_id, main.created_at " +
		"FROM posts AS main " +
		"LEFT JOIN authors AS t0 ON main.author_id = t0.id " +
		"WHERE (t0.name = $1 AND main.title = $2) " +
		"ORDER BY main.created_at DESC " +
		"LIMIT 5 OFFSET 10"
	if sqlStr != want {
		t.Fatalf("sql mismatch:\n got: %s\nwant: %s", sqlStr, want)
	}
	if diff := cmp.Diff([]any{"Alice", "hello"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestRefineMultiValueFilterEmitsIn(t *testing.T) {
	posts := setupBlogRegistry(t)

	_, sqlStr, args := refineFromParams(t, posts, url.Values{"id__in": {"1,2,3"}})

	if !strings.Contains(sqlStr, "main.id IN ($1,$2,$3)") {
		t.Fatalf("expected IN predicate, got: %s", sqlStr)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}
}

func TestRefineDefaultOrderIsPrimaryKey(t *testing.T) {
	posts := setupBlogRegistry(t)

	_, sqlStr, _ := refineFromParams(t, posts, url.Values{})
	if !strings.Contains(sqlStr, "ORDER BY main.id ASC") {
		t.Fatalf("expected stable default order, got: %s", sqlStr)
	}
}

func TestRefineNestedNodeStaysOffParentQuery(t *testing.T) {
	posts := setupBlogRegistry(t)

	plan, sqlStr, _ := refineFromParams(t, posts, url.Values{"comments.state": {"visible"}})

	if len(plan.Eager) != 1 || plan.Eager[0].Name != "comments" {
		t.Fatalf("expected one comments eager node, got %+v", plan.Eager)
	}
	if strings.Contains(sqlStr, "comments") {
		t.Fatalf("nested node leaked into parent SQL: %s", sqlStr)
	}
}

func TestRefineUnknownFilterLeavesNoPredicate(t *testing.T) {
	posts := setupBlogRegistry(t)

	_, sqlStr, _ := refineFromParams(t, posts, url.Values{"not_whitelisted": {"x"}})
	if strings.Contains(sqlStr, "WHERE") {
		t.Fatalf("dropped filter still produced a predicate: %s", sqlStr)
	}
}

func TestRefineScopedJoinBindsScopeValue(t *testing.T) {
	resource.Registry = map[string]*resource.Resource{}
	resource.Register("profiles", &resource.Resource{
		Table: "profiles",
		Fields: map[string]*resource.Field{
			"id":        {Type: "int"},
			"person_id": {Type: "int"},
			"state":     {Type: "string"},
			"nickname":  {Type: "string"},
		},
	})
	resource.Register("people", &resource.Resource{
		Table: "people",
		Fields: map[string]*resource.Field{
			"id":   {Type: "int"},
			"name": {Type: "string"},
		},
		Relations: map[string]*resource.Relation{
			"profile": {Type: "has_one", Res: "profiles", FK: "person_id", Where: "state = active"},
		},
	})
	if err := resource.LinkRelations(); err != nil {
		t.Fatalf("LinkRelations: %v", err)
	}
	people := resource.Registry["people"]

	_, sqlStr, args := refineFromParams(t, people, url.Values{"profile.nickname": {"Zed"}})

	if !strings.Contains(sqlStr, "ON (t0.person_id = main.id) AND (t0.state = $1)") {
		t.Fatalf("scope must be a numbered placeholder in the join: %s", sqlStr)
	}
	if !strings.Contains(sqlStr, "t0.nickname = $2") {
		t.Fatalf("filter placeholder must come after the join's: %s", sqlStr)
	}
	if diff := cmp.Diff([]any{"active", "Zed"}, args); diff != "" {
		t.Fatalf("args must lead with the join scope value (-want +got):\n%s", diff)
	}
}

func TestRefineCountSameScope(t *testing.T) {
	posts := setupBlogRegistry(t)

	ref, err := Classify(posts, url.Values{"author.name": {"Alice"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	sb, err := RefineCount(posts, resource.BuildAliasMap(posts), ref)
	if err != nil {
		t.Fatalf("RefineCount: %v", err)
	}
	sqlStr, _, err := sb.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.Contains(sqlStr, "COUNT(*)") ||
		!strings.Contains(sqlStr, "LEFT JOIN authors AS t0") ||
		!strings.Contains(sqlStr, "t0.name = $1") {
		t.Fatalf("count query shape wrong: %s", sqlStr)
	}
	if strings.Contains(sqlStr, "ORDER BY") || strings.Contains(sqlStr, "LIMIT") {
		t.Fatalf("count query must not order or paginate: %s", sqlStr)
	}
}
