package query

import (
	"testing"

	"QrestAPI/internal/resource"
)

// setupBlogRegistry installs the posts/authors/comments trio used across
// the package tests and returns the posts resource.
func setupBlogRegistry(t *testing.T) *resource.Resource {
	t.Helper()

	resource.Registry = map[string]*resource.Resource{}
	resource.Register("authors", &resource.Resource{
		Table: "authors",
		Fields: map[string]*resource.Field{
			"id":    {Type: "int"},
			"name":  {Type: "string", Writable: true, Required: true},
			"email": {Type: "string", Writable: true},
		},
		Relations: map[string]*resource.Relation{
			"posts": {Type: "has_many", Res: "posts", FK: "author_id"},
		},
	})
	resource.Register("comments", &resource.Resource{
		Table: "comments",
		Fields: map[string]*resource.Field{
			"id":         {Type: "int"},
			"post_id":    {Type: "int", Writable: true},
			"author_id":  {Type: "int", Writable: true},
			"state":      {Type: "string", Writable: true},
			"text":       {Type: "string", Writable: true, Required: true},
			"created_at": {Type: "time"},
		},
		Relations: map[string]*resource.Relation{
			"post":   {Type: "belongs_to", Res: "posts"},
			"author": {Type: "belongs_to", Res: "authors"},
		},
	})
	resource.Register("posts", &resource.Resource{
		Table: "posts",
		Fields: map[string]*resource.Field{
			"id":         {Type: "int"},
			"title":      {Type: "string", Writable: true, Required: true},
			"body":       {Type: "string", Writable: true},
			"author_id":  {Type: "int", Writable: true},
			"created_at": {Type: "time"},
		},
		Attributes: []string{"id", "title", "body", "author_id", "created_at"},
		Relations: map[string]*resource.Relation{
			"author":   {Type: "belongs_to", Res: "authors"},
			"comments": {Type: "has_many", Res: "comments", FK: "post_id", Order: "-id"},
		},
		Remotes: []string{"trending"},
	})
	if err := resource.LinkRelations(); err != nil {
		t.Fatalf("LinkRelations: %v", err)
	}
	return resource.Registry["posts"]
}
