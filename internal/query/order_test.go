package query

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOrderSignPrefixGrammar(t *testing.T) {
	posts := setupBlogRegistry(t)

	ref, err := Classify(posts, url.Values{"order": {"title,-created_at"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := []OrderTerm{
		{Field: "title"},
		{Field: "created_at", Desc: true},
	}
	if diff := cmp.Diff(want, ref.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderSuffixTokenGrammar(t *testing.T) {
	posts := setupBlogRegistry(t)

	ref, err := Classify(posts, url.Values{"order": {"title desc, created_at asc"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := []OrderTerm{
		{Field: "title", Desc: true},
		{Field: "created_at"},
	}
	if diff := cmp.Diff(want, ref.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderUnknownFieldDroppedNotRejected(t *testing.T) {
	posts := setupBlogRegistry(t)

	ref, err := Classify(posts, url.Values{"order": {"no_such_field,title"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := []OrderTerm{{Field: "title"}}
	if diff := cmp.Diff(want, ref.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderInvalidDirectionRejected(t *testing.T) {
	posts := setupBlogRegistry(t)

	if _, err := Classify(posts, url.Values{"order": {"title sideways"}}); err == nil {
		t.Fatal("expected error for invalid direction token")
	}
}

func TestOrderJoinPath(t *testing.T) {
	posts := setupBlogRegistry(t)

	ref, err := Classify(posts, url.Values{"order": {"-author.name"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := []OrderTerm{{Path: "author", Field: "name", Desc: true}}
	if diff := cmp.Diff(want, ref.Order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOrderForRelationDefaults(t *testing.T) {
	posts := setupBlogRegistry(t)

	terms, err := ParseOrder(posts, "-id")
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}
	want := []OrderTerm{{Field: "id", Desc: true}}
	if diff := cmp.Diff(want, terms); diff != "" {
		t.Fatalf("terms mismatch (-want +got):\n%s", diff)
	}
}
