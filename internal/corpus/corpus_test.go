package corpus_test

import (
	"errors"
	"testing"

	"github.com/klauselwerk/klausel/internal/corpus"
)

func testCatalog() *corpus.Catalog {
	return corpus.NewCatalog(
		[]string{"BGB", "HGB"},
		[]corpus.Article{
			{Source: "BGB", Name: "§ 305", Title: "Einbeziehung AGB", Body: "Allgemeine Geschäftsbedingungen sind..."},
			{Source: "BGB", Name: "§ 307", Title: "Inhaltskontrolle", Body: "Bestimmungen in AGB sind unwirksam..."},
			{Source: "HGB", Name: "§ 377", Title: "Untersuchungsobliegenheit", Body: "Ist der Kauf für beide Teile..."},
		},
	)
}

func TestCatalogLookup(t *testing.T) {
	c := testCatalog()

	a, err := c.Lookup("BGB", "§ 307")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if a.Title != "Inhaltskontrolle" {
		t.Errorf("Title = %q, want Inhaltskontrolle", a.Title)
	}
	if a.Ref() != "BGB § 307" {
		t.Errorf("Ref() = %q, want BGB § 307", a.Ref())
	}
}

func TestCatalogLookupMissingArticle(t *testing.T) {
	c := testCatalog()

	if _, err := c.Lookup("BGB", "§ 9999"); !errors.Is(err, corpus.ErrArticleNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrArticleNotFound", err)
	}
}

func TestCatalogLookupDisabledSource(t *testing.T) {
	c := testCatalog()

	if _, err := c.Lookup("StGB", "§ 1"); !errors.Is(err, corpus.ErrSourceDisabled) {
		t.Fatalf("Lookup() error = %v, want ErrSourceDisabled", err)
	}
}

func TestCatalogArticlesPreserveOrder(t *testing.T) {
	c := testCatalog()

	articles := c.Articles()
	if len(articles) != 3 {
		t.Fatalf("len(Articles()) = %d, want 3", len(articles))
	}

	want := []string{"§ 305", "§ 307", "§ 377"}
	for i, name := range want {
		if articles[i].Name != name {
			t.Errorf("Articles()[%d].Name = %q, want %q", i, articles[i].Name, name)
		}
	}
}

func TestCatalogDeduplicates(t *testing.T) {
	c := corpus.NewCatalog(
		[]string{"BGB"},
		[]corpus.Article{
			{Source: "BGB", Name: "§ 1", Body: "first"},
			{Source: "BGB", Name: "§ 1", Body: "second"},
		},
	)

	if len(c.Articles()) != 1 {
		t.Fatalf("len(Articles()) = %d, want 1", len(c.Articles()))
	}

	a, err := c.Lookup("BGB", "§ 1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if a.Body != "first" {
		t.Errorf("Body = %q, want first occurrence kept", a.Body)
	}
}
