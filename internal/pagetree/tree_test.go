package pagetree

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/page"
)

func primary(id, slug, parent string) page.Page {
	return page.Page{ID: id, Slug: slug, Parent: page.Ptr(parent), PageType: page.TypePage}
}

func variant(id, slug, primaryID, lang string) page.Page {
	return page.Page{ID: id, Slug: slug, PrimaryPage: page.Ptr(primaryID), Lang: lang, PageType: page.TypePage}
}

func sample() []page.Page {
	return []page.Page{
		primary("home", "/", ""),
		primary("products", "/products", ""),
		primary("phones", "/products/phones", "products"),
		primary("android", "/products/phones/android", "phones"),
		primary("orphan", "/orphan", "gone"),
		variant("products-es", "/es/products", "products", "es"),
		variant("phones-es", "/es/products/phones", "phones", "es"),
		variant("phones-fr", "/fr/products/phones", "phones", "fr"),
		variant("lost-de", "/de/lost", "missing", "de"),
	}
}

func TestNew_EveryPageExactlyOnce(t *testing.T) {
	pages := sample()
	tree := New(pages)

	seen := map[string]int{}
	tree.Walk(func(n *Node) { seen[n.ID]++ })

	require.Len(t, seen, len(pages))
	for id, count := range seen {
		assert.Equal(t, 1, count, id)
	}
	assert.Equal(t, 5, tree.TotalPrimaryPages)
	assert.Equal(t, 4, tree.TotalLanguagePages)
}

func TestBuildPrimaryTree_OrphanBecomesRoot(t *testing.T) {
	roots := BuildPrimaryTree([]page.Page{
		primary("a", "/a", ""),
		primary("b", "/b", "does-not-exist"),
	})
	ids := []string{}
	for _, r := range roots {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestBuildPrimaryTree_CycleDoesNotLosePages(t *testing.T) {
	tree := New([]page.Page{
		primary("a", "/a", "b"),
		primary("b", "/b", "a"),
		primary("c", "/c", "a"),
	})
	count := 0
	tree.Walk(func(*Node) { count++ })
	assert.Equal(t, 3, count)
}

func TestCollectNestedChildIDs_MatchesAncestorChains(t *testing.T) {
	pages := sample()
	tree := New(pages)
	root := FindPageInPrimaryTree("products", tree.Primary)
	require.NotNil(t, root)

	got := append(CollectNestedChildIDs(root), root.ID)

	parents := map[string]string{}
	for _, p := range pages {
		if p.IsPrimary() {
			parents[p.ID] = page.Deref(p.Parent)
		}
	}
	var want []string
	for id := range parents {
		for cur := id; cur != ""; cur = parents[cur] {
			if cur == "products" {
				want = append(want, id)
				break
			}
		}
	}
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestBuildLanguageTree_TracksPrimaryShape(t *testing.T) {
	tree := New(sample())

	es := FindPageInLanguageTree("products-es", tree.Language)
	require.NotNil(t, es)
	require.Len(t, es.Children, 1)
	assert.Equal(t, "phones-es", es.Children[0].ID)

	// phones-fr has no French parent variant, so it is a language root.
	var rootIDs []string
	for _, n := range tree.Language {
		rootIDs = append(rootIDs, n.ID)
	}
	assert.ElementsMatch(t, []string{"products-es", "phones-fr", "lost-de"}, rootIDs)
}

func TestBuildLanguageTree_IgnoresOwnParentColumn(t *testing.T) {
	pages := []page.Page{
		primary("a", "/a", ""),
		primary("b", "/a/b", "a"),
		variant("a-es", "/es/a", "a", "es"),
		variant("b-es", "/es/a/b", "b", "es"),
	}
	// The variant row points somewhere unrelated; the primary shape wins.
	pages[3].Parent = page.Ptr("elsewhere")

	tree := New(pages)
	aES := FindPageInLanguageTree("a-es", tree.Language)
	require.NotNil(t, aES)
	assert.Equal(t, []string{"b-es"}, CollectNestedLanguageIDs(aES))
}

func TestFindLanguagePagesForPrimary(t *testing.T) {
	tree := New(sample())

	got := FindLanguagePagesForPrimary("phones", tree.Language)
	var ids []string
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"phones-es", "phones-fr"}, ids)
	assert.Empty(t, FindLanguagePagesForPrimary("home", tree.Language))
}

func TestTreeFind(t *testing.T) {
	tree := New(sample())

	n, lang := tree.Find("android")
	require.NotNil(t, n)
	assert.False(t, lang)

	n, lang = tree.Find("phones-fr")
	require.NotNil(t, n)
	assert.True(t, lang)

	n, _ = tree.Find("nope")
	assert.Nil(t, n)
}

func TestSlugTaken(t *testing.T) {
	pages := sample()
	pages = append(pages, page.Page{ID: "dyn", Slug: "/products", Dynamic: true})
	tree := New(pages)

	assert.True(t, tree.SlugTaken("/products", false, "home"))
	assert.False(t, tree.SlugTaken("/products", false, "products"))
	assert.True(t, tree.SlugTaken("/es/products", false, "x"))
	assert.False(t, tree.SlugTaken("/new", false, "x"))
	assert.False(t, tree.SlugTaken("", false, "x"))
}

type listerFunc func(ctx context.Context, appID string) ([]page.Page, error)

func (f listerFunc) ListPages(ctx context.Context, appID string) ([]page.Page, error) {
	return f(ctx, appID)
}

func TestBuilder_SingleReadAndError(t *testing.T) {
	calls := 0
	b := NewBuilder(listerFunc(func(_ context.Context, appID string) ([]page.Page, error) {
		calls++
		assert.Equal(t, "app-1", appID)
		return sample(), nil
	}))
	tree, err := b.Build(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, tree.Primary, 3)

	failing := NewBuilder(listerFunc(func(context.Context, string) ([]page.Page, error) {
		return nil, errors.New("db down")
	}))
	_, err = failing.Build(context.Background(), "app-1")
	assert.True(t, apperr.IsCode(err, apperr.CodeErrorGettingPages))
}
