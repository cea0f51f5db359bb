// internal/pagetree/tree.go
//
// In-memory page forests.
//
// Context
// -------
// Every cascade (slug rename, re-parent, delete) starts from one bulk read
// of the tenant's pages, folded into two forests:
//
//   • Primary tree   – pages with primaryPage == nil, nested by parent.
//   • Language tree  – language variants, nested by the *primary* tree's
//     shape.  A variant hangs under the variant of its primary's parent
//     that has the same lang; the variant's own parent column is ignored.
//
// Workflow
// --------
//  1. Builder.Build issues a single ListPages call.
//  2. Pages are partitioned on primaryPage.
//  3. BuildPrimaryTree indexes nodes, then links children (orphans → roots).
//  4. BuildLanguageTree walks the primary forest depth-first.
//
// Notes
// -----
// • Trees are point-in-time snapshots; rebuild after every mutation.
// • Every page lands in exactly one forest exactly once.
package pagetree

import "github.com/yanizio/sitebuilder/internal/page"

// Node is one page in either forest.  Empty strings stand for NULL.
type Node struct {
	ID          string  `json:"id"`
	PageType    string  `json:"pageType"`
	PrimaryPage string  `json:"primaryPage,omitempty"`
	Parent      string  `json:"parent,omitempty"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Lang        string  `json:"lang,omitempty"`
	Dynamic     bool    `json:"dynamic"`
	Children    []*Node `json:"children"`
}

// IsLanguage reports whether n is a language variant.
func (n *Node) IsLanguage() bool { return n.PrimaryPage != "" }

func newNode(p page.Page) *Node {
	return &Node{
		ID:          p.ID,
		PageType:    p.PageType,
		PrimaryPage: page.Deref(p.PrimaryPage),
		Parent:      page.Deref(p.Parent),
		Name:        p.Name,
		Slug:        p.Slug,
		Lang:        p.Lang,
		Dynamic:     p.Dynamic,
		Children:    []*Node{},
	}
}

// Tree bundles both forests of one snapshot.
type Tree struct {
	Primary            []*Node `json:"primaryTree"`
	Language           []*Node `json:"languageTree"`
	TotalPrimaryPages  int     `json:"totalPrimaryPages"`
	TotalLanguagePages int     `json:"totalLanguagePages"`
}

// New partitions pages and builds both forests.
func New(pages []page.Page) *Tree {
	var primary, lang []page.Page
	for _, p := range pages {
		if p.IsPrimary() {
			primary = append(primary, p)
		} else {
			lang = append(lang, p)
		}
	}
	pt := BuildPrimaryTree(primary)
	return &Tree{
		Primary:            pt,
		Language:           BuildLanguageTree(lang, pt),
		TotalPrimaryPages:  len(primary),
		TotalLanguagePages: len(lang),
	}
}

// BuildPrimaryTree nests primary pages by parent.  A page whose parent is
// missing from the set (or is the page itself) becomes a root.
func BuildPrimaryTree(pages []page.Page) []*Node {
	byID := make(map[string]*Node, len(pages))
	order := make([]*Node, 0, len(pages))
	for _, p := range pages {
		if _, dup := byID[p.ID]; dup {
			continue
		}
		n := newNode(p)
		byID[p.ID] = n
		order = append(order, n)
	}

	roots := make([]*Node, 0)
	for _, n := range order {
		parent, ok := byID[n.Parent]
		if n.Parent == "" || !ok || parent == n || createsCycle(byID, n) {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

// createsCycle reports whether following parent links from n returns to n.
// Such rows cannot be reached from any root, so the first node of the loop
// is promoted to a root instead.
func createsCycle(byID map[string]*Node, n *Node) bool {
	seen := map[string]bool{n.ID: true}
	for cur := byID[n.Parent]; cur != nil; cur = byID[cur.Parent] {
		if seen[cur.ID] {
			return cur.ID == n.ID
		}
		seen[cur.ID] = true
		if cur.Parent == "" {
			return false
		}
	}
	return false
}

// BuildLanguageTree nests language pages along the primary forest.
func BuildLanguageTree(languagePages []page.Page, primaryTree []*Node) []*Node {
	byPrimary := make(map[string][]page.Page)
	for _, p := range languagePages {
		pp := page.Deref(p.PrimaryPage)
		byPrimary[pp] = append(byPrimary[pp], p)
	}

	roots := make([]*Node, 0)
	placed := make(map[string]bool, len(languagePages))

	var walk func(primary *Node, parentVariants map[string]*Node)
	walk = func(primary *Node, parentVariants map[string]*Node) {
		own := make(map[string]*Node)
		for _, p := range byPrimary[primary.ID] {
			if placed[p.ID] {
				continue
			}
			placed[p.ID] = true
			n := newNode(p)
			if parent, ok := parentVariants[n.Lang]; ok {
				parent.Children = append(parent.Children, n)
			} else {
				roots = append(roots, n)
			}
			if _, seen := own[n.Lang]; !seen {
				own[n.Lang] = n
			}
		}
		for _, child := range primary.Children {
			walk(child, own)
		}
	}
	for _, root := range primaryTree {
		walk(root, nil)
	}

	// Variants whose primary is not in the snapshot.
	for _, p := range languagePages {
		if !placed[p.ID] {
			placed[p.ID] = true
			roots = append(roots, newNode(p))
		}
	}
	return roots
}

// FindPageInPrimaryTree returns the node with id, or nil.
func FindPageInPrimaryTree(id string, tree []*Node) *Node { return find(id, tree) }

// FindPageInLanguageTree returns the language node with id, or nil.
func FindPageInLanguageTree(id string, tree []*Node) *Node { return find(id, tree) }

func find(id string, nodes []*Node) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
		if hit := find(id, n.Children); hit != nil {
			return hit
		}
	}
	return nil
}

// CollectNestedChildIDs returns every descendant id of a primary node in
// pre-order, excluding the node itself.
func CollectNestedChildIDs(n *Node) []string { return collect(n, nil) }

// CollectNestedLanguageIDs is CollectNestedChildIDs for language nodes.
func CollectNestedLanguageIDs(n *Node) []string { return collect(n, nil) }

func collect(n *Node, out []string) []string {
	if n == nil {
		return out
	}
	for _, c := range n.Children {
		out = append(out, c.ID)
		out = collect(c, out)
	}
	return out
}

// FindLanguagePagesForPrimary returns every language node whose primaryPage
// is primaryID.  Descendants of a match are not added; each match already
// carries them.
func FindLanguagePagesForPrimary(primaryID string, languageTree []*Node) []*Node {
	var out []*Node
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.PrimaryPage == primaryID {
				out = append(out, n)
			}
			walk(n.Children)
		}
	}
	walk(languageTree)
	return out
}

//
// Tree conveniences
//

// Find locates id in either forest.  lang is true for a language node.
func (t *Tree) Find(id string) (n *Node, lang bool) {
	if n = FindPageInPrimaryTree(id, t.Primary); n != nil {
		return n, false
	}
	if n = FindPageInLanguageTree(id, t.Language); n != nil {
		return n, true
	}
	return nil, false
}

// Walk visits every node of both forests, primary first.
func (t *Tree) Walk(fn func(*Node)) {
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			fn(n)
			walk(n.Children)
		}
	}
	walk(t.Primary)
	walk(t.Language)
}

// SlugTaken reports whether another page of the same dynamic class already
// uses slug.  Partial pages (empty slug) never collide.
func (t *Tree) SlugTaken(slug string, dynamic bool, exceptID string) bool {
	if slug == "" {
		return false
	}
	taken := false
	t.Walk(func(n *Node) {
		if !taken && n.ID != exceptID && n.Slug == slug && n.Dynamic == dynamic {
			taken = true
		}
	})
	return taken
}
