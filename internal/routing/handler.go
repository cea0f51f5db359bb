// internal/routing/handler.go
//
// Slug cascade.
//
// Context
// -------
// A page's slug is the prefix of every nested child's slug, and its
// language variants carry a language-specific copy of the same path.
// Renaming or moving one page therefore rewrites many rows.  Handler
// computes that set of rows from one tree snapshot and writes it back.
//
// Workflow
// --------
//  1. HandleSlugChange / HandleParentChange build the tree once, validate,
//     and return []SlugUpdate without touching the database.
//  2. BatchUpdateSlugs fans the updates out to the draft table (bounded
//     errgroup), then mirrors every slug into the online table.
//
// Notes
// -----
// • There is no cross-row transaction; a failed write leaves earlier rows
//   committed.  Recomputing from the draft side is deterministic, so a retry
//   converges.
// • Online mirroring is best-effort: unpublished pages have no online row.
package routing

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/metrics"
	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/pagetree"
	"github.com/yanizio/sitebuilder/internal/store"
)

// SlugUpdate is one row whose slug must change.
type SlugUpdate struct {
	ID      string `json:"id"`
	NewSlug string `json:"newSlug"`
}

// ParentChange requests a move under Parent ("" = top level).  Slug, when
// set, overrides the recomputed slug.  Dynamic, when set, is the dynamic flag
// the page will carry after the write.
type ParentChange struct {
	Parent  string
	Slug    string
	Dynamic *bool
}

// PageStore is the slice of store.Repository the handler writes through.
type PageStore interface {
	pagetree.PageLister
	GetPage(ctx context.Context, appID, id string) (*page.Page, error)
	UpdatePage(ctx context.Context, appID, id string, patch store.Patch) error
	UpdateOnlineSlug(ctx context.Context, appID, id, slug string) error
}

// Handler computes and applies slug cascades for one process.
type Handler struct {
	pages       PageStore
	tree        *pagetree.Builder
	log         *zap.Logger
	concurrency int
	now         func() time.Time
}

// NewHandler wires a Handler.  concurrency ≤ 0 means unbounded fan-out.
func NewHandler(pages PageStore, log *zap.Logger, concurrency int) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		pages:       pages,
		tree:        pagetree.NewBuilder(pages),
		log:         log,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// WithClock replaces the wall clock (tests).
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// IsSlugChanged reports whether newSlug differs from the stored slug.  An
// empty proposal is never a change.
func (h *Handler) IsSlugChanged(ctx context.Context, appID, id, newSlug string) (bool, error) {
	if newSlug == "" {
		return false, nil
	}
	p, err := h.load(ctx, appID, id)
	if err != nil {
		return false, err
	}
	return p.Slug != newSlug, nil
}

// IsParentChanged reports whether newParent differs from the stored parent.
// nil means no change was requested.
func (h *Handler) IsParentChanged(ctx context.Context, appID, id string, newParent *string) (bool, error) {
	if newParent == nil {
		return false, nil
	}
	p, err := h.load(ctx, appID, id)
	if err != nil {
		return false, err
	}
	return page.Deref(p.Parent) != *newParent, nil
}

func (h *Handler) load(ctx context.Context, appID, id string) (*page.Page, error) {
	p, err := h.pages.GetPage(ctx, appID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound(apperr.CodePageNotFound, "page not found")
	case err != nil:
		return nil, apperr.Storage(apperr.CodeUpdateFailed, err)
	}
	return p, nil
}

// HandleSlugChange validates newSlug for id and returns the page's update
// followed by one update per nested descendant.  dynamic is the flag the
// page will carry after the write; nil keeps the stored one.
func (h *Handler) HandleSlugChange(ctx context.Context, appID, id, newSlug string, dynamic *bool) ([]SlugUpdate, error) {
	tree, err := h.tree.Build(ctx, appID)
	if err != nil {
		return nil, err
	}
	node, _ := tree.Find(id)
	if node == nil {
		return nil, apperr.NotFound(apperr.CodePageNotFoundInTree, "page not found in tree")
	}
	if tree.SlugTaken(newSlug, effectiveDynamic(node, dynamic), id) {
		return nil, apperr.Conflict(apperr.CodeSlugAlreadyExists, "slug already exists")
	}

	updates := []SlugUpdate{{ID: id, NewSlug: newSlug}}
	updates = appendDescendants(updates, node, node.Slug, newSlug)

	metrics.CascadeSize.WithLabelValues("slug").Observe(float64(len(updates)))
	return updates, nil
}

// HandleParentChange moves a primary page under change.Parent and returns
// every slug the move rewrites: the page, its nested primary children, and
// the language variants of all of them.
func (h *Handler) HandleParentChange(ctx context.Context, appID, id string, change ParentChange) ([]SlugUpdate, error) {
	tree, err := h.tree.Build(ctx, appID)
	if err != nil {
		return nil, err
	}
	node := pagetree.FindPageInPrimaryTree(id, tree.Primary)
	if node == nil {
		if pagetree.FindPageInLanguageTree(id, tree.Language) != nil {
			return nil, apperr.InvalidOperation("Cannot change parent of language pages directly")
		}
		return nil, apperr.NotFound(apperr.CodePageNotFoundInTree, "page not found in tree")
	}

	parentSlug := ""
	if change.Parent != "" {
		parent := pagetree.FindPageInPrimaryTree(change.Parent, tree.Primary)
		if parent == nil {
			return nil, apperr.NotFound(apperr.CodePageNotFoundInTree, "parent page not found in tree")
		}
		if parent == node || pagetree.FindPageInPrimaryTree(parent.ID, node.Children) != nil {
			return nil, apperr.InvalidOperation("Cannot move a page under itself")
		}
		parentSlug = parent.Slug
	}

	newSlug := change.Slug
	if newSlug == "" && !isPartial(node) {
		newSlug = BuildPath(parentSlug, LastSegment(node.Slug))
	}
	dyn := effectiveDynamic(node, change.Dynamic)
	if (newSlug != node.Slug || dyn != node.Dynamic) && tree.SlugTaken(newSlug, dyn, id) {
		return nil, apperr.Conflict(apperr.CodeSlugAlreadyExists, "slug already exists")
	}

	c := cascade{
		tree:      tree,
		done:      map[string]bool{},
		newParent: change.Parent,
	}
	c.add(id, newSlug)
	c.primaryDescendants(node, node.Slug, newSlug)
	c.variants(node, node.Slug, newSlug, true)
	for _, moved := range c.movedPrimaries {
		c.variants(moved.node, moved.oldSlug, moved.newSlug, false)
	}

	metrics.CascadeSize.WithLabelValues("parent").Observe(float64(len(c.updates)))
	return c.updates, nil
}

// CheckSlugAvailable reports SLUG_ALREADY_EXISTS when another page of the
// given dynamic class holds slug.  Used when only the class changes.
func (h *Handler) CheckSlugAvailable(ctx context.Context, appID, id, slug string, dynamic bool) error {
	tree, err := h.tree.Build(ctx, appID)
	if err != nil {
		return err
	}
	if tree.SlugTaken(slug, dynamic, id) {
		return apperr.Conflict(apperr.CodeSlugAlreadyExists, "slug already exists")
	}
	return nil
}

func effectiveDynamic(n *pagetree.Node, override *bool) bool {
	if override != nil {
		return *override
	}
	return n.Dynamic
}

// isPartial reports whether n is a global/form page, addressed by id only.
func isPartial(n *pagetree.Node) bool { return n.Slug == "" }

func appendDescendants(out []SlugUpdate, n *pagetree.Node, oldSlug, newSlug string) []SlugUpdate {
	for _, child := range n.Children {
		out = append(out, SlugUpdate{ID: child.ID, NewSlug: ReplaceSlugPrefix(child.Slug, oldSlug, newSlug)})
		out = appendDescendants(out, child, oldSlug, newSlug)
	}
	return out
}

type movedPrimary struct {
	node             *pagetree.Node
	oldSlug, newSlug string
}

// cascade accumulates the updates of one parent change, each id once.
type cascade struct {
	tree           *pagetree.Tree
	newParent      string
	updates        []SlugUpdate
	done           map[string]bool
	movedPrimaries []movedPrimary
}

func (c *cascade) add(id, slug string) {
	if c.done[id] {
		return
	}
	c.done[id] = true
	c.updates = append(c.updates, SlugUpdate{ID: id, NewSlug: slug})
}

func (c *cascade) primaryDescendants(n *pagetree.Node, oldSlug, newSlug string) {
	for _, child := range n.Children {
		next := ReplaceSlugPrefix(child.Slug, oldSlug, newSlug)
		c.add(child.ID, next)
		c.movedPrimaries = append(c.movedPrimaries, movedPrimary{child, child.Slug, next})
		c.primaryDescendants(child, oldSlug, newSlug)
	}
}

// variants rewrites each language variant of primary and the variant's
// nested language children.  root is true for the page being moved, whose
// variants may be re-homed under the new parent's variant of the same lang.
func (c *cascade) variants(primary *pagetree.Node, oldSlug, newSlug string, root bool) {
	for _, v := range pagetree.FindLanguagePagesForPrimary(primary.ID, c.tree.Language) {
		if c.done[v.ID] {
			continue
		}
		next := c.variantSlug(v, oldSlug, newSlug, root)
		c.add(v.ID, next)
		c.languageDescendants(v, v.Slug, next)
	}
}

func (c *cascade) languageDescendants(n *pagetree.Node, oldSlug, newSlug string) {
	for _, child := range n.Children {
		c.add(child.ID, ReplaceSlugPrefix(child.Slug, oldSlug, newSlug))
		c.languageDescendants(child, oldSlug, newSlug)
	}
}

// variantSlug keeps the variant's language prefix:
//
//	/es/products/phones  (primary /products/phones → /services/phones)
//	→ /es/services/phones
//
// A translated slug that does not end with the primary's path is placed
// under the new parent's same-lang variant, or under /<lang><parent path>.
func (c *cascade) variantSlug(v *pagetree.Node, oldPrimary, newPrimary string, root bool) string {
	if v.Slug == "" {
		return ""
	}
	if oldPrimary != "" && oldPrimary != "/" && strings.HasSuffix(v.Slug, oldPrimary) {
		return strings.TrimSuffix(v.Slug, oldPrimary) + newPrimary
	}
	if root && c.newParent != "" {
		for _, pv := range pagetree.FindLanguagePagesForPrimary(c.newParent, c.tree.Language) {
			if pv.Lang == v.Lang && pv.Slug != "" {
				return BuildPath(pv.Slug, LastSegment(v.Slug))
			}
		}
	}
	dir := strings.TrimSuffix(newPrimary, "/"+LastSegment(newPrimary))
	return BuildPath(BuildPath(v.Lang, dir), LastSegment(v.Slug))
}

// BatchUpdateSlugs writes updates to the draft table in parallel.  The row
// mainID also receives otherFields and the change markers.  Every written
// slug is then mirrored into the online table; mirror errors are logged.
func (h *Handler) BatchUpdateSlugs(ctx context.Context, appID string, updates []SlugUpdate, otherFields store.Patch, mainID string, changes page.Markers) error {
	now := h.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	if h.concurrency > 0 {
		g.SetLimit(h.concurrency)
	}
	mainWritten := false
	for _, u := range updates {
		patch := store.Patch{store.ColSlug: u.NewSlug, store.ColLastSaved: now}
		if u.ID == mainID {
			patch = patch.Merge(otherFields)
			patch[store.ColChanges] = changes
			mainWritten = true
		}
		g.Go(func() error {
			return h.pages.UpdatePage(gctx, appID, u.ID, patch)
		})
	}
	if !mainWritten && mainID != "" {
		patch := otherFields.Merge(store.Patch{store.ColLastSaved: now, store.ColChanges: changes})
		g.Go(func() error {
			return h.pages.UpdatePage(gctx, appID, mainID, patch)
		})
	}
	if err := g.Wait(); err != nil {
		return apperr.Storage(apperr.CodeUpdateFailed, err)
	}

	var mirror errgroup.Group
	if h.concurrency > 0 {
		mirror.SetLimit(h.concurrency)
	}
	for _, u := range updates {
		mirror.Go(func() error {
			if err := h.pages.UpdateOnlineSlug(ctx, appID, u.ID, u.NewSlug); err != nil {
				h.log.Warn("online slug mirror failed",
					zap.String("app", appID), zap.String("page", u.ID), zap.Error(err))
			}
			return nil
		})
	}
	_ = mirror.Wait()

	h.log.Debug("slugs updated", zap.String("app", appID), zap.String("page", mainID), zap.Int("rows", len(updates)))
	return nil
}
