// internal/actions/delete.go
//
// DELETE_PAGE: cascading physical deletion.
//
// Context
// -------
// Deleting one page removes everything that would dangle without it.  The
// target is classified against a fresh tree snapshot:
//
//   • Partial page (global/form, empty slug, primary)  → itself and its
//     language variants.
//   • Language variant → depends on the configured scope.  "family" removes
//     every variant of the same primary with their nested language pages,
//     plus the language variants of the primary's nested children.
//     "branch" removes the variant and its nested language pages only.
//   • Primary page → itself, every nested primary child, and all language
//     variants of each (with their nested language pages).
//
// Workflow
// --------
//  1. Lock pre-check on the root id only.
//  2. Closure computed in memory, de-duplicated, root first.
//  3. One batched delete per step of store.DeletionOrder.  The first failing
//     step aborts the rest (DELETE_FAILED).
//
// Notes
// -----
// • Steps are not one transaction; a crash mid-sequence can leave orphaned
//   online or revision rows.  Re-running the delete is safe.
package actions

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/logger"
	"github.com/yanizio/sitebuilder/internal/metrics"
	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/pagetree"
	"github.com/yanizio/sitebuilder/internal/store"
)

// DeletePageInput is the DELETE_PAGE payload.
type DeletePageInput struct {
	ID string `json:"id" validate:"required"`
}

// DeleteResult lists the cache tags of every removed page.
type DeleteResult struct {
	Tags         []string `json:"tags"`
	TotalDeleted int      `json:"totalDeleted"`
}

func (r *DeleteResult) CacheTags() []string { return r.Tags }

// DeletePage removes in.ID and its deletion closure.
func (s *Service) DeletePage(ctx context.Context, c Context, in DeletePageInput) (*DeleteResult, error) {
	log := logger.FromContext(ctx)

	target, err := s.repo.GetPage(ctx, c.AppID, in.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &DeleteResult{Tags: []string{}}, nil
	case err != nil:
		return nil, apperr.Storage(apperr.CodeDeleteFailed, err)
	}
	if holder, locked := target.LockHolder(c.UserID, s.now(), s.cfg.LockTTL); locked {
		return nil, apperr.Locked(holder)
	}

	tree, err := s.tree.Build(ctx, c.AppID)
	if err != nil {
		return nil, err
	}
	ids := s.deletionClosure(tree, in.ID)
	if len(ids) == 0 {
		return &DeleteResult{Tags: []string{}}, nil
	}

	for _, step := range store.DeletionOrder {
		if err := s.repo.DeleteRows(ctx, c.AppID, step, ids); err != nil {
			log.Error("delete step failed",
				zap.String("page", in.ID), zap.Stringer("step", step), zap.Error(err))
			return nil, apperr.Storage(apperr.CodeDeleteFailed, err)
		}
	}

	tags := make([]string, len(ids))
	for i, id := range ids {
		tags[i] = page.Tag(id)
	}
	metrics.DeletedPagesTotal.Add(float64(len(ids)))
	log.Info("page deleted", zap.String("page", in.ID), zap.Int("total", len(ids)))
	return &DeleteResult{Tags: tags, TotalDeleted: len(ids)}, nil
}

// deletionClosure returns id and every id that must go with it.
func (s *Service) deletionClosure(tree *pagetree.Tree, id string) []string {
	node, isLang := tree.Find(id)
	if node == nil {
		return nil
	}
	c := newIDSet()

	switch {
	case isLang:
		c.add(id)
		if s.cfg.LanguageDeleteScope == ScopeBranch {
			c.add(pagetree.CollectNestedLanguageIDs(node)...)
			break
		}
		// Whole family of the primary counterpart.
		c.addVariants(tree, node.PrimaryPage)
		if primary := pagetree.FindPageInPrimaryTree(node.PrimaryPage, tree.Primary); primary != nil {
			for _, childID := range pagetree.CollectNestedChildIDs(primary) {
				c.addVariants(tree, childID)
			}
		}
		c.add(pagetree.CollectNestedLanguageIDs(node)...)

	case isPartial(node):
		c.add(id)
		c.addVariants(tree, id)

	default:
		c.add(id)
		nested := pagetree.CollectNestedChildIDs(node)
		c.add(nested...)
		c.addVariants(tree, id)
		for _, childID := range nested {
			c.addVariants(tree, childID)
		}
	}
	return c.ids
}

func isPartial(n *pagetree.Node) bool { return n.Slug == "" && !n.IsLanguage() }

// idSet keeps insertion order.
type idSet struct {
	ids  []string
	seen map[string]bool
}

func newIDSet() *idSet { return &idSet{seen: map[string]bool{}} }

func (s *idSet) add(ids ...string) {
	for _, id := range ids {
		if !s.seen[id] {
			s.seen[id] = true
			s.ids = append(s.ids, id)
		}
	}
}

// addVariants adds every language variant of primaryID and the variants'
// nested language pages.
func (s *idSet) addVariants(tree *pagetree.Tree, primaryID string) {
	for _, v := range pagetree.FindLanguagePagesForPrimary(primaryID, tree.Language) {
		s.add(v.ID)
		s.add(pagetree.CollectNestedLanguageIDs(v)...)
	}
}
