// internal/actions/publish.go
//
// PUBLISH_PAGE and UNPUBLISH_PAGE.
//
// Context
// -------
// Publishing clones a draft row into app_pages_online.  Whatever was online
// before is archived into app_pages_revisions first, so every overwrite is
// recoverable.  The THEME sentinel publishes the tenant's site settings
// instead, in one transaction.
//
// Workflow (per id, in request order)
// -----------------------------------
//  1. THEME → store.PublishTheme, tag website-settings-<app>.
//  2. Page  → read draft; if a primary online row exists archive it
//     (type=published); delete the online row; insert the draft with
//     currentEditor = publisher.  Tag page-<primaryPage ?? id>, plus every
//     page embedding it when it is a partial.
//  3. Clear changes and set online = true on every published page id.
//
// Notes
// -----
// • There is no cross-id transaction.  Processing stops at the first
//   failing id; ids already published stay published and get step 3.
// • Partial-usage lookups are best-effort; failures are logged.
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

// PublishInput is the PUBLISH_PAGE and UNPUBLISH_PAGE payload.
type PublishInput struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// TagsResult carries cache tags only.
type TagsResult struct {
	Tags []string `json:"tags"`
}

func (r *TagsResult) CacheTags() []string { return r.Tags }

// PublishPages publishes each id of in.IDs.
func (s *Service) PublishPages(ctx context.Context, c Context, in PublishInput) (*TagsResult, error) {
	log := logger.FromContext(ctx)

	var (
		tags      []string
		published []string
		failure   error
	)
	for _, id := range in.IDs {
		var idTags []string
		var err error
		if id == page.ThemeID {
			idTags, err = s.publishTheme(ctx, c)
		} else {
			idTags, err = s.publishPage(ctx, c, id)
			if err == nil {
				published = append(published, id)
			}
		}
		if err != nil {
			log.Warn("publish stopped", zap.String("page", id), zap.Error(err))
			failure = err
			break
		}
		tags = append(tags, idTags...)
	}

	if len(published) > 0 {
		err := s.repo.UpdatePages(ctx, c.AppID, published, store.Patch{
			store.ColChanges: page.Markers(nil),
			store.ColOnline:  true,
		})
		if err != nil && failure == nil {
			failure = apperr.Storage(apperr.CodeErrorPublishPage, err)
		}
	}
	if failure != nil {
		return nil, failure
	}

	log.Info("published", zap.Strings("ids", in.IDs))
	return &TagsResult{Tags: uniqueTags(tags)}, nil
}

func (s *Service) publishTheme(ctx context.Context, c Context) ([]string, error) {
	err := s.repo.PublishTheme(ctx, c.AppID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound(apperr.CodeSiteNotFound, "site settings not found")
	case err != nil:
		return nil, apperr.Storage(apperr.CodeErrorPublishTheme, err)
	}
	return []string{page.SettingsTag(c.AppID)}, nil
}

func (s *Service) publishPage(ctx context.Context, c Context, id string) ([]string, error) {
	draft, err := s.repo.GetPage(ctx, c.AppID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound(apperr.CodePageNotFound, "page not found")
	case err != nil:
		return nil, apperr.Storage(apperr.CodeErrorPublishPage, err)
	}

	online, err := s.repo.GetOnlinePage(ctx, c.AppID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, apperr.Storage(apperr.CodeErrorPublishPage, err)
	case online.IsPrimary():
		rev := page.Revision{
			UID:  s.newID(),
			Type: page.RevisionPublished,
			At:   s.now().UTC(),
			Page: *online,
		}
		if err := s.repo.InsertRevision(ctx, rev); err != nil {
			return nil, apperr.Storage(apperr.CodeErrorCreateRevision, err)
		}
		metrics.RevisionsTotal.Inc()
	}

	if err := s.repo.DeleteOnlinePage(ctx, c.AppID, id); err != nil {
		return nil, apperr.Storage(apperr.CodeErrorPublishPage, err)
	}
	row := *draft
	row.CurrentEditor = page.Ptr(c.UserID)
	if err := s.repo.InsertOnlinePage(ctx, row); err != nil {
		return nil, apperr.Storage(apperr.CodeErrorPublishPage, err)
	}

	tags := []string{page.Tag(draft.TagID())}
	if draft.IsPartial() {
		users, err := s.repo.FindPagesUsingPartial(ctx, c.AppID, id)
		if err != nil {
			logger.FromContext(ctx).Warn("partial usage lookup failed", zap.String("page", id), zap.Error(err))
		}
		for _, u := range users {
			tags = append(tags, page.Tag(u))
		}
	}
	return tags, nil
}

// UnpublishPages removes the online rows of in.IDs (and the online rows of
// their language variants) and marks the drafts offline.
func (s *Service) UnpublishPages(ctx context.Context, c Context, in PublishInput) (*TagsResult, error) {
	tree, err := s.tree.Build(ctx, c.AppID)
	if err != nil {
		return nil, err
	}

	ids := newIDSet()
	tags := make([]string, 0, len(in.IDs))
	for _, id := range in.IDs {
		node, isLang := tree.Find(id)
		if node == nil {
			return nil, apperr.NotFound(apperr.CodePageNotFound, "page not found")
		}
		ids.add(id)
		if isLang {
			tags = append(tags, page.Tag(node.PrimaryPage))
			continue
		}
		tags = append(tags, page.Tag(id))
		for _, v := range pagetree.FindLanguagePagesForPrimary(id, tree.Language) {
			ids.add(v.ID)
		}
	}

	for _, step := range []store.Target{store.TargetOnline, store.TargetOnlineByPrimary} {
		if err := s.repo.DeleteRows(ctx, c.AppID, step, ids.ids); err != nil {
			return nil, apperr.Storage(apperr.CodeUnpublishFailed, err)
		}
	}
	if err := s.repo.UpdatePages(ctx, c.AppID, ids.ids, store.Patch{store.ColOnline: false}); err != nil {
		return nil, apperr.Storage(apperr.CodeUnpublishFailed, err)
	}

	logger.FromContext(ctx).Info("unpublished", zap.Strings("ids", ids.ids))
	return &TagsResult{Tags: uniqueTags(tags)}, nil
}
