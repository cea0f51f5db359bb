// internal/actions/update.go
//
// UPDATE_PAGE: sparse field updates of a draft page.
//
// Context
// -------
// Editors send only the fields they touched.  Absent (or null) fields are
// left alone; the payload struct is the allow-list, anything else in the
// JSON is ignored.
//
// Workflow
// --------
//  1. Load the page (PAGE_NOT_FOUND).
//  2. parent changed → re-parent cascade;  slug changed → rename cascade;
//     dynamic flipped alone → current slug re-checked in the new class.
//     Collisions are checked against the dynamic flag the row will carry.
//  3. blocks present → take the edit lock with one conditional UPDATE;
//     PAGE_LOCKED + holder when someone else owns it.
//  4. Write: the cascade, or a single-row write.
//     lastSaved = now, changes = ["Page"] | ["SEO"] | ["Updated"].
//
// Notes
// -----
// • Steps 1-2 only read, so a refused request leaves the row untouched.
// • parent "" moves the page to the top level.  slug "" is no change.
// • A blocks-only patch answers {success: true}; anything else re-reads the
//   row and answers with its public projection.
package actions

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/logger"
	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/routing"
	"github.com/yanizio/sitebuilder/internal/store"
)

// UpdatePageInput is the UPDATE_PAGE payload.
type UpdatePageInput struct {
	ID                string     `json:"id"                validate:"required"`
	Slug              *string    `json:"slug"              validate:"omitempty,max=512"`
	Name              *string    `json:"name"              validate:"omitempty,max=256"`
	SEO               *page.JSON `json:"seo"`
	Blocks            *page.JSON `json:"blocks"`
	CurrentEditor     *string    `json:"currentEditor"`
	BuildTime         *string    `json:"buildTime"`
	Parent            *string    `json:"parent"`
	PageType          *string    `json:"pageType"          validate:"omitempty,max=64"`
	Dynamic           *bool      `json:"dynamic"`
	DynamicSlugCustom *string    `json:"dynamicSlugCustom"`
	Tracking          *page.JSON `json:"tracking"`
}

// onlyBlocks reports whether blocks is the only field set.
func (in *UpdatePageInput) onlyBlocks() bool {
	return in.Blocks != nil && len(in.fields()) == 1
}

// fields maps the set fields onto draft columns.
func (in *UpdatePageInput) fields() store.Patch {
	p := store.Patch{}
	if in.Slug != nil {
		p[store.ColSlug] = *in.Slug
	}
	if in.Name != nil {
		p[store.ColName] = *in.Name
	}
	if in.SEO != nil {
		p[store.ColSEO] = *in.SEO
	}
	if in.Blocks != nil {
		p[store.ColBlocks] = *in.Blocks
	}
	if in.CurrentEditor != nil {
		p[store.ColCurrentEditor] = page.Ptr(*in.CurrentEditor)
	}
	if in.BuildTime != nil {
		p[store.ColBuildTime] = page.Ptr(*in.BuildTime)
	}
	if in.Parent != nil {
		p[store.ColParent] = page.Ptr(*in.Parent)
	}
	if in.PageType != nil {
		p[store.ColPageType] = *in.PageType
	}
	if in.Dynamic != nil {
		p[store.ColDynamic] = *in.Dynamic
	}
	if in.DynamicSlugCustom != nil {
		p[store.ColDynamicSlugCustom] = *in.DynamicSlugCustom
	}
	if in.Tracking != nil {
		p[store.ColTracking] = *in.Tracking
	}
	return p
}

func (in *UpdatePageInput) changeMarkers() page.Markers {
	switch {
	case in.Blocks != nil:
		return page.Markers{page.ChangePage}
	case in.SEO != nil:
		return page.Markers{page.ChangeSEO}
	default:
		return page.Markers{page.ChangeUpdated}
	}
}

// UpdateResult is {success: true} for blocks-only saves, otherwise the
// page's public projection plus the tags of every re-slugged page.
type UpdateResult struct {
	*page.Public
	Success bool     `json:"success,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

func (r *UpdateResult) CacheTags() []string { return r.Tags }

// UpdatePage applies in to the draft row.
func (s *Service) UpdatePage(ctx context.Context, c Context, in UpdatePageInput) (*UpdateResult, error) {
	log := logger.FromContext(ctx)

	current, err := s.repo.GetPage(ctx, c.AppID, in.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound(apperr.CodePageNotFound, "page not found")
	case err != nil:
		return nil, apperr.Storage(apperr.CodeUpdateFailed, err)
	}

	fields := in.fields()
	changes := in.changeMarkers()

	parentChanged, err := s.slugs.IsParentChanged(ctx, c.AppID, in.ID, in.Parent)
	if err != nil {
		return nil, err
	}
	slugChanged := false
	if in.Slug != nil {
		if slugChanged, err = s.slugs.IsSlugChanged(ctx, c.AppID, in.ID, *in.Slug); err != nil {
			return nil, err
		}
		if !slugChanged {
			delete(fields, store.ColSlug)
		}
	}

	var updates []routing.SlugUpdate
	switch {
	case parentChanged:
		change := routing.ParentChange{Parent: *in.Parent, Dynamic: in.Dynamic}
		if slugChanged {
			change.Slug = *in.Slug
		}
		if updates, err = s.slugs.HandleParentChange(ctx, c.AppID, in.ID, change); err != nil {
			return nil, err
		}
	case slugChanged:
		if updates, err = s.slugs.HandleSlugChange(ctx, c.AppID, in.ID, *in.Slug, in.Dynamic); err != nil {
			return nil, err
		}
	case in.Dynamic != nil && *in.Dynamic != current.Dynamic:
		if err := s.slugs.CheckSlugAvailable(ctx, c.AppID, in.ID, current.Slug, *in.Dynamic); err != nil {
			return nil, err
		}
	}

	if in.Blocks != nil {
		if err := s.lock(ctx, c, current); err != nil {
			return nil, err
		}
	}

	if len(updates) > 0 {
		delete(fields, store.ColSlug)
		if err := s.slugs.BatchUpdateSlugs(ctx, c.AppID, updates, fields, in.ID, changes); err != nil {
			return nil, err
		}
	} else {
		fields[store.ColLastSaved] = s.now().UTC()
		fields[store.ColChanges] = changes
		if err := s.repo.UpdatePage(ctx, c.AppID, in.ID, fields); err != nil {
			return nil, apperr.Storage(apperr.CodeUpdateFailed, err)
		}
	}

	log.Debug("page updated", zap.String("page", in.ID), zap.Int("cascade", len(updates)))
	if in.onlyBlocks() {
		return &UpdateResult{Success: true}, nil
	}

	updated, err := s.repo.GetPage(ctx, c.AppID, in.ID)
	if err != nil {
		return nil, apperr.Storage(apperr.CodeUpdateFailed, err)
	}
	pub := updated.Public()
	res := &UpdateResult{Public: &pub}
	for _, u := range updates {
		res.Tags = append(res.Tags, page.Tag(u.ID))
	}
	return res, nil
}

// lock takes (or refreshes) the edit lock on p for c.UserID.
func (s *Service) lock(ctx context.Context, c Context, p *page.Page) error {
	ok, err := s.repo.AcquireLock(ctx, c.AppID, p.ID, c.UserID, s.now().UTC(), s.cfg.LockTTL)
	if err != nil {
		return apperr.Storage(apperr.CodeLockFailed, err)
	}
	if ok {
		return nil
	}
	// Lost the race or the lock is held: report whoever holds it now.
	fresh, err := s.repo.GetPage(ctx, c.AppID, p.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(apperr.CodePageNotFound, "page not found")
	case err != nil:
		return apperr.Storage(apperr.CodeLockFailed, err)
	}
	return apperr.Locked(page.Deref(fresh.CurrentEditor))
}
