package actions

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/logger"
	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/pagetree"
	"github.com/yanizio/sitebuilder/internal/routing"
	"github.com/yanizio/sitebuilder/internal/store"
)

// CreatePageInput is the CREATE_PAGE payload.  Set PrimaryPage and Lang to
// create a language variant; set TemplateID to start from a library
// template's blocks.
type CreatePageInput struct {
	ID          string    `json:"id"          validate:"omitempty,max=64"`
	Name        string    `json:"name"        validate:"required,max=256"`
	Slug        string    `json:"slug"        validate:"omitempty,max=512"`
	PageType    string    `json:"pageType"    validate:"omitempty,max=64"`
	Parent      string    `json:"parent"`
	PrimaryPage string    `json:"primaryPage"`
	Lang        string    `json:"lang"        validate:"required_with=PrimaryPage,max=16"`
	Dynamic     bool      `json:"dynamic"`
	TemplateID  string    `json:"templateId"`
	Blocks      page.JSON `json:"blocks"`
	SEO         page.JSON `json:"seo"`
}

// CreatePage inserts a new draft page owned (locked) by the requester.
func (s *Service) CreatePage(ctx context.Context, c Context, in CreatePageInput) (*page.Public, error) {
	tree, err := s.tree.Build(ctx, c.AppID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := page.Page{
		ID:            in.ID,
		App:           c.AppID,
		Name:          in.Name,
		PageType:      in.PageType,
		Dynamic:       in.Dynamic,
		SEO:           in.SEO,
		CurrentEditor: page.Ptr(c.UserID),
		LastSaved:     &now,
		Changes:       page.Markers{page.ChangeNew},
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	if existing, _ := tree.Find(p.ID); existing != nil {
		return nil, apperr.Conflict(apperr.CodeCreateFailed, "page id already exists")
	}

	if in.PrimaryPage != "" {
		if err := s.shapeVariant(tree, &p, in); err != nil {
			return nil, err
		}
	} else if err := s.shapePrimary(tree, &p, in); err != nil {
		return nil, err
	}

	if tree.SlugTaken(p.Slug, p.Dynamic, p.ID) {
		return nil, apperr.Conflict(apperr.CodeSlugAlreadyExists, "slug already exists")
	}

	switch {
	case in.TemplateID != "":
		blocks, err := s.repo.TemplateBlocks(ctx, c.AppID, in.TemplateID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFound(apperr.CodeTemplateNotFound, "template not found")
		case err != nil:
			return nil, apperr.Storage(apperr.CodeCreateFailed, err)
		}
		p.Blocks = blocks
	case !in.Blocks.IsNull():
		p.Blocks = in.Blocks
	default:
		p.Blocks = page.JSON(`[]`)
	}

	if err := s.repo.InsertPage(ctx, p); err != nil {
		return nil, apperr.Storage(apperr.CodeCreateFailed, err)
	}
	logger.FromContext(ctx).Info("page created",
		zap.String("page", p.ID), zap.String("slug", p.Slug), zap.String("lang", p.Lang))

	pub := p.Public()
	return &pub, nil
}

func (s *Service) shapePrimary(tree *pagetree.Tree, p *page.Page, in CreatePageInput) error {
	if p.PageType == "" {
		p.PageType = page.TypePage
	}
	parentSlug := ""
	if in.Parent != "" {
		parent := pagetree.FindPageInPrimaryTree(in.Parent, tree.Primary)
		if parent == nil {
			return apperr.NotFound(apperr.CodePageNotFoundInTree, "parent page not found in tree")
		}
		p.Parent = page.Ptr(in.Parent)
		parentSlug = parent.Slug
	}

	switch {
	case p.PageType == page.TypeGlobal || p.PageType == page.TypeForm:
		p.Slug = ""
	case in.Slug != "":
		p.Slug = routing.BuildPath("", in.Slug)
	default:
		p.Slug = routing.BuildPath(parentSlug, routing.MakeSlug(in.Name))
	}
	return nil
}

// shapeVariant fills a language variant from its primary counterpart: same
// type and dynamic flag, slug /<lang><primary slug> unless given.
func (s *Service) shapeVariant(tree *pagetree.Tree, p *page.Page, in CreatePageInput) error {
	primary := pagetree.FindPageInPrimaryTree(in.PrimaryPage, tree.Primary)
	if primary == nil {
		return apperr.NotFound(apperr.CodePageNotFound, "primary page not found")
	}
	for _, v := range pagetree.FindLanguagePagesForPrimary(primary.ID, tree.Language) {
		if v.Lang == in.Lang {
			return apperr.Conflict(apperr.CodeLanguagePageExists, "language page already exists")
		}
	}

	p.PrimaryPage = page.Ptr(primary.ID)
	p.Lang = in.Lang
	p.PageType = primary.PageType
	p.Dynamic = primary.Dynamic
	switch {
	case primary.Slug == "":
		p.Slug = ""
	case in.Slug != "":
		p.Slug = routing.BuildPath("", in.Slug)
	default:
		p.Slug = routing.BuildPath(in.Lang, primary.Slug)
	}
	return nil
}
