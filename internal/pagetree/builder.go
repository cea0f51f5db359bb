package pagetree

import (
	"context"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/page"
)

// PageLister is the single bulk read the builder needs.
type PageLister interface {
	ListPages(ctx context.Context, appID string) ([]page.Page, error)
}

// Builder fetches a tenant's pages and folds them into a Tree.
type Builder struct {
	pages PageLister
}

// NewBuilder returns a Builder reading from pages.
func NewBuilder(pages PageLister) *Builder {
	return &Builder{pages: pages}
}

// Build issues exactly one ListPages call and returns both forests.
func (b *Builder) Build(ctx context.Context, appID string) (*Tree, error) {
	pages, err := b.pages.ListPages(ctx, appID)
	if err != nil {
		return nil, apperr.Storage(apperr.CodeErrorGettingPages, err)
	}
	return New(pages), nil
}
