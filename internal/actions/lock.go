package actions

import (
	"context"
	"errors"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/pagetree"
	"github.com/yanizio/sitebuilder/internal/store"
)

// PageIDInput names a single page.
type PageIDInput struct {
	ID string `json:"id" validate:"required"`
}

// LockResult confirms the requester holds the edit lock.
type LockResult struct {
	Locked bool   `json:"locked"`
	Editor string `json:"editor"`
}

// LockPage takes the edit lock on in.ID for the requester.  It succeeds
// when the lock is free, expired, or already held by the requester.
func (s *Service) LockPage(ctx context.Context, c Context, in PageIDInput) (*LockResult, error) {
	p, err := s.repo.GetPage(ctx, c.AppID, in.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound(apperr.CodePageNotFound, "page not found")
	case err != nil:
		return nil, apperr.Storage(apperr.CodeLockFailed, err)
	}
	if err := s.lock(ctx, c, p); err != nil {
		return nil, err
	}
	return &LockResult{Locked: true, Editor: c.UserID}, nil
}

// NoInput is the payload of actions that take none.
type NoInput struct{}

// GetPagesTree returns both forests of the tenant.
func (s *Service) GetPagesTree(ctx context.Context, c Context, _ NoInput) (*pagetree.Tree, error) {
	return s.tree.Build(ctx, c.AppID)
}
