// internal/store/storetest/storetest.go
//
// Test double around store.Memory.
//
// Store behaves exactly like the in-memory repository and adds two hooks the
// production driver must never carry:
//
//   • Fail(method, err) makes every later call of method return err.
//     DeleteRows failures are keyed per target: "DeleteRows:<table>.<column>".
//   • Deletes() lists the DeleteRows calls that reached the store.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/store"
)

// DeleteCall is one recorded DeleteRows invocation.
type DeleteCall struct {
	Target store.Target
	IDs    []string
}

// Store is a store.Memory with fault injection and delete recording.
type Store struct {
	*store.Memory

	mu       sync.Mutex
	failures map[string]error
	deletes  []DeleteCall
}

// New returns an empty Store.
func New() *Store {
	return &Store{Memory: store.NewMemory(), failures: map[string]error{}}
}

var _ store.Repository = (*Store)(nil)

// Fail makes every later call of method return err (nil clears it).
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// Deletes returns the recorded DeleteRows calls.
func (s *Store) Deletes() []DeleteCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DeleteCall(nil), s.deletes...)
}

func (s *Store) failure(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[method]
}

func (s *Store) ListPages(ctx context.Context, appID string) ([]page.Page, error) {
	if err := s.failure("ListPages"); err != nil {
		return nil, err
	}
	return s.Memory.ListPages(ctx, appID)
}

func (s *Store) GetPage(ctx context.Context, appID, id string) (*page.Page, error) {
	if err := s.failure("GetPage"); err != nil {
		return nil, err
	}
	return s.Memory.GetPage(ctx, appID, id)
}

func (s *Store) InsertPage(ctx context.Context, p page.Page) error {
	if err := s.failure("InsertPage"); err != nil {
		return err
	}
	return s.Memory.InsertPage(ctx, p)
}

func (s *Store) UpdatePage(ctx context.Context, appID, id string, patch store.Patch) error {
	if err := s.failure("UpdatePage"); err != nil {
		return err
	}
	return s.Memory.UpdatePage(ctx, appID, id, patch)
}

func (s *Store) UpdatePages(ctx context.Context, appID string, ids []string, patch store.Patch) error {
	if err := s.failure("UpdatePages"); err != nil {
		return err
	}
	return s.Memory.UpdatePages(ctx, appID, ids, patch)
}

func (s *Store) AcquireLock(ctx context.Context, appID, id, userID string, now time.Time, ttl time.Duration) (bool, error) {
	if err := s.failure("AcquireLock"); err != nil {
		return false, err
	}
	return s.Memory.AcquireLock(ctx, appID, id, userID, now, ttl)
}

func (s *Store) DeleteRows(ctx context.Context, appID string, target store.Target, ids []string) error {
	if err := s.failure("DeleteRows:" + target.String()); err != nil {
		return err
	}
	if err := s.Memory.DeleteRows(ctx, appID, target, ids); err != nil {
		return err
	}
	if len(ids) > 0 {
		s.mu.Lock()
		s.deletes = append(s.deletes, DeleteCall{Target: target, IDs: append([]string(nil), ids...)})
		s.mu.Unlock()
	}
	return nil
}

func (s *Store) GetOnlinePage(ctx context.Context, appID, id string) (*page.Page, error) {
	if err := s.failure("GetOnlinePage"); err != nil {
		return nil, err
	}
	return s.Memory.GetOnlinePage(ctx, appID, id)
}

func (s *Store) InsertOnlinePage(ctx context.Context, p page.Page) error {
	if err := s.failure("InsertOnlinePage"); err != nil {
		return err
	}
	return s.Memory.InsertOnlinePage(ctx, p)
}

func (s *Store) DeleteOnlinePage(ctx context.Context, appID, id string) error {
	if err := s.failure("DeleteOnlinePage"); err != nil {
		return err
	}
	return s.Memory.DeleteOnlinePage(ctx, appID, id)
}

func (s *Store) UpdateOnlineSlug(ctx context.Context, appID, id, slug string) error {
	if err := s.failure("UpdateOnlineSlug"); err != nil {
		return err
	}
	return s.Memory.UpdateOnlineSlug(ctx, appID, id, slug)
}

func (s *Store) InsertRevision(ctx context.Context, r page.Revision) error {
	if err := s.failure("InsertRevision"); err != nil {
		return err
	}
	return s.Memory.InsertRevision(ctx, r)
}

func (s *Store) FindPagesUsingPartial(ctx context.Context, appID, partialID string) ([]string, error) {
	if err := s.failure("FindPagesUsingPartial"); err != nil {
		return nil, err
	}
	return s.Memory.FindPagesUsingPartial(ctx, appID, partialID)
}

func (s *Store) TemplateBlocks(ctx context.Context, appID, templateID string) (page.JSON, error) {
	if err := s.failure("TemplateBlocks"); err != nil {
		return nil, err
	}
	return s.Memory.TemplateBlocks(ctx, appID, templateID)
}

func (s *Store) PublishTheme(ctx context.Context, appID string) error {
	if err := s.failure("PublishTheme"); err != nil {
		return err
	}
	return s.Memory.PublishTheme(ctx, appID)
}
