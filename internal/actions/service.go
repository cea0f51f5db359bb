// internal/actions/service.go
//
// Action service: the page-tree and publish engine.
//
// Context
// -------
// Every inbound action (UPDATE_PAGE, DELETE_PAGE, PUBLISH_PAGE, …) runs
// against one Service.  The Service holds no per-tenant state: the tenant
// and requester arrive on every call as an explicit Context value, so one
// process can serve many tenants concurrently.
//
// Workflow
// --------
//  1. Registry.Dispatch decodes and validates the payload.
//  2. The action reads the tenant's pages once (pagetree.Builder).
//  3. The mutation set is computed in memory.
//  4. Writes go out as batches through store.Repository.
//
// Notes
// -----
// • Actions return either a result or an *apperr.Error; storage failures
//   mid-cascade are reported, never retried.
package actions

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/pagetree"
	"github.com/yanizio/sitebuilder/internal/routing"
	"github.com/yanizio/sitebuilder/internal/store"
)

// Context identifies the tenant and the requester of one action.
type Context struct {
	AppID  string
	UserID string
}

func (c Context) validate() error {
	var details []apperr.FieldError
	if c.AppID == "" {
		details = append(details, apperr.FieldError{Field: "appId", Message: "required"})
	}
	if c.UserID == "" {
		details = append(details, apperr.FieldError{Field: "userId", Message: "required"})
	}
	if len(details) > 0 {
		return apperr.Validation("missing action context", details...)
	}
	return nil
}

// Language delete scopes.
const (
	// ScopeFamily deletes every language sibling of the variant's primary.
	ScopeFamily = "family"
	// ScopeBranch deletes only the variant and its nested language pages.
	ScopeBranch = "branch"
)

// Config tunes the engine.  Zero values fall back to defaults.
type Config struct {
	LockTTL             time.Duration
	LanguageDeleteScope string
	WriteConcurrency    int
}

// Service executes page actions against one repository.
type Service struct {
	repo  store.Repository
	tree  *pagetree.Builder
	slugs *routing.Handler
	log   *zap.Logger
	cfg   Config
	now   func() time.Time
	newID func() string
}

// New wires a Service.
func New(repo store.Repository, log *zap.Logger, cfg Config) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = page.DefaultLockTTL
	}
	if cfg.LanguageDeleteScope == "" {
		cfg.LanguageDeleteScope = ScopeFamily
	}
	if cfg.WriteConcurrency <= 0 {
		cfg.WriteConcurrency = 8
	}
	return &Service{
		repo:  repo,
		tree:  pagetree.NewBuilder(repo),
		slugs: routing.NewHandler(repo, log.Named("slugs"), cfg.WriteConcurrency),
		log:   log,
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock replaces the wall clock for the service and its slug handler.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.slugs.WithClock(now)
	return s
}

// Tagged is implemented by results that carry cache-invalidation tags.
type Tagged interface {
	CacheTags() []string
}

// uniqueTags drops duplicates, keeping first-seen order.
func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
