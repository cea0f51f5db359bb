// internal/store/store.go
//
// Page repository contract.
//
// Context
// -------
// The engine never talks to a database directly.  Every read and write goes
// through Repository, which has two implementations:
//
//   • SQL     – sqlx over MySQL or Postgres (one per process, chosen by
//               database.driver at startup).
//   • Memory  – in-process maps for tests and the "memory" driver.
//
// Tables
// ------
//
//	app_pages            draft rows, one per page
//	app_pages_online     published snapshots
//	app_pages_revisions  archived snapshots (uid, type)
//	library_templates    templates saved from a page (page_id)
//	app_settings         site theme row, app_settings_online its snapshot
//
// Notes
// -----
// • Table and column names only ever come from the allow-lists below; user
//   input is always bound as an argument.
// • Deleting missing ids is a no-op, never an error.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yanizio/sitebuilder/internal/page"
)

// ErrNotFound is returned when a single-row lookup finds nothing.
var ErrNotFound = errors.New("store: not found")

// Repository is everything the engine needs from persistence.
type Repository interface {
	ListPages(ctx context.Context, appID string) ([]page.Page, error)
	GetPage(ctx context.Context, appID, id string) (*page.Page, error)
	InsertPage(ctx context.Context, p page.Page) error
	UpdatePage(ctx context.Context, appID, id string, patch Patch) error
	UpdatePages(ctx context.Context, appID string, ids []string, patch Patch) error
	AcquireLock(ctx context.Context, appID, id, userID string, now time.Time, ttl time.Duration) (bool, error)
	DeleteRows(ctx context.Context, appID string, target Target, ids []string) error

	GetOnlinePage(ctx context.Context, appID, id string) (*page.Page, error)
	InsertOnlinePage(ctx context.Context, p page.Page) error
	DeleteOnlinePage(ctx context.Context, appID, id string) error
	UpdateOnlineSlug(ctx context.Context, appID, id, slug string) error

	InsertRevision(ctx context.Context, r page.Revision) error
	FindPagesUsingPartial(ctx context.Context, appID, partialID string) ([]string, error)
	TemplateBlocks(ctx context.Context, appID, templateID string) (page.JSON, error)
	PublishTheme(ctx context.Context, appID string) error
}

//
// Delete targets
//

// Target names a table and the column a batched delete matches on.
type Target struct {
	Table  string
	Column string
}

func (t Target) String() string { return t.Table + "." + t.Column }

var (
	TargetTemplates       = Target{"library_templates", "page_id"}
	TargetRevisions       = Target{"app_pages_revisions", "id"}
	TargetPages           = Target{"app_pages", "id"}
	TargetOnline          = Target{"app_pages_online", "id"}
	TargetOnlineByPrimary = Target{"app_pages_online", "primary_page"}
)

// DeletionOrder is the dependency-safe sequence for removing a closure.
var DeletionOrder = []Target{
	TargetTemplates,
	TargetRevisions,
	TargetPages,
	TargetOnline,
	TargetOnlineByPrimary,
}

func validTarget(t Target) bool {
	for _, known := range DeletionOrder {
		if known == t {
			return true
		}
	}
	return false
}

//
// Patches
//

// Column names accepted in a Patch.
const (
	ColSlug              = "slug"
	ColName              = "name"
	ColPageType          = "page_type"
	ColParent            = "parent"
	ColDynamic           = "dynamic"
	ColDynamicSlugCustom = "dynamic_slug_custom"
	ColBlocks            = "blocks"
	ColSEO               = "seo"
	ColTracking          = "tracking"
	ColCurrentEditor     = "current_editor"
	ColLastSaved         = "last_saved"
	ColChanges           = "changes"
	ColOnline            = "online"
	ColBuildTime         = "build_time"
	ColPartialBlocks     = "partial_blocks"
)

var patchable = map[string]bool{
	ColSlug: true, ColName: true, ColPageType: true, ColParent: true,
	ColDynamic: true, ColDynamicSlugCustom: true, ColBlocks: true,
	ColSEO: true, ColTracking: true, ColCurrentEditor: true,
	ColLastSaved: true, ColChanges: true, ColOnline: true,
	ColBuildTime: true, ColPartialBlocks: true,
}

// Patch maps column → new value for a draft row.
type Patch map[string]any

// Columns returns the patch's columns in stable order, or an error if any
// column is not patchable.
func (p Patch) Columns() ([]string, error) {
	cols := make([]string, 0, len(p))
	for c := range p {
		if !patchable[c] {
			return nil, fmt.Errorf("store: column %q is not patchable", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols, nil
}

// Merge returns a copy of p overlaid with other.
func (p Patch) Merge(other Patch) Patch {
	out := make(Patch, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
