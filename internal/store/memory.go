// internal/store/memory.go
//
// In-process Repository.
//
// Used by the "memory" database driver and by engine tests.  All tables are
// plain maps guarded by one mutex; rows are copied on the way in and out so
// callers never share slices with the store.
//
// Seed* load fixture rows; the read helpers below them return copies.
// Fault injection lives in storetest, never here.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yanizio/sitebuilder/internal/page"
)

// Template is a library_templates row.
type Template struct {
	ID     string
	App    string
	PageID string
	Name   string
	Blocks page.JSON
}

// Settings is an app_settings row.
type Settings struct {
	Theme    page.JSON
	Settings page.JSON
	Changes  page.Markers
}

type key struct{ app, id string }

// Memory is a Repository backed by maps.
type Memory struct {
	mu        sync.Mutex
	pages     map[key]page.Page
	online    map[key]page.Page
	revisions []page.Revision
	templates map[key]Template
	settings  map[string]Settings
	published map[string]Settings
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		pages:     map[key]page.Page{},
		online:    map[key]page.Page{},
		templates: map[key]Template{},
		settings:  map[string]Settings{},
		published: map[string]Settings{},
	}
}

var _ Repository = (*Memory)(nil)

/*──────────────────────────── fixtures ────────────────────────────────────*/

// Seed inserts draft rows for appID.
func (m *Memory) Seed(appID string, pages ...page.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pages {
		p.App = appID
		m.pages[key{appID, p.ID}] = clonePage(p)
	}
}

// SeedOnline inserts published rows for appID.
func (m *Memory) SeedOnline(appID string, pages ...page.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pages {
		p.App = appID
		m.online[key{appID, p.ID}] = clonePage(p)
	}
}

// SeedTemplate inserts a library template.
func (m *Memory) SeedTemplate(t Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[key{t.App, t.ID}] = t
}

// SeedSettings sets the draft theme row of appID.
func (m *Memory) SeedSettings(appID string, s Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[appID] = s
}

// Revisions returns every archived revision.
func (m *Memory) Revisions() []page.Revision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]page.Revision(nil), m.revisions...)
}

// PublishedSettings returns the online theme row of appID.
func (m *Memory) PublishedSettings(appID string) (Settings, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.published[appID]
	return s, ok
}

// DraftSettings returns the draft theme row of appID.
func (m *Memory) DraftSettings(appID string) (Settings, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[appID]
	return s, ok
}

// Templates returns the template ids stored for appID.
func (m *Memory) Templates(appID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for k := range m.templates {
		if k.app == appID {
			ids = append(ids, k.id)
		}
	}
	sort.Strings(ids)
	return ids
}

/*──────────────────────────── draft pages ─────────────────────────────────*/

func (m *Memory) ListPages(_ context.Context, appID string) ([]page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]page.Page, 0, len(m.pages))
	for k, p := range m.pages {
		if k.app == appID {
			out = append(out, clonePage(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetPage(_ context.Context, appID, id string) (*page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[key{appID, id}]
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePage(p)
	return &p, nil
}

func (m *Memory) InsertPage(_ context.Context, p page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{p.App, p.ID}
	if _, dup := m.pages[k]; dup {
		return fmt.Errorf("store: duplicate page %s", p.ID)
	}
	m.pages[k] = clonePage(p)
	return nil
}

func (m *Memory) UpdatePage(_ context.Context, appID, id string, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patchLocked(appID, id, patch)
}

func (m *Memory) UpdatePages(_ context.Context, appID string, ids []string, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if err := m.patchLocked(appID, id, patch); err != nil {
			return err
		}
	}
	return nil
}

// patchLocked applies patch to an existing row; missing rows are skipped,
// as an UPDATE matching nothing would.
func (m *Memory) patchLocked(appID, id string, patch Patch) error {
	cols, err := patch.Columns()
	if err != nil {
		return err
	}
	k := key{appID, id}
	p, ok := m.pages[k]
	if !ok {
		return nil
	}
	for _, c := range cols {
		if err := applyColumn(&p, c, patch[c]); err != nil {
			return err
		}
	}
	m.pages[k] = p
	return nil
}

func (m *Memory) AcquireLock(_ context.Context, appID, id, userID string, now time.Time, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{appID, id}
	p, ok := m.pages[k]
	if !ok {
		return false, nil
	}
	if _, locked := p.LockHolder(userID, now, ttl); locked {
		return false, nil
	}
	p.CurrentEditor = page.Ptr(userID)
	t := now
	p.LastSaved = &t
	m.pages[k] = p
	return true, nil
}

func (m *Memory) DeleteRows(_ context.Context, appID string, target Target, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !validTarget(target) {
		return fmt.Errorf("store: unknown delete target %s", target)
	}
	if len(ids) == 0 {
		return nil
	}
	match := make(map[string]bool, len(ids))
	for _, id := range ids {
		match[id] = true
	}
	switch target {
	case TargetTemplates:
		for k, t := range m.templates {
			if k.app == appID && match[t.PageID] {
				delete(m.templates, k)
			}
		}
	case TargetRevisions:
		kept := m.revisions[:0]
		for _, r := range m.revisions {
			if !(r.App == appID && match[r.ID]) {
				kept = append(kept, r)
			}
		}
		m.revisions = kept
	case TargetPages:
		for _, id := range ids {
			delete(m.pages, key{appID, id})
		}
	case TargetOnline:
		for _, id := range ids {
			delete(m.online, key{appID, id})
		}
	case TargetOnlineByPrimary:
		for k, p := range m.online {
			if k.app == appID && match[page.Deref(p.PrimaryPage)] {
				delete(m.online, k)
			}
		}
	}
	return nil
}

/*──────────────────────────── online pages ────────────────────────────────*/

func (m *Memory) GetOnlinePage(_ context.Context, appID, id string) (*page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.online[key{appID, id}]
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePage(p)
	return &p, nil
}

// OnlinePage returns a copy of the published row.
func (m *Memory) OnlinePage(appID, id string) (page.Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.online[key{appID, id}]
	return p, ok
}

func (m *Memory) InsertOnlinePage(_ context.Context, p page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{p.App, p.ID}
	if _, dup := m.online[k]; dup {
		return fmt.Errorf("store: duplicate online page %s", p.ID)
	}
	p.Changes = nil
	p.Online = false
	m.online[k] = clonePage(p)
	return nil
}

func (m *Memory) DeleteOnlinePage(_ context.Context, appID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.online, key{appID, id})
	return nil
}

func (m *Memory) UpdateOnlineSlug(_ context.Context, appID, id, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{appID, id}
	if p, ok := m.online[k]; ok {
		p.Slug = slug
		m.online[k] = p
	}
	return nil
}

/*──────────────────────── revisions, partials, templates ──────────────────*/

func (m *Memory) InsertRevision(_ context.Context, r page.Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Page = clonePage(r.Page)
	m.revisions = append(m.revisions, r)
	return nil
}

func (m *Memory) FindPagesUsingPartial(_ context.Context, appID, partialID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for k, p := range m.pages {
		if k.app == appID && p.PartialBlocks.Contains(partialID) {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) TemplateBlocks(_ context.Context, appID, templateID string) (page.JSON, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[key{appID, templateID}]
	if !ok {
		return nil, ErrNotFound
	}
	return append(page.JSON(nil), t.Blocks...), nil
}

func (m *Memory) PublishTheme(_ context.Context, appID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[appID]
	if !ok {
		return ErrNotFound
	}
	m.published[appID] = Settings{Theme: s.Theme, Settings: s.Settings}
	s.Changes = nil
	m.settings[appID] = s
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func clonePage(p page.Page) page.Page {
	p.Blocks = append(page.JSON(nil), p.Blocks...)
	p.SEO = append(page.JSON(nil), p.SEO...)
	p.Tracking = append(page.JSON(nil), p.Tracking...)
	if p.Changes != nil {
		p.Changes = append(page.Markers{}, p.Changes...)
	}
	if p.PartialBlocks != nil {
		p.PartialBlocks = append(page.Markers{}, p.PartialBlocks...)
	}
	return p
}

// applyColumn writes one patch value onto p, accepting the value shapes the
// engine produces (string, *string, bool, time.Time, JSON, Markers).
func applyColumn(p *page.Page, col string, v any) error {
	switch col {
	case ColSlug:
		return setString(&p.Slug, v)
	case ColName:
		return setString(&p.Name, v)
	case ColPageType:
		return setString(&p.PageType, v)
	case ColDynamicSlugCustom:
		return setString(&p.DynamicSlugCustom, v)
	case ColParent:
		return setNullString(&p.Parent, v)
	case ColCurrentEditor:
		return setNullString(&p.CurrentEditor, v)
	case ColBuildTime:
		return setNullString(&p.BuildTime, v)
	case ColDynamic:
		return setBool(&p.Dynamic, v)
	case ColOnline:
		return setBool(&p.Online, v)
	case ColBlocks:
		return setJSON(&p.Blocks, v)
	case ColSEO:
		return setJSON(&p.SEO, v)
	case ColTracking:
		return setJSON(&p.Tracking, v)
	case ColChanges:
		return setMarkers(&p.Changes, v)
	case ColPartialBlocks:
		return setMarkers(&p.PartialBlocks, v)
	case ColLastSaved:
		switch t := v.(type) {
		case nil:
			p.LastSaved = nil
		case time.Time:
			p.LastSaved = &t
		case *time.Time:
			p.LastSaved = t
		default:
			return typeErr(col, v)
		}
		return nil
	}
	return fmt.Errorf("store: column %q is not patchable", col)
}

func setString(dst *string, v any) error {
	s, ok := v.(string)
	if !ok {
		return typeErr("string", v)
	}
	*dst = s
	return nil
}

func setNullString(dst **string, v any) error {
	switch s := v.(type) {
	case nil:
		*dst = nil
	case string:
		*dst = page.Ptr(s)
	case *string:
		*dst = s
	default:
		return typeErr("nullable string", v)
	}
	return nil
}

func setBool(dst *bool, v any) error {
	b, ok := v.(bool)
	if !ok {
		return typeErr("bool", v)
	}
	*dst = b
	return nil
}

func setJSON(dst *page.JSON, v any) error {
	switch j := v.(type) {
	case nil:
		*dst = nil
	case page.JSON:
		*dst = append(page.JSON(nil), j...)
	case json.RawMessage:
		*dst = append(page.JSON(nil), j...)
	case string:
		*dst = page.JSON(j)
	default:
		return typeErr("json", v)
	}
	return nil
}

func setMarkers(dst *page.Markers, v any) error {
	switch mk := v.(type) {
	case nil:
		*dst = nil
	case page.Markers:
		if mk == nil {
			*dst = nil
			return nil
		}
		*dst = append(page.Markers{}, mk...)
	case []string:
		*dst = append(page.Markers{}, mk...)
	default:
		return typeErr("markers", v)
	}
	return nil
}

func typeErr(want string, v any) error {
	return fmt.Errorf("store: want %s, got %T", strings.TrimSpace(want), v)
}
