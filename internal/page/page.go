// internal/page/page.go
//
// Page row model shared by the draft, online, and revision tables.
//
// Context
// -------
// A Page with PrimaryPage == nil is a primary page: the canonical,
// language-agnostic entry of the site forest.  A non-nil PrimaryPage marks a
// language variant of that primary.  Partial pages (globals and forms) have
// an empty slug and are addressed by id only.
//
// Schema reference
//
//	CREATE TABLE app_pages (
//	    id                  VARCHAR(64)  PRIMARY KEY,
//	    app                 VARCHAR(64)  NOT NULL,
//	    slug                VARCHAR(512) NOT NULL DEFAULT '',
//	    name                VARCHAR(256) NOT NULL DEFAULT '',
//	    page_type           VARCHAR(64)  NOT NULL DEFAULT 'page',
//	    parent              VARCHAR(64)  NULL,
//	    primary_page        VARCHAR(64)  NULL,
//	    lang                VARCHAR(16)  NOT NULL DEFAULT '',
//	    dynamic             BOOLEAN      NOT NULL DEFAULT FALSE,
//	    dynamic_slug_custom VARCHAR(256) NOT NULL DEFAULT '',
//	    blocks, seo, tracking, changes, partial_blocks  JSON NULL,
//	    current_editor      VARCHAR(64)  NULL,
//	    last_saved          TIMESTAMP    NULL,
//	    build_time          VARCHAR(64)  NULL,
//	    online              BOOLEAN      NOT NULL DEFAULT FALSE
//	);
//
// Notes
// -----
// • The online table has the same columns minus changes/online.
// • Revisions add uid (own identity) and type (draft | published).
package page

import "time"

// Page types.  Any other value is a dynamic, user-defined type.
const (
	TypePage   = "page"
	TypeGlobal = "global"
	TypeForm   = "form"
	TypeTheme  = "theme"
)

// ThemeID is the publish sentinel for the site-settings row.
const ThemeID = "THEME"

// Revision types.
const (
	RevisionDraft     = "draft"
	RevisionPublished = "published"
)

// Change markers written to the changes column.
const (
	ChangePage    = "Page"
	ChangeSEO     = "SEO"
	ChangeUpdated = "Updated"
	ChangeNew     = "New"
)

// Page mirrors one row in app_pages.
type Page struct {
	ID                string     `db:"id"                  json:"id"`
	App               string     `db:"app"                 json:"-"`
	Slug              string     `db:"slug"                json:"slug"`
	Name              string     `db:"name"                json:"name"`
	PageType          string     `db:"page_type"           json:"pageType"`
	Parent            *string    `db:"parent"              json:"parent"`
	PrimaryPage       *string    `db:"primary_page"        json:"primaryPage"`
	Lang              string     `db:"lang"                json:"lang"`
	Dynamic           bool       `db:"dynamic"             json:"dynamic"`
	DynamicSlugCustom string     `db:"dynamic_slug_custom" json:"dynamicSlugCustom"`
	Blocks            JSON       `db:"blocks"              json:"blocks"`
	SEO               JSON       `db:"seo"                 json:"seo"`
	Tracking          JSON       `db:"tracking"            json:"tracking"`
	CurrentEditor     *string    `db:"current_editor"      json:"currentEditor"`
	LastSaved         *time.Time `db:"last_saved"          json:"lastSaved"`
	Changes           Markers    `db:"changes"             json:"changes"`
	Online            bool       `db:"online"              json:"online"`
	BuildTime         *string    `db:"build_time"          json:"buildTime"`
	PartialBlocks     Markers    `db:"partial_blocks"      json:"partialBlocks"`
}

// IsPrimary reports whether p is the canonical entry of its family.
func (p *Page) IsPrimary() bool { return Deref(p.PrimaryPage) == "" }

// IsPartial reports whether p is a global block or form (no route).
func (p *Page) IsPartial() bool { return p.Slug == "" }

// TagID is the id used in cache tags: the primary page for variants.
func (p *Page) TagID() string {
	if pp := Deref(p.PrimaryPage); pp != "" {
		return pp
	}
	return p.ID
}

// Public is the projection returned to editors after an update.
type Public struct {
	ID                string     `json:"id"`
	Slug              string     `json:"slug"`
	Name              string     `json:"name"`
	PageType          string     `json:"pageType"`
	Parent            *string    `json:"parent"`
	PrimaryPage       *string    `json:"primaryPage"`
	Lang              string     `json:"lang"`
	Dynamic           bool       `json:"dynamic"`
	DynamicSlugCustom string     `json:"dynamicSlugCustom"`
	SEO               JSON       `json:"seo"`
	Tracking          JSON       `json:"tracking"`
	CurrentEditor     *string    `json:"currentEditor"`
	LastSaved         *time.Time `json:"lastSaved"`
	Changes           Markers    `json:"changes"`
	Online            bool       `json:"online"`
	BuildTime         *string    `json:"buildTime"`
}

// Public drops the tenant id and the (large) block list.
func (p *Page) Public() Public {
	return Public{
		ID:                p.ID,
		Slug:              p.Slug,
		Name:              p.Name,
		PageType:          p.PageType,
		Parent:            p.Parent,
		PrimaryPage:       p.PrimaryPage,
		Lang:              p.Lang,
		Dynamic:           p.Dynamic,
		DynamicSlugCustom: p.DynamicSlugCustom,
		SEO:               p.SEO,
		Tracking:          p.Tracking,
		CurrentEditor:     p.CurrentEditor,
		LastSaved:         p.LastSaved,
		Changes:           p.Changes,
		Online:            p.Online,
		BuildTime:         p.BuildTime,
	}
}

// Revision is an archived snapshot of what was online.
type Revision struct {
	UID  string    `db:"uid"        json:"uid"`
	Type string    `db:"type"       json:"type"`
	At   time.Time `db:"created_at" json:"createdAt"`
	Page
}

// Tag returns the cache-invalidation tag for a page id.
func Tag(id string) string { return "page-" + id }

// SettingsTag returns the cache-invalidation tag for a tenant's theme row.
func SettingsTag(appID string) string { return "website-settings-" + appID }

// Ptr returns a pointer to s, or nil for the empty string.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *s or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
