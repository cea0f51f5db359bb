// internal/store/sql.go
//
// sqlx implementation of Repository.
//
// Context
// -------
// One *sqlx.DB per process, MySQL (go-sql-driver/mysql) or Postgres
// (pgx stdlib).  Queries are written with `?` placeholders and passed through
// db.Rebind, so the same text serves both dialects.  IN lists are expanded
// with sqlx.In.
//
// Notes
// -----
// • MySQL must run with clientFoundRows=true (database.Open sets it) so that
//   AcquireLock sees a matched row even when the values did not change.
// • PublishTheme is the only multi-statement transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/sitebuilder/internal/page"
)

const pageColumns = `id, app, slug, name, page_type, parent, primary_page, lang, dynamic,
       dynamic_slug_custom, blocks, seo, tracking, current_editor, last_saved,
       changes, online, build_time, partial_blocks`

const onlineColumns = `id, app, slug, name, page_type, parent, primary_page, lang, dynamic,
       dynamic_slug_custom, blocks, seo, tracking, current_editor, last_saved,
       build_time, partial_blocks`

// SQL is the relational Repository.
type SQL struct {
	db *sqlx.DB
}

// NewSQL wraps db.  The driver name on db decides the placeholder style.
func NewSQL(db *sqlx.DB) *SQL { return &SQL{db: db} }

var _ Repository = (*SQL)(nil)

/*──────────────────────────── draft pages ─────────────────────────────────*/

func (s *SQL) ListPages(ctx context.Context, appID string) ([]page.Page, error) {
	q := s.db.Rebind(`SELECT ` + pageColumns + ` FROM app_pages WHERE app = ? ORDER BY id`)
	pages := make([]page.Page, 0, 64)
	if err := s.db.SelectContext(ctx, &pages, q, appID); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

func (s *SQL) GetPage(ctx context.Context, appID, id string) (*page.Page, error) {
	q := s.db.Rebind(`SELECT ` + pageColumns + ` FROM app_pages WHERE app = ? AND id = ?`)
	var p page.Page
	if err := s.db.GetContext(ctx, &p, q, appID, id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *SQL) InsertPage(ctx context.Context, p page.Page) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO app_pages (`+pageColumns+`)
	VALUES (:id, :app, :slug, :name, :page_type, :parent, :primary_page, :lang, :dynamic,
	        :dynamic_slug_custom, :blocks, :seo, :tracking, :current_editor, :last_saved,
	        :changes, :online, :build_time, :partial_blocks)`, p)
	if err != nil {
		return fmt.Errorf("insert page %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQL) UpdatePage(ctx context.Context, appID, id string, patch Patch) error {
	set, args, err := setClause(patch)
	if err != nil {
		return err
	}
	args = append(args, appID, id)
	q := s.db.Rebind(`UPDATE app_pages SET ` + set + ` WHERE app = ? AND id = ?`)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("update page %s: %w", id, err)
	}
	return nil
}

func (s *SQL) UpdatePages(ctx context.Context, appID string, ids []string, patch Patch) error {
	if len(ids) == 0 {
		return nil
	}
	set, args, err := setClause(patch)
	if err != nil {
		return err
	}
	args = append(args, appID, ids)
	q, args, err := sqlx.In(`UPDATE app_pages SET `+set+` WHERE app = ? AND id IN (?)`, args...)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("update pages: %w", err)
	}
	return nil
}

// AcquireLock takes the edit lock in one conditional UPDATE.  It succeeds
// when the lock is free, already held by userID, or expired.
func (s *SQL) AcquireLock(ctx context.Context, appID, id, userID string, now time.Time, ttl time.Duration) (bool, error) {
	q := s.db.Rebind(`UPDATE app_pages
	   SET current_editor = ?, last_saved = ?
	 WHERE app = ? AND id = ?
	   AND (current_editor IS NULL OR current_editor = '' OR current_editor = ?
	        OR last_saved IS NULL OR last_saved < ?)`)
	res, err := s.db.ExecContext(ctx, q, userID, now, appID, id, userID, now.Add(-ttl))
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQL) DeleteRows(ctx context.Context, appID string, target Target, ids []string) error {
	if !validTarget(target) {
		return fmt.Errorf("store: unknown delete target %s", target)
	}
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(
		`DELETE FROM `+target.Table+` WHERE app = ? AND `+target.Column+` IN (?)`, appID, ids)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("delete %s: %w", target, err)
	}
	return nil
}

/*──────────────────────────── online pages ────────────────────────────────*/

func (s *SQL) GetOnlinePage(ctx context.Context, appID, id string) (*page.Page, error) {
	q := s.db.Rebind(`SELECT ` + onlineColumns + ` FROM app_pages_online WHERE app = ? AND id = ?`)
	var p page.Page
	if err := s.db.GetContext(ctx, &p, q, appID, id); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *SQL) InsertOnlinePage(ctx context.Context, p page.Page) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO app_pages_online (`+onlineColumns+`)
	VALUES (:id, :app, :slug, :name, :page_type, :parent, :primary_page, :lang, :dynamic,
	        :dynamic_slug_custom, :blocks, :seo, :tracking, :current_editor, :last_saved,
	        :build_time, :partial_blocks)`, p)
	if err != nil {
		return fmt.Errorf("insert online page %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQL) DeleteOnlinePage(ctx context.Context, appID, id string) error {
	q := s.db.Rebind(`DELETE FROM app_pages_online WHERE app = ? AND id = ?`)
	if _, err := s.db.ExecContext(ctx, q, appID, id); err != nil {
		return fmt.Errorf("delete online page %s: %w", id, err)
	}
	return nil
}

// UpdateOnlineSlug is a no-op for pages that were never published.
func (s *SQL) UpdateOnlineSlug(ctx context.Context, appID, id, slug string) error {
	q := s.db.Rebind(`UPDATE app_pages_online SET slug = ? WHERE app = ? AND id = ?`)
	_, err := s.db.ExecContext(ctx, q, slug, appID, id)
	return err
}

/*──────────────────────── revisions, partials, templates ──────────────────*/

func (s *SQL) InsertRevision(ctx context.Context, r page.Revision) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO app_pages_revisions (uid, type, created_at, `+onlineColumns+`)
	VALUES (:uid, :type, :created_at, :id, :app, :slug, :name, :page_type, :parent, :primary_page,
	        :lang, :dynamic, :dynamic_slug_custom, :blocks, :seo, :tracking, :current_editor,
	        :last_saved, :build_time, :partial_blocks)`, r)
	if err != nil {
		return fmt.Errorf("insert revision %s: %w", r.ID, err)
	}
	return nil
}

// FindPagesUsingPartial matches the JSON-encoded id inside partial_blocks.
func (s *SQL) FindPagesUsingPartial(ctx context.Context, appID, partialID string) ([]string, error) {
	q := s.db.Rebind(`SELECT id FROM app_pages WHERE app = ? AND partial_blocks LIKE ?`)
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, q, appID, `%"`+escapeLike(partialID)+`"%`); err != nil {
		return nil, fmt.Errorf("find partial usage: %w", err)
	}
	return ids, nil
}

func (s *SQL) TemplateBlocks(ctx context.Context, appID, templateID string) (page.JSON, error) {
	q := s.db.Rebind(`SELECT blocks FROM library_templates WHERE app = ? AND id = ?`)
	var blocks page.JSON
	if err := s.db.GetContext(ctx, &blocks, q, appID, templateID); err != nil {
		return nil, notFound(err)
	}
	return blocks, nil
}

/*──────────────────────────── theme publish ───────────────────────────────*/

// PublishTheme copies app_settings into app_settings_online and clears the
// draft's changes marker, all in one transaction.  ErrNotFound when the
// tenant has no settings row.
func (s *SQL) PublishTheme(ctx context.Context, appID string) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM app_settings_online WHERE app = ?`), appID); err != nil {
		return fmt.Errorf("clear online settings: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO app_settings_online (app, theme, settings)
	SELECT app, theme, settings FROM app_settings WHERE app = ?`), appID)
	if err != nil {
		return fmt.Errorf("copy settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = ErrNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE app_settings SET changes = NULL WHERE app = ?`), appID); err != nil {
		return fmt.Errorf("clear settings changes: %w", err)
	}
	return tx.Commit()
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func setClause(patch Patch) (string, []any, error) {
	cols, err := patch.Columns()
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, errors.New("store: empty patch")
	}
	parts := make([]string, len(cols))
	args := make([]any, 0, len(cols)+2)
	for i, c := range cols {
		parts[i] = c + " = ?"
		args = append(args, patch[c])
	}
	return strings.Join(parts, ", "), args, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
