package actions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/store/storetest"
)

const appID = "app-1"

var (
	alice = Context{AppID: appID, UserID: "alice"}
	bob   = Context{AppID: appID, UserID: "bob"}
	clock = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
)

func newService(t *testing.T, cfg Config, pages ...page.Page) (*Service, *storetest.Store) {
	t.Helper()
	mem := storetest.New()
	mem.Seed(appID, pages...)
	svc := New(mem, zaptest.NewLogger(t), cfg).WithClock(func() time.Time { return clock })
	n := 0
	svc.newID = func() string { n++; return fmt.Sprintf("gen-%d", n) }
	return svc, mem
}

func primary(id, slug, parent string) page.Page {
	return page.Page{ID: id, Slug: slug, Name: id, Parent: page.Ptr(parent), PageType: page.TypePage}
}

func variant(id, slug, primaryID, lang string) page.Page {
	return page.Page{ID: id, Slug: slug, Name: id, PrimaryPage: page.Ptr(primaryID), Lang: lang, PageType: page.TypePage}
}

func lockedBy(p page.Page, editor string, at time.Time) page.Page {
	p.CurrentEditor = page.Ptr(editor)
	p.LastSaved = &at
	return p
}

func mustGet(t *testing.T, mem *storetest.Store, id string) *page.Page {
	t.Helper()
	p, err := mem.GetPage(context.Background(), appID, id)
	require.NoError(t, err)
	return p
}

func exists(mem *storetest.Store, id string) bool {
	_, err := mem.GetPage(context.Background(), appID, id)
	return err == nil
}
