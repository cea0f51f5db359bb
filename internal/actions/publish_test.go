package actions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/store"
)

func TestPublishCreatesRevisionOnOverwrite(t *testing.T) {
	ctx := context.Background()
	draft := primary("page-1", "/a", "")
	draft.Blocks = page.JSON(`[{"v":2}]`)
	draft.Changes = page.Markers{page.ChangePage}

	svc, mem := newService(t, Config{}, draft)
	previous := primary("page-1", "/a", "")
	previous.Blocks = page.JSON(`[{"v":1}]`)
	mem.SeedOnline(appID, previous)

	res, err := svc.PublishPages(ctx, alice, PublishInput{IDs: []string{"page-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"page-page-1"}, res.Tags)

	revs := mem.Revisions()
	require.Len(t, revs, 1)
	assert.Equal(t, page.RevisionPublished, revs[0].Type)
	assert.Equal(t, "gen-1", revs[0].UID)
	assert.JSONEq(t, `[{"v":1}]`, string(revs[0].Blocks))

	online, ok := mem.OnlinePage(appID, "page-1")
	require.True(t, ok)
	assert.JSONEq(t, `[{"v":2}]`, string(online.Blocks))
	assert.Equal(t, "alice", page.Deref(online.CurrentEditor))

	d := mustGet(t, mem, "page-1")
	assert.Nil(t, d.Changes)
	assert.True(t, d.Online)
}

func TestPublishFirstTimeHasNoRevision(t *testing.T) {
	svc, mem := newService(t, Config{}, primary("page-1", "/a", ""))

	_, err := svc.PublishPages(context.Background(), alice, PublishInput{IDs: []string{"page-1"}})
	require.NoError(t, err)
	assert.Empty(t, mem.Revisions())
	_, ok := mem.OnlinePage(appID, "page-1")
	assert.True(t, ok)
}

func TestPublishVariantTagsPrimaryAndSkipsRevision(t *testing.T) {
	svc, mem := newService(t, Config{},
		primary("p", "/a", ""),
		variant("p-es", "/es/a", "p", "es"),
	)
	mem.SeedOnline(appID, variant("p-es", "/es/a", "p", "es"))

	res, err := svc.PublishPages(context.Background(), alice, PublishInput{IDs: []string{"p-es"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"page-p"}, res.Tags)
	assert.Empty(t, mem.Revisions())
}

func TestPublishPartialFansOutTags(t *testing.T) {
	user1 := primary("home", "/", "")
	user1.PartialBlocks = page.Markers{"header"}
	user2 := primary("about", "/about", "")
	user2.PartialBlocks = page.Markers{"footer", "header"}

	svc, _ := newService(t, Config{},
		page.Page{ID: "header", PageType: page.TypeGlobal},
		user1, user2, primary("other", "/other", ""),
	)

	res, err := svc.PublishPages(context.Background(), alice, PublishInput{IDs: []string{"header"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"page-header", "page-about", "page-home"}, res.Tags)
}

func TestPublishPartialLookupFailureIsIgnored(t *testing.T) {
	svc, mem := newService(t, Config{}, page.Page{ID: "header", PageType: page.TypeGlobal})
	mem.Fail("FindPagesUsingPartial", errors.New("timeout"))

	res, err := svc.PublishPages(context.Background(), alice, PublishInput{IDs: []string{"header"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"page-header"}, res.Tags)
}

func TestPublishTheme(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, Config{}, primary("p", "/a", ""))

	_, err := svc.PublishPages(ctx, alice, PublishInput{IDs: []string{page.ThemeID}})
	assert.True(t, apperr.IsCode(err, apperr.CodeSiteNotFound))

	mem.SeedSettings(appID, store.Settings{Theme: page.JSON(`{"primary":"#000"}`), Changes: page.Markers{"Updated"}})
	res, err := svc.PublishPages(ctx, alice, PublishInput{IDs: []string{page.ThemeID, "p"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"website-settings-app-1", "page-p"}, res.Tags)

	online, ok := mem.PublishedSettings(appID)
	require.True(t, ok)
	assert.JSONEq(t, `{"primary":"#000"}`, string(online.Theme))

	mem.Fail("PublishTheme", errors.New("tx aborted"))
	_, err = svc.PublishPages(ctx, alice, PublishInput{IDs: []string{page.ThemeID}})
	assert.True(t, apperr.IsCode(err, apperr.CodeErrorPublishTheme))
}

func TestPublishStopsAtFirstFailure(t *testing.T) {
	svc, mem := newService(t, Config{},
		primary("a", "/a", ""),
		primary("c", "/c", ""),
	)

	_, err := svc.PublishPages(context.Background(), alice, PublishInput{IDs: []string{"a", "missing", "c"}})
	assert.True(t, apperr.IsCode(err, apperr.CodePageNotFound))

	_, ok := mem.OnlinePage(appID, "a")
	assert.True(t, ok, "earlier ids stay published")
	assert.True(t, mustGet(t, mem, "a").Online)
	_, ok = mem.OnlinePage(appID, "c")
	assert.False(t, ok, "later ids are not attempted")
}

func TestPublishRevisionFailure(t *testing.T) {
	svc, mem := newService(t, Config{}, primary("a", "/a", ""))
	mem.SeedOnline(appID, primary("a", "/a", ""))
	mem.Fail("InsertRevision", errors.New("disk full"))

	_, err := svc.PublishPages(context.Background(), alice, PublishInput{IDs: []string{"a"}})
	assert.True(t, apperr.IsCode(err, apperr.CodeErrorCreateRevision))
}

func TestUnpublish(t *testing.T) {
	ctx := context.Background()
	p := primary("p", "/a", "")
	p.Online = true
	v := variant("p-es", "/es/a", "p", "es")
	v.Online = true
	svc, mem := newService(t, Config{}, p, v)
	mem.SeedOnline(appID, primary("p", "/a", ""), variant("p-es", "/es/a", "p", "es"))

	res, err := svc.UnpublishPages(ctx, alice, PublishInput{IDs: []string{"p"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"page-p"}, res.Tags)

	_, ok := mem.OnlinePage(appID, "p")
	assert.False(t, ok)
	_, ok = mem.OnlinePage(appID, "p-es")
	assert.False(t, ok)
	assert.False(t, mustGet(t, mem, "p").Online)
	assert.False(t, mustGet(t, mem, "p-es").Online)

	_, err = svc.UnpublishPages(ctx, alice, PublishInput{IDs: []string{"ghost"}})
	assert.True(t, apperr.IsCode(err, apperr.CodePageNotFound))
}
