package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/sitebuilder/internal/apperr"
	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/store"
)

func TestCreatePrimaryDerivesSlug(t *testing.T) {
	svc, mem := newService(t, Config{}, primary("products", "/products", ""))

	got, err := svc.CreatePage(context.Background(), alice, CreatePageInput{Name: "Smart Phones", Parent: "products"})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", got.ID)
	assert.Equal(t, "/products/smart-phones", got.Slug)
	assert.Equal(t, page.TypePage, got.PageType)
	assert.Equal(t, page.Markers{page.ChangeNew}, got.Changes)

	stored := mustGet(t, mem, "gen-1")
	assert.Equal(t, "alice", page.Deref(stored.CurrentEditor))
	assert.JSONEq(t, `[]`, string(stored.Blocks))
}

func TestCreateFromTemplate(t *testing.T) {
	svc, mem := newService(t, Config{})
	mem.SeedTemplate(store.Template{ID: "tpl", App: appID, Blocks: page.JSON(`[{"_type":"Hero"}]`)})

	got, err := svc.CreatePage(context.Background(), alice, CreatePageInput{ID: "landing", Name: "Landing", TemplateID: "tpl"})
	require.NoError(t, err)
	assert.Equal(t, "/landing", got.Slug)
	assert.JSONEq(t, `[{"_type":"Hero"}]`, string(mustGet(t, mem, "landing").Blocks))

	_, err = svc.CreatePage(context.Background(), alice, CreatePageInput{Name: "Other", TemplateID: "missing"})
	assert.True(t, apperr.IsCode(err, apperr.CodeTemplateNotFound))
}

func TestCreatePartialHasNoSlug(t *testing.T) {
	svc, _ := newService(t, Config{}, page.Page{ID: "g0", PageType: page.TypeGlobal})

	got, err := svc.CreatePage(context.Background(), alice, CreatePageInput{Name: "Footer", PageType: page.TypeGlobal})
	require.NoError(t, err)
	assert.Equal(t, "", got.Slug)
}

func TestCreateVariant(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, Config{}, primary("about", "/about", ""))

	got, err := svc.CreatePage(ctx, alice, CreatePageInput{Name: "Sobre", PrimaryPage: "about", Lang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "/es/about", got.Slug)
	assert.Equal(t, "about", page.Deref(got.PrimaryPage))

	_, err = svc.CreatePage(ctx, alice, CreatePageInput{Name: "Otra", PrimaryPage: "about", Lang: "es"})
	assert.True(t, apperr.IsCode(err, apperr.CodeLanguagePageExists))

	_, err = svc.CreatePage(ctx, alice, CreatePageInput{Name: "X", PrimaryPage: "ghost", Lang: "fr"})
	assert.True(t, apperr.IsCode(err, apperr.CodePageNotFound))
}

func TestCreateSlugCollision(t *testing.T) {
	svc, _ := newService(t, Config{}, primary("about", "/about", ""))

	_, err := svc.CreatePage(context.Background(), alice, CreatePageInput{Name: "About"})
	assert.True(t, apperr.IsCode(err, apperr.CodeSlugAlreadyExists))

	_, err = svc.CreatePage(context.Background(), alice, CreatePageInput{Name: "About", Parent: "ghost"})
	assert.True(t, apperr.IsCode(err, apperr.CodePageNotFoundInTree))
}

func TestLockPage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, Config{}, primary("p", "/p", ""))

	res, err := svc.LockPage(ctx, alice, PageIDInput{ID: "p"})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Editor)

	_, err = svc.LockPage(ctx, bob, PageIDInput{ID: "p"})
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "alice", ae.Editor)

	_, err = svc.LockPage(ctx, bob, PageIDInput{ID: "ghost"})
	assert.True(t, apperr.IsCode(err, apperr.CodePageNotFound))
}
