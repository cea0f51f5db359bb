// internal/api/api_test.go
//
// Envelope round-trips through the full router: tenant binding, coded
// error rendering, and cache-tag fan-out.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yanizio/sitebuilder/internal/actions"
	"github.com/yanizio/sitebuilder/internal/page"
	"github.com/yanizio/sitebuilder/internal/store"
	"github.com/yanizio/sitebuilder/internal/store/storetest"
	"github.com/yanizio/sitebuilder/internal/tenant"
)

type recordingPublisher struct {
	mu    sync.Mutex
	calls map[string][]string
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, appID string, tags []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = map[string][]string{}
	}
	p.calls[appID] = append(p.calls[appID], tags...)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type hostMap map[string]string

func (m hostMap) AppID(_ context.Context, host string) (string, error) {
	if id, ok := m[host]; ok {
		return id, nil
	}
	return "", tenant.ErrNotFound
}

type fixture struct {
	mem *storetest.Store
	pub *recordingPublisher
	srv http.Handler
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	mem := storetest.New()
	mem.Seed("app-1",
		page.Page{ID: "a", Slug: "/a", Name: "A", PageType: page.TypePage},
		page.Page{ID: "b", Slug: "/a/b", Name: "B", Parent: page.Ptr("a"), PageType: page.TypePage},
	)
	log := zaptest.NewLogger(t)
	pub := &recordingPublisher{}
	d := Deps{
		Registry:  actions.NewRegistry(actions.New(mem, log, actions.Config{})),
		Publisher: pub,
		Log:       log,
	}
	if mutate != nil {
		mutate(&d)
	}
	return &fixture{mem: mem, pub: pub, srv: NewRouter(d)}
}

func (f *fixture) post(t *testing.T, host, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://"+host+"/api/actions", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

var editor = map[string]string{HeaderAppID: "app-1", HeaderUserID: "alice"}

func TestActionSuccessPublishesTags(t *testing.T) {
	f := newFixture(t, nil)

	rec, out := f.post(t, "localhost", `{"action":"UPDATE_PAGE","data":{"id":"a","slug":"/x"}}`, editor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/x", out["slug"])
	assert.ElementsMatch(t, []any{"page-a", "page-b"}, out["tags"])
	assert.ElementsMatch(t, []string{"page-a", "page-b"}, f.pub.calls["app-1"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestPublishFailureDoesNotFailAction(t *testing.T) {
	f := newFixture(t, nil)
	f.pub.err = errors.New("redis down")

	rec, _ := f.post(t, "localhost", `{"action":"DELETE_PAGE","data":{"id":"b"}}`, editor)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := f.mem.GetPage(context.Background(), "app-1", "b")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCodedErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.mem.Seed("app-1", page.Page{
		ID: "locked", Slug: "/locked", PageType: page.TypePage,
		CurrentEditor: page.Ptr("bob"), LastSaved: ptrTime(time.Now()),
	})

	cases := []struct {
		name    string
		body    string
		headers map[string]string
		status  int
		code    string
	}{
		{"unknown action", `{"action":"EXPLODE"}`, editor, 400, "UNKNOWN_ACTION"},
		{"malformed body", `{"action":`, editor, 400, "VALIDATION_ERROR"},
		{"missing action", `{"data":{}}`, editor, 400, "VALIDATION_ERROR"},
		{"missing user", `{"action":"GET_PAGES_TREE"}`, map[string]string{HeaderAppID: "app-1"}, 400, "VALIDATION_ERROR"},
		{"not found", `{"action":"LOCK_PAGE","data":{"id":"ghost"}}`, editor, 404, "PAGE_NOT_FOUND"},
		{"slug taken", `{"action":"UPDATE_PAGE","data":{"id":"b","slug":"/a"}}`, editor, 409, "SLUG_ALREADY_EXISTS"},
		{"locked", `{"action":"DELETE_PAGE","data":{"id":"locked"}}`, editor, 409, "PAGE_LOCKED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := f.post(t, "localhost", tc.body, tc.headers)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, out["code"])
			assert.NotEmpty(t, out["error"])
			if tc.code == "PAGE_LOCKED" {
				assert.Equal(t, "bob", out["editor"])
			}
		})
	}
	assert.Empty(t, f.pub.calls)
}

func TestStorageErrorHidesCause(t *testing.T) {
	f := newFixture(t, nil)
	f.mem.Fail("ListPages", errors.New("dial tcp 10.0.0.5:3306: secret detail"))

	rec, out := f.post(t, "localhost", `{"action":"GET_PAGES_TREE"}`, editor)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ERROR_GETTING_PAGES", out["code"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestHostMapping(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.HostMapping = true
		d.Tenants = hostMap{"shop.example.com": "app-1"}
	})
	user := map[string]string{HeaderUserID: "alice", HeaderAppID: "spoofed"}

	rec, out := f.post(t, "shop.example.com", `{"action":"GET_PAGES_TREE"}`, user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, out["totalPrimaryPages"])

	rec, out = f.post(t, "other.example.com", `{"action":"GET_PAGES_TREE"}`, user)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SITE_NOT_FOUND", out["code"])
}

func TestHealthz(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
	}{{nil, 200}, {errors.New("down"), 503}} {
		f := newFixture(t, func(d *Deps) {
			d.Health = func(context.Context) error { return tc.err }
		})
		rec := httptest.NewRecorder()
		f.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, tc.status, rec.Code)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
