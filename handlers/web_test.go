package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelist/models"
)

func (f *fixture) postForm(path string, form url.Values, mod ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, m := range mod {
		m(req)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func loginWeb(t *testing.T, f *fixture, username string) *http.Cookie {
	t.Helper()
	rec := f.postForm("/login", url.Values{"username": {username}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestPagesRedirectToLoginWithoutSession(t *testing.T) {
	f := newFixture(t, "")

	for _, path := range []string{"/", "/search", "/recommendations"} {
		rec := f.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login?next="+url.QueryEscape(path), rec.Header().Get("Location"), path)
	}
}

func TestLoginFlowRendersIndex(t *testing.T) {
	f := newFixture(t, "")

	cookie := loginWeb(t, f, "alice")

	rec := f.do(http.MethodGet, "/", "", func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestLoginRejectsBadUsernameInline(t *testing.T) {
	f := newFixture(t, "")

	rec := f.postForm("/login", url.Values{"username": {"has space"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "has space")
	assert.Contains(t, rec.Body.String(), "username must be")
}

func TestLoginNextRedirect(t *testing.T) {
	f := newFixture(t, "")

	rec := f.postForm("/login", url.Values{"username": {"alice"}, "next": {"/search"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/search", rec.Header().Get("Location"))

	// An absolute next target is ignored to keep redirects on-site.
	rec = f.postForm("/login", url.Values{"username": {"alice"}, "next": {"https://example.com/"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestEditValidationPreservesInput(t *testing.T) {
	f := newFixture(t, "")
	cookie := loginWeb(t, f, "alice")
	withSession := func(r *http.Request) { r.AddCookie(cookie) }

	ctx := context.Background()
	movie, err := f.watchlist.Add(ctx, "alice", models.MovieCreate{Title: "Heat", Year: "1995"})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/edit/1", "", withSession)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Heat")

	rec = f.postForm("/edit/1", url.Values{
		"title":  {"Heat"},
		"year":   {"1995"},
		"status": {"watched"},
		"rating": {"15"},
	}, withSession)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="15"`)
	assert.Contains(t, rec.Body.String(), "rating must be")

	// A valid submit redirects back to the list.
	rec = f.postForm("/edit/1", url.Values{
		"title":  {"Heat"},
		"year":   {"1995"},
		"status": {"watched"},
		"rating": {"9"},
	}, withSession)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	updated, err := f.watchlist.Get(ctx, "alice", movie.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 9, *updated.Rating)
}

func TestAddFromCatalogFormRedirects(t *testing.T) {
	f := newFixture(t, "")
	f.catalog.details[603] = &models.CatalogResult{TMDBID: 603, Title: "The Matrix", Year: "1999"}
	cookie := loginWeb(t, f, "alice")
	withSession := func(r *http.Request) { r.AddCookie(cookie) }

	rec := f.postForm("/add/from-tmdb", url.Values{"tmdb_id": {"603"}}, withSession)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	// A duplicate bounces back to the search page with an inline message.
	rec = f.postForm("/add/from-tmdb", url.Values{"tmdb_id": {"603"}}, withSession)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/search?error=")
}

func TestToggleAndDeleteForms(t *testing.T) {
	f := newFixture(t, "")
	cookie := loginWeb(t, f, "alice")
	withSession := func(r *http.Request) { r.AddCookie(cookie) }

	ctx := context.Background()
	movie, err := f.watchlist.Add(ctx, "alice", models.MovieCreate{Title: "Heat", Year: "1995"})
	require.NoError(t, err)

	rec := f.postForm("/toggle/1", url.Values{}, withSession)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	toggled, err := f.watchlist.Get(ctx, "alice", movie.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Watched())

	rec = f.postForm("/delete/1", url.Values{}, withSession)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.postForm("/delete/1", url.Values{}, withSession)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchPageDisabledWithoutCredential(t *testing.T) {
	f := newFixture(t, "")
	f.catalog.configured = false
	cookie := loginWeb(t, f, "alice")

	rec := f.do(http.MethodGet, "/search", "", func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}

func TestWebLogout(t *testing.T) {
	f := newFixture(t, "")
	cookie := loginWeb(t, f, "alice")

	rec := f.postForm("/logout", url.Values{}, func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = f.do(http.MethodGet, "/", "", func(r *http.Request) { r.AddCookie(cookie) })
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}
