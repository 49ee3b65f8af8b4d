package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelist/handlers"
	"reelist/internal/database"
	"reelist/models"
	"reelist/services/recommend"
	"reelist/services/session"
	"reelist/services/watchlist"
	"reelist/utils"
)

// stubCatalog satisfies every catalog interface the handlers and services
// consume.
type stubCatalog struct {
	movies        []models.CatalogResult
	details       map[int]*models.CatalogResult
	configured    bool
	lastRail      string
	searchedQuery string
}

func (s *stubCatalog) Search(_ context.Context, query string, _ int) ([]models.CatalogResult, error) {
	s.searchedQuery = query
	return s.movies, nil
}

func (s *stubCatalog) DefaultRail(_ context.Context, name string, _ int) ([]models.CatalogResult, error) {
	s.lastRail = name
	return s.movies, nil
}

func (s *stubCatalog) Configured() bool { return s.configured }

func (s *stubCatalog) Lookup(_ context.Context, tmdbID int) (*models.CatalogResult, error) {
	m, ok := s.details[tmdbID]
	if !ok {
		return nil, models.NotFoundf("movie %d not found in catalog", tmdbID)
	}
	cp := *m
	return &cp, nil
}

func (s *stubCatalog) DiscoverByGenres(_ context.Context, _ []int, _ int) ([]models.CatalogResult, error) {
	return s.movies, nil
}

type fixture struct {
	router    *mux.Router
	catalog   *stubCatalog
	watchlist *watchlist.Service
}

func newFixture(t *testing.T, apiToken string) *fixture {
	t.Helper()

	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	catalog := &stubCatalog{configured: true, details: map[int]*models.CatalogResult{}}
	watchlistSvc := watchlist.NewService(db, catalog, logger)
	recommendSvc := recommend.NewService(db, catalog, logger)
	sessionSvc := session.NewService(db, time.Hour, logger)

	api := handlers.NewAPI(watchlistSvc, recommendSvc, sessionSvc, catalog, apiToken, logger)
	web, err := handlers.NewWeb(watchlistSvc, recommendSvc, sessionSvc, catalog, logger)
	require.NoError(t, err)

	router := utils.NewRouter()
	api.Register(router)
	web.Register(router)

	return &fixture{router: router, catalog: catalog, watchlist: watchlistSvc}
}

func (f *fixture) do(method, path, body string, mod ...func(*http.Request)) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mod {
		m(req)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (kind, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Kind, body.Error.Message
}

func TestErrorEnvelopeShape(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodGet, "/api/movies/9999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	kind, message := decodeErrorEnvelope(t, rec)
	assert.Equal(t, "not_found", kind)
	assert.NotEmpty(t, message)
}

func TestCreateListAndDeleteMovie(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodPost, "/api/movies", `{"title":"Heat","year":"1995"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.StatusToWatch, created.Status)
	assert.Nil(t, created.Rating)
	assert.Contains(t, rec.Body.String(), `"createdAt"`)

	rec = f.do(http.MethodGet, "/api/movies?q=heat", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.MoviePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Heat", page.Items[0].Title)

	rec = f.do(http.MethodDelete, "/api/movies/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())

	rec = f.do(http.MethodDelete, "/api/movies/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateMovieRejectsUnknownFields(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodPost, "/api/movies", `{"title":"Heat","director":"Mann"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	kind, _ := decodeErrorEnvelope(t, rec)
	assert.Equal(t, "validation", kind)
}

func TestPatchRatingNullVersusAbsent(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodPost, "/api/movies", `{"title":"Heat","status":"watched","rating":8}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// A patch that omits rating leaves it alone.
	rec = f.do(http.MethodPatch, "/api/movies/1", `{"year":"1995"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 8, *updated.Rating)

	// An explicit null clears it.
	rec = f.do(http.MethodPatch, "/api/movies/1", `{"rating":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Nil(t, updated.Rating)
}

func TestRateEndpoint(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodPost, "/api/movies", `{"title":"Heat","status":"watched"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, "/api/movies/1/rate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/movies/1/rate", `{"rating":11}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/movies/1/rate", `{"rating":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var movie models.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &movie))
	require.NotNil(t, movie.Rating)
	assert.Equal(t, 7, *movie.Rating)
}

func TestAddFromTMDBAndDuplicateConflict(t *testing.T) {
	f := newFixture(t, "")
	f.catalog.details[603] = &models.CatalogResult{TMDBID: 603, Title: "The Matrix", Year: "1999"}

	rec := f.do(http.MethodPost, "/api/movies/from-tmdb", `{"tmdbId":603}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, "/api/movies/from-tmdb", `{"tmdbId":603}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	kind, _ := decodeErrorEnvelope(t, rec)
	assert.Equal(t, "duplicate", kind)
}

func TestAPITokenGatesMutations(t *testing.T) {
	f := newFixture(t, "secret")

	// Reads stay open.
	rec := f.do(http.MethodGet, "/api/movies", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/movies", `{"title":"Heat"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/movies", `{"title":"Heat"}`, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer wrong")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/movies", `{"title":"Heat"}`, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer secret")
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestLoginScopesTheList(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodPost, "/api/login", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	sessionCookie := cookies[0]
	assert.Equal(t, handlers.SessionCookieName, sessionCookie.Name)
	assert.True(t, sessionCookie.HttpOnly)

	withSession := func(r *http.Request) { r.AddCookie(sessionCookie) }

	rec = f.do(http.MethodPost, "/api/movies", `{"title":"Heat"}`, withSession)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Without the cookie the request falls back to the shared profile.
	rec = f.do(http.MethodGet, "/api/movies", "")
	var page models.MoviePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Zero(t, page.Total)

	rec = f.do(http.MethodGet, "/api/movies", "", withSession)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

	// Logout revokes the token; the cookie no longer resolves.
	rec = f.do(http.MethodPost, "/api/logout", "", withSession)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/movies", "", withSession)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Zero(t, page.Total)
}

func TestSearchEndpointFallsBackToRail(t *testing.T) {
	f := newFixture(t, "")
	f.catalog.movies = []models.CatalogResult{{TMDBID: 603, Title: "The Matrix"}}

	rec := f.do(http.MethodGet, "/api/search/tmdb?q=matrix", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "matrix", f.catalog.searchedQuery)
	assert.Contains(t, rec.Body.String(), `"results"`)

	rec = f.do(http.MethodGet, "/api/search/tmdb?default=popular", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "popular", f.catalog.lastRail)
}

func TestRecommendationsEndpoint(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodGet, "/api/recommendations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason"`)

	rec = f.do(http.MethodGet, "/api/recommendations?min_rating=11", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportRequiresMoviesArray(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodPost, "/api/import", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/import", `{"movies":[{"title":"Heat"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"created":1`)
}

func TestExportShape(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodPost, "/api/movies", `{"title":"Heat","genreNames":["Crime"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload watchlist.ExportPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 1, payload.Meta.Version)
	require.Len(t, payload.Movies, 1)
	assert.Equal(t, []string{"Crime"}, payload.Movies[0].GenreNames)
}
