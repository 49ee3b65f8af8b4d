package recommend_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"

	"reelist/internal/database"
	"reelist/models"
	"reelist/services/recommend"
	"reelist/services/watchlist"
)

// stubDiscover records the genre ids it was asked for and serves a canned
// response.
type stubDiscover struct {
	results  []models.CatalogResult
	err      error
	genreIDs []int
	calls    int
}

func (s *stubDiscover) DiscoverByGenres(_ context.Context, genreIDs []int, _ int) ([]models.CatalogResult, error) {
	s.calls++
	s.genreIDs = genreIDs
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// stubLookup backs the watchlist service used to seed entries.
type stubLookup struct {
	movies map[int]*models.CatalogResult
}

func (s *stubLookup) Lookup(_ context.Context, tmdbID int) (*models.CatalogResult, error) {
	m, ok := s.movies[tmdbID]
	if !ok {
		return nil, models.NotFoundf("movie %d not found in catalog", tmdbID)
	}
	cp := *m
	return &cp, nil
}

func newFixture(t *testing.T, discover *stubDiscover, lookup *stubLookup) (*recommend.Service, *watchlist.Service) {
	t.Helper()

	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if lookup == nil {
		lookup = &stubLookup{}
	}
	return recommend.NewService(db, discover, logger), watchlist.NewService(db, lookup, logger)
}

func intPtr(v int) *int { return &v }

// seedWatched adds a watched, rated, tmdb-backed entry with genres.
func seedWatched(t *testing.T, wl *watchlist.Service, lookup *stubLookup, tmdbID, rating int, genres ...models.Genre) {
	t.Helper()
	lookup.movies[tmdbID] = &models.CatalogResult{
		TMDBID: tmdbID,
		Title:  "Movie " + strconv.Itoa(tmdbID),
		Genres: genres,
	}
	_, err := wl.AddFromCatalog(context.Background(), "alice", tmdbID, watchlist.AddOptions{
		Status: models.StatusWatched,
		Rating: intPtr(rating),
	})
	if err != nil {
		t.Fatalf("seed add for %d returned error: %v", tmdbID, err)
	}
}

func TestRecommendEmptyWatchlist(t *testing.T) {
	discover := &stubDiscover{}
	svc, _ := newFixture(t, discover, nil)

	got, err := svc.Recommend(context.Background(), "alice", recommend.DefaultMinRating, recommend.DefaultTopGenres)
	if err != nil {
		t.Fatalf("recommend returned error: %v", err)
	}
	if len(got.Results) != 0 || got.Reason == "" {
		t.Fatalf("expected empty result with a reason, got %+v", got)
	}
	if discover.calls != 0 {
		t.Fatalf("expected no catalog call for an empty watchlist")
	}
}

func TestRecommendValidatesParams(t *testing.T) {
	svc, _ := newFixture(t, &stubDiscover{}, nil)
	ctx := context.Background()

	if _, err := svc.Recommend(ctx, "alice", 11, 3); models.KindOf(err) != models.KindValidation {
		t.Fatalf("expected validation error for min_rating 11, got %v", err)
	}
	if _, err := svc.Recommend(ctx, "alice", 8, 0); models.KindOf(err) != models.KindValidation {
		t.Fatalf("expected validation error for k 0, got %v", err)
	}
}

func TestRecommendScoresGenresAndExcludesOwned(t *testing.T) {
	action := models.Genre{TMDBID: 28, Name: "Action"}
	scifi := models.Genre{TMDBID: 878, Name: "Science Fiction"}
	drama := models.Genre{TMDBID: 18, Name: "Drama"}

	discover := &stubDiscover{results: []models.CatalogResult{
		{TMDBID: 100, Title: "Fresh Pick"},
		{TMDBID: 603, Title: "Already Owned"},
		{TMDBID: 101, Title: "Another Pick"},
	}}
	lookup := &stubLookup{movies: map[int]*models.CatalogResult{}}
	svc, wl := newFixture(t, discover, lookup)

	// Action scores 9+8, sci-fi 9, drama 8. Below the floor is ignored.
	seedWatched(t, wl, lookup, 603, 9, action, scifi)
	seedWatched(t, wl, lookup, 604, 8, action, drama)
	lookup.movies[700] = &models.CatalogResult{TMDBID: 700, Title: "Low", Genres: []models.Genre{{TMDBID: 99, Name: "Horror"}}}
	if _, err := wl.AddFromCatalog(context.Background(), "alice", 700, watchlist.AddOptions{
		Status: models.StatusWatched,
		Rating: intPtr(5),
	}); err != nil {
		t.Fatalf("seed add returned error: %v", err)
	}

	got, err := svc.Recommend(context.Background(), "alice", 8, 2)
	if err != nil {
		t.Fatalf("recommend returned error: %v", err)
	}

	if !reflect.DeepEqual(got.TopGenreIDs, []int{28, 878}) {
		t.Fatalf("expected top genres [28 878], got %v", got.TopGenreIDs)
	}
	if !reflect.DeepEqual(discover.genreIDs, []int{28, 878}) {
		t.Fatalf("expected discovery seeded with [28 878], got %v", discover.genreIDs)
	}

	for _, r := range got.Results {
		if r.TMDBID == 603 {
			t.Fatalf("expected owned title to be filtered out")
		}
	}
	if len(got.Results) != 2 {
		t.Fatalf("expected 2 results after filtering, got %d", len(got.Results))
	}
}

func TestRecommendTieBreaksByGenreID(t *testing.T) {
	// Both genres score 9; the lower id wins the tie.
	high := models.Genre{TMDBID: 878, Name: "Science Fiction"}
	low := models.Genre{TMDBID: 28, Name: "Action"}

	discover := &stubDiscover{}
	lookup := &stubLookup{movies: map[int]*models.CatalogResult{}}
	svc, wl := newFixture(t, discover, lookup)
	seedWatched(t, wl, lookup, 603, 9, high, low)

	for i := 0; i < 3; i++ {
		got, err := svc.Recommend(context.Background(), "alice", 8, 1)
		if err != nil {
			t.Fatalf("recommend returned error: %v", err)
		}
		if !reflect.DeepEqual(got.TopGenreIDs, []int{28}) {
			t.Fatalf("expected deterministic top genre [28], got %v", got.TopGenreIDs)
		}
	}
}

func TestRecommendSurfacesCatalogFailure(t *testing.T) {
	discover := &stubDiscover{err: models.CatalogUnavailable(errors.New("upstream down"))}
	lookup := &stubLookup{movies: map[int]*models.CatalogResult{}}
	svc, wl := newFixture(t, discover, lookup)
	seedWatched(t, wl, lookup, 603, 9, models.Genre{TMDBID: 28, Name: "Action"})

	_, err := svc.Recommend(context.Background(), "alice", 8, 3)
	if models.KindOf(err) != models.KindCatalogUnavailable {
		t.Fatalf("expected catalog_unavailable, got %v", err)
	}
}
