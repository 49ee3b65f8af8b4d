// Package recommend derives movie suggestions from the genres of a user's
// highly rated watched entries. The heuristic sits behind its own service so
// it can be swapped without touching the watchlist rules.
package recommend

import (
	"context"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"reelist/internal/database"
	"reelist/models"
)

const (
	// DefaultMinRating is the rating floor for entries feeding the heuristic.
	DefaultMinRating = 8
	// DefaultTopGenres is how many genres seed the discovery query.
	DefaultTopGenres = 3
	// maxResults caps one recommendation response.
	maxResults = 20
)

// catalogClient is the slice of the catalog API this service needs.
type catalogClient interface {
	DiscoverByGenres(ctx context.Context, genreIDs []int, page int) ([]models.CatalogResult, error)
}

// Service computes recommendations for a user.
type Service struct {
	db      *database.DB
	catalog catalogClient
	logger  *logrus.Logger
}

// NewService creates a recommendation service.
func NewService(db *database.DB, catalogClient catalogClient, logger *logrus.Logger) *Service {
	return &Service{
		db:      db,
		catalog: catalogClient,
		logger:  logger,
	}
}

// Suggestions is a recommendation response.
type Suggestions struct {
	TopGenreIDs []int                  `json:"topGenreIds"`
	Results     []models.CatalogResult `json:"results"`
	Reason      string                 `json:"reason,omitempty"`
}

// Recommend scores the catalog genres of the owner's watched entries rated
// at or above minRating, seeds a discovery query with the top-k genres, and
// filters out titles already on the list. Deterministic for a fixed
// watchlist and catalog response; an empty watchlist yields an empty result
// rather than an error.
func (s *Service) Recommend(ctx context.Context, owner string, minRating, k int) (*Suggestions, error) {
	if minRating < models.RatingMin || minRating > models.RatingMax {
		return nil, models.Validationf("min_rating must be between %d and %d", models.RatingMin, models.RatingMax)
	}
	if k < 1 || k > 10 {
		return nil, models.Validationf("k must be between 1 and 10")
	}

	watched, err := s.db.Movies.ListWatchedRated(ctx, owner, minRating)
	if err != nil {
		return nil, models.Internal(err)
	}

	scores := make(map[int]int)
	for _, m := range watched {
		rating := minRating
		if m.Rating != nil {
			rating = *m.Rating
		}
		for _, g := range m.Genres {
			if g.TMDBID == 0 {
				continue
			}
			scores[g.TMDBID] += rating
		}
	}

	if len(scores) == 0 {
		return &Suggestions{
			TopGenreIDs: []int{},
			Results:     []models.CatalogResult{},
			Reason:      "No watched movies with high ratings yet.",
		}, nil
	}

	// Order by score descending, then genre id ascending so equal scores
	// resolve the same way every time.
	genreIDs := make([]int, 0, len(scores))
	for id := range scores {
		genreIDs = append(genreIDs, id)
	}
	sort.Slice(genreIDs, func(i, j int) bool {
		if scores[genreIDs[i]] != scores[genreIDs[j]] {
			return scores[genreIDs[i]] > scores[genreIDs[j]]
		}
		return genreIDs[i] < genreIDs[j]
	})
	if len(genreIDs) > k {
		genreIDs = genreIDs[:k]
	}

	discovered, err := s.catalog.DiscoverByGenres(ctx, genreIDs, 1)
	if err != nil {
		// Upstream failures degrade only this feature; the caller decides
		// how to present the catalog being down.
		return nil, err
	}

	owned, err := s.db.Movies.ExternalIDs(ctx, owner, models.SourceTMDB)
	if err != nil {
		return nil, models.Internal(err)
	}

	results := make([]models.CatalogResult, 0, len(discovered))
	for _, r := range discovered {
		if owned[strconv.Itoa(r.TMDBID)] {
			continue
		}
		results = append(results, r)
		if len(results) == maxResults {
			break
		}
	}

	return &Suggestions{TopGenreIDs: genreIDs, Results: results}, nil
}
