// Package watchlist enforces the business rules for a user's movie list on
// top of the persistence layer: one catalog title per user, bounded ratings,
// and ratings only on watched entries.
package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"reelist/internal/database"
	"reelist/models"
	"reelist/services/catalog"
)

// catalogClient is the slice of the catalog API this service needs.
type catalogClient interface {
	Lookup(ctx context.Context, tmdbID int) (*models.CatalogResult, error)
}

// Service coordinates validation, catalog lookups, and persistence for
// watchlist entries.
type Service struct {
	db      *database.DB
	catalog catalogClient
	logger  *logrus.Logger
}

// NewService creates a watchlist service.
func NewService(db *database.DB, catalogClient catalogClient, logger *logrus.Logger) *Service {
	return &Service{
		db:      db,
		catalog: catalogClient,
		logger:  logger,
	}
}

// decorate fills derived fields before an entry leaves the service.
func decorate(m *models.Movie) *models.Movie {
	if m.Source == models.SourceTMDB {
		m.PosterURL = catalog.PosterURL(m.PosterPath, catalog.DefaultPosterSize)
	}
	return m
}

// Add creates a manual entry that is not backed by the catalog.
func (s *Service) Add(ctx context.Context, owner string, params models.MovieCreate) (*models.Movie, error) {
	title, err := validateTitle(params.Title)
	if err != nil {
		return nil, err
	}
	year, err := validateYear(params.Year)
	if err != nil {
		return nil, err
	}

	status := params.Status
	if status == "" {
		status = models.StatusToWatch
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	if err := validateRatingStatus(params.Rating, status); err != nil {
		return nil, err
	}

	m := &models.Movie{
		Owner:      owner,
		Title:      title,
		Year:       year,
		ExternalID: strings.TrimSpace(params.ExternalID),
		Source:     strings.TrimSpace(params.Source),
		Status:     status,
		Rating:     params.Rating,
		PosterPath: params.PosterPath,
		Overview:   params.Overview,
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if m.ExternalID != "" && m.Source != "" {
			_, err := s.db.Movies.GetByExternalID(ctx, tx, owner, m.Source, m.ExternalID)
			if err == nil {
				return models.Duplicatef("movie is already on the watchlist")
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return models.Internal(err)
			}
		}
		if err := s.db.Movies.Insert(ctx, tx, m); err != nil {
			return models.Internal(err)
		}
		return s.applyGenres(ctx, tx, m, params)
	})
	if err != nil {
		return nil, err
	}
	return decorate(m), nil
}

// AddOptions carries optional initial state for a catalog add.
type AddOptions struct {
	Status models.Status
	Rating *int
}

// AddFromCatalog looks a title up in the catalog and creates the entry with
// the fetched metadata and genres. The catalog call completes before the
// transaction opens so no lock is held while waiting on the network.
func (s *Service) AddFromCatalog(ctx context.Context, owner string, tmdbID int, opts AddOptions) (*models.Movie, error) {
	status := opts.Status
	if status == "" {
		status = models.StatusToWatch
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	if err := validateRatingStatus(opts.Rating, status); err != nil {
		return nil, err
	}

	externalID := strconv.Itoa(tmdbID)
	// Cheap pre-check so an obvious duplicate skips the catalog round trip.
	if _, err := s.db.Movies.GetByExternalID(ctx, nil, owner, models.SourceTMDB, externalID); err == nil {
		return nil, models.Duplicatef("movie %d is already on the watchlist", tmdbID)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, models.Internal(err)
	}

	info, err := s.catalog.Lookup(ctx, tmdbID)
	if err != nil {
		return nil, err
	}

	title, err := validateTitle(info.Title)
	if err != nil {
		// A catalog title exceeding our bounds is the catalog's fault,
		// not bad user input.
		return nil, models.Internal(err)
	}

	m := &models.Movie{
		Owner:      owner,
		Title:      title,
		Year:       info.Year,
		ExternalID: externalID,
		Source:     models.SourceTMDB,
		Status:     status,
		Rating:     opts.Rating,
		PosterPath: info.PosterPath,
		Overview:   info.Overview,
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Re-check inside the transaction; the unique index is the
		// final arbiter for concurrent adds.
		_, err := s.db.Movies.GetByExternalID(ctx, tx, owner, models.SourceTMDB, externalID)
		if err == nil {
			return models.Duplicatef("movie %d is already on the watchlist", tmdbID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return models.Internal(err)
		}

		if err := s.db.Movies.Insert(ctx, tx, m); err != nil {
			if isUniqueViolation(err) {
				return models.Duplicatef("movie %d is already on the watchlist", tmdbID)
			}
			return models.Internal(err)
		}

		genreIDs := make([]int64, 0, len(info.Genres))
		for _, g := range info.Genres {
			row, err := s.db.Movies.UpsertGenreByTMDB(ctx, tx, g.TMDBID, g.Name)
			if err != nil {
				return models.Internal(err)
			}
			genreIDs = append(genreIDs, row.ID)
			m.Genres = append(m.Genres, *row)
		}
		if err := s.db.Movies.SetMovieGenres(ctx, tx, m.ID, genreIDs); err != nil {
			return models.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decorate(m), nil
}

// applyGenres attaches genres named in a manual create or import.
func (s *Service) applyGenres(ctx context.Context, tx *sql.Tx, m *models.Movie, params models.MovieCreate) error {
	if len(params.GenreNames) == 0 {
		return nil
	}
	genreIDs := make([]int64, 0, len(params.GenreNames))
	for _, name := range params.GenreNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		row, err := s.db.Movies.UpsertGenreByName(ctx, tx, name)
		if err != nil {
			return models.Internal(err)
		}
		genreIDs = append(genreIDs, row.ID)
		m.Genres = append(m.Genres, *row)
	}
	if err := s.db.Movies.SetMovieGenres(ctx, tx, m.ID, genreIDs); err != nil {
		return models.Internal(err)
	}
	return nil
}

// Get returns one of the owner's entries.
func (s *Service) Get(ctx context.Context, owner string, id int64) (*models.Movie, error) {
	m, err := s.db.Movies.GetByID(ctx, nil, owner, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFoundf("movie %d not found", id)
		}
		return nil, models.Internal(err)
	}
	if err := s.attachGenres(ctx, m); err != nil {
		return nil, err
	}
	return decorate(m), nil
}

func (s *Service) attachGenres(ctx context.Context, m *models.Movie) error {
	genres, err := s.db.Movies.GenresForMovie(ctx, m.ID)
	if err != nil {
		return models.Internal(err)
	}
	m.Genres = genres
	return nil
}

// List returns one page of entries matching the filter.
func (s *Service) List(ctx context.Context, owner string, filter models.ListFilter) (*models.MoviePage, error) {
	filter, err := ValidateFilter(filter)
	if err != nil {
		return nil, err
	}
	page, err := s.db.Movies.List(ctx, owner, filter)
	if err != nil {
		return nil, models.Internal(err)
	}
	for i := range page.Items {
		decorate(&page.Items[i])
	}
	return page, nil
}

// Update applies a partial update. Rating and status are validated against
// the state the entry will end up in, and a transition back to to_watch
// clears any stale rating.
func (s *Service) Update(ctx context.Context, owner string, id int64, patch models.MoviePatch) (*models.Movie, error) {
	var updated *models.Movie
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		m, err := s.db.Movies.GetByID(ctx, tx, owner, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.NotFoundf("movie %d not found", id)
			}
			return models.Internal(err)
		}

		if patch.Title != nil {
			title, err := validateTitle(*patch.Title)
			if err != nil {
				return err
			}
			m.Title = title
		}
		if patch.Year != nil {
			year, err := validateYear(*patch.Year)
			if err != nil {
				return err
			}
			m.Year = year
		}
		if patch.ExternalID != nil {
			m.ExternalID = strings.TrimSpace(*patch.ExternalID)
		}
		if patch.Source != nil {
			m.Source = strings.TrimSpace(*patch.Source)
		}
		if patch.Status != nil {
			if err := validateStatus(*patch.Status); err != nil {
				return err
			}
			if m.Status == models.StatusWatched && *patch.Status == models.StatusToWatch && !patch.RatingSet {
				m.Rating = nil
			}
			m.Status = *patch.Status
		}
		if patch.RatingSet {
			m.Rating = patch.Rating
		}
		if err := validateRatingStatus(m.Rating, m.Status); err != nil {
			return err
		}

		if err := s.db.Movies.Update(ctx, tx, m); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.NotFoundf("movie %d not found", id)
			}
			return models.Internal(err)
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.attachGenres(ctx, updated); err != nil {
		return nil, err
	}
	return decorate(updated), nil
}

// ToggleWatched flips the watch status. Moving back to to_watch clears the
// rating so the invariant holds.
func (s *Service) ToggleWatched(ctx context.Context, owner string, id int64) (*models.Movie, error) {
	var updated *models.Movie
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		m, err := s.db.Movies.GetByID(ctx, tx, owner, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.NotFoundf("movie %d not found", id)
			}
			return models.Internal(err)
		}

		if m.Status == models.StatusWatched {
			m.Status = models.StatusToWatch
			m.Rating = nil
		} else {
			m.Status = models.StatusWatched
		}

		if err := s.db.Movies.Update(ctx, tx, m); err != nil {
			return models.Internal(err)
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decorate(updated), nil
}

// Rate sets the rating of a watched entry.
func (s *Service) Rate(ctx context.Context, owner string, id int64, rating int) (*models.Movie, error) {
	if err := validateRating(&rating); err != nil {
		return nil, err
	}

	var updated *models.Movie
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		m, err := s.db.Movies.GetByID(ctx, tx, owner, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.NotFoundf("movie %d not found", id)
			}
			return models.Internal(err)
		}

		if err := validateRatingStatus(&rating, m.Status); err != nil {
			return err
		}
		m.Rating = &rating

		if err := s.db.Movies.Update(ctx, tx, m); err != nil {
			return models.Internal(err)
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decorate(updated), nil
}

// Remove deletes an entry. Removing an already-removed entry is a not-found,
// never a crash.
func (s *Service) Remove(ctx context.Context, owner string, id int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.db.Movies.Delete(ctx, tx, owner, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.NotFoundf("movie %d not found", id)
			}
			return models.Internal(err)
		}
		return nil
	})
}

// isUniqueViolation reports whether err is the sqlite unique-index error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func parseTMDBID(externalID string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(externalID))
}
