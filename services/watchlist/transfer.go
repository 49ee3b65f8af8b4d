package watchlist

import (
	"context"
	"database/sql"
	"errors"

	"reelist/models"
)

// exportVersion tags the snapshot format.
const exportVersion = 1

// ExportMeta describes a snapshot.
type ExportMeta struct {
	Version int `json:"version"`
}

// ExportMovie is one entry in a snapshot, genres flattened to names so a
// snapshot can be imported into a database with different genre ids.
type ExportMovie struct {
	models.Movie
	GenreNames []string `json:"genreNames"`
}

// ExportPayload is the full snapshot of an owner's list.
type ExportPayload struct {
	Meta   ExportMeta     `json:"meta"`
	Genres []models.Genre `json:"genres"`
	Movies []ExportMovie  `json:"movies"`
}

// Export snapshots the owner's entries and all known genres.
func (s *Service) Export(ctx context.Context, owner string) (*ExportPayload, error) {
	genres, err := s.db.Movies.AllGenres(ctx)
	if err != nil {
		return nil, models.Internal(err)
	}
	movies, err := s.db.Movies.ListAll(ctx, owner)
	if err != nil {
		return nil, models.Internal(err)
	}

	out := make([]ExportMovie, 0, len(movies))
	for _, m := range movies {
		decorate(&m)
		names := make([]string, 0, len(m.Genres))
		for _, g := range m.Genres {
			names = append(names, g.Name)
		}
		out = append(out, ExportMovie{Movie: m, GenreNames: names})
	}

	return &ExportPayload{
		Meta:   ExportMeta{Version: exportVersion},
		Genres: genres,
		Movies: out,
	}, nil
}

// ImportMovie is one row of an import request.
type ImportMovie struct {
	Title      string        `json:"title"`
	Year       string        `json:"year,omitempty"`
	Status     models.Status `json:"status,omitempty"`
	Rating     *int          `json:"rating,omitempty"`
	Source     string        `json:"source,omitempty"`
	ExternalID string        `json:"externalId,omitempty"`
	Overview   string        `json:"overview,omitempty"`
	GenreNames []string      `json:"genreNames,omitempty"`
}

// ImportError reports one rejected row by its index in the request.
type ImportError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ImportSummary aggregates an import outcome.
type ImportSummary struct {
	Received int `json:"received"`
	Created  int `json:"created"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// ImportResult is the full response of an import.
type ImportResult struct {
	Summary ImportSummary `json:"summary"`
	Errors  []ImportError `json:"errors"`
}

// Import loads a snapshot into the owner's list. Rows are validated
// individually; catalog duplicates are skipped and invalid rows reported
// without aborting the rest.
func (s *Service) Import(ctx context.Context, owner string, movies []ImportMovie) (*ImportResult, error) {
	result := &ImportResult{
		Summary: ImportSummary{Received: len(movies)},
		Errors:  []ImportError{},
	}

	for idx, row := range movies {
		if row.Source != "" && row.ExternalID != "" {
			_, err := s.db.Movies.GetByExternalID(ctx, nil, owner, row.Source, row.ExternalID)
			if err == nil {
				result.Summary.Skipped++
				continue
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, models.Internal(err)
			}
		}

		_, err := s.Add(ctx, owner, models.MovieCreate{
			Title:      row.Title,
			Year:       row.Year,
			Status:     row.Status,
			Rating:     row.Rating,
			Source:     row.Source,
			ExternalID: row.ExternalID,
			Overview:   row.Overview,
			GenreNames: row.GenreNames,
		})
		if err != nil {
			var domainErr *models.Error
			if errors.As(err, &domainErr) && domainErr.Kind == models.KindDuplicate {
				result.Summary.Skipped++
				continue
			}
			result.Errors = append(result.Errors, ImportError{Index: idx, Message: models.MessageOf(err)})
			continue
		}
		result.Summary.Created++
	}

	result.Summary.Errors = len(result.Errors)
	return result, nil
}

// PosterFixResult reports a poster maintenance pass.
type PosterFixResult struct {
	Checked int `json:"checked"`
	Fixed   int `json:"fixed"`
	Failed  int `json:"failed"`
}

// FixMissingPosters refreshes poster and overview metadata from the catalog
// for tmdb-backed entries missing them.
func (s *Service) FixMissingPosters(ctx context.Context, owner string) (*PosterFixResult, error) {
	missing, err := s.db.Movies.MissingPosters(ctx, owner)
	if err != nil {
		return nil, models.Internal(err)
	}

	result := &PosterFixResult{Checked: len(missing)}
	for _, m := range missing {
		tmdbID, convErr := parseTMDBID(m.ExternalID)
		if convErr != nil {
			result.Failed++
			continue
		}

		info, err := s.catalog.Lookup(ctx, tmdbID)
		if err != nil {
			s.logger.WithError(err).WithField("movie_id", m.ID).Warn("Poster refresh lookup failed")
			result.Failed++
			continue
		}

		m.PosterPath = info.PosterPath
		if m.Overview == "" {
			m.Overview = info.Overview
		}
		if err := s.db.Movies.Update(ctx, nil, &m); err != nil {
			result.Failed++
			continue
		}
		result.Fixed++
	}
	return result, nil
}
