package database

import (
	"context"
	"database/sql"
	"strings"

	"reelist/models"
)

// UpsertGenreByTMDB inserts the genre when missing and returns its local row.
func (r *MovieRepository) UpsertGenreByTMDB(ctx context.Context, tx Querier, tmdbID int, name string) (*models.Genre, error) {
	q := r.q(tx)

	_, err := q.ExecContext(ctx, `
		INSERT INTO genres (tmdb_id, name) VALUES (?, ?)
		ON CONFLICT(tmdb_id) DO UPDATE SET name = excluded.name`,
		tmdbID, name)
	if err != nil {
		return nil, err
	}

	var g models.Genre
	var tmdb sql.NullInt64
	err = q.QueryRowContext(ctx,
		`SELECT id, tmdb_id, name FROM genres WHERE tmdb_id = ?`, tmdbID).
		Scan(&g.ID, &tmdb, &g.Name)
	if err != nil {
		return nil, err
	}
	g.TMDBID = int(tmdb.Int64)
	return &g, nil
}

// UpsertGenreByName inserts a genre known only by name, e.g. from an import.
func (r *MovieRepository) UpsertGenreByName(ctx context.Context, tx Querier, name string) (*models.Genre, error) {
	q := r.q(tx)

	_, err := q.ExecContext(ctx,
		`INSERT INTO genres (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return nil, err
	}

	var g models.Genre
	var tmdb sql.NullInt64
	err = q.QueryRowContext(ctx,
		`SELECT id, tmdb_id, name FROM genres WHERE name = ?`, name).
		Scan(&g.ID, &tmdb, &g.Name)
	if err != nil {
		return nil, err
	}
	g.TMDBID = int(tmdb.Int64)
	return &g, nil
}

// SetMovieGenres replaces the genre associations of one entry.
func (r *MovieRepository) SetMovieGenres(ctx context.Context, tx Querier, movieID int64, genreIDs []int64) error {
	q := r.q(tx)

	if _, err := q.ExecContext(ctx,
		`DELETE FROM movie_genres WHERE movie_id = ?`, movieID); err != nil {
		return err
	}
	if len(genreIDs) == 0 {
		return nil
	}

	values := make([]string, 0, len(genreIDs))
	args := make([]any, 0, len(genreIDs)*2)
	for _, gid := range genreIDs {
		values = append(values, "(?, ?)")
		args = append(args, movieID, gid)
	}
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO movie_genres (movie_id, genre_id) VALUES `+strings.Join(values, ","), args...)
	return err
}

// GenresForMovie returns the genres attached to one entry, ordered by name.
func (r *MovieRepository) GenresForMovie(ctx context.Context, movieID int64) ([]models.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, COALESCE(g.tmdb_id, 0), g.name
		FROM movie_genres mg
		JOIN genres g ON g.id = mg.genre_id
		WHERE mg.movie_id = ?
		ORDER BY g.name ASC`, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genres := []models.Genre{}
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.TMDBID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// AllGenres returns every genre ordered by name.
func (r *MovieRepository) AllGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tmdb_id, name FROM genres ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genres := []models.Genre{}
	for rows.Next() {
		var g models.Genre
		var tmdb sql.NullInt64
		if err := rows.Scan(&g.ID, &tmdb, &g.Name); err != nil {
			return nil, err
		}
		g.TMDBID = int(tmdb.Int64)
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
