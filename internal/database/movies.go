package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"reelist/models"
	"reelist/utils/normalize"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so repository methods can
// run standalone or inside a request transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MovieRepository provides watchlist entry persistence.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a movie repository bound to the connection.
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// q returns the transaction when provided, otherwise the base connection.
func (r *MovieRepository) q(tx Querier) Querier {
	if tx != nil {
		return tx
	}
	return r.db
}

const movieColumns = `id, owner, title, year, external_id, source, status, rating, poster_path, overview, created_at, updated_at`

func scanMovie(row interface{ Scan(dest ...any) error }) (*models.Movie, error) {
	var (
		m          models.Movie
		year       sql.NullString
		externalID sql.NullString
		source     sql.NullString
		rating     sql.NullInt64
		posterPath sql.NullString
		overview   sql.NullString
	)
	err := row.Scan(&m.ID, &m.Owner, &m.Title, &year, &externalID, &source,
		&m.Status, &rating, &posterPath, &overview, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Year = year.String
	m.ExternalID = externalID.String
	m.Source = source.String
	if rating.Valid {
		v := int(rating.Int64)
		m.Rating = &v
	}
	m.PosterPath = posterPath.String
	m.Overview = overview.String
	return &m, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRating(r *int) any {
	if r == nil {
		return nil
	}
	return *r
}

// Insert stores a new entry and fills its ID and timestamps.
func (r *MovieRepository) Insert(ctx context.Context, tx Querier, m *models.Movie) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	res, err := r.q(tx).ExecContext(ctx, `
		INSERT INTO movies (owner, title, title_norm, year, external_id, source, status, rating, poster_path, overview, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Owner, m.Title, normalize.Title(m.Title), nullString(m.Year),
		nullString(m.ExternalID), nullString(m.Source), string(m.Status),
		nullRating(m.Rating), nullString(m.PosterPath), nullString(m.Overview),
		m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read insert id: %w", err)
	}
	m.ID = id
	return nil
}

// Update rewrites all mutable fields of the entry and refreshes updated_at.
// The write is a single statement, so concurrent updates to one row are
// atomic at row granularity.
func (r *MovieRepository) Update(ctx context.Context, tx Querier, m *models.Movie) error {
	m.UpdatedAt = time.Now().UTC()

	res, err := r.q(tx).ExecContext(ctx, `
		UPDATE movies
		SET title = ?, title_norm = ?, year = ?, external_id = ?, source = ?,
		    status = ?, rating = ?, poster_path = ?, overview = ?, updated_at = ?
		WHERE id = ? AND owner = ?`,
		m.Title, normalize.Title(m.Title), nullString(m.Year),
		nullString(m.ExternalID), nullString(m.Source), string(m.Status),
		nullRating(m.Rating), nullString(m.PosterPath), nullString(m.Overview),
		m.UpdatedAt, m.ID, m.Owner)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByID fetches one entry scoped to its owner.
func (r *MovieRepository) GetByID(ctx context.Context, tx Querier, owner string, id int64) (*models.Movie, error) {
	row := r.q(tx).QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = ? AND owner = ?`, id, owner)
	return scanMovie(row)
}

// GetByExternalID fetches the owner's entry for a catalog identity.
func (r *MovieRepository) GetByExternalID(ctx context.Context, tx Querier, owner, source, externalID string) (*models.Movie, error) {
	row := r.q(tx).QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE owner = ? AND source = ? AND external_id = ?`,
		owner, source, externalID)
	return scanMovie(row)
}

// Delete removes one entry. Returns sql.ErrNoRows when nothing matched.
func (r *MovieRepository) Delete(ctx context.Context, tx Querier, owner string, id int64) error {
	res, err := r.q(tx).ExecContext(ctx,
		`DELETE FROM movies WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns one page of the owner's entries matching the filter.
func (r *MovieRepository) List(ctx context.Context, owner string, f models.ListFilter) (*models.MoviePage, error) {
	where := []string{"owner = ?"}
	args := []any{owner}

	if q := normalize.Title(f.Query); q != "" {
		where = append(where, "title_norm LIKE ?")
		args = append(args, "%"+q+"%")
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM movies WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, err
	}

	var orderClause string
	switch f.Order {
	case models.OrderTitle:
		orderClause = "title_norm ASC, id ASC"
	case models.OrderRatingAsc:
		orderClause = "rating IS NULL, rating ASC, id ASC"
	case models.OrderRatingDesc:
		orderClause = "rating IS NULL, rating DESC, id ASC"
	default:
		orderClause = "created_at DESC, id DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM movies WHERE %s ORDER BY %s LIMIT ? OFFSET ?`,
		movieColumns, whereClause, orderClause)
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachGenres(ctx, items); err != nil {
		return nil, err
	}

	return &models.MoviePage{
		Page:     f.Page,
		PageSize: f.PageSize,
		Total:    total,
		Items:    items,
	}, nil
}

// ListAll returns every entry of the owner ordered by creation time.
func (r *MovieRepository) ListAll(ctx context.Context, owner string) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE owner = ? ORDER BY created_at ASC, id ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListWatchedRated returns the owner's watched entries rated at or above
// minRating, genres attached. Used by the recommendation heuristic.
func (r *MovieRepository) ListWatchedRated(ctx context.Context, owner string, minRating int) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies
		 WHERE owner = ? AND status = ? AND rating IS NOT NULL AND rating >= ?
		 ORDER BY id ASC`,
		owner, string(models.StatusWatched), minRating)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// ExternalIDs returns the set of catalog ids already on the owner's list.
func (r *MovieRepository) ExternalIDs(ctx context.Context, owner, source string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT external_id FROM movies WHERE owner = ? AND source = ? AND external_id IS NOT NULL`,
		owner, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// MissingPosters returns the owner's catalog entries without a stored poster.
func (r *MovieRepository) MissingPosters(ctx context.Context, owner string) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies
		 WHERE owner = ? AND source = ? AND external_id IS NOT NULL
		   AND (poster_path IS NULL OR poster_path = '')`,
		owner, models.SourceTMDB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// attachGenres loads genres for the given movies in one query.
func (r *MovieRepository) attachGenres(ctx context.Context, movies []models.Movie) error {
	if len(movies) == 0 {
		return nil
	}

	idx := make(map[int64]int, len(movies))
	placeholders := make([]string, 0, len(movies))
	args := make([]any, 0, len(movies))
	for i := range movies {
		idx[movies[i].ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, movies[i].ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT mg.movie_id, g.id, COALESCE(g.tmdb_id, 0), g.name
		FROM movie_genres mg
		JOIN genres g ON g.id = mg.genre_id
		WHERE mg.movie_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY g.name ASC`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			movieID int64
			g       models.Genre
		)
		if err := rows.Scan(&movieID, &g.ID, &g.TMDBID, &g.Name); err != nil {
			return err
		}
		if i, ok := idx[movieID]; ok {
			movies[i].Genres = append(movies[i].Genres, g)
		}
	}
	return rows.Err()
}
