package models

// CatalogResult is a transient search or lookup hit from the external movie
// catalog. It is never persisted; a subset is copied into a Movie when the
// user adds it to their list.
type CatalogResult struct {
	TMDBID      int     `json:"tmdbId"`
	Title       string  `json:"title"`
	Year        string  `json:"year,omitempty"`
	PosterPath  string  `json:"-"`
	PosterURL   string  `json:"posterUrl,omitempty"`
	Overview    string  `json:"overview,omitempty"`
	VoteAverage float64 `json:"voteAverage,omitempty"`
	VoteCount   int     `json:"voteCount,omitempty"`
	Popularity  float64 `json:"popularity,omitempty"`
	GenreIDs    []int   `json:"genreIds,omitempty"`
	Genres      []Genre `json:"genres,omitempty"`
}

// CatalogGenre is a genre as reported by the catalog's genre list endpoint.
type CatalogGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
