package models

import "time"

// Status represents the watch state of a movie on a user's list.
type Status string

const (
	StatusToWatch Status = "to_watch"
	StatusWatched Status = "watched"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	return s == StatusToWatch || s == StatusWatched
}

// SourceTMDB marks entries whose metadata came from the TMDB catalog.
const SourceTMDB = "tmdb"

const (
	// RatingMin and RatingMax bound personal ratings.
	RatingMin = 0
	RatingMax = 10
)

// Movie represents one watchlist entry owned by a user.
type Movie struct {
	ID         int64     `json:"id"`
	Owner      string    `json:"-"`
	Title      string    `json:"title"`
	Year       string    `json:"year,omitempty"`
	ExternalID string    `json:"externalId,omitempty"`
	Source     string    `json:"source,omitempty"`
	Status     Status    `json:"status"`
	Rating     *int      `json:"rating"`
	PosterPath string    `json:"-"`
	PosterURL  string    `json:"posterUrl,omitempty"`
	Overview   string    `json:"overview,omitempty"`
	Genres     []Genre   `json:"genres,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Watched reports whether the entry has been marked watched.
func (m Movie) Watched() bool {
	return m.Status == StatusWatched
}

// Genre is a catalog genre attached to watchlist entries.
type Genre struct {
	ID     int64  `json:"id"`
	TMDBID int    `json:"tmdbId,omitempty"`
	Name   string `json:"name"`
}

// MovieCreate captures data required to insert a manual watchlist entry.
type MovieCreate struct {
	Title      string   `json:"title"`
	Year       string   `json:"year,omitempty"`
	ExternalID string   `json:"externalId,omitempty"`
	Source     string   `json:"source,omitempty"`
	Status     Status   `json:"status,omitempty"`
	Rating     *int     `json:"rating,omitempty"`
	PosterPath string   `json:"-"`
	Overview   string   `json:"overview,omitempty"`
	GenreNames []string `json:"genreNames,omitempty"`
}

// MoviePatch carries a partial update; nil fields are left untouched.
type MoviePatch struct {
	Title      *string `json:"title,omitempty"`
	Year       *string `json:"year,omitempty"`
	ExternalID *string `json:"externalId,omitempty"`
	Source     *string `json:"source,omitempty"`
	Status     *Status `json:"status,omitempty"`
	// Rating distinguishes "not provided" (RatingSet false) from an
	// explicit null (RatingSet true, Rating nil).
	Rating    *int `json:"-"`
	RatingSet bool `json:"-"`
}

// Order values accepted by ListFilter.
const (
	OrderNewest     = "-created_at"
	OrderTitle      = "title"
	OrderRatingAsc  = "rating"
	OrderRatingDesc = "-rating"
)

// AllowedOrders enumerates the valid list orderings.
var AllowedOrders = map[string]bool{
	OrderNewest:     true,
	OrderTitle:      true,
	OrderRatingAsc:  true,
	OrderRatingDesc: true,
}

// ListFilter narrows and pages a watchlist listing.
type ListFilter struct {
	Query    string
	Status   *Status
	Order    string
	Page     int
	PageSize int
}

// MoviePage is one page of watchlist entries plus paging metadata.
type MoviePage struct {
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	Total    int     `json:"total"`
	Items    []Movie `json:"items"`
}
