package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"reelist/models"
)

// Search looks up movies by title. An empty result set is a valid success.
func (c *Client) Search(ctx context.Context, query string, page int) ([]models.CatalogResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.Validationf("search query must not be empty")
	}
	if page < 1 {
		page = 1
	}

	cacheKey := fmt.Sprintf("search:%s:%d", strings.ToLower(query), page)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]models.CatalogResult), nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")

	var resp pagedResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, wrap(err)
	}

	results := mapResults(resp)
	c.cache.Set(cacheKey, results, searchCacheTTL)
	return results, nil
}

// Lookup fetches full details for one catalog id. A 404 from the catalog is
// a not-found, distinct from the catalog being unreachable.
func (c *Client) Lookup(ctx context.Context, tmdbID int) (*models.CatalogResult, error) {
	if tmdbID <= 0 {
		return nil, models.Validationf("tmdb id must be a positive integer")
	}

	cacheKey := fmt.Sprintf("movie:%d", tmdbID)
	if cached, ok := c.cache.Get(cacheKey); ok {
		result := cached.(models.CatalogResult)
		return &result, nil
	}

	var detail movieDetail
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", tmdbID), nil, &detail); err != nil {
		var herr *httpError
		if errors.As(err, &herr) && herr.status == 404 {
			return nil, models.NotFoundf("movie %d not found in catalog", tmdbID)
		}
		return nil, wrap(err)
	}

	result := detail.toCatalogResult()
	for _, g := range detail.Genres {
		result.Genres = append(result.Genres, models.Genre{TMDBID: g.ID, Name: g.Name})
		result.GenreIDs = append(result.GenreIDs, g.ID)
	}

	c.cache.Set(cacheKey, result, searchCacheTTL)
	return &result, nil
}

// Genres fetches the catalog's movie genre list, cached for a day.
func (c *Client) Genres(ctx context.Context) ([]models.CatalogGenre, error) {
	const cacheKey = "genres"
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]models.CatalogGenre), nil
	}

	var resp struct {
		Genres []models.CatalogGenre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", nil, &resp); err != nil {
		return nil, wrap(err)
	}

	c.cache.Set(cacheKey, resp.Genres, genreCacheTTL)
	return resp.Genres, nil
}

// DiscoverByGenres finds well-voted titles for a set of catalog genre ids.
// An empty genre list yields an empty slice without an upstream call.
func (c *Client) DiscoverByGenres(ctx context.Context, genreIDs []int, page int) ([]models.CatalogResult, error) {
	if len(genreIDs) == 0 {
		return []models.CatalogResult{}, nil
	}
	if page < 1 {
		page = 1
	}

	ids := make([]string, 0, len(genreIDs))
	for _, id := range genreIDs {
		ids = append(ids, strconv.Itoa(id))
	}

	params := url.Values{}
	params.Set("with_genres", strings.Join(ids, ","))
	params.Set("include_adult", "false")
	params.Set("sort_by", "vote_average.desc")
	// Without a vote floor the top of vote_average.desc is obscure titles
	// with a handful of votes.
	params.Set("vote_count.gte", "200")
	params.Set("page", strconv.Itoa(page))

	cacheKey := "discover:" + strings.Join(ids, ",") + ":" + strconv.Itoa(page)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]models.CatalogResult), nil
	}

	var resp pagedResponse
	if err := c.get(ctx, "/discover/movie", params, &resp); err != nil {
		return nil, wrap(err)
	}

	results := mapResults(resp)
	c.cache.Set(cacheKey, results, searchCacheTTL)
	return results, nil
}

// Rail names accepted by DefaultRail.
const (
	RailTrending   = "trending"
	RailPopular    = "popular"
	RailTopRated   = "top_rated"
	RailNowPlaying = "now_playing"
)

var railPaths = map[string]string{
	RailTrending:   "/trending/movie/day",
	RailPopular:    "/movie/popular",
	RailTopRated:   "/movie/top_rated",
	RailNowPlaying: "/movie/now_playing",
}

// DefaultRail returns a browse rail for the search page when no query is
// given. Unknown names fall back to trending.
func (c *Client) DefaultRail(ctx context.Context, name string, page int) ([]models.CatalogResult, error) {
	path, ok := railPaths[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		path = railPaths[RailTrending]
	}
	if page < 1 {
		page = 1
	}

	cacheKey := "rail:" + path + ":" + strconv.Itoa(page)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]models.CatalogResult), nil
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	var resp pagedResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, wrap(err)
	}

	results := mapResults(resp)
	c.cache.Set(cacheKey, results, searchCacheTTL)
	return results, nil
}
