// Package catalog wraps The Movie Database (TMDB) HTTP API and translates
// its response shape into the application's movie representation. Upstream
// failures surface as catalog_unavailable errors so callers can degrade
// search and recommendations while the watchlist CRUD keeps working.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"reelist/config"
	"reelist/models"
)

const (
	baseURL      = "https://api.themoviedb.org/3"
	imageBaseURL = "https://image.tmdb.org/t/p"

	// DefaultPosterSize is the TMDB image size used for poster URLs.
	DefaultPosterSize = "w500"

	searchCacheTTL = 5 * time.Minute
	genreCacheTTL  = 24 * time.Hour
)

// Client handles communication with the TMDB API.
type Client struct {
	token      string // bearer token, preferred
	apiKey     string // legacy api_key query parameter
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *gocache.Cache
	logger     *logrus.Logger
}

// NewClient creates a new TMDB client. An unconfigured client is still
// usable; every call returns a configuration error before touching the
// network.
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return &Client{
		token:      cfg.TMDBToken,
		apiKey:     cfg.TMDBAPIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		// TMDB allows ~50 req/s; stay far below with burst headroom.
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 5),
		cache:   gocache.New(searchCacheTTL, 10*time.Minute),
		logger:  logger,
	}
}

// Configured reports whether a catalog credential is present.
func (c *Client) Configured() bool {
	return c.token != "" || c.apiKey != ""
}

// SetBaseURL overrides the upstream endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// httpError carries the upstream status code for mapping by callers.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("catalog request failed with status %d: %s", e.status, e.body)
}

// get performs a GET against the TMDB API and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if !c.Configured() {
		return models.Configurationf("TMDB credential is not configured")
	}

	if params == nil {
		params = url.Values{}
	}
	if c.token == "" {
		params.Set("api_key", c.apiKey)
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return models.CatalogUnavailable(err)
	}

	c.logger.WithFields(logrus.Fields{
		"path": path,
	}).Debug("Making TMDB API request")

	// At most one retry, and only for transient failures. A 4xx is a
	// terminal answer from the catalog.
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				herr := &httpError{status: resp.StatusCode, body: string(body)}
				if resp.StatusCode >= 500 {
					return herr
				}
				return retry.Unrecoverable(herr)
			}

			if result != nil {
				if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
					return retry.Unrecoverable(fmt.Errorf("decode catalog response: %w", err))
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	return err
}

// upstream wire shapes

type movieResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Popularity   float64 `json:"popularity"`
	GenreIDs     []int   `json:"genre_ids"`
}

type pagedResponse struct {
	Page    int           `json:"page"`
	Results []movieResult `json:"results"`
}

type movieDetail struct {
	movieResult
	Genres []models.CatalogGenre `json:"genres"`
}

func yearOf(releaseDate string) string {
	if len(releaseDate) >= 4 {
		return releaseDate[:4]
	}
	return ""
}

func (m movieResult) toCatalogResult() models.CatalogResult {
	title := m.Title
	if title == "" {
		title = m.Name
	}
	poster := m.PosterPath
	if poster == "" {
		poster = m.BackdropPath
	}
	return models.CatalogResult{
		TMDBID:      m.ID,
		Title:       title,
		Year:        yearOf(m.ReleaseDate),
		PosterPath:  poster,
		PosterURL:   PosterURL(poster, DefaultPosterSize),
		Overview:    m.Overview,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
		Popularity:  m.Popularity,
		GenreIDs:    m.GenreIDs,
	}
}

func mapResults(resp pagedResponse) []models.CatalogResult {
	results := make([]models.CatalogResult, 0, len(resp.Results))
	for _, m := range resp.Results {
		results = append(results, m.toCatalogResult())
	}
	return results
}

// PosterURL builds a full image URL from a TMDB poster path. An empty path
// yields an empty URL, not an error.
func PosterURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = DefaultPosterSize
	}
	return imageBaseURL + "/" + size + path
}

// wrap translates transport errors into domain error kinds.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *models.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return models.CatalogUnavailable(err)
}
