package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"reelist/models"
	"reelist/services/recommend"
	"reelist/services/session"
	"reelist/services/watchlist"
)

// catalogSearcher is the slice of the catalog client the API surface needs.
type catalogSearcher interface {
	Search(ctx context.Context, query string, page int) ([]models.CatalogResult, error)
	DefaultRail(ctx context.Context, name string, page int) ([]models.CatalogResult, error)
	Configured() bool
}

// API serves the JSON surface under /api.
type API struct {
	watchlist *watchlist.Service
	recommend *recommend.Service
	sessions  *session.Service
	catalog   catalogSearcher
	apiToken  string
	logger    *logrus.Logger
}

// NewAPI creates the JSON API handler set.
func NewAPI(watchlistSvc *watchlist.Service, recommendSvc *recommend.Service, sessionSvc *session.Service, catalogClient catalogSearcher, apiToken string, logger *logrus.Logger) *API {
	return &API{
		watchlist: watchlistSvc,
		recommend: recommendSvc,
		sessions:  sessionSvc,
		catalog:   catalogClient,
		apiToken:  apiToken,
		logger:    logger,
	}
}

// Register mounts all /api routes.
func (a *API) Register(r *mux.Router) {
	sub := r.PathPrefix("/api").Subrouter()

	sub.HandleFunc("/movies", a.listMovies).Methods(http.MethodGet)
	sub.Handle("/movies", a.protected(a.createMovie)).Methods(http.MethodPost)
	sub.HandleFunc("/movies/{id:[0-9]+}", a.getMovie).Methods(http.MethodGet)
	sub.Handle("/movies/{id:[0-9]+}", a.protected(a.updateMovie)).Methods(http.MethodPatch, http.MethodPut)
	sub.Handle("/movies/{id:[0-9]+}", a.protected(a.deleteMovie)).Methods(http.MethodDelete)
	sub.Handle("/movies/{id:[0-9]+}/toggle-watched", a.protected(a.toggleWatched)).Methods(http.MethodPost)
	sub.Handle("/movies/{id:[0-9]+}/rate", a.protected(a.rateMovie)).Methods(http.MethodPost)
	sub.Handle("/movies/from-tmdb", a.protected(a.addFromTMDB)).Methods(http.MethodPost)
	sub.Handle("/movies/bulk/from-tmdb", a.protected(a.bulkAddFromTMDB)).Methods(http.MethodPost)

	sub.HandleFunc("/search/tmdb", a.searchTMDB).Methods(http.MethodGet)
	sub.HandleFunc("/recommendations", a.recommendations).Methods(http.MethodGet)

	sub.HandleFunc("/export", a.exportList).Methods(http.MethodGet)
	sub.Handle("/import", a.protected(a.importList)).Methods(http.MethodPost)
	sub.Handle("/maintenance/fix-missing-posters", a.protected(a.fixMissingPosters)).Methods(http.MethodPost)

	sub.HandleFunc("/login", a.login).Methods(http.MethodPost)
	sub.HandleFunc("/logout", a.logout).Methods(http.MethodPost)
}

// protected wraps mutating handlers with the bearer-token gate.
func (a *API) protected(h http.HandlerFunc) http.Handler {
	return RequireAPIToken(a.apiToken, a.logger)(h)
}

// owner resolves the watchlist owner for a request: the session user when a
// valid cookie is present, otherwise the shared default profile.
func (a *API) owner(r *http.Request) string {
	token := sessionToken(r)
	if token == "" {
		return models.DefaultOwner
	}
	sess, err := a.sessions.Resolve(r.Context(), token)
	if err != nil {
		return models.DefaultOwner
	}
	return sess.Username
}
