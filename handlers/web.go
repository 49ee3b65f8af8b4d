package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"reelist/models"
	"reelist/services/recommend"
	"reelist/services/session"
	"reelist/services/watchlist"
)

//go:embed templates/*.html
var webTemplates embed.FS

// Web serves the session-backed HTML surface. It performs the same logical
// operations as the JSON API through the same services, rendering inline
// error messages instead of error codes.
type Web struct {
	watchlist *watchlist.Service
	recommend *recommend.Service
	sessions  *session.Service
	catalog   catalogSearcher
	templates *template.Template
	logger    *logrus.Logger
}

// NewWeb creates the HTML handler set, parsing the embedded templates.
func NewWeb(watchlistSvc *watchlist.Service, recommendSvc *recommend.Service, sessionSvc *session.Service, catalogClient catalogSearcher, logger *logrus.Logger) (*Web, error) {
	tmpl, err := template.ParseFS(webTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Web{
		watchlist: watchlistSvc,
		recommend: recommendSvc,
		sessions:  sessionSvc,
		catalog:   catalogClient,
		templates: tmpl,
		logger:    logger,
	}, nil
}

// Register mounts all HTML routes.
func (h *Web) Register(r *mux.Router) {
	r.HandleFunc("/login", h.loginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", h.loginSubmit).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.logout).Methods(http.MethodPost)

	r.Handle("/", h.withSession(h.index)).Methods(http.MethodGet)
	r.Handle("/search", h.withSession(h.search)).Methods(http.MethodGet)
	r.Handle("/add", h.withSession(h.addRedirect)).Methods(http.MethodGet)
	r.Handle("/add/from-tmdb", h.withSession(h.addFromTMDB)).Methods(http.MethodPost)
	r.Handle("/edit/{id:[0-9]+}", h.withSession(h.editPage)).Methods(http.MethodGet)
	r.Handle("/edit/{id:[0-9]+}", h.withSession(h.editSubmit)).Methods(http.MethodPost)
	r.Handle("/delete/{id:[0-9]+}", h.withSession(h.deleteSubmit)).Methods(http.MethodPost)
	r.Handle("/toggle/{id:[0-9]+}", h.withSession(h.toggleSubmit)).Methods(http.MethodPost)
	r.Handle("/recommendations", h.withSession(h.recommendations)).Methods(http.MethodGet)
	r.Handle("/recs", h.withSession(h.recommendations)).Methods(http.MethodGet)
}

// sessionHandler receives the resolved session along with the request.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *models.Session)

// withSession resolves the session cookie and redirects to the login page
// when it is missing or expired.
func (h *Web) withSession(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessions.Resolve(r.Context(), sessionToken(r))
		if err != nil {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	})
}

func (h *Web) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.WithError(err).WithField("template", name).Error("Template render failed")
	}
}

// loginPageData feeds the login template.
type loginPageData struct {
	Error    string
	Username string
	Next     string
}

func (h *Web) loginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", loginPageData{Next: r.URL.Query().Get("next")})
}

func (h *Web) loginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	next := r.FormValue("next")

	sess, err := h.sessions.Login(r.Context(), username)
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(models.KindOf(err).HTTPStatus())
		h.render(w, "login.html", loginPageData{
			Error:    models.MessageOf(err),
			Username: username,
			Next:     next,
		})
		return
	}

	setSessionCookie(w, sess)
	if next == "" || !strings.HasPrefix(next, "/") {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Web) logout(w http.ResponseWriter, r *http.Request) {
	_ = h.sessions.Logout(r.Context(), sessionToken(r))
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// indexPageData feeds the watchlist page.
type indexPageData struct {
	Username string
	Movies   []models.Movie
	Total    int
	Query    string
	Status   string
	Order    string
	Error    string
}

func (h *Web) index(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	q := r.URL.Query()

	filter := models.ListFilter{
		Query:    q.Get("q"),
		Order:    q.Get("order"),
		PageSize: 100,
	}
	if raw := q.Get("status"); raw != "" {
		status := models.Status(raw)
		filter.Status = &status
	}

	data := indexPageData{
		Username: sess.Username,
		Query:    filter.Query,
		Status:   q.Get("status"),
		Order:    filter.Order,
		Error:    q.Get("error"),
	}

	page, err := h.watchlist.List(r.Context(), sess.Username, filter)
	if err != nil {
		data.Error = models.MessageOf(err)
		h.render(w, "index.html", data)
		return
	}
	data.Movies = page.Items
	data.Total = page.Total
	h.render(w, "index.html", data)
}

// searchPageData feeds the catalog search page.
type searchPageData struct {
	Username string
	Query    string
	Results  []models.CatalogResult
	Error    string
	Disabled bool
}

func (h *Web) search(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	data := searchPageData{
		Username: sess.Username,
		Query:    query,
		Error:    r.URL.Query().Get("error"),
	}

	if !h.catalog.Configured() {
		// A missing credential disables search but leaves the list usable.
		data.Disabled = true
		h.render(w, "search.html", data)
		return
	}

	var (
		results []models.CatalogResult
		err     error
	)
	if query != "" {
		results, err = h.catalog.Search(r.Context(), query, 1)
	} else {
		results, err = h.catalog.DefaultRail(r.Context(), "", 1)
	}
	if err != nil {
		data.Error = models.MessageOf(err)
		h.render(w, "search.html", data)
		return
	}

	data.Results = results
	h.render(w, "search.html", data)
}

func (h *Web) addRedirect(w http.ResponseWriter, r *http.Request, _ *models.Session) {
	http.Redirect(w, r, "/search", http.StatusSeeOther)
}

func (h *Web) addFromTMDB(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	tmdbID, err := strconv.Atoi(r.FormValue("tmdb_id"))
	if err != nil || tmdbID <= 0 {
		http.Redirect(w, r, "/search?error="+url.QueryEscape("invalid catalog id"), http.StatusSeeOther)
		return
	}

	_, err = h.watchlist.AddFromCatalog(r.Context(), sess.Username, tmdbID, watchlist.AddOptions{})
	if err != nil {
		http.Redirect(w, r, "/search?error="+url.QueryEscape(models.MessageOf(err)), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// editPageData feeds the edit form; the form fields mirror the submitted
// values so a validation failure does not lose input.
type editPageData struct {
	Username string
	ID       int64
	Title    string
	Year     string
	Status   string
	Rating   string
	Error    string
}

func (h *Web) editPage(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	movie, err := h.watchlist.Get(r.Context(), sess.Username, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	data := editPageData{
		Username: sess.Username,
		ID:       movie.ID,
		Title:    movie.Title,
		Year:     movie.Year,
		Status:   string(movie.Status),
	}
	if movie.Rating != nil {
		data.Rating = strconv.Itoa(*movie.Rating)
	}
	h.render(w, "edit.html", data)
}

func (h *Web) editSubmit(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	title := r.FormValue("title")
	year := r.FormValue("year")
	statusRaw := r.FormValue("status")
	ratingRaw := strings.TrimSpace(r.FormValue("rating"))

	status := models.Status(statusRaw)
	patch := models.MoviePatch{
		Title:     &title,
		Year:      &year,
		Status:    &status,
		RatingSet: true,
	}
	if ratingRaw != "" {
		rating, convErr := strconv.Atoi(ratingRaw)
		if convErr != nil {
			h.renderEditError(w, sess, id, title, year, statusRaw, ratingRaw, "rating must be an integer")
			return
		}
		patch.Rating = &rating
	}

	if _, err := h.watchlist.Update(r.Context(), sess.Username, id, patch); err != nil {
		if models.KindOf(err) == models.KindNotFound {
			http.NotFound(w, r)
			return
		}
		h.renderEditError(w, sess, id, title, year, statusRaw, ratingRaw, models.MessageOf(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Web) renderEditError(w http.ResponseWriter, sess *models.Session, id int64, title, year, status, rating, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	h.render(w, "edit.html", editPageData{
		Username: sess.Username,
		ID:       id,
		Title:    title,
		Year:     year,
		Status:   status,
		Rating:   rating,
		Error:    msg,
	})
}

func (h *Web) deleteSubmit(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.watchlist.Remove(r.Context(), sess.Username, id); err != nil {
		if models.KindOf(err) == models.KindNotFound {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/?error="+url.QueryEscape(models.MessageOf(err)), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Web) toggleSubmit(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if _, err := h.watchlist.ToggleWatched(r.Context(), sess.Username, id); err != nil {
		if models.KindOf(err) == models.KindNotFound {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/?error="+url.QueryEscape(models.MessageOf(err)), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// recsPageData feeds the recommendations page.
type recsPageData struct {
	Username string
	Results  []models.CatalogResult
	Reason   string
	Error    string
}

func (h *Web) recommendations(w http.ResponseWriter, r *http.Request, sess *models.Session) {
	data := recsPageData{Username: sess.Username}

	suggestions, err := h.recommend.Recommend(r.Context(), sess.Username, recommend.DefaultMinRating, recommend.DefaultTopGenres)
	if err != nil {
		data.Error = models.MessageOf(err)
		h.render(w, "recommendations.html", data)
		return
	}

	data.Results = suggestions.Results
	data.Reason = suggestions.Reason
	h.render(w, "recommendations.html", data)
}
