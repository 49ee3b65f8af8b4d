package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"reelist/models"
	"reelist/services/watchlist"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		return 0, models.Validationf("movie id must be a positive integer")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.Validationf("%s must be an integer", name)
	}
	return v, nil
}

func (a *API) listMovies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.ListFilter{
		Query: q.Get("q"),
		Order: q.Get("order"),
	}
	if raw := q.Get("status"); raw != "" {
		status := models.Status(raw)
		filter.Status = &status
	}

	var err error
	if filter.Page, err = queryInt(r, "page", 1); err != nil {
		writeError(w, a.logger, err)
		return
	}
	if filter.PageSize, err = queryInt(r, "page_size", 10); err != nil {
		writeError(w, a.logger, err)
		return
	}

	page, err := a.watchlist.List(r.Context(), a.owner(r), filter)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) createMovie(w http.ResponseWriter, r *http.Request) {
	var params models.MovieCreate
	if err := readJSON(r, &params); err != nil {
		writeError(w, a.logger, err)
		return
	}

	movie, err := a.watchlist.Add(r.Context(), a.owner(r), params)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, movie)
}

func (a *API) getMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	movie, err := a.watchlist.Get(r.Context(), a.owner(r), id)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// moviePatchRequest distinguishes an absent rating field from an explicit
// null, which clears the rating.
type moviePatchRequest struct {
	Title      *string         `json:"title"`
	Year       *string         `json:"year"`
	ExternalID *string         `json:"externalId"`
	Source     *string         `json:"source"`
	Status     *models.Status  `json:"status"`
	Rating     json.RawMessage `json:"rating"`
}

func (a *API) updateMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var req moviePatchRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}

	patch := models.MoviePatch{
		Title:      req.Title,
		Year:       req.Year,
		ExternalID: req.ExternalID,
		Source:     req.Source,
		Status:     req.Status,
	}
	if len(req.Rating) > 0 {
		patch.RatingSet = true
		if string(req.Rating) != "null" {
			var rating int
			if err := json.Unmarshal(req.Rating, &rating); err != nil {
				writeError(w, a.logger, models.Validationf("rating must be an integer or null"))
				return
			}
			patch.Rating = &rating
		}
	}

	movie, err := a.watchlist.Update(r.Context(), a.owner(r), id, patch)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

func (a *API) deleteMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	if err := a.watchlist.Remove(r.Context(), a.owner(r), id); err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (a *API) toggleWatched(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	movie, err := a.watchlist.ToggleWatched(r.Context(), a.owner(r), id)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

func (a *API) rateMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var req struct {
		Rating *int `json:"rating"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}
	if req.Rating == nil {
		writeError(w, a.logger, models.Validationf("rating is required"))
		return
	}

	movie, err := a.watchlist.Rate(r.Context(), a.owner(r), id, *req.Rating)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

type addFromTMDBRequest struct {
	TMDBID int           `json:"tmdbId"`
	Status models.Status `json:"status"`
	Rating *int          `json:"rating"`
}

func (a *API) addFromTMDB(w http.ResponseWriter, r *http.Request) {
	var req addFromTMDBRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}
	if req.TMDBID <= 0 {
		writeError(w, a.logger, models.Validationf("tmdbId is required"))
		return
	}

	movie, err := a.watchlist.AddFromCatalog(r.Context(), a.owner(r), req.TMDBID, watchlist.AddOptions{
		Status: req.Status,
		Rating: req.Rating,
	})
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, movie)
}

type bulkAddRequest struct {
	TMDBIDs []int         `json:"tmdbIds"`
	Status  models.Status `json:"status"`
	Rating  *int          `json:"rating"`
}

func (a *API) bulkAddFromTMDB(w http.ResponseWriter, r *http.Request) {
	var req bulkAddRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}

	result, err := a.watchlist.BulkAddFromCatalog(r.Context(), a.owner(r), req.TMDBIDs, watchlist.AddOptions{
		Status: req.Status,
		Rating: req.Rating,
	})
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
