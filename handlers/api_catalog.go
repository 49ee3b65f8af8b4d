package handlers

import (
	"net/http"
	"strings"

	"reelist/models"
	"reelist/services/recommend"
)

type searchResponse struct {
	Results []models.CatalogResult `json:"results"`
}

// searchTMDB proxies the catalog search. An empty query serves a browse rail
// instead (trending by default).
func (a *API) searchTMDB(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	var results []models.CatalogResult
	if query != "" {
		results, err = a.catalog.Search(r.Context(), query, page)
	} else {
		results, err = a.catalog.DefaultRail(r.Context(), r.URL.Query().Get("default"), page)
	}
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (a *API) recommendations(w http.ResponseWriter, r *http.Request) {
	minRating, err := queryInt(r, "min_rating", recommend.DefaultMinRating)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	k, err := queryInt(r, "k", recommend.DefaultTopGenres)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	suggestions, err := a.recommend.Recommend(r.Context(), a.owner(r), minRating, k)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}
