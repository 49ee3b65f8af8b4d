package handlers

import (
	"net/http"

	"reelist/models"
	"reelist/services/watchlist"
)

func (a *API) exportList(w http.ResponseWriter, r *http.Request) {
	payload, err := a.watchlist.Export(r.Context(), a.owner(r))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) importList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Movies []watchlist.ImportMovie `json:"movies"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}
	if req.Movies == nil {
		writeError(w, a.logger, models.Validationf("body must contain \"movies\" as an array"))
		return
	}

	result, err := a.watchlist.Import(r.Context(), a.owner(r), req.Movies)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) fixMissingPosters(w http.ResponseWriter, r *http.Request) {
	result, err := a.watchlist.FixMissingPosters(r.Context(), a.owner(r))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}

	sess, err := a.sessions.Login(r.Context(), req.Username)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Logout(r.Context(), sessionToken(r)); err != nil {
		writeError(w, a.logger, err)
		return
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
