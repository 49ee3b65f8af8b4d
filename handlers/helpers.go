package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"reelist/models"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "reelist_session"

// errorBody is the JSON error envelope shared by every API failure.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    models.Kind `json:"kind"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a service error onto the envelope once, at the surface
// boundary. Internal details are logged, never sent to the client.
func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	kind := models.KindOf(err)
	if kind == models.KindInternal {
		logger.WithError(err).Error("Request failed")
	}
	writeJSON(w, kind.HTTPStatus(), errorBody{Error: errorDetail{
		Kind:    kind,
		Message: models.MessageOf(err),
	}})
}

// readJSON enforces a JSON content type and decodes the body into dst.
func readJSON(r *http.Request, dst any) error {
	ctype := r.Header.Get("Content-Type")
	if !strings.Contains(ctype, "application/json") {
		return models.Validationf("use Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var unmarshalErr *json.UnmarshalTypeError
		if errors.As(err, &unmarshalErr) {
			return models.Validationf("invalid value for field %q", unmarshalErr.Field)
		}
		return models.Validationf("invalid or missing JSON body")
	}
	return nil
}

// sessionToken extracts the session token from the request cookie.
func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setSessionCookie(w http.ResponseWriter, sess *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// bearerToken extracts a bearer credential from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
