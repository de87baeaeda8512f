package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/validate"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.FromContext(r.Context()).Error("failed to encode JSON response", logging.KeyError, err)
	}
}

// respondError maps err to a status code. Internal failures are logged in
// full and reported with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	resp := output.ErrorResponse{Status: "error", Error: err.Error(), Suggestion: apperrors.GetSuggestion(err)}

	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("api request failed",
			"method", r.Method, "path", r.URL.Path, logging.KeyStatus, status, logging.KeyError, err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
			resp.Suggestion = ""
		}
	} else {
		log.Debug("api request rejected",
			"method", r.Method, "path", r.URL.Path, logging.KeyStatus, status, logging.KeyError, err)
	}
	respondJSON(w, r, status, resp)
}

// decode reads a JSON body into v and validates its tags.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewValidationError("body", "",
			fmt.Sprintf("invalid request body: %v", err), "Send a JSON object.")
	}
	return validate.Struct(v)
}
