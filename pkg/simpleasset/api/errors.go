package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-asset/pkg/asset"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, simpleasset.ErrAssetNotFound), errors.Is(err, simpleasset.ErrObjectNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, asset.ErrSizeExceeded):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, simpleasset.ErrAssetAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, simpleasset.ErrDirectDownloadRequired):
		return http.StatusConflict, "direct_download_required"
	case errors.Is(err, asset.ErrNilData),
		errors.Is(err, asset.ErrInvalidFileName),
		errors.Is(err, asset.ErrInvalidMediaType),
		errors.Is(err, simpleasset.ErrStorageBackendNotFound):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, simpleasset.ErrCorruptEnvelope):
		return http.StatusInternalServerError, "corrupt_envelope"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps err to a status code and writes the JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	writeErrorStatus(w, r, status, code, err)
}

func writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	requestID, _ := r.Context().Value(RequestIDKey).(string)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "request_id", requestID, "err", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{Error: ErrorDetail{Code: code, Message: err.Error(), RequestID: requestID}})
}
