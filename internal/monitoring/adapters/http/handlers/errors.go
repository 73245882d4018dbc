// Package handlers implements the HTTP transport of the monitoring API
package handlers

import (
	"errors"
	"net/http"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/repository"
	"github.com/pulsewatch/pulsewatch/internal/platform/response"
)

// respondError maps service errors to HTTP status codes: validation
// failures become 400, missing records 404, anything else 500.
func respondError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, verr.Error())
	case errors.Is(err, repository.ErrNotFound):
		response.NotFound(w, "record not found")
	default:
		response.Internal(w, "internal server error")
	}
}
