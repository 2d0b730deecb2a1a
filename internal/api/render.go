package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
	apperrors "github.com/kartikbazzad/bunbase/bunstore/pkg/errors"
	"github.com/kartikbazzad/bunbase/bunstore/pkg/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

// render writes v as JSON using the collection number formatting.
func render(c *gin.Context, status int, v any) {
	body, err := collection.Encode(v)
	if err != nil {
		logger.WithTraceID(c.Request.Context(), logger.Get()).Error("Failed to encode response", "error", err)
		c.Data(http.StatusInternalServerError, contentTypeJSON, []byte(`{"error":"internal server error"}`))
		return
	}
	c.Data(status, contentTypeJSON, body)
}

// renderError maps err onto a status code and writes its payload.
func renderError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.Code >= http.StatusInternalServerError {
		logger.WithTraceID(c.Request.Context(), logger.Get()).Error("Request failed", "path", c.FullPath(), "error", err)
	}
	render(c, appErr.Code, appErr.Body())
	c.Abort()
}

// toAppError classifies registry errors: lookups that miss are 404, the rest
// of the collection taxonomy is the caller's fault.
func toAppError(err error) *apperrors.AppError {
	var collErr *collection.CollectionError
	var storeErr *collection.StorageError
	switch {
	case errors.Is(err, collection.ErrCollectionNotFound),
		errors.Is(err, collection.ErrValueNotFound),
		errors.Is(err, collection.ErrSchemaNotFound),
		errors.Is(err, collection.ErrFieldNotFound):
		return apperrors.WithPayload(http.StatusNotFound, errorPayload(err), err)
	case errors.As(err, &collErr), errors.As(err, &storeErr):
		return apperrors.WithPayload(http.StatusBadRequest, errorPayload(err), err)
	}
	return apperrors.From(err)
}

// errorPayload returns the typed error itself so it renders in its tagged
// JSON form.
func errorPayload(err error) any {
	var collErr *collection.CollectionError
	if errors.As(err, &collErr) {
		return collErr
	}
	var storeErr *collection.StorageError
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return map[string]any{"error": err.Error()}
}

// readJSON decodes the request body into a generic JSON value.
func readJSON(c *gin.Context) (any, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, apperrors.BadRequest("failed to read request body")
	}
	v, err := collection.Decode(raw)
	if err != nil {
		return nil, apperrors.New(http.StatusBadRequest, "invalid JSON body", err)
	}
	return v, nil
}
