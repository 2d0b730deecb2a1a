package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
	apperrors "github.com/kartikbazzad/bunbase/bunstore/pkg/errors"
	"github.com/kartikbazzad/bunbase/bunstore/pkg/logger"
)

// Batch actions.
const (
	ActionCreate = "Create"
	ActionUpdate = "Update"
	ActionDelete = "Delete"
	ActionGet    = "Get"
)

const batchRequestSchema = `{
  "type": "object",
  "required": ["requests"],
  "properties": {
    "requests": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["action", "collection"],
        "properties": {
          "action": {"enum": ["Create", "Update", "Delete", "Get"]},
          "collection": {"type": "string", "minLength": 1},
          "identifier": {"type": "string"}
        },
        "allOf": [
          {
            "if": {"properties": {"action": {"enum": ["Update", "Delete", "Get"]}}},
            "then": {"required": ["identifier"]}
          },
          {
            "if": {"properties": {"action": {"enum": ["Create", "Update"]}}},
            "then": {"required": ["data"]}
          }
        ]
      }
    }
  }
}`

// batchAction is one entry of a batch request.
type batchAction struct {
	Action     string
	Collection string
	Identifier string
	Data       any
}

// batch runs every action in order. A failing action leaves its error
// payload in place of the result; later actions still run.
func (s *Server) batch(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		renderError(c, apperrors.BadRequest("failed to read request body"))
		return
	}
	actions, err := s.parseBatch(raw)
	if err != nil {
		renderError(c, err)
		return
	}

	results := make([]any, 0, len(actions))
	for _, action := range actions {
		start := time.Now()
		row, err := s.perform(c.Request.Context(), action)
		s.observe(action.Collection, "batch_"+strings.ToLower(action.Action), start, err)
		if err != nil {
			logger.Debug("Batch action failed",
				"trace_id", logger.TraceID(c.Request.Context()),
				"action", action.Action,
				"collection", action.Collection,
				"error", err,
			)
			results = append(results, errorPayload(err))
			continue
		}
		results = append(results, row)
	}
	render(c, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) parseBatch(raw []byte) ([]batchAction, error) {
	result, err := s.batchSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, apperrors.New(http.StatusBadRequest, "invalid JSON body", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, apperrors.BadRequest("invalid batch request: " + strings.Join(errs, "; "))
	}

	body, err := collection.Decode(raw)
	if err != nil {
		return nil, apperrors.New(http.StatusBadRequest, "invalid JSON body", err)
	}
	requests, _ := body.(map[string]any)["requests"].([]any)

	actions := make([]batchAction, 0, len(requests))
	for _, item := range requests {
		entry := item.(map[string]any)
		action := batchAction{Data: entry["data"]}
		action.Action, _ = entry["action"].(string)
		action.Collection, _ = entry["collection"].(string)
		action.Identifier, _ = entry["identifier"].(string)
		actions = append(actions, action)
	}
	return actions, nil
}

func (s *Server) perform(ctx context.Context, a batchAction) (map[string]any, error) {
	switch a.Action {
	case ActionCreate:
		return s.collections.Insert(ctx, a.Collection, a.Data)
	case ActionUpdate:
		return s.collections.Update(ctx, a.Collection, a.Identifier, a.Data)
	case ActionDelete:
		return s.collections.Delete(ctx, a.Collection, a.Identifier)
	case ActionGet:
		return s.collections.Get(ctx, a.Collection, a.Identifier)
	}
	return nil, fmt.Errorf("unknown action %q", a.Action)
}
