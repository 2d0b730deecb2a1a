package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
	apperrors "github.com/kartikbazzad/bunbase/bunstore/pkg/errors"
)

func (s *Server) createRecord(c *gin.Context) {
	start := time.Now()
	name := c.Param("collection")

	data, err := readJSON(c)
	if err != nil {
		renderError(c, err)
		return
	}
	row, err := s.collections.Insert(c.Request.Context(), name, data)
	s.observe(name, "insert", start, err)
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, row)
}

func (s *Server) getRecord(c *gin.Context) {
	start := time.Now()
	name := c.Param("collection")

	row, err := s.collections.Get(c.Request.Context(), name, c.Param("id"))
	s.observe(name, "get", start, err)
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, row)
}

func (s *Server) updateRecord(c *gin.Context) {
	start := time.Now()
	name := c.Param("collection")

	data, err := readJSON(c)
	if err != nil {
		renderError(c, err)
		return
	}
	row, err := s.collections.Update(c.Request.Context(), name, c.Param("id"), data)
	s.observe(name, "update", start, err)
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, row)
}

func (s *Server) deleteRecord(c *gin.Context) {
	start := time.Now()
	name := c.Param("collection")

	row, err := s.collections.Delete(c.Request.Context(), name, c.Param("id"))
	s.observe(name, "delete", start, err)
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, row)
}

// listRecords answers GET /api/collections/:collection?where=<json>.
func (s *Server) listRecords(c *gin.Context) {
	start := time.Now()
	name := c.Param("collection")

	var query any
	if raw := c.Query("where"); raw != "" {
		parsed, err := collection.Decode([]byte(raw))
		if err != nil {
			renderError(c, apperrors.New(http.StatusBadRequest, "invalid where parameter", err))
			return
		}
		query = parsed
	}

	rows, err := s.collections.List(c.Request.Context(), name, query)
	s.observe(name, "list", start, err)
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, rows)
}
