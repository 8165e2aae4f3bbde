package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pokedex/internal/service"
	"github.com/mesh-intelligence/pokedex/pkg/types"
)

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createPokemon(c *gin.Context) {
	var req service.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	res, err := s.service.Create(c.Request.Context(), req)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) fetchAllPokemons(c *gin.Context) {
	res, err := s.service.FetchAll(c.Request.Context())
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) fetchPokemon(c *gin.Context) {
	number, ok := pathNumber(c)
	if !ok {
		return
	}

	res, err := s.service.FetchOne(c.Request.Context(), number)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) deletePokemon(c *gin.Context) {
	number, ok := pathNumber(c)
	if !ok {
		return
	}

	if err := s.service.Delete(c.Request.Context(), number); err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// pathNumber parses the :number parameter, answering 400 if it is not an
// integer.
func pathNumber(c *gin.Context) (int, bool) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return 0, false
	}
	return number, true
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleServiceError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.Status(status)
}
