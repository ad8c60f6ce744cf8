package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ethpandaops/clickguard/pkg/gateway"
)

// ExecuteRequest is the body of POST /api/v1/execute
type ExecuteRequest struct {
	SQL      string `json:"sql"`
	Question string `json:"question"`
}

// ResultResponse is a query result with its chat rendering
type ResultResponse struct {
	*gateway.Result
	Answer string `json:"answer"`
}

// CacheableRequest is the body of POST /api/v1/cacheable
type CacheableRequest struct {
	SQL string `json:"sql"`
}

// CacheableResponse reports the cacheability verdict and the deciding rule
type CacheableResponse struct {
	Cacheable bool   `json:"cacheable"`
	Rule      string `json:"rule"`
}

// PostExecute handles POST /api/v1/execute
func (s *Server) PostExecute(c fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}

	res, err := s.executor.Execute(c.Context(), req.SQL, req.Question)
	if err != nil {
		return err
	}

	return c.JSON(ResultResponse{Result: res, Answer: s.formatter.Format(res)})
}

// PostCacheable handles POST /api/v1/cacheable
func (s *Server) PostCacheable(c fiber.Ctx) error {
	var req CacheableRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}

	cacheable, rule := s.cache.Explain(req.SQL)

	return c.JSON(CacheableResponse{Cacheable: cacheable, Rule: rule})
}

// GetTablePreview handles GET /api/v1/tables/:table/preview
func (s *Server) GetTablePreview(c fiber.Ctx) error {
	res, err := s.executor.PreviewTable(c.Context(), c.Params("table"))
	if err != nil {
		return err
	}

	return c.JSON(ResultResponse{Result: res, Answer: s.formatter.Format(res)})
}
