package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// GetCacheStats handles GET /api/v1/cache/stats
func (s *Server) GetCacheStats(c fiber.Ctx) error {
	return c.JSON(s.cache.Stats(c.Context()))
}

// DeleteCache handles DELETE /api/v1/cache
func (s *Server) DeleteCache(c fiber.Ctx) error {
	if err := s.cache.Clear(c.Context()); err != nil {
		return err
	}

	s.log.Info("Query cache cleared")

	return c.SendStatus(fiber.StatusNoContent)
}
