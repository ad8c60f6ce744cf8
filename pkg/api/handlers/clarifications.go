package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ethpandaops/clickguard/pkg/clarification"
)

// DetectRequest is the body of POST /api/v1/clarifications/detect
type DetectRequest struct {
	Reply   string `json:"reply"`
	Awaited string `json:"awaited"`
}

// DetectResponse is the field a reply supplies
type DetectResponse struct {
	Field clarification.Field `json:"field"`
}

// GetClarification handles GET /api/v1/clarifications?question=
func (s *Server) GetClarification(c fiber.Ctx) error {
	question := c.Query("question")
	if question == "" {
		return ErrQuestionRequired
	}

	st, err := s.clarifications.Get(c.Context(), question)
	if err != nil {
		return err
	}

	return c.JSON(st)
}

// DeleteClarification handles DELETE /api/v1/clarifications?question=
func (s *Server) DeleteClarification(c fiber.Ctx) error {
	question := c.Query("question")
	if question == "" {
		return ErrQuestionRequired
	}

	if err := s.clarifications.Clear(c.Context(), question); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PostDetect handles POST /api/v1/clarifications/detect
func (s *Server) PostDetect(c fiber.Ctx) error {
	var req DetectRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}

	awaited, err := clarification.ParseField(req.Awaited)
	if err != nil {
		return err
	}

	return c.JSON(DetectResponse{Field: s.clarifications.DetectProvidedField(req.Reply, awaited)})
}
