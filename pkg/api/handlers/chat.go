package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// ChatRequest is the body of POST /api/v1/chat
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// PostChat handles POST /api/v1/chat
func (s *Server) PostChat(c fiber.Ctx) error {
	if s.chat == nil {
		return ErrChatDisabled
	}

	var req ChatRequest
	if err := c.Bind().Body(&req); err != nil {
		return ErrInvalidBody
	}

	reply, err := s.chat.HandleTurn(c.Context(), req.SessionID, req.Message)
	if err != nil {
		s.log.WithError(err).WithField("session", req.SessionID).Warn("Chat turn failed")

		return err
	}

	return c.JSON(reply)
}
